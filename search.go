package rawfile

import (
	"path/filepath"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// trawl is an internal general purpose trawling function. The basename
// is only matched with the pattern, eg ("*.raw", "20240115_qc01.raw").
func trawl(vfs *tiledb.VFS, pattern string, uri string, items []string) ([]string, error) {
	dirs, files, err := vfs.List(uri)
	if err != nil {
		return nil, err
	}

	// check files for the matching pattern
	for _, file := range files {
		match, err := filepath.Match(pattern, filepath.Base(file))
		if err != nil {
			return nil, err
		}

		if match {
			items = append(items, file)
		}
	}

	// recurse over every directory
	for _, dir := range dirs {
		items, err = trawl(vfs, pattern, dir, items)
		if err != nil {
			return nil, err
		}
	}

	return items, nil
}

// FindRaw recursively searches for *.raw files under a given URI.
// The TileDB Go bindings seamlessly search either local filesystems or
// object stores such as AWS-S3; a TileDB config is required for object
// stores with permission constraints.
func FindRaw(uri string, config_uri string) ([]string, error) {
	var (
		config *tiledb.Config
		err    error
	)

	// get a generic config if no path provided
	if config_uri == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(config_uri)
	}
	if err != nil {
		return nil, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return nil, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return nil, err
	}
	defer vfs.Free()

	return trawl(vfs, "*.raw", uri, make([]string, 0))
}
