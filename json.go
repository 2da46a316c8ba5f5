package rawfile

import (
	"encoding/json"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// WriteJson serialises data to a JSON file. The output location can be
// local or an object store such as s3.
func WriteJson(file_uri string, config_uri string, data any) (int, error) {
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
		return 0, err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return 0, err
	}
	defer ctx.Free()

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return 0, err
	}
	defer vfs.Free()

	// the vfs api auto checks for a file's existence and removes it if we are wanting to write
	stream, err := vfs.Open(file_uri, tiledb.TILEDB_VFS_WRITE)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	jsn, err := EncodeJson(data, true)
	if err != nil {
		return 0, err
	}

	bytes_written, err := stream.Write([]byte(jsn))
	if err != nil {
		return 0, err
	}

	return bytes_written, nil
}

// EncodeJson renders data as a JSON string. indent selects the four
// space pretty form the sidecar files use; array metadata stays compact.
func EncodeJson(data any, indent bool) (string, error) {
	var (
		jsn []byte
		err error
	)

	if indent {
		jsn, err = json.MarshalIndent(data, "", "    ")
	} else {
		jsn, err = json.Marshal(data)
	}
	if err != nil {
		return "", err
	}

	return string(jsn), nil
}
