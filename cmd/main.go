package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	tiledb "github.com/TileDB-Inc/TileDB-Go"
	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	rawfile "github.com/EstrellaXD/go-rawfile"
)

// ExportConfig carries the export options read from an optional TOML
// file; number localisation for the filter strings and the IO knobs.
type ExportConfig struct {
	Mass_precision    int    `toml:"mass_precision"`
	Energy_precision  int    `toml:"energy_precision"`
	Decimal_separator string `toml:"decimal_separator"`
	List_separator    string `toml:"list_separator"`
	Records_per_batch int64  `toml:"records_per_batch"`
	In_memory         bool   `toml:"in_memory"`
}

func defaultExportConfig() ExportConfig {
	opts := rawfile.DefaultFormatOptions()
	return ExportConfig{
		// zero defers to the precision the run header declares
		Mass_precision:    0,
		Energy_precision:  opts.Energy_precision,
		Decimal_separator: opts.Decimal_separator,
		List_separator:    opts.List_separator,
		Records_per_batch: rawfile.DEFAULT_RECORDS_PER_BATCH,
	}
}

func loadExportConfig(uri string) (ExportConfig, error) {
	cfg := defaultExportConfig()
	if uri == "" {
		return cfg, nil
	}

	_, err := toml.DecodeFile(uri, &cfg)
	return cfg, err
}

// info_raw decodes only the metadata of a single raw file and writes it
// out as JSON.
func info_raw(raw_uri, config_uri, outdir_uri string, cfg ExportConfig) error {
	dir, file := filepath.Split(raw_uri)
	if outdir_uri == "" {
		outdir_uri = dir
	}

	log.Println("Processing raw file:", raw_uri)
	src, err := rawfile.OpenRaw(raw_uri, config_uri, cfg.In_memory)
	if err != nil {
		return err
	}
	defer src.Close()

	log.Println("Building index; Collating metadata; Computing general QA")
	meta, err := src.Info(rawfile.FormatOptions{
		Mass_precision:    cfg.Mass_precision,
		Energy_precision:  cfg.Energy_precision,
		Decimal_separator: cfg.Decimal_separator,
		List_separator:    cfg.List_separator,
	})
	if err != nil {
		return err
	}

	out_uri := filepath.Join(outdir_uri, file+"-metadata.json")
	log.Println("Writing metadata:", out_uri)
	_, err = rawfile.WriteJson(out_uri, config_uri, meta)

	return err
}

// export_raw handles the conversion process for a single raw file;
// metadata JSON plus the chromatogram and scan index TileDB arrays.
func export_raw(raw_uri, config_uri, outdir_uri string, cfg ExportConfig, metadata_only bool) error {
	err := info_raw(raw_uri, config_uri, outdir_uri, cfg)
	if err != nil {
		return err
	}

	if metadata_only {
		return nil
	}

	dir, file := filepath.Split(raw_uri)
	if outdir_uri == "" {
		outdir_uri = dir
	}

	src, err := rawfile.OpenRaw(raw_uri, config_uri, cfg.In_memory)
	if err != nil {
		return err
	}
	defer src.Close()

	index, err := src.ScanIndex()
	if err != nil {
		return err
	}
	if b := index.Buffer(); b != nil && cfg.Records_per_batch > 0 {
		b.Records_per_batch = cfg.Records_per_batch
	}

	trailer, err := src.TrailerScanEvents()
	if err != nil {
		return err
	}

	var config *tiledb.Config
	if config_uri == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(config_uri)
	}
	if err != nil {
		return err
	}
	defer config.Free()

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return err
	}
	defer ctx.Free()

	grp_uri := filepath.Join(outdir_uri, file+".tiledb")
	grp, err := tiledb.NewGroup(ctx, grp_uri)
	if err != nil {
		return err
	}
	defer grp.Free()

	err = grp.Create()
	if err != nil {
		return errors.Join(err, errors.New("Error creating tiledb group"))
	}

	err = grp.Open(tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(err, errors.New("Error opening tiledb group in write mode"))
	}

	log.Println("Writing TIC chromatogram")
	tic, err := rawfile.TicChromatogram(index)
	if err != nil {
		return err
	}
	tic_name := "TIC.tiledb"
	err = tic.ToTileDB(filepath.Join(grp_uri, tic_name), ctx)
	if err != nil {
		return err
	}
	err = grp.AddMember(tic_name, "TIC", true)
	if err != nil {
		return errors.Join(err, errors.New("Error adding TIC to group"))
	}

	log.Println("Writing base peak chromatogram")
	bpc, err := rawfile.BasePeakChromatogram(index)
	if err != nil {
		return err
	}
	bpc_name := "BasePeak.tiledb"
	err = bpc.ToTileDB(filepath.Join(grp_uri, bpc_name), ctx)
	if err != nil {
		return err
	}
	err = grp.AddMember(bpc_name, "BasePeak", true)
	if err != nil {
		return errors.Join(err, errors.New("Error adding base peak to group"))
	}

	log.Println("Writing scan index table")
	table, err := rawfile.BuildScanIndexTable(index, trailer)
	if err != nil {
		return err
	}
	table_name := "ScanIndex.tiledb"
	err = table.ToTileDB(filepath.Join(grp_uri, table_name), ctx)
	if err != nil {
		return err
	}
	err = grp.AddMember(table_name, "ScanIndex", true)
	if err != nil {
		return errors.Join(err, errors.New("Error adding scan index to group"))
	}

	log.Println("Finished raw file:", raw_uri)

	return nil
}

// export_raw_list submits a list of raw files to a processing pool that
// converts each file. The pool uses 2 * n_CPUs workers to spread the
// work across.
func export_raw_list(uri, config_uri, outdir_uri string, cfg ExportConfig, metadata_only bool) error {
	log.Println("Searching uri:", uri)
	items, err := rawfile.FindRaw(uri, config_uri)
	if err != nil {
		return err
	}
	log.Println("Number of raw files to process:", len(items))

	// cancel the pool when the process receives a termination signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// fixed pool
	n := runtime.NumCPU() * 2
	pool := pond.New(n, 0, pond.MinWorkers(n), pond.Context(ctx))
	defer pool.StopAndWait()

	for _, name := range items {
		item_uri := name
		pool.Submit(func() {
			err := export_raw(item_uri, config_uri, outdir_uri, cfg, metadata_only)
			if err != nil {
				log.Println("Failed raw file:", item_uri, err)
			}
		})
	}

	return nil
}

func main() {
	app := &cli.App{
		Commands: []*cli.Command{
			{
				Name: "info",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "raw-uri",
						Usage: "URI or pathname to a raw file.",
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
					&cli.StringFlag{
						Name:  "export-config",
						Usage: "Pathname to a TOML export options file.",
					},
					&cli.StringFlag{
						Name:  "outdir-uri",
						Usage: "URI or pathname to an output directory.",
					},
				},
				Action: func(cCtx *cli.Context) error {
					cfg, err := loadExportConfig(cCtx.String("export-config"))
					if err != nil {
						return err
					}
					return info_raw(cCtx.String("raw-uri"), cCtx.String("config-uri"),
						cCtx.String("outdir-uri"), cfg)
				},
			},
			{
				Name: "export",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "raw-uri",
						Usage: "URI or pathname to a raw file.",
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
					&cli.StringFlag{
						Name:  "export-config",
						Usage: "Pathname to a TOML export options file.",
					},
					&cli.StringFlag{
						Name:  "outdir-uri",
						Usage: "URI or pathname to an output directory.",
					},
					&cli.BoolFlag{
						Name:  "metadata-only",
						Usage: "Only decode and export metadata relating to the raw file.",
					},
				},
				Action: func(cCtx *cli.Context) error {
					cfg, err := loadExportConfig(cCtx.String("export-config"))
					if err != nil {
						return err
					}
					return export_raw(cCtx.String("raw-uri"), cCtx.String("config-uri"),
						cCtx.String("outdir-uri"), cfg, cCtx.Bool("metadata-only"))
				},
			},
			{
				Name: "export-trawl",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "uri",
						Usage: "URI or pathname to a directory containing raw files.",
					},
					&cli.StringFlag{
						Name:  "config-uri",
						Usage: "URI or pathname to a TileDB config file.",
					},
					&cli.StringFlag{
						Name:  "export-config",
						Usage: "Pathname to a TOML export options file.",
					},
					&cli.StringFlag{
						Name:  "outdir-uri",
						Usage: "URI or pathname to an output directory.",
					},
					&cli.BoolFlag{
						Name:  "metadata-only",
						Usage: "Only decode and export metadata relating to the raw files.",
					},
				},
				Action: func(cCtx *cli.Context) error {
					cfg, err := loadExportConfig(cCtx.String("export-config"))
					if err != nil {
						return err
					}
					return export_raw_list(cCtx.String("uri"), cCtx.String("config-uri"),
						cCtx.String("outdir-uri"), cfg, cCtx.Bool("metadata-only"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
