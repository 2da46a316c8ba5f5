package rawfile

import (
	"errors"
	"math"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// Columnar struct serialisation; a dense 1D array with __tiledb_rows as
// the queryable dimension and one attribute per exported struct field.
// The attribute configuration comes from the struct tags so the schema
// stays next to the data definition.

// columnarArraySchema establishes the schema and array on disk or object
// store for a struct of column slices.
func columnarArraySchema(t any, file_uri string, ctx *tiledb.Context, nrows uint64) error {
	// an arbitrary choice; maybe at a future date we evaluate a good number
	tile_sz := uint64(math.Min(float64(50000), float64(nrows)))

	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer domain.Free()

	// ascending rows compress well under delta then zstandard
	dim, err := tiledb.NewDimension(ctx, "__tiledb_rows", tiledb.TILEDB_UINT64,
		[]uint64{0, nrows - uint64(1)}, tile_sz)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer dim.Free()

	dim_filters, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer dim_filters.Free()

	dim_f1, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_POSITIVE_DELTA)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer dim_f1.Free()

	dim_f2, err := newCompressionFilter(ctx, tiledb.TILEDB_FILTER_ZSTD, int32(16))
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer dim_f2.Free()

	err = dim_filters.AddFilter(dim_f1)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	err = dim_filters.AddFilter(dim_f2)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	err = dim.SetFilterList(dim_filters)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	err = domain.AddDimensions(dim)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer schema.Free()

	err = schema.SetDomain(domain)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	// cell and tile ordering was an arbitrary choice
	err = schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	err = schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	err = schemaAttrs(t, schema, ctx)
	if err != nil {
		return err
	}

	array, err := tiledb.NewArray(ctx, file_uri)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer array.Free()

	err = array.Create(schema)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	return nil
}

// schemaAttrs establishes the tiledb attributes for every exported,
// tagged field of the struct.
func schemaAttrs(t any, schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	values := reflect.ValueOf(t).Elem()
	types := values.Type()

	filt_defs, _ := stgpsr.ParseStruct(t, "filters")
	tdb_defs, _ := stgpsr.ParseStruct(t, "tiledb")

	for i := 0; i < values.NumField(); i++ {
		if !types.Field(i).IsExported() {
			continue
		}
		name := types.Field(i).Name

		field_tdb_defs := make(map[string]stgpsr.Definition)
		for _, v := range tdb_defs[name] {
			field_tdb_defs[v.Name()] = v
		}

		def, status := field_tdb_defs["ftype"]
		if !status {
			return errors.Join(ErrCreateChromTdb, errors.New("ftype tag not found"))
		}
		ftype, _ := def.Attribute("ftype")
		if ftype == "dim" {
			// ignore dimensions
			continue
		}

		err := CreateAttr(name, filt_defs[name], field_tdb_defs, schema, ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

// setColumnBuffers attaches every exported slice field of the struct as
// a query data buffer under the field's name.
func setColumnBuffers(query *tiledb.Query, t any) error {
	values := reflect.ValueOf(t).Elem()
	types := values.Type()

	for i := 0; i < values.NumField(); i++ {
		if !types.Field(i).IsExported() {
			continue
		}
		name := types.Field(i).Name
		field := values.Field(i)

		var err error
		switch slc := field.Interface().(type) {
		case []int32:
			_, err = query.SetDataBuffer(name, slc)
		case []int64:
			_, err = query.SetDataBuffer(name, slc)
		case []float32:
			_, err = query.SetDataBuffer(name, slc)
		case []float64:
			_, err = query.SetDataBuffer(name, slc)
		default:
			err = errors.New("unsupported column type: " + name)
		}
		if err != nil {
			return errors.Join(ErrWriteChromTdb, err, errors.New(name))
		}
	}

	return nil
}

// writeColumnar creates the array and writes every column in one dense
// row-major query.
func writeColumnar(t any, file_uri string, ctx *tiledb.Context, nrows uint64) error {
	if nrows == 0 {
		return errors.Join(ErrWriteChromTdb, errors.New("no rows to write"))
	}

	err := columnarArraySchema(t, file_uri, ctx, nrows)
	if err != nil {
		return err
	}

	array, err := openArrayWrite(ctx, file_uri)
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}
	defer query.Free()

	err = query.SetLayout(tiledb.TILEDB_ROW_MAJOR)
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}

	err = setColumnBuffers(query, t)
	if err != nil {
		return err
	}

	subarr, err := array.NewSubarray()
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}
	defer subarr.Free()

	rng := tiledb.MakeRange(uint64(0), nrows-uint64(1))
	subarr.AddRangeByName("__tiledb_rows", rng)
	err = query.SetSubarray(subarr)
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}

	err = query.Submit()
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}

	err = query.Finalize()
	if err != nil {
		return errors.Join(ErrWriteChromTdb, err)
	}

	// attach some metadata to preserve python pandas functionality
	md := map[string]string{"__tiledb_rows": "uint64"}
	jsn, err := EncodeJson(md, false)
	if err != nil {
		return err
	}

	return array.PutMetadata("__pandas_index_dims", jsn)
}

// ToTileDB writes the chromatogram trace to a TileDB array.
// Column structure:
// [__tiledb_rows (dim), start_time (attr), intensity (attr)].
func (c *Chromatogram) ToTileDB(file_uri string, ctx *tiledb.Context) error {
	return writeColumnar(c, file_uri, ctx, uint64(len(c.Start_time)))
}

// ToTileDB writes the scan index summary table to a TileDB array.
func (t *ScanIndexTable) ToTileDB(file_uri string, ctx *tiledb.Context) error {
	return writeColumnar(t, file_uri, ctx, uint64(len(t.Scan_number)))
}
