package rawfile

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// TileDB plumbing for the chromatogram and scan index exports. The
// exports only ever open arrays for writing and only ever compress with
// zstandard or deflate, so the helpers here cover exactly that path.

// openArrayWrite opens the chromatogram/index array for writing; reads
// of the exported arrays happen downstream in python land, not here.
func openArrayWrite(ctx *tiledb.Context, uri string) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, err
	}

	err = array.Open(tiledb.TILEDB_WRITE)
	if err != nil {
		array.Free()
		return nil, err
	}

	return array, nil
}

// newCompressionFilter initialises one compression filter at the given
// level. The filters tag on the column structs and the row dimension
// pipeline both funnel through here.
func newCompressionFilter(ctx *tiledb.Context, kind tiledb.FilterType, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, kind)
	if err != nil {
		return nil, err
	}

	err = filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level)
	if err != nil {
		filt.Free()
		return nil, err
	}

	return filt, nil
}

// CreateAttr creates a tiledb attribute along with the compression
// filter pipeline. The configuration is specified by the tags attached
// to the struct type.
// Tags for tiledb include: dtype and ftype, where dtype is the datatype
// and ftype is the fieldtype (dim or attr); dim fields are skipped by
// the caller.
// Tags for filters include: zstd(level=16) and gzip(level=6).
// Filters are set in the order they're specified in the tag.
// An example tag is `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
func CreateAttr(
	field_name string,
	filter_defs []stgpsr.Definition,
	tiledb_defs map[string]stgpsr.Definition,
	schema *tiledb.ArraySchema,
	ctx *tiledb.Context,
) error {
	var tdb_dtype tiledb.Datatype

	def, status := tiledb_defs["dtype"]
	if !status {
		return errors.Join(ErrCreateChromTdb, errors.New("dtype tag not found"))
	}
	dtype, _ := def.Attribute("dtype")

	switch dtype {
	case "int32":
		tdb_dtype = tiledb.TILEDB_INT32
	case "int64":
		tdb_dtype = tiledb.TILEDB_INT64
	case "float32":
		tdb_dtype = tiledb.TILEDB_FLOAT32
	case "float64":
		tdb_dtype = tiledb.TILEDB_FLOAT64
	case "string":
		tdb_dtype = tiledb.TILEDB_STRING_UTF8
	default:
		return errors.Join(ErrCreateChromTdb, errors.New("unsupported dtype: "+field_name))
	}

	attr_filts, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer attr_filts.Free()

	for _, filter := range filter_defs {
		var kind tiledb.FilterType
		switch filter.Name() {
		case "zstd":
			kind = tiledb.TILEDB_FILTER_ZSTD
		case "gzip":
			kind = tiledb.TILEDB_FILTER_GZIP
		default:
			continue
		}

		level, status := filter.Attribute("level")
		if !status {
			return errors.Join(ErrCreateChromTdb,
				errors.New(filter.Name()+" level not defined on "+field_name))
		}

		filt, err := newCompressionFilter(ctx, kind, int32(level.(int64)))
		if err != nil {
			return errors.Join(ErrCreateChromTdb, err)
		}
		defer filt.Free()

		err = attr_filts.AddFilter(filt)
		if err != nil {
			return errors.Join(ErrCreateChromTdb, err)
		}
	}

	attr, err := tiledb.NewAttribute(ctx, field_name, tdb_dtype)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}
	defer attr.Free()

	err = attr.SetFilterList(attr_filts)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	err = schema.AddAttributes(attr)
	if err != nil {
		return errors.Join(ErrCreateChromTdb, err)
	}

	return nil
}

// WriteArrayMetadata attaches run-level metadata (run header fields,
// unique filter strings) to an exported array, serialised as JSON.
func WriteArrayMetadata(ctx *tiledb.Context, array_uri, key string, md any) error {
	array, err := openArrayWrite(ctx, array_uri)
	if err != nil {
		return errors.Join(err, errors.New("Error opening (w) TileDB array: "+array_uri))
	}
	defer array.Free()
	defer array.Close()

	jsn, err := EncodeJson(md, false)
	if err != nil {
		return errors.Join(err, errors.New("Error serialising metadata to JSON"))
	}

	err = array.PutMetadata(key, jsn)
	if err != nil {
		return errors.Join(err, errors.New("Error writing metadata to array: "+array_uri))
	}

	return nil
}
