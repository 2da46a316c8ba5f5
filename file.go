package rawfile

import (
	"errors"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// RawFile contains the relevant information for an opened raw file to
// enable streamed reading; the TileDB VFS handles make local paths and
// object store URIs interchangeable.
type RawFile struct {
	Uri      string
	filesize uint64
	config   *tiledb.Config
	ctx      *tiledb.Context
	vfs      *tiledb.VFS
	handler  *tiledb.VFSfh

	reader *MemoryReader

	Preamble FilePreamble
}

// FilePreamble is the fixed leading record of the container; the file
// revision every structured load needs, plus the offsets of the run
// header, the scan index, the trailer event array and the UV index.
type FilePreamble struct {
	Magic             uint32
	File_revision     int32
	Run_header_offset int64
	Scan_index_offset int64
	Trailer_offset    int64
	Uv_index_offset   int64
}

const rawFileMagic uint32 = 0x01A1F1FF

const filePreambleSize int64 = 40

// OpenRaw opens a raw file for streamed IO and constructs a RawFile.
// With in_memory set the whole file is read up front and every
// subsequent access is a slice copy; otherwise reads seek the VFS
// handle and the index layer buffers record batches.
func OpenRaw(raw_uri string, config_uri string, in_memory bool) (*RawFile, error) {
	var (
		config *tiledb.Config
		err    error
	)

	raw := &RawFile{Uri: raw_uri}

	// get a generic config if no path provided
	if config_uri == "" {
		config, err = tiledb.NewConfig()
	} else {
		config, err = tiledb.LoadConfig(config_uri)
	}
	if err != nil {
		return nil, err
	}
	raw.config = config

	ctx, err := tiledb.NewContext(config)
	if err != nil {
		return nil, err
	}
	raw.ctx = ctx

	vfs, err := tiledb.NewVFS(ctx, config)
	if err != nil {
		return nil, err
	}
	raw.vfs = vfs

	handler, err := vfs.Open(raw_uri, tiledb.TILEDB_VFS_READ)
	if err != nil {
		return nil, err
	}
	raw.handler = handler

	filesize, err := vfs.FileSize(raw_uri)
	if err != nil {
		return nil, err
	}
	raw.filesize = filesize

	if in_memory {
		buffer := make([]byte, filesize)
		total := 0
		for total < len(buffer) {
			n, err := handler.Read(buffer[total:])
			if n == 0 && err != nil {
				return nil, err
			}
			total += n
		}
		raw.reader = NewMemoryReader(buffer)
	} else {
		raw.reader = NewStreamReader(handler, int64(filesize))
	}

	raw.Preamble, err = decodePreamble(raw.reader)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// Close releases the open tiledb file handler connections.
func (r *RawFile) Close() {
	r.handler.Close()
	r.vfs.Free()
	r.ctx.Free()
	r.config.Free()
}

// Reader exposes the backing memory reader for the structured loads.
func (r *RawFile) Reader() *MemoryReader {
	return r.reader
}

// Revision is the file revision the preamble declares.
func (r *RawFile) Revision() int32 {
	return r.Preamble.File_revision
}

func decodePreamble(reader *MemoryReader) (FilePreamble, error) {
	var pre FilePreamble

	magic, err := reader.Uint32(0)
	if err != nil {
		return pre, err
	}
	if magic != rawFileMagic {
		return pre, errors.New("not a raw file; bad magic")
	}

	pre.Magic = magic
	pre.File_revision, _ = reader.Int32(4)
	pre.Run_header_offset, _ = reader.Int64(8)
	pre.Scan_index_offset, _ = reader.Int64(16)
	pre.Trailer_offset, _ = reader.Int64(24)
	pre.Uv_index_offset, err = reader.Int64(32)
	if err != nil {
		return pre, errAtOffset(ErrTruncatedRecord, 0)
	}

	return pre, nil
}

// RunHeader decodes the run header record the preamble points at.
func (r *RawFile) RunHeader() (RunHeader, error) {
	return DecodeRunHeader(r.reader, r.Preamble.Run_header_offset, r.Revision())
}

// ScanIndex opens the scan index record array.
func (r *RawFile) ScanIndex() (*ScanIndex, error) {
	hdr, err := r.RunHeader()
	if err != nil {
		return nil, err
	}

	count := int64(hdr.Last_spectrum-hdr.First_spectrum) + 1
	if count < 0 {
		count = 0
	}

	return OpenScanIndex(r.reader, r.Preamble.Scan_index_offset, hdr.First_spectrum, count)
}

// TrailerScanEvents loads and deduplicates the per-scan event array.
func (r *RawFile) TrailerScanEvents() (*TrailerScanEvents, error) {
	return LoadTrailerScanEvents(r.reader, r.Preamble.Trailer_offset, r.Revision())
}

// UvScanIndex opens the UV/analog index when the file carries one.
func (r *RawFile) UvScanIndex(first_spectrum int32, count int64) (*UvScanIndex, error) {
	if r.Preamble.Uv_index_offset == 0 {
		return nil, errors.New("no uv scan index in this file")
	}
	return OpenUvScanIndex(r.reader, r.Preamble.Uv_index_offset, first_spectrum, count)
}
