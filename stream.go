package rawfile

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync"
	"unicode/utf16"
)

// Stream caters for a generic reader type so that we can handle both
// a stream of data from a file on disk or object store, as well as
// an in-memory byte stream.
// This module deals with either a *tiledb.VFSfh or *bytes.Reader,
// and all we care about are two methods, Read and Seek,
// which both implement.
type Stream interface {
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
}

// MemoryReader provides random access typed reads over a bounded byte range.
// The backing source is either an in-memory slice, or a Stream positioned
// with seek calls. All primitive reads are little-endian as that is what
// the raw container stores.
// Sub views share the backing source with the parent and must not outlive it.
type MemoryReader struct {
	data   []byte
	stream Stream
	mu     *sync.Mutex
	base   int64
	length int64

	// Streamed (non memory mapped) backings pay a round trip per read, so
	// record array consumers should fetch a batch of records per miss
	// rather than random access individual records.
	large_reads bool
}

// NewMemoryReader constructs a reader over an in-memory byte slice.
func NewMemoryReader(data []byte) *MemoryReader {
	return &MemoryReader{data: data, length: int64(len(data))}
}

// NewStreamReader constructs a reader over a seekable stream of a known size.
// Reads are serialised with a mutex as a seek followed by a read is not atomic.
func NewStreamReader(stream Stream, size int64) *MemoryReader {
	return &MemoryReader{
		stream:      stream,
		mu:          &sync.Mutex{},
		length:      size,
		large_reads: true,
	}
}

// Len is the number of addressable bytes.
func (m *MemoryReader) Len() int64 {
	return m.length
}

// PrefersLargeReads indicates the backing source pays a round trip per
// read call, and consumers walking record arrays should buffer batches.
func (m *MemoryReader) PrefersLargeReads() bool {
	return m.large_reads
}

// checkBounds validates a requested [offset, offset+size) range.
func (m *MemoryReader) checkBounds(offset, size int64) error {
	if offset < 0 || size < 0 || offset+size > m.length {
		return errAtOffset(ErrOutOfBounds, offset)
	}

	return nil
}

// ReadBytes copies length bytes starting at offset.
func (m *MemoryReader) ReadBytes(offset, length int64) ([]byte, error) {
	err := m.checkBounds(offset, length)
	if err != nil {
		return nil, err
	}

	buffer := make([]byte, length)

	if m.data != nil {
		copy(buffer, m.data[offset:offset+length])
		return buffer, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, err = m.stream.Seek(m.base+offset, 0)
	if err != nil {
		return nil, errAtOffset(ErrOutOfBounds, offset)
	}

	total := 0
	for total < int(length) {
		n, err := m.stream.Read(buffer[total:])
		if n == 0 && err != nil {
			return nil, errAtOffset(ErrOutOfBounds, offset)
		}
		total += n
	}

	return buffer, nil
}

// ReadBytesLazy defers the backing read until the returned loader is called.
// Callers paying only for summary information never touch the heavy sections.
func (m *MemoryReader) ReadBytesLazy(offset, length int64) (func() ([]byte, error), error) {
	err := m.checkBounds(offset, length)
	if err != nil {
		return nil, err
	}

	var (
		once   sync.Once
		cached []byte
		lerr   error
	)

	loader := func() ([]byte, error) {
		once.Do(func() {
			cached, lerr = m.ReadBytes(offset, length)
		})
		return cached, lerr
	}

	return loader, nil
}

// SubView constructs a bounded logical alias over [offset, offset+length).
// The sub view borrows the backing source for its declared length.
func (m *MemoryReader) SubView(offset, length int64) (*MemoryReader, error) {
	err := m.checkBounds(offset, length)
	if err != nil {
		return nil, err
	}

	if m.data != nil {
		return &MemoryReader{data: m.data[offset : offset+length], length: length}, nil
	}

	return &MemoryReader{
		stream:      m.stream,
		mu:          m.mu,
		base:        m.base + offset,
		length:      length,
		large_reads: m.large_reads,
	}, nil
}

func (m *MemoryReader) Uint8(offset int64) (uint8, error) {
	b, err := m.ReadBytes(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *MemoryReader) Int8(offset int64) (int8, error) {
	v, err := m.Uint8(offset)
	return int8(v), err
}

func (m *MemoryReader) Uint16(offset int64) (uint16, error) {
	b, err := m.ReadBytes(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (m *MemoryReader) Int16(offset int64) (int16, error) {
	v, err := m.Uint16(offset)
	return int16(v), err
}

func (m *MemoryReader) Uint32(offset int64) (uint32, error) {
	b, err := m.ReadBytes(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (m *MemoryReader) Int32(offset int64) (int32, error) {
	v, err := m.Uint32(offset)
	return int32(v), err
}

func (m *MemoryReader) Uint64(offset int64) (uint64, error) {
	b, err := m.ReadBytes(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (m *MemoryReader) Int64(offset int64) (int64, error) {
	v, err := m.Uint64(offset)
	return int64(v), err
}

func (m *MemoryReader) Float32(offset int64) (float32, error) {
	v, err := m.Uint32(offset)
	return math.Float32frombits(v), err
}

func (m *MemoryReader) Float64(offset int64) (float64, error) {
	v, err := m.Uint64(offset)
	return math.Float64frombits(v), err
}

// little-endian views over already-fetched shadow bytes

func leUint16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

func leUint32(b []byte) uint32 {
	return binary.LittleEndian.Uint32(b)
}

func leInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

func leFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func leFloat64(b []byte) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}

// ReadArrayOf decodes count contiguous fixed-layout records starting at offset.
// T must contain only primitive fields laid out in declared order.
func ReadArrayOf[T any](m *MemoryReader, offset int64, count int) ([]T, error) {
	var probe T

	size := int64(binary.Size(&probe))
	buffer, err := m.ReadBytes(offset, size*int64(count))
	if err != nil {
		return nil, err
	}

	data := make([]T, count)
	err = binary.Read(bytes.NewReader(buffer), binary.LittleEndian, &data)
	if err != nil {
		return nil, errAtOffset(ErrTruncatedRecord, offset)
	}

	return data, nil
}

// ReadString decodes a length prefixed UTF-16 string; a 32bit code unit
// count followed by that many 16bit code units. A zero count yields the
// empty string. The consumed byte count is returned alongside.
func (m *MemoryReader) ReadString(offset int64) (string, int64, error) {
	count, err := m.Uint32(offset)
	if err != nil {
		return "", 0, err
	}

	if count == 0 {
		return "", 4, nil
	}

	units, err := ReadArrayOf[uint16](m, offset+4, int(count))
	if err != nil {
		return "", 0, err
	}

	return string(utf16.Decode(units)), 4 + 2*int64(count), nil
}

// ReadFloat64Vector decodes a 32bit element count followed by that many
// float64 values. The consumed byte count is returned alongside.
func (m *MemoryReader) ReadFloat64Vector(offset int64) ([]float64, int64, error) {
	count, err := m.Uint32(offset)
	if err != nil {
		return nil, 0, err
	}

	data, err := ReadArrayOf[float64](m, offset+4, int(count))
	if err != nil {
		return nil, 0, err
	}

	return data, 4 + 8*int64(count), nil
}
