package rawfile

import (
	"encoding/binary"
	"math"
)

// binBuf builds little-endian binary fixtures for the decoder tests.
type binBuf struct {
	b []byte
}

func (w *binBuf) u8(v uint8) *binBuf {
	w.b = append(w.b, v)
	return w
}

func (w *binBuf) u16(v uint16) *binBuf {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
	return w
}

func (w *binBuf) u32(v uint32) *binBuf {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
	return w
}

func (w *binBuf) i32(v int32) *binBuf {
	return w.u32(uint32(v))
}

func (w *binBuf) u64(v uint64) *binBuf {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
	return w
}

func (w *binBuf) i64(v int64) *binBuf {
	return w.u64(uint64(v))
}

func (w *binBuf) f32(v float32) *binBuf {
	return w.u32(math.Float32bits(v))
}

func (w *binBuf) f64(v float64) *binBuf {
	return w.u64(math.Float64bits(v))
}

func (w *binBuf) pad(n int) *binBuf {
	w.b = append(w.b, make([]byte, n)...)
	return w
}

func (w *binBuf) bytes(b []byte) *binBuf {
	w.b = append(w.b, b...)
	return w
}

// eventShadow zero-fills a fixed scan event shadow of the layout size for
// the revision; tests poke individual bytes afterwards.
func eventShadow(revision int32) []byte {
	size, err := layoutSize(scanEventLayouts, revision)
	if err != nil {
		panic(err)
	}
	return make([]byte, size)
}

// emptyEventTail appends the minimal variable tail; no reactions, ranges,
// calibrators, voltages, and (at rev >= 65) no ranges or name.
func emptyEventTail(w *binBuf, revision int32) *binBuf {
	w.u32(0) // reactions
	w.i32(0) // mass ranges
	w.u32(0) // calibrators
	w.u32(0) // source fragmentations
	if revision >= 65 {
		w.i32(0) // source fragmentation ranges
		w.u32(0) // name
	}
	return w
}

// scanIndexRecordBytes serialises one 88 byte scan index record.
func scanIndexRecordBytes(rec ScanIndexRecord) []byte {
	w := &binBuf{}
	w.u32(rec.Data_size).i32(rec.Trailer_offset).i32(rec.Scan_type_index)
	w.i32(rec.Scan_number).u32(rec.Packet_type).i32(rec.Number_of_packets)
	w.f64(rec.Start_time).f64(rec.Tic).f64(rec.Base_peak_intensity)
	w.f64(rec.Base_peak_mass).f64(rec.Low_mass).f64(rec.High_mass)
	w.i64(rec.Data_offset).i32(rec.Cycle_number).u32(0)
	return w.b
}
