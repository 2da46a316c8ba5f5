package rawfile

// The scan index is a fixed-size-record array mapping scan number to the
// packet address and the chromatographic summary values. Sequential walks
// over streamed backings are served through a batched record buffer.

// ScanIndexRecord byte layout (little-endian, 88 bytes):
//
//	u32 data_size | i32 trailer_offset | i32 scan_type_index | i32 scan_number
//	u32 packet_type | i32 number_of_packets
//	f64 start_time | f64 tic | f64 base_peak_intensity | f64 base_peak_mass
//	f64 low_mass | f64 high_mass | i64 data_offset | i32 cycle_number | pad
type ScanIndexRecord struct {
	Data_size           uint32
	Trailer_offset      int32
	Scan_type_index     int32
	Scan_number         int32
	Packet_type         uint32
	Number_of_packets   int32
	Start_time          float64
	Tic                 float64
	Base_peak_intensity float64
	Base_peak_mass      float64
	Low_mass            float64
	High_mass           float64
	Data_offset         int64
	Cycle_number        int32
	Reserved            uint32
}

const SCAN_INDEX_RECORD_SIZE int64 = 88

// byte offset of Start_time within a record; the retention time fast path
// reads these 8 bytes without decoding the remainder
const scanIndexStartTimeOffset int64 = 24

// The packet variant lives in the low 16 bits of Packet_type; the high 16
// bits are metadata.
const (
	PACKET_TYPE_MASK     uint32 = 0xFFFF
	PACKET_CENTROID_SCAN uint32 = 0x0001_0000
)

// PacketVariant selects the packet decoder family.
func (r *ScanIndexRecord) PacketVariant() uint32 {
	return r.Packet_type & PACKET_TYPE_MASK
}

// IsCentroidScan tests the centroid-scan metadata bit.
func (r *ScanIndexRecord) IsCentroidScan() bool {
	return r.Packet_type&PACKET_CENTROID_SCAN != 0
}

// UvScanIndexRecord is the shorter index record of the UV/analog stream
// (40 bytes): u32 data_size | i32 trailer_offset | i32 scan_number |
// u32 packet_type | f64 start_time | f64 tic | i64 data_offset.
type UvScanIndexRecord struct {
	Data_size      uint32
	Trailer_offset int32
	Scan_number    int32
	Packet_type    uint32
	Start_time     float64
	Tic            float64
	Data_offset    int64
}

const UV_SCAN_INDEX_RECORD_SIZE int64 = 40

// Record arrays over this size, and any array over a backing that prefers
// large reads, go through the batched buffer manager; the rest are served
// from a direct sub view.
const directSubViewLimit int64 = 4 << 20

// default number of consecutive records fetched per cache miss
const DEFAULT_RECORDS_PER_BATCH = 512

// RecordBufferManager serves fixed-size records from a batched cache over
// a backing that prefers large reads. A miss fetches Records_per_batch
// consecutive records in one call.
// Not safe for concurrent use; guard externally or keep single-owner.
type RecordBufferManager struct {
	reader            *MemoryReader
	record_size       int64
	record_count      int64
	Records_per_batch int64

	batch_first int64
	batch       []byte
}

func NewRecordBufferManager(reader *MemoryReader, record_size, record_count int64) *RecordBufferManager {
	return &RecordBufferManager{
		reader:            reader,
		record_size:       record_size,
		record_count:      record_count,
		Records_per_batch: DEFAULT_RECORDS_PER_BATCH,
		batch_first:       -1,
	}
}

// RecordBytes returns the raw bytes of record i, fetching a fresh batch
// on a cache miss.
func (b *RecordBufferManager) RecordBytes(i int64) ([]byte, error) {
	if i < 0 || i >= b.record_count {
		return nil, errAtOffset(ErrOutOfBounds, i*b.record_size)
	}

	if b.batch_first < 0 || i < b.batch_first || i >= b.batch_first+int64(len(b.batch))/b.record_size {
		first := i - i%b.Records_per_batch
		count := b.Records_per_batch
		if first+count > b.record_count {
			count = b.record_count - first
		}

		batch, err := b.reader.ReadBytes(first*b.record_size, count*b.record_size)
		if err != nil {
			return nil, err
		}
		b.batch_first = first
		b.batch = batch
	}

	start := (i - b.batch_first) * b.record_size
	return b.batch[start : start+b.record_size], nil
}

// ScanIndex provides random access over the scan index record array.
// Records are addressed by scan number relative to the first spectrum of
// the run.
type ScanIndex struct {
	reader         *MemoryReader
	buffer         *RecordBufferManager
	First_spectrum int32
	Count          int64
}

// OpenScanIndex maps the record array at offset. Small arrays over
// in-memory backings become a direct sub view; streamed backings that
// prefer large reads are served through a RecordBufferManager.
func OpenScanIndex(reader *MemoryReader, offset int64, first_spectrum int32, count int64) (*ScanIndex, error) {
	view, err := reader.SubView(offset, count*SCAN_INDEX_RECORD_SIZE)
	if err != nil {
		return nil, err
	}

	index := &ScanIndex{
		reader:         view,
		First_spectrum: first_spectrum,
		Count:          count,
	}

	if view.PrefersLargeReads() || count*SCAN_INDEX_RECORD_SIZE > directSubViewLimit {
		index.buffer = NewRecordBufferManager(view, SCAN_INDEX_RECORD_SIZE, count)
	}

	return index, nil
}

// Buffer exposes the interposed record buffer manager so callers can
// tune Records_per_batch; nil when the index is a direct sub view.
func (s *ScanIndex) Buffer() *RecordBufferManager {
	return s.buffer
}

// recordBytes fetches the raw 88 bytes of the record for a scan number.
func (s *ScanIndex) recordBytes(scan_number int32) ([]byte, error) {
	i := int64(scan_number - s.First_spectrum)
	if i < 0 || i >= s.Count {
		return nil, errAtOffset(ErrOutOfBounds, i)
	}

	if s.buffer != nil {
		return s.buffer.RecordBytes(i)
	}

	return s.reader.ReadBytes(i*SCAN_INDEX_RECORD_SIZE, SCAN_INDEX_RECORD_SIZE)
}

// Record decodes the full index record for a scan number.
func (s *ScanIndex) Record(scan_number int32) (ScanIndexRecord, error) {
	var record ScanIndexRecord

	b, err := s.recordBytes(scan_number)
	if err != nil {
		return record, err
	}

	record.Data_size = leUint32(b[0:])
	record.Trailer_offset = leInt32(b[4:])
	record.Scan_type_index = leInt32(b[8:])
	record.Scan_number = leInt32(b[12:])
	record.Packet_type = leUint32(b[16:])
	record.Number_of_packets = leInt32(b[20:])
	record.Start_time = leFloat64(b[24:])
	record.Tic = leFloat64(b[32:])
	record.Base_peak_intensity = leFloat64(b[40:])
	record.Base_peak_mass = leFloat64(b[48:])
	record.Low_mass = leFloat64(b[56:])
	record.High_mass = leFloat64(b[64:])
	record.Data_offset = int64(leUint32(b[72:])) | int64(leUint32(b[76:]))<<32
	record.Cycle_number = leInt32(b[80:])
	record.Reserved = leUint32(b[84:])

	return record, nil
}

// RetentionTime reads only the 8 start-time bytes of the record, skipping
// the rest of the decode.
func (s *ScanIndex) RetentionTime(scan_number int32) (float64, error) {
	i := int64(scan_number - s.First_spectrum)
	if i < 0 || i >= s.Count {
		return 0, errAtOffset(ErrOutOfBounds, i)
	}

	if s.buffer != nil {
		b, err := s.buffer.RecordBytes(i)
		if err != nil {
			return 0, err
		}
		return leFloat64(b[scanIndexStartTimeOffset:]), nil
	}

	return s.reader.Float64(i*SCAN_INDEX_RECORD_SIZE + scanIndexStartTimeOffset)
}

// UvScanIndex is the UV/analog sibling of ScanIndex.
type UvScanIndex struct {
	reader         *MemoryReader
	buffer         *RecordBufferManager
	First_spectrum int32
	Count          int64
}

func OpenUvScanIndex(reader *MemoryReader, offset int64, first_spectrum int32, count int64) (*UvScanIndex, error) {
	view, err := reader.SubView(offset, count*UV_SCAN_INDEX_RECORD_SIZE)
	if err != nil {
		return nil, err
	}

	index := &UvScanIndex{
		reader:         view,
		First_spectrum: first_spectrum,
		Count:          count,
	}

	if view.PrefersLargeReads() || count*UV_SCAN_INDEX_RECORD_SIZE > directSubViewLimit {
		index.buffer = NewRecordBufferManager(view, UV_SCAN_INDEX_RECORD_SIZE, count)
	}

	return index, nil
}

func (s *UvScanIndex) Record(scan_number int32) (UvScanIndexRecord, error) {
	var record UvScanIndexRecord

	i := int64(scan_number - s.First_spectrum)
	if i < 0 || i >= s.Count {
		return record, errAtOffset(ErrOutOfBounds, i)
	}

	var (
		b   []byte
		err error
	)
	if s.buffer != nil {
		b, err = s.buffer.RecordBytes(i)
	} else {
		b, err = s.reader.ReadBytes(i*UV_SCAN_INDEX_RECORD_SIZE, UV_SCAN_INDEX_RECORD_SIZE)
	}
	if err != nil {
		return record, err
	}

	record.Data_size = leUint32(b[0:])
	record.Trailer_offset = leInt32(b[4:])
	record.Scan_number = leInt32(b[8:])
	record.Packet_type = leUint32(b[12:])
	record.Start_time = leFloat64(b[16:])
	record.Tic = leFloat64(b[24:])
	record.Data_offset = int64(leUint32(b[32:])) | int64(leUint32(b[36:]))<<32
	return record, nil
}
