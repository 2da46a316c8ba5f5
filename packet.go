package rawfile

// A packet is the bit-packed record holding one scan's spectral data.
// Eight header words and a segment mass-range table define the byte
// offsets of six word-aligned inner sections; the specialised decoders
// each consume one of them.
//
//	u32[8] header
//	(f32 low, f32 high) x num_segments
//	profile | centroid | non-default features | expansion | noise | debug

// PeakOptions is the per-peak flag bitset.
type PeakOptions uint8

const (
	PEAK_FRAGMENTED PeakOptions = 1 << iota
	PEAK_MERGED
	PEAK_EXCEPTION
	PEAK_REFERENCE
	PEAK_MODIFIED
	PEAK_SATURATED
)

// DataPeak is one profile point. Position keeps the pre-calibration
// abscissa; frequency for FT detectors, the mass itself otherwise.
type DataPeak struct {
	Mass      float64
	Intensity float64
	Position  float64
	Options   PeakOptions
}

// LabelPeak is one centroid with its annotation fields.
type LabelPeak struct {
	Mass       float64
	Intensity  float32
	Resolution float32
	Charge     uint8
	Flags      uint8
}

type NoiseAndBaseline struct {
	Mass     float32
	Noise    float32
	Baseline float32
}

// SegmentRange is the packed f32 pair of the segment table.
type SegmentRange struct {
	Low  float32
	High float32
}

// Segment is one contiguous mass range of decoded profile points.
type Segment struct {
	Range MassRange
	Peaks []DataPeak
}

// Packet is the decoded form of one scan's spectrum record.
type Packet struct {
	Header          PacketHeader
	Segments        []Segment
	Label_peaks     []LabelPeak
	Reference_peaks []LabelPeak
	Widths          []float32
	Noise           []NoiseAndBaseline
	Extended        ExtendedData
}

// PacketHeader mirrors the eight leading words plus the segment table.
type PacketHeader struct {
	Num_segments                  uint32
	Num_profile_words             uint32
	Num_centroid_words            uint32
	Default_feature_word          uint32
	Num_non_default_feature_words uint32
	Num_expansion_words           uint32
	Num_noise_info_words          uint32
	Num_debug_info_words          uint32

	Segment_ranges []SegmentRange
}

// Decoding switches carried by the default feature word.
const (
	FEATURE_LEGACY_MASSES   uint32 = 0x40
	FEATURE_FT_LAYOUT       uint32 = 0x80
	FEATURE_ACCURATE_MASS   uint32 = 0x10000
	FEATURE_EXPANDED_LABELS uint32 = 0x20000
)

// Default peak options and per-peak overrides live in bits 19..23; the
// non-default feature words carry the peak index in the low 18 bits and
// the charge state in the high byte.
const (
	featureFlagException  uint32 = 1 << 19
	featureFlagReference  uint32 = 1 << 20
	featureFlagMerged     uint32 = 1 << 21
	featureFlagFragmented uint32 = 1 << 22
	featureFlagModified   uint32 = 1 << 23

	featurePeakIndexMask uint32 = 0x3FFFF
	featureChargeShift          = 24
)

// featureWordOptions expands bits 19..23 into a PeakOptions set.
func featureWordOptions(word uint32) PeakOptions {
	var options PeakOptions

	if word&featureFlagException != 0 {
		options |= PEAK_EXCEPTION
	}
	if word&featureFlagReference != 0 {
		options |= PEAK_REFERENCE
	}
	if word&featureFlagMerged != 0 {
		options |= PEAK_MERGED
	}
	if word&featureFlagFragmented != 0 {
		options |= PEAK_FRAGMENTED
	}
	if word&featureFlagModified != 0 {
		options |= PEAK_MODIFIED
	}

	return options
}

func (h *PacketHeader) LegacyMasses() bool {
	return h.Default_feature_word&FEATURE_LEGACY_MASSES != 0
}

func (h *PacketHeader) AccurateMasses() bool {
	return h.Default_feature_word&FEATURE_ACCURATE_MASS != 0
}

func (h *PacketHeader) FTLayout() bool {
	return h.Default_feature_word&FEATURE_FT_LAYOUT != 0
}

func (h *PacketHeader) ExpandedLabels() bool {
	return h.Default_feature_word&FEATURE_EXPANDED_LABELS != 0
}

// DefaultOptions is the peak option set every peak starts from.
func (h *PacketHeader) DefaultOptions() PeakOptions {
	return featureWordOptions(h.Default_feature_word)
}

// header words plus the segment range table
func (h *PacketHeader) headerSize() int64 {
	return 32 + 8*int64(h.Num_segments)
}

// Section byte offsets relative to the packet start, in declared order.

func (h *PacketHeader) ProfileOffset() int64 {
	return h.headerSize()
}

func (h *PacketHeader) CentroidOffset() int64 {
	return h.ProfileOffset() + 4*int64(h.Num_profile_words)
}

func (h *PacketHeader) FeatureOffset() int64 {
	return h.CentroidOffset() + 4*int64(h.Num_centroid_words)
}

func (h *PacketHeader) ExpansionOffset() int64 {
	return h.FeatureOffset() + 4*int64(h.Num_non_default_feature_words)
}

func (h *PacketHeader) NoiseOffset() int64 {
	return h.ExpansionOffset() + 4*int64(h.Num_expansion_words)
}

func (h *PacketHeader) DebugOffset() int64 {
	return h.NoiseOffset() + 4*int64(h.Num_noise_info_words)
}

// TotalSize is the packet byte length implied by the header.
func (h *PacketHeader) TotalSize() int64 {
	return h.DebugOffset() + 4*int64(h.Num_debug_info_words)
}

// DecodePacketHeader reads the eight header words and the segment table.
func DecodePacketHeader(reader *MemoryReader, offset int64) (PacketHeader, error) {
	var hdr PacketHeader

	words, err := ReadArrayOf[uint32](reader, offset, 8)
	if err != nil {
		return hdr, errAtOffset(ErrTruncatedRecord, offset)
	}

	hdr.Num_segments = words[0]
	hdr.Num_profile_words = words[1]
	hdr.Num_centroid_words = words[2]
	hdr.Default_feature_word = words[3]
	hdr.Num_non_default_feature_words = words[4]
	hdr.Num_expansion_words = words[5]
	hdr.Num_noise_info_words = words[6]
	hdr.Num_debug_info_words = words[7]

	hdr.Segment_ranges, err = ReadArrayOf[SegmentRange](reader, offset+32, int(hdr.Num_segments))
	if err != nil {
		return hdr, errAtOffset(ErrTruncatedRecord, offset+32)
	}

	return hdr, nil
}

// PacketSize reports the total byte size of the packet at offset without
// decoding any section.
func PacketSize(reader *MemoryReader, offset int64) (int64, error) {
	hdr, err := DecodePacketHeader(reader, offset)
	if err != nil {
		return 0, err
	}
	return hdr.TotalSize(), nil
}

// decodeNoise reads the noise/baseline triples section.
func decodeNoise(reader *MemoryReader, offset int64, hdr *PacketHeader) ([]NoiseAndBaseline, error) {
	count := int(4 * hdr.Num_noise_info_words / 12)
	if count == 0 {
		return nil, nil
	}
	return ReadArrayOf[NoiseAndBaseline](reader, offset+hdr.NoiseOffset(), count)
}
