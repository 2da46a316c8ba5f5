package rawfile

// MassRange is an inclusive mass window. An empty (zero) range reads as
// "any mass".
type MassRange struct {
	Low  float64
	High float64
}

// Normalise swaps the bounds when stored high-first.
func (r *MassRange) Normalise() {
	if r.Low > r.High {
		r.Low, r.High = r.High, r.Low
	}
}

// Mass tolerances used by the event ordering. All mass comparisons within
// one ordering pass use the same tolerance so the relation stays total.
const (
	MASS_TOLERANCE           float64 = 1.0e-6
	VOLTAGE_TOLERANCE        float64 = 0.01
	DEPENDENT_MASS_TOLERANCE float64 = 0.2
)

// ScanEvent is the canonical record of one scanning method; the analyser,
// polarity, activation chain, mass ranges, voltage features, and the
// categorical/boolean flag surface. Events are immutable once decoded or
// parsed; the few Set* methods rebuild dependent state and exist for the
// filter parser.
type ScanEvent struct {
	Analyser        MassAnalyser
	Polarity        Polarity
	Scan_mode       ScanMode
	Scan_data_type  ScanDataType
	Ms_order        MsOrder
	Sector_scan     SectorScan
	Free_region     FreeRegion
	Ionization_mode IonizationMode
	Accurate_mass   AccurateMass

	Detector_state TriState
	Detector_value float64

	Turbo_scan              TriState
	Lock                    TriState
	Multiplex               TriState
	Enhanced                TriState
	Ultra                   TriState
	Wideband                TriState
	Supplemental_activation TriState
	Multi_state_activation  TriState
	Corona                  TriState
	Photo_ionization        TriState
	Dependent               TriState
	Param_a                 TriState
	Param_b                 TriState
	Param_f                 TriState
	Param_r                 TriState
	Param_v                 TriState
	Sps_multi_notch         TriState

	// Letter flag bitsets. A clear applied bit reads as "any"; applied with
	// the flag clear is an explicit off.
	Lower_case_flags   uint16
	Lower_case_applied uint16
	Upper_case_flags   uint32
	Upper_case_applied uint32

	// Dissociation values; the value is significant only when the matching
	// type is on.
	Mpd_type  TriState
	Ecd_type  TriState
	Pqd_type  TriState
	Etd_type  TriState
	Hcd_type  TriState
	Mpd_value float64
	Ecd_value float64
	Pqd_value float64
	Etd_value float64
	Hcd_value float64

	Source_fragmentation      TriState
	Source_fragmentation_type VoltageType
	Compensation_voltage      TriState
	Compensation_voltage_type VoltageType

	// Flat voltage buffer; single/ramp values for source fragmentation
	// first, then the same for compensation voltage, then one entry per
	// mass range for SIM.
	Source_fragmentations []float64

	Reactions                   []Reaction
	Mass_ranges                 []MassRange
	Source_fragmentation_ranges []MassRange
	Mass_calibrators            []float64

	// Packed {segment:i16 high, event:u16 low}; -1 reads as "any".
	Scan_type_index int32

	Name string

	// SIM compensation voltage validity byte. Bit 1 marks the first SIM
	// entry CV-valid; assigning a source CID clears the whole byte.
	sim_cv_valid uint8
}

// NewScanEvent returns an event with every categorical field at its
// "any" sentinel, which is what the filter parser starts from.
func NewScanEvent() *ScanEvent {
	return &ScanEvent{
		Analyser:        ANALYSER_ANY,
		Polarity:        POLARITY_ANY,
		Scan_mode:       SCAN_MODE_ANY,
		Scan_data_type:  SCAN_DATA_ANY,
		Ms_order:        MS_ORDER_ANY,
		Sector_scan:     SECTOR_SCAN_ANY,
		Free_region:     FREE_REGION_ANY,
		Ionization_mode: IONIZATION_ANY,
		Accurate_mass:   ACCURATE_MASS_ANY,

		Detector_state: TRI_ANY,

		Turbo_scan:              TRI_ANY,
		Lock:                    TRI_ANY,
		Multiplex:               TRI_ANY,
		Enhanced:                TRI_ANY,
		Ultra:                   TRI_ANY,
		Wideband:                TRI_ANY,
		Supplemental_activation: TRI_ANY,
		Multi_state_activation:  TRI_ANY,
		Corona:                  TRI_ANY,
		Photo_ionization:        TRI_ANY,
		Dependent:               TRI_ANY,
		Param_a:                 TRI_ANY,
		Param_b:                 TRI_ANY,
		Param_f:                 TRI_ANY,
		Param_r:                 TRI_ANY,
		Param_v:                 TRI_ANY,
		Sps_multi_notch:         TRI_ANY,

		Mpd_type: TRI_ANY,
		Ecd_type: TRI_ANY,
		Pqd_type: TRI_ANY,
		Etd_type: TRI_ANY,
		Hcd_type: TRI_ANY,

		Source_fragmentation:      TRI_ANY,
		Source_fragmentation_type: VOLTAGE_ANY,
		Compensation_voltage:      TRI_ANY,
		Compensation_voltage_type: VOLTAGE_ANY,

		Scan_type_index: -1,
	}
}

// SetSimSourceCid records a per-range source CID energy while in SIM mode.
// Note this clears the whole CV validity byte, not just bit 1; the first
// SIM entry is considered CV-valid only after an explicit assignment.
func (e *ScanEvent) SetSimSourceCid(slot int, energy float64) {
	for len(e.Source_fragmentations) <= slot {
		e.Source_fragmentations = append(e.Source_fragmentations, 0)
	}
	e.Source_fragmentations[slot] = energy
	e.sim_cv_valid = 0
}

// SetSimCompensationVoltage marks the first SIM entry CV-valid and stores
// the voltage.
func (e *ScanEvent) SetSimCompensationVoltage(slot int, voltage float64) {
	for len(e.Source_fragmentations) <= slot {
		e.Source_fragmentations = append(e.Source_fragmentations, 0)
	}
	e.Source_fragmentations[slot] = voltage
	e.sim_cv_valid |= 0x2
}

// SimCompensationVoltageValid tests bit 1 of the validity byte only.
func (e *ScanEvent) SimCompensationVoltageValid() bool {
	return e.sim_cv_valid&0x2 != 0
}

// Fixed byte sizes of the on-disk scan event shadow per file revision.
var scanEventLayouts = []revisionLayout{
	{14, 8},
	{25, 20},
	{31, 28},
	{48, 32},
	{51, 36},
	{54, 56},
	{62, 72},
	{63, 76},
	{65, 96},
}

// ScanEventSize returns the total byte size of the scan event record at
// offset, fixed shadow plus the variable tail, without materialising it.
func ScanEventSize(reader *MemoryReader, offset int64, revision int32) (int64, error) {
	_, consumed, err := DecodeScanEvent(reader, offset, revision)
	return consumed, err
}

// DecodeScanEvent reads the scan event record at offset and widens it to
// the canonical record. Fields introduced after the file revision receive
// the documented defaults, which NewScanEvent already carries; decoding
// only overwrites what the file actually stores.
// Returns the event and the total byte count consumed.
func DecodeScanEvent(reader *MemoryReader, offset int64, revision int32) (*ScanEvent, int64, error) {
	size, err := layoutSize(scanEventLayouts, revision)
	if err != nil {
		return nil, 0, err
	}

	shadow, err := reader.ReadBytes(offset, size)
	if err != nil {
		return nil, 0, errAtOffset(ErrTruncatedRecord, offset)
	}

	event := NewScanEvent()

	event.Polarity = anyPolarity(shadow[0])
	event.Scan_mode = anyScanMode(shadow[1])
	event.Ms_order = anyMsOrder(int8(shadow[2]))
	event.Scan_data_type = anyScanDataType(shadow[3])
	event.Turbo_scan = anyTri(shadow[4])
	event.Dependent = anyTri(shadow[5])

	if revision >= 25 {
		event.Ionization_mode = anyIonization(shadow[8])
		event.Corona = anyTri(shadow[9])
		event.Detector_state = anyTri(shadow[10])
		event.Detector_value = leFloat64(shadow[12:])
	}

	if revision >= 31 {
		event.Source_fragmentation = anyTri(shadow[20])
		event.Source_fragmentation_type = anyVoltageType(shadow[21])
		event.Scan_type_index = leInt32(shadow[24:])
	}

	if revision >= 48 {
		event.Wideband = anyTri(shadow[28])
	}

	if revision >= 51 {
		event.Accurate_mass = anyAccurateMass(shadow[32])
	}

	if revision >= 54 {
		event.Analyser = anyAnalyser(shadow[36])
		event.Sector_scan = anySectorScan(shadow[37])
		event.Lock = anyTri(shadow[38])
		event.Free_region = anyFreeRegion(shadow[39])
		event.Ultra = anyTri(shadow[40])
		event.Enhanced = anyTri(shadow[41])
		event.Mpd_type = anyTri(shadow[42])
		event.Ecd_type = anyTri(shadow[43])
		event.Photo_ionization = anyTri(shadow[44])
		event.Mpd_value = float64(leFloat32(shadow[48:]))
		event.Ecd_value = float64(leFloat32(shadow[52:]))
	}

	if revision >= 62 {
		event.Pqd_type = anyTri(shadow[56])
		event.Etd_type = anyTri(shadow[57])
		event.Hcd_type = anyTri(shadow[58])
		event.Pqd_value = float64(leFloat32(shadow[60:]))
		event.Etd_value = float64(leFloat32(shadow[64:]))
		event.Hcd_value = float64(leFloat32(shadow[68:]))
	}

	if revision >= 63 {
		event.Supplemental_activation = anyTri(shadow[72])
		event.Multi_state_activation = anyTri(shadow[73])
		event.Compensation_voltage = anyTri(shadow[74])
		event.Compensation_voltage_type = anyVoltageType(shadow[75])
	}

	if revision >= 65 {
		event.Multiplex = anyTri(shadow[76])
		event.Param_a = anyTri(shadow[77])
		event.Param_b = anyTri(shadow[78])
		event.Param_f = anyTri(shadow[79])
		event.Param_r = anyTri(shadow[80])
		event.Param_v = anyTri(shadow[81])
		event.Sps_multi_notch = anyTri(shadow[82])
		event.Lower_case_flags = leUint16(shadow[84:])
		event.Lower_case_applied = leUint16(shadow[86:])
		event.Upper_case_flags = leUint32(shadow[88:])
		event.Upper_case_applied = leUint32(shadow[92:])
	}

	// variable tail
	pos := offset + size

	nreactions, err := reader.Uint32(pos)
	if err != nil {
		return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
	}
	pos += 4

	event.Reactions = make([]Reaction, 0, nreactions)
	for i := uint32(0); i < nreactions; i++ {
		reaction, consumed, err := decodeReaction(reader, pos, revision)
		if err != nil {
			return nil, 0, err
		}
		event.Reactions = append(event.Reactions, reaction)
		pos += consumed
	}

	nranges, err := reader.Int32(pos)
	if err != nil {
		return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
	}
	pos += 4

	event.Mass_ranges, err = ReadArrayOf[MassRange](reader, pos, int(nranges))
	if err != nil {
		return nil, 0, err
	}
	pos += 16 * int64(nranges)
	for i := range event.Mass_ranges {
		event.Mass_ranges[i].Normalise()
	}

	var consumed int64
	event.Mass_calibrators, consumed, err = reader.ReadFloat64Vector(pos)
	if err != nil {
		return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
	}
	pos += consumed

	event.Source_fragmentations, consumed, err = reader.ReadFloat64Vector(pos)
	if err != nil {
		return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
	}
	pos += consumed

	if revision >= 65 {
		nsfr, err := reader.Int32(pos)
		if err != nil {
			return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
		}
		pos += 4

		event.Source_fragmentation_ranges, err = ReadArrayOf[MassRange](reader, pos, int(nsfr))
		if err != nil {
			return nil, 0, err
		}
		pos += 16 * int64(nsfr)
		for i := range event.Source_fragmentation_ranges {
			event.Source_fragmentation_ranges[i].Normalise()
		}

		event.Name, consumed, err = reader.ReadString(pos)
		if err != nil {
			return nil, 0, errAtOffset(ErrTruncatedRecord, pos)
		}
		pos += consumed
	}

	return event, pos - offset, nil
}

// small comparison helpers shared by the ordering

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

func cmpTolerance(a, b, tolerance float64) int {
	d := a - b
	if d < -tolerance {
		return -1
	}
	if d > tolerance {
		return 1
	}
	return 0
}

func compareMassRanges(a, b []MassRange, tolerance float64) int {
	if c := cmpInt(len(a), len(b)); c != 0 {
		return c
	}
	for i := range a {
		if c := cmpTolerance(a[i].Low, b[i].Low, tolerance); c != 0 {
			return c
		}
		if c := cmpTolerance(a[i].High, b[i].High, tolerance); c != 0 {
			return c
		}
	}
	return 0
}

// Compare is the exact total ordering; mass tolerance 1e-6 throughout.
// The ordering doubles as equality for deduplication; a == b iff
// Compare(a, b) == 0.
func (e *ScanEvent) Compare(o *ScanEvent) int {
	return e.compare(o, MASS_TOLERANCE)
}

// CompareSmart relaxes the mass tolerance by a caller supplied factor.
// Dependent scans cap the relaxed tolerance at 0.2.
func (e *ScanEvent) CompareSmart(o *ScanEvent, factor float64) int {
	tolerance := MASS_TOLERANCE * factor
	if e.Dependent == TRI_ON && tolerance > DEPENDENT_MASS_TOLERANCE {
		tolerance = DEPENDENT_MASS_TOLERANCE
	}
	return e.compare(o, tolerance)
}

func (e *ScanEvent) compare(o *ScanEvent, tolerance float64) int {
	// part 1; the cheap categorical fields
	if c := cmpInt(int(e.Analyser), int(o.Analyser)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Polarity), int(o.Polarity)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Ms_order), int(o.Ms_order)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Scan_data_type), int(o.Scan_data_type)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Scan_mode), int(o.Scan_mode)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Sector_scan), int(o.Sector_scan)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Ionization_mode), int(o.Ionization_mode)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Detector_state), int(o.Detector_state)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Dependent), int(o.Dependent)); c != 0 {
		return c
	}

	if c := compareReactions(e.Reactions, o.Reactions, tolerance); c != 0 {
		return c
	}
	if c := compareMassRanges(e.Mass_ranges, o.Mass_ranges, tolerance); c != 0 {
		return c
	}
	if c := compareMassRanges(e.Source_fragmentation_ranges, o.Source_fragmentation_ranges, tolerance); c != 0 {
		return c
	}

	if c := cmpInt(int(e.Source_fragmentation_type), int(o.Source_fragmentation_type)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Compensation_voltage_type), int(o.Compensation_voltage_type)); c != 0 {
		return c
	}
	if c := cmpInt(len(e.Source_fragmentations), len(o.Source_fragmentations)); c != 0 {
		return c
	}
	for i := range e.Source_fragmentations {
		if c := cmpTolerance(e.Source_fragmentations[i], o.Source_fragmentations[i], VOLTAGE_TOLERANCE); c != 0 {
			return c
		}
	}

	// analyser family flags
	if c := cmpInt(int(e.Enhanced), int(o.Enhanced)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Ultra), int(o.Ultra)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Wideband), int(o.Wideband)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Supplemental_activation), int(o.Supplemental_activation)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Multi_state_activation), int(o.Multi_state_activation)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Corona), int(o.Corona)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Multiplex), int(o.Multiplex)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Param_a), int(o.Param_a)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Param_b), int(o.Param_b)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Param_f), int(o.Param_f)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Param_r), int(o.Param_r)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Param_v), int(o.Param_v)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Sps_multi_notch), int(o.Sps_multi_notch)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Free_region), int(o.Free_region)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Accurate_mass), int(o.Accurate_mass)); c != 0 {
		return c
	}

	// dissociation types; values matter only when the type is on
	type dissociation struct {
		a_type, b_type   TriState
		a_value, b_value float64
	}
	pairs := []dissociation{
		{e.Mpd_type, o.Mpd_type, e.Mpd_value, o.Mpd_value},
		{e.Ecd_type, o.Ecd_type, e.Ecd_value, o.Ecd_value},
		{e.Pqd_type, o.Pqd_type, e.Pqd_value, o.Pqd_value},
		{e.Etd_type, o.Etd_type, e.Etd_value, o.Etd_value},
		{e.Hcd_type, o.Hcd_type, e.Hcd_value, o.Hcd_value},
	}
	for _, p := range pairs {
		if c := cmpInt(int(p.a_type), int(p.b_type)); c != 0 {
			return c
		}
		if p.a_type == TRI_ON {
			if c := cmpTolerance(p.a_value, p.b_value, VOLTAGE_TOLERANCE); c != 0 {
				return c
			}
		}
	}

	if c := cmpInt(int(e.Photo_ionization), int(o.Photo_ionization)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Scan_type_index), int(o.Scan_type_index)); c != 0 {
		return c
	}
	if e.Name != o.Name {
		if e.Name < o.Name {
			return -1
		}
		return 1
	}

	if c := cmpInt(int(e.Lock), int(o.Lock)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Turbo_scan), int(o.Turbo_scan)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Upper_case_flags), int(o.Upper_case_flags)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Upper_case_applied), int(o.Upper_case_applied)); c != 0 {
		return c
	}
	if c := cmpInt(int(e.Lower_case_flags), int(o.Lower_case_flags)); c != 0 {
		return c
	}
	return cmpInt(int(e.Lower_case_applied), int(o.Lower_case_applied))
}

// SortScanEvents sorts events in place under the exact ordering.
// The downstream unique-event indices key into the exact permutation a
// median-of-three quicksort with an insertion sort fallback for short runs
// produces, so the algorithm is fixed rather than delegated to sort.Slice.
func SortScanEvents(events []*ScanEvent) {
	quicksortEvents(events, 0, len(events)-1)
}

const insertionSortThreshold = 8

func quicksortEvents(events []*ScanEvent, lo, hi int) {
	for hi-lo+1 > insertionSortThreshold {
		p := partitionEvents(events, lo, hi)
		// recurse into the smaller side, loop on the larger
		if p-lo < hi-p {
			quicksortEvents(events, lo, p-1)
			lo = p + 1
		} else {
			quicksortEvents(events, p+1, hi)
			hi = p - 1
		}
	}
	insertionSortEvents(events, lo, hi)
}

func insertionSortEvents(events []*ScanEvent, lo, hi int) {
	for i := lo + 1; i <= hi; i++ {
		for j := i; j > lo && events[j].Compare(events[j-1]) < 0; j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

// partitionEvents pivots on the median of first, middle, and last.
func partitionEvents(events []*ScanEvent, lo, hi int) int {
	mid := lo + (hi-lo)/2
	if events[mid].Compare(events[lo]) < 0 {
		events[mid], events[lo] = events[lo], events[mid]
	}
	if events[hi].Compare(events[lo]) < 0 {
		events[hi], events[lo] = events[lo], events[hi]
	}
	if events[hi].Compare(events[mid]) < 0 {
		events[hi], events[mid] = events[mid], events[hi]
	}

	pivot := events[mid]
	events[mid], events[hi-1] = events[hi-1], events[mid]

	i := lo
	j := hi - 1
	for {
		for i++; events[i].Compare(pivot) < 0; i++ {
		}
		for j--; pivot.Compare(events[j]) < 0; j-- {
		}
		if i >= j {
			break
		}
		events[i], events[j] = events[j], events[i]
	}

	events[i], events[hi-1] = events[hi-1], events[i]
	return i
}
