package rawfile

// Chromatogram assembly over the scan index. The traces are columnar so
// they serialise straight into TileDB attributes; the struct tags drive
// the schema generation.

// Chromatogram is one trace of intensity against retention time.
type Chromatogram struct {
	Start_time []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Intensity  []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// ScanIndexTable is the columnar form of the scan index summaries; the
// cheap whole-run export the CLI writes alongside the chromatograms.
type ScanIndexTable struct {
	Scan_number         []int32   `tiledb:"dtype=int32,ftype=attr" filters:"zstd(level=16)"`
	Start_time          []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Tic                 []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Base_peak_intensity []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Base_peak_mass      []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Low_mass            []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	High_mass           []float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
	Cycle_number        []int32   `tiledb:"dtype=int32,ftype=attr" filters:"zstd(level=16)"`
	Unique_event        []int32   `tiledb:"dtype=int32,ftype=attr" filters:"zstd(level=16)"`
}

// TicChromatogram assembles the total ion current trace from the index
// summaries alone; no packet is touched.
func TicChromatogram(index *ScanIndex) (Chromatogram, error) {
	var trace Chromatogram

	trace.Start_time = make([]float64, 0, index.Count)
	trace.Intensity = make([]float64, 0, index.Count)

	for i := int64(0); i < index.Count; i++ {
		record, err := index.Record(index.First_spectrum + int32(i))
		if err != nil {
			return trace, err
		}
		trace.Start_time = append(trace.Start_time, record.Start_time)
		trace.Intensity = append(trace.Intensity, record.Tic)
	}

	return trace, nil
}

// BasePeakChromatogram assembles the base peak trace from the index
// summaries.
func BasePeakChromatogram(index *ScanIndex) (Chromatogram, error) {
	var trace Chromatogram

	trace.Start_time = make([]float64, 0, index.Count)
	trace.Intensity = make([]float64, 0, index.Count)

	for i := int64(0); i < index.Count; i++ {
		record, err := index.Record(index.First_spectrum + int32(i))
		if err != nil {
			return trace, err
		}
		trace.Start_time = append(trace.Start_time, record.Start_time)
		trace.Intensity = append(trace.Intensity, record.Base_peak_intensity)
	}

	return trace, nil
}

// XicChromatogram assembles an extracted ion trace by summing centroid
// intensities within the mass window, scan by scan.
// The packets decode through the simplified centroid path; profiles and
// labels stay untouched.
func XicChromatogram(reader *MemoryReader, index *ScanIndex, window MassRange) (Chromatogram, error) {
	var trace Chromatogram

	window.Normalise()

	trace.Start_time = make([]float64, 0, index.Count)
	trace.Intensity = make([]float64, 0, index.Count)

	for i := int64(0); i < index.Count; i++ {
		record, err := index.Record(index.First_spectrum + int32(i))
		if err != nil {
			return trace, err
		}

		hdr, err := DecodePacketHeader(reader, record.Data_offset)
		if err != nil {
			return trace, err
		}

		masses, intensities, err := DecodeCentroidsSimplified(reader, record.Data_offset, &hdr)
		if err != nil {
			return trace, err
		}

		total := 0.0
		for j, mass := range masses {
			if mass >= window.Low && mass <= window.High {
				total += float64(intensities[j])
			}
		}

		trace.Start_time = append(trace.Start_time, record.Start_time)
		trace.Intensity = append(trace.Intensity, total)
	}

	return trace, nil
}

// BuildScanIndexTable walks the index once and produces the columnar
// export table, resolving each scan to its unique event index when the
// trailer is supplied.
func BuildScanIndexTable(index *ScanIndex, trailer *TrailerScanEvents) (ScanIndexTable, error) {
	var table ScanIndexTable

	n := int(index.Count)
	table.Scan_number = make([]int32, 0, n)
	table.Start_time = make([]float64, 0, n)
	table.Tic = make([]float64, 0, n)
	table.Base_peak_intensity = make([]float64, 0, n)
	table.Base_peak_mass = make([]float64, 0, n)
	table.Low_mass = make([]float64, 0, n)
	table.High_mass = make([]float64, 0, n)
	table.Cycle_number = make([]int32, 0, n)
	table.Unique_event = make([]int32, 0, n)

	for i := int64(0); i < index.Count; i++ {
		record, err := index.Record(index.First_spectrum + int32(i))
		if err != nil {
			return table, err
		}

		table.Scan_number = append(table.Scan_number, record.Scan_number)
		table.Start_time = append(table.Start_time, record.Start_time)
		table.Tic = append(table.Tic, record.Tic)
		table.Base_peak_intensity = append(table.Base_peak_intensity, record.Base_peak_intensity)
		table.Base_peak_mass = append(table.Base_peak_mass, record.Base_peak_mass)
		table.Low_mass = append(table.Low_mass, record.Low_mass)
		table.High_mass = append(table.High_mass, record.High_mass)
		table.Cycle_number = append(table.Cycle_number, record.Cycle_number)

		unique := int32(-1)
		if trailer != nil && int(i) < len(trailer.Index_to_unique) {
			unique = int32(trailer.Index_to_unique[i])
		}
		table.Unique_event = append(table.Unique_event, unique)
	}

	return table, nil
}
