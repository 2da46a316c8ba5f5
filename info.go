package rawfile

import (
	"github.com/samber/lo"
)

// RawDetails stores the information relevant to the raw file such as the
// path location, the file revision and the size of the file in bytes.
type RawDetails struct {
	Raw_URI       string
	File_revision int32
	Size          uint64
}

// QualityInfo holds generic quality information about the contents of
// the file, not necessarily the quality of the underlying spectra.
type QualityInfo struct {
	Min_Max_Tic         []float64
	Monotonic_Times     bool
	Duplicate_Scans     bool
	Duplicates          []int32
	Consistent_Events   bool
	Centroid_Scan_Count uint64
}

// Metadata contains various metadata relevant to the raw file; counts
// per MS order and analyser, the retention time span, the unique scan
// event filters, and generic quality information.
type Metadata struct {
	Raw_Details     RawDetails
	Run             RunHeader
	Scan_Count      int64
	Ms_Order_Counts map[int]uint64
	Analyser_Counts map[string]uint64
	Unique_Filters  []string
	Time_Span       []float64
	Quality_Info    QualityInfo
}

// Info builds the whole-file summary; record counts, the analyser and
// MS order histograms, the unique filter strings and basic QA.
// The format options localise the filter strings; a zero mass precision
// defers to the precision the run header declares.
func (r *RawFile) Info(opts FormatOptions) (Metadata, error) {
	var meta Metadata

	hdr, err := r.RunHeader()
	if err != nil {
		return meta, err
	}

	index, err := r.ScanIndex()
	if err != nil {
		return meta, err
	}

	trailer, err := r.TrailerScanEvents()
	if err != nil {
		return meta, err
	}

	meta.Raw_Details = RawDetails{
		Raw_URI:       r.Uri,
		File_revision: r.Revision(),
		Size:          r.filesize,
	}
	meta.Run = hdr
	meta.Scan_Count = index.Count
	meta.Ms_Order_Counts = make(map[int]uint64)
	meta.Analyser_Counts = make(map[string]uint64)

	if opts.Mass_precision == 0 {
		if hdr.Filter_mass_precision > 0 {
			opts.Mass_precision = int(hdr.Filter_mass_precision)
		} else {
			opts.Mass_precision = DefaultFormatOptions().Mass_precision
		}
	}
	if opts.Decimal_separator == "" {
		opts.Decimal_separator = "."
	}
	if opts.List_separator == "" {
		opts.List_separator = ", "
	}

	meta.Unique_Filters = make([]string, 0, len(trailer.Unique_events))
	for _, event := range trailer.Unique_events {
		meta.Unique_Filters = append(meta.Unique_Filters, PrintFilter(event, opts))
	}

	one := uint64(1)

	var (
		tics       []float64
		times      []float64
		scans      []int32
		centroided uint64
	)

	for scan := hdr.First_spectrum; scan <= hdr.Last_spectrum; scan++ {
		record, err := index.Record(scan)
		if err != nil {
			return meta, err
		}

		tics = append(tics, record.Tic)
		times = append(times, record.Start_time)
		scans = append(scans, record.Scan_number)

		if record.IsCentroidScan() {
			centroided += one
		}

		i := int(scan - hdr.First_spectrum)
		if i < len(trailer.Index_to_unique) {
			event := trailer.Unique_events[trailer.Index_to_unique[i]]
			meta.Ms_Order_Counts[int(event.Ms_order)] += one
			meta.Analyser_Counts[AnalyserNames[event.Analyser]] += one
		}
	}

	if len(times) > 0 {
		meta.Time_Span = []float64{times[0], times[len(times)-1]}
	}

	meta.Quality_Info = buildQualityInfo(tics, times, scans, trailer, centroided)

	return meta, nil
}

// buildQualityInfo derives the generic QA indicators from one pass over
// the index summaries.
func buildQualityInfo(tics, times []float64, scans []int32,
	trailer *TrailerScanEvents, centroided uint64) QualityInfo {

	var qa QualityInfo

	if len(tics) > 0 {
		qa.Min_Max_Tic = []float64{lo.Min(tics), lo.Max(tics)}
	}

	// retention times should only ever move forward
	qa.Monotonic_Times = true
	for i := 1; i < len(times); i++ {
		if times[i] < times[i-1] {
			qa.Monotonic_Times = false
			break
		}
	}

	// duplicate scan numbers have shown up in merged acquisitions
	duplicates := lo.FindDuplicates(scans)
	qa.Duplicate_Scans = len(duplicates) > 0
	if qa.Duplicate_Scans {
		qa.Duplicates = duplicates
	} else {
		qa.Duplicates = make([]int32, 0)
	}

	qa.Consistent_Events = len(trailer.Unique_events) <= 1
	qa.Centroid_Scan_Count = centroided

	return qa
}
