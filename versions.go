package rawfile

// The on-disk structures grew over the life of the format; each file
// carries an integer revision and every structured record declares the
// fixed byte size applicable from a given revision onwards.
// Reading is a two step affair; select the layout, read that many bytes,
// then widen into the canonical record filling post-dated fields with
// the documented defaults. See the per-record decode funcs.

type revisionLayout struct {
	Min_revision int32
	Size         int64
}

// layoutSize selects the largest Min_revision at or below revision.
// Revisions below the smallest known layout are unsupported.
func layoutSize(layouts []revisionLayout, revision int32) (int64, error) {
	if len(layouts) == 0 || revision < layouts[0].Min_revision {
		return 0, errAtRevision(ErrUnsupportedRevision, revision)
	}

	size := layouts[0].Size
	for _, layout := range layouts[1:] {
		if layout.Min_revision > revision {
			break
		}
		size = layout.Size
	}

	return size, nil
}

// RunHeader carries the whole-run summary the surrounding layers need to
// drive the scan index and the trailer; the spectrum number span, the
// filter mass precision, and the trailer event count.
type RunHeader struct {
	First_spectrum            int32
	Last_spectrum             int32
	Filter_mass_precision     int32
	Trailer_scan_events_count int32
	Low_mass                  float64
	High_mass                 float64
	Start_time                float64
	End_time                  float64
}

var runHeaderLayouts = []revisionLayout{
	{14, 16}, // spectrum span + precision + trailer count
	{25, 48}, // + mass span and time span
}

// DecodeRunHeader reads the run header record at offset.
// Files older than revision 25 carry no mass/time span; those fields
// default to zero.
func DecodeRunHeader(reader *MemoryReader, offset int64, revision int32) (RunHeader, error) {
	var hdr RunHeader

	_, err := layoutSize(runHeaderLayouts, revision)
	if err != nil {
		return hdr, err
	}

	hdr.First_spectrum, err = reader.Int32(offset)
	if err != nil {
		return hdr, errAtOffset(ErrTruncatedRecord, offset)
	}
	hdr.Last_spectrum, _ = reader.Int32(offset + 4)
	hdr.Filter_mass_precision, _ = reader.Int32(offset + 8)
	hdr.Trailer_scan_events_count, err = reader.Int32(offset + 12)
	if err != nil {
		return hdr, errAtOffset(ErrTruncatedRecord, offset)
	}

	if revision >= 25 {
		hdr.Low_mass, _ = reader.Float64(offset + 16)
		hdr.High_mass, _ = reader.Float64(offset + 24)
		hdr.Start_time, _ = reader.Float64(offset + 32)
		hdr.End_time, err = reader.Float64(offset + 40)
		if err != nil {
			return hdr, errAtOffset(ErrTruncatedRecord, offset)
		}
	}

	return hdr, nil
}
