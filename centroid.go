package rawfile

import (
	"sort"
)

// The centroid section carries, per segment, a u32 peak count followed by
// the centroid records; {f64 mass, f32 intensity} for accurate-mass
// packets, {f32 mass, f32 intensity} legacy. The non-default feature
// words and the expansion (width) block follow the last segment.

type accurateCentroid struct {
	Mass      float64
	Intensity float32
}

type legacyCentroid struct {
	Mass      float32
	Intensity float32
}

// DecodeCentroids decodes the centroid blob of a packet.
// Every peak starts from the default option set; non-default feature
// words override flags and charge per peak. Peaks flagged
// Reference|Exception are captured into Reference_peaks and, when
// include_ref_peaks is false, suppressed from the label list with their
// intensity forced to zero.
func DecodeCentroids(reader *MemoryReader, offset int64, hdr *PacketHeader, include_ref_peaks bool) ([]LabelPeak, []LabelPeak, []float32, error) {
	if hdr.Num_centroid_words == 0 {
		return nil, nil, nil, nil
	}

	section, err := reader.SubView(offset+hdr.CentroidOffset(), 4*int64(hdr.Num_centroid_words))
	if err != nil {
		return nil, nil, nil, err
	}

	defaults := hdr.DefaultOptions()
	accurate := hdr.AccurateMasses() && !hdr.LegacyMasses()

	var (
		peaks   []LabelPeak
		options []PeakOptions
	)

	pos := int64(0)
	for seg := uint32(0); seg < hdr.Num_segments; seg++ {
		count, err := section.Uint32(pos)
		if err != nil {
			return nil, nil, nil, err
		}
		pos += 4

		if accurate {
			records, err := ReadArrayOf[accurateCentroid](section, pos, int(count))
			if err != nil {
				return nil, nil, nil, err
			}
			pos += 12 * int64(count)
			for _, rec := range records {
				peaks = append(peaks, LabelPeak{Mass: rec.Mass, Intensity: rec.Intensity})
				options = append(options, defaults)
			}
		} else {
			records, err := ReadArrayOf[legacyCentroid](section, pos, int(count))
			if err != nil {
				return nil, nil, nil, err
			}
			pos += 8 * int64(count)
			for _, rec := range records {
				peaks = append(peaks, LabelPeak{Mass: float64(rec.Mass), Intensity: rec.Intensity})
				options = append(options, defaults)
			}
		}
	}

	// non-default feature words
	features, err := ReadArrayOf[uint32](reader, offset+hdr.FeatureOffset(),
		int(hdr.Num_non_default_feature_words))
	if err != nil {
		return nil, nil, nil, err
	}

	for _, word := range features {
		i := int(word & featurePeakIndexMask)
		if i >= len(peaks) {
			continue
		}
		options[i] |= featureWordOptions(word)
		peaks[i].Charge = uint8(word >> featureChargeShift)
		if options[i]&(PEAK_REFERENCE|PEAK_EXCEPTION) != 0 && !include_ref_peaks {
			peaks[i].Intensity = 0
		}
	}

	// expansion block; a has-widths marker then one f32 per peak
	var widths []float32
	if hdr.Num_expansion_words > 0 {
		marker, err := reader.Int32(offset + hdr.ExpansionOffset())
		if err != nil {
			return nil, nil, nil, err
		}
		if marker != 0 {
			widths, err = ReadArrayOf[float32](reader, offset+hdr.ExpansionOffset()+4, len(peaks))
			if err != nil {
				return nil, nil, nil, err
			}
			for i := range peaks {
				peaks[i].Resolution = widths[i]
			}
		}
	}

	for i := range peaks {
		peaks[i].Flags = uint8(options[i])
		if options[i]&(PEAK_REFERENCE|PEAK_EXCEPTION) != 0 && !include_ref_peaks {
			peaks[i].Intensity = 0
		}
	}

	// capture reference peaks, then drop them from the labels when the
	// caller did not ask for them
	var references []LabelPeak
	for i := range peaks {
		if options[i]&(PEAK_REFERENCE|PEAK_EXCEPTION) != 0 {
			references = append(references, peaks[i])
		}
	}
	sort.Slice(references, func(i, j int) bool {
		return references[i].Mass < references[j].Mass
	})

	if !include_ref_peaks && len(references) > 0 {
		kept := peaks[:0]
		for i := range peaks {
			if options[i]&(PEAK_REFERENCE|PEAK_EXCEPTION) == 0 {
				kept = append(kept, peaks[i])
			}
		}
		peaks = kept
	}

	return peaks, references, widths, nil
}

// DecodeCentroidsSimplified is the fast path; masses and intensities
// only, skipping label and flag assembly.
func DecodeCentroidsSimplified(reader *MemoryReader, offset int64, hdr *PacketHeader) ([]float64, []float32, error) {
	if hdr.Num_centroid_words == 0 {
		return nil, nil, nil
	}

	section, err := reader.SubView(offset+hdr.CentroidOffset(), 4*int64(hdr.Num_centroid_words))
	if err != nil {
		return nil, nil, err
	}

	accurate := hdr.AccurateMasses() && !hdr.LegacyMasses()

	var (
		masses      []float64
		intensities []float32
	)

	pos := int64(0)
	for seg := uint32(0); seg < hdr.Num_segments; seg++ {
		count, err := section.Uint32(pos)
		if err != nil {
			return nil, nil, err
		}
		pos += 4

		if accurate {
			records, err := ReadArrayOf[accurateCentroid](section, pos, int(count))
			if err != nil {
				return nil, nil, err
			}
			pos += 12 * int64(count)
			for _, rec := range records {
				masses = append(masses, rec.Mass)
				intensities = append(intensities, rec.Intensity)
			}
		} else {
			records, err := ReadArrayOf[legacyCentroid](section, pos, int(count))
			if err != nil {
				return nil, nil, err
			}
			pos += 8 * int64(count)
			for _, rec := range records {
				masses = append(masses, float64(rec.Mass))
				intensities = append(intensities, rec.Intensity)
			}
		}
	}

	return masses, intensities, nil
}
