package rawfile

// Linear-trap packets store profile points directly in mass space; the
// abscissa is base + index * spacing with no calibration polynomial and
// no per-sub-segment mass offset. Out-of-order sub-segment starts
// truncate the already-emitted tail in place rather than dropping a
// single point.

// DecodeLTProfile decodes the profile section of a linear-trap packet.
// zero_padding selects whether gaps and the trailing region fill with
// zero-intensity points or are skipped.
func DecodeLTProfile(reader *MemoryReader, offset int64, hdr *PacketHeader,
	zero_padding bool) ([]Segment, error) {

	if hdr.Num_profile_words == 0 {
		return nil, nil
	}

	section, err := reader.SubView(offset+hdr.ProfileOffset(), 4*int64(hdr.Num_profile_words))
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, hdr.Num_segments)
	pos := int64(0)

	for seg := uint32(0); seg < hdr.Num_segments; seg++ {
		var segHdr profileSegmentHeader
		segHdr.Base_abscissa, err = section.Float64(pos)
		if err != nil {
			return nil, err
		}
		segHdr.Abscissa_spacing, _ = section.Float64(pos + 8)
		segHdr.Num_sub_segments, _ = section.Uint32(pos + 16)
		segHdr.Num_expanded_words, err = section.Uint32(pos + 20)
		if err != nil {
			return nil, err
		}
		pos += profileSegmentHeaderSize

		var peaks []DataPeak
		current := uint32(0)

		massAt := func(index uint32) float64 {
			return segHdr.Base_abscissa + float64(index)*segHdr.Abscissa_spacing
		}

		for sub := uint32(0); sub < segHdr.Num_sub_segments; sub++ {
			start, err := section.Uint32(pos)
			if err != nil {
				return nil, err
			}
			count, err := section.Uint32(pos + 4)
			if err != nil {
				return nil, err
			}
			pos += 8

			if count == 0 {
				continue
			}

			if start < current {
				// rewind; drop the tail points already emitted past start
				drop := int(current - start)
				if drop > len(peaks) {
					drop = len(peaks)
				}
				peaks = peaks[:len(peaks)-drop]
				current = start
			} else if zero_padding {
				for ; current < start; current++ {
					peaks = append(peaks, DataPeak{Mass: massAt(current), Position: massAt(current)})
				}
			} else {
				current = start
			}

			samples, err := ReadArrayOf[float32](section, pos, int(count))
			if err != nil {
				return nil, err
			}
			pos += 4 * int64(count)

			// hot path; emit three points per iteration
			i := 0
			for ; i+3 <= len(samples); i += 3 {
				m0 := massAt(current)
				m1 := massAt(current + 1)
				m2 := massAt(current + 2)
				peaks = append(peaks,
					DataPeak{Mass: m0, Intensity: float64(samples[i]), Position: m0},
					DataPeak{Mass: m1, Intensity: float64(samples[i+1]), Position: m1},
					DataPeak{Mass: m2, Intensity: float64(samples[i+2]), Position: m2},
				)
				current += 3
			}
			for ; i < len(samples); i++ {
				m := massAt(current)
				peaks = append(peaks, DataPeak{Mass: m, Intensity: float64(samples[i]), Position: m})
				current++
			}
		}

		if zero_padding {
			for ; current < segHdr.Num_expanded_words; current++ {
				peaks = append(peaks, DataPeak{Mass: massAt(current), Position: massAt(current)})
			}
		}

		r := MassRange{}
		if int(seg) < len(hdr.Segment_ranges) {
			r = MassRange{
				Low:  float64(hdr.Segment_ranges[seg].Low),
				High: float64(hdr.Segment_ranges[seg].High),
			}
		}
		segments = append(segments, Segment{Range: r, Peaks: peaks})
	}

	return segments, nil
}
