package rawfile

import (
	"math"
)

// FT detectors store profile points in frequency space; masses come from
// the event calibration polynomial. The decoder reconstructs the dense
// grid, zero-padding the gaps the instrument elided, and repairs the
// computed masses so they stay strictly increasing; downstream indexing
// depends on monotonic mass.

// step applied when a computed mass would not advance the running minimum
const monotonicMassStep = 1.0e-5

// third-order calibration terms below this magnitude are dropped
const calibratorEpsilon = 1.0e-20

// profileSegmentHeader frames one segment of the profile section.
type profileSegmentHeader struct {
	Base_abscissa      float64
	Abscissa_spacing   float64
	Num_sub_segments   uint32
	Num_expanded_words uint32
}

const profileSegmentHeaderSize int64 = 24

// ftCalibration converts frequency to mass with up to four coefficients.
type ftCalibration struct {
	c1, c2, c3 float64
	use_c3     bool
}

// newFtCalibration validates the event calibrators. Profile-requested
// reads fail outright on fewer than four coefficients.
func newFtCalibration(calibrators []float64) (ftCalibration, error) {
	if len(calibrators) < 4 {
		return ftCalibration{}, ErrInsufficientCalibrators
	}

	cal := ftCalibration{c1: calibrators[2], c2: calibrators[3]}
	if len(calibrators) > 4 {
		cal.c3 = calibrators[4]
		cal.use_c3 = math.Abs(cal.c3) >= calibratorEpsilon
	}

	return cal, nil
}

func (c *ftCalibration) mass(freq, mass_offset float64) float64 {
	f2 := freq * freq
	m := c.c1/freq + c.c2/f2
	if c.use_c3 {
		m += c.c3 / (f2 * f2)
	}
	return m + mass_offset
}

// ftSegmentDecoder accumulates one segment's peaks under the monotonic
// mass rule.
type ftSegmentDecoder struct {
	header   profileSegmentHeader
	cal      ftCalibration
	peaks    []DataPeak
	current  uint32
	min_mass float64
	started  bool
}

// emit appends one peak, bumping the mass when it fails to advance.
func (d *ftSegmentDecoder) emit(index uint32, intensity float64, mass_offset float64) {
	freq := d.header.Base_abscissa + float64(index)*d.header.Abscissa_spacing
	mass := d.cal.mass(freq, mass_offset)

	if d.started && mass <= d.min_mass {
		d.min_mass += monotonicMassStep
		mass = d.min_mass
	} else {
		d.min_mass = mass
		d.started = true
	}

	d.peaks = append(d.peaks, DataPeak{
		Mass:      mass,
		Intensity: intensity,
		Position:  freq,
	})
}

// zeroFill pads [current, until) with zero-intensity points.
func (d *ftSegmentDecoder) zeroFill(until uint32, mass_offset float64) {
	for ; d.current < until; d.current++ {
		d.emit(d.current, 0, mass_offset)
	}
}

// DecodeFTProfile decodes the profile section of an FT packet.
// reference_peaks is the sorted list captured by the centroid decoder;
// profile points falling under a reference peak are flagged
// Reference|Exception and, when include_ref_peaks is false, zeroed.
func DecodeFTProfile(reader *MemoryReader, offset int64, hdr *PacketHeader,
	calibrators []float64, reference_peaks []LabelPeak, include_ref_peaks bool) ([]Segment, error) {

	cal, err := newFtCalibration(calibrators)
	if err != nil {
		return nil, err
	}

	if hdr.Num_profile_words == 0 {
		return nil, nil
	}

	section, err := reader.SubView(offset+hdr.ProfileOffset(), 4*int64(hdr.Num_profile_words))
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, hdr.Num_segments)
	refCursor := 0
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

		d := &ftSegmentDecoder{header: segHdr, cal: cal}

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

			var massOffset float64
			if hdr.FTLayout() {
				mo, err := section.Float32(pos)
				if err != nil {
					return nil, err
				}
				massOffset = float64(mo)
				pos += 4
			}

			if count == 0 {
				continue
			}

			if start < d.current {
				// out-of-order start; drop the previous point and rewind
				if len(d.peaks) > 0 {
					d.peaks = d.peaks[:len(d.peaks)-1]
				}
				d.current = start
			} else {
				d.zeroFill(start, massOffset)
			}

			samples, err := ReadArrayOf[float32](section, pos, int(count))
			if err != nil {
				return nil, err
			}
			pos += 4 * int64(count)

			firstPeak := len(d.peaks)
			for _, sample := range samples {
				d.emit(d.current, float64(sample), massOffset)
				d.current++
			}

			refCursor = tagReferencePeaks(d.peaks[firstPeak:], reference_peaks,
				refCursor, include_ref_peaks)
		}

		if d.current < segHdr.Num_expanded_words {
			d.zeroFill(segHdr.Num_expanded_words, 0)
		}

		r := MassRange{}
		if int(seg) < len(hdr.Segment_ranges) {
			r = MassRange{
				Low:  float64(hdr.Segment_ranges[seg].Low),
				High: float64(hdr.Segment_ranges[seg].High),
			}
		}
		segments = append(segments, Segment{Range: r, Peaks: d.peaks})
	}

	return segments, nil
}

// tagReferencePeaks advances the reference cursor over one sub-segment's
// emitted peaks. A reference peak inside the emitted mass range whose
// intensity dominates every emitted point marks the points under it.
func tagReferencePeaks(emitted []DataPeak, references []LabelPeak,
	cursor int, include_ref_peaks bool) int {

	if len(emitted) == 0 || cursor >= len(references) {
		return cursor
	}

	firstMass := emitted[0].Mass
	lastMass := emitted[len(emitted)-1].Mass

	for cursor < len(references) && references[cursor].Mass < firstMass {
		cursor++
	}

	for cursor < len(references) && references[cursor].Mass <= lastMass {
		ref := references[cursor]

		dominates := true
		for i := range emitted {
			if float64(ref.Intensity) < emitted[i].Intensity {
				dominates = false
				break
			}
		}

		if dominates {
			halfWidth := float64(ref.Resolution) / 2
			for i := range emitted {
				under := halfWidth > 0 && math.Abs(emitted[i].Mass-ref.Mass) <= halfWidth
				if !under && halfWidth == 0 {
					// no declared width; take the bracketing pair
					under = i+1 < len(emitted) &&
						emitted[i].Mass <= ref.Mass && ref.Mass <= emitted[i+1].Mass ||
						i > 0 &&
							emitted[i-1].Mass <= ref.Mass && ref.Mass <= emitted[i].Mass
				}
				if under {
					emitted[i].Options |= PEAK_REFERENCE | PEAK_EXCEPTION
					if !include_ref_peaks {
						emitted[i].Intensity = 0
					}
				}
			}
		}

		cursor++
	}

	return cursor
}
