package rawfile

import (
	"errors"
	"testing"
)

// buildCentroidPacket constructs a one-segment accurate-mass packet with
// five centroids followed by the given non-default feature words.
func buildCentroidPacket(defaultWord uint32, featureWords []uint32) []byte {
	w := &binBuf{}

	ncentroid := uint32(5)
	centroidWords := (4 + ncentroid*12) / 4

	w.u32(1)              // segments
	w.u32(0)              // profile words
	w.u32(centroidWords)  // centroid words
	w.u32(defaultWord)    // default feature word
	w.u32(uint32(len(featureWords)))
	w.u32(0) // expansion words
	w.u32(0) // noise words
	w.u32(0) // debug words

	w.f32(100).f32(1000) // segment range

	w.u32(ncentroid)
	for i := uint32(0); i < ncentroid; i++ {
		w.f64(float64(100 * (i + 1)))
		w.f32(float32(10 * (i + 1)))
	}

	for _, word := range featureWords {
		w.u32(word)
	}

	return w.b
}

func TestPacketSectionConservation(t *testing.T) {
	raw := buildCentroidPacket(FEATURE_ACCURATE_MASS, []uint32{3})
	reader := NewMemoryReader(raw)

	size, err := PacketSize(reader, 0)
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(len(raw)) {
		t.Fatalf("PacketSize = %d, buffer = %d", size, len(raw))
	}
}

func TestCentroidNonDefaultFeatures(t *testing.T) {
	defaultWord := FEATURE_ACCURATE_MASS | featureFlagReference
	feature := uint32(3) | featureFlagException | featureFlagMerged | 2<<featureChargeShift

	raw := buildCentroidPacket(defaultWord, []uint32{feature})

	peaks, references, _, err := DecodeCentroids(NewMemoryReader(raw), 0, mustHeader(t, raw), true)
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 5 {
		t.Fatalf("peaks = %d", len(peaks))
	}

	got := PeakOptions(peaks[3].Flags)
	want := PEAK_REFERENCE | PEAK_EXCEPTION | PEAK_MERGED
	if got != want {
		t.Errorf("peak 3 options = %b, want %b", got, want)
	}
	if peaks[3].Charge != 2 {
		t.Errorf("peak 3 charge = %d", peaks[3].Charge)
	}
	if peaks[3].Intensity != 40 {
		t.Errorf("peak 3 intensity = %v; requested reference peaks keep intensity", peaks[3].Intensity)
	}

	// the default word flags every peak Reference
	if len(references) != 5 {
		t.Errorf("reference peaks = %d", len(references))
	}
}

func TestCentroidReferenceSuppression(t *testing.T) {
	// defaults carry no flags; peak 1 is marked Reference through a
	// feature word
	feature := uint32(1) | featureFlagReference

	raw := buildCentroidPacket(FEATURE_ACCURATE_MASS, []uint32{feature})

	peaks, references, _, err := DecodeCentroids(NewMemoryReader(raw), 0, mustHeader(t, raw), false)
	if err != nil {
		t.Fatal(err)
	}

	if len(peaks) != 4 {
		t.Fatalf("suppressed labels = %d, want 4", len(peaks))
	}
	for _, p := range peaks {
		if PeakOptions(p.Flags)&(PEAK_REFERENCE|PEAK_EXCEPTION) != 0 {
			t.Error("reference peaks should be removed from the labels")
		}
	}

	if len(references) != 1 {
		t.Fatalf("reference peaks = %d", len(references))
	}
	if references[0].Mass != 200 {
		t.Errorf("reference mass = %v", references[0].Mass)
	}
	if references[0].Intensity != 0 {
		t.Errorf("suppressed reference intensity = %v, want 0", references[0].Intensity)
	}
}

func TestCentroidSimplified(t *testing.T) {
	raw := buildCentroidPacket(FEATURE_ACCURATE_MASS, nil)

	masses, intensities, err := DecodeCentroidsSimplified(NewMemoryReader(raw), 0, mustHeader(t, raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(masses) != 5 || len(intensities) != 5 {
		t.Fatalf("simplified decode = %d/%d values", len(masses), len(intensities))
	}
	if masses[2] != 300 || intensities[2] != 30 {
		t.Errorf("masses[2] = %v, intensities[2] = %v", masses[2], intensities[2])
	}
}

func TestCentroidLegacyMasses(t *testing.T) {
	w := &binBuf{}
	ncentroid := uint32(2)
	centroidWords := (4 + ncentroid*8) / 4

	w.u32(1).u32(0).u32(centroidWords).u32(FEATURE_LEGACY_MASSES)
	w.u32(0).u32(0).u32(0).u32(0)
	w.f32(50).f32(500)
	w.u32(ncentroid)
	w.f32(123.25).f32(7.0)
	w.f32(321.75).f32(9.0)

	peaks, _, _, err := DecodeCentroids(NewMemoryReader(w.b), 0, mustHeader(t, w.b), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(peaks) != 2 || peaks[0].Mass != 123.25 || peaks[1].Intensity != 9.0 {
		t.Fatalf("legacy peaks = %+v", peaks)
	}
}

func mustHeader(t *testing.T, raw []byte) *PacketHeader {
	t.Helper()
	hdr, err := DecodePacketHeader(NewMemoryReader(raw), 0)
	if err != nil {
		t.Fatal(err)
	}
	return &hdr
}

// buildFtPacket constructs the one-segment FT profile packet of the
// reference scenario; base 1e6, spacing -10, one sub-segment of two
// samples starting at index 1, four expanded words.
func buildFtPacket() []byte {
	w := &binBuf{}

	profile := &binBuf{}
	profile.f64(1_000_000.0).f64(-10.0).u32(1).u32(4)
	profile.u32(1).u32(2).f32(0.0)
	profile.f32(5.0).f32(7.0)

	w.u32(1)                             // segments
	w.u32(uint32(len(profile.b) / 4))    // profile words
	w.u32(0)                             // centroid words
	w.u32(FEATURE_FT_LAYOUT)             // default feature word
	w.u32(0).u32(0).u32(0).u32(0)        // features, expansion, noise, debug
	w.f32(100).f32(2000)                 // segment range
	w.bytes(profile.b)

	return w.b
}

func TestFtProfileDecode(t *testing.T) {
	raw := buildFtPacket()
	calibrators := []float64{0, 0, 1e13, 0, 0}

	segments, err := DecodeFTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw),
		calibrators, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	if len(segments) != 1 {
		t.Fatalf("segments = %d", len(segments))
	}
	peaks := segments[0].Peaks
	if len(peaks) != 4 {
		t.Fatalf("peaks = %d, want 4 (zero padded endpoints)", len(peaks))
	}

	wantIntensities := []float64{0, 5, 7, 0}
	for i, want := range wantIntensities {
		if peaks[i].Intensity != want {
			t.Errorf("peaks[%d].Intensity = %v, want %v", i, peaks[i].Intensity, want)
		}
	}

	for i := 1; i < len(peaks); i++ {
		if peaks[i].Mass <= peaks[i-1].Mass {
			t.Fatalf("mass not strictly increasing at %d: %v <= %v",
				i, peaks[i].Mass, peaks[i-1].Mass)
		}
	}

	// frequency decreases with the negative spacing, mass = c1/f grows
	if peaks[0].Position != 1_000_000.0 || peaks[1].Position != 999_990.0 {
		t.Errorf("positions = %v, %v", peaks[0].Position, peaks[1].Position)
	}
}

func TestFtProfileMonotonicRepair(t *testing.T) {
	// positive spacing makes the raw c1/f conversion decrease; the
	// decoder steps each repaired mass by 1e-5
	w := &binBuf{}
	profile := &binBuf{}
	profile.f64(1_000_000.0).f64(10.0).u32(1).u32(3)
	profile.u32(0).u32(3).f32(0.0)
	profile.f32(1.0).f32(2.0).f32(3.0)

	w.u32(1).u32(uint32(len(profile.b) / 4)).u32(0).u32(FEATURE_FT_LAYOUT)
	w.u32(0).u32(0).u32(0).u32(0)
	w.f32(100).f32(2000)
	w.bytes(profile.b)

	segments, err := DecodeFTProfile(NewMemoryReader(w.b), 0, mustHeader(t, w.b),
		[]float64{0, 0, 1e13, 0, 0}, nil, true)
	if err != nil {
		t.Fatal(err)
	}

	peaks := segments[0].Peaks
	for i := 1; i < len(peaks); i++ {
		if peaks[i].Mass <= peaks[i-1].Mass {
			t.Fatalf("repair failed at %d", i)
		}
		step := peaks[i].Mass - peaks[i-1].Mass
		if step > 2e-5 {
			t.Fatalf("repaired step too large at %d: %v", i, step)
		}
	}
}

func TestFtProfileInsufficientCalibrators(t *testing.T) {
	raw := buildFtPacket()

	_, err := DecodeFTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw),
		[]float64{0, 0, 1e13}, nil, true)
	if !errors.Is(err, ErrInsufficientCalibrators) {
		t.Fatalf("want ErrInsufficientCalibrators, got %v", err)
	}
}

func TestFtProfileReferenceTagging(t *testing.T) {
	raw := buildFtPacket()

	// a dominating reference peak in the emitted mass window
	references := []LabelPeak{{Mass: 1e13 / 999_990.0, Intensity: 100}}

	segments, err := DecodeFTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw),
		[]float64{0, 0, 1e13, 0, 0}, references, false)
	if err != nil {
		t.Fatal(err)
	}

	tagged := 0
	for _, p := range segments[0].Peaks {
		if p.Options&(PEAK_REFERENCE|PEAK_EXCEPTION) != 0 {
			tagged++
			if p.Intensity != 0 {
				t.Error("suppressed reference points keep zero intensity")
			}
		}
	}
	if tagged == 0 {
		t.Fatal("no profile points were tagged under the reference peak")
	}
}

func buildLtPacket(subsegs func(p *binBuf), nsub, nexpanded uint32) []byte {
	w := &binBuf{}
	profile := &binBuf{}
	profile.f64(100.0).f64(0.5).u32(nsub).u32(nexpanded)
	subsegs(profile)

	w.u32(1).u32(uint32(len(profile.b) / 4)).u32(0).u32(0)
	w.u32(0).u32(0).u32(0).u32(0)
	w.f32(100).f32(200)
	w.bytes(profile.b)
	return w.b
}

func TestLtProfileDecode(t *testing.T) {
	raw := buildLtPacket(func(p *binBuf) {
		p.u32(2).u32(3)
		p.f32(1.0).f32(2.0).f32(3.0)
	}, 1, 8)

	segments, err := DecodeLTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw), true)
	if err != nil {
		t.Fatal(err)
	}

	peaks := segments[0].Peaks
	if len(peaks) != 8 {
		t.Fatalf("peaks = %d, want 8 with padding", len(peaks))
	}
	if peaks[0].Intensity != 0 || peaks[2].Intensity != 1.0 || peaks[4].Intensity != 3.0 {
		t.Errorf("unexpected intensities %v %v %v",
			peaks[0].Intensity, peaks[2].Intensity, peaks[4].Intensity)
	}
	if peaks[3].Mass != 100.0+1.5 {
		t.Errorf("mass grid broken: %v", peaks[3].Mass)
	}
}

func TestLtProfileNoPadding(t *testing.T) {
	raw := buildLtPacket(func(p *binBuf) {
		p.u32(2).u32(3)
		p.f32(1.0).f32(2.0).f32(3.0)
	}, 1, 8)

	segments, err := DecodeLTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw), false)
	if err != nil {
		t.Fatal(err)
	}
	if len(segments[0].Peaks) != 3 {
		t.Fatalf("peaks = %d, want 3 without padding", len(segments[0].Peaks))
	}
}

func TestLtProfileRewind(t *testing.T) {
	raw := buildLtPacket(func(p *binBuf) {
		p.u32(0).u32(3)
		p.f32(1.0).f32(2.0).f32(3.0)
		// out-of-order start; truncate one emitted point and rewind
		p.u32(2).u32(2)
		p.f32(9.0).f32(8.0)
	}, 2, 4)

	segments, err := DecodeLTProfile(NewMemoryReader(raw), 0, mustHeader(t, raw), true)
	if err != nil {
		t.Fatal(err)
	}

	peaks := segments[0].Peaks
	if len(peaks) != 4 {
		t.Fatalf("peaks = %d", len(peaks))
	}
	want := []float64{1, 2, 9, 8}
	for i, v := range want {
		if peaks[i].Intensity != v {
			t.Fatalf("peaks[%d].Intensity = %v, want %v", i, peaks[i].Intensity, v)
		}
	}
}

func TestExtendedDataDecode(t *testing.T) {
	debug := &binBuf{}
	debug.u32(77)
	debug.i32(0x101).u32(2).i32(-5).i32(9)
	debug.i32(0x7).u32(1).u32(0xCAFE)
	// malformed trailing sub-segment extends past the section
	debug.i32(0x3).u32(100)

	w := &binBuf{}
	w.u32(0).u32(0).u32(0).u32(0)
	w.u32(0).u32(0).u32(0).u32(uint32(len(debug.b) / 4))
	w.bytes(debug.b)

	extended, err := DecodeExtendedData(NewMemoryReader(w.b), 0, mustHeader(t, w.b))
	if err != nil {
		t.Fatal(err)
	}

	if extended.Header != 77 {
		t.Errorf("top header = %d", extended.Header)
	}
	if len(extended.Transients) != 1 || len(extended.Data_segments) != 1 {
		t.Fatalf("transients = %d, data segments = %d",
			len(extended.Transients), len(extended.Data_segments))
	}
	if extended.Transients[0].Header != 0x101 || extended.Transients[0].Data[0] != -5 {
		t.Errorf("transient = %+v", extended.Transients[0])
	}

	// lazy body reads on first access
	body, err := extended.Data_segments[0].Bytes()
	if err != nil || len(body) != 4 {
		t.Fatalf("data segment body = %v, %v", body, err)
	}
	if leUint32(body) != 0xCAFE {
		t.Errorf("body = %x", leUint32(body))
	}
}

func TestDecodePacketGluesSections(t *testing.T) {
	raw := buildFtPacket()
	event := NewScanEvent()
	event.Mass_calibrators = []float64{0, 0, 1e13, 0, 0}

	packet, err := DecodePacket(NewMemoryReader(raw), 0, event, ScanReadOptions{
		Profile:           true,
		Include_ref_peaks: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(packet.Segments) != 1 || len(packet.Segments[0].Peaks) != 4 {
		t.Fatalf("packet profile not decoded: %+v", packet.Segments)
	}
	if packet.Header.TotalSize() != int64(len(raw)) {
		t.Errorf("header size accounting off")
	}
}

func TestNoiseDecode(t *testing.T) {
	w := &binBuf{}
	w.u32(0).u32(0).u32(0).u32(0)
	w.u32(0).u32(0).u32(6).u32(0) // 6 noise words = 2 triples
	w.f32(100).f32(1.5).f32(0.25)
	w.f32(200).f32(2.5).f32(0.50)

	hdr := mustHeader(t, w.b)
	noise, err := decodeNoise(NewMemoryReader(w.b), 0, hdr)
	if err != nil {
		t.Fatal(err)
	}
	if len(noise) != 2 || noise[1].Mass != 200 || noise[1].Baseline != 0.50 {
		t.Fatalf("noise = %+v", noise)
	}
}
