package rawfile

import (
	"errors"
	"math/rand"
	"testing"
)

// eventRecordBytes serialises one scan event record for the revision,
// letting the caller poke the fixed shadow first.
func eventRecordBytes(revision int32, mutate func(shadow []byte)) []byte {
	shadow := eventShadow(revision)
	if mutate != nil {
		mutate(shadow)
	}
	w := &binBuf{}
	w.bytes(shadow)
	emptyEventTail(w, revision)
	return w.b
}

func TestDecodeScanEventModernRevision(t *testing.T) {
	record := eventRecordBytes(66, func(shadow []byte) {
		shadow[0] = uint8(POLARITY_POSITIVE)
		shadow[1] = uint8(SCAN_MODE_FULL)
		shadow[2] = 2 // ms order
		shadow[3] = uint8(SCAN_DATA_CENTROID)
		shadow[8] = uint8(IONIZATION_NSI)
		shadow[36] = uint8(ANALYSER_FTMS)
	})

	event, consumed, err := DecodeScanEvent(NewMemoryReader(record), 0, 66)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != int64(len(record)) {
		t.Errorf("consumed %d of %d bytes", consumed, len(record))
	}

	if event.Polarity != POLARITY_POSITIVE || event.Scan_mode != SCAN_MODE_FULL ||
		event.Ms_order != MS_ORDER_MS2 || event.Analyser != ANALYSER_FTMS ||
		event.Ionization_mode != IONIZATION_NSI {
		t.Errorf("unexpected event %+v", event)
	}
}

func TestDecodeScanEventOldRevisionDefaults(t *testing.T) {
	// revision 47 predates the wideband byte; the canonical record keeps
	// the any sentinel no matter what the trailing bytes hold
	record := eventRecordBytes(47, func(shadow []byte) {
		shadow[0] = uint8(POLARITY_NEGATIVE)
	})

	event, _, err := DecodeScanEvent(NewMemoryReader(record), 0, 47)
	if err != nil {
		t.Fatal(err)
	}

	if event.Wideband != TRI_ANY {
		t.Errorf("wideband = %v, want any", event.Wideband)
	}
	if event.Accurate_mass != ACCURATE_MASS_ANY {
		t.Errorf("accurate mass = %v, want any", event.Accurate_mass)
	}
	if event.Analyser != ANALYSER_ANY || event.Lock != TRI_ANY || event.Ultra != TRI_ANY {
		t.Error("revision 54 fields should default to any")
	}
	if event.Multiplex != TRI_ANY || event.Sps_multi_notch != TRI_ANY || event.Name != "" {
		t.Error("revision 65 fields should default to any")
	}
	if event.Scan_type_index == -1 {
		t.Error("revision 31 field scan_type_index should decode, not default")
	}
}

func TestDecodeScanEventRevision50ReadsWideband(t *testing.T) {
	record := eventRecordBytes(50, func(shadow []byte) {
		shadow[28] = uint8(TRI_ON)
	})

	event, _, err := DecodeScanEvent(NewMemoryReader(record), 0, 50)
	if err != nil {
		t.Fatal(err)
	}
	if event.Wideband != TRI_ON {
		t.Errorf("wideband = %v", event.Wideband)
	}
	if event.Accurate_mass != ACCURATE_MASS_ANY {
		t.Errorf("accurate mass = %v, want any at revision 50", event.Accurate_mass)
	}
}

func TestDecodeScanEventUnsupportedRevision(t *testing.T) {
	_, _, err := DecodeScanEvent(NewMemoryReader(make([]byte, 128)), 0, 10)
	if !errors.Is(err, ErrUnsupportedRevision) {
		t.Fatalf("want ErrUnsupportedRevision, got %v", err)
	}
}

func TestDecodeScanEventWithReactionAndTail(t *testing.T) {
	shadow := eventShadow(66)
	shadow[2] = 2

	w := &binBuf{}
	w.bytes(shadow)
	// one reaction, revision 66 layout
	w.u32(1)
	w.f64(803.4611).f64(2.0).f64(35.0)
	w.u16(0x1 | uint16(ACTIVATION_HCD)<<1).u16(0)
	w.u32(1).f64(800.0).f64(807.0)
	w.f64(0.5)
	// two mass ranges, stored high-first to exercise normalisation
	w.i32(2)
	w.f64(1500).f64(100)
	w.f64(2000).f64(1600)
	// calibrators and voltages
	w.u32(5).f64(0).f64(0).f64(1e13).f64(0).f64(0)
	w.u32(0)
	// no source fragmentation ranges; a UTF-16 name
	w.i32(0)
	w.u32(3).u16('q').u16('c').u16('1')

	event, consumed, err := DecodeScanEvent(NewMemoryReader(w.b), 0, 66)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != int64(len(w.b)) {
		t.Errorf("consumed %d of %d bytes", consumed, len(w.b))
	}

	if len(event.Reactions) != 1 {
		t.Fatalf("reactions = %d", len(event.Reactions))
	}
	r := event.Reactions[0]
	if r.Precursor_mz != 803.4611 || r.Activation != ACTIVATION_HCD ||
		!r.Energy_valid || r.Isolation_width_offset != 0.5 ||
		!r.Precursor_range_valid || r.First_mz != 800.0 {
		t.Errorf("reaction = %+v", r)
	}

	if event.Mass_ranges[0] != (MassRange{Low: 100, High: 1500}) {
		t.Errorf("range not normalised: %v", event.Mass_ranges[0])
	}
	if len(event.Mass_calibrators) != 5 || event.Mass_calibrators[2] != 1e13 {
		t.Errorf("calibrators = %v", event.Mass_calibrators)
	}
	if event.Name != "qc1" {
		t.Errorf("name = %q", event.Name)
	}
}

func TestDecodeReactionOldRevisionForcesEnergyValid(t *testing.T) {
	w := &binBuf{}
	w.f64(500.0).f64(1.0).f64(25.0)

	reaction, consumed, err := decodeReaction(NewMemoryReader(w.b), 0, 30)
	if err != nil {
		t.Fatal(err)
	}
	if consumed != 24 {
		t.Errorf("consumed = %d", consumed)
	}
	if !reaction.Energy_valid {
		t.Error("revision < 31 forces the energy valid bit")
	}
	if reaction.Activation != ACTIVATION_ANY {
		t.Errorf("activation = %v", reaction.Activation)
	}
}

func TestEnergyValidExPacking(t *testing.T) {
	r := Reaction{Energy_valid: true, Activation: ACTIVATION_HCD, Is_multiple: true}
	packed := r.EnergyValidEx()
	if packed&0x1 == 0 || (packed>>1)&0xFF != uint16(ACTIVATION_HCD) || packed&0x200 == 0 {
		t.Errorf("packed = %x", packed)
	}
}

func TestCompareToleranceWindows(t *testing.T) {
	a := mustParse(t, "FTMS + c NSI Full ms2 803.4611@hcd35.00 [100.00-1500.00]")
	b := mustParse(t, "FTMS + c NSI Full ms2 803.4611@hcd35.00 [100.00-1500.00]")

	if a.Compare(b) != 0 {
		t.Fatal("identical events should compare equal")
	}

	// within the exact tolerance
	b.Reactions[0].Precursor_mz = 803.4611 + 5e-7
	if a.Compare(b) != 0 {
		t.Error("precursor within 1e-6 should compare equal")
	}

	// outside it
	b.Reactions[0].Precursor_mz = 803.4711
	if a.Compare(b) == 0 {
		t.Error("precursor 0.01 apart should compare unequal")
	}

	// smart comparison widens the window
	if a.CompareSmart(b, 1e5) != 0 {
		t.Error("smart comparison should absorb the difference")
	}
}

func TestCompareSmartDependentCap(t *testing.T) {
	a := mustParse(t, "FTMS + c NSI d Full ms2 500.0000@hcd35.00")
	b := mustParse(t, "FTMS + c NSI d Full ms2 500.5000@hcd35.00")

	// an uncapped tolerance of 1.0 would absorb the 0.5 difference; the
	// dependent cap of 0.2 must not
	if a.CompareSmart(b, 1e6) == 0 {
		t.Error("dependent scans cap the relaxed tolerance at 0.2")
	}

	c := mustParse(t, "FTMS + c NSI d Full ms2 500.1000@hcd35.00")
	if a.CompareSmart(c, 1e6) != 0 {
		t.Error("0.1 sits inside the dependent cap")
	}
}

func TestCompareOrderingIsTotal(t *testing.T) {
	filters := []string{
		"FTMS + c NSI Full ms2 803.4611@hcd35.00",
		"ITMS + c NSI Full ms2 803.4611@hcd35.00",
		"FTMS - c NSI Full ms2 803.4611@hcd35.00",
		"FTMS + c NSI Full ms",
		"FTMS + p NSI Full ms",
	}

	events := make([]*ScanEvent, len(filters))
	for i, f := range filters {
		events[i] = mustParse(t, f)
	}

	for i := range events {
		for j := range events {
			cij := events[i].Compare(events[j])
			cji := events[j].Compare(events[i])
			if cij != -cji {
				t.Errorf("antisymmetry violated between %d and %d", i, j)
			}
			if i == j && cij != 0 {
				t.Errorf("event %d not equal to itself", i)
			}
		}
	}
}

func TestSortScanEvents(t *testing.T) {
	// a spread of events differing in the scan type index only, shuffled
	// deterministically
	n := 200
	events := make([]*ScanEvent, n)
	for i := 0; i < n; i++ {
		e := NewScanEvent()
		e.Scan_type_index = int32(i)
		events[i] = e
	}

	rng := rand.New(rand.NewSource(42))
	rng.Shuffle(n, func(i, j int) {
		events[i], events[j] = events[j], events[i]
	})

	SortScanEvents(events)

	for i := 1; i < n; i++ {
		if events[i-1].Compare(events[i]) > 0 {
			t.Fatalf("not sorted at %d", i)
		}
	}
	for i := 0; i < n; i++ {
		if events[i].Scan_type_index != int32(i) {
			t.Fatalf("events[%d].Scan_type_index = %d", i, events[i].Scan_type_index)
		}
	}
}

func TestSortScanEventsShortRun(t *testing.T) {
	// below the insertion sort threshold
	events := []*ScanEvent{}
	for _, idx := range []int32{5, 1, 4, 2, 3} {
		e := NewScanEvent()
		e.Scan_type_index = idx
		events = append(events, e)
	}

	SortScanEvents(events)

	for i, want := range []int32{1, 2, 3, 4, 5} {
		if events[i].Scan_type_index != want {
			t.Fatalf("events[%d] = %d", i, events[i].Scan_type_index)
		}
	}
}

func TestSimCompensationVoltageValidity(t *testing.T) {
	e := NewScanEvent()

	e.SetSimCompensationVoltage(0, -45.0)
	if !e.SimCompensationVoltageValid() {
		t.Fatal("explicit assignment should mark the first SIM entry valid")
	}

	// assigning a source CID clears the whole validity byte
	e.SetSimSourceCid(0, 30.0)
	if e.SimCompensationVoltageValid() {
		t.Fatal("source CID assignment should clear the validity byte")
	}
}
