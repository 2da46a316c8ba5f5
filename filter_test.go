package rawfile

import (
	"errors"
	"testing"
)

func mustParse(t *testing.T, s string) *ScanEvent {
	t.Helper()
	event, err := ParseFilter(s)
	if err != nil {
		t.Fatalf("ParseFilter(%q): %v", s, err)
	}
	return event
}

func TestParseFullMs2(t *testing.T) {
	event := mustParse(t, "FTMS + c NSI Full ms2 803.4611@hcd35.00 [100.0000-1500.0000]")

	if event.Analyser != ANALYSER_FTMS {
		t.Errorf("analyser = %v", event.Analyser)
	}
	if event.Polarity != POLARITY_POSITIVE {
		t.Errorf("polarity = %v", event.Polarity)
	}
	if event.Scan_data_type != SCAN_DATA_CENTROID {
		t.Errorf("scan data type = %v", event.Scan_data_type)
	}
	if event.Ionization_mode != IONIZATION_NSI {
		t.Errorf("ionization = %v", event.Ionization_mode)
	}
	if event.Scan_mode != SCAN_MODE_FULL {
		t.Errorf("scan mode = %v", event.Scan_mode)
	}
	if event.Ms_order != MS_ORDER_MS2 {
		t.Errorf("ms order = %v", event.Ms_order)
	}

	if len(event.Reactions) != 1 {
		t.Fatalf("reactions = %d", len(event.Reactions))
	}
	r := event.Reactions[0]
	if r.Precursor_mz != 803.4611 || r.Activation != ACTIVATION_HCD ||
		r.Collision_energy != 35.0 || !r.Energy_valid || r.Is_multiple {
		t.Errorf("reaction = %+v", r)
	}

	if len(event.Mass_ranges) != 1 ||
		event.Mass_ranges[0] != (MassRange{Low: 100, High: 1500}) {
		t.Errorf("mass ranges = %v", event.Mass_ranges)
	}
}

func TestParseSimPerRangeEnergies(t *testing.T) {
	event := mustParse(t, "+ c ESI SIM ms [100.00-200.00@30.00, 300.00-350.00@20.00]")

	if event.Scan_mode != SCAN_MODE_SIM {
		t.Errorf("scan mode = %v", event.Scan_mode)
	}
	if event.Ms_order != MS_ORDER_MS1 {
		t.Errorf("ms order = %v", event.Ms_order)
	}
	if event.Source_fragmentation != TRI_ON || event.Source_fragmentation_type != VOLTAGE_SIM {
		t.Errorf("source fragmentation = %v / %v",
			event.Source_fragmentation, event.Source_fragmentation_type)
	}
	if len(event.Source_fragmentations) != 2 ||
		event.Source_fragmentations[0] != 30.0 || event.Source_fragmentations[1] != 20.0 {
		t.Errorf("voltages = %v", event.Source_fragmentations)
	}
	if len(event.Mass_ranges) != 2 {
		t.Errorf("mass ranges = %v", event.Mass_ranges)
	}
}

func TestParseSimDefaultsMsOrder(t *testing.T) {
	event := mustParse(t, "+ c ESI SIM [100.00-200.00]")
	if event.Ms_order != MS_ORDER_MS1 {
		t.Errorf("ms order = %v", event.Ms_order)
	}
}

func TestRoundTripExact(t *testing.T) {
	cases := []struct {
		filter    string
		precision int
	}{
		{"FTMS + c NSI Full ms2 803.4611@hcd35.00 [100.0000-1500.0000]", 4},
		{"+ c ESI SIM ms [100.00-200.00@30.00, 300.00-350.00@20.00]", 2},
		{"ITMS - p ESI d Full ms2 445.1200@cid35.00 [110.0000-460.0000]", 4},
		{"FTMS {1,3} + p NSI sid=30.00 d Full ms [300.0000-2000.0000]", 4},
		{"TQMS + c ESI cv=-40.00 SRM ms2 500.0000@cid30.00@etd20.00 [200.0000-210.0000]", 4},
		{"- c EI !corona !sid Q1MS ms [50.00-500.00]", 2},
		{"+ p MALDI E w u BSCAN lock msx ms3 500.0000@hcd25.00 750.0000@uvpd [100.0000-1000.0000]", 4},
		{"+ c NSI g x !S ms", 2},
		{"+ c ESI sps s Full ms", 2},
		{"+ c ESI Full BSCAN ms mpd=266.00", 2},
		{"SQMS + c APCI det=400.00 t Full ms [150.00-600.00]", 2},
		{"FTMS + p NSI sa AM u Full ms2 812.3300@etd [120.0000-1800.0000]", 4},
		{"TOFMS - c TSP sid=20.00-45.00 pr ffr1 [100.00-400.00]", 2},
	}

	for _, tc := range cases {
		event, err := ParseFilter(tc.filter)
		if err != nil {
			t.Errorf("ParseFilter(%q): %v", tc.filter, err)
			continue
		}

		opts := DefaultFormatOptions()
		opts.Mass_precision = tc.precision

		printed := PrintFilter(event, opts)
		if printed != tc.filter {
			t.Errorf("print mismatch:\n  in:  %q\n  out: %q", tc.filter, printed)
		}

		reparsed, err := ParseFilter(printed)
		if err != nil {
			t.Errorf("reparse of %q: %v", printed, err)
			continue
		}
		if event.Compare(reparsed) != 0 {
			t.Errorf("round-trip event mismatch for %q", tc.filter)
		}
	}
}

func TestPrintEmitsPhrasesInOrder(t *testing.T) {
	// parse out of order; the printer normalises the phrase order
	event := mustParse(t, "Full + FTMS NSI c ms2 803.4611@hcd35.00")

	opts := DefaultFormatOptions()
	opts.Mass_precision = 4

	printed := PrintFilter(event, opts)
	want := "FTMS + c NSI Full ms2 803.4611@hcd35.00"
	if printed != want {
		t.Errorf("printed %q, want %q", printed, want)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"FTMS ITMS + c",                    // duplicate category
		"+ + c",                            // duplicate polarity
		"+ c ESI x x ms",                   // duplicate letter
		"+ c ESI blargh ms",                // unknown token
		"+ c ESI ms 803.46@zap35.00",       // unknown activation (and outside msn)
		"+ c ESI Full 803.46@hcd35.00",     // reaction outside msn
		"+ c ESI ms2 1.0@cid 2.0@cid",      // more phrases than the order admits
		"+ c ESI ms2",                      // msn without reactions
		"+ c ESI Full ms [100.00-200.00@30.00]", // per-range energy outside SIM
		"+ c ESI SIM sid=5.00 ms [100.00-200.00@30.00]", // energies with explicit sid
		"+ c ESI Full ms [100.00-200.00, 100.00-200.00]", // duplicate range
		"+ c ESI Full ms [100.00-200.00",   // unterminated range list
		"+ c ESI ! ms",                     // bare negation
	}

	for _, filter := range cases {
		event, err := ParseFilter(filter)
		if !errors.Is(err, ErrBadFilter) {
			t.Errorf("ParseFilter(%q) = %v, want ErrBadFilter", filter, err)
		}
		if event != nil {
			t.Errorf("ParseFilter(%q) returned a partial event", filter)
		}
	}
}

func TestDuplicateTokenKind(t *testing.T) {
	_, err := ParseFilter("FTMS ITMS + c ms")
	if !errors.Is(err, ErrDuplicateToken) {
		t.Fatalf("want ErrDuplicateToken, got %v", err)
	}
}

func TestWholeTokenPrecedence(t *testing.T) {
	// "sps" resolves as the multi notch token, never the letter chain
	event := mustParse(t, "+ c ESI sps ms")
	if event.Sps_multi_notch != TRI_ON {
		t.Errorf("sps = %v", event.Sps_multi_notch)
	}
	if event.Lower_case_applied != 0 {
		t.Errorf("letter flags should be untouched, got %b", event.Lower_case_applied)
	}

	// a bare "s" is the letter flag
	event = mustParse(t, "+ c ESI s ms")
	if event.Sps_multi_notch != TRI_ANY {
		t.Errorf("sps should stay any, got %v", event.Sps_multi_notch)
	}
	if event.Lower_case_applied == 0 || event.Lower_case_flags == 0 {
		t.Error("letter s should set the lower case bitset")
	}
}

func TestNegatedLetterFlag(t *testing.T) {
	event := mustParse(t, "+ c ESI !x ms")

	bit := lowerLetterBit['x']
	if event.Lower_case_applied&(1<<bit) == 0 {
		t.Error("applied bit should be set for !x")
	}
	if event.Lower_case_flags&(1<<bit) != 0 {
		t.Error("flag bit should be clear for !x")
	}
}

func TestMsOrderDependentSuffix(t *testing.T) {
	event := mustParse(t, "+ c ESI ms3d 400.00@cid20.00 500.00@hcd30.00")
	if event.Ms_order != MsOrder(3) {
		t.Errorf("ms order = %v", event.Ms_order)
	}
	if event.Dependent != TRI_ON {
		t.Errorf("dependent = %v", event.Dependent)
	}
}

func TestLocalisedSeparators(t *testing.T) {
	event := mustParse(t, "+ c ESI SIM ms [100.00-200.00@30.00, 300.00-350.00@20.00]")

	opts := DefaultFormatOptions()
	opts.Decimal_separator = ","
	opts.List_separator = "; "

	printed := PrintFilter(event, opts)
	want := "+ c ESI SIM ms [100,00-200,00@30,00; 300,00-350,00@20,00]"
	if printed != want {
		t.Errorf("printed %q, want %q", printed, want)
	}
}
