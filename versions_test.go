package rawfile

import (
	"errors"
	"testing"
)

func TestLayoutSizeSelection(t *testing.T) {
	layouts := []revisionLayout{{14, 8}, {31, 28}, {65, 96}}

	cases := []struct {
		revision int32
		want     int64
	}{
		{14, 8},
		{30, 8},
		{31, 28},
		{64, 28},
		{65, 96},
		{99, 96},
	}
	for _, tc := range cases {
		got, err := layoutSize(layouts, tc.revision)
		if err != nil || got != tc.want {
			t.Errorf("layoutSize(rev %d) = %d, %v; want %d", tc.revision, got, err, tc.want)
		}
	}

	_, err := layoutSize(layouts, 13)
	if !errors.Is(err, ErrUnsupportedRevision) {
		t.Errorf("revision below the table should fail, got %v", err)
	}
}

func TestDecodeRunHeader(t *testing.T) {
	w := &binBuf{}
	w.i32(1).i32(2000).i32(4).i32(2000)
	w.f64(50).f64(2000).f64(0).f64(95.5)

	hdr, err := DecodeRunHeader(NewMemoryReader(w.b), 0, 66)
	if err != nil {
		t.Fatal(err)
	}

	if hdr.First_spectrum != 1 || hdr.Last_spectrum != 2000 ||
		hdr.Filter_mass_precision != 4 || hdr.Trailer_scan_events_count != 2000 {
		t.Errorf("header = %+v", hdr)
	}
	if hdr.Low_mass != 50 || hdr.End_time != 95.5 {
		t.Errorf("span fields = %+v", hdr)
	}
}

func TestDecodeRunHeaderOldRevision(t *testing.T) {
	w := &binBuf{}
	w.i32(1).i32(100).i32(2).i32(100)

	hdr, err := DecodeRunHeader(NewMemoryReader(w.b), 0, 20)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Last_spectrum != 100 {
		t.Errorf("header = %+v", hdr)
	}
	// revision 20 predates the span fields
	if hdr.Low_mass != 0 || hdr.High_mass != 0 || hdr.End_time != 0 {
		t.Errorf("span fields should default to zero, got %+v", hdr)
	}
}

func TestScanEventRecordSizeMatchesDecode(t *testing.T) {
	for _, revision := range []int32{14, 25, 31, 48, 51, 54, 62, 63, 65, 66} {
		record := eventRecordBytes(revision, nil)
		reader := NewMemoryReader(record)

		skipped, err := scanEventRecordSize(reader, 0, revision)
		if err != nil {
			t.Fatalf("rev %d: %v", revision, err)
		}

		_, decoded, err := DecodeScanEvent(reader, 0, revision)
		if err != nil {
			t.Fatalf("rev %d: %v", revision, err)
		}

		if skipped != decoded {
			t.Errorf("rev %d: size skip = %d, decode = %d", revision, skipped, decoded)
		}
		if decoded != int64(len(record)) {
			t.Errorf("rev %d: decode consumed %d of %d", revision, decoded, len(record))
		}
	}
}
