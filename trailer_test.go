package rawfile

import (
	"testing"
)

// buildTrailerBytes serialises count scan event records preceded by the
// 32 bit count; scanTypes supplies the distinguishing scan type index
// per record.
func buildTrailerBytes(scanTypes []int32) []byte {
	w := &binBuf{}
	w.u32(uint32(len(scanTypes)))
	for _, idx := range scanTypes {
		record := eventRecordBytes(66, func(shadow []byte) {
			shadow[0] = uint8(POLARITY_POSITIVE)
			leInt32Put(shadow[24:], idx)
		})
		w.bytes(record)
	}
	return w.b
}

func leInt32Put(b []byte, v int32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestTrailerDedup(t *testing.T) {
	// 100 events; indices 0, 10 and 20 are byte-identical, the rest are
	// distinct
	scanTypes := make([]int32, 100)
	for i := range scanTypes {
		scanTypes[i] = int32(i + 1)
	}
	scanTypes[10] = scanTypes[0]
	scanTypes[20] = scanTypes[0]

	trailer, err := LoadTrailerScanEvents(NewMemoryReader(buildTrailerBytes(scanTypes)), 0, 66)
	if err != nil {
		t.Fatal(err)
	}

	if len(trailer.Unique_events) != 98 {
		t.Fatalf("unique events = %d, want 98", len(trailer.Unique_events))
	}
	if len(trailer.Index_to_unique) != 100 {
		t.Fatalf("index map length = %d", len(trailer.Index_to_unique))
	}

	if trailer.Index_to_unique[0] != trailer.Index_to_unique[10] ||
		trailer.Index_to_unique[0] != trailer.Index_to_unique[20] {
		t.Error("duplicates should share the first occurrence's unique index")
	}

	// every scan resolves back to an equal event
	for i, scanType := range scanTypes {
		event := trailer.Unique_events[trailer.Index_to_unique[i]]
		if event.Scan_type_index != scanType {
			t.Fatalf("scan %d resolved to scan type %d, want %d",
				i, event.Scan_type_index, scanType)
		}
	}

	// the unique array is sorted under the event ordering
	for i := 1; i < len(trailer.Unique_events); i++ {
		if trailer.Unique_events[i-1].Compare(trailer.Unique_events[i]) >= 0 {
			t.Fatalf("unique events not strictly sorted at %d", i)
		}
	}
}

func TestTrailerDedupDeterminism(t *testing.T) {
	scanTypes := make([]int32, 4100)
	for i := range scanTypes {
		// plenty of duplication across batch boundaries
		scanTypes[i] = int32(i % 97)
	}

	raw := buildTrailerBytes(scanTypes)

	first, err := LoadTrailerScanEvents(NewMemoryReader(raw), 0, 66)
	if err != nil {
		t.Fatal(err)
	}

	// decoding fans out over a pool; repeated loads must produce the
	// identical mapping regardless of batch completion order
	for run := 0; run < 3; run++ {
		again, err := LoadTrailerScanEvents(NewMemoryReader(raw), 0, 66)
		if err != nil {
			t.Fatal(err)
		}
		if len(again.Unique_events) != len(first.Unique_events) {
			t.Fatalf("unique count changed across loads")
		}
		for i := range first.Index_to_unique {
			if first.Index_to_unique[i] != again.Index_to_unique[i] {
				t.Fatalf("index map diverged at %d", i)
			}
		}
	}

	if len(first.Unique_events) != 97 {
		t.Fatalf("unique events = %d, want 97", len(first.Unique_events))
	}
}

func TestTrailerRefresh(t *testing.T) {
	scanTypes := []int32{1, 2, 3}
	raw := buildTrailerBytes(scanTypes)

	// append two more records past the initial load without touching the
	// leading count; real-time acquisition grows the array in place
	extra := eventRecordBytes(66, func(shadow []byte) {
		leInt32Put(shadow[24:], 4)
	})
	dup := eventRecordBytes(66, func(shadow []byte) {
		shadow[0] = uint8(POLARITY_POSITIVE)
		leInt32Put(shadow[24:], 2)
	})
	grown := append(append([]byte{}, raw...), extra...)
	grown = append(grown, dup...)

	trailer, err := LoadTrailerScanEvents(NewMemoryReader(grown), 0, 66)
	if err != nil {
		t.Fatal(err)
	}
	if len(trailer.Unique_events) != 3 {
		t.Fatalf("initial unique events = %d", len(trailer.Unique_events))
	}

	err = trailer.Refresh(2)
	if err != nil {
		t.Fatal(err)
	}

	if len(trailer.Unique_events) != 4 {
		t.Fatalf("unique events after refresh = %d", len(trailer.Unique_events))
	}
	if len(trailer.Index_to_unique) != 5 {
		t.Fatalf("index map after refresh = %d", len(trailer.Index_to_unique))
	}

	// the appended duplicate shares scan type 2's unique index
	if trailer.Index_to_unique[4] != trailer.Index_to_unique[1] {
		t.Error("refreshed duplicate should inherit the existing index")
	}
}

func TestTrailerTruncated(t *testing.T) {
	raw := buildTrailerBytes([]int32{1, 2, 3})

	_, err := LoadTrailerScanEvents(NewMemoryReader(raw[:len(raw)-10]), 0, 66)
	if err == nil {
		t.Fatal("truncated trailer should fail the load")
	}
}
