package rawfile

import (
	"runtime"
	"sort"

	"github.com/alitto/pond"
	"github.com/samber/lo"
)

// TrailerScanEvents loads the per-scan event array and deduplicates it
// under the ScanEvent total ordering. Decoding fans out over a worker
// pool in batches; the dedup set is maintained by a single consumer so
// index assignment stays deterministic regardless of batch completion
// order.
type TrailerScanEvents struct {
	// Unique events sorted under the event ordering.
	Unique_events []*ScanEvent

	// scan index -> position in Unique_events
	Index_to_unique []int

	// byte offset just past the last decoded event; refresh resumes here
	next_offset int64
	next_scan   int

	revision int32
	reader   *MemoryReader

	// dedup entries in sorted order, each remembering its first-occurrence
	// arrival number
	sorted   []trailerEntry
	arrivals []int
}

type trailerEntry struct {
	event   *ScanEvent
	arrival int
}

// events per parallel decode batch
const trailerBatchSize = 2000

// capacity of the decoded-batch queue feeding the dedup consumer
const trailerQueueDepth = 20

// LoadTrailerScanEvents reads a 32bit count then that many scan event
// records, deduplicating as it goes.
func LoadTrailerScanEvents(reader *MemoryReader, offset int64, revision int32) (*TrailerScanEvents, error) {
	count, err := reader.Uint32(offset)
	if err != nil {
		return nil, errAtOffset(ErrTruncatedEvent, offset)
	}

	trailer := &TrailerScanEvents{
		next_offset: offset + 4,
		revision:    revision,
		reader:      reader,
	}

	err = trailer.loadRange(int(count))
	if err != nil {
		return nil, err
	}

	return trailer, nil
}

// Refresh appends events added since the previous load; real-time
// acquisition grows the trailer in place. Callers must drain readers
// before refreshing.
func (t *TrailerScanEvents) Refresh(added int) error {
	return t.loadRange(added)
}

// loadRange decodes count events starting at next_offset.
// Record boundaries are discovered with a cheap size skip, the byte
// ranges decode in parallel batches, and a single consumer performs the
// ordered dedup inserts.
func (t *TrailerScanEvents) loadRange(count int) error {
	if count == 0 {
		return nil
	}

	// discover record offsets; skipping reads only the embedded counts
	offsets := make([]int64, count)
	pos := t.next_offset
	for i := 0; i < count; i++ {
		offsets[i] = pos
		size, err := scanEventRecordSize(t.reader, pos, t.revision)
		if err != nil {
			return err
		}
		pos += size
	}
	t.next_offset = pos

	batches := lo.Chunk(offsets, trailerBatchSize)

	type decodedBatch struct {
		index  int
		events []*ScanEvent
		err    error
	}

	results := make(chan decodedBatch, trailerQueueDepth)

	workers := runtime.NumCPU()
	pool := pond.New(workers, 0, pond.MinWorkers(workers))

	go func() {
		for i, batch := range batches {
			i, batch := i, batch
			pool.Submit(func() {
				events := make([]*ScanEvent, 0, len(batch))
				for _, off := range batch {
					event, _, err := DecodeScanEvent(t.reader, off, t.revision)
					if err != nil {
						results <- decodedBatch{index: i, err: err}
						return
					}
					events = append(events, event)
				}
				results <- decodedBatch{index: i, events: events}
			})
		}
		pool.StopAndWait()
		close(results)
	}()

	// serialise the sorted-set inserts; batches may complete out of order
	// so buffer until the next expected index arrives
	pending := make(map[int][]*ScanEvent)
	next := 0
	var firstErr error

	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
			}
			continue
		}
		pending[res.index] = res.events
		for events, ok := pending[next]; ok; events, ok = pending[next] {
			delete(pending, next)
			for _, event := range events {
				t.insert(event)
			}
			next++
		}
	}

	if firstErr != nil {
		return firstErr
	}

	t.rebuild()
	return nil
}

// insert places one event into the dedup set; duplicates inherit the
// existing arrival number, new events receive the next free one.
func (t *TrailerScanEvents) insert(event *ScanEvent) {
	i := sort.Search(len(t.sorted), func(i int) bool {
		return t.sorted[i].event.Compare(event) >= 0
	})

	if i < len(t.sorted) && t.sorted[i].event.Compare(event) == 0 {
		t.arrivals = append(t.arrivals, t.sorted[i].arrival)
		return
	}

	arrival := t.next_scan
	t.next_scan++

	t.sorted = append(t.sorted, trailerEntry{})
	copy(t.sorted[i+1:], t.sorted[i:])
	t.sorted[i] = trailerEntry{event: event, arrival: arrival}
	t.arrivals = append(t.arrivals, arrival)
}

// rebuild publishes the sorted unique events and the scan index mapping.
func (t *TrailerScanEvents) rebuild() {
	ranks := make(map[int]int, len(t.sorted))
	t.Unique_events = make([]*ScanEvent, len(t.sorted))
	for rank, entry := range t.sorted {
		ranks[entry.arrival] = rank
		t.Unique_events[rank] = entry.event
	}

	t.Index_to_unique = make([]int, len(t.arrivals))
	for i, arrival := range t.arrivals {
		t.Index_to_unique[i] = ranks[arrival]
	}
}

// scanEventRecordSize computes the total byte size of one event record by
// reading only the fixed-shadow size and the embedded array counts.
func scanEventRecordSize(reader *MemoryReader, offset int64, revision int32) (int64, error) {
	fixed, err := layoutSize(scanEventLayouts, revision)
	if err != nil {
		return 0, err
	}
	reactionSize, err := layoutSize(reactionLayouts, revision)
	if err != nil {
		return 0, err
	}

	pos := offset + fixed

	nreactions, err := reader.Uint32(pos)
	if err != nil {
		return 0, errAtOffset(ErrTruncatedEvent, pos)
	}
	pos += 4 + int64(nreactions)*reactionSize

	nranges, err := reader.Uint32(pos)
	if err != nil {
		return 0, errAtOffset(ErrTruncatedEvent, pos)
	}
	pos += 4 + 16*int64(nranges)

	ncal, err := reader.Uint32(pos)
	if err != nil {
		return 0, errAtOffset(ErrTruncatedEvent, pos)
	}
	pos += 4 + 8*int64(ncal)

	nsf, err := reader.Uint32(pos)
	if err != nil {
		return 0, errAtOffset(ErrTruncatedEvent, pos)
	}
	pos += 4 + 8*int64(nsf)

	if revision >= 65 {
		nsfr, err := reader.Uint32(pos)
		if err != nil {
			return 0, errAtOffset(ErrTruncatedEvent, pos)
		}
		pos += 4 + 16*int64(nsfr)

		nname, err := reader.Uint32(pos)
		if err != nil {
			return 0, errAtOffset(ErrTruncatedEvent, pos)
		}
		pos += 4 + 2*int64(nname)
	}

	return pos - offset, nil
}
