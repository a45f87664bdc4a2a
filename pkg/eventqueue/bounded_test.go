package eventqueue_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customfit-ai/customfit-go/pkg/eventqueue"
	"github.com/customfit-ai/customfit-go/pkg/events"
)

func makeRecords(n int) []*events.Record {
	recs := make([]*events.Record, n)
	for i := range recs {
		recs[i] = events.NewRecord(fmt.Sprintf("event_%d", i), "sess", nil)
	}
	return recs
}

func TestBounded_FIFOOrder(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(10, nil)
	recs := makeRecords(5)
	for _, rec := range recs {
		q.Add(rec)
	}

	batch := q.PopBatch(3)
	require.Len(t, batch, 3)
	assert.Equal(t, "event_0", batch[0].SubjectID)
	assert.Equal(t, "event_1", batch[1].SubjectID)
	assert.Equal(t, "event_2", batch[2].SubjectID)
	assert.Equal(t, 2, q.Size())

	rest := q.PopAll()
	require.Len(t, rest, 2)
	assert.Equal(t, "event_3", rest[0].SubjectID)
	assert.Zero(t, q.Size())
}

func TestBounded_CapacityInvariant(t *testing.T) {
	t.Parallel()

	const capacity = 100
	const inserts = 150

	var mu sync.Mutex
	var droppedSubjects []string

	q := eventqueue.NewBounded(capacity, func(dropped []*events.Record) {
		mu.Lock()
		defer mu.Unlock()
		for _, rec := range dropped {
			droppedSubjects = append(droppedSubjects, rec.SubjectID)
		}
	})

	for _, rec := range makeRecords(inserts) {
		q.Add(rec)
	}

	assert.Equal(t, capacity, q.Size())
	assert.Equal(t, uint64(inserts-capacity), q.DroppedTotal())
	assert.False(t, q.LastDropAt().IsZero())

	// The dropped set is exactly the oldest 50 records, in order.
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, droppedSubjects, inserts-capacity)
	for i, subject := range droppedSubjects {
		assert.Equal(t, fmt.Sprintf("event_%d", i), subject)
	}

	// The survivors are the newest 100, head first.
	head := q.PopBatch(1)
	require.Len(t, head, 1)
	assert.Equal(t, "event_50", head[0].SubjectID)
}

func TestBounded_FewerInsertsThanCapacity(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(100, func([]*events.Record) {
		t.Error("no drop expected")
	})
	for _, rec := range makeRecords(40) {
		q.Add(rec)
	}
	assert.Equal(t, 40, q.Size())
	assert.Zero(t, q.DroppedTotal())
	assert.True(t, q.LastDropAt().IsZero())
}

func TestBounded_AddAllEvictsOnce(t *testing.T) {
	t.Parallel()

	var calls int
	q := eventqueue.NewBounded(3, func(dropped []*events.Record) {
		calls++
		assert.Len(t, dropped, 2)
	})
	q.AddAll(makeRecords(5))

	assert.Equal(t, 3, q.Size())
	assert.Equal(t, 1, calls)
}

func TestBounded_RequeueFront(t *testing.T) {
	t.Parallel()

	t.Run("all fit", func(t *testing.T) {
		t.Parallel()

		q := eventqueue.NewBounded(10, nil)
		q.AddAll(makeRecords(4)[2:]) // event_2, event_3 in queue

		failed := makeRecords(2) // event_0, event_1 go back to the front
		lost := q.RequeueFront(failed)
		assert.Empty(t, lost)
		assert.Equal(t, 4, q.Size())

		head := q.PopBatch(2)
		assert.Equal(t, "event_0", head[0].SubjectID)
		assert.Equal(t, "event_1", head[1].SubjectID)
	})

	t.Run("partial fit reports lost records", func(t *testing.T) {
		t.Parallel()

		q := eventqueue.NewBounded(5, nil)
		q.AddAll(makeRecords(3))

		lost := q.RequeueFront(makeRecords(4))
		require.Len(t, lost, 2)
		assert.Equal(t, 5, q.Size())
		// No newer record was evicted to make room.
		assert.Zero(t, q.DroppedTotal())
	})

	t.Run("full queue loses everything", func(t *testing.T) {
		t.Parallel()

		q := eventqueue.NewBounded(2, nil)
		q.AddAll(makeRecords(2))

		lost := q.RequeueFront(makeRecords(3))
		assert.Len(t, lost, 3)
	})
}

func TestBounded_DropOldest(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(100, nil)
	q.AddAll(makeRecords(100))

	dropped := q.DropOldest(25)
	require.Len(t, dropped, 25)
	assert.Equal(t, "event_0", dropped[0].SubjectID)
	assert.Equal(t, "event_24", dropped[24].SubjectID)
	assert.Equal(t, 75, q.Size())
	assert.Equal(t, uint64(25), q.DroppedTotal())

	head := q.PopBatch(1)
	assert.Equal(t, "event_25", head[0].SubjectID)
}

func TestBounded_SnapshotNonDestructive(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(10, nil)
	q.AddAll(makeRecords(4))

	snap := q.Snapshot()
	assert.Len(t, snap, 4)
	assert.Equal(t, 4, q.Size())
}

func TestBounded_CopySnapshotSurvivesPoolRelease(t *testing.T) {
	t.Parallel()

	pool := events.NewPool(8)
	q := eventqueue.NewBounded(10, nil)

	rec := pool.Acquire()
	rec.SubjectID = "checkout_started"
	rec.SessionID = "sess"
	rec.TimestampMs = 1700000000000
	q.Add(rec)

	snap := q.CopySnapshot()
	require.Len(t, snap, 1)
	assert.NotSame(t, rec, snap[0])

	// Delivering the original and recycling it resets its fields; the
	// detached copy must keep the values it was taken with.
	pool.ReleaseAll(q.PopAll())

	assert.Equal(t, "checkout_started", snap[0].SubjectID)
	assert.Equal(t, "sess", snap[0].SessionID)
	assert.Equal(t, int64(1700000000000), snap[0].TimestampMs)
}

func TestBounded_PrependAll(t *testing.T) {
	t.Parallel()

	t.Run("prepended records come out first", func(t *testing.T) {
		t.Parallel()

		q := eventqueue.NewBounded(10, nil)
		q.Add(events.NewRecord("post_restart", "s", nil))

		q.PrependAll([]*events.Record{
			events.NewRecord("replayed_0", "s", nil),
			events.NewRecord("replayed_1", "s", nil),
		})

		all := q.PopAll()
		require.Len(t, all, 3)
		assert.Equal(t, "replayed_0", all[0].SubjectID)
		assert.Equal(t, "replayed_1", all[1].SubjectID)
		assert.Equal(t, "post_restart", all[2].SubjectID)
	})

	t.Run("overflow evicts the oldest prepended records", func(t *testing.T) {
		t.Parallel()

		var mu sync.Mutex
		var droppedSubjects []string
		q := eventqueue.NewBounded(3, func(dropped []*events.Record) {
			mu.Lock()
			defer mu.Unlock()
			for _, rec := range dropped {
				droppedSubjects = append(droppedSubjects, rec.SubjectID)
			}
		})
		q.Add(events.NewRecord("newest", "s", nil))

		q.PrependAll(makeRecords(4))

		assert.Equal(t, 3, q.Size())
		assert.Equal(t, uint64(2), q.DroppedTotal())
		mu.Lock()
		assert.Equal(t, []string{"event_0", "event_1"}, droppedSubjects)
		mu.Unlock()

		all := q.PopAll()
		require.Len(t, all, 3)
		assert.Equal(t, "event_2", all[0].SubjectID)
		assert.Equal(t, "newest", all[2].SubjectID)
	})
}

func TestBounded_Utilization(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(100, nil)
	assert.Zero(t, q.Utilization())

	q.AddAll(makeRecords(85))
	assert.InDelta(t, 85.0, q.Utilization(), 0.001)
}

func TestBounded_ClearDoesNotCountDrops(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(10, nil)
	q.AddAll(makeRecords(5))
	q.Clear()

	assert.Zero(t, q.Size())
	assert.Zero(t, q.DroppedTotal())
}

func TestBounded_ConcurrentMutation(t *testing.T) {
	t.Parallel()

	q := eventqueue.NewBounded(50, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Add(events.NewRecord("concurrent", "s", nil))
				q.PopBatch(1)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, q.Size(), 50)
}
