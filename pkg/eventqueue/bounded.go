package eventqueue

import (
	"sync"
	"time"

	"github.com/customfit-ai/customfit-go/pkg/events"
)

// DefaultCapacity bounds the queue when no explicit capacity is given.
const DefaultCapacity = 100

// DropFunc receives the records removed by capacity eviction, oldest
// first. Called outside the queue lock, so implementations may call back
// into the queue.
type DropFunc func(dropped []*events.Record)

// Bounded is a thread-safe FIFO with a fixed capacity. Inserting past
// capacity evicts from the head (oldest first) until the size invariant
// holds again; eviction is the only way this queue loses data and is
// always reported through the drop callback and the dropped counter.
type Bounded struct {
	mu           sync.Mutex
	items        []*events.Record
	capacity     int
	droppedTotal uint64
	lastDropAt   time.Time
	onDropped    DropFunc
}

// NewBounded creates a queue holding at most capacity records. A nil
// onDropped callback is allowed; drops are then only counted.
func NewBounded(capacity int, onDropped DropFunc) *Bounded {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bounded{
		items:     make([]*events.Record, 0, capacity),
		capacity:  capacity,
		onDropped: onDropped,
	}
}

// Add appends a record, evicting the oldest records if capacity is
// exceeded.
func (q *Bounded) Add(rec *events.Record) {
	if rec == nil {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, rec)
	dropped := q.evictLocked()
	q.mu.Unlock()
	q.notify(dropped)
}

// AddAll appends records in order, then evicts down to capacity once.
func (q *Bounded) AddAll(recs []*events.Record) {
	if len(recs) == 0 {
		return
	}
	q.mu.Lock()
	for _, rec := range recs {
		if rec != nil {
			q.items = append(q.items, rec)
		}
	}
	dropped := q.evictLocked()
	q.mu.Unlock()
	q.notify(dropped)
}

// PopBatch removes and returns up to maxCount records from the head.
func (q *Bounded) PopBatch(maxCount int) []*events.Record {
	if maxCount <= 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(maxCount, len(q.items))
	if n == 0 {
		return nil
	}
	batch := make([]*events.Record, n)
	copy(batch, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return batch
}

// PopAll removes and returns every queued record.
func (q *Bounded) PopAll() []*events.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	all := make([]*events.Record, len(q.items))
	copy(all, q.items)
	q.items = q.items[:0]
	return all
}

// RequeueFront reinserts records at the head of the queue, preserving
// their order, without evicting newer records. Records that do not fit
// in the remaining capacity are returned as lost; the caller decides how
// to report them.
func (q *Bounded) RequeueFront(recs []*events.Record) (lost []*events.Record) {
	if len(recs) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	room := q.capacity - len(q.items)
	if room <= 0 {
		return recs
	}
	fit := min(room, len(recs))
	q.items = append(recs[:fit:fit], q.items...)
	if fit < len(recs) {
		return recs[fit:]
	}
	return nil
}

// DropOldest removes up to n records from the head for deliberate load
// shedding. The removed records are counted as dropped and returned so
// the caller can release and report them.
func (q *Bounded) DropOldest(n int) []*events.Record {
	if n <= 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	n = min(n, len(q.items))
	if n == 0 {
		return nil
	}
	dropped := make([]*events.Record, n)
	copy(dropped, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	q.droppedTotal += uint64(n)
	q.lastDropAt = time.Now()
	return dropped
}

// Size returns the current number of queued records.
func (q *Bounded) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured capacity.
func (q *Bounded) Capacity() int { return q.capacity }

// Utilization returns queue fullness as a percentage of capacity.
func (q *Bounded) Utilization() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return float64(len(q.items)) / float64(q.capacity) * 100
}

// Clear removes all records without counting them as dropped.
func (q *Bounded) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// Snapshot returns a copy of the queued records without removing them.
func (q *Bounded) Snapshot() []*events.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := make([]*events.Record, len(q.items))
	copy(snap, q.items)
	return snap
}

// CopySnapshot returns detached copies of the queued records. Unlike
// Snapshot, the result stays valid after the originals are popped and
// released back to a pool: a record copied here cannot be reset under a
// concurrent reader. Records are immutable once enqueued, so a struct
// copy detaches them fully.
func (q *Bounded) CopySnapshot() []*events.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap := make([]*events.Record, len(q.items))
	for i, rec := range q.items {
		c := *rec
		snap[i] = &c
	}
	return snap
}

// PrependAll inserts records ahead of the queued ones, preserving their
// order, then evicts from the head down to capacity. Used by the
// startup reload so persisted records deliver before anything enqueued
// after the restart; on overflow the oldest replayed records are the
// ones evicted.
func (q *Bounded) PrependAll(recs []*events.Record) {
	if len(recs) == 0 {
		return
	}
	q.mu.Lock()
	merged := make([]*events.Record, 0, len(recs)+len(q.items))
	for _, rec := range recs {
		if rec != nil {
			merged = append(merged, rec)
		}
	}
	merged = append(merged, q.items...)
	q.items = merged
	dropped := q.evictLocked()
	q.mu.Unlock()
	q.notify(dropped)
}

// DroppedTotal returns the cumulative count of evicted and shed records.
func (q *Bounded) DroppedTotal() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.droppedTotal
}

// LastDropAt returns the time of the most recent drop, zero if none.
func (q *Bounded) LastDropAt() time.Time {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lastDropAt
}

// evictLocked trims the head down to capacity. Caller holds the lock.
func (q *Bounded) evictLocked() []*events.Record {
	over := len(q.items) - q.capacity
	if over <= 0 {
		return nil
	}
	dropped := make([]*events.Record, over)
	copy(dropped, q.items[:over])
	q.items = append(q.items[:0], q.items[over:]...)
	q.droppedTotal += uint64(over)
	q.lastDropAt = time.Now()
	return dropped
}

func (q *Bounded) notify(dropped []*events.Record) {
	if len(dropped) > 0 && q.onDropped != nil {
		q.onDropped(dropped)
	}
}
