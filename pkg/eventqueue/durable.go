package eventqueue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/customfit-ai/customfit-go/pkg/events"
	"github.com/customfit-ai/customfit-go/pkg/storage"
)

// StorageKey is the key the queue snapshot is persisted under.
const StorageKey = "cf_event_queue"

// DefaultDebounce is the write-coalescing window for snapshot writes.
const DefaultDebounce = 100 * time.Millisecond

const persistTimeout = 5 * time.Second

// Durable decorates a Bounded queue with best-effort crash durability.
// Every mutation schedules a debounced snapshot write; records classified
// critical bypass the debounce window and persist immediately. Reload
// replays a persisted snapshot into the queue and then clears it so a
// later restart cannot replay the same events twice.
type Durable struct {
	queue *Bounded
	store storage.Storage
	log   *slog.Logger

	key      string
	debounce time.Duration

	timer  debounceTimer
	closed atomic.Bool

	persistMu          sync.Mutex
	lastPersistedCount int
}

// DurableOption configures a Durable queue.
type DurableOption func(*Durable)

// WithCapacity sets the underlying bounded queue capacity.
func WithCapacity(capacity int) DurableOption {
	return func(d *Durable) {
		if capacity > 0 {
			d.queue = NewBounded(capacity, d.queue.onDropped)
		}
	}
}

// WithOnDropped sets the capacity-eviction callback.
func WithOnDropped(fn DropFunc) DurableOption {
	return func(d *Durable) { d.queue.onDropped = fn }
}

// WithDebounce overrides the snapshot write-coalescing window.
func WithDebounce(delay time.Duration) DurableOption {
	return func(d *Durable) {
		if delay > 0 {
			d.debounce = delay
		}
	}
}

// WithStorageKey overrides the persistence key, letting multiple queues
// share one storage backend.
func WithStorageKey(key string) DurableOption {
	return func(d *Durable) {
		if key != "" {
			d.key = key
		}
	}
}

// WithLogger sets the logger used for persistence diagnostics.
func WithLogger(log *slog.Logger) DurableOption {
	return func(d *Durable) {
		if log != nil {
			d.log = log
		}
	}
}

// NewDurable creates a durable queue over store. A nil store is not
// fatal: the queue falls back to an in-memory store and keeps working
// for the lifetime of the process.
func NewDurable(store storage.Storage, opts ...DurableOption) *Durable {
	d := &Durable{
		queue:              NewBounded(DefaultCapacity, nil),
		store:              store,
		log:                slog.Default(),
		key:                StorageKey,
		debounce:           DefaultDebounce,
		lastPersistedCount: -1,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.store == nil {
		d.log.Warn("event queue storage unavailable, falling back to in-memory store")
		d.store = storage.NewMemory()
	}
	return d
}

// Add enqueues a record and schedules persistence: immediately for
// critical records, debounced otherwise.
func (d *Durable) Add(rec *events.Record) {
	d.queue.Add(rec)
	if rec != nil && rec.Critical() {
		d.persistAsync()
		return
	}
	d.schedule()
}

// AddAll enqueues records; one critical record in the batch promotes the
// whole write to immediate persistence.
func (d *Durable) AddAll(recs []*events.Record) {
	d.queue.AddAll(recs)
	for _, rec := range recs {
		if rec != nil && rec.Critical() {
			d.persistAsync()
			return
		}
	}
	d.schedule()
}

// PopBatch removes up to maxCount records from the head and schedules a
// snapshot of the remainder.
func (d *Durable) PopBatch(maxCount int) []*events.Record {
	batch := d.queue.PopBatch(maxCount)
	if len(batch) > 0 {
		d.schedule()
	}
	return batch
}

// PopAll removes every record and schedules a snapshot.
func (d *Durable) PopAll() []*events.Record {
	all := d.queue.PopAll()
	if len(all) > 0 {
		d.schedule()
	}
	return all
}

// RequeueFront reinserts failed-delivery records at the head, returning
// the ones that no longer fit. See Bounded.RequeueFront.
func (d *Durable) RequeueFront(recs []*events.Record) []*events.Record {
	lost := d.queue.RequeueFront(recs)
	d.schedule()
	return lost
}

// DropOldest sheds up to n oldest records. See Bounded.DropOldest.
func (d *Durable) DropOldest(n int) []*events.Record {
	dropped := d.queue.DropOldest(n)
	if len(dropped) > 0 {
		d.schedule()
	}
	return dropped
}

// Clear empties the queue and schedules a snapshot of the empty state.
func (d *Durable) Clear() {
	d.queue.Clear()
	d.schedule()
}

// Size returns the current queue depth.
func (d *Durable) Size() int { return d.queue.Size() }

// Capacity returns the bounded queue capacity.
func (d *Durable) Capacity() int { return d.queue.Capacity() }

// Utilization returns queue fullness as a percentage.
func (d *Durable) Utilization() float64 { return d.queue.Utilization() }

// Snapshot returns a non-destructive copy of the queue contents.
func (d *Durable) Snapshot() []*events.Record { return d.queue.Snapshot() }

// DroppedTotal returns the cumulative dropped-record count.
func (d *Durable) DroppedTotal() uint64 { return d.queue.DroppedTotal() }

// StartReload begins the startup reload in the background. The returned
// channel closes when the reload finishes, successfully or not.
func (d *Durable) StartReload(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, _, err := d.Reload(ctx); err != nil {
			d.log.Error("event queue reload failed", "error", err)
		}
	}()
	return done
}

// Reload reads the persisted snapshot, validates each record, inserts
// the valid ones at the head of the in-memory queue, and clears the
// snapshot so it cannot be replayed again. Individually malformed or
// stale records are dropped and counted; only an unreadable store or
// container fails the reload.
func (d *Durable) Reload(ctx context.Context) (loaded, dropped int, err error) {
	if d.closed.Load() {
		return 0, 0, ErrQueueClosed
	}

	raw, ok, err := d.store.GetString(ctx, d.key)
	if err != nil {
		return 0, 0, errors.Join(ErrReloadFailed, err)
	}
	if !ok || raw == "" {
		return 0, 0, nil
	}

	recs, dropped, err := events.DecodeSnapshot([]byte(raw), time.Now())
	if err != nil {
		// The whole snapshot is unreadable. Clear it so the corrupt
		// payload is not retried forever.
		_ = d.store.Remove(ctx, d.key)
		return 0, dropped, errors.Join(ErrReloadFailed, err)
	}

	// Replayed records go ahead of anything enqueued since the restart,
	// so pre-crash events keep their delivery position.
	d.queue.PrependAll(recs)
	if err := d.store.Remove(ctx, d.key); err != nil {
		d.log.Warn("failed to clear replayed snapshot", "error", err)
	}

	if dropped > 0 {
		d.log.Info("event queue reload dropped invalid records",
			"loaded", len(recs), "dropped", dropped)
	}
	return len(recs), dropped, nil
}

// Persist forces a synchronous snapshot write, used at shutdown.
func (d *Durable) Persist(ctx context.Context) error {
	return d.persist(ctx)
}

// Close stops the debounce timer and writes a final snapshot. Safe to
// call more than once.
func (d *Durable) Close(ctx context.Context) error {
	if d.closed.Swap(true) {
		return nil
	}
	d.timer.Stop()
	return d.persist(ctx)
}

func (d *Durable) schedule() {
	if d.closed.Load() {
		return
	}
	d.timer.Reschedule(d.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := d.persist(ctx); err != nil {
			d.log.Warn("debounced snapshot write failed", "error", err)
		}
	})
}

func (d *Durable) persistAsync() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := d.persist(ctx); err != nil {
			d.log.Warn("immediate snapshot write failed", "error", err)
		}
	}()
}

// persist serializes the current queue contents. Writes are skipped when
// the record count is unchanged since the last successful write; the
// count check is cheap and bursts that net out to the same depth are
// rare enough not to matter for a best-effort snapshot.
//
// Serialization works on detached record copies: the originals may be
// popped and returned to a pool while the write is in flight, and a
// pooled record must never be read by anyone but its current owner.
func (d *Durable) persist(ctx context.Context) error {
	d.persistMu.Lock()
	defer d.persistMu.Unlock()

	snap := d.queue.CopySnapshot()
	if len(snap) == d.lastPersistedCount {
		return nil
	}

	data, err := events.EncodeSnapshot(snap)
	if err != nil {
		return errors.Join(ErrPersistFailed, err)
	}
	if err := d.store.SetString(ctx, d.key, string(data)); err != nil {
		return errors.Join(ErrPersistFailed, err)
	}
	d.lastPersistedCount = len(snap)
	return nil
}
