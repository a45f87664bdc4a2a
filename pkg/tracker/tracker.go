package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/customfit-ai/customfit-go/pkg/async"
	"github.com/customfit-ai/customfit-go/pkg/connectivity"
	"github.com/customfit-ai/customfit-go/pkg/eventqueue"
	"github.com/customfit-ai/customfit-go/pkg/events"
	"github.com/customfit-ai/customfit-go/pkg/storage"
	"github.com/customfit-ai/customfit-go/pkg/transport"
)

// Validator normalizes event input before admission. Implementations
// return the cleaned value or an error that rejects the event.
type Validator interface {
	ValidateName(name string) (string, error)
	ValidateProperties(props events.Properties) (events.Properties, error)
}

// SummaryFlusher flushes pending summary data. It is invoked before
// every admission and every delivery attempt so summaries always reach
// the collector before the events that logically follow them.
type SummaryFlusher interface {
	FlushPending(ctx context.Context) (int, error)
}

// ConnectionObserver reports collector reachability and receives
// delivery outcomes. *connectivity.Monitor satisfies it.
type ConnectionObserver interface {
	Connected() bool
	OnStatusChanged(connectivity.Listener)
	RecordSuccess()
	RecordFailure(reason string)
}

// Drop reasons passed to the events-dropped callback.
const (
	ReasonQueueFull             = "queue_full"
	ReasonSustainedBackpressure = "sustained_backpressure"
	ReasonRequeueOverflow       = "requeue_overflow"
)

// BackpressureMetrics describes one applied admission delay.
type BackpressureMetrics struct {
	Utilization         float64
	ConsecutiveFailures int
	QueueSize           int
	QueueCapacity       int
}

// DroppedFunc is notified whenever records are lost, with the count and
// one of the Reason constants.
type DroppedFunc func(count int, reason string)

// BackpressureFunc is notified whenever admission backpressure delays a
// Track call.
type BackpressureFunc func(BackpressureMetrics)

// Admission and flush policy.
const (
	backpressureThreshold = 80.0
	autoFlushThreshold    = 75.0
	forceDropFailures     = 5

	defaultBackpressureBase = 100 * time.Millisecond
	defaultBackpressureMax  = 5 * time.Second
	backpressureJitter      = 0.2

	// Adaptive batch sizing: small batches while recovering from
	// failures, large ones to drain a hot queue, light ones when the
	// queue is nearly idle.
	batchSizeRecovery = 25
	batchSizeDrain    = 150
	batchSizeLight    = 50
	batchSizeDefault  = 100
)

// DefaultEndpoint is the production collector events endpoint.
const DefaultEndpoint = "https://api.customfit.ai/v1/events"

// DefaultFlushInterval drives the periodic background flush.
const DefaultFlushInterval = 30 * time.Second

const sdkVersion = "1.1.0"

// Tracker is the delivery pipeline. Construct with New; all methods are
// safe for concurrent use.
type Tracker struct {
	apiKey     string
	endpoint   string
	version    string
	userID     string
	sessionID  string
	user       any
	autoFlush  bool
	interval   time.Duration
	delayBase  time.Duration
	delayMax   time.Duration

	queue     *eventqueue.Durable
	pool      *events.Pool
	validator Validator
	summaries SummaryFlusher
	conn      ConnectionObserver
	transport transport.Transport
	breaker   *transport.CircuitBreaker
	flights   *async.Group[bool]
	log       *slog.Logger

	onDropped      DroppedFunc
	onBackpressure BackpressureFunc

	// store, capacity, and debounce feed default queue construction in
	// New.
	store    storage.Storage
	capacity int
	debounce time.Duration

	stateMu     sync.Mutex
	failures    int
	requeueLost uint64

	closed     atomic.Bool
	tickerOnce sync.Once
	tickerStop chan struct{}
	reloadDone <-chan struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithEndpoint overrides the collector events URL.
func WithEndpoint(url string) Option {
	return func(t *Tracker) {
		if url != "" {
			t.endpoint = url
		}
	}
}

// WithSDKVersion overrides the reported SDK version string.
func WithSDKVersion(v string) Option {
	return func(t *Tracker) {
		if v != "" {
			t.version = v
		}
	}
}

// WithIdentity sets the user and session identifiers that key flush
// deduplication and default the delivery user object.
func WithIdentity(userID, sessionID string) Option {
	return func(t *Tracker) {
		if userID != "" {
			t.userID = userID
		}
		if sessionID != "" {
			t.sessionID = sessionID
		}
	}
}

// WithUser sets the user object embedded in every delivery payload.
func WithUser(user any) Option {
	return func(t *Tracker) { t.user = user }
}

// WithStorage sets the backend the durable queue persists snapshots to.
// Ignored when WithQueue supplies a prebuilt queue.
func WithStorage(store storage.Storage) Option {
	return func(t *Tracker) { t.store = store }
}

// WithQueueCapacity bounds the event queue. Ignored when WithQueue
// supplies a prebuilt queue.
func WithQueueCapacity(capacity int) Option {
	return func(t *Tracker) {
		if capacity > 0 {
			t.capacity = capacity
		}
	}
}

// WithPersistDebounce sets the queue snapshot write-coalescing window.
// Ignored when WithQueue supplies a prebuilt queue.
func WithPersistDebounce(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.debounce = d
		}
	}
}

// WithQueue replaces the default durable queue entirely. The caller owns
// the queue's drop callback wiring.
func WithQueue(q *eventqueue.Durable) Option {
	return func(t *Tracker) { t.queue = q }
}

// WithPool injects the record pool shared with the tracker's owner.
func WithPool(p *events.Pool) Option {
	return func(t *Tracker) {
		if p != nil {
			t.pool = p
		}
	}
}

// WithValidator sets the event input validator. Without one, events are
// admitted as given.
func WithValidator(v Validator) Option {
	return func(t *Tracker) { t.validator = v }
}

// WithSummaryFlusher sets the summary hook flushed before admissions and
// deliveries.
func WithSummaryFlusher(s SummaryFlusher) Option {
	return func(t *Tracker) { t.summaries = s }
}

// WithConnectionObserver replaces the default connectivity monitor.
func WithConnectionObserver(c ConnectionObserver) Option {
	return func(t *Tracker) {
		if c != nil {
			t.conn = c
		}
	}
}

// WithTransport replaces the default retrying HTTP sender.
func WithTransport(tr transport.Transport) Option {
	return func(t *Tracker) {
		if tr != nil {
			t.transport = tr
		}
	}
}

// WithCircuitBreaker replaces the default breaker (5 failures, 2 minute
// cooldown).
func WithCircuitBreaker(cb *transport.CircuitBreaker) Option {
	return func(t *Tracker) {
		if cb != nil {
			t.breaker = cb
		}
	}
}

// WithAutoFlush toggles utilization-triggered background flushing.
func WithAutoFlush(enabled bool) Option {
	return func(t *Tracker) { t.autoFlush = enabled }
}

// WithFlushInterval sets the periodic flush cadence. Non-positive
// disables the timer.
func WithFlushInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// WithBackpressureDelay tunes the admission delay curve.
func WithBackpressureDelay(base, max time.Duration) Option {
	return func(t *Tracker) {
		if base > 0 {
			t.delayBase = base
		}
		if max > 0 {
			t.delayMax = max
		}
	}
}

// WithOnEventsDropped registers the data-loss notification callback.
func WithOnEventsDropped(fn DroppedFunc) Option {
	return func(t *Tracker) { t.onDropped = fn }
}

// WithOnBackpressureApplied registers the backpressure notification
// callback.
func WithOnBackpressureApplied(fn BackpressureFunc) Option {
	return func(t *Tracker) { t.onBackpressure = fn }
}

// WithLogger sets the tracker's logger.
func WithLogger(log *slog.Logger) Option {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// New creates a Tracker delivering events with apiKey. The persisted
// snapshot reload starts in the background; events may be tracked
// immediately.
func New(apiKey string, opts ...Option) (*Tracker, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	t := &Tracker{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		version:    sdkVersion,
		userID:     "anonymous",
		sessionID:  uuid.NewString(),
		autoFlush:  true,
		interval:   DefaultFlushInterval,
		delayBase:  defaultBackpressureBase,
		delayMax:   defaultBackpressureMax,
		capacity:   eventqueue.DefaultCapacity,
		flights:    async.NewGroup[bool](),
		log:        slog.Default(),
		tickerStop: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.pool == nil {
		t.pool = events.NewPool(0)
	}
	if t.conn == nil {
		t.conn = connectivity.NewMonitor(connectivity.WithLogger(t.log))
	}
	if t.transport == nil {
		t.transport = transport.NewSender(transport.WithLogger(t.log))
	}
	if t.breaker == nil {
		t.breaker = transport.NewCircuitBreaker(0, 0)
	}
	if t.user == nil {
		t.user = map[string]string{"user_customer_id": t.userID}
	}
	if t.queue == nil {
		queueOpts := []eventqueue.DurableOption{
			eventqueue.WithCapacity(t.capacity),
			eventqueue.WithLogger(t.log),
			eventqueue.WithOnDropped(func(dropped []*events.Record) {
				t.pool.ReleaseAll(dropped)
				t.notifyDropped(len(dropped), ReasonQueueFull)
			}),
		}
		if t.debounce > 0 {
			queueOpts = append(queueOpts, eventqueue.WithDebounce(t.debounce))
		}
		t.queue = eventqueue.NewDurable(t.store, queueOpts...)
	}

	t.reloadDone = t.queue.StartReload(context.Background())

	// Catch up as soon as the network returns.
	t.conn.OnStatusChanged(func(s connectivity.Status) {
		if s == connectivity.Connected && !t.closed.Load() && t.queue.Size() > 0 {
			t.flushAsync()
		}
	})

	return t, nil
}

// ReloadDone closes when the startup snapshot reload has finished.
func (t *Tracker) ReloadDone() <-chan struct{} { return t.reloadDone }

// Track admits one event into the pipeline. It returns quickly in the
// common case; when the queue runs hot it may delay the caller per the
// backpressure policy, but it never returns a delivery error. Only
// validation failures and shutdown reject an event.
func (t *Tracker) Track(ctx context.Context, name string, props events.Properties) error {
	if t.closed.Load() {
		return ErrShutdown
	}

	name, props, err := t.validate(name, props)
	if err != nil {
		return err
	}

	// Summaries precede the events they describe.
	t.flushSummaries(ctx)

	t.applyBackpressure(ctx)

	rec := t.pool.Acquire()
	rec.ID = uuid.New()
	rec.SubjectID = name
	rec.Type = events.EventTypeTrack
	rec.Properties = props
	rec.SessionID = t.sessionID
	rec.TimestampMs = time.Now().UnixMilli()
	t.queue.Add(rec)

	t.ensureTicker()

	if t.autoFlush && t.conn.Connected() && t.queue.Utilization() >= autoFlushThreshold {
		t.flushAsync()
	}
	return nil
}

// Flush delivers queued events now. Concurrent calls collapse into a
// single delivery attempt and all callers receive its result. The
// returned bool is true when the queue drained (or was already empty).
func (t *Tracker) Flush(ctx context.Context) (bool, error) {
	if t.closed.Load() {
		return false, ErrShutdown
	}
	return t.flights.Do(ctx, t.flushKey(), t.doFlush).Await()
}

// GetPendingCount returns the number of queued, undelivered events.
func (t *Tracker) GetPendingCount() int {
	return t.queue.Size()
}

// Shutdown stops the pipeline: timers halt, pending flush waiters are
// cancelled, one final delivery is attempted, and the remaining queue is
// snapshotted to storage. Safe to call more than once; only the first
// call does work.
func (t *Tracker) Shutdown(ctx context.Context) error {
	if t.closed.Swap(true) {
		return nil
	}
	close(t.tickerStop)
	t.flights.CancelAll()

	if _, err := t.doFlush(ctx); err != nil {
		t.log.Warn("final flush during shutdown failed", "error", err)
	}

	err := t.queue.Close(ctx)
	t.pool.Clear()
	return err
}

// validate runs the configured validator, wrapping rejections in
// ErrValidation.
func (t *Tracker) validate(name string, props events.Properties) (string, events.Properties, error) {
	if t.validator == nil {
		return name, props, nil
	}
	name, err := t.validator.ValidateName(name)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	props, err = t.validator.ValidateProperties(props)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return name, props, nil
}

// applyBackpressure slows admission when the queue runs hot. It first
// tries to make room with a synchronous flush; if the queue is still at
// the threshold the caller is delayed exponentially, and a sustained
// streak sheds the oldest quarter of the queue.
func (t *Tracker) applyBackpressure(ctx context.Context) {
	if t.queue.Utilization() < backpressureThreshold {
		return
	}

	if _, err := t.flights.Do(ctx, t.flushKey(), t.doFlush).Await(); err != nil {
		t.log.Debug("backpressure flush attempt failed", "error", err)
	}
	if t.queue.Utilization() < backpressureThreshold {
		return
	}

	t.stateMu.Lock()
	t.failures++
	failures := t.failures
	t.stateMu.Unlock()

	metrics := BackpressureMetrics{
		Utilization:         t.queue.Utilization(),
		ConsecutiveFailures: failures,
		QueueSize:           t.queue.Size(),
		QueueCapacity:       t.queue.Capacity(),
	}
	t.notifyBackpressure(metrics)

	delay := t.backpressureDelay(failures)
	t.log.Debug("admission backpressure applied",
		"delay", delay, "utilization", metrics.Utilization, "failures", failures)
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}

	if failures >= forceDropFailures && t.queue.Size() >= t.queue.Capacity() {
		dropped := t.queue.DropOldest(t.queue.Capacity() / 4)
		if len(dropped) > 0 {
			t.pool.ReleaseAll(dropped)
			t.notifyDropped(len(dropped), ReasonSustainedBackpressure)
			t.log.Warn("sustained backpressure forced event shedding",
				"dropped", len(dropped), "failures", failures)
		}
	}
}

// backpressureDelay computes the capped exponential admission delay with
// up to 20% jitter.
func (t *Tracker) backpressureDelay(failures int) time.Duration {
	if failures < 1 {
		failures = 1
	}
	exp := min(failures-1, 30)
	delay := time.Duration(float64(t.delayBase) * math.Pow(2, float64(exp)))
	if delay > t.delayMax {
		delay = t.delayMax
	}
	jitter := time.Duration(rand.Float64() * backpressureJitter * float64(delay))
	return delay + jitter
}

// flushKey keys single-flight deduplication by the tracked identity, so
// one in-flight delivery per user session.
func (t *Tracker) flushKey() string {
	return t.userID + "|" + t.sessionID
}

func (t *Tracker) flushAsync() {
	f := t.flights.Do(context.Background(), t.flushKey(), t.doFlush)
	go func() {
		if _, err := f.Await(); err != nil && !errors.Is(err, async.ErrCanceled) {
			t.log.Debug("background flush failed", "error", err)
		}
	}()
}

// doFlush is the only path that talks to the network. It drains the
// queue batch by batch until empty or a delivery fails.
func (t *Tracker) doFlush(ctx context.Context) (bool, error) {
	if t.queue.Size() == 0 {
		return true, nil
	}
	if !t.conn.Connected() {
		return false, ErrOffline
	}
	if !t.breaker.Allow() {
		return false, transport.ErrCircuitOpen
	}

	t.flushSummaries(ctx)

	for {
		batch := t.queue.PopBatch(t.adaptiveBatchSize())
		if len(batch) == 0 {
			return true, nil
		}

		body, err := t.encodePayload(batch)
		if err != nil {
			t.requeue(batch)
			return false, fmt.Errorf("encode delivery payload: %w", err)
		}

		if _, err := t.transport.Post(ctx, t.endpoint, body, t.headers()); err != nil {
			return false, t.deliveryFailed(batch, err)
		}
		t.deliverySucceeded(batch)

		if t.queue.Size() == 0 {
			return true, nil
		}
		select {
		case <-ctx.Done():
			// Partial drain; the rest stays queued for the next flush.
			return false, nil
		default:
		}
	}
}

// adaptiveBatchSize picks the delivery batch size from the failure
// streak and queue utilization.
func (t *Tracker) adaptiveBatchSize() int {
	t.stateMu.Lock()
	failures := t.failures
	t.stateMu.Unlock()

	util := t.queue.Utilization()
	switch {
	case failures > 3:
		return batchSizeRecovery
	case util > 80:
		return batchSizeDrain
	case util < 20:
		return batchSizeLight
	default:
		return batchSizeDefault
	}
}

type deliveryPayload struct {
	User       any              `json:"user"`
	Events     []*events.Record `json:"events"`
	SDKVersion string           `json:"cf_client_sdk_version"`
}

func (t *Tracker) encodePayload(batch []*events.Record) ([]byte, error) {
	return json.Marshal(deliveryPayload{
		User:       t.user,
		Events:     batch,
		SDKVersion: t.version,
	})
}

func (t *Tracker) headers() map[string]string {
	return map[string]string{
		"Authorization":    "Bearer " + t.apiKey,
		"X-CF-SDK-Version": t.version,
	}
}

func (t *Tracker) deliverySucceeded(batch []*events.Record) {
	t.breaker.RecordSuccess()
	t.conn.RecordSuccess()

	t.stateMu.Lock()
	t.failures = 0
	t.stateMu.Unlock()

	t.pool.ReleaseAll(batch)
	t.log.Debug("delivered event batch", "count", len(batch))
}

// deliveryFailed updates failure state and returns the aggregated flush
// error, distinguishing a fully requeued batch from one that lost
// records to capacity.
func (t *Tracker) deliveryFailed(batch []*events.Record, cause error) error {
	t.stateMu.Lock()
	t.failures++
	failures := t.failures
	t.stateMu.Unlock()

	t.breaker.RecordFailure()
	t.conn.RecordFailure(cause.Error())
	t.log.Warn("event delivery failed",
		"count", len(batch), "failures", failures, "error", cause)

	lost := t.requeue(batch)
	if lost > 0 {
		return fmt.Errorf("%w: delivery failed and %d of %d records could not be requeued: %w",
			ErrRequeueLost, lost, len(batch), cause)
	}
	return fmt.Errorf("delivery failed, all %d records requeued: %w", len(batch), cause)
}

// requeue puts a failed batch back at the head of the queue and reports
// the records that no longer fit.
func (t *Tracker) requeue(batch []*events.Record) int {
	lost := t.queue.RequeueFront(batch)
	if len(lost) == 0 {
		return 0
	}
	t.stateMu.Lock()
	t.requeueLost += uint64(len(lost))
	t.stateMu.Unlock()

	t.pool.ReleaseAll(lost)
	t.notifyDropped(len(lost), ReasonRequeueOverflow)
	return len(lost)
}

func (t *Tracker) flushSummaries(ctx context.Context) {
	if t.summaries == nil {
		return
	}
	if _, err := t.summaries.FlushPending(ctx); err != nil {
		t.log.Warn("summary flush failed", "error", err)
	}
}

func (t *Tracker) notifyDropped(count int, reason string) {
	if t.onDropped != nil && count > 0 {
		t.onDropped(count, reason)
	}
}

func (t *Tracker) notifyBackpressure(metrics BackpressureMetrics) {
	if t.onBackpressure != nil {
		t.onBackpressure(metrics)
	}
}

// ensureTicker lazily starts the periodic flush on the first tracked
// event, so an idle tracker never spins a timer.
func (t *Tracker) ensureTicker() {
	if t.interval <= 0 {
		return
	}
	t.tickerOnce.Do(func() {
		go t.runTicker()
	})
}

func (t *Tracker) runTicker() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.tickerStop:
			return
		case <-ticker.C:
			if t.queue.Size() > 0 && t.conn.Connected() {
				t.flushAsync()
			}
		}
	}
}
