package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/logging"
	"github.com/erpledger/erpledger/internal/metrics"
)

const (
	defaultBufferSize     = 1024
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher is an asynchronous Notifier. Events are queued on a bounded
// buffer and published by a single worker goroutine. A full buffer drops
// the event; a failed publish is logged and counted. Nothing is retried.
type Dispatcher struct {
	pub     Publisher
	logger  *zap.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	size    int

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logging.OrNop(l) }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithBufferSize sets the queue capacity.
func WithBufferSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.size = n
		}
	}
}

// WithPublishTimeout bounds each publish call.
func WithPublishTimeout(t time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// NewDispatcher starts a dispatcher that publishes through pub.
func NewDispatcher(pub Publisher, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		pub:     pub,
		logger:  zap.NewNop(),
		timeout: defaultPublishTimeout,
		size:    defaultBufferSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.queue = make(chan Event, d.size)

	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues e without blocking. Delivery happens after Notify
// returns and is detached from ctx.
func (d *Dispatcher) Notify(_ context.Context, e Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(e, "dispatcher closed")
		return
	}
	select {
	case d.queue <- e:
	default:
		d.drop(e, "buffer full")
	}
}

func (d *Dispatcher) drop(e Event, reason string) {
	d.metrics.EventDropped()
	d.logger.Warn("event dropped",
		zap.String("reason", reason),
		zap.String("event", e.Event),
		zap.String("tenant", e.TenantID),
		zap.Uint("entry_id", e.EntryID),
	)
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		d.publish(e)
	}
}

func (d *Dispatcher) publish(e Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.pub.Publish(ctx, e)
	d.metrics.EventPublished(err)
	if err != nil {
		d.logger.Warn("event publish failed",
			zap.Error(err),
			zap.String("event", e.Event),
			zap.String("tenant", e.TenantID),
			zap.Uint("entry_id", e.EntryID),
		)
		return
	}
	d.logger.Debug("event published", zap.String("event", e.Event), zap.String("id", e.ID))
}

// Close stops accepting events and waits until queued events have been
// published.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
}
