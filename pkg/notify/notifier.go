// Package notify implements the per-collection change notifier: a registry of
// snapshot callbacks fed from a source function.
//
// A Notifier never hands out diffs. On Subscribe and on every Publish it asks
// its source for the whole collection and gives each callback its own copy.
// Callbacks run synchronously, in registration order, on the goroutine that
// subscribed or published. A callback that panics is recovered, logged and
// skipped; delivery continues with the next one.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/peermall/peerstore/pkg/metrics"
)

// Callback receives a full snapshot of the collection.
type Callback[T any] func(snapshot []T)

// Source produces the current collection. A non-nil error is logged; the
// returned slice is still delivered.
type Source[T any] func() ([]T, error)

// Cloner is implemented by entities holding slices or maps, so that
// snapshots delivered to different callbacks share no mutable state.
type Cloner[T any] interface {
	Clone() T
}

type subscription[T any] struct {
	id uint64
	cb Callback[T]
}

// Notifier fans collection snapshots out to subscribers.
type Notifier[T any] struct {
	name    string
	source  Source[T]
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	subs   []subscription[T]
	nextID uint64
	closed bool
}

// Option configures a Notifier.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// WithLogger sets the logger used for source errors and callback panics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// New creates a notifier named after the collection it serves.
func New[T any](name string, source Source[T], opts ...Option) *Notifier[T] {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Notifier[T]{
		name:    name,
		source:  source,
		logger:  c.logger,
		metrics: c.metrics,
	}
}

// Subscribe registers cb and immediately delivers the current snapshot to it.
// The returned function unregisters cb; calling it again is a no-op.
func (n *Notifier[T]) Subscribe(cb Callback[T]) (unsubscribe func()) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		n.logger.Warn("subscribe on closed notifier ignored", "collection", n.name)
		return func() {}
	}
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription[T]{id: id, cb: cb})
	n.mu.Unlock()

	n.deliver(subscription[T]{id: id, cb: cb}, n.snapshot())

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

// Publish re-reads the collection and delivers it to every subscriber.
func (n *Notifier[T]) Publish() {
	n.mu.Lock()
	if n.closed || len(n.subs) == 0 {
		n.mu.Unlock()
		return
	}
	subs := slices.Clone(n.subs)
	n.mu.Unlock()

	snapshot := n.snapshot()
	for _, s := range subs {
		if !n.registered(s.id) {
			continue
		}
		n.deliver(s, snapshot)
	}
}

// Len returns the number of registered callbacks.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Close drops every subscription. Later Subscribe calls are ignored.
func (n *Notifier[T]) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	n.subs = nil
}

func (n *Notifier[T]) snapshot() []T {
	items, err := n.source()
	if err != nil {
		n.logger.Warn("snapshot source reported an error", "collection", n.name, "error", err)
	}
	if items == nil {
		items = []T{}
	}
	return items
}

func (n *Notifier[T]) registered(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.ContainsFunc(n.subs, func(s subscription[T]) bool { return s.id == id })
}

func (n *Notifier[T]) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = slices.DeleteFunc(n.subs, func(s subscription[T]) bool { return s.id == id })
}

func (n *Notifier[T]) deliver(s subscription[T], snapshot []T) {
	defer func() {
		if recovered := recover(); recovered != nil {
			n.metrics.CallbackPanicked(n.name)
			attrs := []any{"collection", n.name, "subscription", s.id, "error", fmt.Sprint(recovered)}
			if n.logger.Enabled(context.Background(), slog.LevelDebug) {
				attrs = append(attrs, "stack", string(debug.Stack()))
			}
			n.logger.Error("subscriber callback panicked", attrs...)
		}
	}()
	s.cb(Copy(snapshot))
	n.metrics.Delivered(n.name)
}

// Copy returns a copy of items; elements implementing Cloner are cloned.
func Copy[T any](items []T) []T {
	out := make([]T, len(items))
	for i, v := range items {
		if c, ok := any(v).(Cloner[T]); ok {
			out[i] = c.Clone()
			continue
		}
		out[i] = v
	}
	return out
}
