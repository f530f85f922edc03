// Package content forwards content-entity CRUD to an asynchronous,
// scope-addressed record service.
//
// The bridge never touches the KV tier. It passes the caller's context
// through untouched, performs no local merging, and turns every service
// failure into a logged error of kind core.ErrRemote paired with a safe
// default value.
package content

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/metrics"
)

// Bridge is the async content bridge.
type Bridge struct {
	service core.RecordService
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	calls    atomic.Int64
	failures atomic.Int64

	mu      sync.Mutex
	lastErr string
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger failures are reported to.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// WithClock overrides the time source used for synthesized timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a bridge over service.
func New(service core.RecordService, opts ...Option) *Bridge {
	b := &Bridge{
		service: service,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns every record of the address scope in service order.
// On failure it returns an empty, non-nil slice.
func (b *Bridge) List(ctx context.Context, address string) ([]core.Record, error) {
	records, err := b.service.List(ctx, address)
	if err != nil {
		return []core.Record{}, b.fail(ctx, "list", address, err)
	}
	b.ok("list")
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

// Create stores rec under address and returns the stored record.
//
// The caller's id is discarded; the service assigns one. The stored form is
// resolved by listing the scope again. When that fails or the record is not
// listed yet, the result is synthesized from rec, the assigned id and fresh
// timestamps. On failure it returns the zero Record.
func (b *Bridge) Create(ctx context.Context, address string, rec core.Record) (core.Record, error) {
	input := rec.Clone()
	input.ID = ""
	input.Address = address

	id, err := b.service.Create(ctx, address, input)
	if err != nil {
		return core.Record{}, b.fail(ctx, "create", address, err)
	}
	b.ok("create")

	if stored, ok := b.resolve(ctx, address, id); ok {
		return stored, nil
	}

	stamp := core.Timestamp(b.now())
	input.ID = id
	input.CreatedAt = stamp
	input.UpdatedAt = stamp
	return input, nil
}

func (b *Bridge) resolve(ctx context.Context, address, id string) (core.Record, bool) {
	records, err := b.service.List(ctx, address)
	if err != nil {
		b.logger.WarnContext(ctx, "could not resolve created record, synthesizing it",
			"address", address, "id", id, "error", err)
		return core.Record{}, false
	}
	idx := slices.IndexFunc(records, func(r core.Record) bool { return r.ID == id })
	if idx < 0 {
		b.logger.DebugContext(ctx, "created record not listed yet", "address", address, "id", id)
		return core.Record{}, false
	}
	return records[idx], true
}

// Update applies patch to the record with the given id.
// An unknown id is a no-op.
func (b *Bridge) Update(ctx context.Context, id string, patch core.Patch) error {
	return b.byID(ctx, "update", id, b.service.Update(ctx, id, patch))
}

// Delete removes the record with the given id. An unknown id is a no-op.
func (b *Bridge) Delete(ctx context.Context, id string) error {
	return b.byID(ctx, "delete", id, b.service.Delete(ctx, id))
}

// byID settles the outcome of an id-addressed call.
func (b *Bridge) byID(ctx context.Context, op, id string, err error) error {
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return b.fail(ctx, op, id, err)
	}
	if err != nil {
		b.logger.DebugContext(ctx, "record not found, nothing to do", "op", op, "id", id)
	}
	b.ok(op)
	return nil
}

func (b *Bridge) ok(op string) {
	b.calls.Add(1)
	b.metrics.BridgeOp(op, nil)
}

func (b *Bridge) fail(ctx context.Context, op, key string, err error) error {
	opErr := &core.OpError{Op: op, Key: key, Kind: core.ErrRemote, Err: err}
	b.calls.Add(1)
	b.failures.Add(1)
	b.metrics.BridgeOp(op, opErr)

	b.mu.Lock()
	b.lastErr = opErr.Error()
	b.mu.Unlock()

	b.logger.ErrorContext(ctx, "record service call failed", "op", op, "key", key, "error", err)
	return opErr
}
