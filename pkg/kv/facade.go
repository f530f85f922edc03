// Package kv implements the durable KV facade: typed JSON get/set/remove/clear
// over a core.Medium, restricted to the closed logical key space of core.Key.
//
// The facade never panics and never leaves a caller without an answer:
//
//   - with no medium configured every call is a silent no-op (reads report
//     "not found", writes are discarded);
//   - a stored value that is not valid JSON reads as "not found" together
//     with an error of kind core.ErrCorrupt;
//   - a write rejected by the medium returns an error of kind
//     core.ErrQuotaExceeded or core.ErrUnavailable and is not applied.
//
// Every failure is logged once, here, at the boundary.
package kv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bmatcuk/doublestar/v4"
	json "github.com/goccy/go-json"

	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/metrics"
)

// Facade is the typed view over a durable medium.
type Facade struct {
	medium  core.Medium
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Facade.
type Option func(*Facade)

// WithLogger sets the logger used to report degraded operations.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Facade) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithMetrics attaches prometheus counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Facade) {
		f.metrics = m
	}
}

// New creates a facade over medium. A nil medium yields an unavailable facade
// whose operations are all no-ops.
func New(medium core.Medium, opts ...Option) *Facade {
	f := &Facade{
		medium: medium,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Available reports whether a durable medium backs the facade.
func (f *Facade) Available() bool {
	return f.medium != nil
}

// Medium returns the underlying medium (nil when unavailable).
func (f *Facade) Medium() core.Medium {
	return f.medium
}

// Get decodes the value stored under key into dst.
// It returns false when the key is absent, the facade is unavailable, the
// medium cannot be read or the stored value is corrupt; only the last two
// also return an error. dst is left in an unspecified state on error.
func (f *Facade) Get(key core.Key, dst any) (bool, error) {
	if !key.Valid() {
		return false, &core.OpError{Op: "get", Key: string(key), Kind: core.ErrUnknownKey}
	}
	if f.medium == nil {
		return false, nil
	}

	raw, ok, err := f.medium.GetItem(key.Physical())
	if err != nil {
		opErr := &core.OpError{Op: "get", Key: string(key), Kind: kindOr(err, core.ErrUnavailable), Err: err}
		f.logger.Warn("durable read failed, treating as absent", "key", key, "error", err)
		f.metrics.KVOp(string(key), "get", opErr)
		return false, opErr
	}
	if !ok {
		f.metrics.KVOp(string(key), "get", nil)
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		opErr := &core.OpError{Op: "get", Key: string(key), Kind: core.ErrCorrupt, Err: err}
		f.logger.Error("stored value is corrupt, treating as absent", "key", key, "error", err)
		f.metrics.KVOp(string(key), "get", opErr)
		return false, opErr
	}

	f.metrics.KVOp(string(key), "get", nil)
	return true, nil
}

// Set encodes value as JSON and replaces whatever key held.
func (f *Facade) Set(key core.Key, value any) error {
	if !key.Valid() {
		return &core.OpError{Op: "set", Key: string(key), Kind: core.ErrUnknownKey}
	}

	data, err := json.Marshal(value)
	if err != nil {
		return &core.OpError{Op: "set", Key: string(key), Kind: core.ErrInvalid, Err: err}
	}

	if f.medium == nil {
		f.logger.Debug("no durable medium, discarding write", "key", key)
		return nil
	}

	if err := f.medium.SetItem(key.Physical(), string(data)); err != nil {
		opErr := &core.OpError{Op: "set", Key: string(key), Kind: kindOr(err, core.ErrUnavailable), Err: err}
		f.logger.Warn("durable write not applied", "key", key, "bytes", len(data), "error", err)
		f.metrics.KVOp(string(key), "set", opErr)
		return opErr
	}

	f.metrics.KVOp(string(key), "set", nil)
	return nil
}

// Remove deletes key entirely.
func (f *Facade) Remove(key core.Key) error {
	if !key.Valid() {
		return &core.OpError{Op: "remove", Key: string(key), Kind: core.ErrUnknownKey}
	}
	if f.medium == nil {
		return nil
	}

	if err := f.medium.RemoveItem(key.Physical()); err != nil {
		opErr := &core.OpError{Op: "remove", Key: string(key), Kind: kindOr(err, core.ErrUnavailable), Err: err}
		f.logger.Warn("durable remove not applied", "key", key, "error", err)
		f.metrics.KVOp(string(key), "remove", opErr)
		return opErr
	}

	f.metrics.KVOp(string(key), "remove", nil)
	return nil
}

// Clear removes every key of the enumeration. It is meant for full resets.
func (f *Facade) Clear() error {
	var errs []error
	for _, key := range core.Keys() {
		if err := f.Remove(key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Raw returns the undecoded string stored under key.
func (f *Facade) Raw(key core.Key) (string, bool, error) {
	if !key.Valid() {
		return "", false, &core.OpError{Op: "raw", Key: string(key), Kind: core.ErrUnknownKey}
	}
	if f.medium == nil {
		return "", false, nil
	}
	raw, ok, err := f.medium.GetItem(key.Physical())
	if err != nil {
		return "", false, &core.OpError{Op: "raw", Key: string(key), Kind: kindOr(err, core.ErrUnavailable), Err: err}
	}
	return raw, ok, nil
}

// Keys lists the logical keys currently holding a value whose name matches
// the doublestar pattern. An empty pattern matches everything.
func (f *Facade) Keys(pattern string) ([]core.Key, error) {
	if pattern == "" {
		pattern = "*"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &core.OpError{Op: "keys", Key: pattern, Kind: core.ErrInvalid, Err: doublestar.ErrBadPattern}
	}

	var out []core.Key
	for _, key := range core.Keys() {
		match, err := doublestar.Match(pattern, string(key))
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", key, err)
		}
		if !match {
			continue
		}
		if _, ok, err := f.Raw(key); err == nil && ok {
			out = append(out, key)
		}
	}
	return out, nil
}

// Load is a typed convenience over Get.
func Load[T any](f *Facade, key core.Key) (T, bool, error) {
	var v T
	ok, err := f.Get(key, &v)
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}
	return v, true, nil
}

func kindOr(err error, fallback error) error {
	if kind := core.KindOf(err); kind != nil {
		return kind
	}
	return fallback
}
