// Package collection implements the collection-manager pattern shared by every
// KV-tier domain: get-all, get-by-id, upsert and delete over one JSON array
// stored under one logical key.
//
// Entities are typed structs (T) and updates are typed patches (P): a patch
// is a struct whose fields are pointers or omitempty values, so that the
// fields it carries are exactly the JSON members it encodes. Upsert merges
// shallowly: each top-level member of the patch replaces the stored member
// of the same name whole; members absent from the patch keep their stored
// value. Nested objects are therefore replaced, never deep-merged.
//
// Every mutation reads the whole collection, changes it in memory and writes
// the whole collection back. Members unknown to T survive that rewrite.
package collection

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/metrics"
	"github.com/peermall/peerstore/pkg/notify"
)

// Reserved JSON members stamped by the manager.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// Placement decides where new entities enter the collection.
type Placement int

const (
	Append  Placement = iota // oldest first
	Prepend                  // newest first
)

// Schema describes one domain collection.
type Schema[T any] struct {
	// Key is the logical key the collection is stored under.
	Key core.Key
	// Defaults returns an entity carrying the domain defaults for fields a new
	// entity must have. Nil means the zero T.
	Defaults func() T
	// Normalize fills derived fields of a merged entity before validation. Optional.
	Normalize func(T) T
	// Validate rejects entities that violate domain rules. Optional.
	Validate func(T) error
	// Placement of new entities.
	Placement Placement
}

type object = map[string]json.RawMessage

// Manager is the generic collection manager.
type Manager[T any, P any] struct {
	kv       *kv.Facade
	schema   Schema[T]
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	notifier *notify.Notifier[T]

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	newID    func() string
	reactive bool
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics attaches prometheus counters to the manager's notifier.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithIDGenerator overrides the id source used for new entities.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) {
		o.newID = fn
	}
}

// WithReactivity gives the manager a change notifier.
func WithReactivity(enabled bool) Option {
	return func(o *options) {
		o.reactive = enabled
	}
}

// New creates a manager for schema on top of facade.
func New[T any, P any](facade *kv.Facade, schema Schema[T], opts ...Option) *Manager[T, P] {
	o := options{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager[T, P]{
		kv:     facade,
		schema: schema,
		logger: o.logger.With("collection", string(schema.Key)),
		now:    o.now,
		newID:  o.newID,
	}
	if o.reactive {
		m.notifier = notify.New[T](string(schema.Key), m.GetAll,
			notify.WithLogger(o.logger),
			notify.WithMetrics(o.metrics),
		)
	}
	return m
}

// Now returns the current time from the manager's clock.
func (m *Manager[T, P]) Now() time.Time {
	return m.now()
}

// Key returns the logical key of the collection.
func (m *Manager[T, P]) Key() core.Key {
	return m.schema.Key
}

// Notifier returns the change notifier, or nil for non-reactive collections.
func (m *Manager[T, P]) Notifier() *notify.Notifier[T] {
	return m.notifier
}

// GetAll returns the collection. The slice is never nil: an absent or
// corrupt collection reads as empty, the latter together with its error.
func (m *Manager[T, P]) GetAll() ([]T, error) {
	var items []T
	if _, err := m.kv.Get(m.schema.Key, &items); err != nil {
		return []T{}, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// GetByID returns the entity with the given id.
func (m *Manager[T, P]) GetByID(id string) (T, bool, error) {
	var zero T
	items, raw, err := m.load()
	if err != nil {
		return zero, false, err
	}
	idx := indexOf(raw, id)
	if idx < 0 {
		return zero, false, nil
	}
	return items[idx], true, nil
}

// Has reports whether an entity with the given id exists.
func (m *Manager[T, P]) Has(id string) (bool, error) {
	_, ok, err := m.GetByID(id)
	return ok, err
}

// Upsert inserts or shallow-merges patch by id and persists the collection.
//
// On a write failure the returned entity is the one that would have been
// stored and the error says it was not; subscribers are not notified.
// When the stored collection cannot be read (other than being corrupt)
// nothing is written and the zero entity is returned with the error.
func (m *Manager[T, P]) Upsert(patch P) (T, error) {
	var zero T

	fields, err := toObject(patch)
	if err != nil {
		return zero, &core.OpError{Op: "upsert", Key: string(m.schema.Key), Kind: core.ErrInvalid, Err: err}
	}

	m.mu.Lock()
	entity, err := m.upsertLocked(fields)
	m.mu.Unlock()

	if err == nil {
		m.publish()
	}
	return entity, err
}

func (m *Manager[T, P]) upsertLocked(fields object) (T, error) {
	var zero T
	raw, err := m.loadRawLocked()
	if err != nil {
		return zero, err
	}
	stamp, _ := json.Marshal(core.Timestamp(m.now()))

	id := stringMember(fields, FieldID)
	idx := -1
	if id != "" {
		idx = indexOf(raw, id)
	}

	var merged object
	if idx >= 0 {
		merged = maps.Clone(raw[idx])
		maps.Copy(merged, fields)
	} else {
		base, err := m.defaults()
		if err != nil {
			return zero, &core.OpError{Op: "upsert", Key: string(m.schema.Key), Kind: core.ErrInvalid, Err: err}
		}
		merged = base
		maps.Copy(merged, fields)
		if id == "" {
			id = m.newID()
		}
		merged[FieldID], _ = json.Marshal(id)
		if stringMember(merged, FieldCreatedAt) == "" {
			merged[FieldCreatedAt] = stamp
		}
	}
	merged[FieldUpdatedAt] = stamp

	entity, err := decode[T](merged)
	if err != nil {
		return zero, &core.OpError{Op: "upsert", Key: id, Kind: core.ErrInvalid, Err: err}
	}
	if m.schema.Normalize != nil {
		entity = m.schema.Normalize(entity)
		normalized, err := toObject(entity)
		if err != nil {
			return zero, &core.OpError{Op: "upsert", Key: id, Kind: core.ErrInvalid, Err: err}
		}
		maps.Copy(merged, normalized)
	}
	if m.schema.Validate != nil {
		if err := m.schema.Validate(entity); err != nil {
			return zero, &core.OpError{Op: "upsert", Key: id, Kind: core.ErrInvalid, Err: err}
		}
	}

	switch {
	case idx >= 0:
		raw[idx] = merged
	case m.schema.Placement == Prepend:
		raw = append([]object{merged}, raw...)
	default:
		raw = append(raw, merged)
	}

	if err := m.kv.Set(m.schema.Key, m.dedupe(raw)); err != nil {
		return entity, err
	}
	return entity, nil
}

// Delete removes the entity with the given id. Unknown ids are not an error.
// A collection that cannot be read is left untouched.
func (m *Manager[T, P]) Delete(id string) error {
	m.mu.Lock()
	raw, err := m.loadRawLocked()
	if err != nil {
		m.mu.Unlock()
		return err
	}
	kept := make([]object, 0, len(raw))
	for _, item := range raw {
		if stringMember(item, FieldID) != id {
			kept = append(kept, item)
		}
	}
	err = m.kv.Set(m.schema.Key, kept)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.publish()
	return nil
}

// Replace persists items as the whole collection.
func (m *Manager[T, P]) Replace(items []T) error {
	if items == nil {
		items = []T{}
	}
	m.mu.Lock()
	err := m.kv.Set(m.schema.Key, items)
	m.mu.Unlock()

	if err != nil {
		return err
	}
	m.publish()
	return nil
}

// Refresh re-delivers the stored collection to subscribers, e.g. after
// another process changed it.
func (m *Manager[T, P]) Refresh() {
	m.publish()
}

// Close disposes the notifier, if any.
func (m *Manager[T, P]) Close() {
	if m.notifier != nil {
		m.notifier.Close()
	}
}

func (m *Manager[T, P]) publish() {
	if m.notifier != nil {
		m.notifier.Publish()
	}
}

func (m *Manager[T, P]) load() ([]T, []object, error) {
	var raw []object
	if _, err := m.kv.Get(m.schema.Key, &raw); err != nil {
		return []T{}, nil, err
	}
	items := make([]T, 0, len(raw))
	for _, r := range raw {
		item, err := decode[T](r)
		if err != nil {
			return []T{}, nil, &core.OpError{Op: "get", Key: string(m.schema.Key), Kind: core.ErrCorrupt, Err: err}
		}
		items = append(items, item)
	}
	return items, raw, nil
}

// loadRawLocked reads the collection as JSON objects. A corrupt collection
// is treated as empty so the next write heals it; any other read error is
// returned and the caller must not write.
func (m *Manager[T, P]) loadRawLocked() ([]object, error) {
	var raw []object
	if _, err := m.kv.Get(m.schema.Key, &raw); err != nil {
		if !errors.Is(err, core.ErrCorrupt) {
			return nil, err
		}
		m.logger.Warn("rewriting corrupt collection from empty", "error", err)
		return []object{}, nil
	}
	return raw, nil
}

func (m *Manager[T, P]) defaults() (object, error) {
	if m.schema.Defaults == nil {
		return object{}, nil
	}
	base, err := toObject(m.schema.Defaults())
	if err != nil {
		return nil, err
	}
	if base == nil {
		base = object{}
	}
	return base, nil
}

// dedupe drops later entries whose id already appeared. Entries without a
// string id are kept as they are.
func (m *Manager[T, P]) dedupe(raw []object) []object {
	seen := make(map[string]struct{}, len(raw))
	out := raw[:0:0]
	for _, item := range raw {
		id := stringMember(item, FieldID)
		if id == "" {
			out = append(out, item)
			continue
		}
		if _, dup := seen[id]; dup {
			m.logger.Warn("dropping duplicate entity", "id", id)
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

func toObject(v any) (object, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	return obj, nil
}

func decode[T any](obj object) (T, error) {
	var v T
	data, err := json.Marshal(obj)
	if err != nil {
		return v, err
	}
	err = json.Unmarshal(data, &v)
	return v, err
}

func stringMember(obj object, name string) string {
	raw, ok := obj[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func indexOf(raw []object, id string) int {
	for i, item := range raw {
		if stringMember(item, FieldID) == id {
			return i
		}
	}
	return -1
}
