package platform

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peermall/peerstore/pkg/adapters/s3"
	"github.com/peermall/peerstore/pkg/core"
)

// Adapter names accepted by WithAdapter.
const (
	AdapterMemory = "memory"
	AdapterFS     = "fs"
	AdapterSQLite = "sqlite"
	AdapterNone   = "none"
)

// Record service names accepted by WithRecordsAdapter.
const (
	RecordsMemory   = "memory"
	RecordsSQLite   = "sqlite"
	RecordsPostgres = "postgres"
	RecordsS3       = "s3"
)

// options holds the internal configuration of a Store.
type options struct {
	logger         *slog.Logger
	medium         core.Medium
	adapter        string
	records        core.RecordService
	recordsAdapter string
	maxBytes       int64

	watch               bool
	watchPattern        string
	watcherErrorHandler func(error)

	registerer prometheus.Registerer
	clock      func() time.Time

	postgresDSN     string
	connectAttempts int
	s3              s3.Config
}

// Option defines a functional option for configuring a Store.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter:         AdapterFS,
		recordsAdapter:  RecordsMemory,
		connectAttempts: 5,
		clock:           time.Now,
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMedium injects a durable medium. The adapter setting is ignored.
func WithMedium(m core.Medium) Option {
	return func(o *options) {
		o.medium = m
	}
}

// WithAdapter selects the durable medium by name: "fs" (default), "memory",
// "sqlite" or "none". With "none" the KV tier is unavailable and every
// collection reads empty.
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithRecordService injects the remote content record service.
// The records adapter setting is ignored.
func WithRecordService(svc core.RecordService) Option {
	return func(o *options) {
		o.records = svc
	}
}

// WithRecordsAdapter selects the content record service by name: "memory"
// (default), "sqlite", "postgres" or "s3".
func WithRecordsAdapter(name string) Option {
	return func(o *options) {
		o.recordsAdapter = name
	}
}

// WithMaxBytes caps the total size of the durable medium. Zero means unbounded.
func WithMaxBytes(n int64) Option {
	return func(o *options) {
		o.maxBytes = n
	}
}

// WithWatch enables propagation of changes made to the medium by other
// processes. Only watchable media (fs) support it.
func WithWatch(enabled bool) Option {
	return func(o *options) {
		o.watch = enabled
	}
}

// WithWatchPattern restricts watching to logical keys matching a doublestar pattern.
func WithWatchPattern(pattern string) Option {
	return func(o *options) {
		o.watchPattern = pattern
	}
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures
// (e.g. permission denied) which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.watcherErrorHandler = fn
	}
}

// WithMetrics registers the store's prometheus collectors on reg.
// Without it the collectors exist but are not registered.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithClock overrides the time source used for entity and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithPostgresDSN sets the connection string of the postgres record service.
func WithPostgresDSN(dsn string) Option {
	return func(o *options) {
		o.postgresDSN = dsn
	}
}

// WithConnectAttempts bounds the connection retries of remote record services.
func WithConnectAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.connectAttempts = n
		}
	}
}

// WithS3 configures the s3 record service.
func WithS3(cfg s3.Config) Option {
	return func(o *options) {
		o.s3 = cfg
	}
}
