package peerstore

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/peermall/peerstore/internal/platform"
	"github.com/peermall/peerstore/pkg/adapters/s3"
	"github.com/peermall/peerstore/pkg/core"
)

// --- Types ---

// Store is the assembled data layer.
type Store = platform.Store

// StoreState is the introspection snapshot of a Store.
type StoreState = platform.StoreState

// Config is the YAML form of the store options.
type Config = platform.Config

// --- Configuration ---

// Option defines a functional option for configuring a Store.
type Option = platform.Option

// Adapter names.
const (
	AdapterMemory = platform.AdapterMemory
	AdapterFS     = platform.AdapterFS
	AdapterSQLite = platform.AdapterSQLite
	AdapterNone   = platform.AdapterNone

	RecordsMemory   = platform.RecordsMemory
	RecordsSQLite   = platform.RecordsSQLite
	RecordsPostgres = platform.RecordsPostgres
	RecordsS3       = platform.RecordsS3
)

// DataDirName is the default data directory of a project.
const DataDirName = platform.DataDirName

// ConfigFileName is the project config file.
const ConfigFileName = platform.ConfigFileName

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithMedium injects a durable medium.
func WithMedium(m core.Medium) Option {
	return platform.WithMedium(m)
}

// WithAdapter selects the durable medium by name.
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithRecordService injects the remote content record service.
func WithRecordService(svc core.RecordService) Option {
	return platform.WithRecordService(svc)
}

// WithRecordsAdapter selects the content record service by name.
func WithRecordsAdapter(name string) Option {
	return platform.WithRecordsAdapter(name)
}

// WithMaxBytes caps the total size of the durable medium.
func WithMaxBytes(n int64) Option {
	return platform.WithMaxBytes(n)
}

// WithWatch enables propagation of changes made by other processes.
func WithWatch(enabled bool) Option {
	return platform.WithWatch(enabled)
}

// WithWatchPattern restricts watching to matching logical keys.
func WithWatchPattern(pattern string) Option {
	return platform.WithWatchPattern(pattern)
}

// WithWatcherErrorHandler registers a callback for runtime watcher failures.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithMetrics registers the store's collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return platform.WithMetrics(reg)
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// WithPostgresDSN sets the postgres record service connection string.
func WithPostgresDSN(dsn string) Option {
	return platform.WithPostgresDSN(dsn)
}

// WithConnectAttempts bounds remote connection retries.
func WithConnectAttempts(n int) Option {
	return platform.WithConnectAttempts(n)
}

// WithS3 configures the s3 record service.
func WithS3(cfg s3.Config) Option {
	return platform.WithS3(cfg)
}

// --- Factory ---

// New assembles a Store. See platform.New for the meaning of uri.
func New(uri string, opts ...Option) (*Store, error) {
	return platform.New(uri, opts...)
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	return platform.LoadConfig(path)
}

// FindRoot looks upwards from dir for a .peerstore directory or peerstore.yaml.
func FindRoot(dir string) (string, error) {
	return platform.FindRoot(dir)
}
