package platform

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/peermall/peerstore/pkg/adapters/fs"
	"github.com/peermall/peerstore/pkg/adapters/memory"
	"github.com/peermall/peerstore/pkg/adapters/postgres"
	"github.com/peermall/peerstore/pkg/adapters/s3"
	"github.com/peermall/peerstore/pkg/adapters/sqlite"
	"github.com/peermall/peerstore/pkg/core"
)

// DataDirName is the directory a project keeps its data in.
const DataDirName = ".peerstore"

// sqliteFile is the database name used when the uri names a directory.
const sqliteFile = "peerstore.db"

// openMedium resolves the durable medium. The uri is the data directory for
// "fs" and the database file (or its directory) for "sqlite".
func openMedium(uri string, o *options) (core.Medium, error) {
	if o.medium != nil {
		return o.medium, nil
	}

	switch o.adapter {
	case AdapterNone:
		return nil, nil
	case AdapterMemory:
		return memory.NewMedium(o.maxBytes), nil
	case AdapterFS, "":
		m, err := fs.NewMedium(fs.Config{
			Dir:          dataDir(uri),
			MaxBytes:     o.maxBytes,
			WatchPattern: o.watchPattern,
			Logger:       o.logger,
			ErrorHandler: o.watcherErrorHandler,
		})
		if err != nil {
			return nil, err
		}
		return m, nil
	case AdapterSQLite:
		store, err := sqlite.Open(sqlitePath(uri), o.maxBytes)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}

// openRecords resolves the content record service. A sqlite medium shares
// its database with the sqlite record service.
func openRecords(ctx context.Context, uri string, o *options, medium core.Medium) (core.RecordService, error) {
	if o.records != nil {
		return o.records, nil
	}

	switch o.recordsAdapter {
	case RecordsMemory, "":
		return memory.NewRecordService(), nil
	case RecordsSQLite:
		if store, ok := medium.(*sqlite.Store); ok {
			return store.Records(), nil
		}
		store, err := sqlite.Open(sqlitePath(uri), 0)
		if err != nil {
			return nil, err
		}
		return &ownedRecords{RecordService: store.Records(), closer: store}, nil
	case RecordsPostgres:
		if o.postgresDSN == "" {
			return nil, fmt.Errorf("postgres records: dsn is required")
		}
		pool, err := postgres.Connect(ctx, o.postgresDSN, o.connectAttempts, o.logger)
		if err != nil {
			return nil, err
		}
		svc := postgres.NewRecordService(pool)
		if err := svc.EnsureSchema(ctx); err != nil {
			_ = svc.Close()
			return nil, err
		}
		return svc, nil
	case RecordsS3:
		svc, err := s3.New(ctx, o.s3)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unknown records adapter: %s", o.recordsAdapter)
	}
}

// ownedRecords closes a database opened only for the record service.
type ownedRecords struct {
	*sqlite.RecordService
	closer core.Closer
}

func (r *ownedRecords) Close() error {
	return r.closer.Close()
}

func dataDir(uri string) string {
	if uri == "" {
		return DataDirName
	}
	return uri
}

func sqlitePath(uri string) string {
	switch filepath.Ext(uri) {
	case ".db", ".sqlite", ".sqlite3":
		return uri
	}
	return filepath.Join(dataDir(uri), sqliteFile)
}
