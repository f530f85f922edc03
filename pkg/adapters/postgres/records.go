// Package postgres implements the content record service on PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peermall/peerstore/pkg/core"
)

const (
	schemaSQL = `
CREATE TABLE IF NOT EXISTS content_records (
    id         TEXT PRIMARY KEY,
    address    TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    payload    JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS content_records_address ON content_records (address, created_at, id);
`
	recordListSQL = `
SELECT payload
FROM content_records
WHERE address = $1
ORDER BY created_at, id;
`
	recordInsertSQL = `
INSERT INTO content_records (id, address, created_at, updated_at, payload)
VALUES ($1, $2, $3, $4, $5::jsonb);
`
	recordLockSQL   = `SELECT payload FROM content_records WHERE id = $1 FOR UPDATE;`
	recordUpdateSQL = `UPDATE content_records SET updated_at = $2, payload = $3::jsonb WHERE id = $1;`
	recordDeleteSQL = `DELETE FROM content_records WHERE id = $1;`
)

const maxConnectInterval = 5 * time.Second

// Connect opens a pool for dsn and pings it, retrying with exponential
// backoff up to attempts times.
func Connect(ctx context.Context, dsn string, attempts int, logger *slog.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if attempts < 1 {
		attempts = 1
	}

	backoffCfg := backoff.NewExponentialBackOff()
	backoffCfg.MaxInterval = maxConnectInterval

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err := pgxpool.New(ctx, dsn)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		sleep := backoffCfg.NextBackOff()
		if sleep == backoff.Stop {
			sleep = maxConnectInterval
		}
		logger.Warn("postgres not reachable, retrying", "attempt", attempt, "in", sleep, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleep):
		}
	}
	return nil, fmt.Errorf("connect postgres after %d attempts: %w", attempts, lastErr)
}

// RecordService implements core.RecordService on the content_records table.
type RecordService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRecordService constructs a RecordService backed by the provided pgx pool.
func NewRecordService(pool *pgxpool.Pool) *RecordService {
	return &RecordService{pool: pool, now: time.Now}
}

// EnsureSchema creates the records table when missing.
func (s *RecordService) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("record service: nil pool")
	}
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create content_records: %w", err)
	}
	return nil
}

func (s *RecordService) List(ctx context.Context, address string) ([]core.Record, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("record service: nil pool")
	}
	rows, err := s.pool.Query(ctx, recordListSQL, address)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	out := []core.Record{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec core.Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, &core.OpError{Op: "list", Key: address, Kind: core.ErrCorrupt, Err: err}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

func (s *RecordService) Create(ctx context.Context, address string, rec core.Record) (string, error) {
	if s.pool == nil {
		return "", fmt.Errorf("record service: nil pool")
	}
	stored := rec.Clone()
	stored.ID = uuid.NewString()
	stored.Address = address
	stored.CreatedAt = core.Timestamp(s.now())
	stored.UpdatedAt = stored.CreatedAt

	payload, err := json.Marshal(stored)
	if err != nil {
		return "", &core.OpError{Op: "create", Key: address, Kind: core.ErrInvalid, Err: err}
	}
	if _, err := s.pool.Exec(ctx, recordInsertSQL, stored.ID, address, stored.CreatedAt, stored.UpdatedAt, payload); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return stored.ID, nil
}

func (s *RecordService) Update(ctx context.Context, id string, patch core.Patch) error {
	if s.pool == nil {
		return fmt.Errorf("record service: nil pool")
	}
	var txOptions pgx.TxOptions
	txOptions.IsoLevel = pgx.ReadCommitted
	txOptions.AccessMode = pgx.ReadWrite

	tx, err := s.pool.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("begin update tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var payload []byte
	if err := tx.QueryRow(ctx, recordLockSQL, id).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &core.OpError{Op: "update", Key: id, Kind: core.ErrNotFound}
		}
		return fmt.Errorf("lock record: %w", err)
	}

	var rec core.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrCorrupt, Err: err}
	}
	rec = patch.Apply(rec)
	rec.UpdatedAt = core.Timestamp(s.now())

	if payload, err = json.Marshal(rec); err != nil {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrInvalid, Err: err}
	}
	if _, err := tx.Exec(ctx, recordUpdateSQL, id, rec.UpdatedAt, payload); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit update tx: %w", err)
	}
	return nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if s.pool == nil {
		return fmt.Errorf("record service: nil pool")
	}
	tag, err := s.pool.Exec(ctx, recordDeleteSQL, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &core.OpError{Op: "delete", Key: id, Kind: core.ErrNotFound}
	}
	return nil
}

// Close closes the pool.
func (s *RecordService) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *RecordService) ComponentType() string {
	return "postgres-records"
}

var (
	_ core.RecordService = (*RecordService)(nil)
	_ core.Closer        = (*RecordService)(nil)
)
