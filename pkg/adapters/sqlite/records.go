package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/peermall/peerstore/pkg/core"
)

// RecordService implements core.RecordService on the records table.
// Records are stored whole as JSON; address and timestamps are duplicated
// into columns for scoping and ordering.
type RecordService struct {
	store *Store
}

func (r *RecordService) List(ctx context.Context, address string) ([]core.Record, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT payload FROM records WHERE address = ? ORDER BY created_at, id`, address)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

func (r *RecordService) Create(ctx context.Context, address string, rec core.Record) (string, error) {
	stored := rec.Clone()
	stored.ID = uuid.NewString()
	stored.Address = address
	stored.CreatedAt = core.Timestamp(r.store.now())
	stored.UpdatedAt = stored.CreatedAt

	payload, err := json.Marshal(stored)
	if err != nil {
		return "", &core.OpError{Op: "create", Key: address, Kind: core.ErrInvalid, Err: err}
	}
	if _, err := r.store.db.ExecContext(ctx,
		`INSERT INTO records(id, address, created_at, updated_at, payload) VALUES(?, ?, ?, ?, ?)`,
		stored.ID, stored.Address, stored.CreatedAt, stored.UpdatedAt, payload); err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	return stored.ID, nil
}

func (r *RecordService) Update(ctx context.Context, id string, patch core.Patch) (retErr error) {
	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var payload []byte
	err = tx.QueryRowContext(ctx, `SELECT payload FROM records WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrNotFound}
	}
	if err != nil {
		return fmt.Errorf("select record: %w", err)
	}

	var rec core.Record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrCorrupt, Err: err}
	}
	rec = patch.Apply(rec)
	rec.UpdatedAt = core.Timestamp(r.store.now())

	if payload, err = json.Marshal(rec); err != nil {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrInvalid, Err: err}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET updated_at = ?, payload = ? WHERE id = ?`, rec.UpdatedAt, payload, id); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	return tx.Commit()
}

func (r *RecordService) Delete(ctx context.Context, id string) error {
	res, err := r.store.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &core.OpError{Op: "delete", Key: id, Kind: core.ErrNotFound}
	}
	return nil
}

// ComponentType implements introspection.Component.
func (r *RecordService) ComponentType() string {
	return "sqlite-records"
}

var _ core.RecordService = (*RecordService)(nil)
