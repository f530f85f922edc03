package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/peermall/peerstore/pkg/core"
)

// RecordService implements core.RecordService in memory.
type RecordService struct {
	records *xsync.MapOf[string, core.Record]
	now     func() time.Time
}

// NewRecordService creates an empty record service.
func NewRecordService() *RecordService {
	return &RecordService{
		records: xsync.NewMapOf[string, core.Record](),
		now:     time.Now,
	}
}

// List returns the records of address ordered by creation time.
func (s *RecordService) List(ctx context.Context, address string) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := []core.Record{}
	s.records.Range(func(_ string, rec core.Record) bool {
		if rec.Address == address {
			out = append(out, rec.Clone())
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt < out[j].CreatedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *RecordService) Create(ctx context.Context, address string, rec core.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	stamp := core.Timestamp(s.now())
	stored := rec.Clone()
	stored.ID = uuid.NewString()
	stored.Address = address
	stored.CreatedAt = stamp
	stored.UpdatedAt = stamp
	s.records.Store(stored.ID, stored)
	return stored.ID, nil
}

func (s *RecordService) Update(ctx context.Context, id string, patch core.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var found bool
	s.records.Compute(id, func(old core.Record, loaded bool) (core.Record, bool) {
		if !loaded {
			return old, true
		}
		found = true
		updated := patch.Apply(old)
		updated.UpdatedAt = core.Timestamp(s.now())
		return updated, false
	})
	if !found {
		return &core.OpError{Op: "update", Key: id, Kind: core.ErrNotFound}
	}
	return nil
}

func (s *RecordService) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := s.records.LoadAndDelete(id); !ok {
		return &core.OpError{Op: "delete", Key: id, Kind: core.ErrNotFound}
	}
	return nil
}

// ComponentType implements introspection.Component.
func (s *RecordService) ComponentType() string {
	return "memory-records"
}

var _ core.RecordService = (*RecordService)(nil)
