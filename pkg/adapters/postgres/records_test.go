package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/adapters/postgres"
	"github.com/peermall/peerstore/pkg/core"
)

func TestNilPool(t *testing.T) {
	s := postgres.NewRecordService(nil)
	ctx := context.Background()

	_, err := s.List(ctx, "addr")
	assert.Error(t, err)
	_, err = s.Create(ctx, "addr", core.Record{})
	assert.Error(t, err)
	assert.Error(t, s.Update(ctx, "id", core.Patch{}))
	assert.Error(t, s.Delete(ctx, "id"))
	assert.NoError(t, s.Close())
}

func TestConnect_GivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := postgres.Connect(ctx, "postgres://nobody@127.0.0.1:1/none?connect_timeout=1", 2, nil)
	assert.Error(t, err)
}

func TestRecordService_Postgres(t *testing.T) {
	dsn := os.Getenv("PEERSTORE_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PEERSTORE_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	pool, err := postgres.Connect(ctx, dsn, 3, nil)
	require.NoError(t, err)
	s := postgres.NewRecordService(pool)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	address := "test-" + time.Now().Format("150405.000000")
	id, err := s.Create(ctx, address, core.Record{Title: "x"})
	require.NoError(t, err)

	list, err := s.List(ctx, address)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)

	title := "y"
	require.NoError(t, s.Update(ctx, id, core.Patch{Title: &title}))
	list, err = s.List(ctx, address)
	require.NoError(t, err)
	assert.Equal(t, "y", list[0].Title)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), core.ErrNotFound)
	assert.ErrorIs(t, s.Update(ctx, id, core.Patch{}), core.ErrNotFound)
}
