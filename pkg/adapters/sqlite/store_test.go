package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/adapters/sqlite"
	"github.com/peermall/peerstore/pkg/collection"
	"github.com/peermall/peerstore/pkg/content"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/peermall"
)

func openStore(t *testing.T, maxBytes int64) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "data", "peerstore.db"), maxBytes)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMedium(t *testing.T) {
	s := openStore(t, 0)

	_, ok, err := s.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetItem("k", "[]"))
	require.NoError(t, s.SetItem("k", `[{"id":"a"}]`))
	v, ok, err := s.GetItem("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a"}]`, v)

	require.NoError(t, s.RemoveItem("k"))
	require.NoError(t, s.RemoveItem("k"))
	_, ok, err = s.GetItem("k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMedium_Quota(t *testing.T) {
	s := openStore(t, 16)

	require.NoError(t, s.SetItem("a", "1234567890"))
	assert.ErrorIs(t, s.SetItem("b", "1234567890"), core.ErrQuotaExceeded)
	require.NoError(t, s.SetItem("a", "123456789012345"), "replacing a value only counts the new size")
}

func TestMedium_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peerstore.db")
	s, err := sqlite.Open(path, 0)
	require.NoError(t, err)

	favorites := peermall.NewFavorites(kv.New(s))
	_, err = favorites.Add(peermall.FavoritePatch{ID: "m1", Title: peermall.Ptr("A")})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = sqlite.Open(path, 0)
	require.NoError(t, err)
	defer s.Close()

	favorites = peermall.NewFavorites(kv.New(s), collection.WithReactivity(true))
	all, err := favorites.GetAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "A", all[0].Title)

	state := s.State().(sqlite.StoreState)
	assert.Equal(t, 1, state.Keys)
}

func TestRecordService(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, 0)
	records := s.Records()

	id, err := records.Create(ctx, "addr1", core.Record{ID: "ignored", Title: "x", Fields: map[string]any{"n": 1.0}})
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", id)

	list, err := records.List(ctx, "addr1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "addr1", list[0].Address)
	assert.Equal(t, 1.0, list[0].Fields["n"])

	body := "hello"
	require.NoError(t, records.Update(ctx, id, core.Patch{Body: &body}))
	list, err = records.List(ctx, "addr1")
	require.NoError(t, err)
	assert.Equal(t, "x", list[0].Title)
	assert.Equal(t, "hello", list[0].Body)

	assert.ErrorIs(t, records.Update(ctx, "missing", core.Patch{}), core.ErrNotFound)
	require.NoError(t, records.Delete(ctx, id))
	assert.ErrorIs(t, records.Delete(ctx, id), core.ErrNotFound)

	list, err = records.List(ctx, "addr1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordService_ThroughBridge(t *testing.T) {
	ctx := context.Background()
	b := content.New(openStore(t, 0).Records())

	created, err := b.Create(ctx, "addr1", core.Record{Title: "x"})
	require.NoError(t, err)

	list, err := b.List(ctx, "addr1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	state := b.State().(content.BridgeState)
	assert.Equal(t, "sqlite-records", state.Service)
}
