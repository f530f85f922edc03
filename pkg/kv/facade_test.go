package kv_test

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/adapters/memory"
	"github.com/peermall/peerstore/pkg/core"
	"github.com/peermall/peerstore/pkg/kv"
	"github.com/peermall/peerstore/pkg/metrics"
)

type brokenMedium struct{}

func (brokenMedium) GetItem(string) (string, bool, error) { return "", false, errors.New("io error") }
func (brokenMedium) SetItem(string, string) error { return errors.New("io error") }
func (brokenMedium) RemoveItem(string) error { return errors.New("io error") }

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestFacade_RoundTrip(t *testing.T) {
	f := kv.New(memory.NewMedium(0))

	in := []item{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	require.NoError(t, f.Set(core.KeyProducts, in))

	var out []item
	ok, err := f.Get(core.KeyProducts, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	require.NoError(t, f.Set(core.KeyProducts, []item{}))
	out = nil
	ok, err = f.Get(core.KeyProducts, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	raw, ok, err := f.Raw(core.KeyProducts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", raw)
}

func TestFacade_StoresUnderPhysicalKey(t *testing.T) {
	m := memory.NewMedium(0)
	f := kv.New(m)
	require.NoError(t, f.Set(core.KeyFavoriteMarketplaces, []item{}))

	v, ok, err := m.GetItem("peermall_favorite_peermalls")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)
}

func TestFacade_AbsentAndRemove(t *testing.T) {
	f := kv.New(memory.NewMedium(0))

	v, ok, err := kv.Load[[]item](f, core.KeyAccounts)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)

	require.NoError(t, f.Set(core.KeyAccounts, []item{{ID: "a"}}))
	require.NoError(t, f.Remove(core.KeyAccounts))
	_, ok, err = kv.Load[[]item](f, core.KeyAccounts)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFacade_Corrupt(t *testing.T) {
	m := memory.NewMedium(0)
	require.NoError(t, m.SetItem(core.KeyProducts.Physical(), "{not json"))
	f := kv.New(m)

	var out []item
	ok, err := f.Get(core.KeyProducts, &out)
	assert.False(t, ok)
	assert.ErrorIs(t, err, core.ErrCorrupt)
}

func TestFacade_UnknownKey(t *testing.T) {
	f := kv.New(memory.NewMedium(0))
	assert.ErrorIs(t, f.Set(core.Key("orders"), 1), core.ErrUnknownKey)
	_, err := f.Get(core.Key("orders"), new(int))
	assert.ErrorIs(t, err, core.ErrUnknownKey)
	assert.ErrorIs(t, f.Remove(core.Key("orders")), core.ErrUnknownKey)
}

func TestFacade_Unavailable(t *testing.T) {
	f := kv.New(nil)
	assert.False(t, f.Available())

	require.NoError(t, f.Set(core.KeyProducts, []item{{ID: "a"}}))
	var out []item
	ok, err := f.Get(core.KeyProducts, &out)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, f.Remove(core.KeyProducts))
	require.NoError(t, f.Clear())

	state := f.State().(kv.FacadeState)
	assert.Equal(t, "none", state.Medium)
	assert.False(t, state.Available)
}

func TestFacade_MediumFailures(t *testing.T) {
	m := metrics.New(nil)
	f := kv.New(brokenMedium{}, kv.WithMetrics(m))

	_, err := f.Get(core.KeyProducts, new([]item))
	assert.ErrorIs(t, err, core.ErrUnavailable)
	assert.ErrorIs(t, f.Set(core.KeyProducts, []item{}), core.ErrUnavailable)
	assert.ErrorIs(t, f.Remove(core.KeyProducts), core.ErrUnavailable)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.KVOps().WithLabelValues("products", "set", metrics.ResultError)))
}

func TestFacade_Quota(t *testing.T) {
	f := kv.New(memory.NewMedium(40))

	err := f.Set(core.KeyProducts, []item{{ID: "a-very-long-identifier", Name: "with a long name"}})
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)

	_, ok, err := kv.Load[[]item](f, core.KeyProducts)
	require.NoError(t, err)
	assert.False(t, ok, "rejected write must not be applied")
}

func TestFacade_UnencodableValue(t *testing.T) {
	f := kv.New(memory.NewMedium(0))
	err := f.Set(core.KeyProducts, map[string]any{"bad": make(chan int)})
	assert.ErrorIs(t, err, core.ErrInvalid)
}

func TestFacade_KeysAndClear(t *testing.T) {
	f := kv.New(memory.NewMedium(0))
	require.NoError(t, f.Set(core.KeyProducts, []item{}))
	require.NoError(t, f.Set(core.KeyFavoriteMarketplaces, []item{}))
	require.NoError(t, f.Set(core.KeyMarketplaces, []item{}))

	keys, err := f.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []core.Key{core.KeyMarketplaces, core.KeyFavoriteMarketplaces, core.KeyProducts}, keys)

	keys, err = f.Keys("*marketplaces")
	require.NoError(t, err)
	assert.Equal(t, []core.Key{core.KeyMarketplaces, core.KeyFavoriteMarketplaces}, keys)

	_, err = f.Keys("[")
	assert.ErrorIs(t, err, core.ErrInvalid)

	require.NoError(t, f.Clear())
	keys, err = f.Keys("")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
