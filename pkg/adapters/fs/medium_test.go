package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/core"
)

func newTestMedium(t *testing.T, maxBytes int64) *Medium {
	t.Helper()
	m, err := NewMedium(Config{Dir: filepath.Join(t.TempDir(), "store"), MaxBytes: maxBytes})
	require.NoError(t, err)
	return m
}

func TestMedium_RoundTrip(t *testing.T) {
	m := newTestMedium(t, 0)
	key := core.KeyProducts.Physical()

	_, ok, err := m.GetItem(key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.SetItem(key, `[{"id":"p1"}]`))
	v, ok, err := m.GetItem(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, v)

	data, err := os.ReadFile(filepath.Join(m.Dir(), key+".json"))
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"p1"}]`, string(data))

	require.NoError(t, m.RemoveItem(key))
	_, ok, err = m.GetItem(key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is fine.
	assert.NoError(t, m.RemoveItem(key))
}

func TestMedium_RejectsUnsafeKeys(t *testing.T) {
	m := newTestMedium(t, 0)
	for _, key := range []string{"", "../escape", "a/b", ".hidden", TempFilePrefix + "x"} {
		err := m.SetItem(key, "1")
		assert.ErrorIs(t, err, core.ErrInvalid, "key %q", key)
	}
}

func TestMedium_Quota(t *testing.T) {
	m := newTestMedium(t, 64)
	key := core.KeyMapNodes.Physical()

	require.NoError(t, m.SetItem(key, `[]`))

	err := m.SetItem(key, string(make([]byte, 100)))
	assert.ErrorIs(t, err, core.ErrQuotaExceeded)

	// The rejected write left the old value in place.
	v, ok, err := m.GetItem(key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[]`, v)

	// Replacing a value only counts the new size.
	assert.NoError(t, m.SetItem(key, `[{"id":"n1"}]`))
}

func TestMedium_ForeignDetection(t *testing.T) {
	m := newTestMedium(t, 0)
	key := core.KeyAccounts.Physical()

	assert.True(t, m.foreign(key, core.EventModify), "unknown keys are foreign")

	require.NoError(t, m.SetItem(key, `[]`))
	assert.False(t, m.foreign(key, core.EventModify), "own write")

	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), key+".json"), []byte(`[{"id":"x"}]`), 0o644))
	assert.True(t, m.foreign(key, core.EventModify), "content changed by someone else")

	require.NoError(t, m.RemoveItem(key))
	assert.False(t, m.foreign(key, core.EventDelete), "own removal")
}

func TestMedium_State(t *testing.T) {
	m := newTestMedium(t, 1024)
	require.NoError(t, m.SetItem(core.KeyProducts.Physical(), `[]`))

	state, ok := m.State().(MediumState)
	require.True(t, ok)
	assert.Equal(t, []string{"peermall_products.json"}, state.Keys)
	assert.Equal(t, int64(len("peermall_products")+2), state.Bytes)
	assert.Equal(t, int64(1024), state.MaxBytes)
	assert.False(t, state.WatcherActive)
	assert.Equal(t, "fs-medium", m.ComponentType())
}
