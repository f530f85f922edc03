package core_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/core"
)

func TestKeys_PhysicalMapping(t *testing.T) {
	seen := map[string]bool{}
	for _, k := range core.Keys() {
		require.True(t, k.Valid(), k)
		p := k.Physical()
		assert.NotEmpty(t, p)
		assert.False(t, seen[p], "physical key %s mapped twice", p)
		seen[p] = true

		back, ok := core.KeyForPhysical(p)
		assert.True(t, ok)
		assert.Equal(t, k, back)
	}
	assert.Equal(t, "peermall_favorite_peermalls", core.KeyFavoriteMarketplaces.Physical())

	_, ok := core.KeyForPhysical("something_else")
	assert.False(t, ok)
}

func TestParseKey(t *testing.T) {
	k, err := core.ParseKey("products")
	require.NoError(t, err)
	assert.Equal(t, core.KeyProducts, k)

	_, err = core.ParseKey("orders")
	assert.ErrorIs(t, err, core.ErrUnknownKey)
	assert.False(t, core.Key("orders").Valid())
}

func TestOpError(t *testing.T) {
	cause := errors.New("disk full")
	err := fmt.Errorf("saving: %w", &core.OpError{Op: "set", Key: "products", Kind: core.ErrQuotaExceeded, Err: cause})

	assert.ErrorIs(t, err, core.ErrQuotaExceeded)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, core.ErrCorrupt)
	assert.Equal(t, core.ErrQuotaExceeded, core.KindOf(err))
	assert.Contains(t, err.Error(), "set products: storage quota exceeded: disk full")

	var opErr *core.OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "set", opErr.Op)

	assert.Nil(t, core.KindOf(cause))
}

func TestTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.FixedZone("KST", 9*3600))
	assert.Equal(t, "2026-03-03T20:06:07.890Z", core.Timestamp(ts))
}

func TestPatchApply(t *testing.T) {
	rec := core.Record{ID: "r1", Address: "a", Title: "old", Body: "body", Attachments: []string{"x"}}
	title := "new"
	out := core.Patch{Title: &title}.Apply(rec)

	assert.Equal(t, "new", out.Title)
	assert.Equal(t, "body", out.Body)
	assert.Equal(t, "r1", out.ID)

	out.Attachments[0] = "changed"
	assert.Equal(t, "x", rec.Attachments[0], "Apply must not alias the input")
}
