package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore/pkg/core"
)

func TestSource_ForwardsAndCloses(t *testing.T) {
	events := make(chan core.Event, 1)
	src := NewSource(events)
	require.NoError(t, src.Start(context.Background()))

	events <- core.Event{Type: core.EventModify, Key: "peermall_products"}
	select {
	case e := <-src.Events():
		ce, ok := e.(core.Event)
		require.True(t, ok)
		assert.Equal(t, "MODIFY peermall_products", ce.String())
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}

	close(events)
	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("source did not close")
	}
}

func TestSource_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewSource(make(chan core.Event))
	require.NoError(t, src.Start(ctx))
	cancel()

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("source did not close after cancel")
	}
}
