package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peermall/peerstore"
	"github.com/peermall/peerstore/pkg/peermall"
)

func TestCollectionOps_RoundTrip(t *testing.T) {
	s, err := peerstore.New("", peerstore.WithAdapter(peerstore.AdapterMemory))
	require.NoError(t, err)
	defer s.Close()

	c, err := collection(s, "marketplaces")
	require.NoError(t, err)

	created, err := c.upsert([]byte(`{"title":"Namdaemun Market","rating":4.5}`))
	require.NoError(t, err)
	mp, ok := created.(peermall.Marketplace)
	require.True(t, ok)
	assert.Equal(t, "Namdaemun Market", mp.Title)

	_, err = c.upsert([]byte(`{"id":"` + mp.ID + `","followers":12}`))
	require.NoError(t, err)

	got, found, err := c.get(mp.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 12, got.(peermall.Marketplace).Followers)
	assert.Equal(t, 4.5, got.(peermall.Marketplace).Rating)

	require.NoError(t, c.delete(mp.ID))
	items, err := c.list()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCollectionOps_Errors(t *testing.T) {
	s, err := peerstore.New("", peerstore.WithAdapter(peerstore.AdapterMemory))
	require.NoError(t, err)
	defer s.Close()

	_, err = collection(s, "current-account")
	assert.ErrorContains(t, err, "unknown collection")

	c, err := collection(s, "products")
	require.NoError(t, err)
	_, err = c.upsert([]byte(`not json`))
	assert.ErrorContains(t, err, "invalid patch")
}

func TestEncode(t *testing.T) {
	v := map[string]any{"title": "Jagalchi"}

	var buf bytes.Buffer
	require.NoError(t, encode(&buf, "json", v))
	assert.JSONEq(t, `{"title":"Jagalchi"}`, buf.String())

	buf.Reset()
	require.NoError(t, encode(&buf, "yaml", v))
	assert.YAMLEq(t, "title: Jagalchi\n", buf.String())

	assert.Error(t, encode(&buf, "xml", v))
}

func TestRootRegistersCommands(t *testing.T) {
	for _, name := range []string{"list", "get", "upsert", "delete", "clear", "keys", "watch", "content", "session", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
