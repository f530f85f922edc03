package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Run("creates and overwrites", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "peermall_products.json")

		require.NoError(t, writeFileAtomic(filename, []byte(`[]`), 0o644))
		require.NoError(t, writeFileAtomic(filename, []byte(`[{"id":"p1"}]`), 0o644))

		got, err := os.ReadFile(filename)
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"p1"}]`, string(got))
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, writeFileAtomic(filepath.Join(dir, "a.json"), []byte(`1`), 0o644))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), TempFilePrefix), "stray temp file %s", e.Name())
		}
	})

	t.Run("fails when the directory is missing", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "missing", "a.json")
		assert.Error(t, writeFileAtomic(filename, []byte(`1`), 0o644))
	})
}
