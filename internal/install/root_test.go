package install

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedis/void-mod-installer/internal/archive"
	"github.com/caedis/void-mod-installer/internal/archive/archivetest"
)

func TestResolveRoot(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	wrapped, err := archive.Zip{}.Inspect(archivetest.WriteZip(t, filepath.Join(tmp, "theme.zip"), archivetest.Theme()...))
	require.NoError(t, err)
	flat, err := archive.Zip{}.Inspect(archivetest.WriteZip(t, filepath.Join(tmp, "pack.zip"), archivetest.ScriptPack()...))
	require.NoError(t, err)

	t.Run("wrapper directory is collapsed", func(t *testing.T) {
		extracted := filepath.Join(tmp, "extracted-theme")
		require.NoError(t, os.MkdirAll(filepath.Join(extracted, "theme"), 0o755))
		assert.Equal(t, filepath.Join(extracted, "theme"), ResolveRoot(wrapped, extracted))
	})

	t.Run("no wrapper uses extracted dir", func(t *testing.T) {
		extracted := filepath.Join(tmp, "extracted-pack")
		require.NoError(t, os.MkdirAll(extracted, 0o755))
		assert.Equal(t, extracted, ResolveRoot(flat, extracted))
	})

	t.Run("missing wrapper falls back", func(t *testing.T) {
		extracted := filepath.Join(tmp, "extracted-empty")
		require.NoError(t, os.MkdirAll(extracted, 0o755))
		assert.Equal(t, extracted, ResolveRoot(wrapped, extracted))
	})

	t.Run("wrapper that is a file falls back", func(t *testing.T) {
		extracted := filepath.Join(tmp, "extracted-file")
		require.NoError(t, os.MkdirAll(extracted, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(extracted, "theme"), []byte("x"), 0o644))
		assert.Equal(t, extracted, ResolveRoot(wrapped, extracted))
	})
}
