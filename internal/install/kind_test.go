package install

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedis/void-mod-installer/internal/archive"
	"github.com/caedis/void-mod-installer/internal/archive/archivetest"
)

func infoWithLua(t *testing.T, n int) *archive.Info {
	t.Helper()
	files := []archivetest.File{{Name: "readme.txt", Body: "x"}}
	for i := 0; i < n; i++ {
		files = append(files, archivetest.File{Name: fmt.Sprintf("lua/f%d.lua", i), Body: "x"})
	}
	path := archivetest.WriteZip(t, filepath.Join(t.TempDir(), "m.zip"), files...)
	info, err := archive.Zip{}.Inspect(path)
	require.NoError(t, err)
	return info
}

// The threshold is a packaging heuristic: a single lua file is common in
// asset mods, script mods almost always ship several.
func TestClassifyThreshold(t *testing.T) {
	t.Parallel()

	tests := []struct {
		lua  int
		want Kind
	}{
		{0, KindOverride},
		{1, KindOverride},
		{2, KindScript},
		{5, KindScript},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d lua files", tt.lua), func(t *testing.T) {
			t.Parallel()
			info := infoWithLua(t, tt.lua)
			assert.Equal(t, tt.want, Classify(info, "lua"))
			// Same input, same answer.
			assert.Equal(t, Classify(info, "lua"), Classify(info, ".lua"))
		})
	}
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "script", KindScript.String())
	assert.Equal(t, "override", KindOverride.String())
	assert.Equal(t, "unknown", Kind(42).String())
}
