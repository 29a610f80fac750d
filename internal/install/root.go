package install

import (
	"os"
	"path/filepath"

	"github.com/caedis/void-mod-installer/internal/archive"
)

// ResolveRoot returns the directory that holds the mod's content inside
// extractedDir. A single wrapper directory in the archive is collapsed;
// otherwise, or when the wrapper is not a directory on disk, the content root
// is extractedDir itself.
func ResolveRoot(info *archive.Info, extractedDir string) string {
	top, ok := info.SingleTopLevelDir()
	if !ok {
		return extractedDir
	}
	candidate := filepath.Join(extractedDir, top)
	if st, err := os.Stat(candidate); err != nil || !st.IsDir() {
		return extractedDir
	}
	return candidate
}
