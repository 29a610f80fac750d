package staging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/caedis/void-mod-installer/internal/paths"
)

// CleanStaleResult contains the outcome of a stale directory cleanup operation.
type CleanStaleResult struct {
	Removed []string
	// Busy lists staging directories skipped because their mod is being
	// installed.
	Busy   []string
	Errors []CleanupError
}

// Holder claims the mod a staging directory belongs to for the duration of
// its removal. ok is false when the mod is busy.
type Holder func(name string) (release func(), ok bool)

// CleanupError pairs a directory path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// CleanStale removes staging directories under root that are older than
// maxAge. Extracted mods living next to them are left alone. When hold is not
// nil, a directory is only removed while hold has claimed its mod.
func CleanStale(ctx context.Context, root string, maxAge time.Duration, logger zerolog.Logger, hold Holder) CleanStaleResult {
	result := CleanStaleResult{}

	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: root, Error: err})
		}
		return result
	}

	cutoff := time.Now().Add(-maxAge)

	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() || !paths.IsStagingDir(entry.Name()) {
			continue
		}

		dirPath := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		removed, busy, err := removeHeld(dirPath, paths.StagedName(entry.Name()), hold)
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: dirPath, Error: err})
			logger.Warn().Err(err).Str("path", dirPath).Msg("failed to remove stale staging directory")
			continue
		}
		if busy {
			result.Busy = append(result.Busy, dirPath)
			logger.Debug().Str("path", dirPath).Msg("staging directory in use, skipped")
			continue
		}
		if !removed {
			continue
		}
		result.Removed = append(result.Removed, dirPath)
		logger.Info().
			Str("path", dirPath).
			Dur("age", time.Since(info.ModTime())).
			Msg("removed stale staging directory")
	}

	return result
}

func removeHeld(dirPath, name string, hold Holder) (removed, busy bool, err error) {
	if hold != nil {
		release, ok := hold(name)
		if !ok {
			return false, true, nil
		}
		defer release()
		// A finishing install may have promoted it since the directory scan.
		if _, err := os.Lstat(dirPath); os.IsNotExist(err) {
			return false, false, nil
		}
	}
	if err := os.RemoveAll(dirPath); err != nil {
		return false, false, err
	}
	return true, false, nil
}
