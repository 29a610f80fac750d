package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, zerolog.Nop(), nil)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldStagingDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	oldStaging := filepath.Join(tmpDir, "theme.staging")
	recentStaging := filepath.Join(tmpDir, "hud.staging")
	oldExtracted := filepath.Join(tmpDir, "theme")
	for _, dir := range []string{oldStaging, recentStaging, oldExtracted} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
	}
	for _, dir := range []string{oldStaging, oldExtracted} {
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, zerolog.Nop(), nil)

	if len(result.Removed) != 1 {
		t.Fatalf("expected 1 removed, got %d", len(result.Removed))
	}
	if result.Removed[0] != oldStaging {
		t.Errorf("expected %s to be removed, got %s", oldStaging, result.Removed[0])
	}
	if _, err := os.Stat(oldStaging); !os.IsNotExist(err) {
		t.Error("old staging directory should have been removed")
	}
	if _, err := os.Stat(recentStaging); err != nil {
		t.Error("recent staging directory should still exist")
	}
	if _, err := os.Stat(oldExtracted); err != nil {
		t.Error("extracted mod directory must never be swept")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "leftover.staging")
	if err := os.WriteFile(oldFile, []byte("test"), 0o644); err != nil {
		t.Fatalf("create file: %v", err)
	}
	oldTime := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(oldFile, oldTime, oldTime); err != nil {
		t.Fatalf("set old time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, zerolog.Nop(), nil)
	if len(result.Removed) != 0 {
		t.Errorf("expected no removals for files, got %d", len(result.Removed))
	}
}

func TestCleanStaleSkipsHeldMods(t *testing.T) {
	tmpDir := t.TempDir()
	oldTime := time.Now().Add(-2 * time.Hour)

	busy := filepath.Join(tmpDir, "theme.staging")
	idle := filepath.Join(tmpDir, "hud.staging")
	for _, dir := range []string{busy, idle} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatalf("create %s: %v", dir, err)
		}
		if err := os.Chtimes(dir, oldTime, oldTime); err != nil {
			t.Fatalf("set old time: %v", err)
		}
	}

	var claimed []string
	released := 0
	hold := func(name string) (func(), bool) {
		claimed = append(claimed, name)
		if name == "theme" {
			return nil, false
		}
		return func() { released++ }, true
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, zerolog.Nop(), hold)

	if len(result.Removed) != 1 || result.Removed[0] != idle {
		t.Fatalf("Removed=%v want=[%s]", result.Removed, idle)
	}
	if len(result.Busy) != 1 || result.Busy[0] != busy {
		t.Fatalf("Busy=%v want=[%s]", result.Busy, busy)
	}
	if _, err := os.Stat(busy); err != nil {
		t.Fatalf("held staging directory should survive: %v", err)
	}
	if len(claimed) != 2 || released != 1 {
		t.Fatalf("claimed=%v released=%d", claimed, released)
	}
}
