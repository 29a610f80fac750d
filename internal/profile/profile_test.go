package profile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caedis/void-mod-installer/internal/paths"
)

func TestSaveLoadListDelete(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, t.TempDir())

	gameDir := "/games/PAYDAY 2"
	concurrency := 2
	verbose := true
	if err := Save("steamdeck", &Profile{GameDir: &gameDir, Concurrency: &concurrency, Verbose: &verbose}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	p, err := Load("steamdeck")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if p.GameDir == nil || *p.GameDir != gameDir {
		t.Fatalf("GameDir=%v want=%q", p.GameDir, gameDir)
	}
	if p.Concurrency == nil || *p.Concurrency != 2 {
		t.Fatalf("Concurrency=%v want=2", p.Concurrency)
	}
	if p.DataDir != nil || p.LogFile != nil {
		t.Fatalf("unset fields should stay nil: %+v", p)
	}

	names, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 1 || names[0] != "steamdeck" {
		t.Fatalf("List=%v want=[steamdeck]", names)
	}

	if err := Delete("steamdeck"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := Load("steamdeck"); err == nil {
		t.Fatalf("expected error loading deleted profile")
	}
}

func TestListWithoutProfilesDir(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, filepath.Join(t.TempDir(), "missing"))

	names, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("List=%v want empty", names)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(paths.EnvConfigDir, t.TempDir())

	if err := os.MkdirAll(Dir(), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(Dir(), "old.toml"), []byte("launch-options = \"-x\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := Load("old")
	if err == nil || !strings.Contains(err.Error(), "launch-options") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestInvalidProfileNames(t *testing.T) {
	for _, name := range []string{"", "..", "a/b"} {
		if _, err := Load(name); err == nil {
			t.Fatalf("Load(%q) should fail", name)
		}
	}
}
