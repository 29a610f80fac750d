// Package archivetest builds zip fixtures for tests.
package archivetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// File is one zip member. Names ending in "/" become directory entries.
type File struct {
	Name string
	Body string
}

// WriteZip creates a zip archive at path holding files in order.
func WriteZip(t testing.TB, path string, files ...File) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating fixture dir: %v", err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating fixture zip: %v", err)
	}
	w := zip.NewWriter(f)
	for _, file := range files {
		if strings.HasSuffix(file.Name, "/") {
			if _, err := w.Create(file.Name); err != nil {
				t.Fatalf("adding dir %s: %v", file.Name, err)
			}
			continue
		}
		fw, err := w.Create(file.Name)
		if err != nil {
			t.Fatalf("adding %s: %v", file.Name, err)
		}
		if _, err := fw.Write([]byte(file.Body)); err != nil {
			t.Fatalf("writing %s: %v", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("finishing fixture zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing fixture zip: %v", err)
	}
	return path
}

// Theme returns the members of an asset-override mod wrapped in a theme/ folder:
// one lua file and ten images.
func Theme() []File {
	files := []File{
		{Name: "theme/"},
		{Name: "theme/main.lua", Body: "-- theme"},
	}
	for i := 0; i < 10; i++ {
		files = append(files, File{Name: "theme/guis/textures/img" + string(rune('0'+i)) + ".png", Body: "png"})
	}
	return files
}

// ScriptPack returns the members of an unwrapped script mod with two lua files.
func ScriptPack() []File {
	return []File{
		{Name: "mod.txt", Body: "{}"},
		{Name: "main.lua", Body: "-- main"},
		{Name: "hooks.lua", Body: "-- hooks"},
	}
}
