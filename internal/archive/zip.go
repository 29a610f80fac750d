package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Zip inspects and extracts zip archives.
type Zip struct {
	// Ignore holds doublestar patterns for entries to leave out. Nil means
	// DefaultIgnore.
	Ignore []string
	// Progress, when set, is called after each extracted entry.
	Progress func(done, total int)
}

func (z Zip) patterns() []string {
	if z.Ignore == nil {
		return DefaultIgnore
	}
	return z.Ignore
}

// Inspect lists the archive's entries without extracting anything.
func (z Zip) Inspect(archivePath string) (*Info, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(archivePath), err)
	}
	defer r.Close()

	return newInfo(z.entries(r.File)), nil
}

// Extract unpacks the archive into dest, creating it if needed, and returns
// the metadata of what was written. Symlink entries are skipped.
func (z Zip) Extract(archivePath, dest string) (*Info, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(archivePath), err)
	}
	defer r.Close()

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	files := z.members(r.File)
	entries := make([]Entry, 0, len(files))
	for i, m := range files {
		entry, err := extractMember(m.file, m.name, dest)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
		if z.Progress != nil {
			z.Progress(i+1, len(files))
		}
	}

	return newInfo(entries), nil
}

type member struct {
	file *zip.File
	name string
}

func (z Zip) members(files []*zip.File) []member {
	patterns := z.patterns()
	out := make([]member, 0, len(files))
	for _, f := range files {
		name, ok := cleanName(f.Name)
		if !ok || ignored(name, patterns) {
			continue
		}
		out = append(out, member{file: f, name: name})
	}
	return out
}

func (z Zip) entries(files []*zip.File) []Entry {
	var entries []Entry
	for _, m := range z.members(files) {
		if m.file.Mode()&os.ModeSymlink != 0 {
			continue
		}
		entries = append(entries, Entry{
			Name:  m.name,
			IsDir: m.file.FileInfo().IsDir(),
			Size:  m.file.UncompressedSize64,
		})
	}
	return entries
}

func extractMember(f *zip.File, name, dest string) (*Entry, error) {
	if f.Mode()&os.ModeSymlink != 0 {
		return nil, nil
	}

	destPath := filepath.Join(dest, filepath.FromSlash(name))

	// Security check: prevent path traversal
	cleanDest := filepath.Clean(dest)
	cleanPath := filepath.Clean(destPath)
	if !strings.HasPrefix(cleanPath, cleanDest+string(os.PathSeparator)) {
		return nil, fmt.Errorf("entry %q escapes the destination directory", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(cleanPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", name, err)
		}
		return &Entry{Name: name, IsDir: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent of %s: %w", name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer rc.Close()

	perm := f.Mode().Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(cleanPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o200)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}

	n, err := io.Copy(out, rc)
	closeErr := out.Close()
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("closing %s: %w", name, closeErr)
	}

	return &Entry{Name: name, Size: uint64(n)}, nil
}
