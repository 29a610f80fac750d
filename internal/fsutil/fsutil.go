// Package fsutil holds the directory and symlink primitives the installer
// builds on.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotSymlink is returned when an activation slot is occupied by something
// other than a symlink.
var ErrNotSymlink = errors.New("path exists and is not a symlink")

// OS implements the installer's filesystem operations on the real filesystem.
type OS struct{}

// EnsureDir creates path and its parents if missing.
func (OS) EnsureDir(path string) error {
	return EnsureDir(path)
}

// ReplaceSymlinkDir points link at target.
func (OS) ReplaceSymlinkDir(target, link string) error {
	return ReplaceSymlinkDir(target, link)
}

// EnsureDir creates path and its parents if missing. An existing non-directory
// at path is an error.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}

// ReplaceSymlinkDir atomically makes link a symlink to the directory target.
// The new link is created under a temporary name next to link and renamed over
// it, so link either keeps its previous target or gets the new one. Only an
// existing symlink (or nothing) may occupy link; real files and directories
// are left untouched and reported with ErrNotSymlink. A relative target is
// made absolute against the working directory before linking.
func ReplaceSymlinkDir(target, link string) error {
	target, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("resolving link target: %w", err)
	}
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("checking link target: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("link target %s is not a directory", target)
	}

	if existing, err := os.Lstat(link); err == nil {
		if existing.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%s: %w", link, ErrNotSymlink)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking %s: %w", link, err)
	}

	tmpLink := filepath.Join(filepath.Dir(link), "."+filepath.Base(link)+".tmp-link")
	if err := os.Remove(tmpLink); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", tmpLink, err)
	}
	if err := os.Symlink(target, tmpLink); err != nil {
		return fmt.Errorf("creating symlink: %w", err)
	}
	if err := os.Rename(tmpLink, link); err != nil {
		os.Remove(tmpLink)
		return fmt.Errorf("finalizing symlink: %w", err)
	}
	return nil
}

// LinkTarget returns the target of the symlink at path. ok is false when path
// is missing or not a symlink.
func LinkTarget(path string) (target string, ok bool) {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return "", false
	}
	target, err = os.Readlink(path)
	if err != nil {
		return "", false
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return target, true
}
