// Package game describes the applications mods are installed into and finds
// where they live on this machine.
package game

import (
	"os"
	"path/filepath"
)

// Target describes a moddable application.
type Target struct {
	ID          string
	DisplayName string
	SteamAppID  int

	// ModsDir and OverridesDir are slash-separated and relative to the
	// application's install directory.
	ModsDir      string
	OverridesDir string

	// ScriptExt is the file extension of the application's script files.
	ScriptExt string
}

// Payday2 is PAYDAY 2 with the SuperBLT layout: script mods under mods/,
// asset replacements under assets/mod_overrides/.
var Payday2 = Target{
	ID:           "core:payday_2",
	DisplayName:  "PAYDAY 2",
	SteamAppID:   218620,
	ModsDir:      "mods",
	OverridesDir: "assets/mod_overrides",
	ScriptExt:    "lua",
}

// ModsRoot returns the primary destination root under base.
func (t Target) ModsRoot(base string) string {
	return filepath.Join(base, filepath.FromSlash(t.ModsDir))
}

// OverridesRoot returns the override destination root under base.
func (t Target) OverridesRoot(base string) string {
	return filepath.Join(base, filepath.FromSlash(t.OverridesDir))
}

// Locator finds the install directory of an application.
type Locator interface {
	Locate() (string, bool)
}

// DirLocator reports a fixed directory, typically from --game-dir.
type DirLocator struct {
	Dir string
}

// Locate returns Dir if it is an existing directory.
func (l DirLocator) Locate() (string, bool) {
	if l.Dir == "" {
		return "", false
	}
	abs, err := filepath.Abs(l.Dir)
	if err != nil {
		return "", false
	}
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		return "", false
	}
	return abs, true
}

// Chain tries each locator in order.
type Chain []Locator

// Locate returns the first directory found.
func (c Chain) Locate() (string, bool) {
	for _, l := range c {
		if l == nil {
			continue
		}
		if dir, ok := l.Locate(); ok {
			return dir, true
		}
	}
	return "", false
}
