// Package paths resolves the on-disk locations used by the installer: the
// extracted-content area, staging siblings, lock files, cache and config.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

const (
	// AppDirName is the namespace under the XDG data home.
	AppDirName = "me.ghoul.void_mod_manager"
	// ToolDirName is used for config and cache homes.
	ToolDirName = "void-mod-installer"

	EnvDataDir   = "VMM_DATA_DIR"
	EnvConfigDir = "VMM_CONFIG_DIR"
	EnvCacheDir  = "VMM_CACHE_DIR"
	EnvGameDir   = "VMM_GAME_DIR"

	stagingSuffix = ".staging"
)

// DataDir returns the process-wide data directory.
func DataDir() string {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return expandHome(dir)
	}
	return filepath.Join(xdg.DataHome, AppDirName)
}

// ConfigDir returns the directory holding profiles.
func ConfigDir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return expandHome(dir)
	}
	return filepath.Join(xdg.ConfigHome, ToolDirName)
}

// CacheDir returns the directory downloaded archives are kept in.
func CacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return expandHome(dir)
	}
	return filepath.Join(xdg.CacheHome, ToolDirName, "archives")
}

// ExtractedArea returns the directory that holds every extracted mod for one
// provider.
func ExtractedArea(dataDir, providerID string) string {
	return filepath.Join(dataDir, "mods", "extracted", Component(providerID))
}

// ExtractedDir returns the permanent extracted-content directory for a mod.
func ExtractedDir(dataDir, providerID, name string) string {
	return filepath.Join(ExtractedArea(dataDir, providerID), name)
}

// StagingDir returns the staging sibling of an extracted-content directory.
func StagingDir(extractedDir string) string {
	return extractedDir + stagingSuffix
}

// IsStagingDir reports whether name looks like a staging sibling.
func IsStagingDir(name string) bool {
	return strings.HasSuffix(name, stagingSuffix) && len(name) > len(stagingSuffix)
}

// StagedName returns the mod name a staging directory belongs to.
func StagedName(stagingDirName string) string {
	return strings.TrimSuffix(stagingDirName, stagingSuffix)
}

// LockFile returns the lock file serializing installs of one mod.
func LockFile(dataDir, providerID, name string) string {
	return filepath.Join(dataDir, "locks", Component(providerID), name+".lock")
}

// Component turns an identifier such as "core:payday_2" into a string that is
// safe to use as a single path element on every platform.
func Component(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}

// ValidName checks that a derived mod name can be used as a single path
// element without escaping its parent directory.
func ValidName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("empty name")
	case name == "." || name == "..":
		return fmt.Errorf("reserved name %q", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name %q contains a path separator", name)
	case strings.HasSuffix(name, stagingSuffix):
		return fmt.Errorf("name %q collides with staging suffix", name)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
