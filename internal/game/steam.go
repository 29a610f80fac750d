package game

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/andygrunwald/vdf"
)

// SteamLocator finds an app inside the Steam libraries reachable from Roots.
type SteamLocator struct {
	AppID int
	Roots []string
}

// NewSteamLocator returns a locator searching the usual Steam install roots of
// the current platform.
func NewSteamLocator(appID int) SteamLocator {
	return SteamLocator{AppID: appID, Roots: DefaultSteamRoots()}
}

// DefaultSteamRoots lists where Steam itself is commonly installed.
func DefaultSteamRoots() []string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		roots := []string{`C:\Program Files (x86)\Steam`, `C:\Program Files\Steam`}
		if pf := os.Getenv("ProgramFiles(x86)"); pf != "" {
			roots = append([]string{filepath.Join(pf, "Steam")}, roots...)
		}
		return roots
	case "darwin":
		return []string{filepath.Join(home, "Library", "Application Support", "Steam")}
	default:
		return []string{
			filepath.Join(home, ".steam", "steam"),
			filepath.Join(home, ".local", "share", "Steam"),
			filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
			filepath.Join(home, "snap", "steam", "common", ".local", "share", "Steam"),
		}
	}
}

// Locate returns the app's install directory from the first library that has
// an app manifest for it.
func (l SteamLocator) Locate() (string, bool) {
	seen := make(map[string]bool)
	for _, root := range l.Roots {
		for _, lib := range libraries(root) {
			if seen[lib] {
				continue
			}
			seen[lib] = true
			if dir, ok := l.findIn(lib); ok {
				return dir, true
			}
		}
	}
	return "", false
}

func (l SteamLocator) findIn(library string) (string, bool) {
	manifest := filepath.Join(library, "steamapps", fmt.Sprintf("appmanifest_%d.acf", l.AppID))
	doc, err := parseVDF(manifest)
	if err != nil {
		return "", false
	}
	state, _ := child(doc, "AppState").(map[string]interface{})
	installDir, _ := child(state, "installdir").(string)
	if installDir == "" {
		return "", false
	}
	dir := filepath.Join(library, "steamapps", "common", unescapeVDF(installDir))
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", false
	}
	return dir, true
}

// libraries returns root plus every library listed in its libraryfolders.vdf.
func libraries(root string) []string {
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	libs := []string{root}
	for _, name := range []string{
		filepath.Join("steamapps", "libraryfolders.vdf"),
		filepath.Join("config", "libraryfolders.vdf"),
	} {
		doc, err := parseVDF(filepath.Join(root, name))
		if err != nil {
			continue
		}
		for _, lib := range libraryPaths(doc) {
			lib = filepath.Clean(unescapeVDF(lib))
			if resolved, err := filepath.EvalSymlinks(lib); err == nil {
				lib = resolved
			}
			libs = append(libs, lib)
		}
		break
	}
	return libs
}

// libraryPaths reads both libraryfolders layouts: the current one where each
// numbered entry is a block with a "path" key, and the older one where the
// numbered entry is the path itself.
func libraryPaths(doc map[string]interface{}) []string {
	folders, _ := child(doc, "libraryfolders").(map[string]interface{})

	type indexed struct {
		n    int
		path string
	}
	var found []indexed
	for key, v := range folders {
		n, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		switch v := v.(type) {
		case string:
			found = append(found, indexed{n, v})
		case map[string]interface{}:
			if path, ok := child(v, "path").(string); ok && path != "" {
				found = append(found, indexed{n, path})
			}
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, f.path)
	}
	return out
}

func parseVDF(path string) (map[string]interface{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return vdf.NewParser(f).Parse()
}

// child looks key up case-insensitively; Steam has written both
// "LibraryFolders" and "libraryfolders" over the years.
func child(m map[string]interface{}, key string) interface{} {
	if v, ok := m[key]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

// unescapeVDF collapses doubled backslashes in Windows paths. It is a no-op
// on values the parser has already unescaped.
func unescapeVDF(s string) string {
	return strings.ReplaceAll(s, `\\`, `\`)
}
