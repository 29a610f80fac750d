// Package archive inspects and extracts mod archives.
package archive

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnore lists entries that packing tools add to archives and that are
// never part of a mod's content.
var DefaultIgnore = []string{
	"__MACOSX",
	"__MACOSX/**",
	"**/.DS_Store",
	"**/Thumbs.db",
	"**/desktop.ini",
}

// Entry is one member of an archive.
type Entry struct {
	Name  string // slash-separated, no leading or trailing slash
	IsDir bool
	Size  uint64
}

// Info describes the content of an archive. It is built once and not
// modified afterwards.
type Info struct {
	Entries []Entry

	exts     map[string]int
	topLevel string
}

// SingleTopLevelDir returns the name of the directory every entry lives in,
// if there is exactly one such wrapper directory.
func (i *Info) SingleTopLevelDir() (string, bool) {
	return i.topLevel, i.topLevel != ""
}

// CountExt returns how many file entries carry the extension ext. The leading
// dot is optional and the comparison ignores case.
func (i *Info) CountExt(ext string) int {
	return i.exts[normalizeExt(ext)]
}

// Files returns the number of file entries.
func (i *Info) Files() int {
	n := 0
	for _, e := range i.Entries {
		if !e.IsDir {
			n++
		}
	}
	return n
}

// TotalSize returns the uncompressed size of all file entries.
func (i *Info) TotalSize() uint64 {
	var total uint64
	for _, e := range i.Entries {
		total += e.Size
	}
	return total
}

func newInfo(entries []Entry) *Info {
	info := &Info{Entries: entries, exts: make(map[string]int)}

	top := ""
	wrapped := len(entries) > 0
	for _, e := range entries {
		if !e.IsDir {
			if ext := normalizeExt(path.Ext(e.Name)); ext != "" {
				info.exts[ext]++
			}
		}

		first, _, nested := strings.Cut(e.Name, "/")
		if top == "" {
			top = first
		}
		if first != top {
			wrapped = false
			continue
		}
		// A file sitting at the top level is content, not a wrapper.
		if !nested && !e.IsDir {
			wrapped = false
		}
	}
	if wrapped {
		info.topLevel = top
	}
	return info
}

// cleanName normalizes an archive member name. It returns false for names
// that carry no content.
func cleanName(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.Trim(name, "/")
	if name == "" || name == "." {
		return "", false
	}
	return name, true
}

func ignored(name string, patterns []string) bool {
	for _, p := range patterns {
		if matched, _ := doublestar.Match(p, name); matched {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
