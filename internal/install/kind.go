package install

import "github.com/caedis/void-mod-installer/internal/archive"

// Kind is the content classification of a mod. It decides which destination
// root the mod is linked into.
type Kind int

const (
	// KindOverride is asset-override content, linked under the override root.
	KindOverride Kind = iota
	// KindScript is script/code content, linked under the primary mods root.
	KindScript
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindOverride:
		return "override"
	}
	return "unknown"
}

// Classify guesses the kind of a mod from its file extensions: more than one
// script file means a script mod, anything else is treated as an asset
// override. This is a heuristic about how mods are usually packaged, not a
// validation of the content.
func Classify(info *archive.Info, scriptExt string) Kind {
	if info.CountExt(scriptExt) > 1 {
		return KindScript
	}
	return KindOverride
}
