package install

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caedis/void-mod-installer/internal/fsutil"
)

// Installed is an activation link found in one of the destination roots.
type Installed struct {
	Name     string
	Kind     Kind
	Link     string
	Target   string
	Dangling bool
}

// Active lists the activation links in both destination roots that point into
// this installer's extracted area. Links and folders created by other tools
// are ignored.
func (in *Installer) Active() ([]Installed, error) {
	base, ok := in.locator.Locate()
	if !ok {
		return nil, &Error{
			Code: CodeMissingTarget,
			Op:   "locate install base",
			Err:  fmt.Errorf("%s is not installed on this machine", in.target.DisplayName),
		}
	}

	area := in.ExtractedArea()
	var out []Installed
	for _, root := range []struct {
		dir  string
		kind Kind
	}{
		{in.target.ModsRoot(base), KindScript},
		{in.target.OverridesRoot(base), KindOverride},
	} {
		entries, err := os.ReadDir(root.dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, wrap("read destination root", err)
		}
		for _, e := range entries {
			link := filepath.Join(root.dir, e.Name())
			target, ok := fsutil.LinkTarget(link)
			if !ok || !within(target, area) {
				continue
			}
			_, statErr := os.Stat(target)
			out = append(out, Installed{
				Name:     e.Name(),
				Kind:     root.kind,
				Link:     link,
				Target:   target,
				Dangling: statErr != nil,
			})
		}
	}
	return out, nil
}
