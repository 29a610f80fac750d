// Package install installs mod archives: extract into a staging directory,
// classify, promote to a permanent per-mod directory and activate it with a
// symlink in the application's mod folders.
package install

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/caedis/void-mod-installer/internal/archive"
	"github.com/caedis/void-mod-installer/internal/fsutil"
	"github.com/caedis/void-mod-installer/internal/game"
	"github.com/caedis/void-mod-installer/internal/paths"
	"github.com/caedis/void-mod-installer/internal/staging"
)

// Archiver inspects and extracts archives.
type Archiver interface {
	Inspect(archivePath string) (*archive.Info, error)
	Extract(archivePath, dest string) (*archive.Info, error)
}

// Linker creates destination directories and activation links.
type Linker interface {
	EnsureDir(path string) error
	ReplaceSymlinkDir(target, link string) error
}

// Options configures an Installer. Archiver and Linker default to the zip
// implementation and the real filesystem.
type Options struct {
	Target   game.Target
	Locator  game.Locator
	DataDir  string
	Archiver Archiver
	Linker   Linker
	Logger   zerolog.Logger
}

// Installer installs archives for one target application. Install is not safe
// to call concurrently for the same mod name; see internal/batch.
type Installer struct {
	target   game.Target
	locator  game.Locator
	dataDir  string
	archiver Archiver
	linker   Linker
	logger   zerolog.Logger
}

// Result describes a completed install.
type Result struct {
	Name         string
	Kind         Kind
	ExtractedDir string
	ContentRoot  string
	Link         string
	Files        int
	Size         uint64
}

// New validates opts and returns an Installer.
func New(opts Options) (*Installer, error) {
	if opts.Target.ID == "" {
		return nil, errors.New("install: target id is required")
	}
	if opts.Locator == nil {
		return nil, errors.New("install: locator is required")
	}
	if strings.TrimSpace(opts.DataDir) == "" {
		return nil, errors.New("install: data dir is required")
	}
	dataDir, err := filepath.Abs(opts.DataDir)
	if err != nil {
		return nil, fmt.Errorf("install: resolving data dir: %w", err)
	}
	if opts.Archiver == nil {
		opts.Archiver = archive.Zip{}
	}
	if opts.Linker == nil {
		opts.Linker = fsutil.OS{}
	}
	return &Installer{
		target:   opts.Target,
		locator:  opts.Locator,
		dataDir:  dataDir,
		archiver: opts.Archiver,
		linker:   opts.Linker,
		logger:   opts.Logger,
	}, nil
}

// Target returns the application this installer installs into.
func (in *Installer) Target() game.Target {
	return in.target
}

// ExtractedArea returns the directory holding every extracted mod of the target.
func (in *Installer) ExtractedArea() string {
	return paths.ExtractedArea(in.dataDir, in.target.ID)
}

// DeriveName inspects the archive and returns the mod name an install would
// use, without touching the filesystem.
func (in *Installer) DeriveName(archivePath string) (string, error) {
	info, err := in.archiver.Inspect(archivePath)
	if err != nil {
		return "", wrap("inspect archive", err)
	}
	return deriveName(info, archivePath)
}

// Install installs the archive at archivePath and activates it. On error no
// activation link has been changed, and the extracted directory of the mod is
// either absent or complete.
func (in *Installer) Install(archivePath string) (*Result, error) {
	base, ok := in.locator.Locate()
	if !ok {
		return nil, &Error{
			Code: CodeMissingTarget,
			Op:   "locate install base",
			Err:  fmt.Errorf("%s is not installed on this machine", in.target.DisplayName),
		}
	}
	log := in.logger.With().Str("archive", filepath.Base(archivePath)).Logger()
	log.Debug().Str("base", base).Msg("install base located")

	modsRoot := in.target.ModsRoot(base)
	overridesRoot := in.target.OverridesRoot(base)
	if err := in.linker.EnsureDir(modsRoot); err != nil {
		return nil, wrap("ensure mods dir", err)
	}
	if err := in.linker.EnsureDir(overridesRoot); err != nil {
		return nil, wrap("ensure overrides dir", err)
	}

	info, err := in.archiver.Inspect(archivePath)
	if err != nil {
		return nil, wrap("inspect archive", err)
	}
	name, err := deriveName(info, archivePath)
	if err != nil {
		return nil, err
	}
	log = log.With().Str("name", name).Logger()

	extractedDir := paths.ExtractedDir(in.dataDir, in.target.ID, name)
	guard := staging.Acquire(paths.StagingDir(extractedDir), log)
	defer guard.Release()

	if exists(guard.Path()) {
		log.Debug().Str("path", guard.Path()).Msg("removing leftover staging directory")
		if err := os.RemoveAll(guard.Path()); err != nil {
			return nil, wrap("remove old staging", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(guard.Path()), 0o755); err != nil {
		return nil, wrap("create extracted area", err)
	}

	extracted, err := in.archiver.Extract(archivePath, guard.Path())
	if err != nil {
		return nil, wrap("extract archive", err)
	}

	kind := Classify(extracted, in.target.ScriptExt)
	log.Debug().
		Stringer("kind", kind).
		Int("script_files", extracted.CountExt(in.target.ScriptExt)).
		Msg("archive classified")

	if exists(extractedDir) {
		if err := os.RemoveAll(extractedDir); err != nil {
			return nil, wrap("remove previous extracted root", err)
		}
	}
	if err := os.Rename(guard.Path(), extractedDir); err != nil {
		return nil, wrap("rename staging to extracted", err)
	}
	guard.Commit()

	contentRoot := ResolveRoot(extracted, extractedDir)

	destRoot, otherRoot := modsRoot, overridesRoot
	if kind == KindOverride {
		destRoot, otherRoot = overridesRoot, modsRoot
	}
	link := filepath.Join(destRoot, name)
	if err := in.linker.ReplaceSymlinkDir(contentRoot, link); err != nil {
		return nil, wrap("link mod directory", err)
	}

	in.retireLink(filepath.Join(otherRoot, name), extractedDir, log)

	log.Info().
		Stringer("kind", kind).
		Str("link", link).
		Str("target", contentRoot).
		Msg("mod activated")

	return &Result{
		Name:         name,
		Kind:         kind,
		ExtractedDir: extractedDir,
		ContentRoot:  contentRoot,
		Link:         link,
		Files:        extracted.Files(),
		Size:         extracted.TotalSize(),
	}, nil
}

// retireLink removes a link left in the other destination root by an earlier
// install of the same mod with a different kind. Failures are only logged:
// the mod is already active.
func (in *Installer) retireLink(link, extractedDir string, log zerolog.Logger) {
	target, ok := fsutil.LinkTarget(link)
	if !ok || !within(target, extractedDir) {
		return
	}
	if err := os.Remove(link); err != nil {
		log.Warn().Err(err).Str("link", link).Msg("failed to remove previous activation link")
		return
	}
	log.Debug().Str("link", link).Msg("removed previous activation link")
}

// deriveName prefers the archive's wrapper directory and falls back to the
// archive file name without its extension.
func deriveName(info *archive.Info, archivePath string) (string, error) {
	if info.Files() == 0 {
		return "", malformed("inspect archive", errors.New("archive contains no files"))
	}

	name, ok := info.SingleTopLevelDir()
	if !ok {
		base := filepath.Base(archivePath)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if err := paths.ValidName(name); err != nil {
		return "", malformed("derive mod name", err)
	}
	return name, nil
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
