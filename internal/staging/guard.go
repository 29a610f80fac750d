// Package staging owns the transient directories archives are extracted into
// before they are promoted to their permanent location.
package staging

import (
	"os"

	"github.com/rs/zerolog"
)

// Guard removes its directory on Release unless Commit was called first.
//
//	g := staging.Acquire(path, logger)
//	defer g.Release()
//	... extract into g.Path(), move it away ...
//	g.Commit()
type Guard struct {
	path      string
	committed bool
	released  bool
	logger    zerolog.Logger
}

// Acquire returns a guard bound to path. The path need not exist yet and
// nothing is touched on disk.
func Acquire(path string, logger zerolog.Logger) *Guard {
	return &Guard{path: path, logger: logger}
}

// Path returns the guarded directory.
func (g *Guard) Path() string {
	return g.path
}

// Commit hands the directory over to the caller. The guard performs no
// cleanup afterwards.
func (g *Guard) Commit() {
	g.committed = true
}

// Release removes the directory if the guard was not committed. Removal
// failures are logged and dropped so they never mask the error that caused the
// early exit. Only the first call has any effect.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	if g.committed {
		return
	}

	if _, err := os.Lstat(g.path); err != nil {
		return
	}
	if err := os.RemoveAll(g.path); err != nil {
		g.logger.Debug().Err(err).Str("path", g.path).Msg("staging cleanup failed")
		return
	}
	g.logger.Debug().Str("path", g.path).Msg("removed uncommitted staging directory")
}
