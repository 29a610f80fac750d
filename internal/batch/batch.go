// Package batch installs several archives concurrently while making sure two
// installs of the same mod never overlap.
package batch

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/caedis/void-mod-installer/internal/install"
	"github.com/caedis/void-mod-installer/internal/locks"
)

// Installer is the part of *install.Installer the runner needs.
type Installer interface {
	DeriveName(archivePath string) (string, error)
	Install(archivePath string) (*install.Result, error)
}

// Outcome is the result of installing one archive.
type Outcome struct {
	Archive string
	Name    string
	Result  *install.Result
	Err     error
}

// Runner installs archives with bounded parallelism.
type Runner struct {
	Installer   Installer
	Locks       *locks.Keyed
	Concurrency int
	Logger      zerolog.Logger
	// OnDone is called after each archive, possibly from several goroutines
	// at once.
	OnDone func(Outcome)
}

// Run installs every archive and returns one outcome per archive, in input
// order. A failing archive does not stop the others; cancelling ctx stops
// archives that have not started yet.
func (r *Runner) Run(ctx context.Context, archives []string) []Outcome {
	concurrency := r.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}
	keyed := r.Locks
	if keyed == nil {
		keyed = locks.New(nil)
	}

	outcomes := make([]Outcome, len(archives))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, archivePath := range archives {
		g.Go(func() error {
			out := r.installOne(gctx, keyed, archivePath)
			outcomes[i] = out
			if r.OnDone != nil {
				r.OnDone(out)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (r *Runner) installOne(ctx context.Context, keyed *locks.Keyed, archivePath string) Outcome {
	out := Outcome{Archive: archivePath}
	if err := ctx.Err(); err != nil {
		out.Err = err
		return out
	}

	name, err := r.Installer.DeriveName(archivePath)
	if err != nil {
		out.Err = err
		return out
	}
	out.Name = name

	unlock, err := keyed.Lock(ctx, name)
	if err != nil {
		out.Err = fmt.Errorf("waiting for %s: %w", name, err)
		return out
	}
	defer unlock()

	r.Logger.Debug().Str("archive", filepath.Base(archivePath)).Str("name", name).Msg("install lock held")
	out.Result, out.Err = r.Installer.Install(archivePath)
	return out
}
