package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/caedis/void-mod-installer/internal/batch"
	"github.com/caedis/void-mod-installer/internal/downloader"
	"github.com/caedis/void-mod-installer/internal/locks"
	"github.com/caedis/void-mod-installer/internal/logging"
	"github.com/caedis/void-mod-installer/internal/paths"
)

var (
	concurrency int
	cacheDir    string
	refresh     bool
	noProgress  bool
)

var installCmd = &cobra.Command{
	Use:   "install <archive|url>...",
	Short: "Install one or more mod archives",
	Long: `Extract each archive into the data directory and link it into the game.

Archives containing more than one Lua script are installed as mods; anything
else is installed as an asset override. Reinstalling a mod replaces the
previous copy.`,
	Args: usageArgs(cobra.MinimumNArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		showBars := len(args) == 1 && !noProgress && isTerminal()

		archives, err := resolveArchives(cmd, args, showBars)
		if err != nil {
			return err
		}

		var extractBar *progressbar.ProgressBar
		onExtract := func(done, total int) {}
		if showBars {
			onExtract = func(done, total int) {
				if extractBar == nil {
					extractBar = progressbar.NewOptions(total,
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionSetDescription("Extracting"),
						progressbar.OptionShowCount(),
						progressbar.OptionClearOnFinish(),
					)
				}
				_ = extractBar.Set(done)
			}
		}

		in, err := newInstaller(onExtract)
		if err != nil {
			return err
		}

		dir := resolveDataDir()
		providerID := in.Target().ID
		runner := &batch.Runner{
			Installer:   in,
			Locks:       locks.New(func(name string) string { return paths.LockFile(dir, providerID, name) }),
			Concurrency: concurrency,
			Logger:      logging.Component("batch"),
		}

		var mu sync.Mutex
		runner.OnDone = func(out batch.Outcome) {
			mu.Lock()
			defer mu.Unlock()
			if extractBar != nil {
				_ = extractBar.Finish()
			}
			label := filepath.Base(out.Archive)
			if out.Err != nil {
				logging.Infof("FAIL %s: %s\n", label, describeError(out.Err))
				return
			}
			r := out.Result
			logging.Infof("OK   %s -> %s (%s, %d files, %s)\n",
				label, r.Name, r.Kind, r.Files, humanize.Bytes(r.Size))
			logging.Debugf("     linked %s -> %s\n", r.Link, r.ContentRoot)
		}

		outcomes := runner.Run(cmd.Context(), archives)

		failed := 0
		for _, out := range outcomes {
			if out.Err != nil {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d installs failed", failed, len(outcomes))
		}
		return nil
	},
}

// resolveArchives downloads any URL arguments into the cache and returns
// local paths in argument order.
func resolveArchives(cmd *cobra.Command, args []string, showBars bool) ([]string, error) {
	dir := cacheDir
	if dir == "" {
		dir = paths.CacheDir()
	}

	out := make([]string, 0, len(args))
	for _, arg := range args {
		if !downloader.IsURL(arg) {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}
			out = append(out, abs)
			continue
		}

		var bar *progressbar.ProgressBar
		var onProgress func(downloader.Progress)
		if showBars {
			onProgress = func(p downloader.Progress) {
				if bar == nil {
					bar = progressbar.DefaultBytes(p.Total, "Downloading")
				}
				_ = bar.Set64(p.Completed)
			}
		}

		logging.Debugf("Fetching %s\n", arg)
		local, err := downloader.Fetch(cmd.Context(), downloader.Download{URL: arg}, dir, refresh, onProgress)
		if bar != nil {
			_ = bar.Finish()
		}
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", arg, err)
		}
		out = append(out, local)
	}
	return out, nil
}

func init() {
	installCmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of archives installed at once")
	installCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "Directory downloaded archives are cached in")
	installCmd.Flags().BoolVar(&refresh, "refresh", false, "Download archives again even when cached")
	installCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	rootCmd.AddCommand(installCmd)
}
