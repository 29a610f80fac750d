package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/caedis/void-mod-installer/internal/locks"
	"github.com/caedis/void-mod-installer/internal/logging"
	"github.com/caedis/void-mod-installer/internal/paths"
	"github.com/caedis/void-mod-installer/internal/staging"
)

var cleanMaxAge time.Duration

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove staging directories left behind by interrupted installs",
	Long: `Remove staging directories older than --max-age from the extracted area.

A directory whose mod is being installed by another process is skipped.`,
	Args: usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cleanMaxAge < 0 {
			return wrapUsageError(fmt.Errorf("--max-age must not be negative"))
		}
		in, err := newInstaller(nil)
		if err != nil {
			return err
		}

		dir := resolveDataDir()
		providerID := in.Target().ID
		keyed := locks.New(func(name string) string { return paths.LockFile(dir, providerID, name) })
		hold := func(name string) (func(), bool) {
			unlock, ok, err := keyed.TryLock(name)
			if err != nil {
				logging.Debugf("Could not lock %s: %v\n", name, err)
				return nil, false
			}
			return unlock, ok
		}

		res := staging.CleanStale(cmd.Context(), in.ExtractedArea(), cleanMaxAge, logging.Component("clean"), hold)
		for _, b := range res.Busy {
			logging.Infof("Skipped %s: an install of this mod is running\n", b)
		}
		for _, e := range res.Errors {
			logging.Infof("Could not remove %s: %s\n", e.Path, e.Error)
		}
		for _, removed := range res.Removed {
			logging.Debugf("Removed %s\n", removed)
		}
		logging.Infof("Removed %d staging director%s.\n", len(res.Removed), plural(len(res.Removed), "y", "ies"))
		if len(res.Errors) > 0 {
			return fmt.Errorf("%d staging directories could not be removed", len(res.Errors))
		}
		return nil
	},
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func init() {
	cleanCmd.Flags().DurationVar(&cleanMaxAge, "max-age", time.Hour, "Only remove staging directories older than this")
	rootCmd.AddCommand(cleanCmd)
}
