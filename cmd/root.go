package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/caedis/void-mod-installer/internal/archive"
	"github.com/caedis/void-mod-installer/internal/game"
	"github.com/caedis/void-mod-installer/internal/install"
	"github.com/caedis/void-mod-installer/internal/logging"
	"github.com/caedis/void-mod-installer/internal/paths"
	"github.com/caedis/void-mod-installer/internal/profile"
)

var (
	gameDir     string
	dataDir     string
	profileName string
	verbose     bool
	logFile     string
)

var rootCmd = &cobra.Command{
	Use:           "vmm-install",
	Short:         "Install PAYDAY 2 mod archives",
	Long:          "Extract mod archives into a managed data directory and activate them in the game's mods or mod_overrides folder.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Apply profile defaults for flags not explicitly set by the user.
		if profileName != "" {
			p, err := profile.Load(profileName)
			if err != nil {
				return err
			}
			applyProfile(cmd, p)
		}

		logging.SetVerbose(verbose)
		if err := logging.SetOutputFile(logFile); err != nil {
			return fmt.Errorf("opening log file %q: %w", logFile, err)
		}
		return nil
	},
}

func applyProfile(cmd *cobra.Command, p *profile.Profile) {
	notChanged := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && !f.Changed
	}
	if p.GameDir != nil && notChanged("game-dir") {
		gameDir = *p.GameDir
	}
	if p.DataDir != nil && notChanged("data-dir") {
		dataDir = *p.DataDir
	}
	if p.Verbose != nil && notChanged("verbose") {
		verbose = *p.Verbose
	}
	if p.LogFile != nil && notChanged("log-file") {
		logFile = *p.LogFile
	}
	if p.CacheDir != nil && notChanged("cache-dir") {
		cacheDir = *p.CacheDir
	}
	if p.Concurrency != nil && notChanged("concurrency") {
		concurrency = *p.Concurrency
	}
}

func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	cancel()
	closeErr := logging.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "Error closing log file: %v\n", closeErr)
		if err == nil {
			os.Exit(1)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if isUsageError(err) {
			if cmd, _, findErr := rootCmd.Find(os.Args[1:]); findErr == nil && cmd != nil {
				_ = cmd.Usage()
			} else {
				_ = rootCmd.Usage()
			}
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return wrapUsageError(err)
	})

	rootCmd.PersistentFlags().StringVarP(&gameDir, "game-dir", "g", "", "Game install directory (default: $"+paths.EnvGameDir+", then Steam libraries)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory extracted mods are kept in (default: XDG data home, or $"+paths.EnvDataDir+")")
	rootCmd.PersistentFlags().StringVar(&profileName, "profile", "", "Load a saved option profile by name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write command output to a log file")
}

func resolveDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	return paths.DataDir()
}

// gameLocator uses --game-dir alone when it is given. Otherwise
// $VMM_GAME_DIR is tried before the Steam libraries.
func gameLocator(target game.Target) game.Locator {
	if gameDir != "" {
		return game.DirLocator{Dir: gameDir}
	}
	return game.Chain{
		game.DirLocator{Dir: os.Getenv(paths.EnvGameDir)},
		game.NewSteamLocator(target.SteamAppID),
	}
}

func newInstaller(onExtract func(done, total int)) (*install.Installer, error) {
	target := game.Payday2
	return install.New(install.Options{
		Target:   target,
		Locator:  gameLocator(target),
		DataDir:  resolveDataDir(),
		Archiver: archive.Zip{Progress: onExtract},
		Logger:   logging.Component("install"),
	})
}

func isTerminal() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// describeError adds a hint for failures users can fix themselves.
func describeError(err error) string {
	if errors.Is(err, install.ErrMissingTarget) {
		return err.Error() + " (pass --game-dir to point at the game directory)"
	}
	return err.Error()
}

type usageError struct {
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func wrapUsageError(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if validate == nil {
			return nil
		}
		if err := validate(cmd, args); err != nil {
			return wrapUsageError(err)
		}
		return nil
	}
}

func isUsageError(err error) bool {
	var ue *usageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ")
}
