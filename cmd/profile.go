package cmd

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/caedis/void-mod-installer/internal/logging"
	"github.com/caedis/void-mod-installer/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage saved option profiles",
}

// Flags for profile create
var (
	profGameDir     *string
	profDataDir     *string
	profConcurrency *int
	profCacheDir    *string
	profVerbose     *bool
)

var profileCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &profile.Profile{}

		if cmd.Flags().Changed("game-dir") {
			p.GameDir = profGameDir
		}
		if cmd.Flags().Changed("data-dir") {
			p.DataDir = profDataDir
		}
		if cmd.Flags().Changed("concurrency") {
			p.Concurrency = profConcurrency
		}
		if cmd.Flags().Changed("cache-dir") {
			p.CacheDir = profCacheDir
		}
		if cmd.Flags().Changed("verbose") {
			p.Verbose = profVerbose
		}
		if cmd.Flags().Changed("log-file") {
			p.LogFile = &logFile
		}

		if err := profile.Save(args[0], p); err != nil {
			return err
		}
		logging.Infof("Profile %q saved to %s\n", args[0], profile.Dir())
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved profiles",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := profile.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			logging.Infoln("No profiles saved.")
			return nil
		}
		for _, n := range names {
			logging.Infoln(n)
		}
		return nil
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a profile's contents",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile.Load(args[0])
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(p); err != nil {
			return err
		}
		logging.Infof("%s", buf.String())
		return nil
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved profile",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := profile.Delete(args[0]); err != nil {
			return err
		}
		logging.Infof("Profile %q deleted.\n", args[0])
		return nil
	},
}

func init() {
	// Local flags shadow the persistent root flags of the same name, so the
	// values given here are saved rather than applied to this run.
	profGameDir = profileCreateCmd.Flags().String("game-dir", "", "Game install directory")
	profDataDir = profileCreateCmd.Flags().String("data-dir", "", "Directory extracted mods are kept in")
	profConcurrency = profileCreateCmd.Flags().Int("concurrency", 4, "Number of archives installed at once")
	profCacheDir = profileCreateCmd.Flags().String("cache-dir", "", "Directory downloaded archives are cached in")
	profVerbose = profileCreateCmd.Flags().Bool("verbose", false, "Enable verbose logging")

	profileCmd.AddCommand(profileCreateCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
	rootCmd.AddCommand(profileCmd)
}
