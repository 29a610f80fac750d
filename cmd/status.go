package cmd

import (
	"github.com/spf13/cobra"

	"github.com/caedis/void-mod-installer/internal/install"
	"github.com/caedis/void-mod-installer/internal/logging"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List installed mods and where they are linked",
	Args:  usageArgs(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := newInstaller(nil)
		if err != nil {
			return err
		}
		active, err := in.Active()
		if err != nil {
			return err
		}
		if len(active) == 0 {
			logging.Infoln("No mods installed.")
			return nil
		}
		logging.Infoln(renderStatus(active))
		return nil
	},
}

func renderStatus(active []install.Installed) string {
	rows := make([][]string, 0, len(active))
	for _, a := range active {
		state := "ok"
		if a.Dangling {
			state = "missing"
		}
		rows = append(rows, []string{a.Name, a.Kind.String(), state, a.Target})
	}
	return renderTable([]string{"Name", "Kind", "State", "Content"}, rows)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
