package cli

import (
	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile legacy_plugins with the lock file",
	Long: `Add every plugin recorded in ompkg.lock to the legacy_plugins
list of config.json. Use it after editing config.json by hand or when
an install was interrupted. Running it twice changes nothing.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	entry := history.NewEntry(history.OpSync, mgr.Root(), nil)
	plugins, err := mgr.Sync()
	entry.Finish(err)
	recordHistory(entry)
	if err != nil {
		return err
	}

	if len(plugins) == 0 {
		ui.MutedMsg("No legacy plugins")
	} else {
		ui.SuccessMsg("legacy_plugins: %s", ui.PluginList(plugins))
	}
	dryRunNote()
	return nil
}
