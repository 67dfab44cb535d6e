package cli

import (
	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create ompkg.toml and the workspace directories",
	Long: `Write a default ompkg.toml when the workspace has none and
create the components, plugins and include directories.

Examples:
  ompkg init
  ompkg init -C ~/servers/freeroam`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	entry := history.NewEntry(history.OpInit, mgr.Root(), nil)
	info, created, err := mgr.Init()
	entry.Finish(err)
	recordHistory(entry)
	if err != nil {
		return err
	}

	if created {
		ui.SuccessMsg("Created %s", mgr.ProjectPath())
	} else {
		ui.InfoMsg("%s already exists", mgr.ProjectPath())
	}
	ui.PrintWorkspace(info)
	dryRunNote()
	return nil
}
