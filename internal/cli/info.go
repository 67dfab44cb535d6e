package cli

import (
	"github.com/spf13/cobra"

	"ompkg/internal/ui"
	"ompkg/pkg/project"
	"ompkg/pkg/registry"
)

var infoCmd = &cobra.Command{
	Use:   "info [owner/name]",
	Short: "Show what is recorded for a package",
	Long: `Show the declared constraint and target of a package together
with the installed release and every file the lock records for it.

Without an argument you pick the package from a list.

Examples:
  ompkg info owner/plugin`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	var repo string
	if len(args) == 1 {
		owner, name, err := registry.ParseRepo(args[0])
		if err != nil {
			return err
		}
		repo = owner + "/" + name
	} else {
		entries, err := mgr.List()
		if err != nil {
			return err
		}
		entry, err := ui.SelectEntry(entries, "Select a package")
		if err != nil {
			return err
		}
		repo = entry.Repo
	}

	proj, err := mgr.Project()
	if err != nil {
		return err
	}
	var spec *project.PackageSpec
	if s, ok := proj.Package(repo); ok {
		spec = &s
	}

	pkg, installed, err := mgr.Installed(repo)
	if err != nil {
		return err
	}
	if spec == nil && !installed {
		ui.MutedMsg("%s is neither declared nor installed", repo)
		return nil
	}
	if !installed {
		pkg = nil
	}

	ui.PrintLockInfo(repo, spec, pkg)
	return nil
}
