package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
	"ompkg/pkg/registry"
)

var updateAll bool

var updateCmd = &cobra.Command{
	Use:     "update [owner/name...]",
	Aliases: []string{"upgrade"},
	Short:   "Update packages within their constraints",
	Long: `Reinstall packages with the newest release their declared
constraint allows. Files of the previous release that the new one no
longer ships are removed.

Examples:
  ompkg update owner/plugin    # Update one package
  ompkg update --all           # Update every declared package`,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateAll, "all", "a", false, "update every declared package")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 0 && !updateAll {
		return fmt.Errorf("%w: name packages or pass --all", ErrNoPackages)
	}
	if len(args) > 0 && updateAll {
		return fmt.Errorf("--all cannot be combined with package names")
	}

	progress := ui.NewProgress(os.Stderr)
	mgr, err := newManager(progress)
	if err != nil {
		return err
	}

	repos := make([]string, 0, len(args))
	for _, arg := range args {
		owner, name, err := registry.ParseRepo(arg)
		if err != nil {
			return err
		}
		repos = append(repos, owner+"/"+name)
	}
	if updateAll {
		if _, err := os.Stat(mgr.ProjectPath()); os.IsNotExist(err) {
			return ErrNoProject
		}
		proj, err := mgr.Project()
		if err != nil {
			return err
		}
		repos = proj.Repos()
		if len(repos) == 0 {
			ui.MutedMsg("No packages declared")
			return nil
		}
	}

	entry := history.NewEntry(history.OpUpdate, mgr.Root(), nil)
	var errs []error
	for _, repo := range repos {
		sp := ui.NewSpinner(fmt.Sprintf("Updating %s", repo))
		progress.Reset(sp.Stop)
		sp.Start()

		res, err := mgr.Update(ctx, repo)
		progress.Done()
		if err != nil {
			sp.Error(fmt.Sprintf("Failed to update %s: %v", repo, err))
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			continue
		}
		sp.Stop()

		printInstallResult(res)
		entry.Add(history.Package{Repo: res.Repo, Constraint: res.Constraint, Target: res.Target.String(), Version: res.Version, Previous: res.Previous})
	}

	err = errors.Join(errs...)
	entry.Finish(err)
	recordHistory(entry)
	dryRunNote()

	if len(errs) > 0 && len(repos) > 1 {
		return fmt.Errorf("%w: %v", ErrPartial, err)
	}
	return err
}
