package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
	"ompkg/pkg/manager"
	"ompkg/pkg/project"
	"ompkg/pkg/registry"
)

var removeCmd = &cobra.Command{
	Use:     "remove [owner/name...]",
	Aliases: []string{"uninstall", "rm"},
	Short:   "Remove packages and their files",
	Long: `Remove packages from the workspace.

The files recorded for the package in ompkg.lock are deleted, the
package is dropped from ompkg.toml and ompkg.lock, and its plugins are
removed from legacy_plugins in config.json. A package installed before
ompkg.lock existed is found by matching its name against the files in
the include, components and plugins directories.

Without arguments you pick the packages from a list.

Examples:
  ompkg remove owner/plugin          # Remove one package
  ompkg rm owner/a owner/b -y        # Remove two without confirmation`,
	RunE: runRemove,
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	repos, err := removalTargets(mgr, args)
	if err != nil {
		return err
	}

	ui.InfoMsg("Packages to remove:")
	for _, repo := range repos {
		ui.MutedMsg("  - %s", repo)
	}
	if err := confirm("Proceed with removal?", false); err != nil {
		return err
	}

	proj, err := mgr.Project()
	if err != nil {
		return err
	}

	entry := history.NewEntry(history.OpRemove, mgr.Root(), nil)
	var errs []error
	for _, repo := range repos {
		// Capture what reinstalling needs before the entry is gone.
		pkg := undoRecord(mgr, proj, repo)

		res, err := mgr.Remove(ctx, repo)
		if err != nil {
			ui.ErrorMsg("Failed to remove %s: %v", repo, err)
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			continue
		}
		printRemoveResult(res)
		entry.Add(pkg)
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

// removalTargets canonicalizes args, or asks the user to pick from the
// installed packages when there are none.
func removalTargets(mgr *manager.Manager, args []string) ([]string, error) {
	if len(args) > 0 {
		repos := make([]string, 0, len(args))
		for _, arg := range args {
			owner, name, err := registry.ParseRepo(arg)
			if err != nil {
				return nil, err
			}
			repos = append(repos, owner+"/"+name)
		}
		return repos, nil
	}

	if cfg.General.AutoConfirm {
		return nil, ErrNoPackages
	}
	entries, err := mgr.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Repo
	}
	if len(names) == 0 {
		return nil, ErrNoPackages
	}

	selected, err := ui.SelectMultiple(names, "Select packages to remove:")
	if err != nil {
		return nil, err
	}
	if len(selected) == 0 {
		return nil, ErrNoPackages
	}
	return selected, nil
}

// undoRecord returns the history record that lets undo reinstall repo.
func undoRecord(mgr *manager.Manager, proj *project.Config, repo string) history.Package {
	pkg := history.Package{Repo: repo}
	if spec, ok := proj.Package(repo); ok {
		pkg.Constraint = spec.Version
		if spec.Target.IsSet() {
			pkg.Target = spec.Target.String()
		}
	}
	if locked, ok, err := mgr.Installed(repo); err == nil && ok {
		pkg.Version = locked.Version
	}
	return pkg
}

func printRemoveResult(res *manager.RemoveResult) {
	name := ui.RepoName.Sprint(res.Repo)
	if res.DryRun {
		ui.InfoMsg("Would remove %s (%s)", name, plural(len(res.Removed), "file"))
	} else {
		ui.SuccessMsg("Removed %s", name)
	}
	if res.ByName {
		ui.WarningMsg("%s was not in the lock file; files were matched by name", res.Repo)
	}
	for _, f := range res.Removed {
		ui.FileMsg(false, f)
	}
	for _, f := range res.Missing {
		ui.MutedMsg("    already gone: %s", f)
	}
	if !res.DryRun && res.Plugins != nil {
		if len(res.Plugins) == 0 {
			ui.MutedMsg("  legacy_plugins: (empty)")
		} else {
			ui.MutedMsg("  legacy_plugins: %s", ui.PluginList(res.Plugins))
		}
	}
}

// removeRepos is the non-interactive path shared with undo.
func removeRepos(ctx context.Context, mgr *manager.Manager, repos []string) error {
	var errs []error
	for _, repo := range repos {
		res, err := mgr.Remove(ctx, repo)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", repo, err))
			continue
		}
		printRemoveResult(res)
	}
	return errors.Join(errs...)
}
