package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
	"ompkg/pkg/workspace"
)

var undoID string

var undoCmd = &cobra.Command{
	Use:     "undo",
	Aliases: []string{"rollback"},
	Short:   "Undo the last install or remove",
	Long: `Undo the last reversible operation in this workspace.

An install is undone by removing the packages it added; packages it
upgraded are left alone. A remove is undone by installing the packages
again with their previous constraint and target. Updates cannot be
undone.

Examples:
  ompkg undo                # Undo the last install or remove
  ompkg undo --id=xyz       # Undo a specific operation from 'ompkg history'`,
	Args: cobra.NoArgs,
	RunE: runUndo,
}

func init() {
	undoCmd.Flags().StringVar(&undoID, "id", "", "specific operation ID to undo")
}

func runUndo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	progress := ui.NewProgress(os.Stderr)
	mgr, err := newManager(progress)
	if err != nil {
		return err
	}

	// Find the operation to undo
	var entry *history.Entry
	if undoID != "" {
		entry, err = store.Get(undoID)
		if err != nil {
			return fmt.Errorf("operation not found: %s", undoID)
		}
	} else {
		entry, err = store.LastReversible(mgr.Root())
		if errors.Is(err, history.ErrNothingToUndo) {
			ui.MutedMsg("Nothing to undo in %s", mgr.Root())
			return nil
		}
		if err != nil {
			return err
		}
	}

	if !entry.CanUndo() {
		return fmt.Errorf("operation cannot be undone: %s", entry.Summary())
	}
	if entry.Workspace != mgr.Root() {
		return fmt.Errorf("operation belongs to workspace %s; run undo with -C %s", entry.Workspace, entry.Workspace)
	}

	plan := undoPlan(entry)
	if len(plan) == 0 {
		ui.MutedMsg("Every package of this install replaced an earlier version; nothing to undo")
		return nil
	}

	ui.HeaderMsg("Undoing: %s", entry.Summary())
	ui.InfoMsg("Reverse operation: %s", entry.ReverseOp)
	for _, pkg := range plan {
		ui.MutedMsg("  - %s", pkg)
	}
	if err := confirm("Proceed with undo?", false); err != nil {
		return err
	}

	reverse := history.NewEntry(entry.ReverseOp, mgr.Root(), nil)
	var errs []error
	switch entry.ReverseOp {
	case history.OpRemove:
		repos := make([]string, len(plan))
		for i, pkg := range plan {
			repos[i] = pkg.Repo
			reverse.Add(history.Package{Repo: pkg.Repo, Constraint: pkg.Constraint, Target: pkg.Target, Version: pkg.Version})
		}
		if err := removeRepos(ctx, mgr, repos); err != nil {
			errs = append(errs, err)
		}

	case history.OpInstall:
		for _, pkg := range plan {
			target, err := workspace.ParseTarget(pkg.Target)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pkg.Repo, err))
				continue
			}
			res, err := installOne(ctx, mgr, progress, installRequest{repo: pkg.Repo, constraint: pkg.Constraint}, target)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", pkg.Repo, err))
				continue
			}
			printInstallResult(res)
			reverse.Add(history.Package{Repo: res.Repo, Constraint: res.Constraint, Target: pkg.Target, Version: res.Version})
		}

	default:
		return fmt.Errorf("unsupported reverse operation: %s", entry.ReverseOp)
	}

	err = errors.Join(errs...)
	reverse.Finish(err)
	recordHistory(reverse)
	dryRunNote()
	if err != nil {
		return fmt.Errorf("undo failed: %w", err)
	}

	ui.SuccessMsg("Undo completed")
	return nil
}

// undoPlan returns the packages the reverse operation applies to. An
// install that replaced an earlier version is not reversed by removal.
func undoPlan(entry *history.Entry) []history.Package {
	if entry.ReverseOp != history.OpRemove {
		return entry.Packages
	}
	var plan []history.Package
	for _, pkg := range entry.Packages {
		if pkg.Previous == "" {
			plan = append(plan, pkg)
		}
	}
	return plan
}
