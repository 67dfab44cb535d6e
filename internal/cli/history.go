package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
)

var (
	historyLimit int
	historyAll   bool
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show operation history",
	Long: `Display the operations ompkg performed, newest first. Only the
current workspace is shown unless --all is given.

Examples:
  ompkg history              # Show recent history
  ompkg history -l 20        # Show last 20 operations
  ompkg history --clear      # Delete all history`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyAll, "all", false, "include every workspace")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete all history entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if historyClear {
		if err := confirm("Delete all history?", false); err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		ui.SuccessMsg("History cleared")
		return nil
	}

	root, err := workspaceRoot()
	if err != nil {
		return err
	}

	// Read everything when filtering, then apply the limit.
	entries, err := store.List(0)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	entries = filterHistory(entries, root, historyAll, historyLimit)

	if len(entries) == 0 {
		ui.MutedMsg("No history entries found")
		return nil
	}

	ui.HeaderMsg("Operation History")

	for i, entry := range entries {
		status := ui.Green("success")
		if !entry.Success {
			status = ui.Red("failed")
		}
		if entry.DryRun {
			status += " " + ui.Yellow("[dry run]")
		}

		undoIndicator := ""
		if entry.CanUndo() {
			undoIndicator = " " + ui.Cyan("[undoable]")
		}

		workspace := ""
		if historyAll {
			workspace = " [" + ui.Cyan(entry.Workspace) + "]"
		}

		fmt.Printf("%2d. %s %s %s%s (%s)%s\n",
			i+1,
			ui.Muted.Sprint(entry.FormatTime()),
			ui.Bold(string(entry.Operation)),
			formatPackages(entry.Names()),
			workspace,
			status,
			undoIndicator,
		)

		if entry.Error != "" {
			ui.MutedMsg("    Error: %s", entry.Error)
		}
	}

	total, _ := store.Count()
	ui.MutedMsg("\nShowing %d of %d total entries", len(entries), total)

	return nil
}

// filterHistory keeps the entries of root, or all of them, up to limit.
func filterHistory(entries []history.Entry, root string, all bool, limit int) []history.Entry {
	var out []history.Entry
	for _, e := range entries {
		if limit > 0 && len(out) >= limit {
			break
		}
		if all || e.Workspace == root {
			out = append(out, e)
		}
	}
	return out
}

// formatPackages formats a list of packages for display.
func formatPackages(packages []string) string {
	if len(packages) == 0 {
		return ""
	}
	if len(packages) == 1 {
		return packages[0]
	}
	if len(packages) <= 3 {
		return strings.Join(packages, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", packages[0], len(packages)-1)
}
