package cli

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ompkg/internal/ui"
	"ompkg/pkg/manager"
)

var (
	listPattern string
	listJSON    bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List declared and installed packages",
	Long: `List the packages declared in ompkg.toml with their constraint,
target and installed release. Packages that are only in ompkg.lock are
listed after them.

Examples:
  ompkg list                 # All packages
  ompkg list -p streamer     # Packages whose name contains 'streamer'
  ompkg list --json          # Machine-readable output`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listPattern, "pattern", "p", "", "filter by repository name")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	entries, err := mgr.List()
	if err != nil {
		return err
	}
	entries = filterEntries(entries, listPattern)

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	ui.PrintEntries(os.Stdout, entries)
	if len(entries) > 0 {
		ui.MutedMsg("\nTotal: %s", plural(len(entries), "package"))
	}
	return nil
}

func filterEntries(entries []manager.Entry, pattern string) []manager.Entry {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	if pattern == "" {
		return entries
	}
	out := entries[:0:0]
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Repo), pattern) {
			out = append(out, e)
		}
	}
	return out
}
