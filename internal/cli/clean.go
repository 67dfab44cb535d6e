package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"ompkg/internal/config"
	"ompkg/internal/history"
	"ompkg/internal/ui"
)

var cleanAll bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove download leftovers and old history",
	Long: `Remove the scratch directory releases are downloaded into and
prune history entries older than history.max_age.

Examples:
  ompkg clean                # Clean scratch files and old history
  ompkg clean --all          # Also delete the whole history`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "delete the whole history as well")
}

func runClean(cmd *cobra.Command, args []string) error {
	root, err := workspaceRoot()
	if err != nil {
		return err
	}
	entry := history.NewEntry(history.OpClean, root, nil)

	err = clean()
	entry.Finish(err)
	if !cleanAll {
		recordHistory(entry)
	}
	if err != nil {
		return err
	}
	dryRunNote()
	return nil
}

func clean() error {
	scratch := config.ScratchDir()
	size, files := dirSize(scratch)
	if cfg.General.DryRun {
		ui.InfoMsg("Would remove %s (%s, %s)", scratch, plural(files, "file"), ui.FormatBytes(size))
	} else {
		if err := os.RemoveAll(scratch); err != nil {
			return fmt.Errorf("remove scratch directory: %w", err)
		}
		ui.SuccessMsg("Removed %s (%s, %s)", scratch, plural(files, "file"), ui.FormatBytes(size))
	}

	store, err := history.Open()
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer store.Close()

	if cleanAll {
		if err := confirm("Delete the whole history?", false); err != nil {
			return err
		}
		if cfg.General.DryRun {
			return nil
		}
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		ui.SuccessMsg("History cleared")
		return nil
	}

	maxAge, err := cfg.HistoryMaxAge()
	if err != nil {
		return err
	}
	if cfg.General.DryRun {
		return nil
	}
	pruned, err := store.Prune(maxAge)
	if err != nil {
		return fmt.Errorf("failed to prune history: %w", err)
	}
	ui.SuccessMsg("Pruned %s older than %s", plural(pruned, "history record"), maxAge)
	return nil
}

// dirSize sums the regular files under dir. A missing dir is empty.
func dirSize(dir string) (int64, int) {
	var size int64
	var files int
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				size += info.Size()
				files++
			}
		}
		return nil
	})
	return size, files
}
