package cli

import (
	"io"

	"github.com/spf13/cobra"

	"ompkg/internal/config"
	"ompkg/internal/history"
	"ompkg/internal/logging"
	"ompkg/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse workspace packages interactively",
	Long: `Launch the interactive terminal browser for the current workspace.

The browser lists every declared and installed package and can:
  - Show the files a package placed in the workspace
  - Install, update and remove packages
  - Show the operation history of the workspace

Navigation:
  - Use arrow keys or j/k to move, 1-3 to switch tabs
  - Press / to filter, Enter for details
  - Press i to install, u to update, d to remove
  - Press ? for help, q to quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	// The alternate screen owns the terminal: records only reach the log file.
	quiet, closer, err := logging.New(io.Discard, logging.Options{
		Verbose: cfg.General.Verbose,
		Debug:   debug,
		LogPath: config.LogPath(),
	})
	if err != nil {
		quiet, closer = logging.Discard(), io.NopCloser(nil)
	}
	defer closer.Close()
	logger = quiet

	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	var store *history.Store
	if cfg.History.Enabled {
		store, err = history.Open()
		if err != nil {
			// The browser works without history.
			logger.Warn("could not open history", "err", err)
			store = nil
		}
	}
	if store != nil {
		defer store.Close()
	}

	return tui.Run(cmd.Context(), tui.Options{
		Manager: mgr,
		History: store,
		Logger:  logger,
	})
}
