// Package cli implements the command-line interface for ompkg.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"ompkg/internal/config"
	"ompkg/internal/history"
	"ompkg/internal/logging"
	"ompkg/internal/ui"
	"ompkg/pkg/manager"
	"ompkg/pkg/registry"
)

var (
	// Global flags
	cfgFile string
	workDir string
	dryRun  bool
	yes     bool
	verbose bool
	debug   bool
	noColor bool

	// Global state
	cfg       *config.Config
	logger    *log.Logger
	logCloser io.Closer
)

// Build metadata - set at build time via ldflags
var (
	Version   = "0.1.0-dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "ompkg",
	Short: "Package manager for open.mp and SA-MP server workspaces",
	Long: `ompkg installs Pawn includes, components and plugins from GitHub
releases into an open.mp or SA-MP server workspace.

Packages are declared in ompkg.toml, the installed files of every
package are recorded in ompkg.lock, and plugin names are kept in sync
with the "legacy_plugins" list of config.json.

Examples:
  ompkg init                               # Create ompkg.toml and the workspace directories
  ompkg install pawn-lang/samp-stdlib      # Install the latest release
  ompkg install owner/plugin@^2.1 -t plugins
  ompkg install                            # Install everything in ompkg.toml
  ompkg remove owner/plugin                # Remove a package and its files`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeApp()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "workspace root (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "resolve releases without changing the workspace")
	rootCmd.PersistentFlags().BoolVarP(&yes, "yes", "y", false, "assume yes to all prompts")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug output, also written to the log file")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(releasesCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(tuiCmd)
}

// Execute runs the root command and prints a failure in user terms.
// Interrupting cancels the running operation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrAborted) {
		ui.ErrorMsg("%v", err)
		if hint := errorHint(err); hint != "" {
			ui.MutedMsg("  %s", hint)
		}
	}
	return err
}

// initializeApp sets up the application state.
func initializeApp() error {
	// Load configuration
	var err error
	if cfgFile != "" {
		cfg, err = config.LoadFrom(cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	// Apply global flag overrides
	if yes {
		cfg.General.AutoConfirm = true
	}
	if dryRun {
		cfg.General.DryRun = true
	}
	if verbose {
		cfg.General.Verbose = true
	}
	if noColor {
		cfg.UI.Color = false
	}

	// Initialize UI
	ui.Init(cfg.ShouldUseColor(), cfg.UI.Unicode)

	logger, logCloser, err = logging.New(os.Stderr, logging.Options{
		Verbose: cfg.General.Verbose,
		Debug:   debug,
		LogPath: config.LogPath(),
	})
	if err != nil {
		// Non-fatal: keep logging to stderr only
		logger, logCloser, _ = logging.New(os.Stderr, logging.Options{Verbose: cfg.General.Verbose, Debug: debug})
		logger.Warn("log file unavailable", "err", err)
	}

	return nil
}

// workspaceRoot returns the absolute workspace root selected by --dir.
func workspaceRoot() (string, error) {
	dir := workDir
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}

// newRegistry builds the release registry client from the configuration.
// A non-nil progress receives download progress.
func newRegistry(progress *ui.Progress) (*registry.Client, error) {
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}

	opts := []registry.Option{
		registry.WithBaseURL(cfg.Registry.APIURL),
		registry.WithToken(cfg.Token()),
		registry.WithConcurrency(cfg.Registry.Concurrency),
		registry.WithTimeout(timeout),
		registry.WithLogger(logger),
	}
	if cfg.Registry.UserAgent != "" {
		opts = append(opts, registry.WithUserAgent(cfg.Registry.UserAgent))
	}
	if progress != nil {
		opts = append(opts, registry.WithProgress(progress.Update))
	}
	return registry.NewClient(opts...), nil
}

// newManager builds the package manager for the selected workspace.
func newManager(progress *ui.Progress) (*manager.Manager, error) {
	root, err := workspaceRoot()
	if err != nil {
		return nil, err
	}
	client, err := newRegistry(progress)
	if err != nil {
		return nil, err
	}

	return manager.New(manager.Options{
		Root:        root,
		ProjectPath: filepath.Join(root, cfg.Workspace.ProjectFile),
		LockPath:    filepath.Join(root, cfg.Workspace.LockFile),
		ScratchDir:  config.ScratchDir(),
		Registry:    client,
		Logger:      logger,
		DryRun:      cfg.General.DryRun,
	})
}

// recordHistory stores entry when history is enabled. Failures are logged
// and never fail the command.
func recordHistory(entry *history.Entry) {
	if !cfg.History.Enabled {
		return
	}
	entry.DryRun = cfg.General.DryRun

	store, err := history.Open()
	if err != nil {
		logger.Warn("could not open history", "err", err)
		return
	}
	defer store.Close()

	if err := store.Record(entry); err != nil {
		logger.Warn("could not record history", "err", err)
	}
}

// confirm asks unless --yes or dry-run mode is active.
func confirm(prompt string, defaultYes bool) error {
	if cfg.General.AutoConfirm || cfg.General.DryRun {
		return nil
	}
	ok, err := ui.Confirm(prompt, defaultYes)
	if err != nil {
		return err
	}
	if !ok {
		return ErrAborted
	}
	return nil
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print ompkg version",
	Run: func(cmd *cobra.Command, args []string) {
		ui.InfoMsg("ompkg version %s", Version)
		if Commit != "unknown" {
			ui.MutedMsg("  Commit: %s", Commit)
		}
		if BuildTime != "unknown" {
			ui.MutedMsg("  Built:  %s", BuildTime)
		}
	},
}

func dryRunNote() {
	if cfg.General.DryRun {
		ui.WarningMsg("Dry run: nothing was changed")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
