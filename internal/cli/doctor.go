package cli

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"ompkg/internal/config"
	"ompkg/internal/history"
	"ompkg/internal/ui"
	"ompkg/pkg/legacy"
	"ompkg/pkg/lock"
	"ompkg/pkg/manager"
	"ompkg/pkg/project"
	"ompkg/pkg/workspace"
)

var doctorOffline bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose workspace and registry issues",
	Long: `Check the workspace layout, ompkg.toml, ompkg.lock and
config.json for problems, and query the GitHub API rate limit.

Examples:
  ompkg doctor               # Run diagnostics
  ompkg doctor --offline     # Skip the GitHub API check`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorOffline, "offline", false, "skip checks that need the network")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	issues := 0

	mgr, err := newManager(nil)
	if err != nil {
		return err
	}

	info, err := mgr.Layout()
	if err != nil {
		ui.ErrorMsg("Could not read the workspace: %v", err)
		return err
	}
	ui.PrintWorkspace(info)

	ui.HeaderMsg("Running diagnostics...")

	if info.Flavor == workspace.FlavorUnknown {
		ui.WarningMsg("No omp-server or samp-server binary in %s", info.Root)
	} else {
		ui.SuccessMsg("Server: %s", info.Flavor)
	}

	issues += checkProject(mgr)
	l, n := checkLock(mgr, info)
	issues += n
	issues += checkLegacy(mgr, l)
	issues += checkHistory()

	if !doctorOffline {
		issues += checkRegistry(ctx)
	}

	ui.Println("")
	if issues == 0 {
		ui.SuccessMsg("No issues found")
		return nil
	}
	ui.WarningMsg("Found %s", plural(issues, "issue"))
	return nil
}

func checkProject(mgr *manager.Manager) int {
	if _, err := os.Stat(mgr.ProjectPath()); os.IsNotExist(err) {
		ui.WarningMsg("No %s; run 'ompkg init'", cfg.Workspace.ProjectFile)
		return 1
	}
	proj, err := project.Load(mgr.ProjectPath())
	if err != nil {
		ui.ErrorMsg("%v", err)
		return 1
	}
	if err := proj.Validate(); err != nil {
		ui.ErrorMsg("%v", err)
		return 1
	}
	ui.SuccessMsg("%s declares %s", cfg.Workspace.ProjectFile, plural(len(proj.Packages), "package"))
	return 0
}

// checkLock verifies that every recorded file is still on disk.
func checkLock(mgr *manager.Manager, info *workspace.Info) (*lock.Lock, int) {
	l, err := lock.Load(mgr.LockPath())
	if err != nil {
		ui.ErrorMsg("%v", err)
		return nil, 1
	}

	missing := 0
	for _, repo := range l.Repos() {
		pkg, _ := l.Get(repo)
		for _, rel := range pkg.Files {
			if _, err := os.Stat(info.Abs(rel)); err != nil {
				ui.WarningMsg("%s: recorded file %s is missing", repo, rel)
				missing++
			}
		}
	}
	if missing > 0 {
		ui.MutedMsg("  Reinstall the affected packages with 'ompkg update'")
		return l, missing
	}
	ui.SuccessMsg("%s records %s, all files present", cfg.Workspace.LockFile, plural(len(l.Repos()), "package"))
	return l, 0
}

// checkLegacy reports plugins the lock provides but config.json lacks.
func checkLegacy(mgr *manager.Manager, l *lock.Lock) int {
	cm := legacy.New(mgr.Root())
	current, err := cm.Plugins()
	if err != nil {
		ui.ErrorMsg("%v", err)
		return 1
	}
	if l == nil {
		return 0
	}

	have := make(map[string]bool, len(current))
	for _, name := range current {
		have[name] = true
	}
	var absent []string
	for _, name := range legacy.PluginNames(l, "") {
		if !have[name] {
			absent = append(absent, name)
		}
	}
	if len(absent) > 0 {
		ui.WarningMsg("legacy_plugins is missing %v; run 'ompkg sync'", absent)
		return 1
	}
	ui.SuccessMsg("legacy_plugins is in sync (%s)", plural(len(current), "plugin"))
	return 0
}

func checkHistory() int {
	if !cfg.History.Enabled {
		ui.MutedMsg("History is disabled")
		return 0
	}
	store, err := history.Open()
	if err != nil {
		ui.ErrorMsg("History database: %v", err)
		return 1
	}
	defer store.Close()
	count, _ := store.Count()
	ui.SuccessMsg("History: %s in %s", plural(count, "record"), config.HistoryPath())
	return 0
}

func checkRegistry(ctx context.Context) int {
	client, err := newRegistry(nil)
	if err != nil {
		ui.ErrorMsg("%v", err)
		return 1
	}
	if client.HasToken() {
		ui.SuccessMsg("GitHub token configured")
	} else {
		ui.MutedMsg("No GitHub token; set GITHUB_TOKEN for a higher rate limit")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	remaining, limit, err := client.RateLimit(ctx)
	if err != nil {
		ui.ErrorMsg("GitHub API unreachable: %v", err)
		return 1
	}
	if remaining == 0 {
		ui.ErrorMsg("GitHub API rate limit exhausted (0 of %d left)", limit)
		return 1
	}
	ui.SuccessMsg("GitHub API: %d of %d requests left", remaining, limit)
	return 0
}
