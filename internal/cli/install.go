package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ompkg/internal/history"
	"ompkg/internal/ui"
	"ompkg/pkg/manager"
	"ompkg/pkg/registry"
	"ompkg/pkg/workspace"
)

var (
	installVersion string
	installTarget  string
)

var installCmd = &cobra.Command{
	Use:     "install [owner/name[@constraint]...]",
	Aliases: []string{"add", "i"},
	Short:   "Install packages from GitHub releases",
	Long: `Install packages from the GitHub releases of their repositories.

The newest release whose tag satisfies the constraint is downloaded,
its includes are copied into every include directory and its binaries
into components/ or plugins/. The package is added to ompkg.toml and
its files are recorded in ompkg.lock.

Without arguments every package declared in ompkg.toml is installed.
A failing package is reported and the others still install.

Examples:
  ompkg install pawn-lang/samp-stdlib        # Latest release
  ompkg install owner/plugin@^2.1            # Newest 2.x release from 2.1 on
  ompkg install owner/plugin --version 1.4.0 # Exact version
  ompkg install owner/comp -t components     # Unclassified binaries go to components/
  ompkg install                              # Everything in ompkg.toml`,
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "version constraint (same as owner/name@constraint)")
	installCmd.Flags().StringVarP(&installTarget, "target", "t", "", "where unclassified binaries go: components or plugins")
}

// installRequest is one parsed package argument.
type installRequest struct {
	repo       string
	constraint string
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	target, err := workspace.ParseTarget(installTarget)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		if installVersion != "" || target.IsSet() {
			return fmt.Errorf("--version and --target need a package argument")
		}
		return installAll(ctx)
	}
	if len(args) > 1 && installVersion != "" {
		return fmt.Errorf("--version applies to a single package; use owner/name@constraint instead")
	}

	requests := make([]installRequest, 0, len(args))
	for _, arg := range args {
		repo, constraint, err := parsePackageArg(arg, installVersion)
		if err != nil {
			return err
		}
		requests = append(requests, installRequest{repo: repo, constraint: constraint})
	}

	progress := ui.NewProgress(os.Stderr)
	mgr, err := newManager(progress)
	if err != nil {
		return err
	}

	if len(requests) > 1 {
		ui.InfoMsg("Installation plan:")
		for _, r := range requests {
			ui.MutedMsg("  - %s %s", r.repo, displayConstraint(r.constraint))
		}
		if err := confirm("Proceed with installation?", true); err != nil {
			return err
		}
	}

	entry := history.NewEntry(history.OpInstall, mgr.Root(), nil)
	var errs []error
	for _, r := range requests {
		res, err := installOne(ctx, mgr, progress, r, target)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.repo, err))
			continue
		}
		printInstallResult(res)
		entry.Add(history.Package{
			Repo:       res.Repo,
			Constraint: res.Constraint,
			Target:     target.String(),
			Version:    res.Version,
			Previous:   res.Previous,
		})
	}

	err = errors.Join(errs...)
	entry.Finish(err)
	recordHistory(entry)
	dryRunNote()

	if len(errs) > 0 && len(requests) > 1 {
		return fmt.Errorf("%w: %v", ErrPartial, err)
	}
	return err
}

// installOne installs one package behind a spinner that gives way to the
// download bar.
func installOne(ctx context.Context, mgr *manager.Manager, progress *ui.Progress, r installRequest, target workspace.Target) (*manager.Result, error) {
	sp := ui.NewSpinner(fmt.Sprintf("Resolving %s %s", r.repo, displayConstraint(r.constraint)))
	progress.Reset(sp.Stop)
	sp.Start()

	res, err := mgr.Install(ctx, r.repo, r.constraint, target)
	progress.Done()
	if err != nil {
		sp.Error(fmt.Sprintf("Failed to install %s", r.repo))
		return nil, err
	}
	sp.Stop()
	return res, nil
}

// installAll installs every declared package.
func installAll(ctx context.Context) error {
	progress := ui.NewProgress(os.Stderr)
	mgr, err := newManager(progress)
	if err != nil {
		return err
	}
	if _, err := os.Stat(mgr.ProjectPath()); os.IsNotExist(err) {
		return ErrNoProject
	}

	ui.InfoMsg("Installing packages declared in %s", mgr.ProjectPath())
	report, err := mgr.InstallAll(ctx)
	progress.Done()

	entry := history.NewEntry(history.OpInstall, mgr.Root(), nil)
	if report != nil {
		for _, res := range report.Installed {
			printInstallResult(res)
			entry.Add(history.Package{Repo: res.Repo, Constraint: res.Constraint, Target: res.Target.String(), Version: res.Version, Previous: res.Previous})
		}
		for _, f := range report.Failed {
			ui.ErrorMsg("%s: %v", f.Repo, f.Err)
		}
		if err == nil && !report.OK() {
			err = fmt.Errorf("%w: %s of %d", ErrPartial, plural(len(report.Failed), "package"), len(report.Installed)+len(report.Failed))
		}
	}
	entry.Finish(err)
	recordHistory(entry)
	dryRunNote()
	return err
}

// parsePackageArg splits "owner/name@constraint". flag is the --version
// value; giving both is an error.
func parsePackageArg(arg, flag string) (repo, constraint string, err error) {
	repo, constraint, hasAt := strings.Cut(strings.TrimSpace(arg), "@")
	if hasAt && strings.TrimSpace(constraint) == "" {
		return "", "", fmt.Errorf("missing constraint after @ in %q", arg)
	}
	if hasAt && flag != "" {
		return "", "", fmt.Errorf("%q already names a constraint; drop --version", arg)
	}
	if !hasAt {
		constraint = flag
	}

	owner, name, err := registry.ParseRepo(repo)
	if err != nil {
		return "", "", err
	}
	return owner + "/" + name, strings.TrimSpace(constraint), nil
}

func displayConstraint(c string) string {
	if c == "" {
		return "(latest)"
	}
	return c
}

func printInstallResult(res *manager.Result) {
	name := ui.RepoName.Sprint(res.Repo)
	tag := ui.ReleaseTag.Sprint(res.Version)

	if res.DryRun {
		switch {
		case res.Previous == "":
			ui.InfoMsg("Would install %s %s", name, tag)
		case res.Previous == res.Version:
			ui.InfoMsg("Would reinstall %s %s", name, tag)
		default:
			ui.InfoMsg("Would update %s %s %s %s", name, res.Previous, ui.SymbolArrow, tag)
		}
		return
	}

	switch {
	case res.Previous == "" || res.Previous == res.Version:
		ui.SuccessMsg("Installed %s %s", name, tag)
	default:
		ui.SuccessMsg("Updated %s %s %s %s", name, res.Previous, ui.SymbolArrow, tag)
	}
	for _, f := range res.Files {
		ui.FileMsg(true, f)
	}
	for _, f := range res.Removed {
		ui.FileMsg(false, f)
	}
	if len(res.Plugins) > 0 {
		ui.MutedMsg("  legacy_plugins: %s", ui.PluginList(res.Plugins))
	}
}
