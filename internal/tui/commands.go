package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ompkg/internal/history"
	"ompkg/pkg/lock"
	"ompkg/pkg/manager"
	"ompkg/pkg/workspace"
)

// Messages for async operations
type (
	entriesLoadedMsg struct {
		entries []manager.Entry
		layout  *workspace.Info
		err     error
	}

	historyLoadedMsg struct {
		entries []history.Entry
		err     error
	}

	detailsLoadedMsg struct {
		entry manager.Entry
		pkg   *lock.Package
		err   error
	}

	operationCompleteMsg struct {
		message string
		err     error
	}
)

// historyLimit bounds the entries shown on the history tab.
const historyLimit = 100

func (a *App) loadEntries() tea.Cmd {
	return func() tea.Msg {
		entries, err := a.mgr.List()
		if err != nil {
			return entriesLoadedMsg{err: err}
		}
		layout, err := a.mgr.Layout()
		return entriesLoadedMsg{entries: entries, layout: layout, err: err}
	}
}

func (a *App) loadHistory() tea.Cmd {
	return func() tea.Msg {
		if a.store == nil {
			return historyLoadedMsg{}
		}

		all, err := a.store.List(0)
		if err != nil {
			return historyLoadedMsg{err: err}
		}
		var entries []history.Entry
		for _, e := range all {
			if e.Workspace == a.root {
				entries = append(entries, e)
			}
			if len(entries) == historyLimit {
				break
			}
		}
		return historyLoadedMsg{entries: entries}
	}
}

func (a *App) loadDetails(e manager.Entry) tea.Cmd {
	return func() tea.Msg {
		pkg, ok, err := a.mgr.Installed(e.Repo)
		if !ok {
			pkg = nil
		}
		return detailsLoadedMsg{entry: e, pkg: pkg, err: err}
	}
}

// installPackage installs "owner/name[@constraint]" as typed in the
// install prompt.
func (a *App) installPackage(arg string) tea.Cmd {
	repo, constraint, _ := strings.Cut(strings.TrimSpace(arg), "@")
	return func() tea.Msg {
		res, err := a.mgr.Install(a.ctx, repo, strings.TrimSpace(constraint), workspace.TargetNone)

		entry := history.NewEntry(history.OpInstall, a.root, nil)
		if res != nil {
			entry.Add(history.Package{
				Repo:       res.Repo,
				Constraint: res.Constraint,
				Target:     workspace.TargetNone.String(),
				Version:    res.Version,
				Previous:   res.Previous,
			})
		} else {
			entry.Add(history.Package{Repo: repo, Constraint: constraint})
		}
		a.record(entry, err)

		if err != nil {
			return operationCompleteMsg{err: fmt.Errorf("install %s: %w", repo, err)}
		}
		return operationCompleteMsg{message: a.describe("Installed", res.Repo, res.Version)}
	}
}

func (a *App) updatePackage(e manager.Entry) tea.Cmd {
	return func() tea.Msg {
		res, err := a.mgr.Update(a.ctx, e.Repo)

		pkg := history.Package{Repo: e.Repo, Constraint: e.Constraint, Target: e.Target.String(), Previous: e.Version}
		if res != nil {
			pkg.Version = res.Version
		}
		a.record(history.NewEntry(history.OpUpdate, a.root, []history.Package{pkg}), err)

		if err != nil {
			return operationCompleteMsg{err: fmt.Errorf("update %s: %w", e.Repo, err)}
		}
		if !res.Changed() {
			return operationCompleteMsg{message: fmt.Sprintf("%s is up to date (%s)", res.Repo, res.Version)}
		}
		return operationCompleteMsg{message: a.describe("Updated", res.Repo, res.Version)}
	}
}

func (a *App) removePackage(e manager.Entry) tea.Cmd {
	return func() tea.Msg {
		res, err := a.mgr.Remove(a.ctx, e.Repo)

		pkg := history.Package{Repo: e.Repo, Constraint: e.Constraint, Target: e.Target.String(), Version: e.Version}
		a.record(history.NewEntry(history.OpRemove, a.root, []history.Package{pkg}), err)

		if err != nil {
			return operationCompleteMsg{err: fmt.Errorf("remove %s: %w", e.Repo, err)}
		}
		return operationCompleteMsg{message: a.describe("Removed", res.Repo, fmt.Sprintf("%d files", len(res.Removed)))}
	}
}

func (a *App) describe(verb, repo, detail string) string {
	msg := fmt.Sprintf("%s %s (%s)", verb, repo, detail)
	if a.dryRun {
		msg = "[dry run] " + msg
	}
	return msg
}

// record stores a finished operation. The TUI has nowhere to report a
// failing history write, so it is logged and dropped.
func (a *App) record(entry *history.Entry, err error) {
	if a.store == nil {
		return
	}
	entry.DryRun = a.dryRun
	entry.Finish(err)
	if rerr := a.store.Record(entry); rerr != nil {
		a.logger.Warn("could not record history", "err", rerr)
	}
}

// withContext runs cmd unless ctx is already done.
func withContext(ctx context.Context, cmd tea.Cmd) tea.Cmd {
	return func() tea.Msg {
		if err := ctx.Err(); err != nil {
			return operationCompleteMsg{err: err}
		}
		return cmd()
	}
}
