package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ompkg/pkg/manager"
)

// renderHeader renders the header bar
func (a *App) renderHeader() string {
	title := a.styles.Header.Render(" ompkg - " + filepath.Base(a.root) + " ")
	if a.dryRun {
		title += " " + Badge("dry run", ColorWarning)
	}

	// Right side: loading indicator or status
	var right string
	if a.loading {
		right = a.spinner.View() + " " + a.loadingMsg
	} else if a.errorMsg != "" {
		right = a.styles.Error.Render(a.errorMsg)
	} else if a.successMsg != "" {
		right = a.styles.Success.Render(a.successMsg)
	}

	padding := a.width - lipgloss.Width(title) - lipgloss.Width(right) - 2
	if padding < 0 {
		padding = 0
	}

	return title + strings.Repeat(" ", padding) + right
}

// renderTabs renders the tab bar
func (a *App) renderTabs() string {
	var tabs []string
	for i, tab := range a.tabs {
		style := a.styles.TabInactive
		if i == a.activeTab {
			style = a.styles.TabActive
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("[%d] %s", i+1, tab.Name)))
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Background(ColorBgAlt).
		Padding(0, 1).
		Render(strings.Join(tabs, " "))
}

// renderContent renders the main content area
func (a *App) renderContent() string {
	height := a.height - 4 // header, tabs, footer

	var content string
	switch a.activeView {
	case ViewPackages:
		content = a.renderPackageList()
	case ViewHistory:
		content = a.renderHistoryView()
	case ViewWorkspace:
		content = a.renderWorkspaceView()
	case ViewDetails:
		content = a.renderDetailsView()
	case ViewHelp:
		content = a.renderHelpView()
	}

	if a.inputMode {
		content = a.styles.InputPrompt.Render(a.inputPrompt) + a.textInput.View() + "\n\n" + content
	}

	return lipgloss.NewStyle().
		Width(a.width).
		Height(max(height, 1)).
		Render(content)
}

// renderPackageList renders the workspace packages
func (a *App) renderPackageList() string {
	var b strings.Builder

	entries := a.Entries()

	titleStr := fmt.Sprintf("Packages (%d)", len(entries))
	if a.filterText != "" {
		titleStr += fmt.Sprintf(" - Filter: %s", a.filterText)
	}
	b.WriteString(a.styles.Title.Render(titleStr))
	b.WriteString("\n\n")

	if len(entries) == 0 {
		if a.filterText != "" {
			b.WriteString(a.styles.Description.Render("No packages match the filter"))
		} else {
			b.WriteString(a.styles.Description.Render("No packages yet. Press i to install one."))
		}
		return b.String()
	}

	visibleHeight := a.VisibleHeight()
	scroll := a.Scroll()
	cursor := a.Cursor()

	end := min(scroll+visibleHeight, len(entries))
	for i := scroll; i < end; i++ {
		b.WriteString(a.renderPackageLine(entries[i], i == cursor))
		b.WriteString("\n")
	}

	if len(entries) > visibleHeight {
		b.WriteString(a.styles.Description.Render(fmt.Sprintf("\n  (%d/%d)", cursor+1, len(entries))))
	}

	return b.String()
}

// renderPackageLine renders a single package line
func (a *App) renderPackageLine(e manager.Entry, selected bool) string {
	cursor := "  "
	name := a.styles.RepoNameDim.Render(fmt.Sprintf("%-32s", e.Repo))
	if selected {
		cursor = a.styles.ListItemSelected.Render("> ")
		name = a.styles.RepoName.Render(fmt.Sprintf("%-32s", e.Repo))
	}

	ver := a.styles.Warning.Render(fmt.Sprintf("%-14s", "missing"))
	if e.Installed {
		ver = a.styles.PackageVersion.Render(fmt.Sprintf("%-14s", e.Version))
	}

	constraint := e.Constraint
	if !e.Declared {
		constraint = "lock only"
	}
	line := fmt.Sprintf("%s%s %s %s", cursor, name, ver, a.styles.Constraint.Render(fmt.Sprintf("%-12s", constraint)))
	if badge := TargetBadge(e.Target); badge != "" {
		line += " " + badge
	}
	return line
}

// renderHistoryView renders the operations recorded for this workspace
func (a *App) renderHistoryView() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Operation History"))
	b.WriteString("\n\n")

	if a.store == nil {
		b.WriteString(a.styles.Description.Render("History is disabled"))
		return b.String()
	}
	if len(a.historyEntries) == 0 {
		b.WriteString(a.styles.Description.Render("No history entries"))
		return b.String()
	}

	scroll := a.Scroll()
	cursor := a.Cursor()
	end := min(scroll+a.VisibleHeight(), len(a.historyEntries))
	for i := scroll; i < end; i++ {
		entry := a.historyEntries[i]

		status := a.styles.Success.Render("OK")
		switch {
		case !entry.Success:
			status = a.styles.Error.Render("FAILED")
		case entry.DryRun:
			status = a.styles.Info.Render("DRY RUN")
		}

		pkgs := strings.Join(entry.Names(), ", ")
		if len(pkgs) > 40 {
			pkgs = pkgs[:37] + "..."
		}

		prefix := "  "
		if i == cursor {
			prefix = a.styles.ListItemSelected.Render("> ")
		}
		b.WriteString(fmt.Sprintf("%s%s  %-8s  %-40s  %s\n", prefix, entry.FormatTime(), entry.Operation, pkgs, status))
		if i == cursor && entry.Error != "" {
			b.WriteString(a.styles.Error.Render("    " + entry.Error))
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderWorkspaceView renders the detected layout
func (a *App) renderWorkspaceView() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Workspace"))
	b.WriteString("\n\n")

	info := a.layout
	if info == nil {
		b.WriteString(a.styles.Description.Render("Workspace not loaded"))
		return b.String()
	}

	field := func(label, value string) {
		b.WriteString(fmt.Sprintf("  %-12s %s\n", label+":", value))
	}
	b.WriteString(a.styles.Subtitle.Render("Layout"))
	b.WriteString("\n")
	field("Root", info.Root)
	field("Server", string(info.Flavor))
	field("Components", info.Rel(info.ComponentsDir))
	field("Plugins", info.Rel(info.PluginsDir))
	for _, dir := range info.IncludeDirs {
		field("Includes", info.Rel(dir))
	}
	b.WriteString("\n")

	b.WriteString(a.styles.Subtitle.Render("Files"))
	b.WriteString("\n")
	field("Project", filepath.Base(a.mgr.ProjectPath()))
	field("Lock", filepath.Base(a.mgr.LockPath()))

	return b.String()
}

// renderDetailsView renders the lock record of the selected package
func (a *App) renderDetailsView() string {
	var b strings.Builder

	e := a.selected
	if e == nil {
		b.WriteString(a.styles.Error.Render("No package selected"))
		return b.String()
	}

	b.WriteString(a.styles.Title.Render(e.Repo))
	if badge := TargetBadge(e.Target); badge != "" {
		b.WriteString(" ")
		b.WriteString(badge)
	}
	b.WriteString("\n\n")

	b.WriteString(a.styles.Subtitle.Render("Constraint: "))
	if e.Declared {
		b.WriteString(a.styles.Constraint.Render(e.Constraint))
	} else {
		b.WriteString(a.styles.Warning.Render("not declared in the project file"))
	}
	b.WriteString("\n")

	b.WriteString(a.styles.Subtitle.Render("Installed: "))
	if a.details == nil {
		b.WriteString(a.styles.Warning.Render("no"))
		b.WriteString("\n\n")
	} else {
		b.WriteString(a.styles.PackageVersion.Render(a.details.Version))
		b.WriteString("\n\n")
		b.WriteString(a.styles.Subtitle.Render(fmt.Sprintf("Files (%d)", len(a.details.Files))))
		b.WriteString("\n")
		for _, f := range a.details.Files {
			b.WriteString(a.styles.FilePath.Render(f))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(a.styles.Subtitle.Render("Actions"))
	b.WriteString("\n")
	if e.Declared {
		b.WriteString("  [u] Update package\n")
	}
	b.WriteString("  [d] Remove package\n")
	b.WriteString("  [b] Back\n")

	return b.String()
}

// renderHelpView renders the help view from the key map
func (a *App) renderHelpView() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	titles := []string{"Navigation", "Tabs", "General", "Packages", "Vim", "Application"}
	for i, group := range a.keys.FullHelp() {
		if i < len(titles) {
			b.WriteString(a.styles.Subtitle.Render(titles[i]))
			b.WriteString("\n")
		}
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %s%s%s\n",
				a.styles.HelpKey.Render(fmt.Sprintf("%-8s", h.Key)),
				a.styles.HelpSep.String(),
				a.styles.HelpDesc.Render(h.Desc)))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// renderFooter renders the footer bar
func (a *App) renderFooter() string {
	var hints []string

	switch a.activeView {
	case ViewPackages:
		hints = []string{"enter:details", "/:filter", "i:install", "u:update", "d:remove", "r:reload"}
	case ViewDetails:
		hints = []string{"u:update", "d:remove", "b:back"}
	case ViewHistory:
		hints = []string{"r:reload"}
	}

	hints = append(hints, "?:help", "q:quit")

	return a.styles.Footer.
		Width(a.width).
		Render(strings.Join(hints, "  "))
}

// renderDialog renders the confirmation dialog over a blank screen
func (a *App) renderDialog() string {
	dialog := a.styles.Dialog.Render(
		a.styles.DialogTitle.Render(a.confirmTitle) + "\n\n" +
			a.styles.DialogButton.Render("[Y]es") + " " +
			lipgloss.NewStyle().Foreground(ColorMuted).Render("[N]o"),
	)

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, dialog,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(ColorBg))
}
