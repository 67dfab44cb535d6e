package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"ompkg/internal/history"
	"ompkg/pkg/lock"
	"ompkg/pkg/manager"
	"ompkg/pkg/workspace"
)

// View represents different views in the TUI
type View int

const (
	ViewPackages View = iota
	ViewHistory
	ViewWorkspace
	ViewDetails
	ViewHelp
)

// Tab represents a navigable tab
type Tab struct {
	Name string
	View View
}

// DefaultTabs returns the default tab configuration
func DefaultTabs() []Tab {
	return []Tab{
		{Name: "Packages", View: ViewPackages},
		{Name: "History", View: ViewHistory},
		{Name: "Workspace", View: ViewWorkspace},
	}
}

// Model holds the application state
type Model struct {
	ready    bool
	quitting bool

	width  int
	height int

	// Navigation
	tabs       []Tab
	activeTab  int
	activeView View
	prevView   View // left for details
	helpPrev   View // left for help

	// Data
	root           string
	dryRun         bool
	entries        []manager.Entry
	historyEntries []history.Entry
	layout         *workspace.Info
	selected       *manager.Entry
	details        *lock.Package

	// UI state
	loading      bool
	loadingMsg   string
	errorMsg     string
	successMsg   string
	filterText   string
	inputMode    bool
	inputPrompt  string
	inputValue   string
	inputHandler func(string) tea.Cmd

	// Cursor positions and scroll offsets for each view
	cursors map[View]int
	scrolls map[View]int

	styles *Styles
	keys   KeyMap

	// Confirmation dialog
	showConfirm   bool
	confirmTitle  string
	confirmAction func() tea.Cmd
}

// NewModel creates a model for the workspace at root.
func NewModel(root string, dryRun bool) *Model {
	return &Model{
		tabs:       DefaultTabs(),
		activeView: ViewPackages,
		root:       root,
		dryRun:     dryRun,
		cursors:    make(map[View]int),
		scrolls:    make(map[View]int),
		styles:     DefaultStyles(),
		keys:       DefaultKeyMap(),
	}
}

// SetSize sets the terminal size
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// CurrentTab returns the current tab
func (m *Model) CurrentTab() Tab {
	if m.activeTab >= 0 && m.activeTab < len(m.tabs) {
		return m.tabs[m.activeTab]
	}
	return m.tabs[0]
}

// Cursor returns the cursor position for the current view
func (m *Model) Cursor() int {
	return m.cursors[m.activeView]
}

// SetCursor sets the cursor position for the current view
func (m *Model) SetCursor(pos int) {
	m.cursors[m.activeView] = pos
}

// Scroll returns the scroll offset for the current view
func (m *Model) Scroll() int {
	return m.scrolls[m.activeView]
}

// SetScroll sets the scroll offset for the current view
func (m *Model) SetScroll(offset int) {
	m.scrolls[m.activeView] = offset
}

// VisibleHeight returns the number of list rows that fit on screen.
func (m *Model) VisibleHeight() int {
	// header, tabs, title, footer and padding
	if h := m.height - 7; h > 0 {
		return h
	}
	return 1
}

// SetEntries replaces the package list, keeping the cursor in range.
func (m *Model) SetEntries(entries []manager.Entry) {
	m.entries = entries
	m.clampCursor(ViewPackages, len(m.filterEntries()))
}

// SetHistory replaces the history list.
func (m *Model) SetHistory(entries []history.Entry) {
	m.historyEntries = entries
	m.clampCursor(ViewHistory, len(entries))
}

// Entries returns the packages shown under the current filter.
func (m *Model) Entries() []manager.Entry {
	return m.filterEntries()
}

// listLen returns the number of rows in the current view.
func (m *Model) listLen() int {
	switch m.activeView {
	case ViewPackages:
		return len(m.filterEntries())
	case ViewHistory:
		return len(m.historyEntries)
	default:
		return 0
	}
}

// filterEntries filters packages by the current filter text. The repo,
// version, constraint and target are matched case-insensitively.
func (m *Model) filterEntries() []manager.Entry {
	if m.filterText == "" {
		return m.entries
	}

	needle := strings.ToLower(m.filterText)
	var filtered []manager.Entry
	for _, e := range m.entries {
		fields := []string{e.Repo, e.Version, e.Constraint, string(e.Target)}
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), needle) {
				filtered = append(filtered, e)
				break
			}
		}
	}
	return filtered
}

// SetFilter applies a new filter and resets the package cursor.
func (m *Model) SetFilter(filter string) {
	m.filterText = strings.TrimSpace(filter)
	m.cursors[ViewPackages] = 0
	m.scrolls[ViewPackages] = 0
}

func (m *Model) clampCursor(v View, n int) {
	if m.cursors[v] >= n {
		m.cursors[v] = max(n-1, 0)
	}
	if m.scrolls[v] > m.cursors[v] {
		m.scrolls[v] = m.cursors[v]
	}
}

// SelectedEntry returns the package under the cursor.
func (m *Model) SelectedEntry() *manager.Entry {
	if m.activeView == ViewDetails {
		return m.selected
	}
	if m.activeView != ViewPackages {
		return nil
	}
	items := m.filterEntries()
	cursor := m.Cursor()
	if cursor >= 0 && cursor < len(items) {
		e := items[cursor]
		return &e
	}
	return nil
}

// MoveCursor moves the cursor by delta, clamping to valid range
func (m *Model) MoveCursor(delta int) {
	n := m.listLen()
	if n == 0 {
		return
	}

	newPos := m.Cursor() + delta
	if newPos < 0 {
		newPos = 0
	}
	if newPos >= n {
		newPos = n - 1
	}
	m.SetCursor(newPos)

	// Adjust scroll to keep cursor visible
	visibleHeight := m.VisibleHeight()
	scroll := m.Scroll()

	if newPos < scroll {
		m.SetScroll(newPos)
	} else if newPos >= scroll+visibleHeight {
		m.SetScroll(newPos - visibleHeight + 1)
	}
}

// GoToTop moves cursor to the top
func (m *Model) GoToTop() {
	m.SetCursor(0)
	m.SetScroll(0)
}

// GoToBottom moves cursor to the bottom
func (m *Model) GoToBottom() {
	n := m.listLen()
	if n == 0 {
		return
	}
	m.SetCursor(n - 1)

	visibleHeight := m.VisibleHeight()
	if n > visibleHeight {
		m.SetScroll(n - visibleHeight)
	}
}

// NextTab switches to the next tab
func (m *Model) NextTab() {
	m.SetTab((m.activeTab + 1) % len(m.tabs))
}

// PrevTab switches to the previous tab
func (m *Model) PrevTab() {
	i := m.activeTab - 1
	if i < 0 {
		i = len(m.tabs) - 1
	}
	m.SetTab(i)
}

// SetTab switches to a specific tab by index
func (m *Model) SetTab(index int) {
	if index >= 0 && index < len(m.tabs) {
		m.activeTab = index
		m.activeView = m.tabs[m.activeTab].View
	}
}

// ShowDetails opens the details view for e with its lock record, which is
// nil for packages that are declared but not installed.
func (m *Model) ShowDetails(e manager.Entry, pkg *lock.Package) {
	m.selected = &e
	m.details = pkg
	if m.activeView != ViewDetails {
		m.prevView = m.activeView
	}
	m.activeView = ViewDetails
}

// ShowHelp toggles the help view.
func (m *Model) ShowHelp() {
	if m.activeView == ViewHelp {
		m.GoBack()
		return
	}
	m.helpPrev = m.activeView
	m.activeView = ViewHelp
}

// GoBack returns to the previous view
func (m *Model) GoBack() {
	switch m.activeView {
	case ViewHelp:
		m.activeView = m.helpPrev
	case ViewDetails:
		m.activeView = m.prevView
	}
}

// SetLoading sets the loading state
func (m *Model) SetLoading(loading bool, msg string) {
	m.loading = loading
	m.loadingMsg = msg
}

// SetError sets an error message
func (m *Model) SetError(msg string) {
	m.errorMsg = msg
	m.successMsg = ""
}

// SetSuccess sets a success message
func (m *Model) SetSuccess(msg string) {
	m.successMsg = msg
	m.errorMsg = ""
}

// ClearMessages clears all messages
func (m *Model) ClearMessages() {
	m.errorMsg = ""
	m.successMsg = ""
}

// StartInput starts input mode
func (m *Model) StartInput(prompt string, handler func(string) tea.Cmd) {
	m.inputMode = true
	m.inputPrompt = prompt
	m.inputValue = ""
	m.inputHandler = handler
}

// FinishInput leaves input mode and returns the handler's command.
func (m *Model) FinishInput() tea.Cmd {
	handler, value := m.inputHandler, m.inputValue
	m.CancelInput()
	if handler != nil {
		return handler(value)
	}
	return nil
}

// CancelInput cancels input mode
func (m *Model) CancelInput() {
	m.inputMode = false
	m.inputPrompt = ""
	m.inputValue = ""
	m.inputHandler = nil
}

// ShowConfirm shows a confirmation dialog
func (m *Model) ShowConfirm(title string, action func() tea.Cmd) {
	m.showConfirm = true
	m.confirmTitle = title
	m.confirmAction = action
}

// ConfirmYes closes the dialog and returns the action's command.
func (m *Model) ConfirmYes() tea.Cmd {
	action := m.confirmAction
	m.ConfirmNo()
	if action != nil {
		return action()
	}
	return nil
}

// ConfirmNo cancels the confirmation
func (m *Model) ConfirmNo() {
	m.showConfirm = false
	m.confirmTitle = ""
	m.confirmAction = nil
}
