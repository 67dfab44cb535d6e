package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"ompkg/pkg/lock"
	"ompkg/pkg/manager"
	"ompkg/pkg/workspace"
)

func sampleEntries() []manager.Entry {
	return []manager.Entry{
		{Repo: "pawn-lang/YSI-Includes", Constraint: "^5.0.0", Declared: true, Installed: true, Version: "v5.10.0006", Files: 40},
		{Repo: "katursis/Pawn.RakNet", Constraint: "*", Target: workspace.TargetComponents, Declared: true, Installed: true, Version: "1.6.0", Files: 2},
		{Repo: "samp-incognito/samp-streamer-plugin", Constraint: "~2.9", Target: workspace.TargetPlugins, Declared: true},
		{Repo: "Y-Less/sscanf", Installed: true, Version: "v2.13.8", Files: 3},
	}
}

func newTestModel() *Model {
	m := NewModel("/srv/gamemode", false)
	m.SetSize(100, 40)
	m.SetEntries(sampleEntries())
	return m
}

func TestFilterEntries(t *testing.T) {
	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"pawn-lang/YSI-Includes", "katursis/Pawn.RakNet", "samp-incognito/samp-streamer-plugin", "Y-Less/sscanf"}},
		{"raknet", []string{"katursis/Pawn.RakNet"}},
		{"PLUGINS", []string{"samp-incognito/samp-streamer-plugin"}},
		{"v2.13", []string{"Y-Less/sscanf"}},
		{"^5", []string{"pawn-lang/YSI-Includes"}},
		{"nothing-matches", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			m := newTestModel()
			m.SetFilter(tt.filter)

			got := m.Entries()
			if len(got) != len(tt.want) {
				t.Fatalf("Entries() returned %d rows, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Repo != tt.want[i] {
					t.Errorf("row %d = %s, want %s", i, e.Repo, tt.want[i])
				}
			}
		})
	}
}

func TestSetFilterResetsCursor(t *testing.T) {
	m := newTestModel()
	m.MoveCursor(3)
	if m.Cursor() != 3 {
		t.Fatalf("Cursor() = %d, want 3", m.Cursor())
	}

	m.SetFilter("  pawn ")
	if m.filterText != "pawn" {
		t.Errorf("filter not trimmed: %q", m.filterText)
	}
	if m.Cursor() != 0 {
		t.Errorf("Cursor() = %d after filtering, want 0", m.Cursor())
	}
	if e := m.SelectedEntry(); e == nil || e.Repo != "pawn-lang/YSI-Includes" {
		t.Errorf("SelectedEntry() = %+v", e)
	}
}

func TestMoveCursorClamps(t *testing.T) {
	m := newTestModel()

	m.MoveCursor(-5)
	if m.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", m.Cursor())
	}

	m.MoveCursor(10)
	if m.Cursor() != 3 {
		t.Errorf("Cursor() = %d, want 3", m.Cursor())
	}

	m.GoToTop()
	if m.Cursor() != 0 || m.Scroll() != 0 {
		t.Errorf("GoToTop() left cursor %d scroll %d", m.Cursor(), m.Scroll())
	}

	m.GoToBottom()
	if e := m.SelectedEntry(); e == nil || e.Repo != "Y-Less/sscanf" {
		t.Errorf("SelectedEntry() after GoToBottom = %+v", e)
	}
}

func TestMoveCursorScrolls(t *testing.T) {
	m := NewModel("/srv/gamemode", false)
	m.SetSize(80, 9) // two visible rows

	m.SetEntries(sampleEntries())
	if m.VisibleHeight() != 2 {
		t.Fatalf("VisibleHeight() = %d, want 2", m.VisibleHeight())
	}

	m.MoveCursor(1)
	if m.Scroll() != 0 {
		t.Errorf("Scroll() = %d, want 0", m.Scroll())
	}
	m.MoveCursor(1)
	if m.Scroll() != 1 {
		t.Errorf("Scroll() = %d, want 1", m.Scroll())
	}
	m.MoveCursor(-2)
	if m.Scroll() != 0 {
		t.Errorf("Scroll() = %d, want 0 after moving back", m.Scroll())
	}
}

func TestSetEntriesKeepsCursorInRange(t *testing.T) {
	m := newTestModel()
	m.GoToBottom()

	m.SetEntries(sampleEntries()[:2])
	if m.Cursor() != 1 {
		t.Errorf("Cursor() = %d, want 1", m.Cursor())
	}

	m.SetEntries(nil)
	if m.Cursor() != 0 {
		t.Errorf("Cursor() = %d, want 0", m.Cursor())
	}
	if m.SelectedEntry() != nil {
		t.Error("SelectedEntry() should be nil for an empty list")
	}
}

func TestCursorPerView(t *testing.T) {
	m := newTestModel()
	m.MoveCursor(2)

	m.SetTab(1)
	if m.activeView != ViewHistory {
		t.Fatalf("activeView = %v, want history", m.activeView)
	}
	if m.Cursor() != 0 {
		t.Errorf("history cursor = %d, want 0", m.Cursor())
	}
	if m.SelectedEntry() != nil {
		t.Error("no package is selected on the history tab")
	}

	m.PrevTab()
	if m.Cursor() != 2 {
		t.Errorf("packages cursor = %d, want 2", m.Cursor())
	}

	m.PrevTab()
	if m.CurrentTab().View != ViewWorkspace {
		t.Errorf("PrevTab() should wrap to the last tab, got %s", m.CurrentTab().Name)
	}
	m.NextTab()
	if m.CurrentTab().View != ViewPackages {
		t.Errorf("NextTab() should wrap to the first tab, got %s", m.CurrentTab().Name)
	}
}

func TestShowDetailsAndBack(t *testing.T) {
	m := newTestModel()
	e := *m.SelectedEntry()
	pkg := &lock.Package{Version: e.Version, Files: []string{"qawno/include/YSI_Core/y_utils.inc"}}

	m.ShowDetails(e, pkg)
	if m.activeView != ViewDetails {
		t.Fatalf("activeView = %v, want details", m.activeView)
	}
	if got := m.SelectedEntry(); got == nil || got.Repo != e.Repo {
		t.Errorf("SelectedEntry() in details = %+v", got)
	}

	m.ShowHelp()
	m.ShowHelp()
	if m.activeView != ViewDetails {
		t.Errorf("toggling help should return to details, got %v", m.activeView)
	}

	m.GoBack()
	if m.activeView != ViewPackages {
		t.Errorf("GoBack() = %v, want packages", m.activeView)
	}
}

func TestConfirm(t *testing.T) {
	m := newTestModel()
	ran := 0
	action := func() tea.Cmd {
		ran++
		return func() tea.Msg { return nil }
	}

	m.ShowConfirm("Remove it?", action)
	m.ConfirmNo()
	if m.showConfirm || ran != 0 {
		t.Errorf("ConfirmNo() should close without running (open=%v ran=%d)", m.showConfirm, ran)
	}

	m.ShowConfirm("Remove it?", action)
	if cmd := m.ConfirmYes(); cmd == nil {
		t.Error("ConfirmYes() should return the action's command")
	}
	if m.showConfirm || m.confirmAction != nil || ran != 1 {
		t.Errorf("ConfirmYes() state: open=%v ran=%d", m.showConfirm, ran)
	}
}

func TestInput(t *testing.T) {
	m := newTestModel()
	var got string
	m.StartInput("Filter: ", func(v string) tea.Cmd {
		got = v
		return nil
	})
	m.inputValue = "sscanf"

	if cmd := m.FinishInput(); cmd != nil {
		t.Error("handler returned no command")
	}
	if got != "sscanf" {
		t.Errorf("handler received %q", got)
	}
	if m.inputMode || m.inputHandler != nil {
		t.Error("FinishInput() should leave input mode")
	}

	m.StartInput("Install: ", func(string) tea.Cmd {
		t.Error("handler should not run after CancelInput")
		return nil
	})
	m.CancelInput()
	if m.inputMode {
		t.Error("CancelInput() should leave input mode")
	}
}

func TestTargetBadge(t *testing.T) {
	if TargetBadge(workspace.TargetNone) != "" {
		t.Error("no badge expected without a target")
	}
	if TargetBadge(workspace.TargetPlugins) == "" {
		t.Error("expected a badge for plugins")
	}
}
