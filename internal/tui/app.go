package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"ompkg/internal/history"
	"ompkg/internal/logging"
	"ompkg/pkg/manager"
)

// Options configures Run.
type Options struct {
	Manager *manager.Manager
	History *history.Store // nil disables history
	Logger  *log.Logger
}

// App wraps the Model with bubbletea components
type App struct {
	*Model
	spinner   spinner.Model
	textInput textinput.Model

	ctx    context.Context
	mgr    *manager.Manager
	store  *history.Store
	logger *log.Logger
}

// NewApp creates a new TUI application
func NewApp(ctx context.Context, opts Options) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorPrimary)

	ti := textinput.New()
	ti.CharLimit = 100
	ti.Width = 40

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &App{
		Model:     NewModel(opts.Manager.Root(), opts.Manager.DryRun()),
		spinner:   sp,
		textInput: ti,
		ctx:       ctx,
		mgr:       opts.Manager,
		store:     opts.History,
		logger:    logger,
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	a.SetLoading(true, "Loading packages...")
	return tea.Batch(
		a.spinner.Tick,
		a.loadEntries(),
		a.loadHistory(),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetSize(msg.Width, msg.Height)
		a.ready = true

	case tea.KeyMsg:
		// Handle confirmation dialog first
		if a.showConfirm {
			switch msg.String() {
			case "y", "Y", "enter":
				return a, a.ConfirmYes()
			case "n", "N", "esc", "q":
				a.ConfirmNo()
			}
			return a, nil
		}

		if a.inputMode {
			switch msg.String() {
			case "enter":
				a.textInput.Blur()
				return a, a.FinishInput()
			case "esc":
				a.textInput.Blur()
				a.CancelInput()
				return a, nil
			default:
				var cmd tea.Cmd
				a.textInput, cmd = a.textInput.Update(msg)
				a.inputValue = a.textInput.Value()
				return a, cmd
			}
		}

		cmds = append(cmds, a.handleKey(msg))

	case entriesLoadedMsg:
		a.SetLoading(false, "")
		if msg.err != nil {
			a.SetError(msg.err.Error())
		} else {
			a.SetEntries(msg.entries)
			a.layout = msg.layout
		}

	case historyLoadedMsg:
		if msg.err != nil {
			a.SetError(msg.err.Error())
		} else {
			a.SetHistory(msg.entries)
		}

	case detailsLoadedMsg:
		if msg.err != nil {
			a.SetError(msg.err.Error())
		} else {
			a.ShowDetails(msg.entry, msg.pkg)
		}

	case operationCompleteMsg:
		a.SetLoading(false, "")
		if msg.err != nil {
			a.SetError(msg.err.Error())
		} else {
			a.SetSuccess(msg.message)
		}
		if a.activeView == ViewDetails {
			a.GoBack()
		}
		// Reload even after a failure: a partial update may have changed files
		cmds = append(cmds, a.loadEntries(), a.loadHistory())

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quitting = true
		return tea.Quit

	case key.Matches(msg, a.keys.Help):
		a.ShowHelp()

	case key.Matches(msg, a.keys.Tab1):
		a.SetTab(0)
	case key.Matches(msg, a.keys.Tab2):
		a.SetTab(1)
	case key.Matches(msg, a.keys.Tab3):
		a.SetTab(2)

	case key.Matches(msg, a.keys.Left):
		a.PrevTab()
	case key.Matches(msg, a.keys.Right):
		a.NextTab()

	case key.Matches(msg, a.keys.Back):
		a.GoBack()
	case key.Matches(msg, a.keys.Cancel):
		if a.activeView == ViewPackages && a.filterText != "" {
			a.SetFilter("")
		}
		a.GoBack()
		a.ClearMessages()

	// Navigation
	case key.Matches(msg, a.keys.Up), key.Matches(msg, a.keys.VimUp):
		a.MoveCursor(-1)
	case key.Matches(msg, a.keys.Down), key.Matches(msg, a.keys.VimDown):
		a.MoveCursor(1)
	case key.Matches(msg, a.keys.PageUp):
		a.MoveCursor(-a.VisibleHeight())
	case key.Matches(msg, a.keys.PageDown):
		a.MoveCursor(a.VisibleHeight())
	case key.Matches(msg, a.keys.Home), key.Matches(msg, a.keys.VimTop):
		a.GoToTop()
	case key.Matches(msg, a.keys.End), key.Matches(msg, a.keys.VimBot):
		a.GoToBottom()

	// Actions
	case key.Matches(msg, a.keys.Enter):
		if e := a.SelectedEntry(); e != nil && a.activeView == ViewPackages {
			return a.loadDetails(*e)
		}

	case key.Matches(msg, a.keys.Filter):
		if a.activeView == ViewPackages {
			a.startFilter()
		}

	case key.Matches(msg, a.keys.Reload):
		if a.loading {
			return nil
		}
		a.SetLoading(true, "Reloading...")
		return tea.Batch(a.loadEntries(), a.loadHistory())

	case key.Matches(msg, a.keys.Install):
		if a.loading {
			return nil
		}
		a.startInstall()

	case key.Matches(msg, a.keys.Update):
		e := a.SelectedEntry()
		if e == nil || a.loading {
			return nil
		}
		if !e.Declared {
			a.SetError(fmt.Sprintf("%s is not declared in the project file", e.Repo))
			return nil
		}
		entry := *e
		a.ShowConfirm(fmt.Sprintf("Update %s?", entry.Repo), func() tea.Cmd {
			a.SetLoading(true, "Updating "+entry.Repo+"...")
			return withContext(a.ctx, a.updatePackage(entry))
		})

	case key.Matches(msg, a.keys.Remove):
		e := a.SelectedEntry()
		if e == nil || a.loading {
			return nil
		}
		entry := *e
		a.ShowConfirm(fmt.Sprintf("Remove %s?", entry.Repo), func() tea.Cmd {
			a.SetLoading(true, "Removing "+entry.Repo+"...")
			return withContext(a.ctx, a.removePackage(entry))
		})
	}
	return nil
}

// View implements tea.Model
func (a *App) View() string {
	if !a.ready {
		return "Loading..."
	}

	if a.quitting {
		return ""
	}

	if a.showConfirm {
		return a.renderDialog()
	}

	var b strings.Builder

	b.WriteString(a.renderHeader())
	b.WriteString("\n")
	b.WriteString(a.renderTabs())
	b.WriteString("\n")
	b.WriteString(a.renderContent())
	b.WriteString(a.renderFooter())

	return b.String()
}

// startFilter initiates filter input
func (a *App) startFilter() {
	a.textInput.Placeholder = "repo, version or target"
	a.textInput.SetValue(a.filterText)
	a.textInput.Focus()
	a.StartInput("Filter: ", func(filter string) tea.Cmd {
		a.SetFilter(filter)
		return nil
	})
	a.inputValue = a.filterText
}

// startInstall asks for the package to install.
func (a *App) startInstall() {
	a.textInput.Placeholder = "owner/name[@constraint]"
	a.textInput.SetValue("")
	a.textInput.Focus()
	a.StartInput("Install: ", func(arg string) tea.Cmd {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			return nil
		}
		a.SetLoading(true, "Installing "+arg+"...")
		return withContext(a.ctx, a.installPackage(arg))
	})
}

// Run starts the TUI application and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	app := NewApp(ctx, opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
