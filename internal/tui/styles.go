// Package tui provides an interactive terminal browser for the packages of
// an ompkg workspace.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"ompkg/pkg/workspace"
)

// Color palette - matches the CLI colors
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#06B6D4") // Cyan
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Yellow
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorMuted     = lipgloss.Color("#6B7280") // Gray
	ColorText      = lipgloss.Color("#F3F4F6") // Light gray
	ColorBg        = lipgloss.Color("#1F2937") // Dark gray
	ColorBgAlt     = lipgloss.Color("#374151") // Slightly lighter
)

// TargetColors colors the placement target badges.
var TargetColors = map[workspace.Target]lipgloss.Color{
	workspace.TargetComponents: lipgloss.Color("#2563EB"),
	workspace.TargetPlugins:    lipgloss.Color("#D97706"),
}

// Styles contains all the lipgloss styles used in the TUI
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style

	// Tabs
	Tab         lipgloss.Style
	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	// Content
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Description lipgloss.Style

	ListItemSelected lipgloss.Style

	// Package display
	RepoName       lipgloss.Style
	RepoNameDim    lipgloss.Style
	PackageVersion lipgloss.Style
	Constraint     lipgloss.Style
	FilePath       lipgloss.Style

	// Status indicators
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style

	InputPrompt lipgloss.Style

	// Help
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
	HelpSep  lipgloss.Style

	// Dialog
	Dialog       lipgloss.Style
	DialogTitle  lipgloss.Style
	DialogButton lipgloss.Style
}

// DefaultStyles returns the default style configuration
func DefaultStyles() *Styles {
	s := &Styles{}

	s.Header = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorBgAlt).
		Padding(0, 1).
		Bold(true)

	s.Footer = lipgloss.NewStyle().
		Background(ColorBgAlt).
		Foreground(ColorMuted).
		Padding(0, 1)

	// Tabs
	s.Tab = lipgloss.NewStyle().
		Padding(0, 2)

	s.TabActive = s.Tab.
		Foreground(ColorPrimary).
		Bold(true).
		Underline(true)

	s.TabInactive = s.Tab.
		Foreground(ColorMuted)

	// Content
	s.Title = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true).
		MarginBottom(1)

	s.Subtitle = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	s.Description = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.ListItemSelected = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	// Package display
	s.RepoName = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true)

	s.RepoNameDim = lipgloss.NewStyle().
		Foreground(ColorText)

	s.PackageVersion = lipgloss.NewStyle().
		Foreground(ColorSuccess)

	s.Constraint = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Italic(true)

	s.FilePath = lipgloss.NewStyle().
		Foreground(ColorText).
		PaddingLeft(2)

	// Status indicators
	s.Success = lipgloss.NewStyle().
		Foreground(ColorSuccess).
		Bold(true)

	s.Warning = lipgloss.NewStyle().
		Foreground(ColorWarning).
		Bold(true)

	s.Error = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	s.Info = lipgloss.NewStyle().
		Foreground(ColorSecondary)

	s.InputPrompt = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	// Help
	s.HelpKey = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true)

	s.HelpDesc = lipgloss.NewStyle().
		Foreground(ColorMuted)

	s.HelpSep = lipgloss.NewStyle().
		Foreground(ColorMuted).
		SetString(" - ")

	// Dialog
	s.Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Width(60)

	s.DialogTitle = lipgloss.NewStyle().
		Foreground(ColorText).
		Bold(true).
		MarginBottom(1)

	s.DialogButton = lipgloss.NewStyle().
		Foreground(ColorText).
		Background(ColorPrimary).
		Padding(0, 2).
		MarginRight(1)

	return s
}

// Badge creates a badge-style label
func Badge(text string, color lipgloss.Color) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(color).
		Padding(0, 1).
		Render(text)
}

// TargetBadge creates a badge for a placement target. Packages without a
// recorded target get no badge.
func TargetBadge(t workspace.Target) string {
	if !t.IsSet() {
		return ""
	}
	color, ok := TargetColors[t]
	if !ok {
		color = ColorMuted
	}
	return Badge(t.String(), color)
}
