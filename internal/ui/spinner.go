package ui

import (
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner wraps the spinner library for consistent styling.
type Spinner struct {
	s    *spinner.Spinner
	once sync.Once
}

// NewSpinner creates a new spinner with the given message.
func NewSpinner(message string) *Spinner {
	charSet := spinner.CharSets[14] // ⣾⣽⣻⢿⡿⣟⣯⣷
	if !UseUnicode {
		charSet = spinner.CharSets[0] // |/-\
	}

	s := spinner.New(charSet, 100*time.Millisecond, spinner.WithWriter(os.Stderr), spinner.WithHiddenCursor(true))
	s.Suffix = " " + message

	if UseColors {
		s.Color("cyan")
	}

	return &Spinner{s: s}
}

// Start starts the spinner.
func (sp *Spinner) Start() {
	sp.s.Start()
}

// Stop stops the spinner. It is safe to call more than once.
func (sp *Spinner) Stop() {
	sp.once.Do(sp.s.Stop)
}

// Error stops the spinner with an error message.
func (sp *Spinner) Error(message string) {
	sp.Stop()
	ErrorMsg(message)
}
