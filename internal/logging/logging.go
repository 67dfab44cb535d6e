// Package logging builds the process logger shared by the CLI and the
// packages under pkg/.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

// Options selects the verbosity and the optional log file.
type Options struct {
	Verbose bool
	Debug   bool

	// LogPath receives a copy of every record when Debug is set.
	LogPath string
}

// Level maps the flags to a log level. Warnings are always shown.
func (o Options) Level() log.Level {
	switch {
	case o.Debug:
		return log.DebugLevel
	case o.Verbose:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

// New returns a logger writing to w. With Debug and a LogPath the records
// are appended to that file as well; the returned closer releases it and
// is never nil.
func New(w io.Writer, opts Options) (*log.Logger, io.Closer, error) {
	var closer io.Closer = nopCloser{}

	if opts.Debug && opts.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(opts.LogPath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           opts.Level(),
		Prefix:          "ompkg",
		ReportTimestamp: opts.Debug,
		TimeFormat:      time.TimeOnly,
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
