// Package pkgerr defines the error kinds shared by the package pipeline.
package pkgerr

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match them with errors.Is.
var (
	// ErrIO is a filesystem failure.
	ErrIO = errors.New("io error")

	// ErrRegistry is a malformed repository identifier, a transport, auth or
	// rate-limit failure, or a malformed registry response.
	ErrRegistry = errors.New("registry error")

	// ErrExtraction is a corrupt or unsupported archive.
	ErrExtraction = errors.New("extraction error")

	// ErrNotFound means no matching version, or a repository absent from
	// the project or the lock.
	ErrNotFound = errors.New("not found")

	// ErrConfig is a malformed structured-config document.
	ErrConfig = errors.New("config error")

	// ErrVersion is version or constraint text that cannot be parsed.
	ErrVersion = errors.New("invalid version")
)

// Error carries a kind together with the operation and path that failed.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		if msg == "" {
			return e.Err.Error()
		}
		return msg + ": " + e.Err.Error()
	}
	if msg == "" {
		return e.Kind.Error()
	}
	return msg + ": " + e.Kind.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func newError(kind error, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// IO wraps a filesystem failure on path.
func IO(op, path string, err error) error {
	return newError(ErrIO, op, path, err)
}

// Registry wraps a registry failure.
func Registry(op string, err error) error {
	return newError(ErrRegistry, op, "", err)
}

// Registryf builds a registry error from a format string.
func Registryf(format string, args ...any) error {
	return newError(ErrRegistry, "", "", fmt.Errorf(format, args...))
}

// Extraction wraps an archive failure on path.
func Extraction(path string, err error) error {
	return newError(ErrExtraction, "extract", path, err)
}

// NotFoundf builds a not-found error from a format string.
func NotFoundf(format string, args ...any) error {
	return newError(ErrNotFound, "", "", fmt.Errorf(format, args...))
}

// Config wraps a malformed document at path.
func Config(path string, err error) error {
	return newError(ErrConfig, "parse", path, err)
}

// Configf builds a config error from a format string.
func Configf(format string, args ...any) error {
	return newError(ErrConfig, "", "", fmt.Errorf(format, args...))
}

// Versionf builds a version parse error from a format string.
func Versionf(format string, args ...any) error {
	return newError(ErrVersion, "", "", fmt.Errorf(format, args...))
}

// KindOf returns the kind sentinel of err, or nil when err carries none.
func KindOf(err error) error {
	for _, kind := range []error{ErrIO, ErrRegistry, ErrExtraction, ErrNotFound, ErrConfig, ErrVersion} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
