// Package history records workspace operations in a BoltDB database so they
// can be listed and undone.
package history

import (
	"strconv"
	"strings"
	"time"
)

// Operation represents the type of package operation.
type Operation string

const (
	OpInstall Operation = "install"
	OpRemove  Operation = "remove"
	OpUpdate  Operation = "update"
	OpSync    Operation = "sync"
	OpInit    Operation = "init"
	OpClean   Operation = "clean"
)

// Package identifies one package touched by an operation, with enough
// detail to install it again.
type Package struct {
	Repo       string `json:"repo"`
	Constraint string `json:"constraint,omitempty"`
	Target     string `json:"target,omitempty"`
	Version    string `json:"version,omitempty"`
	Previous   string `json:"previous,omitempty"` // version replaced by an install
}

func (p Package) String() string {
	if p.Version == "" {
		return p.Repo
	}
	return p.Repo + "@" + p.Version
}

// Entry represents a single operation in the history.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Workspace string    `json:"workspace"` // absolute workspace root
	Packages  []Package `json:"packages"`
	Success   bool      `json:"success"`
	DryRun    bool      `json:"dry_run,omitempty"`
	Error     string    `json:"error,omitempty"`

	// Undo support
	Reversible bool      `json:"reversible"`
	ReverseOp  Operation `json:"reverse_op,omitempty"`
}

// NewEntry creates a new history entry.
func NewEntry(op Operation, workspace string, packages []Package) *Entry {
	return &Entry{
		ID:         generateID(),
		Timestamp:  time.Now(),
		Operation:  op,
		Workspace:  workspace,
		Packages:   packages,
		Success:    false, // Will be updated after operation completes
		Reversible: isReversible(op),
		ReverseOp:  reverseOperation(op),
	}
}

// Add appends a package to the entry.
func (e *Entry) Add(pkg Package) {
	e.Packages = append(e.Packages, pkg)
}

// MarkSuccess marks the entry as successful.
func (e *Entry) MarkSuccess() {
	e.Success = true
}

// MarkFailed marks the entry as failed with an error message.
func (e *Entry) MarkFailed(err error) {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
}

// Finish marks the entry from the outcome of the operation.
func (e *Entry) Finish(err error) {
	if err != nil {
		e.MarkFailed(err)
		return
	}
	e.MarkSuccess()
}

// Names returns the package strings for display.
func (e *Entry) Names() []string {
	names := make([]string, len(e.Packages))
	for i, p := range e.Packages {
		names[i] = p.String()
	}
	return names
}

// generateID generates a unique ID for the entry.
func generateID() string {
	return time.Now().Format("20060102150405.000000")
}

// isReversible returns whether an operation can be reversed.
func isReversible(op Operation) bool {
	switch op {
	case OpInstall, OpRemove:
		return true
	}
	return false
}

// reverseOperation returns the operation that would reverse this one.
func reverseOperation(op Operation) Operation {
	switch op {
	case OpInstall:
		return OpRemove
	case OpRemove:
		return OpInstall
	}
	return ""
}

// CanUndo reports whether this operation can be undone.
func (e *Entry) CanUndo() bool {
	return e.Reversible && e.Success && !e.DryRun && len(e.Packages) > 0
}

// FormatTime returns a human-readable timestamp.
func (e *Entry) FormatTime() string {
	return e.Timestamp.Format("2006-01-02 15:04:05")
}

// Summary returns a brief summary of the operation.
func (e *Entry) Summary() string {
	status := "success"
	if !e.Success {
		status = "failed"
	}

	var b strings.Builder
	b.WriteString(e.FormatTime())
	b.WriteString(" ")
	b.WriteString(string(e.Operation))
	if len(e.Packages) > 0 {
		b.WriteString(" ")
		b.WriteString(e.Packages[0].String())
		if len(e.Packages) > 1 {
			b.WriteString(" (+")
			b.WriteString(strconv.Itoa(len(e.Packages) - 1))
			b.WriteString(")")
		}
	}
	b.WriteString(" (" + status + ")")
	return b.String()
}
