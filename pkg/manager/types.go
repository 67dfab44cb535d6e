// Package manager installs, updates and removes packages in a workspace.
// It drives the registry to resolve and fetch releases, places files in the
// workspace and keeps the project file, the lock and the legacy server
// config in step.
package manager

import (
	"context"

	"ompkg/pkg/registry"
	"ompkg/pkg/version"
	"ompkg/pkg/workspace"
)

// Registry resolves and fetches releases. *registry.Client implements it.
type Registry interface {
	// Resolve returns the newest release of repo matching constraint.
	Resolve(ctx context.Context, repo string, constraint *version.Constraint) (*registry.Release, error)

	// FetchAndClassify downloads the release into destDir and sorts the
	// resulting files by role.
	FetchAndClassify(ctx context.Context, repo string, release *registry.Release, destDir string) (*registry.Files, error)
}

// Result describes one install or update.
type Result struct {
	Repo       string           `json:"repo"`
	Constraint string           `json:"constraint"`
	Version    string           `json:"version"`            // release tag
	Previous   string           `json:"previous,omitempty"` // tag installed before, if any
	Target     workspace.Target `json:"target,omitempty"`
	Files      []string         `json:"files"`             // placed files, relative to the root
	Removed    []string         `json:"removed,omitempty"` // files of the previous install no longer shipped
	Plugins    []string         `json:"plugins,omitempty"` // legacy_plugins after the install
	DryRun     bool             `json:"dry_run,omitempty"`
}

// Changed reports whether the installed version changed.
func (r *Result) Changed() bool {
	return r.Previous != r.Version
}

// Failure is one failed entry of a batch.
type Failure struct {
	Repo string
	Err  error
}

// BatchReport is the outcome of InstallAll.
type BatchReport struct {
	Installed []*Result
	Failed    []Failure
}

// OK reports whether every entry succeeded.
func (b *BatchReport) OK() bool {
	return len(b.Failed) == 0
}

// RemoveResult describes one removal.
type RemoveResult struct {
	Repo     string   `json:"repo"`
	Removed  []string `json:"removed"`           // deleted files, relative to the root
	Missing  []string `json:"missing,omitempty"` // recorded files that were already gone
	ByName   bool     `json:"by_name,omitempty"` // files were found by name, not from the lock
	Declared bool     `json:"declared"`          // the project file listed the repo
	Plugins  []string `json:"plugins,omitempty"` // legacy_plugins after the removal
	DryRun   bool     `json:"dry_run,omitempty"`
}

// Entry is one row of List.
type Entry struct {
	Repo       string           `json:"repo"`
	Constraint string           `json:"constraint,omitempty"`
	Target     workspace.Target `json:"target,omitempty"`
	Declared   bool             `json:"declared"`
	Installed  bool             `json:"installed"`
	Version    string           `json:"version,omitempty"`
	Files      int              `json:"files"`
}
