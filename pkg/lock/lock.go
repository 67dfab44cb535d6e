// Package lock records what is actually installed in a workspace: for each
// repository the installed version, its role and the files placed on disk.
package lock

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"sort"

	"ompkg/pkg/atomicfile"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/workspace"
)

// DefaultFileName is the lock file name at the workspace root.
const DefaultFileName = "ompkg.lock"

const formatVersion = 1

// Package is the lock entry of one repository.
type Package struct {
	Version string           `json:"version"`
	Target  workspace.Target `json:"target,omitempty"`
	Files   []string         `json:"files"` // slash-separated, relative to the workspace root
}

// Lock maps repositories to their installed state.
type Lock struct {
	Version  int                 `json:"version"`
	Packages map[string]*Package `json:"packages"`
}

// New returns an empty lock.
func New() *Lock {
	return &Lock{Version: formatVersion, Packages: make(map[string]*Package)}
}

// Load reads the lock at path. A missing file yields an empty lock.
func Load(path string) (*Lock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, pkgerr.IO("read", path, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}

	l := New()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, pkgerr.Config(path, err)
	}
	if l.Packages == nil {
		l.Packages = make(map[string]*Package)
	}
	for repo, pkg := range l.Packages {
		if pkg == nil {
			delete(l.Packages, repo)
		}
	}
	return l, nil
}

// Save writes the lock to path atomically.
func (l *Lock) Save(path string) error {
	l.Version = formatVersion
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return pkgerr.Config(path, err)
	}
	data = append(data, '\n')

	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return pkgerr.IO("write", path, err)
	}
	return nil
}

// Get returns the entry for repo.
func (l *Lock) Get(repo string) (*Package, bool) {
	pkg, ok := l.Packages[repo]
	return pkg, ok
}

// Put records the entry for repo, replacing any previous one.
func (l *Lock) Put(repo string, pkg *Package) {
	l.Packages[repo] = pkg
}

// Delete removes repo and reports whether it was present.
func (l *Lock) Delete(repo string) bool {
	if _, ok := l.Packages[repo]; !ok {
		return false
	}
	delete(l.Packages, repo)
	return true
}

// Repos returns the recorded repositories in sorted order.
func (l *Lock) Repos() []string {
	repos := make([]string, 0, len(l.Packages))
	for repo := range l.Packages {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}
