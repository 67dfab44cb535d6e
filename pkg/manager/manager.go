package manager

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"

	"ompkg/pkg/legacy"
	"ompkg/pkg/lock"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/project"
	"ompkg/pkg/registry"
	"ompkg/pkg/workspace"
)

// Options configures a Manager.
type Options struct {
	Root        string      // workspace root (required)
	ProjectPath string      // defaults to <Root>/ompkg.toml
	LockPath    string      // defaults to <Root>/ompkg.lock
	LegacyPath  string      // defaults to <Root>/config.json
	ScratchDir  string      // defaults to <tmp>/ompkg/packages
	Registry    Registry    // required
	Logger      *log.Logger // defaults to a discarding logger
	DryRun      bool        // resolve and plan without touching the workspace
}

// Manager performs package operations on one workspace. Operations are
// serialized; a Manager is safe for use from several goroutines.
type Manager struct {
	root        string
	projectPath string
	lockPath    string
	scratchDir  string
	registry    Registry
	legacy      *legacy.Manager
	logger      *log.Logger
	dryRun      bool

	mu sync.Mutex
}

// New creates a Manager.
func New(opts Options) (*Manager, error) {
	if opts.Root == "" {
		return nil, pkgerr.Configf("workspace root is required")
	}
	if opts.Registry == nil {
		return nil, pkgerr.Configf("registry is required")
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, pkgerr.IO("resolve", opts.Root, err)
	}

	m := &Manager{
		root:        root,
		projectPath: opts.ProjectPath,
		lockPath:    opts.LockPath,
		scratchDir:  opts.ScratchDir,
		registry:    opts.Registry,
		logger:      opts.Logger,
		dryRun:      opts.DryRun,
	}
	if m.projectPath == "" {
		m.projectPath = filepath.Join(root, project.DefaultFileName)
	}
	if m.lockPath == "" {
		m.lockPath = filepath.Join(root, lock.DefaultFileName)
	}
	if m.scratchDir == "" {
		m.scratchDir = filepath.Join(os.TempDir(), "ompkg", "packages")
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}

	legacyPath := opts.LegacyPath
	if legacyPath == "" {
		legacyPath = filepath.Join(root, legacy.DefaultFileName)
	}
	m.legacy = legacy.NewWithPath(legacyPath, legacy.WithLogger(m.logger))
	return m, nil
}

// Root returns the workspace root.
func (m *Manager) Root() string { return m.root }

// ProjectPath returns the project file path.
func (m *Manager) ProjectPath() string { return m.projectPath }

// LockPath returns the lock file path.
func (m *Manager) LockPath() string { return m.lockPath }

// DryRun reports whether the manager only plans.
func (m *Manager) DryRun() bool { return m.dryRun }

// Layout returns the workspace layout without creating anything.
func (m *Manager) Layout() (*workspace.Info, error) {
	proj, err := project.LoadOrDefault(m.projectPath)
	if err != nil {
		return nil, err
	}
	return m.detector(proj).Detect(), nil
}

// Project loads the project file, or the defaults when it does not exist.
func (m *Manager) Project() (*project.Config, error) {
	return project.LoadOrDefault(m.projectPath)
}

// Installed returns the lock entry of repo.
func (m *Manager) Installed(repo string) (*lock.Package, bool, error) {
	l, err := lock.Load(m.lockPath)
	if err != nil {
		return nil, false, err
	}
	pkg, ok := l.Get(repo)
	return pkg, ok, nil
}

// List returns every declared package with its installed state, followed
// by packages that are locked but no longer declared.
func (m *Manager) List() ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proj, err := project.Load(m.projectPath)
	if errors.Is(err, pkgerr.ErrNotFound) {
		proj = &project.Config{}
	} else if err != nil {
		return nil, err
	}
	l, err := lock.Load(m.lockPath)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(proj.Packages))
	for _, repo := range proj.Repos() {
		spec, _ := proj.Package(repo)
		e := Entry{Repo: repo, Constraint: spec.Constraint(), Target: spec.Target, Declared: true}
		if pkg, ok := l.Get(repo); ok {
			e.Installed = true
			e.Version = pkg.Version
			e.Files = len(pkg.Files)
		}
		entries = append(entries, e)
	}
	for _, repo := range l.Repos() {
		if _, ok := proj.Package(repo); ok {
			continue
		}
		pkg, _ := l.Get(repo)
		entries = append(entries, Entry{
			Repo:      repo,
			Target:    pkg.Target,
			Installed: true,
			Version:   pkg.Version,
			Files:     len(pkg.Files),
		})
	}
	return entries, nil
}

// Sync folds every plugin the lock records into legacy_plugins and
// returns the resulting list. It repairs a config left behind by an
// interrupted operation and is safe to repeat.
func (m *Manager) Sync() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, err := lock.Load(m.lockPath)
	if err != nil {
		return nil, err
	}
	if m.dryRun {
		current, err := m.legacy.Plugins()
		if err != nil {
			return nil, err
		}
		return mergeNames(current, legacy.PluginNames(l, "")), nil
	}
	return m.legacy.SyncFromLock(l)
}

// Init writes a default project file when none exists and creates the
// workspace directories. It reports whether the project file was created.
func (m *Manager) Init() (*workspace.Info, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	created := false
	proj, err := project.Load(m.projectPath)
	if errors.Is(err, pkgerr.ErrNotFound) {
		proj, created = project.Default(), true
	} else if err != nil {
		return nil, false, err
	}

	if m.dryRun {
		return m.detector(proj).Detect(), created, nil
	}
	if created {
		if err := proj.Save(m.projectPath); err != nil {
			return nil, false, err
		}
		m.logger.Info("created project file", "path", m.projectPath)
	}
	info, err := m.detector(proj).EnsureStructure()
	if err != nil {
		return nil, created, err
	}
	return info, created, nil
}

func (m *Manager) detector(proj *project.Config) *workspace.Detector {
	return workspace.New(m.root, proj.IncludePaths())
}

// scratchFor returns the per-repository scratch directory.
func (m *Manager) scratchFor(repo string) string {
	owner, name, _ := registry.ParseRepo(repo)
	return filepath.Join(m.scratchDir, owner+"_"+name)
}

func mergeNames(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	sort.Strings(out)
	return out
}
