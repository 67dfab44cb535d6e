// Package workspace discovers and prepares the directory layout of a
// server workspace.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"ompkg/pkg/pkgerr"
)

// Flavor identifies the server a workspace is set up for.
type Flavor string

const (
	FlavorOpenMP  Flavor = "open.mp"
	FlavorSAMP    Flavor = "sa-mp"
	FlavorUnknown Flavor = "unknown"
)

const (
	defaultComponentsDir = "components"
	defaultPluginsDir    = "plugins"
	defaultIncludeDir    = "include"
)

var (
	openMPMarkers = []string{"omp-server", "omp-server.exe"}
	sampMarkers   = []string{"samp-server", "samp-server.exe", "samp03svr"}

	// Include directories probed when the project configures none.
	includeCandidates = []string{"qawno/include", "pawno/include", "include"}
)

// Info is the resolved layout of a workspace.
type Info struct {
	Root          string
	ComponentsDir string
	PluginsDir    string
	IncludeDirs   []string
	Flavor        Flavor
}

// DirFor returns the directory binaries of the given role belong in.
// TargetNone maps to the plugins directory.
func (i *Info) DirFor(t Target) string {
	if t == TargetComponents {
		return i.ComponentsDir
	}
	return i.PluginsDir
}

// Rel returns path relative to the root using forward slashes.
// Paths outside the root are returned unchanged.
func (i *Info) Rel(path string) string {
	rel, err := filepath.Rel(i.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// Abs resolves a root-relative slash path recorded by Rel.
func (i *Info) Abs(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(i.Root, filepath.FromSlash(rel))
}

// Detector probes a workspace root for its layout.
type Detector struct {
	root         string
	includePaths []string
}

// New creates a detector for root. includePaths are root-relative include
// directories from the project file; when empty they are probed.
func New(root string, includePaths []string) *Detector {
	return &Detector{root: root, includePaths: includePaths}
}

// Root returns the workspace root.
func (d *Detector) Root() string {
	return d.root
}

// Detect reports the layout without creating anything. Directories that do
// not exist yet are reported at their default location.
func (d *Detector) Detect() *Info {
	return &Info{
		Root:          d.root,
		ComponentsDir: d.probeDir(defaultComponentsDir),
		PluginsDir:    d.probeDir(defaultPluginsDir),
		IncludeDirs:   d.includeDirs(),
		Flavor:        d.flavor(),
	}
}

// EnsureStructure creates every missing standard directory and returns the
// layout. It is safe to call repeatedly.
func (d *Detector) EnsureStructure() (*Info, error) {
	info := d.Detect()

	dirs := append([]string{info.ComponentsDir, info.PluginsDir}, info.IncludeDirs...)
	for _, dir := range dirs {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// ComponentsDir returns the components directory, creating it if absent.
func (d *Detector) ComponentsDir() (string, error) {
	dir := d.probeDir(defaultComponentsDir)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// PluginsDir returns the plugins directory, creating it if absent.
func (d *Detector) PluginsDir() (string, error) {
	dir := d.probeDir(defaultPluginsDir)
	if err := ensureDir(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// probeDir finds an existing root entry named like want, in any casing.
func (d *Detector) probeDir(want string) string {
	entries, err := os.ReadDir(d.root)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() && strings.EqualFold(e.Name(), want) {
				return filepath.Join(d.root, e.Name())
			}
		}
	}
	return filepath.Join(d.root, want)
}

func (d *Detector) includeDirs() []string {
	if len(d.includePaths) > 0 {
		dirs := make([]string, 0, len(d.includePaths))
		for _, p := range d.includePaths {
			dirs = append(dirs, d.resolve(p))
		}
		return dirs
	}

	var dirs []string
	for _, candidate := range includeCandidates {
		dir := d.resolve(candidate)
		if isDir(dir) {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		dirs = append(dirs, d.resolve(defaultIncludeDir))
	}
	return dirs
}

func (d *Detector) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(d.root, filepath.FromSlash(p))
}

func (d *Detector) flavor() Flavor {
	for _, m := range openMPMarkers {
		if fileExists(filepath.Join(d.root, m)) {
			return FlavorOpenMP
		}
	}
	for _, m := range sampMarkers {
		if fileExists(filepath.Join(d.root, m)) {
			return FlavorSAMP
		}
	}
	return FlavorUnknown
}

func ensureDir(dir string) error {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return pkgerr.IO("create directory", dir, os.ErrExist)
		}
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return pkgerr.IO("create directory", dir, err)
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
