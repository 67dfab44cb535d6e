package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"ompkg/pkg/lock"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/project"
	"ompkg/pkg/workspace"
)

// Remove deletes the files of repo and drops it from the lock, the
// project file and legacy_plugins. The files recorded in the lock are
// removed exactly; only when repo has no lock entry are files found by
// matching the package name.
func (m *Manager) Remove(ctx context.Context, repo string) (*RemoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo, err := canonicalRepo(repo)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proj, err := project.LoadOrDefault(m.projectPath)
	if err != nil {
		return nil, err
	}
	l, err := lock.Load(m.lockPath)
	if err != nil {
		return nil, err
	}

	entry, locked := l.Get(repo)
	_, declared := proj.Package(repo)
	if !locked && !declared {
		return nil, pkgerr.NotFoundf("package %s is not installed", repo)
	}

	logger := m.logger.With("repo", repo)
	info := m.detector(proj).Detect()
	res := &RemoveResult{Repo: repo, Declared: declared, DryRun: m.dryRun}

	var paths []string
	if locked {
		for _, rel := range entry.Files {
			paths = append(paths, info.Abs(rel))
		}
	} else {
		res.ByName = true
		paths = matchByName(info, repo)
		logger.Warn("no lock entry, removing files by package name", "matches", len(paths))
	}

	for _, path := range paths {
		rel := info.Rel(path)
		if _, err := os.Lstat(path); errors.Is(err, os.ErrNotExist) {
			res.Missing = append(res.Missing, rel)
			continue
		}
		if !m.dryRun {
			if err := removeFile(path); err != nil {
				return nil, err
			}
			logger.Debug("removed file", "path", rel)
		}
		res.Removed = append(res.Removed, rel)
	}
	if m.dryRun {
		return res, nil
	}

	if locked {
		plugins, err := m.legacy.RemoveFromLock(l, repo)
		if err != nil {
			return nil, fmt.Errorf("sync %s: %w", m.legacy.Path(), err)
		}
		res.Plugins = plugins

		l.Delete(repo)
		if err := l.Save(m.lockPath); err != nil {
			return nil, err
		}
	}

	if proj.RemovePackage(repo) {
		if err := proj.Save(m.projectPath); err != nil {
			return nil, err
		}
	}

	logger.Info("removed package", "files", len(res.Removed), "missing", len(res.Missing))
	return res, nil
}

// matchByName finds files whose name contains the package name: .inc files
// in the include directories and any file in the components and plugins
// directories. The match ignores case.
func matchByName(info *workspace.Info, repo string) []string {
	stem := strings.ToLower(repo[strings.LastIndex(repo, "/")+1:])
	if stem == "" {
		return nil
	}

	var matches []string
	scan := func(dir string, includesOnly bool) {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			if !strings.Contains(name, stem) {
				continue
			}
			if includesOnly && !strings.HasSuffix(name, ".inc") {
				continue
			}
			matches = append(matches, filepath.Join(dir, e.Name()))
		}
	}

	for _, dir := range info.IncludeDirs {
		scan(dir, true)
	}
	scan(info.ComponentsDir, false)
	scan(info.PluginsDir, false)

	sort.Strings(matches)
	return matches
}
