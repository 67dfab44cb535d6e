package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ompkg/pkg/lock"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/project"
	"ompkg/pkg/registry"
	"ompkg/pkg/version"
	"ompkg/pkg/workspace"
)

// Install resolves repo against versionSpec ("" means any version),
// fetches the release and places its files. target selects where
// unclassified binaries go; TargetNone places them by name.
func (m *Manager) Install(ctx context.Context, repo, versionSpec string, target workspace.Target) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.install(ctx, repo, versionSpec, target, false)
}

// InstallAll installs every declared package in order. A failing package
// is logged and recorded in the report; the batch carries on. The returned
// error covers the project file and cancellation only.
func (m *Manager) InstallAll(ctx context.Context) (*BatchReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proj, err := project.Load(m.projectPath)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, repo := range proj.Repos() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		spec, _ := proj.Package(repo)
		res, err := m.install(ctx, repo, spec.Constraint(), spec.Target, false)
		if err != nil {
			m.logger.Warn("install failed", "repo", repo, "err", err)
			report.Failed = append(report.Failed, Failure{Repo: repo, Err: err})
			continue
		}
		report.Installed = append(report.Installed, res)
	}
	return report, nil
}

// Update reinstalls repo with its declared constraint and target. The
// files of the previous install are replaced once the new release has
// been fetched.
func (m *Manager) Update(ctx context.Context, repo string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	proj, err := project.Load(m.projectPath)
	if err != nil {
		return nil, err
	}
	repo, err = canonicalRepo(repo)
	if err != nil {
		return nil, err
	}
	spec, ok := proj.Package(repo)
	if !ok {
		return nil, pkgerr.NotFoundf("package %s is not declared in %s", repo, filepath.Base(m.projectPath))
	}
	return m.install(ctx, repo, spec.Constraint(), spec.Target, true)
}

func (m *Manager) install(ctx context.Context, repo, versionSpec string, target workspace.Target, replace bool) (*Result, error) {
	repo, err := canonicalRepo(repo)
	if err != nil {
		return nil, err
	}
	constraint, err := version.ParseConstraint(versionSpec)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(versionSpec) == "" {
		versionSpec = version.Any
	}

	proj, err := project.LoadOrDefault(m.projectPath)
	if err != nil {
		return nil, err
	}
	l, err := lock.Load(m.lockPath)
	if err != nil {
		return nil, err
	}

	logger := m.logger.With("repo", repo)
	release, err := m.registry.Resolve(ctx, repo, constraint)
	if err != nil {
		return nil, err
	}
	logger.Info("resolved release", "constraint", constraint.String(), "tag", release.Tag)

	res := &Result{Repo: repo, Constraint: versionSpec, Version: release.Tag, Target: target}
	prev, hadPrev := l.Get(repo)
	if hadPrev {
		res.Previous = prev.Version
	}
	if m.dryRun {
		res.DryRun = true
		return res, nil
	}

	scratch := m.scratchFor(repo)
	if err := os.RemoveAll(scratch); err != nil {
		return nil, pkgerr.IO("clean scratch", scratch, err)
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			logger.Warn("could not remove scratch directory", "path", scratch, "err", err)
		}
	}()

	files, err := m.registry.FetchAndClassify(ctx, repo, release, scratch)
	if err != nil {
		return nil, err
	}

	info, err := m.detector(proj).EnsureStructure()
	if err != nil {
		return nil, err
	}
	ops := planPlacement(files, info, target)
	if len(ops) == 0 {
		return nil, pkgerr.NotFoundf("release %s of %s contains no installable files", release.Tag, repo)
	}

	if replace && !hadPrev {
		// Nothing recorded: clear what an unlocked install may have left.
		for _, path := range matchByName(info, repo) {
			if err := removeFile(path); err != nil {
				return nil, err
			}
			logger.Info("removed unrecorded file", "path", info.Rel(path))
		}
	}

	placed := make(map[string]bool, len(ops))
	for _, op := range ops {
		if err := copyFile(op.src, op.dst); err != nil {
			return nil, err
		}
		rel := info.Rel(op.dst)
		if !placed[rel] {
			placed[rel] = true
			res.Files = append(res.Files, rel)
		}
		logger.Debug("placed file", "path", rel, "role", op.role.String())
	}

	if hadPrev {
		for _, rel := range prev.Files {
			if placed[rel] {
				continue
			}
			if err := removeFile(info.Abs(rel)); err != nil {
				return nil, err
			}
			res.Removed = append(res.Removed, rel)
			logger.Info("removed stale file", "path", rel)
		}
	}

	if len(res.Removed) > 0 {
		// Drop plugin names the new release no longer ships; the sync
		// below restores the ones it still does.
		if _, err := m.legacy.RemoveFromLock(l, repo); err != nil {
			return nil, fmt.Errorf("sync %s: %w", m.legacy.Path(), err)
		}
	}

	if !target.IsSet() {
		res.Target = derivedTarget(ops)
	}
	l.Put(repo, &lock.Package{Version: release.Tag, Target: res.Target, Files: res.Files})
	if err := l.Save(m.lockPath); err != nil {
		return nil, err
	}

	proj.AddPackage(repo, project.PackageSpec{Version: versionSpec, Target: target})
	if err := proj.Save(m.projectPath); err != nil {
		return nil, err
	}

	plugins, err := m.legacy.SyncFromLock(l)
	if err != nil {
		return nil, fmt.Errorf("sync %s: %w", m.legacy.Path(), err)
	}
	res.Plugins = plugins

	logger.Info("installed package", "tag", release.Tag, "target", res.Target.String(), "files", len(res.Files))
	return res, nil
}

// copyOp copies one fetched file into the workspace.
type copyOp struct {
	src  string
	dst  string
	role workspace.Target // directory role of dst; none for includes and root files
}

// planPlacement maps classified files to workspace paths.
//
// Includes go to every include directory and root binaries to the root.
// With a target, its own bucket is used, or the unclassified binaries
// when that bucket is empty. Without one, the component and plugin
// buckets go to their directories and each unclassified binary is placed
// by its name.
func planPlacement(files *registry.Files, info *workspace.Info, target workspace.Target) []copyOp {
	var ops []copyOp
	index := make(map[string]int)
	add := func(src, dir string, role workspace.Target) {
		dst := filepath.Join(dir, filepath.Base(src))
		if i, ok := index[dst]; ok {
			ops[i].src = src
			return
		}
		index[dst] = len(ops)
		ops = append(ops, copyOp{src: src, dst: dst, role: role})
	}

	for _, inc := range files.Includes {
		for _, dir := range info.IncludeDirs {
			add(inc, dir, workspace.TargetNone)
		}
	}
	for _, bin := range files.RootBinaries {
		add(bin, info.Root, workspace.TargetNone)
	}

	switch target {
	case workspace.TargetComponents:
		bins := files.ComponentBinaries
		if len(bins) == 0 {
			bins = files.Binaries
		}
		for _, bin := range bins {
			add(bin, info.ComponentsDir, workspace.TargetComponents)
		}
	case workspace.TargetPlugins:
		bins := files.PluginBinaries
		if len(bins) == 0 {
			bins = files.Binaries
		}
		for _, bin := range bins {
			add(bin, info.PluginsDir, workspace.TargetPlugins)
		}
	default:
		for _, bin := range files.ComponentBinaries {
			add(bin, info.ComponentsDir, workspace.TargetComponents)
		}
		for _, bin := range files.PluginBinaries {
			add(bin, info.PluginsDir, workspace.TargetPlugins)
		}
		for _, bin := range files.Binaries {
			role := roleByName(filepath.Base(bin))
			add(bin, info.DirFor(role), role)
		}
	}
	return ops
}

// roleByName guesses the role of an unclassified binary from its name.
func roleByName(name string) workspace.Target {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "omp") || strings.Contains(lower, "component") {
		return workspace.TargetComponents
	}
	return workspace.TargetPlugins
}

// derivedTarget is the role recorded when none was requested.
func derivedTarget(ops []copyOp) workspace.Target {
	components := false
	for _, op := range ops {
		switch op.role {
		case workspace.TargetPlugins:
			return workspace.TargetPlugins
		case workspace.TargetComponents:
			components = true
		}
	}
	if components {
		return workspace.TargetComponents
	}
	return workspace.TargetNone
}

func canonicalRepo(repo string) (string, error) {
	owner, name, err := registry.ParseRepo(repo)
	if err != nil {
		return "", err
	}
	return owner + "/" + name, nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return pkgerr.IO("open", src, err)
	}
	defer in.Close()

	perm := os.FileMode(0o644)
	if st, statErr := in.Stat(); statErr == nil {
		perm = st.Mode().Perm() | 0o600
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return pkgerr.IO("copy", dst, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = pkgerr.IO("copy", dst, cerr)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return pkgerr.IO("copy", dst, err)
	}
	return nil
}

// removeFile deletes path. A file that is already gone is not an error.
func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return pkgerr.IO("remove", path, err)
	}
	return nil
}
