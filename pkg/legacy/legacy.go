// Package legacy keeps the legacy_plugins field of a server config.json in
// step with the plugin binaries recorded in the lock.
//
// The field historically held either a JSON array of names or a single
// comma or whitespace separated string. After every update it is a sorted,
// deduplicated array of base names, or absent when no plugin remains.
package legacy

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"ompkg/pkg/atomicfile"
	"ompkg/pkg/lock"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/workspace"
)

const (
	// DefaultFileName is the server config at the workspace root.
	DefaultFileName = "config.json"
	// FieldName is the top-level member that lists legacy plugins.
	FieldName = "legacy_plugins"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for reconciliation messages.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// Manager edits one config document.
type Manager struct {
	path   string
	logger *log.Logger
}

// New returns a Manager for root/config.json.
func New(root string, opts ...Option) *Manager {
	return NewWithPath(filepath.Join(root, DefaultFileName), opts...)
}

// NewWithPath returns a Manager for the config document at path.
func NewWithPath(path string, opts ...Option) *Manager {
	m := &Manager{path: path, logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the config document path.
func (m *Manager) Path() string {
	return m.path
}

// Plugins returns the normalized names currently in the document.
func (m *Manager) Plugins() ([]string, error) {
	_, doc, err := m.read()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	if i := doc.find(FieldName); i >= 0 {
		return ParsePluginField(doc.members[i].value)
	}
	return nil, nil
}

// SyncPlugins folds every plugin recorded in the lock at lockPath into the
// field and returns the resulting list.
func (m *Manager) SyncPlugins(lockPath string) ([]string, error) {
	l, err := lock.Load(lockPath)
	if err != nil {
		return nil, err
	}
	return m.SyncFromLock(l)
}

// SyncFromLock is SyncPlugins for an already loaded lock.
func (m *Manager) SyncFromLock(l *lock.Lock) ([]string, error) {
	wanted := PluginNames(l, "")
	return m.update(func(current []string) []string {
		return normalize(append(current, wanted...))
	})
}

// RemovePlugins subtracts the plugins the lock attributes to repo from the
// field and returns the resulting list. Names still provided by another
// locked repository are kept.
func (m *Manager) RemovePlugins(repo, lockPath string) ([]string, error) {
	l, err := lock.Load(lockPath)
	if err != nil {
		return nil, err
	}
	return m.RemoveFromLock(l, repo)
}

// RemoveFromLock is RemovePlugins for an already loaded lock.
func (m *Manager) RemoveFromLock(l *lock.Lock, repo string) ([]string, error) {
	drop := PluginNames(l, repo)
	if len(drop) == 0 {
		return m.Plugins()
	}

	keep := map[string]bool{}
	for _, other := range l.Repos() {
		if other == repo {
			continue
		}
		for _, name := range PluginNames(l, other) {
			keep[name] = true
		}
	}

	return m.update(func(current []string) []string {
		out := current[:0:0]
		for _, name := range current {
			if slices.Contains(drop, name) && !keep[name] {
				continue
			}
			out = append(out, name)
		}
		return out
	})
}

// update applies fn to the current names and writes the result when it
// differs from what is stored.
func (m *Manager) update(fn func([]string) []string) ([]string, error) {
	data, doc, err := m.read()
	if err != nil {
		return nil, err
	}

	var current []string
	var stored json.RawMessage
	if doc != nil {
		if i := doc.find(FieldName); i >= 0 {
			stored = doc.members[i].value
			if current, err = ParsePluginField(stored); err != nil {
				return nil, pkgerr.Config(m.path, err)
			}
		}
	}

	next := fn(current)

	var out []byte
	switch {
	case len(next) == 0 && stored == nil:
		return next, nil
	case len(next) == 0:
		out, _ = doc.remove(FieldName)
		m.logger.Info("removed empty legacy plugin list", "path", m.path)
	default:
		rendered := renderList(next)
		if stored != nil && bytes.Equal(bytes.TrimSpace(stored), rendered) {
			return next, nil
		}
		if doc == nil {
			out = append([]byte("{\n  "+string(quoteKey(FieldName))+": "), rendered...)
			out = append(out, "\n}\n"...)
		} else {
			out = doc.set(FieldName, rendered)
		}
		m.logger.Info("updated legacy plugins", "path", m.path, "plugins", strings.Join(next, ","))
	}

	if err := m.write(data, out); err != nil {
		return nil, err
	}
	return next, nil
}

// read loads the document. A missing or blank file yields a nil document.
func (m *Manager) read() ([]byte, *document, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, pkgerr.IO("read", m.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return data, nil, nil
	}
	doc, err := parseDocument(data)
	if err != nil {
		return nil, nil, pkgerr.Config(m.path, err)
	}
	return data, doc, nil
}

func (m *Manager) write(previous, data []byte) error {
	perm := os.FileMode(0o644)
	if previous != nil {
		if info, err := os.Stat(m.path); err == nil {
			perm = info.Mode().Perm()
		}
	}
	if err := atomicfile.WriteFile(m.path, data, perm); err != nil {
		return pkgerr.IO("write", m.path, err)
	}
	return nil
}

// PluginNames returns the plugin names the lock attributes to repo, or to
// every repository when repo is empty. Only entries installed with the
// plugins target count, and only their .dll/.so files below a plugins
// directory.
func PluginNames(l *lock.Lock, repo string) []string {
	var names []string
	for _, r := range l.Repos() {
		if repo != "" && r != repo {
			continue
		}
		pkg, _ := l.Get(r)
		if pkg.Target != workspace.TargetPlugins {
			continue
		}
		for _, file := range pkg.Files {
			if name, ok := pluginName(file); ok {
				names = append(names, name)
			}
		}
	}
	return normalize(names)
}

func pluginName(file string) (string, bool) {
	parts := strings.Split(strings.ReplaceAll(file, `\`, "/"), "/")
	base := parts[len(parts)-1]
	ext := strings.ToLower(filepath.Ext(base))
	if ext != ".dll" && ext != ".so" {
		return "", false
	}
	for _, dir := range parts[:len(parts)-1] {
		if strings.EqualFold(dir, "plugins") {
			return strings.TrimSuffix(base, filepath.Ext(base)), true
		}
	}
	return "", false
}

// ParsePluginField decodes a legacy_plugins value. Arrays contribute their
// string elements; a string is split on commas when it has any and on
// whitespace otherwise. Other JSON values count as empty. The result has
// extensions stripped and is sorted and deduplicated.
func ParsePluginField(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}

	var names []string
	switch v := value.(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				names = append(names, s)
			}
		}
	case string:
		if strings.Contains(v, ",") {
			names = strings.Split(v, ",")
		} else {
			names = strings.Fields(v)
		}
	}
	return normalize(names), nil
}

func normalize(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = stripExt(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func stripExt(name string) string {
	ext := filepath.Ext(name)
	switch strings.ToLower(ext) {
	case ".dll", ".so":
		return strings.TrimSuffix(name, ext)
	}
	return name
}

func renderList(names []string) []byte {
	var b bytes.Buffer
	b.WriteByte('[')
	for i, name := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		q, _ := json.Marshal(name)
		b.Write(q)
	}
	b.WriteByte(']')
	return b.Bytes()
}
