// Package registry talks to the GitHub Releases API: it lists and resolves
// releases, downloads their assets and sorts the files they contain by role.
package registry

import "time"

// Release is a tagged publication of a repository. Releases are fetched per
// operation and never persisted.
type Release struct {
	Tag         string
	Name        string
	Draft       bool
	Prerelease  bool
	PublishedAt time.Time
	Assets      []Asset
}

// Asset is a downloadable file attached to a release.
type Asset struct {
	Name        string
	DownloadURL string
	Size        int64
}

// ContentItem is an entry of a repository directory listing.
type ContentItem struct {
	Name        string
	Path        string
	Type        string // "file" or "dir"
	Size        int64
	DownloadURL string
}

// Files holds the classified files of a fetched package. Each path appears
// in exactly one bucket.
type Files struct {
	Includes          []string
	Binaries          []string // shared libraries without a known role
	RootBinaries      []string
	ComponentBinaries []string
	PluginBinaries    []string
}

// Add files path under the bucket for kind. Ignored kinds are dropped.
func (f *Files) Add(kind Kind, path string) {
	switch kind {
	case KindInclude:
		f.Includes = append(f.Includes, path)
	case KindRootBinary:
		f.RootBinaries = append(f.RootBinaries, path)
	case KindComponentBinary:
		f.ComponentBinaries = append(f.ComponentBinaries, path)
	case KindPluginBinary:
		f.PluginBinaries = append(f.PluginBinaries, path)
	case KindBinary:
		f.Binaries = append(f.Binaries, path)
	}
}

// Merge appends every bucket of other to f.
func (f *Files) Merge(other *Files) {
	if other == nil {
		return
	}
	f.Includes = append(f.Includes, other.Includes...)
	f.Binaries = append(f.Binaries, other.Binaries...)
	f.RootBinaries = append(f.RootBinaries, other.RootBinaries...)
	f.ComponentBinaries = append(f.ComponentBinaries, other.ComponentBinaries...)
	f.PluginBinaries = append(f.PluginBinaries, other.PluginBinaries...)
}

// Empty reports whether every bucket is empty.
func (f *Files) Empty() bool {
	return f.Count() == 0
}

// Count returns the total number of classified files.
func (f *Files) Count() int {
	return len(f.Includes) + len(f.Binaries) + len(f.RootBinaries) +
		len(f.ComponentBinaries) + len(f.PluginBinaries)
}
