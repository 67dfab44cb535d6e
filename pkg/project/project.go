// Package project loads and saves the workspace build configuration,
// including the declared packages.
package project

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"ompkg/pkg/atomicfile"
	"ompkg/pkg/pkgerr"
	"ompkg/pkg/workspace"
)

// DefaultFileName is the project file name at the workspace root.
const DefaultFileName = "ompkg.toml"

var repoKey = regexp.MustCompile(`^[^/\s]+/[^/\s]+$`)

// Config is the project document.
type Config struct {
	Build    Build                  `toml:"build"`
	Packages map[string]PackageSpec `toml:"packages,omitempty"`
}

// Build describes how the gamemode is compiled.
type Build struct {
	EntryFile       string    `toml:"entry_file"`
	OutputFile      string    `toml:"output_file"`
	CompilerVersion string    `toml:"compiler_version"`
	Includes        *Includes `toml:"includes,omitempty"`
	Args            *Args     `toml:"args,omitempty"`
}

// Includes lists include directories relative to the workspace root.
type Includes struct {
	Paths []string `toml:"paths"`
}

// Args are extra compiler flags.
type Args struct {
	Args []string `toml:"args"`
}

// Default returns the configuration written by "ompkg init".
func Default() *Config {
	return &Config{
		Build: Build{
			EntryFile:       "gamemode.pwn",
			OutputFile:      "gamemode.amx",
			CompilerVersion: "v3.10.11",
			Includes: &Includes{
				Paths: []string{"include", "qawno/include"},
			},
			Args: &Args{
				Args: []string{"-d3", "-;+", "-(+", `-\+`, "-Z+", "-O2"},
			},
		},
		Packages: map[string]PackageSpec{},
	}
}

// Load reads the project file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, pkgerr.NotFoundf("project file %s does not exist (run ompkg init)", path)
		}
		return nil, pkgerr.IO("read", path, err)
	}

	cfg := &Config{}
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, pkgerr.Config(path, err)
	}
	if cfg.Packages == nil {
		cfg.Packages = map[string]PackageSpec{}
	}
	return cfg, nil
}

// LoadOrDefault reads the project file, falling back to Default when it
// does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, pkgerr.ErrNotFound) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the project file atomically.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return pkgerr.Config(path, err)
	}
	if err := atomicfile.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return pkgerr.IO("write", path, err)
	}
	return nil
}

// Validate checks required build fields and package keys.
func (c *Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.Build.EntryFile) == "" {
		problems = append(problems, "build.entry_file is empty")
	}
	if strings.TrimSpace(c.Build.OutputFile) == "" {
		problems = append(problems, "build.output_file is empty")
	}
	for _, repo := range c.Repos() {
		if !repoKey.MatchString(repo) {
			problems = append(problems, fmt.Sprintf("package %q is not owner/name", repo))
		}
	}
	if len(problems) > 0 {
		return pkgerr.Configf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// IncludePaths returns the configured include directories, or nil when the
// project leaves them to be probed.
func (c *Config) IncludePaths() []string {
	if c.Build.Includes == nil {
		return nil
	}
	return c.Build.Includes.Paths
}

// Package returns the declared spec for repo.
func (c *Config) Package(repo string) (PackageSpec, bool) {
	spec, ok := c.Packages[repo]
	return spec, ok
}

// AddPackage declares repo, replacing any previous declaration.
func (c *Config) AddPackage(repo string, spec PackageSpec) {
	if c.Packages == nil {
		c.Packages = map[string]PackageSpec{}
	}
	c.Packages[repo] = spec
}

// RemovePackage drops repo and reports whether it was declared.
func (c *Config) RemovePackage(repo string) bool {
	if _, ok := c.Packages[repo]; !ok {
		return false
	}
	delete(c.Packages, repo)
	return true
}

// Repos returns the declared repositories in sorted order.
func (c *Config) Repos() []string {
	repos := make([]string, 0, len(c.Packages))
	for repo := range c.Packages {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	return repos
}

// PackageSpec is a declared package: a version constraint and an optional
// target role. It is written as a plain string when no target is set and
// as an inline table otherwise.
type PackageSpec struct {
	Version string
	Target  workspace.Target
}

// Constraint returns the version constraint, "*" when empty.
func (p PackageSpec) Constraint() string {
	if strings.TrimSpace(p.Version) == "" {
		return "*"
	}
	return p.Version
}

// UnmarshalTOML implements toml.Unmarshaler.
func (p *PackageSpec) UnmarshalTOML(data any) error {
	switch v := data.(type) {
	case string:
		*p = PackageSpec{Version: v}
		return nil
	case map[string]any:
		spec := PackageSpec{}
		for key, raw := range v {
			s, ok := raw.(string)
			if !ok {
				return pkgerr.Configf("package field %q must be a string", key)
			}
			switch key {
			case "version":
				spec.Version = s
			case "target":
				t, err := workspace.ParseTarget(s)
				if err != nil {
					return err
				}
				spec.Target = t
			default:
				return pkgerr.Configf("unknown package field %q", key)
			}
		}
		*p = spec
		return nil
	}
	return pkgerr.Configf("package spec must be a string or a table, got %T", data)
}

// MarshalTOML implements toml.Marshaler.
func (p PackageSpec) MarshalTOML() ([]byte, error) {
	if !p.Target.IsSet() {
		return []byte(quote(p.Constraint())), nil
	}
	return []byte(fmt.Sprintf("{ version = %s, target = %s }",
		quote(p.Constraint()), quote(string(p.Target)))), nil
}

// quote renders s as a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
