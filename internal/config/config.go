package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"ompkg/pkg/pkgerr"
)

// Config represents the complete ompkg user configuration.
type Config struct {
	General   GeneralConfig   `toml:"general"`
	Registry  RegistryConfig  `toml:"registry"`
	Workspace WorkspaceConfig `toml:"workspace"`
	UI        UIConfig        `toml:"ui"`
	History   HistoryConfig   `toml:"history"`
}

// GeneralConfig contains general ompkg settings.
type GeneralConfig struct {
	// AutoConfirm skips confirmation prompts when true (like -y flag).
	AutoConfirm bool `toml:"auto_confirm"`

	// DryRun resolves releases without changing the workspace when true.
	DryRun bool `toml:"dry_run"`

	// Verbose enables informational log output.
	Verbose bool `toml:"verbose"`
}

// RegistryConfig contains settings for the GitHub release registry.
type RegistryConfig struct {
	// Token authenticates API calls. Empty falls back to GITHUB_TOKEN.
	Token string `toml:"token"`

	// APIURL is the API base URL; change it for GitHub Enterprise.
	APIURL string `toml:"api_url"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `toml:"user_agent"`

	// Timeout bounds each HTTP request, as a Go duration string.
	Timeout string `toml:"timeout"`

	// Concurrency is the number of assets downloaded at once.
	Concurrency int `toml:"concurrency"`
}

// WorkspaceConfig names the files ompkg keeps at the workspace root.
type WorkspaceConfig struct {
	ProjectFile string `toml:"project_file"`
	LockFile    string `toml:"lock_file"`
}

// UIConfig contains output formatting settings.
type UIConfig struct {
	// Color enables colored output (respects NO_COLOR env var).
	Color bool `toml:"color"`

	// Unicode enables unicode symbols in output.
	Unicode bool `toml:"unicode"`
}

// HistoryConfig controls the operation history.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	MaxAge  string `toml:"max_age"` // entries older than this are pruned by "ompkg clean"
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			AutoConfirm: false,
			DryRun:      false,
			Verbose:     false,
		},
		Registry: RegistryConfig{
			APIURL:      "https://api.github.com",
			Timeout:     "60s",
			Concurrency: 4,
		},
		Workspace: WorkspaceConfig{
			ProjectFile: "ompkg.toml",
			LockFile:    "ompkg.lock",
		},
		UI: UIConfig{
			Color:   true,
			Unicode: true,
		},
		History: HistoryConfig{
			Enabled: true,
			MaxAge:  "2160h", // 90 days
		},
	}
}

// Load loads the configuration from the default path.
// If the config file doesn't exist, it returns the default configuration.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom loads the configuration from a specific path.
// If the config file doesn't exist, it returns the default configuration.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, pkgerr.Config(path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, pkgerr.Config(path, err)
	}

	return cfg, nil
}

// Save writes the configuration to the default path.
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes the configuration to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

// Validate checks values that the TOML types cannot express.
func (c *Config) Validate() error {
	if _, err := c.Timeout(); err != nil {
		return fmt.Errorf("registry.timeout: %w", err)
	}
	if _, err := c.HistoryMaxAge(); err != nil {
		return fmt.Errorf("history.max_age: %w", err)
	}
	if c.Registry.Concurrency < 1 || c.Registry.Concurrency > 16 {
		return fmt.Errorf("registry.concurrency must be between 1 and 16, got %d", c.Registry.Concurrency)
	}
	u, err := url.Parse(c.Registry.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("registry.api_url %q is not an absolute URL", c.Registry.APIURL)
	}
	if strings.TrimSpace(c.Workspace.ProjectFile) == "" || strings.TrimSpace(c.Workspace.LockFile) == "" {
		return fmt.Errorf("workspace.project_file and workspace.lock_file must be set")
	}
	return nil
}

// Timeout returns the registry request timeout.
func (c *Config) Timeout() (time.Duration, error) {
	return parseDuration(c.Registry.Timeout)
}

// HistoryMaxAge returns how long history entries are kept.
func (c *Config) HistoryMaxAge() (time.Duration, error) {
	return parseDuration(c.History.MaxAge)
}

// Token returns the registry token, falling back to GITHUB_TOKEN and then
// GH_TOKEN.
func (c *Config) Token() string {
	if c.Registry.Token != "" {
		return c.Registry.Token
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t
	}
	return os.Getenv("GH_TOKEN")
}

// ShouldUseColor returns true if colored output should be used.
// Respects the NO_COLOR environment variable.
func (c *Config) ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return c.UI.Color
}

func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
