package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ompkg/pkg/pkgerr"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Check default output settings
	if !cfg.UI.Color {
		t.Error("expected Color to be true by default")
	}
	if !cfg.UI.Unicode {
		t.Error("expected Unicode to be true by default")
	}

	// Check general settings
	if cfg.General.AutoConfirm {
		t.Error("expected AutoConfirm to be false by default")
	}
	if cfg.General.DryRun {
		t.Error("expected DryRun to be false by default")
	}

	if cfg.Workspace.ProjectFile != "ompkg.toml" || cfg.Workspace.LockFile != "ompkg.lock" {
		t.Errorf("unexpected workspace files: %+v", cfg.Workspace)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := Default()

	timeout, err := cfg.Timeout()
	if err != nil || timeout != 60*time.Second {
		t.Errorf("Timeout() = %v, %v", timeout, err)
	}

	maxAge, err := cfg.HistoryMaxAge()
	if err != nil || maxAge != 90*24*time.Hour {
		t.Errorf("HistoryMaxAge() = %v, %v", maxAge, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timeout", func(c *Config) { c.Registry.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Registry.Timeout = "-5s" }},
		{"bad max age", func(c *Config) { c.History.MaxAge = "" }},
		{"zero concurrency", func(c *Config) { c.Registry.Concurrency = 0 }},
		{"relative api url", func(c *Config) { c.Registry.APIURL = "api.github.com" }},
		{"no lock file", func(c *Config) { c.Workspace.LockFile = " " }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected Validate() to fail")
			}
		})
	}
}

func TestToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	cfg := Default()
	if cfg.Token() != "" {
		t.Errorf("expected no token, got %q", cfg.Token())
	}

	t.Setenv("GH_TOKEN", "gh")
	if cfg.Token() != "gh" {
		t.Errorf("expected GH_TOKEN fallback, got %q", cfg.Token())
	}

	t.Setenv("GITHUB_TOKEN", "env")
	if cfg.Token() != "env" {
		t.Errorf("expected GITHUB_TOKEN fallback, got %q", cfg.Token())
	}

	cfg.Registry.Token = "configured"
	if cfg.Token() != "configured" {
		t.Errorf("configured token should win, got %q", cfg.Token())
	}
}

func TestShouldUseColor(t *testing.T) {
	cfg := &Config{
		UI: UIConfig{Color: true},
	}

	// Should return true when Color is true and NO_COLOR is not set
	t.Setenv("NO_COLOR", "")
	if !cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return true")
	}

	// Should return false when NO_COLOR is set
	t.Setenv("NO_COLOR", "1")
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when NO_COLOR is set")
	}
	t.Setenv("NO_COLOR", "")

	// Should return false when Color is false
	cfg.UI.Color = false
	if cfg.ShouldUseColor() {
		t.Error("expected ShouldUseColor() to return false when Color is false")
	}
}

func TestLoadSaveConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.toml")

	cfg := Default()
	cfg.Registry.Concurrency = 8
	cfg.Registry.APIURL = "https://ghe.example.com/api/v3"
	cfg.General.AutoConfirm = true

	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("SaveTo() error: %v", err)
	}

	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}

	if loaded.Registry.Concurrency != 8 || loaded.Registry.APIURL != "https://ghe.example.com/api/v3" {
		t.Errorf("registry settings not preserved: %+v", loaded.Registry)
	}
	if !loaded.General.AutoConfirm {
		t.Error("AutoConfirm not preserved")
	}
}

func TestLoadPartialConfigKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[registry]\nconcurrency = 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error: %v", err)
	}
	if cfg.Registry.Concurrency != 2 {
		t.Errorf("Concurrency = %d, want 2", cfg.Registry.Concurrency)
	}
	if cfg.Registry.Timeout != "60s" || !cfg.History.Enabled {
		t.Errorf("defaults lost: %+v %+v", cfg.Registry, cfg.History)
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[registry\n",
		"bad timeout": "[registry]\ntimeout = \"forever\"\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFrom(path)
			if !errors.Is(err, pkgerr.ErrConfig) {
				t.Errorf("LoadFrom() error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoadNonExistentConfig(t *testing.T) {
	// Loading non-existent file should return default config
	cfg, err := LoadFrom("/non/existent/path/config.toml")
	if err != nil {
		t.Fatalf("LoadFrom() should not error for non-existent file: %v", err)
	}

	if cfg == nil {
		t.Fatal("LoadFrom() should return default config for non-existent file")
	}

	// Should have default values
	if !cfg.UI.Color {
		t.Error("expected default Color to be true")
	}
}
