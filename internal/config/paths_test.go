package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir() returned empty string")
	}

	// Should contain 'ompkg' in the path
	if !strings.Contains(dir, "ompkg") {
		t.Errorf("ConfigDir() should contain 'ompkg': %s", dir)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "darwin":
		if !strings.Contains(dir, "Library/Application Support") {
			t.Errorf("macOS ConfigDir() should be in Library/Application Support: %s", dir)
		}
	case "windows":
		if !strings.Contains(strings.ToLower(dir), "appdata") {
			t.Errorf("Windows ConfigDir() should be in APPDATA: %s", dir)
		}
	default: // Linux
		if !strings.Contains(dir, ".config") && os.Getenv("XDG_CONFIG_HOME") == "" {
			t.Errorf("Linux ConfigDir() should be in .config: %s", dir)
		}
	}
}

func TestDataDir(t *testing.T) {
	dir := DataDir()

	if dir == "" {
		t.Error("DataDir() returned empty string")
	}

	if !strings.Contains(dir, "ompkg") {
		t.Errorf("DataDir() should contain 'ompkg': %s", dir)
	}
}

func TestFilePaths(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		suffix string
	}{
		{"config", ConfigPath(), "config.toml"},
		{"history", HistoryPath(), "history.db"},
		{"log", LogPath(), "ompkg.log"},
		{"scratch", ScratchDir(), "packages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.path == "" {
				t.Fatal("path is empty")
			}
			if !strings.HasSuffix(tt.path, tt.suffix) {
				t.Errorf("path should end with %q: %s", tt.suffix, tt.path)
			}
		})
	}
}

func TestScratchDirUnderCache(t *testing.T) {
	if !strings.HasPrefix(ScratchDir(), CacheDir()) {
		t.Errorf("ScratchDir() %s is not inside CacheDir() %s", ScratchDir(), CacheDir())
	}
}

func TestEnsureConfigDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG not used on this platform")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := EnsureConfigDir(); err != nil {
		t.Fatalf("EnsureConfigDir() error: %v", err)
	}

	info, err := os.Stat(ConfigDir())
	if err != nil {
		t.Fatalf("Config directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("ConfigDir is not a directory")
	}
}

func TestEnsureDataDir(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG not used on this platform")
	}
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if err := EnsureDataDir(); err != nil {
		t.Fatalf("EnsureDataDir() error: %v", err)
	}

	info, err := os.Stat(DataDir())
	if err != nil {
		t.Fatalf("Data directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("DataDir is not a directory")
	}
}

func TestXDGOverride(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG not used on this platform")
	}

	tmpDir := t.TempDir()
	customConfig := filepath.Join(tmpDir, "custom_config")
	customData := filepath.Join(tmpDir, "custom_data")
	customCache := filepath.Join(tmpDir, "custom_cache")

	t.Setenv("XDG_CONFIG_HOME", customConfig)
	t.Setenv("XDG_DATA_HOME", customData)
	t.Setenv("XDG_CACHE_HOME", customCache)

	if dir := ConfigDir(); !strings.HasPrefix(dir, customConfig) {
		t.Errorf("ConfigDir should use XDG_CONFIG_HOME: %s", dir)
	}
	if dir := DataDir(); !strings.HasPrefix(dir, customData) {
		t.Errorf("DataDir should use XDG_DATA_HOME: %s", dir)
	}
	if dir := ScratchDir(); dir != filepath.Join(customCache, "ompkg", "packages") {
		t.Errorf("ScratchDir should use XDG_CACHE_HOME: %s", dir)
	}
}
