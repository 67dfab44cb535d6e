package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ompkg/pkg/pkgerr"
	"ompkg/pkg/workspace"
)

const sampleProject = `[build]
entry_file = "gamemodes/main.pwn"
output_file = "gamemodes/main.amx"
compiler_version = "v3.10.11"

[build.includes]
paths = ["include", "qawno/include"]

[packages]
"owner/simple" = "^1.2"
"owner/detailed" = { version = "*", target = "plugins" }
"owner/component" = { target = "components" }
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPackageForms(t *testing.T) {
	cfg, err := Load(writeProject(t, sampleProject))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		repo       string
		constraint string
		target     workspace.Target
	}{
		{"owner/simple", "^1.2", workspace.TargetNone},
		{"owner/detailed", "*", workspace.TargetPlugins},
		{"owner/component", "*", workspace.TargetComponents},
	}
	for _, tt := range tests {
		spec, ok := cfg.Package(tt.repo)
		if !ok {
			t.Fatalf("%s not declared", tt.repo)
		}
		if spec.Constraint() != tt.constraint || spec.Target != tt.target {
			t.Errorf("%s = %+v, want %s (%s)", tt.repo, spec, tt.constraint, tt.target)
		}
	}

	if got := cfg.IncludePaths(); len(got) != 2 || got[1] != "qawno/include" {
		t.Errorf("IncludePaths() = %v", got)
	}
	if cfg.Build.EntryFile != "gamemodes/main.pwn" {
		t.Errorf("EntryFile = %q", cfg.Build.EntryFile)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := writeProject(t, sampleProject)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	cfg.AddPackage("owner/new", PackageSpec{Version: "~2.0", Target: workspace.TargetComponents})
	if !cfg.RemovePackage("owner/simple") {
		t.Error("RemovePackage(owner/simple) = false")
	}
	if cfg.RemovePackage("owner/simple") {
		t.Error("second RemovePackage(owner/simple) = true")
	}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.Contains(text, `"owner/new" = { version = "~2.0", target = "components" }`) {
		t.Errorf("detailed spec not written inline:\n%s", text)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	repos := reloaded.Repos()
	want := []string{"owner/component", "owner/detailed", "owner/new"}
	if strings.Join(repos, ",") != strings.Join(want, ",") {
		t.Errorf("Repos() = %v, want %v", repos, want)
	}
	if reloaded.Build.CompilerVersion != "v3.10.11" {
		t.Errorf("build section lost: %+v", reloaded.Build)
	}
}

func TestSimpleSpecWrittenAsString(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	cfg := Default()
	cfg.AddPackage("owner/pkg", PackageSpec{Version: "*"})
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"owner/pkg" = "*"`) {
		t.Errorf("simple spec should be a plain string:\n%s", data)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
		if !errors.Is(err, pkgerr.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	bad := map[string]string{
		"syntax":        "[build\nentry_file = ",
		"bad target":    "[packages]\n\"a/b\" = { version = \"*\", target = \"root\" }\n",
		"unknown field": "[packages]\n\"a/b\" = { version = \"*\", branch = \"main\" }\n",
		"wrong type":    "[packages]\n\"a/b\" = 3\n",
	}
	for name, content := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeProject(t, content))
			if !errors.Is(err, pkgerr.ErrConfig) {
				t.Errorf("error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), DefaultFileName))
	if err != nil {
		t.Fatalf("LoadOrDefault() error = %v", err)
	}
	if cfg.Build.EntryFile != "gamemode.pwn" || len(cfg.IncludePaths()) != 2 {
		t.Errorf("unexpected defaults: %+v", cfg.Build)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.AddPackage("owner/pkg", PackageSpec{})
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	cfg.AddPackage("not-a-repo", PackageSpec{})
	cfg.Build.EntryFile = ""
	err := cfg.Validate()
	if !errors.Is(err, pkgerr.ErrConfig) {
		t.Fatalf("Validate() error = %v, want ErrConfig", err)
	}
	if !strings.Contains(err.Error(), "entry_file") || !strings.Contains(err.Error(), "not-a-repo") {
		t.Errorf("Validate() message = %q", err.Error())
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"^1.2":       `"^1.2"`,
		`a"b`:        `"a\"b"`,
		`back\slash`: `"back\\slash"`,
		"tab\there":  `"tab\there"`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}
