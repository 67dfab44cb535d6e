package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"ompkg/pkg/pkgerr"
	"ompkg/pkg/registry"
)

func TestErrorHint(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"rate limit", pkgerr.Registry("list releases", &registry.RateLimitError{Limit: 60, ResetAt: time.Now()}), "GITHUB_TOKEN"},
		{"version", pkgerr.Versionf("invalid constraint %q", "^^1"), "Constraints"},
		{"not found", pkgerr.NotFoundf("no release of %s matches %s", "a/b", "^9"), "ompkg releases"},
		{"registry", pkgerr.Registry("list releases", errors.New("connection refused")), "network"},
		{"extraction", fmt.Errorf("install: %w", pkgerr.Extraction("pkg.rar", errors.New("unsupported archive format"))), ".tar.gz"},
		{"config", pkgerr.Config("config.json", errors.New("invalid character")), "did not change"},
		{"io", pkgerr.IO("copy", "plugins/a.so", errors.New("permission denied")), "permissions"},
		{"no project", ErrNoProject, ""},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errorHint(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("errorHint() = %q, want none", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("errorHint() = %q, want it to mention %q", got, tt.want)
			}
		})
	}
}

func TestParsePackageArg(t *testing.T) {
	tests := []struct {
		arg        string
		flag       string
		repo       string
		constraint string
		wantErr    bool
	}{
		{"owner/pkg", "", "owner/pkg", "", false},
		{"owner/pkg@^1.2", "", "owner/pkg", "^1.2", false},
		{"owner/pkg@v1.0.0", "", "owner/pkg", "v1.0.0", false},
		{"owner/pkg", ">=2", "owner/pkg", ">=2", false},
		{"owner/pkg@1.0", "2.0", "", "", true},
		{"owner/pkg@", "", "", "", true},
		{"not-a-repo", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			repo, constraint, err := parsePackageArg(tt.arg, tt.flag)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parsePackageArg(%q, %q) should fail", tt.arg, tt.flag)
				}
				return
			}
			if err != nil {
				t.Fatalf("parsePackageArg() error: %v", err)
			}
			if repo != tt.repo || constraint != tt.constraint {
				t.Errorf("parsePackageArg() = %q, %q, want %q, %q", repo, constraint, tt.repo, tt.constraint)
			}
		})
	}
}
