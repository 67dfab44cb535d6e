package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ompkg/pkg/pkgerr"
	"ompkg/pkg/registry/registrytest"
)

type progressRecorder struct {
	mu   sync.Mutex
	last map[string][2]int64
}

func (p *progressRecorder) record(name string, done, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		p.last = make(map[string][2]int64)
	}
	p.last[name] = [2]int64{done, total}
}

func resolveTag(t *testing.T, c *Client, repo, tag string) *Release {
	t.Helper()
	releases, err := c.ListReleases(context.Background(), repo)
	if err != nil {
		t.Fatalf("ListReleases() error = %v", err)
	}
	for i := range releases {
		if releases[i].Tag == tag {
			return &releases[i]
		}
	}
	t.Fatalf("release %s not found", tag)
	return nil
}

func TestFetchAndClassifyArchivesAndStandalone(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/pkg", registrytest.Release{
		Tag: "v1.2.0",
		Assets: []registrytest.Asset{
			{Name: "pkg.zip", Data: zipBytes(t, entry{"plugins/pkg.so", "so"}, entry{"include/pkg.inc", "inc"})},
			{Name: "pkg-linux.tar.gz", Data: tarGzBytes(t, entry{"components/pkg.so", "so"})},
			{Name: "extra.inc", Data: []byte("extra")},
			{Name: "standalone.dll", Data: []byte("dll")},
			{Name: "amx-runtime.dll", Data: []byte("amx")},
			{Name: "CHANGELOG.md", Data: []byte("notes")},
		},
	})

	rec := &progressRecorder{}
	client := newTestClient(srv, WithProgress(rec.record), WithConcurrency(2))
	rel := resolveTag(t, client, "owner/pkg", "v1.2.0")
	dest := t.TempDir()

	files, err := client.FetchAndClassify(context.Background(), "owner/pkg", rel, dest)
	if err != nil {
		t.Fatalf("FetchAndClassify() error = %v", err)
	}

	if len(files.Includes) != 2 {
		t.Errorf("Includes = %v, want pkg.inc and extra.inc", files.Includes)
	}
	if len(files.PluginBinaries) != 1 || filepath.Base(files.PluginBinaries[0]) != "pkg.so" {
		t.Errorf("PluginBinaries = %v", files.PluginBinaries)
	}
	if len(files.ComponentBinaries) != 1 {
		t.Errorf("ComponentBinaries = %v", files.ComponentBinaries)
	}
	if len(files.Binaries) != 1 || filepath.Base(files.Binaries[0]) != "standalone.dll" {
		t.Errorf("Binaries = %v", files.Binaries)
	}
	if len(files.RootBinaries) != 1 || filepath.Base(files.RootBinaries[0]) != "amx-runtime.dll" {
		t.Errorf("RootBinaries = %v", files.RootBinaries)
	}

	// Buckets follow asset order regardless of download completion order.
	if filepath.Base(files.Includes[0]) != "pkg.inc" || filepath.Base(files.Includes[1]) != "extra.inc" {
		t.Errorf("Includes order = %v", files.Includes)
	}

	// Archives extract into separate directories.
	if filepath.Dir(files.PluginBinaries[0]) == filepath.Dir(files.ComponentBinaries[0]) {
		t.Error("archives should not share an extraction directory")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got, ok := rec.last["pkg.zip"]; !ok || got[0] == 0 || got[0] != got[1] {
		t.Errorf("final progress for pkg.zip = %v, want done == total", got)
	}
}

func TestFetchAndClassifySameStemArchives(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/pkg", registrytest.Release{
		Tag: "v1.0.0",
		Assets: []registrytest.Asset{
			{Name: "pkg.zip", Data: zipBytes(t, entry{"plugins/pkg.so", "from zip"})},
			{Name: "pkg.tar.gz", Data: tarGzBytes(t, entry{"plugins/pkg.so", "from tar"})},
		},
	})

	client := newTestClient(srv, WithConcurrency(2))
	rel := resolveTag(t, client, "owner/pkg", "v1.0.0")

	files, err := client.FetchAndClassify(context.Background(), "owner/pkg", rel, t.TempDir())
	if err != nil {
		t.Fatalf("FetchAndClassify() error = %v", err)
	}
	if len(files.PluginBinaries) != 2 {
		t.Fatalf("PluginBinaries = %v, want one per archive", files.PluginBinaries)
	}
	if files.PluginBinaries[0] == files.PluginBinaries[1] {
		t.Fatalf("both archives extracted to %s", files.PluginBinaries[0])
	}

	for i, want := range []string{"from zip", "from tar"} {
		data, err := os.ReadFile(files.PluginBinaries[i])
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != want {
			t.Errorf("%s = %q, want %q", files.PluginBinaries[i], data, want)
		}
	}
}

func TestFetchAndClassifyFallsBackToSourceIncludes(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/inc-only", registrytest.Release{
		Tag:    "v0.3.0",
		Assets: []registrytest.Asset{{Name: "notes.txt", Data: []byte("no binaries")}},
	})
	srv.AddContent("owner/inc-only", "v0.3.0", "inc-only.inc", []byte("#include <a_samp>"))
	srv.AddContent("owner/inc-only", "v0.3.0", "README.md", []byte("readme"))

	client := newTestClient(srv)
	rel := resolveTag(t, client, "owner/inc-only", "v0.3.0")

	files, err := client.FetchAndClassify(context.Background(), "owner/inc-only", rel, t.TempDir())
	if err != nil {
		t.Fatalf("FetchAndClassify() error = %v", err)
	}
	if len(files.Includes) != 1 || filepath.Base(files.Includes[0]) != "inc-only.inc" {
		t.Fatalf("Includes = %v", files.Includes)
	}
	data, err := os.ReadFile(files.Includes[0])
	if err != nil || string(data) != "#include <a_samp>" {
		t.Errorf("include contents = %q, %v", data, err)
	}
	if srv.Hits("/raw/owner/inc-only/v0.3.0/README.md") != 0 {
		t.Error("non-include source files should not be downloaded")
	}
}

func TestFetchAndClassifyRarFails(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/rar", registrytest.Release{
		Tag:    "v1.0.0",
		Assets: []registrytest.Asset{{Name: "pkg.rar", Data: []byte("Rar!")}},
	})
	client := newTestClient(srv)
	rel := resolveTag(t, client, "owner/rar", "v1.0.0")

	_, err := client.FetchAndClassify(context.Background(), "owner/rar", rel, t.TempDir())
	if !errors.Is(err, pkgerr.ErrExtraction) {
		t.Fatalf("error = %v, want ErrExtraction", err)
	}
}

func TestDownloadFailsOnHTTPError(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/pkg", registrytest.Release{
		Tag:    "v1.0.0",
		Assets: []registrytest.Asset{{Name: "pkg.so", Data: []byte("so")}},
	})
	srv.FailAsset("pkg.so", http.StatusBadGateway)
	client := newTestClient(srv)
	rel := resolveTag(t, client, "owner/pkg", "v1.0.0")

	dest := filepath.Join(t.TempDir(), "pkg.so")
	err := client.Download(context.Background(), "pkg.so", rel.Assets[0].DownloadURL, dest, rel.Assets[0].Size)
	if !errors.Is(err, pkgerr.ErrRegistry) {
		t.Fatalf("Download() error = %v, want ErrRegistry", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("failed download should not leave a file behind")
	}
}

func TestDownloadWriteFailure(t *testing.T) {
	srv := registrytest.NewServer()
	defer srv.Close()

	srv.AddRelease("owner/pkg", registrytest.Release{
		Tag:    "v1.0.0",
		Assets: []registrytest.Asset{{Name: "pkg.so", Data: []byte("so")}},
	})
	client := newTestClient(srv)
	rel := resolveTag(t, client, "owner/pkg", "v1.0.0")

	// A regular file where a parent directory is expected makes the write fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	err := client.Download(context.Background(), "pkg.so", rel.Assets[0].DownloadURL, filepath.Join(blocker, "pkg.so"), 2)
	if !errors.Is(err, pkgerr.ErrIO) {
		t.Fatalf("Download() error = %v, want ErrIO", err)
	}
}

func TestDownloadBodyOutlastsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("first half,"))
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("second half"))
	}))
	defer srv.Close()

	client := NewClient(WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	dest := filepath.Join(t.TempDir(), "big.zip")

	if err := client.Download(context.Background(), "big.zip", srv.URL+"/big.zip", dest, 0); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "first half,second half" {
		t.Errorf("downloaded %q", data)
	}
}

func TestDownloadHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	dest := filepath.Join(t.TempDir(), "slow.zip")

	err := client.Download(context.Background(), "slow.zip", srv.URL+"/slow.zip", dest, 0)
	if !errors.Is(err, pkgerr.ErrRegistry) {
		t.Fatalf("Download() error = %v, want a registry error", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("no file should be left behind")
	}
}

func TestAPICallTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("["))
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("]"))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL), WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
	if _, err := client.ListReleases(context.Background(), "owner/pkg"); !errors.Is(err, pkgerr.ErrRegistry) {
		t.Fatalf("ListReleases() error = %v, want a registry error", err)
	}
}
