// Package registrytest provides an in-process fake of the GitHub endpoints
// the registry client uses.
package registrytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Release is a fake release.
type Release struct {
	Tag         string
	Draft       bool
	Prerelease  bool
	PublishedAt time.Time
	Assets      []Asset
}

// Asset is a fake release asset.
type Asset struct {
	Name string
	Data []byte
}

// Server serves releases, assets and repository contents.
type Server struct {
	*httptest.Server

	mu          sync.Mutex
	releases    map[string][]Release         // owner/name
	contents    map[string]map[string][]byte // owner/name@ref -> file -> data
	pageSize    int
	rateLimited bool
	failAssets  map[string]int // asset name -> status
	hits        map[string]int
	auth        []string
}

// NewServer starts a fake server. Close it when done.
func NewServer() *Server {
	s := &Server{
		releases:   make(map[string][]Release),
		contents:   make(map[string]map[string][]byte),
		failAssets: make(map[string]int),
		hits:       make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/{owner}/{name}/releases", s.handleReleases)
	mux.HandleFunc("GET /repos/{owner}/{name}/contents", s.handleContents)
	mux.HandleFunc("GET /download/{owner}/{name}/{tag}/{asset}", s.handleAsset)
	mux.HandleFunc("GET /raw/{owner}/{name}/{ref}/{file}", s.handleRaw)
	mux.HandleFunc("GET /rate_limit", s.handleRateLimit)

	s.Server = httptest.NewServer(s.record(mux))
	return s
}

// AddRelease registers a release for repo. Releases are served in the
// order they were added.
func (s *Server) AddRelease(repo string, r Release) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases[repo] = append(s.releases[repo], r)
}

// AddContent registers a top-level repository file at ref.
func (s *Server) AddContent(repo, ref, name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := repo + "@" + ref
	if s.contents[key] == nil {
		s.contents[key] = make(map[string][]byte)
	}
	s.contents[key][name] = data
}

// SetPageSize splits release listings into pages of n.
func (s *Server) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageSize = n
}

// SetRateLimited makes API calls fail with an exhausted quota.
func (s *Server) SetRateLimited(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimited = v
}

// FailAsset makes downloads of the named asset answer with status.
func (s *Server) FailAsset(name string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAssets[name] = status
}

// Hits returns how many requests hit the exact path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// AuthHeaders returns every Authorization header value received.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.auth...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		limited := s.rateLimited
		s.mu.Unlock()

		if limited && r.URL.Path != "/rate_limit" {
			w.Header().Set("X-RateLimit-Limit", "60")
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10))
			http.Error(w, `{"message":"API rate limit exceeded"}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleReleases(w http.ResponseWriter, r *http.Request) {
	owner, name := r.PathValue("owner"), r.PathValue("name")
	repo := owner + "/" + name

	s.mu.Lock()
	releases, ok := s.releases[repo]
	pageSize := s.pageSize
	s.mu.Unlock()
	if !ok {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		return
	}

	page := 1
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	start, end := 0, len(releases)
	if pageSize > 0 {
		start = min((page-1)*pageSize, len(releases))
		end = min(start+pageSize, len(releases))
		if end < len(releases) {
			next := fmt.Sprintf("%s%s?per_page=%d&page=%d", s.URL, r.URL.Path, pageSize, page+1)
			w.Header().Set("Link", fmt.Sprintf(`<%s>; rel="next", <%s>; rel="last"`, next, next))
		}
	}

	out := make([]map[string]any, 0, end-start)
	for _, rel := range releases[start:end] {
		assets := make([]map[string]any, 0, len(rel.Assets))
		for _, a := range rel.Assets {
			assets = append(assets, map[string]any{
				"name":                 a.Name,
				"size":                 len(a.Data),
				"browser_download_url": fmt.Sprintf("%s/download/%s/%s/%s/%s", s.URL, owner, name, rel.Tag, a.Name),
			})
		}
		item := map[string]any{
			"tag_name":   rel.Tag,
			"name":       rel.Tag,
			"draft":      rel.Draft,
			"prerelease": rel.Prerelease,
			"assets":     assets,
		}
		if !rel.PublishedAt.IsZero() {
			item["published_at"] = rel.PublishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, item)
	}
	writeJSON(w, out)
}

func (s *Server) handleContents(w http.ResponseWriter, r *http.Request) {
	owner, name := r.PathValue("owner"), r.PathValue("name")
	ref := r.URL.Query().Get("ref")

	s.mu.Lock()
	files, ok := s.contents[owner+"/"+name+"@"+ref]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, []any{})
		return
	}

	out := make([]map[string]any, 0, len(files)+1)
	for file, data := range files {
		out = append(out, map[string]any{
			"name":         file,
			"path":         file,
			"type":         "file",
			"size":         len(data),
			"download_url": fmt.Sprintf("%s/raw/%s/%s/%s/%s", s.URL, owner, name, ref, file),
		})
	}
	out = append(out, map[string]any{"name": "src", "path": "src", "type": "dir"})
	writeJSON(w, out)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	repo := r.PathValue("owner") + "/" + r.PathValue("name")
	tag, assetName := r.PathValue("tag"), r.PathValue("asset")

	s.mu.Lock()
	defer s.mu.Unlock()

	if status, ok := s.failAssets[assetName]; ok {
		http.Error(w, "failure", status)
		return
	}
	for _, rel := range s.releases[repo] {
		if rel.Tag != tag {
			continue
		}
		for _, a := range rel.Assets {
			if a.Name == assetName {
				w.Header().Set("Content-Type", "application/octet-stream")
				_, _ = w.Write(a.Data)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("owner") + "/" + r.PathValue("name") + "@" + r.PathValue("ref")

	s.mu.Lock()
	data, ok := s.contents[key][r.PathValue("file")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write(data)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"resources": map[string]any{
			"core": map[string]any{"limit": 60, "remaining": 42},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
