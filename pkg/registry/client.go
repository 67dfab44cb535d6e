package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"ompkg/pkg/pkgerr"
)

const (
	// DefaultBaseURL is the GitHub REST API endpoint.
	DefaultBaseURL = "https://api.github.com"

	// DefaultUserAgent is sent with every request unless overridden.
	DefaultUserAgent = "ompkg/dev"

	// DefaultTimeout bounds API calls and the wait for download headers.
	DefaultTimeout = 60 * time.Second

	// DefaultConcurrency is the number of assets downloaded in parallel.
	DefaultConcurrency = 4

	perPage  = 100
	maxPages = 10

	// maxJSONResponseBytes is the upper bound on API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var repoPattern = regexp.MustCompile(`^([^/]+)/([^/]+)$`)

// RateLimitError is returned when the GitHub API rate limit is exhausted.
type RateLimitError struct {
	Limit   int
	ResetAt time.Time
}

// Error formats the rate limit details.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit of %d exceeded, resets at %s (set GITHUB_TOKEN for a higher limit)",
		e.Limit, e.ResetAt.UTC().Format("15:04 UTC"))
}

// ProgressFunc receives download progress. total is zero when unknown.
type ProgressFunc func(name string, done, total int64)

type (
	// Client queries releases and downloads assets.
	Client struct {
		httpClient  *http.Client
		timeout     time.Duration
		baseURL     string
		token       string
		userAgent   string
		concurrency int
		progress    ProgressFunc
		logger      *log.Logger
	}

	// Option configures a Client.
	Option func(*Client)

	githubRelease struct {
		TagName     string        `json:"tag_name"`
		Name        string        `json:"name"`
		Draft       bool          `json:"draft"`
		Prerelease  bool          `json:"prerelease"`
		PublishedAt time.Time     `json:"published_at"`
		Assets      []githubAsset `json:"assets"`
	}

	githubAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
		Size               int64  `json:"size"`
	}

	githubContent struct {
		Name        string `json:"name"`
		Path        string `json:"path"`
		Type        string `json:"type"`
		Size        int64  `json:"size"`
		DownloadURL string `json:"download_url"`
	}
)

// WithHTTPClient sets the HTTP client, e.g. for tests or proxies.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithTimeout bounds each API call, body included, and the time until a
// download's response headers arrive. Download bodies are not bounded, so
// large assets on slow links can finish.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(base string) Option {
	return func(cl *Client) {
		cl.baseURL = strings.TrimRight(base, "/")
	}
}

// WithToken sets an access token. Authenticated requests get a higher rate
// limit. The token is only sent to GitHub hosts.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithConcurrency sets how many assets are downloaded at once.
func WithConcurrency(n int) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.concurrency = n
		}
	}
}

// WithProgress registers a download progress callback. It may be called
// from several goroutines.
func WithProgress(fn ProgressFunc) Option {
	return func(cl *Client) {
		cl.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// NewClient creates a client with defaults applied.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		timeout:     DefaultTimeout,
		baseURL:     DefaultBaseURL,
		userAgent:   DefaultUserAgent,
		concurrency: DefaultConcurrency,
		logger:      log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasToken reports whether requests are authenticated.
func (c *Client) HasToken() bool {
	return c.token != ""
}

// ParseRepo splits "owner/name".
func ParseRepo(repo string) (owner, name string, err error) {
	m := repoPattern.FindStringSubmatch(strings.TrimSpace(repo))
	if m == nil {
		return "", "", pkgerr.Registryf("invalid repository %q (want owner/name)", repo)
	}
	return m[1], m[2], nil
}

// ListReleases returns every release of repo in API order (newest first).
// Pagination is followed up to a fixed page limit.
func (c *Client) ListReleases(ctx context.Context, repo string) ([]Release, error) {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), perPage)

	var all []Release
	for page := 0; page < maxPages && pageURL != ""; page++ {
		var raw []githubRelease
		next, err := c.getJSON(ctx, pageURL, &raw)
		if err != nil {
			return nil, fmt.Errorf("listing releases of %s: %w", repo, err)
		}
		for _, gr := range raw {
			all = append(all, toRelease(gr))
		}
		pageURL = next
	}

	c.logger.Debug("listed releases", "repo", repo, "count", len(all))
	return all, nil
}

// ListContents lists the top-level repository files at ref.
func (c *Client) ListContents(ctx context.Context, repo, ref string) ([]ContentItem, error) {
	owner, name, err := ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	contentsURL := fmt.Sprintf("%s/repos/%s/%s/contents?ref=%s",
		c.baseURL, url.PathEscape(owner), url.PathEscape(name), url.QueryEscape(ref))

	var raw []githubContent
	if _, err := c.getJSON(ctx, contentsURL, &raw); err != nil {
		return nil, fmt.Errorf("listing contents of %s@%s: %w", repo, ref, err)
	}

	items := make([]ContentItem, 0, len(raw))
	for _, gc := range raw {
		items = append(items, ContentItem(gc))
	}
	return items, nil
}

// RateLimit reports the remaining core API quota.
func (c *Client) RateLimit(ctx context.Context) (remaining, limit int, err error) {
	var body struct {
		Resources struct {
			Core struct {
				Limit     int `json:"limit"`
				Remaining int `json:"remaining"`
			} `json:"core"`
		} `json:"resources"`
	}
	if _, err := c.getJSON(ctx, c.baseURL+"/rate_limit", &body); err != nil {
		return 0, 0, fmt.Errorf("querying rate limit: %w", err)
	}
	return body.Resources.Core.Remaining, body.Resources.Core.Limit, nil
}

// getJSON fetches reqURL into v and returns the next page URL, if any.
func (c *Client) getJSON(ctx context.Context, reqURL string, v any) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.doRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkRateLimit(resp); err != nil {
		return "", pkgerr.Registry("request "+redactURL(reqURL), err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", pkgerr.Registryf("%s: not found (HTTP 404)", redactURL(reqURL))
	case resp.StatusCode == http.StatusUnauthorized:
		return "", pkgerr.Registryf("%s: bad credentials (HTTP 401)", redactURL(reqURL))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", pkgerr.Registryf("%s: unexpected status %d", redactURL(reqURL), resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJSONResponseBytes)).Decode(v); err != nil {
		return "", pkgerr.Registry("decode response", err)
	}
	return parseLinkHeader(resp.Header.Get("Link")), nil
}

// doRequest executes a GET with the common GitHub headers.
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, pkgerr.Registry("create request", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" && isGitHubHost(req.URL, c.baseURL) {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerr.Registry("request "+redactURL(reqURL), err)
	}
	return resp, nil
}

// checkRateLimit returns a RateLimitError when the response was refused
// because the quota is exhausted.
func checkRateLimit(resp *http.Response) error {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}
	rem, err := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	if err != nil || rem > 0 {
		return nil
	}

	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)
	return &RateLimitError{Limit: limit, ResetAt: time.Unix(resetUnix, 0)}
}

// parseLinkHeader extracts the rel="next" URL from a Link header.
func parseLinkHeader(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

func toRelease(gr githubRelease) Release {
	assets := make([]Asset, 0, len(gr.Assets))
	for _, ga := range gr.Assets {
		assets = append(assets, Asset{Name: ga.Name, DownloadURL: ga.BrowserDownloadURL, Size: ga.Size})
	}
	return Release{
		Tag:         gr.TagName,
		Name:        gr.Name,
		Draft:       gr.Draft,
		Prerelease:  gr.Prerelease,
		PublishedAt: gr.PublishedAt,
		Assets:      assets,
	}
}

// isGitHubHost reports whether the token may be attached to reqURL.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	if strings.EqualFold(base.Host, "api.github.com") {
		host := strings.ToLower(reqURL.Host)
		return host == "github.com" || host == "raw.githubusercontent.com"
	}
	return false
}

// redactURL strips the query and fragment for use in error messages.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}
