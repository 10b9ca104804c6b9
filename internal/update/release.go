package update

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	// DefaultAPIURL is the GitHub REST API root.
	DefaultAPIURL = "https://api.github.com"
	// DefaultOwner and DefaultRepo identify the upstream release index.
	DefaultOwner = "nymtech"
	DefaultRepo  = "nym"
	// DefaultAsset is the release asset holding the node binary.
	DefaultAsset = "nym-node"
	// DefaultChecksumAsset is the optional sha256sum-format asset.
	DefaultChecksumAsset = "checksums.txt"
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "nym-updater"

	// signatureSuffix names the detached signature asset: "<asset>.asc".
	signatureSuffix = ".asc"

	// defaultListCount is used when List is called with n <= 0.
	defaultListCount = 10

	// maxJSONResponseBytes is the upper bound on JSON API response size (10 MB).
	maxJSONResponseBytes = 10 << 20
)

var tagVersionRe = regexp.MustCompile(`v\d+(\.\d+){0,2}`)

type (
	// githubRelease is the JSON wire format for a GitHub Release API response.
	githubRelease struct {
		TagName     string        `json:"tag_name"`
		Name        string        `json:"name"`
		Body        string        `json:"body"`
		HTMLURL     string        `json:"html_url"`
		Prerelease  bool          `json:"prerelease"`
		Draft       bool          `json:"draft"`
		PublishedAt time.Time     `json:"published_at"`
		Assets      []githubAsset `json:"assets"`
	}

	// githubAsset is the JSON wire format for a GitHub Release asset.
	githubAsset struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	}

	// GitHubFetcher queries the GitHub Releases API for the node binary.
	GitHubFetcher struct {
		httpClient    *http.Client
		owner         string
		repo          string
		baseURL       string
		token         string // Optional, for rate limiting
		userAgent     string
		asset         string
		checksumAsset string
	}

	// FetcherOption configures a GitHubFetcher during construction.
	FetcherOption func(*GitHubFetcher)
)

// WithHTTPClient sets a custom HTTP client, useful for tests or proxy configurations.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *GitHubFetcher) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithBaseURL overrides the GitHub API base URL, primarily for test servers.
func WithBaseURL(base string) FetcherOption {
	return func(f *GitHubFetcher) {
		if base != "" {
			f.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithToken sets a GitHub token for authenticated requests.
func WithToken(token string) FetcherOption {
	return func(f *GitHubFetcher) {
		f.token = token
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) FetcherOption {
	return func(f *GitHubFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithRepo overrides the repository owner and name.
func WithRepo(owner, repo string) FetcherOption {
	return func(f *GitHubFetcher) {
		if owner != "" {
			f.owner = owner
		}
		if repo != "" {
			f.repo = repo
		}
	}
}

// WithAsset overrides the name of the binary asset.
func WithAsset(name string) FetcherOption {
	return func(f *GitHubFetcher) {
		if name != "" {
			f.asset = name
		}
	}
}

// WithChecksumAsset overrides the checksum asset name. Empty disables checksum discovery.
func WithChecksumAsset(name string) FetcherOption {
	return func(f *GitHubFetcher) {
		f.checksumAsset = name
	}
}

// NewGitHubFetcher creates a fetcher for nymtech/nym with no client timeout.
func NewGitHubFetcher(opts ...FetcherOption) *GitHubFetcher {
	f := &GitHubFetcher{
		httpClient:    &http.Client{},
		owner:         DefaultOwner,
		repo:          DefaultRepo,
		baseURL:       DefaultAPIURL,
		userAgent:     DefaultUserAgent,
		asset:         DefaultAsset,
		checksumAsset: DefaultChecksumAsset,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Latest fetches the latest stable release. The endpoint normally returns one
// release object; if it returns an array, the newest published non-draft,
// non-prerelease entry wins.
func (f *GitHubFetcher) Latest(ctx context.Context) (*ReleaseInfo, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", f.baseURL, f.owner, f.repo)

	body, err := f.getJSON(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	gr, err := decodeLatest(body)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(reqURL), Err: err}
	}

	return f.toReleaseInfo(gr)
}

// List fetches up to n recent releases, keeping stable ones that carry the
// binary asset, newest first by the version embedded in the tag.
func (f *GitHubFetcher) List(ctx context.Context, n int) ([]ReleaseInfo, error) {
	if n <= 0 {
		n = defaultListCount
	}
	if n > 100 {
		n = 100
	}
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", f.baseURL, f.owner, f.repo, n)

	body, err := f.getJSON(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var raw []githubRelease
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &NetworkError{URL: redactURL(reqURL), Err: fmt.Errorf("decoding releases: %w", err)}
	}

	releases := make([]ReleaseInfo, 0, len(raw))
	for _, gr := range raw {
		if gr.Draft || gr.Prerelease {
			continue
		}
		info, err := f.toReleaseInfo(gr)
		if err != nil {
			continue
		}
		releases = append(releases, *info)
	}

	sortReleasesDesc(releases)
	return releases, nil
}

// getJSON performs a GET and returns the bounded body of a 200 response.
func (f *GitHubFetcher) getJSON(ctx context.Context, reqURL string) ([]byte, error) {
	resp, err := f.doRequest(ctx, reqURL)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(reqURL), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if rlErr := checkRateLimit(resp); rlErr != nil {
		return nil, &NetworkError{URL: redactURL(reqURL), StatusCode: resp.StatusCode, Err: rlErr}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &NetworkError{URL: redactURL(reqURL), StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONResponseBytes))
	if err != nil {
		return nil, &NetworkError{URL: redactURL(reqURL), Err: fmt.Errorf("reading response: %w", err)}
	}
	return body, nil
}

// doRequest creates and executes a GET request with common GitHub API headers.
func (f *GitHubFetcher) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", f.userAgent)

	if f.token != "" && isGitHubHost(req.URL, f.baseURL) {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	return f.httpClient.Do(req)
}

// toReleaseInfo locates the binary, checksum and signature assets.
func (f *GitHubFetcher) toReleaseInfo(gr githubRelease) (*ReleaseInfo, error) {
	info := &ReleaseInfo{
		Tag:         gr.TagName,
		Name:        gr.Name,
		HTMLURL:     gr.HTMLURL,
		Body:        gr.Body,
		PublishedAt: gr.PublishedAt,
		Prerelease:  gr.Prerelease,
		Draft:       gr.Draft,
		AssetName:   f.asset,
	}

	for _, a := range gr.Assets {
		switch a.Name {
		case f.asset:
			info.AssetURL = a.BrowserDownloadURL
		case f.asset + signatureSuffix:
			info.SignatureURL = a.BrowserDownloadURL
		}
		if f.checksumAsset != "" && a.Name == f.checksumAsset {
			info.ChecksumURL = a.BrowserDownloadURL
		}
	}

	if info.AssetURL == "" {
		return nil, &AssetNotFoundError{Tag: gr.TagName, Asset: f.asset}
	}
	return info, nil
}

// decodeLatest accepts either a single release object or an array of releases.
func decodeLatest(body []byte) (githubRelease, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []githubRelease
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return githubRelease{}, fmt.Errorf("decoding releases: %w", err)
		}
		return newestStable(list)
	}

	var gr githubRelease
	if err := json.Unmarshal(trimmed, &gr); err != nil {
		return githubRelease{}, fmt.Errorf("decoding release: %w", err)
	}
	return gr, nil
}

// newestStable picks the latest published non-draft, non-prerelease entry.
// Ties keep the earlier entry.
func newestStable(list []githubRelease) (githubRelease, error) {
	best := -1
	for i, gr := range list {
		if gr.Draft || gr.Prerelease {
			continue
		}
		if best < 0 || gr.PublishedAt.After(list[best].PublishedAt) {
			best = i
		}
	}
	if best < 0 {
		return githubRelease{}, ErrNoStableRelease
	}
	return list[best], nil
}

// tagVersion extracts the version embedded in a tag such as
// "nym-binaries-v2025.13-emmental" ("v2025.13"). Returns "" if there is none.
func tagVersion(tag string) string {
	v := tagVersionRe.FindString(tag)
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

// sortReleasesDesc orders by embedded tag version, then publish date, newest first.
// Tags without a version sort last.
func sortReleasesDesc(releases []ReleaseInfo) {
	slices.SortStableFunc(releases, func(a, b ReleaseInfo) int {
		if c := semver.Compare(tagVersion(b.Tag), tagVersion(a.Tag)); c != 0 {
			return c
		}
		return b.PublishedAt.Compare(a.PublishedAt)
	})
}

// checkRateLimit returns a RateLimitError when X-RateLimit-Remaining is zero.
func checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	rem, err := strconv.Atoi(remaining)
	if err != nil || rem > 0 {
		return nil
	}

	// Best-effort: malformed companion headers default to zero.
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	resetUnix, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return &RateLimitError{
		Limit:     limit,
		Remaining: 0,
		ResetAt:   time.Unix(resetUnix, 0),
	}
}

// isGitHubHost reports whether reqURL targets the configured API host, or
// github.com when the API is api.github.com, so the token is never sent elsewhere.
func isGitHubHost(reqURL *url.URL, baseURL string) bool {
	base, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	if strings.EqualFold(reqURL.Host, base.Host) {
		return true
	}
	return strings.EqualFold(base.Host, "api.github.com") && strings.EqualFold(reqURL.Host, "github.com")
}

// redactURL strips query parameters and fragments for safe inclusion in errors.
func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
