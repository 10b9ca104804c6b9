package update

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func releaseJSON(tag, published string, draft, prerelease bool, assets ...string) string {
	var parts []string
	for _, a := range assets {
		parts = append(parts, fmt.Sprintf(`{"name":%q,"browser_download_url":"https://example.test/dl/%s/%s"}`, a, tag, a))
	}
	pub := "null"
	if published != "" {
		pub = fmt.Sprintf("%q", published)
	}
	return fmt.Sprintf(`{"tag_name":%q,"name":%q,"body":"notes for %s","html_url":"https://example.test/r/%s","draft":%t,"prerelease":%t,"published_at":%s,"assets":[%s]}`,
		tag, tag, tag, tag, draft, prerelease, pub, strings.Join(parts, ","))
}

func newReleaseServer(t *testing.T, path, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestGitHubFetcher_LatestObject(t *testing.T) {
	body := releaseJSON("nym-binaries-v2025.13-emmental", "2025-01-20T14:45:00Z", false, false,
		"nym-node", "nym-node.asc", "checksums.txt", "nym-cli")
	srv, _ := newReleaseServer(t, "/repos/nymtech/nym/releases/latest", body)

	f := NewGitHubFetcher(WithBaseURL(srv.URL))
	rel, err := f.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}

	if rel.Tag != "nym-binaries-v2025.13-emmental" {
		t.Errorf("Tag = %s", rel.Tag)
	}
	if rel.AssetURL != "https://example.test/dl/nym-binaries-v2025.13-emmental/nym-node" {
		t.Errorf("AssetURL = %s", rel.AssetURL)
	}
	if rel.SignatureURL == "" {
		t.Error("SignatureURL should be discovered")
	}
	if rel.ChecksumURL == "" {
		t.Error("ChecksumURL should be discovered")
	}
	if rel.Body != "notes for nym-binaries-v2025.13-emmental" {
		t.Errorf("Body = %q", rel.Body)
	}
	if want := time.Date(2025, 1, 20, 14, 45, 0, 0, time.UTC); !rel.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", rel.PublishedAt, want)
	}
}

func TestGitHubFetcher_LatestArrayPicksNewestStable(t *testing.T) {
	body := "[" + strings.Join([]string{
		releaseJSON("old", "2025-01-01T00:00:00Z", false, false, "nym-node"),
		releaseJSON("draft", "", true, false, "nym-node"),
		releaseJSON("rc", "2025-03-01T00:00:00Z", false, true, "nym-node"),
		releaseJSON("newest", "2025-02-01T00:00:00Z", false, false, "nym-node"),
		releaseJSON("middle", "2025-01-15T00:00:00Z", false, false, "nym-node"),
	}, ",") + "]"
	srv, _ := newReleaseServer(t, "/repos/nymtech/nym/releases/latest", body)

	rel, err := NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if rel.Tag != "newest" {
		t.Errorf("Tag = %s, want newest", rel.Tag)
	}
}

func TestGitHubFetcher_LatestArrayNoStable(t *testing.T) {
	body := "[" + releaseJSON("rc", "2025-03-01T00:00:00Z", false, true, "nym-node") + "]"
	srv, _ := newReleaseServer(t, "/repos/nymtech/nym/releases/latest", body)

	_, err := NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Latest() error = %v, want *NetworkError", err)
	}
	if !errors.Is(err, ErrNoStableRelease) {
		t.Errorf("Latest() error = %v, want ErrNoStableRelease", err)
	}
}

func TestGitHubFetcher_AssetNotFound(t *testing.T) {
	body := releaseJSON("nym-binaries-v2025.13-emmental", "2025-01-20T14:45:00Z", false, false,
		"nym-node-linux", "nym-cli")
	srv, _ := newReleaseServer(t, "/repos/nymtech/nym/releases/latest", body)

	_, err := NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
	var ae *AssetNotFoundError
	if !errors.As(err, &ae) {
		t.Fatalf("Latest() error = %v, want *AssetNotFoundError", err)
	}
	if ae.Asset != "nym-node" {
		t.Errorf("AssetNotFoundError.Asset = %s", ae.Asset)
	}
}

func TestGitHubFetcher_NetworkErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			status: http.StatusNotFound,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
			var ne *NetworkError
			if !errors.As(err, &ne) {
				t.Fatalf("Latest() error = %v, want *NetworkError", err)
			}
			if ne.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", ne.StatusCode, tt.status)
			}
		})
	}
}

func TestGitHubFetcher_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewGitHubFetcher(WithBaseURL(base)).Latest(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("Latest() error = %v, want *NetworkError", err)
	}
}

func TestGitHubFetcher_SingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _ = NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
	if got := hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1 (no retry)", got)
	}
}

func TestGitHubFetcher_RateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "60")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1737380000")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewGitHubFetcher(WithBaseURL(srv.URL)).Latest(context.Background())
	var rl *RateLimitError
	if !errors.As(err, &rl) {
		t.Fatalf("Latest() error = %v, want *RateLimitError", err)
	}
	if rl.Limit != 60 {
		t.Errorf("Limit = %d, want 60", rl.Limit)
	}
}

func TestGitHubFetcher_Headers(t *testing.T) {
	var gotUA, gotAuth, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(releaseJSON("t", "2025-01-01T00:00:00Z", false, false, "nym-node")))
	}))
	defer srv.Close()

	f := NewGitHubFetcher(WithBaseURL(srv.URL), WithToken("secret"))
	if _, err := f.Latest(context.Background()); err != nil {
		t.Fatalf("Latest() error = %v", err)
	}

	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q, want %q", gotUA, DefaultUserAgent)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotAccept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestGitHubFetcher_CustomRepoAndAsset(t *testing.T) {
	body := releaseJSON("v1", "2025-01-01T00:00:00Z", false, false, "custom-node", "SHA256SUMS")
	srv, _ := newReleaseServer(t, "/repos/acme/fork/releases/latest", body)

	f := NewGitHubFetcher(
		WithBaseURL(srv.URL+"/"),
		WithRepo("acme", "fork"),
		WithAsset("custom-node"),
		WithChecksumAsset("SHA256SUMS"),
	)
	rel, err := f.Latest(context.Background())
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if rel.AssetName != "custom-node" || rel.ChecksumURL == "" {
		t.Errorf("release = %+v", rel)
	}
}

func TestGitHubFetcher_List(t *testing.T) {
	body := "[" + strings.Join([]string{
		releaseJSON("nym-binaries-v2025.9-ricotta", "2025-05-01T00:00:00Z", false, false, "nym-node"),
		releaseJSON("nym-binaries-v2025.13-emmental", "2025-08-01T00:00:00Z", false, false, "nym-node"),
		releaseJSON("nym-wallet-v1.2.19", "2025-09-01T00:00:00Z", false, false, "nym-wallet.AppImage"),
		releaseJSON("nym-binaries-v2025.14-rc1", "2025-09-10T00:00:00Z", false, true, "nym-node"),
		releaseJSON("nym-binaries-v2025.10-brie", "2025-06-01T00:00:00Z", false, false, "nym-node"),
		releaseJSON("nightly", "2025-10-01T00:00:00Z", false, false, "nym-node"),
	}, ",") + "]"

	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	releases, err := NewGitHubFetcher(WithBaseURL(srv.URL)).List(context.Background(), 20)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if gotQuery.Get("per_page") != "20" {
		t.Errorf("per_page = %q, want 20", gotQuery.Get("per_page"))
	}

	var tags []string
	for _, r := range releases {
		tags = append(tags, r.Tag)
	}
	want := []string{
		"nym-binaries-v2025.13-emmental",
		"nym-binaries-v2025.10-brie",
		"nym-binaries-v2025.9-ricotta",
		"nightly",
	}
	if strings.Join(tags, " ") != strings.Join(want, " ") {
		t.Errorf("List() tags = %v, want %v", tags, want)
	}
}

func TestGitHubFetcher_ListDefaultCount(t *testing.T) {
	var perPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per_page")
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	releases, err := NewGitHubFetcher(WithBaseURL(srv.URL)).List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(releases) != 0 {
		t.Errorf("List() = %v, want empty", releases)
	}
	if perPage != "10" {
		t.Errorf("per_page = %q, want 10", perPage)
	}
}

func TestTagVersion(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"nym-binaries-v2025.13-emmental", "v2025.13"},
		{"nym-binaries-v1.1.33", "v1.1.33"},
		{"v2.0.0", "v2.0.0"},
		{"nightly", ""},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := tagVersion(tt.tag); got != tt.want {
				t.Errorf("tagVersion(%q) = %q, want %q", tt.tag, got, tt.want)
			}
		})
	}
}

func TestIsGitHubHost(t *testing.T) {
	tests := []struct {
		name    string
		reqURL  string
		baseURL string
		want    bool
	}{
		{"api host", "https://api.github.com/repos/x", "https://api.github.com", true},
		{"github.com downloads", "https://github.com/nymtech/nym/releases/download/x", "https://api.github.com", true},
		{"cdn", "https://objects.githubusercontent.com/x", "https://api.github.com", false},
		{"test server", "http://127.0.0.1:4000/x", "http://127.0.0.1:4000", true},
		{"github.com with custom base", "https://github.com/x", "http://127.0.0.1:4000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.reqURL)
			if err != nil {
				t.Fatal(err)
			}
			if got := isGitHubHost(u, tt.baseURL); got != tt.want {
				t.Errorf("isGitHubHost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://example.test/file?token=abc#frag")
	if got != "https://example.test/file" {
		t.Errorf("redactURL() = %s", got)
	}
}
