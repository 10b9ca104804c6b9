package update

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultScratchDir holds one run-* directory per download.
	DefaultScratchDir = "/tmp/nym-update"

	// maxSmallAssetBytes bounds checksum and signature downloads.
	maxSmallAssetBytes = 1 << 20
)

// HTTPDownloader downloads release assets into a scratch directory.
type HTTPDownloader struct {
	client     *http.Client
	userAgent  string
	scratchDir string
	verifier   *SignatureVerifier
}

// DownloaderOption configures an HTTPDownloader.
type DownloaderOption func(*HTTPDownloader)

// WithDownloadClient sets the HTTP client used for asset downloads.
func WithDownloadClient(c *http.Client) DownloaderOption {
	return func(d *HTTPDownloader) {
		if c != nil {
			d.client = c
		}
	}
}

// WithScratchDir overrides the scratch directory.
func WithScratchDir(dir string) DownloaderOption {
	return func(d *HTTPDownloader) {
		if dir != "" {
			d.scratchDir = dir
		}
	}
}

// WithSignatureVerifier requires every asset to carry a valid detached signature.
func WithSignatureVerifier(v *SignatureVerifier) DownloaderOption {
	return func(d *HTTPDownloader) {
		d.verifier = v
	}
}

// WithDownloadUserAgent sets the User-Agent header for downloads.
func WithDownloadUserAgent(ua string) DownloaderOption {
	return func(d *HTTPDownloader) {
		if ua != "" {
			d.userAgent = ua
		}
	}
}

// NewHTTPDownloader creates a new HTTP downloader
func NewHTTPDownloader(opts ...DownloaderOption) *HTTPDownloader {
	d := &HTTPDownloader{
		client:     &http.Client{},
		userAgent:  DefaultUserAgent,
		scratchDir: DefaultScratchDir,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ScratchDir returns the directory downloads land in.
func (d *HTTPDownloader) ScratchDir() string {
	return d.scratchDir
}

// Fetch downloads the release asset into a fresh per-run directory under the
// scratch directory, marks it executable and verifies its checksum and
// signature when available. Other files in the scratch directory are left
// alone. The caller removes the run directory with Cleanup.
func (d *HTTPDownloader) Fetch(ctx context.Context, release *ReleaseInfo) (_ *DownloadedBinary, err error) {
	if err := os.MkdirAll(d.scratchDir, 0755); err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	runDir, err := os.MkdirTemp(d.scratchDir, "run-")
	if err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(runDir)
		}
	}()

	dst := filepath.Join(runDir, release.AssetName)
	if err := d.Download(ctx, release.AssetURL, dst); err != nil {
		return nil, err
	}
	if err := os.Chmod(dst, 0755); err != nil {
		return nil, fmt.Errorf("set executable permissions: %w", err)
	}

	sum, err := calculateSHA256(dst)
	if err != nil {
		return nil, err
	}

	if release.ChecksumURL != "" {
		checksums, err := d.downloadChecksums(ctx, release.ChecksumURL)
		if err != nil {
			return nil, err
		}
		expected, ok := checksums[release.AssetName]
		if !ok {
			return nil, &ChecksumError{Filename: release.AssetName, Expected: "<missing entry>", Got: sum}
		}
		if err := d.VerifyChecksum(dst, expected); err != nil {
			return nil, err
		}
	}

	if d.verifier != nil {
		if release.SignatureURL == "" {
			return nil, &SignatureError{Asset: release.AssetName, Err: errors.New("release has no signature asset")}
		}
		sig, err := d.downloadBytes(ctx, release.SignatureURL)
		if err != nil {
			return nil, err
		}
		if err := d.verifier.Verify(dst, sig); err != nil {
			return nil, &SignatureError{Asset: release.AssetName, Err: err}
		}
	}

	return &DownloadedBinary{Path: dst, Dir: runDir, SHA256: sum}, nil
}

// Verify fails if the file at Path no longer hashes to SHA256.
func (b *DownloadedBinary) Verify() error {
	got, err := calculateSHA256(b.Path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, b.SHA256) {
		return fmt.Errorf("%s changed since download: sha256 %s, recorded %s", b.Path, got, b.SHA256)
	}
	return nil
}

// Cleanup removes the per-run directory. It is a no-op when Dir is empty.
func (b *DownloadedBinary) Cleanup() error {
	if b == nil || b.Dir == "" {
		return nil
	}
	return os.RemoveAll(b.Dir)
}

// Download fetches url into dst via a ".tmp" sibling and a rename.
func (d *HTTPDownloader) Download(ctx context.Context, url, dst string) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	tmpPath := dst + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmpPath)
		return &NetworkError{URL: redactURL(url), Err: fmt.Errorf("download interrupted: %w", err)}
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move download into place: %w", err)
	}

	return nil
}

// VerifyChecksum verifies the file's SHA256 against the expected hex digest.
func (d *HTTPDownloader) VerifyChecksum(file, checksum string) error {
	got, err := calculateSHA256(file)
	if err != nil {
		return err
	}

	if !strings.EqualFold(got, checksum) {
		return &ChecksumError{
			Filename: filepath.Base(file),
			Expected: strings.ToLower(checksum),
			Got:      got,
		}
	}
	return nil
}

// downloadChecksums fetches a sha256sum-format file and maps filename to digest.
func (d *HTTPDownloader) downloadChecksums(ctx context.Context, url string) (map[string]string, error) {
	body, err := d.downloadBytes(ctx, url)
	if err != nil {
		return nil, err
	}

	checksums := parseChecksums(bytes.NewReader(body))
	if len(checksums) == 0 {
		return nil, &NetworkError{URL: redactURL(url), Err: errors.New("no valid checksum entries found")}
	}
	return checksums, nil
}

// downloadBytes fetches a small asset into memory.
func (d *HTTPDownloader) downloadBytes(ctx context.Context, url string) ([]byte, error) {
	resp, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSmallAssetBytes))
	if err != nil {
		return nil, &NetworkError{URL: redactURL(url), Err: err}
	}
	return body, nil
}

// get issues a GET and returns the response of a 200, or a NetworkError.
func (d *HTTPDownloader) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(url), Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: redactURL(url), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &NetworkError{URL: redactURL(url), StatusCode: resp.StatusCode}
	}
	return resp, nil
}

// parseChecksums reads "<sha256>  <filename>" lines. The filename may carry the
// binary-mode '*' marker. Malformed lines are skipped.
func parseChecksums(r io.Reader) map[string]string {
	checksums := make(map[string]string)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) != 2 || !isValidHexHash(fields[0]) {
			continue
		}
		name := strings.TrimPrefix(fields[1], "*")
		checksums[name] = strings.ToLower(fields[0])
	}
	return checksums
}

// isValidHexHash checks if s is a valid 64-character hex-encoded SHA256 hash.
func isValidHexHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// calculateSHA256 returns the lowercase hex SHA256 of the file at path.
func calculateSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for hashing: %w", err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing file %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
