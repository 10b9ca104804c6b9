package update

import (
	"context"
	"time"

	"github.com/4nozen/NymNodeInstall/internal/types"
)

// ReleaseInfo describes one upstream release and the asset to install from it.
type ReleaseInfo struct {
	Tag          string    `json:"tag" yaml:"tag"`                               // e.g. "nym-binaries-v2025.13-emmental"
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`         // Human-readable release name
	HTMLURL      string    `json:"html_url,omitempty" yaml:"html_url,omitempty"` // Release page
	Body         string    `json:"-" yaml:"-"`                                   // Release notes (markdown)
	PublishedAt  time.Time `json:"published_at" yaml:"published_at"`             // Zero if the index omitted it
	Prerelease   bool      `json:"prerelease" yaml:"prerelease"`
	Draft        bool      `json:"draft" yaml:"draft"`
	AssetName    string    `json:"asset_name" yaml:"asset_name"`                           // Name of the node asset
	AssetURL     string    `json:"asset_url" yaml:"asset_url"`                             // Direct download URL for the node asset
	ChecksumURL  string    `json:"checksum_url,omitempty" yaml:"checksum_url,omitempty"`   // Optional sha256sum-format checksums file
	SignatureURL string    `json:"signature_url,omitempty" yaml:"signature_url,omitempty"` // Optional detached armored signature of the asset
}

// DownloadedBinary is the release asset on local disk, verified and executable.
type DownloadedBinary struct {
	Path    string
	Dir     string // Per-run directory holding Path; removed by Cleanup
	Version BuildVersion
	SHA256  string
}

// Result reports what a workflow run did.
type Result struct {
	State            types.State   `json:"state" yaml:"state"`
	Trail            []types.State `json:"trail" yaml:"trail"`
	BinaryPath       string        `json:"binary_path" yaml:"binary_path"`
	InstalledVersion BuildVersion  `json:"installed_version" yaml:"installed_version"`
	LatestVersion    BuildVersion  `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	ReleaseTag       string        `json:"release_tag,omitempty" yaml:"release_tag,omitempty"`
	ReleaseURL       string        `json:"release_url,omitempty" yaml:"release_url,omitempty"`
	ReleaseNotes     string        `json:"-" yaml:"-"`
	BackupPath       string        `json:"backup_path,omitempty" yaml:"backup_path,omitempty"`
	Changed          bool          `json:"changed" yaml:"changed"`
	Restarted        bool          `json:"restarted" yaml:"restarted"`
	RestartError     string        `json:"restart_error,omitempty" yaml:"restart_error,omitempty"`
	ServiceActive    *bool         `json:"service_active,omitempty" yaml:"service_active,omitempty"`
	ProcessRunning   *bool         `json:"process_running,omitempty" yaml:"process_running,omitempty"`
}

// enter records a state transition.
func (r *Result) enter(s types.State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Locator finds the installed binary.
type Locator interface {
	Locate() (string, error)
}

// VersionReader extracts the build version a binary reports about itself.
type VersionReader interface {
	Read(ctx context.Context, path string) (BuildVersion, error)
}

// ReleaseFetcher queries the upstream release index.
type ReleaseFetcher interface {
	Latest(ctx context.Context) (*ReleaseInfo, error)
}

// Downloader fetches and verifies a release asset into the scratch directory.
type Downloader interface {
	Fetch(ctx context.Context, release *ReleaseInfo) (*DownloadedBinary, error)
}

// Swapper writes binaries at paths that may need elevated privileges.
type Swapper interface {
	// Copy copies src over dst, preserving the source mode.
	Copy(ctx context.Context, src, dst string) error
	// Replace atomically replaces dst with src, leaving dst mode 0755.
	Replace(ctx context.Context, src, dst string) error
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Service controls the managed unit.
type Service interface {
	Restart(ctx context.Context) error
	IsActive(ctx context.Context) (bool, error)
	ProcessRunning(ctx context.Context, name string) (bool, error)
}
