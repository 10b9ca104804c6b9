// Package install performs the first installation of the node binary.
package install

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/4nozen/NymNodeInstall/internal/update"
)

// ErrAlreadyInstalled is returned when a node binary is already present.
var ErrAlreadyInstalled = errors.New("nym-node is already installed")

// ErrUnsupportedPlatform is returned when no release asset exists for this host.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Deps wires the installer. Swapper receives the install path.
type Deps struct {
	Locator    update.Locator
	Reader     update.VersionReader
	Fetcher    update.ReleaseFetcher
	Downloader update.Downloader
	Confirmer  update.Confirmer
	Swapper    func(target string) update.Swapper
	Runner     update.CommandRunner
	Logger     *log.Logger

	// Platform reports the host. Defaults to update.Detect.
	Platform func(ctx context.Context) update.Platform
}

// Options tune a single install.
type Options struct {
	Path              string // destination of the binary
	SkipPackageUpdate bool   // skip apt-get update/upgrade
}

// Result reports what an install did.
type Result struct {
	Path            string              `json:"path" yaml:"path"`
	Version         update.BuildVersion `json:"version,omitempty" yaml:"version,omitempty"`
	ReleaseTag      string              `json:"release_tag,omitempty" yaml:"release_tag,omitempty"`
	Platform        string              `json:"platform" yaml:"platform"`
	PackagesUpdated bool                `json:"packages_updated" yaml:"packages_updated"`
	Declined        bool                `json:"declined" yaml:"declined"`
}

func (r *Result) String() string {
	if r.Declined {
		return fmt.Sprintf("Install declined; nothing written to %s.", r.Path)
	}
	return fmt.Sprintf("Installed %s (%s, version %s) at %s.", filepath.Base(r.Path), r.ReleaseTag, r.Version, r.Path)
}

// Installer places the latest release at a fixed path on a host that has none.
type Installer struct {
	deps Deps
	log  *log.Logger
}

// New creates an Installer.
func New(deps Deps) *Installer {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if deps.Runner == nil {
		deps.Runner = &update.DefaultCommandRunner{}
	}
	if deps.Platform == nil {
		deps.Platform = update.Detect
	}
	return &Installer{deps: deps, log: logger}
}

// Install checks the host, optionally refreshes system packages, then
// downloads, verifies and places the binary.
func (i *Installer) Install(ctx context.Context, opts Options) (*Result, error) {
	if !filepath.IsAbs(opts.Path) {
		return nil, fmt.Errorf("install path must be absolute: %q", opts.Path)
	}
	res := &Result{Path: opts.Path}

	existing, err := i.deps.Locator.Locate()
	if err == nil {
		return res, fmt.Errorf("%w at %s; use 'nymnode update' instead", ErrAlreadyInstalled, existing)
	}
	var nf *update.NotFoundError
	if !errors.As(err, &nf) {
		return res, err
	}
	if _, err := os.Stat(opts.Path); err == nil {
		return res, fmt.Errorf("%w at %s", ErrAlreadyInstalled, opts.Path)
	}

	platform := i.deps.Platform(ctx)
	res.Platform = platform.String()
	if !platform.IsSupported() {
		return res, fmt.Errorf("%w: %s (releases ship linux/amd64 only)", ErrUnsupportedPlatform, platform)
	}
	i.log.Debug("platform", "os", platform.OS, "arch", platform.Arch, "distro", platform.Distro)

	ok, err := i.deps.Confirmer.Confirm(fmt.Sprintf("Install nym-node to %s?", opts.Path))
	if err != nil {
		return res, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		res.Declined = true
		i.log.Info("install declined")
		return res, nil
	}

	if !opts.SkipPackageUpdate {
		updated, err := i.updatePackages(ctx, platform)
		if err != nil {
			return res, err
		}
		res.PackagesUpdated = updated
	}

	release, err := i.deps.Fetcher.Latest(ctx)
	if err != nil {
		return res, err
	}
	res.ReleaseTag = release.Tag
	i.log.Info("latest release", "tag", release.Tag)

	downloaded, err := i.deps.Downloader.Fetch(ctx, release)
	if err != nil {
		return res, err
	}
	defer func() { _ = downloaded.Cleanup() }()
	version, err := i.deps.Reader.Read(ctx, downloaded.Path)
	if err != nil {
		return res, err
	}
	i.log.Info("downloaded binary verified", "version", version, "sha256", downloaded.SHA256)

	if dir := filepath.Dir(opts.Path); !isDir(dir) {
		return res, fmt.Errorf("install directory %s does not exist", dir)
	}

	if err := downloaded.Verify(); err != nil {
		return res, fmt.Errorf("installing %s: %w", opts.Path, err)
	}
	i.log.Info("placing binary", "path", opts.Path)
	if err := i.deps.Swapper(opts.Path).Replace(context.WithoutCancel(ctx), downloaded.Path, opts.Path); err != nil {
		return res, fmt.Errorf("installing %s: %w", opts.Path, err)
	}

	got, err := i.deps.Reader.Read(ctx, opts.Path)
	if err != nil {
		return res, err
	}
	if got.Compare(version) != 0 {
		return res, fmt.Errorf("installed binary reports %s, expected %s", got, version)
	}
	res.Version = got
	return res, nil
}

// updatePackages runs apt-get update and upgrade through sudo. Hosts without
// apt are skipped with a warning.
func (i *Installer) updatePackages(ctx context.Context, platform update.Platform) (bool, error) {
	if !platform.HasApt() {
		i.log.Warn("skipping package update: apt is only used on Debian-family hosts", "distro", platform.Distro)
		return false, nil
	}

	steps := [][]string{
		{"apt-get", "update"},
		{"apt-get", "-y", "upgrade"},
	}
	for n, step := range steps {
		i.log.Info(fmt.Sprintf("[%d/%d] sudo %s", n+1, len(steps), strings.Join(step, " ")))
		out, err := i.deps.Runner.Run(ctx, "sudo", step...)
		if err != nil {
			return false, fmt.Errorf("sudo %s: %w: %s", strings.Join(step, " "), err, lastLines(string(out), 5))
		}
	}
	return true, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// lastLines returns at most n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
