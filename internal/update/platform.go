package update

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"
)

// Platform describes the host the node binary runs on.
type Platform struct {
	OS            string // Operating system (linux)
	Arch          string // Architecture (amd64)
	Distro        string // e.g. ubuntu, debian; empty if unknown
	DistroFamily  string // e.g. debian, rhel; empty if unknown
	DistroVersion string
	KernelArch    string // uname -m
}

// Detect returns the current platform. Distribution details are filled in
// when the host can report them.
func Detect(ctx context.Context) Platform {
	p := Platform{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	info, err := host.InfoWithContext(ctx)
	if err != nil || info == nil {
		return p
	}
	p.Distro = info.Platform
	p.DistroFamily = info.PlatformFamily
	p.DistroVersion = info.PlatformVersion
	p.KernelArch = info.KernelArch
	return p
}

// IsSupported returns true if upstream publishes a node binary for this platform.
// Releases ship a single linux x86_64 build.
func (p Platform) IsSupported() bool {
	return p.OS == "linux" && p.Arch == "amd64"
}

// HasApt returns true on Debian-family distributions.
func (p Platform) HasApt() bool {
	return p.DistroFamily == "debian"
}

// String renders the platform for logs and errors.
func (p Platform) String() string {
	if p.Distro == "" {
		return fmt.Sprintf("%s/%s", p.OS, p.Arch)
	}
	return fmt.Sprintf("%s/%s (%s %s)", p.OS, p.Arch, p.Distro, p.DistroVersion)
}
