package update

import (
	"context"
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	p := Detect(context.Background())

	if p.OS != runtime.GOOS {
		t.Errorf("OS mismatch: got %s, want %s", p.OS, runtime.GOOS)
	}

	if p.Arch != runtime.GOARCH {
		t.Errorf("Arch mismatch: got %s, want %s", p.Arch, runtime.GOARCH)
	}
}

func TestPlatformIsSupported(t *testing.T) {
	tests := []struct {
		name string
		p    Platform
		want bool
	}{
		{"linux amd64", Platform{OS: "linux", Arch: "amd64"}, true},
		{"linux arm64", Platform{OS: "linux", Arch: "arm64"}, false},
		{"darwin arm64", Platform{OS: "darwin", Arch: "arm64"}, false},
		{"windows amd64", Platform{OS: "windows", Arch: "amd64"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.IsSupported(); got != tt.want {
				t.Errorf("IsSupported() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlatformHasApt(t *testing.T) {
	if !(Platform{DistroFamily: "debian"}).HasApt() {
		t.Error("debian family should have apt")
	}
	if (Platform{DistroFamily: "rhel"}).HasApt() {
		t.Error("rhel family should not have apt")
	}
}

func TestPlatformString(t *testing.T) {
	tests := []struct {
		p    Platform
		want string
	}{
		{Platform{OS: "linux", Arch: "amd64"}, "linux/amd64"},
		{Platform{OS: "linux", Arch: "amd64", Distro: "ubuntu", DistroVersion: "24.04"}, "linux/amd64 (ubuntu 24.04)"},
	}

	for _, tt := range tests {
		if got := tt.p.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
