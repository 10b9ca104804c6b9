package update

import (
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultBinaryName is the managed binary.
const DefaultBinaryName = "nym-node"

// PathLocator finds a binary on PATH, then in a fallback directory.
type PathLocator struct {
	name        string
	fallbackDir string
	lookPath    func(string) (string, error)
}

// NewPathLocator creates a locator for name. An empty fallbackDir means ~/.nym/bin.
func NewPathLocator(name, fallbackDir string) *PathLocator {
	if name == "" {
		name = DefaultBinaryName
	}
	if fallbackDir == "" {
		fallbackDir = DefaultFallbackDir()
	}
	return &PathLocator{
		name:        name,
		fallbackDir: fallbackDir,
		lookPath:    exec.LookPath,
	}
}

// DefaultFallbackDir returns ~/.nym/bin, or "" if the home directory is unknown.
func DefaultFallbackDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".nym", "bin")
}

// Locate returns the absolute path of the first executable match with
// symlinks resolved, so replacing it updates the file the link points to.
func (l *PathLocator) Locate() (string, error) {
	searched := []string{"$PATH"}

	if p, err := l.lookPath(l.name); err == nil {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		return resolve(p), nil
	}

	if l.fallbackDir != "" {
		candidate := filepath.Join(l.fallbackDir, l.name)
		searched = append(searched, candidate)
		if isExecutable(candidate) {
			return resolve(candidate), nil
		}
	}

	return "", &NotFoundError{Name: l.name, Searched: searched}
}

// resolve follows symlinks in path, returning path unchanged if that fails.
func resolve(path string) string {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real
	}
	return path
}

// isExecutable reports whether path is a regular file with any exec bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0111 != 0
}
