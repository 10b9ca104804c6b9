package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/4nozen/NymNodeInstall/internal/types"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

// ValidationError represents a single invalid config field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every invalid field found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("validation errors:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks every field of c. It returns ValidationErrors or nil.
func Validate(c *Config) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	// binary
	switch {
	case c.Binary.Name == "":
		add("binary.name", "name is required")
	case strings.ContainsRune(c.Binary.Name, '/'):
		add("binary.name", "must be a file name, not a path")
	}
	if c.Binary.VersionFlag == "" {
		add("binary.version_flag", "version_flag is required")
	}
	if strings.TrimSpace(c.Binary.VersionField) == "" {
		add("binary.version_field", "version_field is required")
	}
	if c.Binary.VersionTimeout <= 0 {
		add("binary.version_timeout", "must be positive")
	}

	// release
	if c.Release.Owner == "" {
		add("release.owner", "owner is required")
	}
	if c.Release.Repo == "" {
		add("release.repo", "repo is required")
	}
	if c.Release.Asset == "" {
		add("release.asset", "asset is required")
	}
	if msg := checkURL(c.Release.APIURL); msg != "" {
		add("release.api_url", msg)
	}
	if c.Release.Timeout < 0 {
		add("release.timeout", "must not be negative")
	}
	if c.Release.Keyring != "" {
		if _, err := os.Stat(c.Release.Keyring); err != nil {
			add("release.keyring", fmt.Sprintf("keyring not readable: %s", c.Release.Keyring))
		}
	}

	// paths
	switch dir := c.Paths.ScratchDir; {
	case dir == "":
		add("paths.scratch_dir", "scratch_dir is required")
	case !filepath.IsAbs(dir):
		add("paths.scratch_dir", "must be an absolute path")
	case isSystemDir(dir):
		add("paths.scratch_dir", fmt.Sprintf("refusing to use %s as a scratch directory", dir))
	default:
		if owner := scratchConflict(c, dir); owner != "" {
			add("paths.scratch_dir", fmt.Sprintf("must not be the %s (%s)", owner, dir))
		}
	}
	switch s := c.Paths.BackupSuffix; {
	case s == "":
		add("paths.backup_suffix", "backup_suffix is required")
	case strings.ContainsRune(s, '/'):
		add("paths.backup_suffix", "must not contain '/'")
	}
	if c.Paths.LockDir == "" {
		add("paths.lock_dir", "lock_dir is required")
	}

	// service
	if c.Service.Unit == "" {
		add("service.unit", "unit is required")
	}

	// swap
	if _, err := types.ParseSwapMode(c.Swap.Mode); err != nil {
		add("swap.mode", err.Error())
	}

	// install
	if !filepath.IsAbs(c.Install.Path) {
		add("install.path", "must be an absolute path")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func checkURL(raw string) string {
	if raw == "" {
		return "api_url is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Sprintf("invalid URL: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "scheme must be http or https"
	}
	if u.Host == "" {
		return "host is required"
	}
	return ""
}

// isSystemDir reports whether dir is the root, a top-level directory or a
// standard binary directory.
func isSystemDir(dir string) bool {
	switch filepath.Clean(dir) {
	case "/", "/tmp", "/usr", "/etc", "/var", "/home", "/root", "/bin", "/sbin", "/lib", "/opt", "/boot",
		"/usr/bin", "/usr/sbin", "/usr/local", "/usr/local/bin", "/usr/local/sbin":
		return true
	}
	return false
}

// scratchConflict names the directory dir collides with: the home directory,
// the install directory or the fallback binary directory. It returns "" if
// there is no collision.
func scratchConflict(c *Config, dir string) string {
	dir = filepath.Clean(dir)
	if home, err := os.UserHomeDir(); err == nil && home != "" && filepath.Clean(home) == dir {
		return "home directory"
	}
	if c.Install.Path != "" && filepath.Dir(c.Install.Path) == dir {
		return "install directory"
	}
	fallback := c.Binary.FallbackDir
	if fallback == "" {
		fallback = update.DefaultFallbackDir()
	}
	if fallback != "" && filepath.Clean(fallback) == dir {
		return "fallback binary directory"
	}
	return ""
}
