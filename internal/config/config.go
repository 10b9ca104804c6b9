// Package config handles nymnode configuration files and location resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/4nozen/NymNodeInstall/internal/types"
	"github.com/4nozen/NymNodeInstall/internal/update"
)

// EnvConfigPath names the environment variable that points at a config file.
const EnvConfigPath = "NYMNODE_CONFIG"

// Default values that are not owned by the update package.
const (
	DefaultUnit        = "nym-node.service"
	DefaultInstallPath = "/usr/local/bin/nym-node"
)

// Duration is a time.Duration that reads and writes as "15s", "2m" and so on.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the full nymnode configuration.
type Config struct {
	Binary  BinaryConfig  `yaml:"binary" toml:"binary" json:"binary"`
	Release ReleaseConfig `yaml:"release" toml:"release" json:"release"`
	Paths   PathsConfig   `yaml:"paths" toml:"paths" json:"paths"`
	Service ServiceConfig `yaml:"service" toml:"service" json:"service"`
	Swap    SwapConfig    `yaml:"swap" toml:"swap" json:"swap"`
	Install InstallConfig `yaml:"install" toml:"install" json:"install"`
}

// BinaryConfig describes the installed node binary and how to ask it for its version.
type BinaryConfig struct {
	Name           string   `yaml:"name" toml:"name" json:"name"`
	FallbackDir    string   `yaml:"fallback_dir,omitempty" toml:"fallback_dir,omitempty" json:"fallback_dir,omitempty"` // empty means ~/.nym/bin
	VersionFlag    string   `yaml:"version_flag" toml:"version_flag" json:"version_flag"`
	VersionField   string   `yaml:"version_field" toml:"version_field" json:"version_field"`
	VersionTimeout Duration `yaml:"version_timeout" toml:"version_timeout" json:"version_timeout"`
}

// ReleaseConfig describes where releases are published.
type ReleaseConfig struct {
	Owner         string   `yaml:"owner" toml:"owner" json:"owner"`
	Repo          string   `yaml:"repo" toml:"repo" json:"repo"`
	Asset         string   `yaml:"asset" toml:"asset" json:"asset"`
	APIURL        string   `yaml:"api_url" toml:"api_url" json:"api_url"`
	Token         string   `yaml:"token,omitempty" toml:"token,omitempty" json:"token,omitempty"`
	Timeout       Duration `yaml:"timeout" toml:"timeout" json:"timeout"` // zero means no client timeout
	ChecksumAsset string   `yaml:"checksum_asset" toml:"checksum_asset" json:"checksum_asset"`
	Keyring       string   `yaml:"keyring,omitempty" toml:"keyring,omitempty" json:"keyring,omitempty"`
}

// PathsConfig holds the filesystem locations nymnode writes to.
type PathsConfig struct {
	ScratchDir   string `yaml:"scratch_dir" toml:"scratch_dir" json:"scratch_dir"`
	BackupSuffix string `yaml:"backup_suffix" toml:"backup_suffix" json:"backup_suffix"`
	LockDir      string `yaml:"lock_dir" toml:"lock_dir" json:"lock_dir"`
	HistoryDir   string `yaml:"history_dir,omitempty" toml:"history_dir,omitempty" json:"history_dir,omitempty"`
}

// ServiceConfig controls the systemd restart after a swap.
type ServiceConfig struct {
	Unit    string `yaml:"unit" toml:"unit" json:"unit"`
	UseSudo bool   `yaml:"use_sudo" toml:"use_sudo" json:"use_sudo"`
	Restart bool   `yaml:"restart" toml:"restart" json:"restart"`
}

// SwapConfig selects how the binary is replaced.
type SwapConfig struct {
	Mode string `yaml:"mode" toml:"mode" json:"mode"`
}

// InstallConfig controls first-time installation.
type InstallConfig struct {
	Path string `yaml:"path" toml:"path" json:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Binary: BinaryConfig{
			Name:           update.DefaultBinaryName,
			VersionFlag:    update.DefaultVersionFlag,
			VersionField:   update.DefaultVersionField,
			VersionTimeout: Duration(update.DefaultVersionTimeout),
		},
		Release: ReleaseConfig{
			Owner:         update.DefaultOwner,
			Repo:          update.DefaultRepo,
			Asset:         update.DefaultAsset,
			APIURL:        update.DefaultAPIURL,
			ChecksumAsset: update.DefaultChecksumAsset,
		},
		Paths: PathsConfig{
			ScratchDir:   update.DefaultScratchDir,
			BackupSuffix: update.DefaultBackupSuffix,
			LockDir:      update.DefaultLockDir,
		},
		Service: ServiceConfig{
			Unit:    DefaultUnit,
			UseSudo: true,
			Restart: true,
		},
		Swap:    SwapConfig{Mode: string(types.SwapModeAuto)},
		Install: InstallConfig{Path: DefaultInstallPath},
	}
}

// SwapMode returns the parsed swap mode. Call after Validate.
func (c *Config) SwapMode() types.SwapMode {
	m, err := types.ParseSwapMode(c.Swap.Mode)
	if err != nil {
		return types.SwapModeAuto
	}
	return m
}

var configExtensions = []string{".yaml", ".yml", ".toml", ".json"}

// Find searches for a config file in the standard locations.
// An explicit path or $NYMNODE_CONFIG must exist. When nothing is found in
// the standard locations Find returns "" and no error: defaults apply.
func Find(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("specified config file not found: %s", explicitPath)
		}
		return explicitPath, nil
	}

	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("%s points to a missing file: %s", EnvConfigPath, envPath)
		}
		return envPath, nil
	}

	for _, path := range searchPaths() {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// searchPaths lists candidate files in order of precedence.
func searchPaths() []string {
	home, _ := os.UserHomeDir()

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" && home != "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	var paths []string
	if xdgConfig != "" {
		dir := filepath.Join(xdgConfig, "nymnode")
		for _, base := range []string{"nymnode", "config"} {
			for _, ext := range configExtensions {
				paths = append(paths, filepath.Join(dir, base+ext))
			}
		}
	}
	if home != "" {
		for _, ext := range configExtensions {
			paths = append(paths, filepath.Join(home, ".nym", "nymnode"+ext))
		}
	}
	return paths
}

// Load builds the effective configuration: defaults, then the file at path
// (if path is non-empty), then NYMNODE_* environment overrides, then the
// GITHUB_TOKEN fallback. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		format := detectFormat(path, content)
		if format == FormatUnknown {
			return nil, fmt.Errorf("unable to detect file format for %s", path)
		}

		if err := parse(content, format, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if cfg.Release.Token == "" {
		cfg.Release.Token = os.Getenv("GITHUB_TOKEN")
	}

	if err := Validate(cfg); err != nil {
		var verrs ValidationErrors
		if path != "" && errors.As(err, &verrs) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}
