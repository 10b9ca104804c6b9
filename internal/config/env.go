package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NYMNODE_SERVICE_UNIT.
const EnvPrefix = "NYMNODE"

// envSetter applies one string override to cfg.
type envSetter func(cfg *Config, value string) error

// envKeys maps config keys to their setters. Every key in a config file can
// be overridden from the environment.
var envKeys = map[string]envSetter{
	"binary.name":            setString(func(c *Config) *string { return &c.Binary.Name }),
	"binary.fallback_dir":    setString(func(c *Config) *string { return &c.Binary.FallbackDir }),
	"binary.version_flag":    setString(func(c *Config) *string { return &c.Binary.VersionFlag }),
	"binary.version_field":   setString(func(c *Config) *string { return &c.Binary.VersionField }),
	"binary.version_timeout": setDuration(func(c *Config) *Duration { return &c.Binary.VersionTimeout }),
	"release.owner":          setString(func(c *Config) *string { return &c.Release.Owner }),
	"release.repo":           setString(func(c *Config) *string { return &c.Release.Repo }),
	"release.asset":          setString(func(c *Config) *string { return &c.Release.Asset }),
	"release.api_url":        setString(func(c *Config) *string { return &c.Release.APIURL }),
	"release.token":          setString(func(c *Config) *string { return &c.Release.Token }),
	"release.timeout":        setDuration(func(c *Config) *Duration { return &c.Release.Timeout }),
	"release.checksum_asset": setString(func(c *Config) *string { return &c.Release.ChecksumAsset }),
	"release.keyring":        setString(func(c *Config) *string { return &c.Release.Keyring }),
	"paths.scratch_dir":      setString(func(c *Config) *string { return &c.Paths.ScratchDir }),
	"paths.backup_suffix":    setString(func(c *Config) *string { return &c.Paths.BackupSuffix }),
	"paths.lock_dir":         setString(func(c *Config) *string { return &c.Paths.LockDir }),
	"paths.history_dir":      setString(func(c *Config) *string { return &c.Paths.HistoryDir }),
	"service.unit":           setString(func(c *Config) *string { return &c.Service.Unit }),
	"service.use_sudo":       setBool(func(c *Config) *bool { return &c.Service.UseSudo }),
	"service.restart":        setBool(func(c *Config) *bool { return &c.Service.Restart }),
	"swap.mode":              setString(func(c *Config) *string { return &c.Swap.Mode }),
	"install.path":           setString(func(c *Config) *string { return &c.Install.Path }),
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// applyEnv layers NYMNODE_* environment variables over cfg.
func applyEnv(cfg *Config) error {
	v := viper.New()
	for key := range envKeys {
		if err := v.BindEnv(key, EnvName(key)); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}

	for key, set := range envKeys {
		if !v.IsSet(key) {
			continue
		}
		if err := set(cfg, v.GetString(key)); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

func setString(field func(*Config) *string) envSetter {
	return func(c *Config, value string) error {
		*field(c) = value
		return nil
	}
}

func setBool(field func(*Config) *bool) envSetter {
	return func(c *Config, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean %q", value)
		}
		*field(c) = b
		return nil
	}
}

func setDuration(field func(*Config) *Duration) envSetter {
	return func(c *Config, value string) error {
		var d Duration
		if err := d.UnmarshalText([]byte(value)); err != nil {
			return fmt.Errorf("invalid duration %q", value)
		}
		*field(c) = d
		return nil
	}
}
