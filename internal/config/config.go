// Package config handles configuration for the uploader: the YAML file
// shared by the CLI and the desktop app, and the Fyne preference store for
// per-user settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/knowbase/kb-uploader/pkg/bytesize"
)

// Default values
const (
	DefaultServerURL    = "http://192.168.4.1:8080"
	DefaultTimeout      = "30s" // Duration string
	DefaultRefreshDelay = "1s"  // Duration string
	DefaultLogLevel     = "info"
	DefaultLanguage     = "system"
)

// DefaultMaxFileSize is the advisory single-file limit the device enforces.
const DefaultMaxFileSize = 100 * bytesize.MB

// Config holds the file-based configuration.
type Config struct {
	ServerURL    string        `yaml:"server_url"`
	Timeout      string        `yaml:"timeout"`       // Duration string, e.g. "30s"
	RefreshDelay string        `yaml:"refresh_delay"` // Duration string, e.g. "1s"
	MaxFileSize  bytesize.Size `yaml:"max_file_size"`
	StagingDir   string        `yaml:"staging_dir"`
	LogLevel     string        `yaml:"log_level"`
	Language     string        `yaml:"language"`
}

// Default returns a configuration with every field at its default.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(homeDir, ".config", "kb-uploader", "config.yaml")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadOrDefault loads the config file at path, falling back to defaults
// when the file does not exist. Used by the desktop app, which must come
// up on first run without any file present.
func LoadOrDefault(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("config file unusable, using defaults")
		}
		return Default()
	}
	return cfg
}

// applyDefaults fills in every unset field
func applyDefaults(cfg *Config) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Timeout == "" {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RefreshDelay == "" {
		cfg.RefreshDelay = DefaultRefreshDelay
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = bytesize.Size(DefaultMaxFileSize)
	}
	if cfg.StagingDir == "" {
		cfg.StagingDir = filepath.Join(os.TempDir(), "kb-uploader")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}

	// Expand home directory in staging dir
	if strings.HasPrefix(cfg.StagingDir, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			cfg.StagingDir = filepath.Join(homeDir, cfg.StagingDir[2:])
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server_url: %s", c.ServerURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server_url must use http or https, got %s", u.Scheme)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.RefreshDelay); err != nil {
		return fmt.Errorf("invalid refresh_delay: %w", err)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("max_file_size must not be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// TimeoutDuration returns the request timeout, falling back to the default
// when the configured string does not parse.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultTimeout)
	}
	return d
}

// RefreshDelayDuration returns the post-upload refresh delay, falling back
// to the default when the configured string does not parse.
func (c *Config) RefreshDelayDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshDelay)
	if err != nil {
		d, _ = time.ParseDuration(DefaultRefreshDelay)
	}
	return d
}
