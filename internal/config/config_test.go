package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowbase/kb-uploader/pkg/bytesize"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server_url: http://10.1.2.3:8080
timeout: 45s
refresh_delay: 2s
max_file_size: 50MB
staging_dir: /tmp/staging
log_level: debug
language: zh
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://10.1.2.3:8080", cfg.ServerURL)
	assert.Equal(t, 45*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 2*time.Second, cfg.RefreshDelayDuration())
	assert.Equal(t, int64(50*bytesize.MB), cfg.MaxFileSize.Bytes())
	assert.Equal(t, "/tmp/staging", cfg.StagingDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "zh", cfg.Language)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server_url: http://device.local\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://device.local", cfg.ServerURL)
	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 1*time.Second, cfg.RefreshDelayDuration())
	assert.Equal(t, int64(DefaultMaxFileSize), cfg.MaxFileSize.Bytes())
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLanguage, cfg.Language)
	assert.NotEmpty(t, cfg.StagingDir)
}

func TestLoadNumericFileSize(t *testing.T) {
	path := writeConfig(t, "max_file_size: 1048576\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(1048576), cfg.MaxFileSize.Bytes())
}

func TestLoadExpandsStagingDirHome(t *testing.T) {
	path := writeConfig(t, "staging_dir: ~/kb-staging\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "kb-staging"), cfg.StagingDir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NotNil(t, cfg)
	assert.Equal(t, DefaultServerURL, cfg.ServerURL)

	path := writeConfig(t, "server_url: http://10.9.9.9\n")
	cfg = LoadOrDefault(path)
	assert.Equal(t, "http://10.9.9.9", cfg.ServerURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing server url",
			mutate:  func(c *Config) { c.ServerURL = "" },
			wantErr: "server_url",
		},
		{
			name:    "server url without scheme",
			mutate:  func(c *Config) { c.ServerURL = "device.local:8080" },
			wantErr: "server_url",
		},
		{
			name:    "server url with bad scheme",
			mutate:  func(c *Config) { c.ServerURL = "ftp://device.local" },
			wantErr: "http or https",
		},
		{
			name:    "bad timeout",
			mutate:  func(c *Config) { c.Timeout = "soon" },
			wantErr: "timeout",
		},
		{
			name:    "bad refresh delay",
			mutate:  func(c *Config) { c.RefreshDelay = "later" },
			wantErr: "refresh_delay",
		},
		{
			name:    "negative file size",
			mutate:  func(c *Config) { c.MaxFileSize = -1 },
			wantErr: "max_file_size",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "shouting" },
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := Default()
	cfg.Timeout = "garbage"
	cfg.RefreshDelay = "garbage"

	assert.Equal(t, 30*time.Second, cfg.TimeoutDuration())
	assert.Equal(t, 1*time.Second, cfg.RefreshDelayDuration())
}
