package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://localhost:5333", cfg.Backend.BaseURL)
	assert.Equal(t, "/api/health", cfg.Backend.HealthPath)
	assert.Equal(t, 40, cfg.Backend.ProbeAttempts)
	assert.Equal(t, 2*time.Second, cfg.Backend.ProbeTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Backend.ProbeInterval)
	assert.Equal(t, 10*time.Second, cfg.Backend.StopGracePeriod)
}

func TestHealthURL(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		path     string
		expected string
	}{
		{"defaults", "http://localhost:5333", "/api/health", "http://localhost:5333/api/health"},
		{"trailing slash on base", "http://localhost:5333/", "/api/health", "http://localhost:5333/api/health"},
		{"missing leading slash", "http://localhost:5333", "api/health", "http://localhost:5333/api/health"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBackendConfig()
			cfg.BaseURL = tt.baseURL
			cfg.HealthPath = tt.path
			assert.Equal(t, tt.expected, cfg.HealthURL())
		})
	}
}

func TestBackendConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BackendConfig)
		wantErr string
	}{
		{"valid", func(*BackendConfig) {}, ""},
		{"bad scheme", func(c *BackendConfig) { c.BaseURL = "ftp://localhost:5333" }, "http or https"},
		{"empty health path", func(c *BackendConfig) { c.HealthPath = "" }, "health path"},
		{"zero attempts", func(c *BackendConfig) { c.ProbeAttempts = 0 }, "attempts must be positive"},
		{"negative timeout", func(c *BackendConfig) { c.ProbeTimeout = -time.Second }, "timeout must be positive"},
		{"negative interval", func(c *BackendConfig) { c.ProbeInterval = -time.Millisecond }, "interval cannot be negative"},
		{"zero grace period", func(c *BackendConfig) { c.StopGracePeriod = 0 }, "grace period"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBackendConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "shell_config.json")

	content := `{
		"data_dir": "` + filepath.ToSlash(dir) + `",
		"backend": {
			"base_url": "http://localhost:9999",
			"health_path": "/healthz",
			"probe_attempts": 5,
			"probe_timeout": 1000000000,
			"probe_interval": 100000000,
			"stop_grace_period": 5000000000
		}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := loadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Backend.BaseURL)
	assert.Equal(t, "http://localhost:9999/healthz", cfg.Backend.HealthURL())
	assert.Equal(t, 5, cfg.Backend.ProbeAttempts)
	assert.Equal(t, time.Second, cfg.Backend.ProbeTimeout)
}

func TestLoadFromFileInvalid(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "shell_config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"backend": {"base_url": ""}}`), 0644))

	_, err := loadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := loadFromFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COMPRESSOR_DATA_DIR", t.TempDir())
	t.Setenv("COMPRESSOR_BACKEND_BASE_URL", "http://localhost:9999")
	t.Setenv("COMPRESSOR_BACKEND_PROBE_ATTEMPTS", "7")
	t.Setenv("COMPRESSOR_BACKEND_PROBE_TIMEOUT", "3s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9999", cfg.Backend.BaseURL)
	assert.Equal(t, 7, cfg.Backend.ProbeAttempts)
	assert.Equal(t, 3*time.Second, cfg.Backend.ProbeTimeout)
	// Keys without an environment variable keep their defaults.
	assert.Equal(t, "/api/health", cfg.Backend.HealthPath)
}

func TestLoadEnvOverridesFileValues(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "shell_config.json")
	content := `{
		"data_dir": "` + filepath.ToSlash(dir) + `",
		"backend": {
			"base_url": "http://localhost:8888",
			"probe_attempts": 9
		}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	t.Setenv("COMPRESSOR_BACKEND_BASE_URL", "http://localhost:9999")

	cfg, err := Load(configPath)
	require.NoError(t, err)

	// Environment beats the file; untouched file values survive.
	assert.Equal(t, "http://localhost:9999", cfg.Backend.BaseURL)
	assert.Equal(t, 9, cfg.Backend.ProbeAttempts)
}
