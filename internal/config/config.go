package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultDataDir is the per-user application data directory.
	DefaultDataDir = ".smart-compressor"
	// ConfigFileName is the JSON configuration file looked up in the data dir.
	ConfigFileName = "shell_config.json"

	// SidecarBinaryName is the bundled backend executable name.
	SidecarBinaryName = "smart-compressor-backend"
)

// Config represents the complete shell configuration.
type Config struct {
	DataDir string `json:"data_dir,omitempty" mapstructure:"data-dir"`

	Backend *BackendConfig `json:"backend,omitempty" mapstructure:"backend"`
	Logging *LogConfig     `json:"logging,omitempty" mapstructure:"logging"`
}

// BackendConfig holds settings for the bundled backend sidecar and its
// readiness probe.
type BackendConfig struct {
	// BinaryPath overrides bundled binary resolution when set.
	BinaryPath string `json:"binary_path,omitempty" mapstructure:"binary-path"`

	// BaseURL is where the backend serves HTTP once it is up.
	BaseURL string `json:"base_url" mapstructure:"base-url"`
	// HealthPath is the readiness endpoint, relative to BaseURL.
	HealthPath string `json:"health_path" mapstructure:"health-path"`

	ProbeAttempts int           `json:"probe_attempts" mapstructure:"probe-attempts"`
	ProbeTimeout  time.Duration `json:"probe_timeout" mapstructure:"probe-timeout"`
	ProbeInterval time.Duration `json:"probe_interval" mapstructure:"probe-interval"`

	// StopGracePeriod bounds how long shutdown waits after SIGTERM before
	// force-killing the backend process group.
	StopGracePeriod time.Duration `json:"stop_grace_period" mapstructure:"stop-grace-period"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level         string `json:"level" mapstructure:"level"`
	EnableFile    bool   `json:"enable_file" mapstructure:"enable-file"`
	EnableConsole bool   `json:"enable_console" mapstructure:"enable-console"`
	Filename      string `json:"filename" mapstructure:"filename"`
	LogDir        string `json:"log_dir,omitempty" mapstructure:"log-dir"` // Custom log directory
	MaxSize       int    `json:"max_size" mapstructure:"max-size"`         // MB
	MaxBackups    int    `json:"max_backups" mapstructure:"max-backups"`   // number of backup files
	MaxAge        int    `json:"max_age" mapstructure:"max-age"`           // days
	Compress      bool   `json:"compress" mapstructure:"compress"`
	JSONFormat    bool   `json:"json_format" mapstructure:"json-format"`
}

// DefaultConfig returns the configuration used when no file or overrides are
// present. Probe numbers match the backend's observed startup envelope:
// 40 attempts x (2s timeout + 500ms pause) bounds the wait at ~100s.
func DefaultConfig() *Config {
	return &Config{
		Backend: DefaultBackendConfig(),
		Logging: &LogConfig{
			Level:         "info",
			EnableFile:    false,
			EnableConsole: true,
			Filename:      "shell.log",
			MaxSize:       10,
			MaxBackups:    5,
			MaxAge:        30,
			Compress:      true,
			JSONFormat:    false,
		},
	}
}

// DefaultBackendConfig returns the default sidecar settings.
func DefaultBackendConfig() *BackendConfig {
	return &BackendConfig{
		BaseURL:         "http://localhost:5333",
		HealthPath:      "/api/health",
		ProbeAttempts:   40,
		ProbeTimeout:    2 * time.Second,
		ProbeInterval:   500 * time.Millisecond,
		StopGracePeriod: 10 * time.Second,
	}
}

// HealthURL returns the absolute readiness endpoint URL.
func (c *BackendConfig) HealthURL() string {
	base := strings.TrimSuffix(c.BaseURL, "/")
	path := c.HealthPath
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Backend == nil {
		return fmt.Errorf("backend configuration is required")
	}
	return c.Backend.Validate()
}

// Validate checks the backend configuration for consistency.
func (c *BackendConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid backend base URL %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("backend base URL must be http or https, got %q", c.BaseURL)
	}
	if c.HealthPath == "" {
		return fmt.Errorf("backend health path cannot be empty")
	}
	if c.ProbeAttempts <= 0 {
		return fmt.Errorf("probe attempts must be positive, got %d", c.ProbeAttempts)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %v", c.ProbeTimeout)
	}
	if c.ProbeInterval < 0 {
		return fmt.Errorf("probe interval cannot be negative, got %v", c.ProbeInterval)
	}
	if c.StopGracePeriod <= 0 {
		return fmt.Errorf("stop grace period must be positive, got %v", c.StopGracePeriod)
	}
	return nil
}
