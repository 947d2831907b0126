package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from file, environment, and defaults.
// Environment variables use the COMPRESSOR_ prefix with dashes replaced by
// underscores (e.g. COMPRESSOR_BACKEND_BASE_URL).
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	setupViper()

	if configPath == "" {
		configPath = viper.GetString("config")
	}

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if found, path, err := findConfigFile(cfg); err != nil {
		return nil, err
	} else if found {
		if err := loadConfigFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Environment overrides on top of file values. Only keys with a set
	// environment variable carry a value here, so file and default values
	// survive untouched.
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := ensureDataDir(cfg); err != nil {
		return nil, err
	}

	if cfg.Backend == nil {
		cfg.Backend = DefaultBackendConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a specific file, skipping environment
// overrides.
func loadFromFile(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := ensureDataDir(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// envKeys lists every configuration key that may be overridden from the
// environment. Each one has to be bound explicitly: AutomaticEnv alone does
// not make unregistered keys visible to Unmarshal.
var envKeys = []string{
	"data-dir",
	"backend.binary-path",
	"backend.base-url",
	"backend.health-path",
	"backend.probe-attempts",
	"backend.probe-timeout",
	"backend.probe-interval",
	"backend.stop-grace-period",
	"logging.level",
	"logging.enable-file",
	"logging.enable-console",
	"logging.filename",
	"logging.log-dir",
}

// setupViper configures viper with environment variable handling.
func setupViper() {
	viper.SetEnvPrefix("COMPRESSOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	for _, key := range envKeys {
		_ = viper.BindEnv(key) // errors only on an empty key
	}
}

// loadConfigFile loads and merges a JSON config file into cfg.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile looks for the config file in the data directory.
func findConfigFile(cfg *Config) (found bool, path string, err error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return false, "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, DefaultDataDir)
	}

	candidate := filepath.Join(dataDir, ConfigFileName)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return true, candidate, nil
	}

	return false, "", nil
}

// ensureDataDir fills in and creates the data directory.
func ensureDataDir(cfg *Config) error {
	if cfg.DataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(homeDir, DefaultDataDir)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	return nil
}
