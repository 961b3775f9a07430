// Package config loads and saves the CLI configuration file.
package config

import (
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Config holds the CLI configuration
type Config struct {
	Server   string `yaml:"server"`
	APIKey   string `yaml:"api_key"`
	DeviceID string `yaml:"device_id"`
	// CursorSessionToken authenticates against the Cursor usage export API.
	CursorSessionToken string `yaml:"cursor_session_token,omitempty"`
	// Sources limits which tools are read; empty means all of them.
	Sources []string `yaml:"sources,omitempty"`
}

// configPath returns the path to the config file
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".tokscale.yaml"), nil
}

// Load loads the configuration from disk. A missing file yields an
// empty config, not an error.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save saves the configuration to disk, assigning a device ID on first
// save. The device ID scopes this machine's submissions on the server.
func Save(cfg *Config) error {
	if cfg.DeviceID == "" {
		cfg.DeviceID = uuid.NewString()
	}

	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
