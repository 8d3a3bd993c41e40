package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	configDirName  = "stimline"
	configFileName = "config.yaml"
)

// Config is the persistent client configuration. Environment variables
// (STIMLINE_*) override file values; a .env file, if present, is loaded
// before this by the entrypoint.
type Config struct {
	BackendURL string `yaml:"backend_url"`
	GatewayURL string `yaml:"gateway_url,omitempty"`
	Token      string `yaml:"token,omitempty"`
	UserID     string `yaml:"user_id,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		BackendURL: "http://localhost:3001/api",
	}
}

func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configDirName, configFileName), nil
}

// LoadConfig reads the config file (missing file yields defaults) and
// applies environment overrides.
func LoadConfig() (Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadConfigFromFile(path)
}

func LoadConfigFromFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return DefaultConfig(), err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("STIMLINE_BACKEND_URL")); v != "" {
		cfg.BackendURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STIMLINE_GATEWAY_URL")); v != "" {
		cfg.GatewayURL = v
	}
	if v := strings.TrimSpace(os.Getenv("STIMLINE_TOKEN")); v != "" {
		cfg.Token = v
	}
	if v := strings.TrimSpace(os.Getenv("STIMLINE_USER_ID")); v != "" {
		cfg.UserID = v
	}
}

// SaveConfig writes the config file, creating the directory when needed.
// Tokens go in with 0600 since the file holds a credential.
func SaveConfig(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveConfigToFile(path, cfg)
}

func SaveConfigToFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
