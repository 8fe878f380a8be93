// Package config provides configuration loading and structs for the Inkdex server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the vector storage engine and its database path.
type StorageConfig struct {
	Engine       string `yaml:"engine"` // "sqlite" (default) or "memory"
	DatabasePath string `yaml:"database_path"`
}

// EmbeddingConfig holds embedding provider settings. The API key is never
// placed in the file; APIKeyEnv names the environment variable that holds it.
type EmbeddingConfig struct {
	BaseURL               string `yaml:"base_url"`
	Model                 string `yaml:"model"`
	APIKeyEnv             string `yaml:"api_key_env"`
	Dimensions            int    `yaml:"dimensions"`
	MaxContentLength      int    `yaml:"max_content_length"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	CacheSize             int    `yaml:"cache_size"`
}

// APIKey resolves the provider API key from the environment.
func (e *EmbeddingConfig) APIKey() string {
	return os.Getenv(e.APIKeyEnv)
}

// RequestTimeout returns the provider request timeout as a duration.
func (e *EmbeddingConfig) RequestTimeout() time.Duration {
	return time.Duration(e.RequestTimeoutSeconds) * time.Second
}

// SearchConfig holds result limit and candidate retrieval settings.
type SearchConfig struct {
	DefaultLimit    int `yaml:"default_limit"`
	MaxLimit        int `yaml:"max_limit"`
	OverfetchFactor int `yaml:"overfetch_factor"`
}

// WatchConfig holds drop-folder watch settings. When Directory is empty the
// watcher is disabled.
type WatchConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
	ProjectID  string   `yaml:"project_id"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	if cfg.Watch.Directory != "" {
		cfg.Watch.Directory = expandPath(cfg.Watch.Directory, configDir)
	}

	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
