// Package config loads the handbook tool configuration from handbook.yml.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked up in the working directory when no explicit
// config path is given.
const DefaultFileName = "handbook.yml"

// Config is the top-level tool configuration.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	Storage     StorageConfig `yaml:"storage"`
	ImageHost   ImageHost     `yaml:"image_host"`
	Suggestions Suggestions   `yaml:"suggestions"`
	Export      ExportConfig  `yaml:"export"`
}

// ServerConfig configures the preview server.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig selects the durable-storage backend.
type StorageConfig struct {
	Type     string `yaml:"type"`               // "sqlite", "postgres", "file" or "memory"
	Path     string `yaml:"path,omitempty"`     // For sqlite: database file path
	DSN      string `yaml:"dsn,omitempty"`      // For postgres: connection string (or DATABASE_URL env)
	Dir      string `yaml:"dir,omitempty"`      // For file: snapshot directory
	Debounce string `yaml:"debounce,omitempty"` // Write coalescing window (e.g. "500ms")
}

// ImageHost configures the image-upload collaborator.
type ImageHost struct {
	Endpoint string `yaml:"endpoint,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"` // env vars expanded (e.g. $IMAGE_HOST_KEY)
	Timeout  string `yaml:"timeout,omitempty"`
}

// Suggestions configures the accessibility-suggestion collaborator.
type Suggestions struct {
	Endpoint  string `yaml:"endpoint,omitempty"`
	Timeout   string `yaml:"timeout,omitempty"`
	PerMinute int    `yaml:"per_minute,omitempty"`
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	AnswerKey bool `yaml:"answer_key"` // append an answer-key page to paginated exports
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Host: "localhost", Port: 8080},
		Storage: StorageConfig{Type: "sqlite", Path: "./handbook.db", Debounce: "500ms"},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// a malformed file is an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations the backends would otherwise reject
// later with a less helpful message.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "", "sqlite", "postgres", "file", "memory":
	default:
		return fmt.Errorf("config: unknown storage type %q (want sqlite, postgres, file or memory)", c.Storage.Type)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if _, err := c.DebounceInterval(); err != nil {
		return err
	}
	return nil
}

// DebounceInterval parses the storage write-coalescing window.
func (c *Config) DebounceInterval() (time.Duration, error) {
	if c.Storage.Debounce == "" {
		return 500 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Storage.Debounce)
	if err != nil {
		return 0, fmt.Errorf("config: invalid storage debounce %q: %w", c.Storage.Debounce, err)
	}
	return d, nil
}

// ImageHostTimeout parses the upload timeout.
func (c *Config) ImageHostTimeout() time.Duration {
	return parseDurationOr(c.ImageHost.Timeout, 30*time.Second)
}

// SuggestionsTimeout parses the suggestion request timeout.
func (c *Config) SuggestionsTimeout() time.Duration {
	return parseDurationOr(c.Suggestions.Timeout, 15*time.Second)
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
