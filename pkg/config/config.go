// Package config holds the tunables of the view policy layer and its
// collaborators.
package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sitekit/viewscope/pkg/logger"
)

// Config holds all configuration options for a Views instance
type Config struct {
	// Website assumed when ranking candidates without a website in context
	DefaultWebsiteID int64 `yaml:"default_website_id"`
	// Substring identifying theme modules (e.g. "theme_")
	ThemeMarker string `yaml:"theme_marker"`
	// Key given to the copies kept for other websites when a generic
	// template is deleted. Receives the key and the website id.
	COUKeyFormat string `yaml:"cou_key_format"`
	// Language used when a website has none configured
	DefaultLangCode string `yaml:"default_lang_code"`

	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	// One of trace, debug, info, warn, error
	Level string `yaml:"level"`
	// Log file; stdout when empty
	Path string `yaml:"path"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		DefaultWebsiteID: 1,
		ThemeMarker:      "theme_",
		COUKeyFormat:     "%s [website %d]",
		DefaultLangCode:  "en_US",
		Cache:            CacheConfig{Enabled: true},
		Log:              LogConfig{Level: "info"},
	}
}

// Load reads a YAML file on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes YAML from r on top of the defaults and validates the result.
func Read(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c := NewConfig()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.DefaultWebsiteID < 0 {
		return fmt.Errorf("default_website_id must not be negative, got %d", c.DefaultWebsiteID)
	}
	if c.ThemeMarker == "" {
		return fmt.Errorf("theme_marker is required")
	}
	if !strings.Contains(c.COUKeyFormat, "%s") || !strings.Contains(c.COUKeyFormat, "%d") {
		return fmt.Errorf("cou_key_format must contain %%s and %%d, got %q", c.COUKeyFormat)
	}
	if strings.Count(c.COUKeyFormat, "%") != 2 {
		return fmt.Errorf("cou_key_format must contain exactly two verbs, got %q", c.COUKeyFormat)
	}
	if c.DefaultLangCode == "" {
		return fmt.Errorf("default_lang_code is required")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// COUKey returns the key a website's copy of key is renamed to.
func (c *Config) COUKey(key string, websiteID int64) string {
	return fmt.Sprintf(c.COUKeyFormat, key, websiteID)
}

// NewLogger builds the logger described by the Log section.
func (c *Config) NewLogger() (*logger.LogData, error) {
	level, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return logger.New().FromPath(c.Log.Path).WithLevel(level).Make()
}
