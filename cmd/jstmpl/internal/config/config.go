package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"

	"github.com/rainwave/jstmpl/pkg/template"
)

// FileName is the project configuration file looked up by default.
const FileName = "jstmpl.yaml"

// Config represents the jstmpl.yaml configuration
type Config struct {
	// Template sources
	Templates *TemplatesConfig `yaml:"templates,omitempty"`

	// Output bundle path
	Output string `yaml:"output,omitempty"`

	// Generated code options
	Registry string `yaml:"registry,omitempty"`
	IconPath string `yaml:"iconPath,omitempty"`
	SVGTag   string `yaml:"svgTag,omitempty"`

	// Compiled unit cache
	Cache *CacheConfig `yaml:"cache,omitempty"`

	// Development server configuration
	Dev *DevConfig `yaml:"dev,omitempty"`
}

// TemplatesConfig says where templates are read from
type TemplatesConfig struct {
	// Directories searched recursively
	Dirs []string `yaml:"dirs,omitempty"`

	// File extensions treated as templates
	Extensions []string `yaml:"extensions,omitempty"`
}

// CacheConfig contains cache configuration
type CacheConfig struct {
	// Enabled is a pointer so that an explicit false survives defaulting
	Enabled *bool `yaml:"enabled,omitempty"`

	// Cache directory
	Dir string `yaml:"dir,omitempty"`

	// Maximum number of cached units
	MaxEntries int `yaml:"maxEntries,omitempty"`
}

// DevConfig contains development server configuration
type DevConfig struct {
	// Server host
	Host string `yaml:"host,omitempty"`

	// Server port
	Port int `yaml:"port,omitempty"`

	// Optional directory served at /
	Static string `yaml:"static,omitempty"`

	// Quiet period before a rebuild after file changes
	Debounce time.Duration `yaml:"debounce,omitempty"`
}

// Load loads configuration from path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	applyDefaults(&config)
	return &config, nil
}

// Save writes configuration to path atomically
func Save(config *Config, path string) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(config); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return atomic.WriteFile(path, &buf)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	enabled := true
	return &Config{
		Templates: &TemplatesConfig{
			Dirs:       []string{"templates"},
			Extensions: append([]string(nil), template.DefaultExtensions...),
		},
		Output:   "static/js/templates.js",
		Registry: template.DefaultRegistry,
		IconPath: template.DefaultIconPath,
		SVGTag:   template.DefaultSVGTag,
		Cache: &CacheConfig{
			Enabled:    &enabled,
			Dir:        ".jstmpl/cache",
			MaxEntries: 4096,
		},
		Dev: &DevConfig{
			Host:     "localhost",
			Port:     8080,
			Debounce: 100 * time.Millisecond,
		},
	}
}

// applyDefaults applies default values to missing configuration
func applyDefaults(config *Config) {
	defaults := DefaultConfig()

	if config.Templates == nil {
		config.Templates = defaults.Templates
	} else {
		if len(config.Templates.Dirs) == 0 {
			config.Templates.Dirs = defaults.Templates.Dirs
		}
		if len(config.Templates.Extensions) == 0 {
			config.Templates.Extensions = defaults.Templates.Extensions
		}
	}

	if config.Output == "" {
		config.Output = defaults.Output
	}
	if config.Registry == "" {
		config.Registry = defaults.Registry
	}
	if config.IconPath == "" {
		config.IconPath = defaults.IconPath
	}
	if config.SVGTag == "" {
		config.SVGTag = defaults.SVGTag
	}

	if config.Cache == nil {
		config.Cache = defaults.Cache
	} else {
		if config.Cache.Enabled == nil {
			config.Cache.Enabled = defaults.Cache.Enabled
		}
		if config.Cache.Dir == "" {
			config.Cache.Dir = defaults.Cache.Dir
		}
		if config.Cache.MaxEntries == 0 {
			config.Cache.MaxEntries = defaults.Cache.MaxEntries
		}
	}

	if config.Dev == nil {
		config.Dev = defaults.Dev
	} else {
		if config.Dev.Host == "" {
			config.Dev.Host = defaults.Dev.Host
		}
		if config.Dev.Port == 0 {
			config.Dev.Port = defaults.Dev.Port
		}
		if config.Dev.Debounce == 0 {
			config.Dev.Debounce = defaults.Dev.Debounce
		}
	}
}

// Options returns the compile options the configuration selects
func (c *Config) Options() template.Options {
	return template.Options{
		Registry: c.Registry,
		IconPath: c.IconPath,
		SVGTag:   c.SVGTag,
	}
}

// CacheEnabled reports whether compiled units are cached
func (c *Config) CacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled != nil && *c.Cache.Enabled
}

// Addr returns the dev server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Dev.Host, c.Dev.Port)
}
