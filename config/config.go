// Package config provides configuration loading and management for songbook.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/songbook/format"
	"github.com/c360studio/songbook/source"
)

// Config represents the complete songbook configuration
type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`

	// Normalize runs songs through normalization before writing (default: true)
	Normalize *bool `yaml:"normalize,omitempty"`
	// Workers bounds parallel parsing (0 = number of CPUs)
	Workers int `yaml:"workers"`

	Watch   WatchConfig   `yaml:"watch"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// InputConfig configures how songs are read
type InputConfig struct {
	// Format is the input format name (default: "default")
	Format string `yaml:"format"`
	// Encoding is the character encoding of input files (default: utf8)
	Encoding string `yaml:"encoding"`
	// Params are passed to the input format
	Params format.Params `yaml:"params,omitempty"`
	// Extensions limits directory and pattern inputs (empty = all files)
	Extensions []string `yaml:"extensions,omitempty"`
	// Recursive descends into subdirectories of directory inputs
	Recursive bool `yaml:"recursive"`
}

// OutputConfig configures how songs are written
type OutputConfig struct {
	// Format is the output format name (default: "default")
	Format string `yaml:"format"`
	// Params are passed to the output format
	Params format.Params `yaml:"params,omitempty"`
}

// WatchConfig configures watch mode
type WatchConfig struct {
	// Debounce is how long changes are collected before a rebuild
	Debounce time.Duration `yaml:"debounce"`
}

// FetchConfig configures fetching songs from URLs
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	// MaxSize is the largest accepted response body in bytes
	MaxSize int64 `yaml:"max_size"`
}

// MetricsConfig configures the Prometheus endpoint of watch mode
type MetricsConfig struct {
	// Addr is the listen address of /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	normalize := true
	return &Config{
		Input: InputConfig{
			Format:   format.DefaultName,
			Encoding: "utf8",
		},
		Output: OutputConfig{
			Format: format.DefaultName,
		},
		Normalize: &normalize,
		Watch: WatchConfig{
			Debounce: source.DefaultDebounce,
		},
		Fetch: FetchConfig{
			Timeout:   source.DefaultFetchTimeout,
			UserAgent: source.DefaultUserAgent,
			MaxSize:   source.DefaultMaxSize,
		},
	}
}

// NormalizeEnabled reports whether songs are normalized before writing.
func (c *Config) NormalizeEnabled() bool {
	return c.Normalize == nil || *c.Normalize
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	info, ok := format.DefaultRegistry.Lookup(c.Input.Format)
	if !ok {
		return fmt.Errorf("input.format: %w %q", format.ErrUnknownFormat, c.Input.Format)
	}
	if !info.CanRead {
		return fmt.Errorf("input.format %s: %w", c.Input.Format, format.ErrCannotRead)
	}
	info, ok = format.DefaultRegistry.Lookup(c.Output.Format)
	if !ok {
		return fmt.Errorf("output.format: %w %q", format.ErrUnknownFormat, c.Output.Format)
	}
	if !info.CanWrite {
		return fmt.Errorf("output.format %s: %w", c.Output.Format, format.ErrCannotWrite)
	}
	if _, err := source.LookupEncoding(c.Input.Encoding); err != nil {
		return fmt.Errorf("input.encoding: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must not be negative")
	}
	if c.Fetch.MaxSize < 0 {
		return fmt.Errorf("fetch.max_size must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. Settings missing from
// the file keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	fileConfig, err := readFile(path)
	if err != nil {
		return nil, err
	}
	config := DefaultConfig()
	config.Merge(fileConfig)
	return config, nil
}

// readFile reads only the settings present in a YAML file, so that layers
// can be merged without defaults overriding earlier layers.
func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Input
	if other.Input.Format != "" {
		c.Input.Format = other.Input.Format
	}
	if other.Input.Encoding != "" {
		c.Input.Encoding = other.Input.Encoding
	}
	if len(other.Input.Params) > 0 {
		c.Input.Params = c.Input.Params.Merge(other.Input.Params)
	}
	if len(other.Input.Extensions) > 0 {
		c.Input.Extensions = other.Input.Extensions
	}
	if other.Input.Recursive {
		c.Input.Recursive = true
	}

	// Output
	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if len(other.Output.Params) > 0 {
		c.Output.Params = c.Output.Params.Merge(other.Output.Params)
	}

	if other.Normalize != nil {
		normalize := *other.Normalize
		c.Normalize = &normalize
	}
	if other.Workers != 0 {
		c.Workers = other.Workers
	}

	// Watch
	if other.Watch.Debounce != 0 {
		c.Watch.Debounce = other.Watch.Debounce
	}

	// Fetch
	if other.Fetch.Timeout != 0 {
		c.Fetch.Timeout = other.Fetch.Timeout
	}
	if other.Fetch.UserAgent != "" {
		c.Fetch.UserAgent = other.Fetch.UserAgent
	}
	if other.Fetch.MaxSize != 0 {
		c.Fetch.MaxSize = other.Fetch.MaxSize
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
