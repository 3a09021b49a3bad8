package config

import (
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/boostgo/treediff"
	"github.com/boostgo/treediff/internal/logging"
)

// DefaultPath is the config file looked up in the working directory
const DefaultPath = ".treediff.yaml"

// Color modes
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config represents treediff configuration options
type Config struct {
	// Ignore lists entry names skipped at every level of a comparison
	Ignore []string `yaml:"ignore"`

	// IgnorePatterns lists doublestar globs matched against entry names
	IgnorePatterns []string `yaml:"ignore_patterns"`

	// Wildcard is the fuzzy match marker in expected files
	Wildcard string `yaml:"wildcard"`

	// Encoding is used to decode text files (utf-8, windows-1252, ...)
	Encoding string `yaml:"encoding"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// OutputDir keeps harness run directories of failing runs
	OutputDir string `yaml:"output_dir"`

	// Color is one of auto, always, never
	Color string `yaml:"color"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Ignore:   []string{".DS_Store"},
		Wildcard: treediff.DefaultWildcard,
		Encoding: treediff.DefaultEncoding,
		LogLevel: "info",
		Color:    ColorAuto,
	}
}

// Load reads configuration from path on top of the defaults.
// A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// Overrides holds CLI flag values; nil fields leave the config untouched
type Overrides struct {
	Ignore         []string
	IgnorePatterns []string
	Wildcard       *string
	Encoding       *string
	LogLevel       *string
	OutputDir      *string
	Color          *string
}

// Merge applies CLI overrides. Ignore names and patterns are appended,
// scalar values replace the configured ones.
func (c *Config) Merge(o Overrides) {
	c.Ignore = append(c.Ignore, o.Ignore...)
	c.IgnorePatterns = append(c.IgnorePatterns, o.IgnorePatterns...)

	if o.Wildcard != nil {
		c.Wildcard = *o.Wildcard
	}
	if o.Encoding != nil {
		c.Encoding = *o.Encoding
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.OutputDir != nil {
		c.OutputDir = *o.OutputDir
	}
	if o.Color != nil {
		c.Color = *o.Color
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("invalid color %q, must be one of: auto, always, never", c.Color)
	}

	for _, pattern := range c.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if _, err := c.Matcher(); err != nil {
		return err
	}

	return nil
}

// Matcher builds the fuzzy matcher described by the config
func (c *Config) Matcher() (*treediff.FuzzyMatcher, error) {
	return treediff.NewFuzzyMatcher(
		treediff.WithWildcard(c.Wildcard),
		treediff.WithEncoding(c.Encoding),
	)
}

// DiffOptions returns the ignore options described by the config
func (c *Config) DiffOptions() []treediff.DiffOption {
	return []treediff.DiffOption{
		treediff.WithIgnore(c.Ignore...),
		treediff.WithIgnorePatterns(c.IgnorePatterns...),
	}
}
