// Package config loads the goforma CLI configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	goforma "github.com/reoring/goforma"
)

// Environment variables overriding the file.
const (
	EnvLang     = "GOFORMA_LANG"
	EnvScopes   = "GOFORMA_SCOPES"
	EnvMaxDepth = "GOFORMA_MAX_DEPTH"
)

// Config holds CLI settings.
type Config struct {
	Lang      string   `yaml:"lang"`     // en, ja
	MaxDepth  int      `yaml:"maxDepth"` // model recursion limit
	Scopes    []string `yaml:"scopes"`
	LogLevel  string   `yaml:"logLevel"` // debug, info, warn, error
	Strip     []any    `yaml:"strip"`    // sentinel values removed by format
	ModelsDir string   `yaml:"models"`   // directory of named models
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Lang:     "en",
		MaxDepth: goforma.DefaultMaxDepth,
		LogLevel: "info",
	}
}

// Load reads the YAML file at path and applies environment overrides. An
// empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnvOverrides() error {
	if lang := os.Getenv(EnvLang); lang != "" {
		c.Lang = lang
	}
	if scopes := os.Getenv(EnvScopes); scopes != "" {
		c.Scopes = SplitList(scopes)
	}
	if depth := os.Getenv(EnvMaxDepth); depth != "" {
		n, err := strconv.Atoi(depth)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxDepth, err)
		}
		c.MaxDepth = n
	}
	return nil
}

var validLangs = []string{"en", "ja"}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !lo.Contains(validLangs, c.Lang) {
		return fmt.Errorf("invalid lang: %s (valid: %v)", c.Lang, validLangs)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("invalid maxDepth: %d", c.MaxDepth)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	parts := lo.Map(strings.Split(s, ","), func(p string, _ int) string { return strings.TrimSpace(p) })
	return lo.Compact(parts)
}
