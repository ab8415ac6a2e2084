// Package config loads the applydiff YAML configuration and supports hot
// reload of the tunables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kvit-s/applydiff/internal/patch"
)

type Config struct {
	Log struct {
		Path        string `yaml:"path"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`

	Matcher struct {
		// SimilarityThreshold gates the fuzzy sliding-window strategy.
		SimilarityThreshold float64 `yaml:"similarity_threshold"`
		// MinConfidence is the floor below which fuzzy candidates are
		// discarded entirely.
		MinConfidence float64 `yaml:"min_confidence"`
		// ContextRadius is how many surrounding lines contextual matching
		// weighs when disambiguating duplicates.
		ContextRadius int                    `yaml:"context_radius"`
		Normalize     patch.NormalizeOptions `yaml:"normalize"`
	} `yaml:"matcher"`

	Approval struct {
		// Mode is "console", "tui", or "auto".
		Mode string `yaml:"mode"`
		// AutoApprove is the decision used by auto mode.
		AutoApprove bool `yaml:"auto_approve"`
		// TimeoutSeconds bounds how long console mode waits for an answer
		// before treating silence as rejection. 0 waits indefinitely.
		TimeoutSeconds int `yaml:"timeout_seconds"`
		// DiffStyle is "unified" or "inline".
		DiffStyle string `yaml:"diff_style"`
	} `yaml:"approval"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the config file at path. A missing file is not an error: the
// defaults apply, so the tool works out of the box.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Matcher.SimilarityThreshold == 0 {
		c.Matcher.SimilarityThreshold = 0.7
	}
	if c.Matcher.MinConfidence == 0 {
		c.Matcher.MinConfidence = 0.7
	}
	if c.Matcher.ContextRadius == 0 {
		c.Matcher.ContextRadius = 3
	}
	if !anyNormalizeSet(c.Matcher.Normalize) {
		c.Matcher.Normalize = patch.DefaultNormalizeOptions()
	}
	if c.Approval.Mode == "" {
		c.Approval.Mode = "console"
	}
	if c.Approval.TimeoutSeconds == 0 {
		c.Approval.TimeoutSeconds = 120
	}
	if c.Approval.DiffStyle == "" {
		c.Approval.DiffStyle = "unified"
	}
}

func (c *Config) validate() error {
	if c.Matcher.SimilarityThreshold < 0 || c.Matcher.SimilarityThreshold > 1 {
		return fmt.Errorf("matcher.similarity_threshold must be in [0,1], got %v", c.Matcher.SimilarityThreshold)
	}
	if c.Matcher.MinConfidence < 0 || c.Matcher.MinConfidence > 1 {
		return fmt.Errorf("matcher.min_confidence must be in [0,1], got %v", c.Matcher.MinConfidence)
	}
	switch c.Approval.Mode {
	case "console", "tui", "auto":
	default:
		return fmt.Errorf("approval.mode must be console, tui, or auto, got %q", c.Approval.Mode)
	}
	switch c.Approval.DiffStyle {
	case "unified", "inline":
	default:
		return fmt.Errorf("approval.diff_style must be unified or inline, got %q", c.Approval.DiffStyle)
	}
	return nil
}

// NewMatcher builds a patch.Matcher from the configured tunables.
func (c *Config) NewMatcher() *patch.Matcher {
	m := patch.NewMatcher()
	m.SimilarityThreshold = c.Matcher.SimilarityThreshold
	m.MinConfidence = c.Matcher.MinConfidence
	m.ContextRadius = c.Matcher.ContextRadius
	m.Normalize = c.Matcher.Normalize
	return m
}

// anyNormalizeSet reports whether the user set any normalization option; an
// entirely zero struct means "use the strict defaults".
func anyNormalizeSet(o patch.NormalizeOptions) bool {
	return o.IgnoreLeadingWhitespace || o.IgnoreTrailingWhitespace ||
		o.NormalizeIndentation || o.IgnoreEmptyLines || o.CaseSensitive
}
