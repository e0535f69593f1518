package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridfeed/gridfeed/internal/domain/window"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if GRIDFEED_CONFIG is set
//  3. env (prefix GRIDFEED_, double underscore separates nesting levels,
//     e.g. GRIDFEED_COLLECTION__MAX_RETRIES)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("GRIDFEED_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider("GRIDFEED_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "gridfeed_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg.normalizeScales()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalizeScales folds every similarity/confidence knob onto a single
// 0.0-1.0 scale. Values above 1 are read as percentages.
func (c *Config) normalizeScales() {
	c.Detection.ConfidenceThreshold = toUnitScale(c.Detection.ConfidenceThreshold)
	c.Dedupe.NameThreshold = toUnitScale(c.Dedupe.NameThreshold)
	c.Dedupe.LocationThreshold = toUnitScale(c.Dedupe.LocationThreshold)
	c.Dedupe.CategoryThreshold = toUnitScale(c.Dedupe.CategoryThreshold)
	c.Dedupe.SemanticThreshold = toUnitScale(c.Dedupe.SemanticThreshold)
}

func toUnitScale(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (c *Config) validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %w", ErrInvalidConfig, c.Timezone, err)
	}
	if c.Collection.GlobalTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: global_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.Collection.Concurrency < 1 {
		c.Collection.Concurrency = 1
	}
	if c.Weekend.TargetDate != "" {
		if _, err := time.Parse("2006-01-02", c.Weekend.TargetDate); err != nil {
			return fmt.Errorf("%w: weekend.target_date %q: %w", ErrInvalidConfig, c.Weekend.TargetDate, err)
		}
	}
	for _, q := range c.Quiet {
		if !q.Enabled {
			continue
		}
		if _, err := window.ParseQuiet(q.Name, q.Day, q.Start, q.End); err != nil {
			return fmt.Errorf("%w: quiet window %q: %w", ErrInvalidConfig, q.Name, err)
		}
	}
	return nil
}

// Location resolves the configured default timezone. validate() has already
// checked it, so failures here are programmer error.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		panic(fmt.Sprintf("config: timezone %q no longer resolvable: %v", c.Timezone, err))
	}
	return loc
}

