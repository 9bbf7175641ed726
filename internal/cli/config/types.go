// Package config provides layered configuration for the schemafaker CLI.
package config

import (
	"context"
	"fmt"
	"maps"
	"strings"

	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// Defaults.
const (
	DefaultOutput   = "auto"
	DefaultLogLevel = "warn"
	DefaultCount    = 1
	DefaultAddr     = ":8080"
)

// Config holds all CLI configuration options.
type Config struct {
	Output   string `koanf:"output"`
	LogLevel string `koanf:"log_level"`
	Seed     uint64 `koanf:"seed"`
	Count    int    `koanf:"count"`
	// Refs lists extra documents loaded alongside the schema, as "path" or
	// "id=path". A list rather than a map: ids contain the key delimiter.
	Refs  []string `koanf:"refs"`
	Hooks []string `koanf:"hooks"`
	Addr  string   `koanf:"addr"`
	// Options is the engine option map; see schemagen.DecodeOptions.
	Options map[string]any `koanf:"options"`
}

// Validate checks values the engine would otherwise reject late.
func (c *Config) Validate() error {
	if c.Output != DefaultOutput {
		if _, err := render.ByName(c.Output); err != nil {
			return fmt.Errorf("invalid output: %w", err)
		}
	}
	if c.Count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", c.Count)
	}
	if _, err := c.ParsedRefs(); err != nil {
		return err
	}
	if _, err := c.EngineOptions(); err != nil {
		return err
	}
	return nil
}

// EngineOptions merges Options with the top-level seed and log level.
func (c *Config) EngineOptions() (schemagen.Options, error) {
	return schemagen.DecodeOptions(c.EngineOptionMap())
}

// EngineOptionMap is EngineOptions before decoding, for collaborators that
// overlay request options.
func (c *Config) EngineOptionMap() map[string]any {
	raw := maps.Clone(c.Options)
	if raw == nil {
		raw = map[string]any{}
	}
	if c.Seed != 0 {
		raw["seed"] = c.Seed
	}
	if c.LogLevel != "" {
		raw["logLevel"] = c.LogLevel
	}
	return raw
}

// Ref is a parsed Refs entry.
type Ref struct {
	ID   string
	Path string
}

// ParsedRefs splits Refs entries into ids and paths. An entry without "="
// is registered under its path.
func (c *Config) ParsedRefs() ([]Ref, error) {
	out := make([]Ref, 0, len(c.Refs))
	for _, entry := range c.Refs {
		id, path, found := strings.Cut(entry, "=")
		if !found {
			path = id
		}
		id, path = strings.TrimSpace(id), strings.TrimSpace(path)
		if id == "" || path == "" {
			return nil, fmt.Errorf("invalid ref %q: want path or id=path", entry)
		}
		out = append(out, Ref{ID: id, Path: path})
	}
	return out, nil
}

type configKey struct{}

// WithContext stores cfg in ctx.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or defaults.
func FromContext(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		Output:   DefaultOutput,
		LogLevel: DefaultLogLevel,
		Count:    DefaultCount,
		Addr:     DefaultAddr,
	}
}
