// Package schemafaker generates fake JSON data from JSON Schema documents.
//
// The package-level functions use a default configuration whose format and
// hook registries can be extended with RegisterFormat and RegisterHook.
// Callers wanting isolated configuration build a schemagen.Generator.
package schemafaker

import (
	"context"
	"sync"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

var (
	mu       sync.RWMutex
	formats  = format.NewRegistry()
	hooks    = schemagen.NewHooks()
	defaults = schemagen.DefaultOptions()
)

// RegisterFormat adds a format generator to the default configuration.
func RegisterFormat(name string, fn format.Generator) {
	mu.Lock()
	defer mu.Unlock()
	formats.Register(name, fn)
}

// RegisterHook binds a keyword hook in the default configuration.
func RegisterHook(keyword string, fn schemagen.HookFunc) {
	mu.Lock()
	defer mu.Unlock()
	hooks.Register(keyword, fn)
}

// SetDefaults replaces the default options.
func SetDefaults(opts schemagen.Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	defaults = opts
	return nil
}

// Formats lists the format names known to the default configuration.
func Formats() []string {
	mu.RLock()
	defer mu.RUnlock()
	return formats.Names()
}

// New builds a generator from a snapshot of the default registries.
// Later registrations do not affect it.
func New(opts schemagen.Options, fns ...schemagen.Option) (*schemagen.Generator, error) {
	mu.RLock()
	base := []schemagen.Option{schemagen.WithFormats(formats.Clone()), schemagen.WithHooks(hooks.Clone())}
	mu.RUnlock()
	return schemagen.New(opts, append(base, fns...)...)
}

// Generate produces a value for schema with the default options.
func Generate(ctx context.Context, schema any, refs map[string]any) (any, error) {
	mu.RLock()
	opts := defaults
	mu.RUnlock()
	res, err := GenerateWith(ctx, opts, schema, refs)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// GenerateWith produces a value and its context tree with explicit options.
func GenerateWith(ctx context.Context, opts schemagen.Options, schema any, refs map[string]any) (*schemagen.Result, error) {
	g, err := New(opts)
	if err != nil {
		return nil, err
	}
	return g.Generate(ctx, schema, refs)
}
