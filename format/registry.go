// Package format generates values for named string formats such as
// date-time, uuid, email and hostname.
package format

import (
	"sort"
	"sync"

	"github.com/speakeasy-api/schemafaker/random"
)

// Generator produces a value for a format. schema is the (resolved) schema
// node carrying the format keyword.
type Generator func(r *random.Rand, schema map[string]any) (any, error)

// Registry maps format names to generators. Registering a name with a nil
// generator marks the format as known but unsupported.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]Generator
}

// NewRegistry returns a registry preloaded with the built-in formats.
func NewRegistry() *Registry {
	reg := &Registry{formats: make(map[string]Generator, len(builtins))}
	for name, fn := range builtins {
		reg.formats[name] = fn
	}
	return reg
}

// Register adds or replaces a format generator.
func (reg *Registry) Register(name string, fn Generator) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.formats[name] = fn
}

// Unregister removes a format entirely.
func (reg *Registry) Unregister(name string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.formats, name)
}

// Lookup returns the generator for name. known reports whether the name is
// registered at all; a known format with a nil generator is unsupported.
func (reg *Registry) Lookup(name string) (fn Generator, known bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	fn, known = reg.formats[name]
	return fn, known
}

// Names lists registered format names in sorted order.
func (reg *Registry) Names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	names := make([]string, 0, len(reg.formats))
	for name := range reg.formats {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy of the registry.
func (reg *Registry) Clone() *Registry {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := &Registry{formats: make(map[string]Generator, len(reg.formats))}
	for name, fn := range reg.formats {
		out.formats[name] = fn
	}
	return out
}
