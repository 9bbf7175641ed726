package schemagen

import (
	"context"
	"sort"
	"sync"

	"github.com/speakeasy-api/schemafaker/random"
)

// HookFunc generates a value for a node carrying the hook's keyword. arg is
// the keyword's value and schema the resolved node.
type HookFunc func(ctx context.Context, arg any, schema Schema, r *random.Rand) (any, error)

// GeneratorFunc is the in-process escape hatch: a node whose "generate"
// keyword holds one is produced by calling it. The result is cast to the
// node's type; on mismatch generation falls through.
type GeneratorFunc func(schema Schema, path []string) any

// Hooks maps extension keywords to generator hooks.
type Hooks struct {
	mu    sync.RWMutex
	funcs map[string]HookFunc
}

// NewHooks returns an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{funcs: make(map[string]HookFunc)}
}

// Register binds keyword to fn; a nil fn removes the binding.
func (h *Hooks) Register(keyword string, fn HookFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if fn == nil {
		delete(h.funcs, keyword)
		return
	}
	h.funcs[keyword] = fn
}

// Keywords lists registered keywords in sorted order.
func (h *Hooks) Keywords() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.funcs))
	for k := range h.funcs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone copies the registry so later registrations do not leak into a
// running generator.
func (h *Hooks) Clone() *Hooks {
	out := NewHooks()
	if h == nil {
		return out
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for k, fn := range h.funcs {
		out.funcs[k] = fn
	}
	return out
}

// match returns the first registered keyword present on node.
func (h *Hooks) match(node Schema) (string, HookFunc, bool) {
	if h == nil {
		return "", nil, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.funcs) == 0 {
		return "", nil, false
	}
	for _, k := range sortedKeys(h.funcs) {
		if node.has(k) {
			return k, h.funcs[k], true
		}
	}
	return "", nil, false
}
