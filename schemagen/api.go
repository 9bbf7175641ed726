// Package schemagen synthesizes JSON values that conform to a JSON Schema.
//
// A Generator resolves $ref (with a bounded per-reference expansion budget),
// expands allOf/oneOf/anyOf/not, and dispatches on the node type to produce
// a value together with a Context tree of titles and descriptions that
// mirrors the value's shape.
package schemagen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/random"
)

// Generator holds the configuration shared by generation calls. Calls are
// serialized; use separate Generators for parallel work.
type Generator struct {
	mu      sync.Mutex
	opts    Options
	formats *format.Registry
	hooks   *Hooks
	rnd     *random.Rand
	logger  Logger
	ignore  []ignoreRule
}

// Option customizes a Generator.
type Option func(*Generator)

// WithFormats replaces the format registry.
func WithFormats(reg *format.Registry) Option {
	return func(g *Generator) { g.formats = reg }
}

// WithHooks installs a hook registry.
func WithHooks(h *Hooks) Option {
	return func(g *Generator) { g.hooks = h }
}

// WithRandom overrides Options.Random and Options.Seed.
func WithRandom(src random.Source) Option {
	return func(g *Generator) { g.rnd = random.New(src) }
}

// WithLogger overrides Options.Logger and Options.LogLevel.
func WithLogger(l Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New validates opts and builds a Generator.
func New(opts Options, fns ...Option) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ignore, err := compileIgnore(opts.IgnoreProperties)
	if err != nil {
		return nil, err
	}
	g := &Generator{opts: opts, ignore: ignore}
	for _, fn := range fns {
		fn(g)
	}
	if g.formats == nil {
		g.formats = format.NewRegistry()
	}
	if g.hooks == nil {
		g.hooks = NewHooks()
	}
	if g.logger == nil {
		g.logger = loggerFor(opts)
	}
	if g.rnd == nil {
		switch {
		case opts.Random != nil:
			g.rnd = random.New(opts.Random)
		case opts.Seed != 0:
			g.rnd = random.NewSeeded(opts.Seed)
		default:
			g.rnd = random.NewTime()
		}
	}
	return g, nil
}

// Options returns a copy of the generator's options.
func (g *Generator) Options() Options {
	return g.opts
}

// Formats exposes the format registry.
func (g *Generator) Formats() *format.Registry {
	return g.formats
}

// RegisterFormat adds a format generator. It must not race with Generate.
func (g *Generator) RegisterFormat(name string, fn format.Generator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.formats.Register(name, fn)
}

// RegisterHook binds a keyword hook. It must not race with Generate.
func (g *Generator) RegisterHook(keyword string, fn HookFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hooks.Register(keyword, fn)
}

// Generate produces one value for schema. refs maps document ids to
// auxiliary schema documents that $ref may target. schema may also be raw
// JSON bytes. The input is never modified. On failure no partial value is
// returned.
func (g *Generator) Generate(ctx context.Context, schema any, refs map[string]any) (*Result, error) {
	root, err := decodeSchema(schema)
	if err != nil {
		return nil, err
	}
	return g.run(ctx, root, root, nil, refs)
}

// GenerateAt produces a value for the subschema of doc at pointer (such as
// "#/components/schemas/Pet"). Local refs resolve against the whole doc and
// error paths are reported from the document root.
func (g *Generator) GenerateAt(ctx context.Context, doc any, pointer string, refs map[string]any) (*Result, error) {
	root, err := decodeSchema(doc)
	if err != nil {
		return nil, err
	}
	tokens := parsePointer(pointer)
	start, ok := lookupPointer(root, tokens)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrReferenceNotFound, pointer)
	}
	return g.run(ctx, root, start, tokens, refs)
}

func (g *Generator) run(ctx context.Context, root, start any, path []string, refs map[string]any) (*Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	aux := make(map[string]any, len(refs))
	for id, doc := range refs {
		var err error
		if aux[id], err = decodeSchema(doc); err != nil {
			return nil, fmt.Errorf("reference document %s: %w", id, err)
		}
	}

	table := NewRefTable(cloneValue(root), aux)
	opts := g.opts
	w := &walker{
		ctx:     ctx,
		opts:    &opts,
		rnd:     g.rnd,
		logger:  g.logger,
		formats: g.formats,
		hooks:   g.hooks,
		res:     newResolver(table, &opts, g.rnd, g.logger),
		ignore:  g.ignore,
	}
	g.logger.Debugf("generating %s at %s with %d reference documents", schemaSummaryOf(start), FormatPath(path), len(aux))

	value, nctx, err := w.traverse(cloneValue(start), childPath(path), nil)
	if err != nil {
		return nil, err
	}
	return &Result{Value: value, Context: nctx}, nil
}

// decodeSchema accepts native values and raw JSON, returning a private copy.
func decodeSchema(schema any) (any, error) {
	var raw []byte
	switch v := schema.(type) {
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return cloneValue(v), nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedSchema, err)
	}
	return out, nil
}

func schemaSummaryOf(v any) string {
	if s, ok := asSchema(v); ok {
		return schemaSummary(s)
	}
	return fmt.Sprintf("%T", v)
}

// String renders the value as JSON.
func (r *Result) String() string {
	if r == nil {
		return "null"
	}
	b, err := json.Marshal(r.Value)
	if err != nil {
		return fmt.Sprint(r.Value)
	}
	return string(b)
}
