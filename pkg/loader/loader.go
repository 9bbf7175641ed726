// Package loader reads schema documents from disk or HTTP and prefetches
// every external document their $refs point at, producing the refs map the
// generator expects.
package loader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/speakeasy-api/schemafaker/schemagen"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoFetcher is returned when no fetcher accepts a URI.
	ErrNoFetcher = errors.New("no fetcher for uri")
	// ErrSchemaNotFound is returned by Bundle.Schema for unknown names.
	ErrSchemaNotFound = errors.New("schema not found")
)

// DefaultConcurrency bounds parallel fetches per level of the ref graph.
const DefaultConcurrency = 8

// Loader fetches and parses documents.
type Loader struct {
	fetchers    []Fetcher
	parsers     []Parser
	concurrency int
	maxDocs     int
	logger      schemagen.Logger
	preloaded   map[string]any
}

// Option configures a Loader.
type Option func(*Loader)

// WithFetchers replaces the fetcher chain. Earlier fetchers win.
func WithFetchers(f ...Fetcher) Option {
	return func(l *Loader) { l.fetchers = f }
}

// WithParsers replaces the parser chain. Earlier parsers win.
func WithParsers(p ...Parser) Option {
	return func(l *Loader) { l.parsers = p }
}

// WithConcurrency sets how many documents are fetched at once.
func WithConcurrency(n int) Option {
	return func(l *Loader) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// WithMaxDocuments caps the number of external documents followed.
func WithMaxDocuments(n int) Option {
	return func(l *Loader) { l.maxDocs = n }
}

// WithPreloaded supplies documents by the key the engine looks them up
// under. Refs to those keys are not fetched.
func WithPreloaded(docs map[string]any) Option {
	return func(l *Loader) { l.preloaded = docs }
}

// WithLogger attaches a logger.
func WithLogger(logger schemagen.Logger) Option {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New returns a Loader that reads local files and http(s) URIs and
// understands OpenAPI, JSON and YAML documents.
func New(opts ...Option) *Loader {
	l := &Loader{
		fetchers:    []Fetcher{HTTPFetcher{}, FileFetcher{}},
		parsers:     []Parser{OpenAPIParser{}, JSONParser{}, YAMLParser{}},
		concurrency: DefaultConcurrency,
		maxDocs:     256,
		logger:      schemagen.NopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Bundle is a root document plus every external document it reaches.
type Bundle struct {
	URI  string
	Root any
	// Refs maps each external document under the key the engine derives
	// for it, so it can be passed straight to Generate.
	Refs map[string]any
}

// Generate produces a value for the named schema, or for the whole root
// document when name is empty.
func (b *Bundle) Generate(ctx context.Context, g *schemagen.Generator, name string) (*schemagen.Result, error) {
	if name == "" {
		return g.Generate(ctx, b.Root, b.Refs)
	}
	ptr, err := b.Schema(name)
	if err != nil {
		return nil, err
	}
	return g.GenerateAt(ctx, b.Root, ptr, b.Refs)
}

// Schema returns the pointer of a named schema. A name starting with "#"
// is taken as a pointer; otherwise components/schemas, $defs and
// definitions are searched in that order.
func (b *Bundle) Schema(name string) (string, error) {
	if strings.HasPrefix(name, "#") {
		return name, nil
	}
	root, _ := b.Root.(map[string]any)
	for _, container := range [][]string{{"components", "schemas"}, {"$defs"}, {"definitions"}} {
		m := dig(root, container...)
		if _, ok := m[name]; ok {
			return schemagen.FormatPath(append(append([]string{}, container...), name)), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
}

// Names lists the named schemas Schema can find.
func (b *Bundle) Names() []string {
	root, _ := b.Root.(map[string]any)
	seen := map[string]bool{}
	var out []string
	for _, container := range [][]string{{"components", "schemas"}, {"$defs"}, {"definitions"}} {
		for name := range dig(root, container...) {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}

func dig(m map[string]any, keys ...string) map[string]any {
	for _, k := range keys {
		next, ok := m[k].(map[string]any)
		if !ok {
			return nil
		}
		m = next
	}
	return m
}

// pending is an external document waiting to be fetched.
type pending struct {
	location string // absolute location used for fetching
	key      string // key the engine will look it up under
}

// Load reads the document at uri and every document its $refs reach.
func (l *Loader) Load(ctx context.Context, uri string) (*Bundle, error) {
	root, err := l.document(ctx, uri)
	if err != nil {
		return nil, err
	}
	return l.bundle(ctx, uri, root)
}

// LoadBytes parses data as the root document. External refs resolve
// against base.
func (l *Loader) LoadBytes(ctx context.Context, base string, data []byte) (*Bundle, error) {
	root, err := l.parse(ctx, base, data)
	if err != nil {
		return nil, err
	}
	return l.bundle(ctx, base, root)
}

func (l *Loader) bundle(ctx context.Context, uri string, root any) (*Bundle, error) {
	b := &Bundle{URI: uri, Root: root, Refs: make(map[string]any, len(l.preloaded))}
	for k, doc := range l.preloaded {
		b.Refs[k] = doc
	}

	fetched := map[string]any{}
	queue := l.external(root, l.location(uri), "")
	for len(queue) > 0 {
		var next []pending
		var toFetch []string
		for _, p := range queue {
			if _, have := b.Refs[p.key]; have {
				continue
			}
			if _, done := fetched[p.location]; done || contains(toFetch, p.location) {
				continue
			}
			toFetch = append(toFetch, p.location)
		}
		if len(fetched)+len(toFetch) > l.maxDocs {
			return nil, fmt.Errorf("ref graph of %s exceeds %d documents", uri, l.maxDocs)
		}

		var mu sync.Mutex
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(l.concurrency)
		for _, loc := range toFetch {
			g.Go(func() error {
				doc, err := l.document(gctx, loc)
				if err != nil {
					return err
				}
				mu.Lock()
				fetched[loc] = doc
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for _, p := range queue {
			doc := fetched[p.location]
			if _, seen := b.Refs[p.key]; seen {
				continue
			}
			b.Refs[p.key] = doc
			if contains(toFetch, p.location) {
				next = append(next, l.external(doc, p.location, p.key)...)
			}
		}
		queue = next
	}

	l.logger.Debugf("loaded %s with %d external documents", uri, len(fetched))
	return b, nil
}

// external collects the documents referenced from doc. location is where
// doc was read from; key is the engine's identifier for it.
func (l *Loader) external(doc any, location, key string) []pending {
	embedded := map[string]bool{}
	collectIDs(doc, key, embedded)

	var out []pending
	walkRefs(doc, func(ref string) {
		target := stripFragment(ref)
		if target == "" || embedded[schemagen.ResolveURI(key, target)] {
			return
		}
		out = append(out, pending{
			location: schemagen.ResolveURI(location, target),
			key:      schemagen.ResolveURI(key, target),
		})
	})
	return out
}

// location turns a file path into a URI that relative refs resolve against.
func (l *Loader) location(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		return uri
	}
	return filepath.ToSlash(uri)
}

func (l *Loader) document(ctx context.Context, uri string) (any, error) {
	for _, f := range l.fetchers {
		if !f.CanHandle(uri) {
			continue
		}
		data, err := f.Read(ctx, uri)
		if err != nil {
			return nil, err
		}
		return l.parse(ctx, uri, data)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoFetcher, uri)
}

func (l *Loader) parse(ctx context.Context, uri string, data []byte) (any, error) {
	for _, p := range l.parsers {
		if !p.CanHandle(uri, data) {
			continue
		}
		doc, err := p.Parse(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", uri, err)
		}
		return doc, nil
	}
	return nil, fmt.Errorf("no parser accepts %s", uri)
}

func walkRefs(node any, fn func(string)) {
	switch t := node.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			fn(ref)
		}
		for k, v := range t {
			if k == "enum" || k == "const" || k == "examples" || k == "example" || k == "default" {
				continue
			}
			walkRefs(v, fn)
		}
	case []any:
		for _, item := range t {
			walkRefs(item, fn)
		}
	}
}

// collectIDs records the identifiers of embedded $id subschemas, both as
// written and resolved against their enclosing base.
func collectIDs(node any, base string, into map[string]bool) {
	switch t := node.(type) {
	case map[string]any:
		if id, ok := t["$id"].(string); ok && id != "" {
			into[stripFragment(id)] = true
			base = schemagen.ResolveURI(base, stripFragment(id))
			into[base] = true
		}
		for k, v := range t {
			if k == "enum" || k == "const" || k == "examples" || k == "example" || k == "default" {
				continue
			}
			collectIDs(v, base, into)
		}
	case []any:
		for _, item := range t {
			collectIDs(item, base, into)
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
