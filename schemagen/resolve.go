package schemagen

import (
	"fmt"
	"strings"

	"github.com/speakeasy-api/schemafaker/random"
)

// maxRefHops bounds chains of refs that point at refs.
const maxRefHops = 64

// valueKeywords hold literal data, never subschemas.
var valueKeywords = map[string]bool{
	"enum":     true,
	"const":    true,
	"default":  true,
	"examples": true,
	"example":  true,
	"required": true,
}

// lazyKeywords are subschema containers the type generators traverse
// themselves; eager resolution skips them so expansion stays on demand.
var lazyKeywords = map[string]bool{
	"properties":           true,
	"patternProperties":    true,
	"additionalProperties": true,
	"items":                true,
	"prefixItems":          true,
	"additionalItems":      true,
	"contains":             true,
	"dependencies":         true,
	"dependentSchemas":     true,
	"definitions":          true,
	"$defs":                true,
	"oneOf":                true,
	"anyOf":                true,
	"allOf":                true,
}

// nameContainers map property names to subschemas.
var nameContainers = map[string]bool{
	"properties":        true,
	"patternProperties": true,
	"definitions":       true,
	"$defs":             true,
	"dependencies":      true,
	"dependentSchemas":  true,
}

// resolved is the outcome of resolving one node: either a direct schema or
// a deferred oneOf/anyOf choice made later by the traversal.
type resolved struct {
	Schema   Schema
	Deferred *deferred
}

// resolver expands $ref, allOf and the combinator deferrals for one
// generation call. It owns the Resolution State.
type resolver struct {
	table  *RefTable
	opts   *Options
	rnd    *random.Rand
	logger Logger

	// budget is the per-ref nesting allowance, drawn on first encounter.
	budget map[string]int
	// active counts open expansions of each ref on the traversal stack;
	// entered records them in order so release can unwind a subtree.
	active  map[string]int
	entered []string
}

func newResolver(table *RefTable, opts *Options, rnd *random.Rand, logger Logger) *resolver {
	return &resolver{
		table:  table,
		opts:   opts,
		rnd:    rnd,
		logger: logger.With(map[string]any{"component": "resolver"}),
		budget: make(map[string]int),
		active: make(map[string]int),
	}
}

// mark returns the current depth of the expansion stack.
func (r *resolver) mark() int {
	return len(r.entered)
}

// release closes every expansion entered since mark.
func (r *resolver) release(mark int) {
	for len(r.entered) > mark {
		ref := r.entered[len(r.entered)-1]
		r.entered = r.entered[:len(r.entered)-1]
		r.active[ref]--
	}
}

// run counts how many of the innermost open expansions are ref.
func (r *resolver) run(ref string) int {
	n := 0
	for i := len(r.entered) - 1; i >= 0 && r.entered[i] == ref; i-- {
		n++
	}
	return n
}

// resolve expands node in place. node must already be a working copy.
func (r *resolver) resolve(node Schema, path []string) (resolved, error) {
	if node == nil {
		return resolved{}, nil
	}
	if _, ok := node["generate"].(GeneratorFunc); ok {
		return resolved{Schema: node}, nil
	}
	r.stripIDs(node, path)

	hadRef := false
	for hops := 0; ; hops++ {
		ref, ok := node.str("$ref")
		if !ok {
			break
		}
		if hops >= maxRefHops {
			return resolved{}, malformed("reference chain through %q is too long", ref)
		}
		hadRef = true
		next, stop, err := r.expandRef(node, ref, path)
		if err != nil {
			return resolved{}, err
		}
		node = next
		if stop {
			break
		}
	}

	if node.has("allOf") {
		merged, err := r.expandAllOf(node, path)
		if err != nil {
			return resolved{}, err
		}
		node = merged
	}

	if d := r.deferChoice(node, path); d != nil {
		return resolved{Schema: node, Deferred: d}, nil
	}

	if !hadRef {
		if err := r.resolveChildren(node, path); err != nil {
			return resolved{}, err
		}
	}
	return resolved{Schema: node}, nil
}

// expandRef performs one $ref step. stop reports that node should not be
// looked at for further refs.
func (r *resolver) expandRef(node Schema, ref string, path []string) (Schema, bool, error) {
	maxDepth := max(r.opts.RefDepthMin, r.opts.RefDepthMax)
	budget, seen := r.budget[ref]
	if !seen {
		budget = r.rnd.Int(r.opts.RefDepthMin, r.opts.RefDepthMax)
		r.budget[ref] = budget
	}

	// The outermost expansion of a ref always happens; the draw bounds
	// how deep it may recurse into itself.
	exhausted := ref == "#" || r.active[ref] >= max(budget, 1) || r.run(ref) > maxDepth
	if exhausted {
		if ref != "#" && len(path) == 0 && len(node) == 1 {
			// A bare root ref always resolves against the document.
			return r.mergeTarget(node, ref)
		}
		r.logger.Debugf("stop expanding %s at %s", ref, FormatPath(path))
		return omitKeys(node, "$ref"), true, nil
	}

	r.active[ref]++
	r.entered = append(r.entered, ref)
	r.logger.Debugf("expand %s at %s (depth %d of %d)", ref, FormatPath(path), r.active[ref], max(budget, 1))
	return r.mergeTarget(node, ref)
}

// mergeTarget merges the target of ref under node's sibling keywords.
func (r *resolver) mergeTarget(node Schema, ref string) (Schema, bool, error) {
	target, base, ok := r.table.lookup(ref)
	if !ok {
		if r.opts.IgnoreMissingRefs {
			r.logger.Warnf("ignoring missing reference %s", ref)
			return node, true, nil
		}
		return nil, false, fmt.Errorf("%w: %s", ErrReferenceNotFound, ref)
	}

	var t Schema
	switch v := target.(type) {
	case bool:
		if !v {
			return nil, false, malformed("reference %s targets the false schema", ref)
		}
		t = anyTypeSchema()
	default:
		s, ok := asMap(v)
		if !ok {
			return nil, false, malformed("reference %s targets a %T, not a schema", ref, target)
		}
		t = omitKeys(s, "definitions", "$defs", "$id", "$schema", "$anchor")
	}
	rebaseRefs(map[string]any(t), base)

	out := omitKeys(node, "$ref")
	mergeInto(out, t, mergeFill)
	return out, false, nil
}

// stripIDs removes identifiers so they neither leak into output nor get
// re-registered mid-walk.
func (r *resolver) stripIDs(node Schema, path []string) {
	delete(node, "$id")
	delete(node, "$schema")
	delete(node, "$anchor")
	if len(path) > 0 && nameContainers[path[len(path)-1]] {
		return
	}
	if _, ok := node["id"].(string); ok && looksLikeSchema(node) {
		delete(node, "id")
	}
}

// looksLikeSchema tells a schema carrying a legacy `id` apart from a plain
// map that merely has an "id" key.
func looksLikeSchema(node Schema) bool {
	for _, k := range []string{"type", "properties", "items", "$ref", "allOf", "oneOf", "anyOf", "enum"} {
		if node.has(k) {
			return true
		}
	}
	return false
}

// resolveChildren eagerly resolves subschemas the traversal reads without
// visiting them itself, such as `not`.
func (r *resolver) resolveChildren(node Schema, path []string) error {
	for _, k := range sortedKeys(node) {
		if valueKeywords[k] || lazyKeywords[k] || strings.HasPrefix(k, "x-") {
			continue
		}
		switch v := node[k].(type) {
		case map[string]any:
			res, err := r.resolve(Schema(v), childPath(path, k))
			if err != nil {
				return err
			}
			if res.Deferred == nil {
				node[k] = map[string]any(res.Schema)
			}
		case []any:
			for i, item := range v {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				res, err := r.resolve(Schema(m), childPath(path, k, i))
				if err != nil {
					return err
				}
				if res.Deferred == nil {
					v[i] = map[string]any(res.Schema)
				}
			}
		}
	}
	return nil
}

// requiredOf reads a member's required list, following one $ref without
// spending the expansion budget.
func (r *resolver) requiredOf(member Schema) []string {
	if ref, ok := member.str("$ref"); ok {
		if target, _, ok := r.table.lookup(ref); ok {
			if s, ok := asMap(target); ok {
				return append(member.strings("required"), s.strings("required")...)
			}
		}
	}
	return member.strings("required")
}
