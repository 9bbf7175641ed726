package schemagen

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/random"
)

// maxNotRetries bounds regeneration when `not` forbids literal values.
const maxNotRetries = 10

// metaKeywords never produce output in copy traversal.
var metaKeywords = map[string]bool{
	"title":       true,
	"description": true,
	"$comment":    true,
	"$schema":     true,
	"$id":         true,
	"definitions": true,
	"$defs":       true,
}

var templateVar = regexp.MustCompile(`#\{([^}]+)\}`)

// walker is the traversal engine for one generation call.
type walker struct {
	ctx     context.Context
	opts    *Options
	rnd     *random.Rand
	logger  Logger
	formats *format.Registry
	hooks   *Hooks
	res     *resolver
	ignore  []ignoreRule
}

// objectFrame is the object being built around a child traversal.
type objectFrame struct {
	node   Schema
	values map[string]any
	pruned map[string]bool
}

// prune drops keys that a combinator branch ruled out.
func (f *objectFrame) prune(keys []string) {
	if f == nil {
		return
	}
	required := make(map[string]bool)
	for _, k := range f.node.strings("required") {
		required[k] = true
	}
	for _, k := range keys {
		if required[k] {
			continue
		}
		if f.pruned == nil {
			f.pruned = make(map[string]bool)
		}
		f.pruned[k] = true
		delete(f.values, k)
	}
}

// traverse produces a value and its context node for raw at path.
func (w *walker) traverse(raw any, path []string, parent *objectFrame) (any, *Context, error) {
	if err := w.ctx.Err(); err != nil {
		return nil, nil, err
	}
	defer w.res.release(w.res.mark())

	var node Schema
	switch v := raw.(type) {
	case map[string]any:
		node = Schema(v)
	case Schema:
		node = v
	case bool:
		if !v {
			return nil, nil, annotate(malformed("the false schema has no instances"), path)
		}
		node = anyTypeSchema()
	case []any:
		return w.copyList(v, path, parent)
	default:
		return cloneValue(raw), newContext(nil, path), nil
	}

	res, err := w.res.resolve(node, path)
	if err != nil {
		return nil, nil, annotate(err, path)
	}
	node = res.Schema
	if res.Deferred != nil {
		var enclosing Schema
		if parent != nil {
			enclosing = parent.node
		}
		picked, pruned, err := res.Deferred.pick(w.res, enclosing)
		if err != nil {
			return nil, nil, annotate(err, path)
		}
		parent.prune(pruned)
		return w.traverse(map[string]any(picked), path, parent)
	}
	if ref, ok := node.str("$ref"); ok {
		w.logger.Debugf("dropping unresolved %s at %s", ref, FormatPath(path))
		delete(node, "$ref")
	}

	nctx := newContext(node, path)
	container := len(path) > 0 && nameContainers[path[len(path)-1]]
	if !container {
		if v, ok := w.shortCircuit(node, parent); ok {
			literalContext(nctx, node, v, path)
			return v, nctx, nil
		}
	}

	if node.has("not") {
		v, err := w.negated(node, path, parent, nctx, container)
		if err != nil {
			return nil, nil, annotate(err, path)
		}
		return v, nctx, nil
	}

	v, err := w.generate(node, path, parent, nctx, container)
	if err != nil {
		return nil, nil, annotate(err, path)
	}
	return v, nctx, nil
}

// shortCircuit returns a declared literal instead of synthesizing one.
func (w *walker) shortCircuit(node Schema, parent *objectFrame) (any, bool) {
	if w.opts.UseExamplesValue {
		if examples, ok := node.list("examples"); ok && len(examples) > 0 {
			candidates := append([]any{}, examples...)
			if def, ok := node["default"]; ok {
				candidates = append(candidates, def)
			}
			return cloneValue(random.Pick(w.rnd, candidates)), true
		}
		if example, ok := node["example"]; ok {
			return cloneValue(example), true
		}
	}
	if w.opts.UseDefaultValue {
		if def, ok := node["default"]; ok {
			if s, isStr := def.(string); !isStr || s != "" || !w.opts.ReplaceEmptyByRandomValue {
				return cloneValue(def), true
			}
		}
	}
	if tmpl, ok := node.str("template"); ok {
		var values map[string]any
		if parent != nil {
			values = parent.values
		}
		return renderTemplate(tmpl, values), true
	}
	if c, ok := node["const"]; ok {
		return cloneValue(c), true
	}
	return nil, false
}

// literalContext adds a context node for every member of a declared
// literal, taking metadata from the subschema that describes it.
func literalContext(nctx *Context, node Schema, v any, path []string) {
	switch val := v.(type) {
	case map[string]any:
		props, _ := node.sub("properties")
		for k, child := range val {
			sub, ok := asSchema(props[k])
			p := childPath(path, "properties", k)
			if !ok {
				sub, _ = asSchema(node["additionalProperties"])
				p = childPath(path, "additionalProperties")
			}
			c := newContext(sub, p)
			literalContext(c, sub, child, p)
			nctx.setProperty(k, c)
		}
	case []any:
		tuple, isTuple := node.list("prefixItems")
		key := "prefixItems"
		if !isTuple {
			tuple, isTuple = node.list("items")
			key = "items"
		}
		for i, child := range val {
			var sub Schema
			p := childPath(path, "items", i)
			switch {
			case isTuple && i < len(tuple):
				sub, _ = asSchema(tuple[i])
				p = childPath(path, key, i)
			case isTuple:
				extraKey := "additionalItems"
				if key == "prefixItems" {
					extraKey = "items"
				}
				sub, _ = asSchema(node[extraKey])
				p = childPath(path, extraKey, i)
			default:
				sub, _ = asSchema(node["items"])
			}
			c := newContext(sub, p)
			literalContext(c, sub, child, p)
			nctx.Items = append(nctx.Items, c)
		}
	}
}

// negated generates from the complement `not` describes, retrying while the
// value is one of the forbidden literals.
func (w *walker) negated(node Schema, path []string, parent *objectFrame, nctx *Context, container bool) (any, error) {
	if neg, ok := node.sub("not"); ok && neg.has("$ref") {
		res, err := w.res.resolve(cloneSchema(neg), childPath(path, "not"))
		if err != nil {
			return nil, err
		}
		if res.Schema != nil {
			node["not"] = map[string]any(res.Schema)
		}
	}

	var last any
	for i := 0; i < maxNotRetries; i++ {
		eff, neg := w.res.expandNot(node)
		v, err := w.generate(eff, path, parent, nctx, container)
		if err != nil {
			return nil, err
		}
		if !containsValue(neg.forbidden, v) {
			return v, nil
		}
		last = v
	}
	w.logger.Warnf("could not avoid forbidden values at %s", FormatPath(path))
	return last, nil
}

// generate picks the node's type and dispatches to its generator.
func (w *walker) generate(node Schema, path []string, parent *objectFrame, nctx *Context, container bool) (any, error) {
	var typeName string
	if types := node.types(); len(types) > 0 {
		typeName = random.Pick(w.rnd, types)
		if len(types) > 1 {
			node["type"] = typeName
		}
	} else if !container {
		if typeName = inferType(node); typeName != "" {
			node["type"] = typeName
		}
	}
	t := ParseSchemaType(typeName)

	if fn, ok := node["generate"].(GeneratorFunc); ok {
		if v, ok := castTo(t, fn(node, childPath(path))); ok {
			return v, nil
		}
		w.logger.Debugf("generator result at %s is not %s, falling through", FormatPath(path), typeName)
	}

	if kw, fn, ok := w.hooks.match(node); ok {
		v, err := fn(w.ctx, node[kw], node, w.rnd)
		if err != nil {
			return nil, fmt.Errorf("hook %s: %w", kw, err)
		}
		return v, nil
	}

	if enum, ok := node.list("enum"); ok {
		if len(enum) == 0 {
			return nil, malformed("enum has no values")
		}
		return cloneValue(random.Pick(w.rnd, enum)), nil
	}

	switch t {
	case TypeObject:
		return w.object(node, path, nctx, parent)
	case TypeArray:
		return w.array(node, path, nctx)
	case TypeString:
		return w.string(node)
	case TypeNumber, TypeInteger:
		return w.number(node, path, t == TypeInteger)
	case TypeBoolean:
		return w.rnd.Bool(), nil
	case TypeNull:
		return nil, nil
	}

	if typeName != "" {
		return w.unknownType(node, path, parent, nctx, typeName)
	}
	return w.copyMap(node, path, nctx)
}

func (w *walker) unknownType(node Schema, path []string, parent *objectFrame, nctx *Context, typeName string) (any, error) {
	if w.opts.FailOnInvalidTypes {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typeName)
	}
	w.logger.Warnf("unknown type %q at %s, using fallback", typeName, FormatPath(path))
	product := w.opts.DefaultInvalidTypeProduct
	if name, ok := product.(string); ok && ParseSchemaType(name) != TypeUnknown {
		node["type"] = name
		return w.generate(node, path, parent, nctx, false)
	}
	return cloneValue(product), nil
}

// inferType guesses a missing type from type-specific keywords.
func inferType(node Schema) string {
	switch {
	case hasAny(node, "items", "prefixItems", "additionalItems", "minItems", "maxItems", "uniqueItems", "contains"):
		return "array"
	case hasAny(node, "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf"):
		for _, k := range []string{"minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum", "multipleOf"} {
			if f, ok := node.num(k); ok && !isIntegral(f) {
				return "number"
			}
		}
		return "integer"
	case hasAny(node, "properties", "patternProperties", "additionalProperties", "required", "minProperties",
		"maxProperties", "dependencies", "dependentRequired", "dependentSchemas", "propertyNames"):
		return "object"
	case hasAny(node, "pattern", "format", "minLength", "maxLength"):
		return "string"
	}
	return ""
}

func hasAny(node Schema, keys ...string) bool {
	for _, k := range keys {
		if node.has(k) {
			return true
		}
	}
	return false
}

// copyMap walks an untyped node, generating each subschema-valued key and
// copying plain values.
func (w *walker) copyMap(node Schema, path []string, nctx *Context) (any, error) {
	out := make(map[string]any, len(node))
	for _, k := range sortedKeys(node) {
		if metaKeywords[k] || strings.HasPrefix(k, "x-") || k == "generate" {
			continue
		}
		switch v := node[k].(type) {
		case map[string]any, []any:
			val, c, err := w.traverse(v, childPath(path, k), nil)
			if err != nil {
				return nil, err
			}
			out[k] = val
			nctx.setProperty(k, c)
		default:
			out[k] = cloneValue(v)
		}
	}
	return out, nil
}

func (w *walker) copyList(list []any, path []string, parent *objectFrame) (any, *Context, error) {
	nctx := newContext(nil, path)
	out := make([]any, len(list))
	for i, item := range list {
		v, c, err := w.traverse(item, childPath(path, i), parent)
		if err != nil {
			return nil, nil, err
		}
		out[i] = v
		nctx.Items = append(nctx.Items, c)
	}
	return out, nctx, nil
}

// renderTemplate substitutes #{a.b} with values. A template that is exactly
// one placeholder yields the raw value.
func renderTemplate(tmpl string, values map[string]any) any {
	if m := templateVar.FindStringSubmatch(tmpl); m != nil && m[0] == tmpl {
		v, _ := lookupValue(values, m[1])
		return cloneValue(v)
	}
	return templateVar.ReplaceAllStringFunc(tmpl, func(match string) string {
		v, ok := lookupValue(values, templateVar.FindStringSubmatch(match)[1])
		if !ok || v == nil {
			return ""
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	})
}

func lookupValue(values map[string]any, dotted string) (any, bool) {
	var cur any = values
	for _, part := range strings.Split(strings.TrimSpace(dotted), ".") {
		switch c := cur.(type) {
		case map[string]any:
			v, ok := c[part]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(c) {
				return nil, false
			}
			cur = c[i]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ignoreRule matches an optional property name to skip.
type ignoreRule struct {
	name string
	re   *regexp.Regexp
}

func compileIgnore(entries []string) ([]ignoreRule, error) {
	rules := make([]ignoreRule, 0, len(entries))
	for _, e := range entries {
		if len(e) > 2 && strings.HasPrefix(e, "/") && strings.HasSuffix(e, "/") {
			re, err := regexp.Compile(e[1 : len(e)-1])
			if err != nil {
				return nil, fmt.Errorf("invalid ignoreProperties entry %q: %w", e, err)
			}
			rules = append(rules, ignoreRule{re: re})
			continue
		}
		rules = append(rules, ignoreRule{name: e})
	}
	return rules, nil
}

func (w *walker) ignored(name string) bool {
	for _, rule := range w.ignore {
		if rule.re != nil && rule.re.MatchString(name) || rule.re == nil && rule.name == name {
			return true
		}
	}
	return false
}
