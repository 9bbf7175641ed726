package schemagen

import (
	"math"
	"regexp"
	"unicode/utf8"

	"github.com/speakeasy-api/schemafaker/random"
)

// maxAllOfPasses bounds allOf members that reintroduce allOf.
const maxAllOfPasses = 32

// expandAllOf merges every allOf member, and the node's own keywords, into
// one schema.
func (r *resolver) expandAllOf(node Schema, path []string) (Schema, error) {
	for pass := 0; node.has("allOf"); pass++ {
		if pass >= maxAllOfPasses {
			return nil, malformed("allOf nesting exceeds %d levels", maxAllOfPasses)
		}
		members, ok := node.list("allOf")
		delete(node, "allOf")
		if !ok {
			return nil, malformed("allOf must be an array")
		}
		for i, m := range members {
			if b, ok := m.(bool); ok && !b {
				return nil, malformed("allOf member %d is the false schema", i)
			}
			ms, ok := asSchema(m)
			if !ok {
				continue
			}
			res, err := r.resolve(cloneSchema(ms), childPath(path, "allOf", i))
			if err != nil {
				return nil, err
			}
			sub := res.Schema
			if res.Deferred != nil {
				sub, _, err = res.Deferred.pick(r, node)
				if err != nil {
					return nil, err
				}
			}
			mergeInto(node, sub, mergeConjoin)
		}
	}
	return node, nil
}

// deferred is a oneOf/anyOf whose branch is chosen when a value is needed.
type deferred struct {
	keyword string
	base    Schema
	choices []any
	path    []string
}

// deferChoice turns a oneOf/anyOf node into a deferred choice.
func (r *resolver) deferChoice(node Schema, path []string) *deferred {
	keyword := "oneOf"
	choices, ok := node.list(keyword)
	if !ok {
		keyword = "anyOf"
		choices, ok = node.list(keyword)
	}
	if !ok || len(choices) == 0 {
		return nil
	}
	base := omitKeys(node, "oneOf", "anyOf")
	if enum, ok := base.list("enum"); ok {
		var kept []any
		for _, v := range enum {
			for _, c := range choices {
				if cs, ok := asSchema(c); ok && withinBounds(v, cs) {
					kept = append(kept, v)
					break
				}
			}
		}
		if len(kept) > 0 {
			base["enum"] = kept
		}
	}
	return &deferred{keyword: keyword, base: base, choices: choices, path: childPath(path)}
}

// pick merges one random branch onto the base keywords. Properties required
// only by the other branches are removed from the result and from
// enclosing, and reported back so already generated values can be dropped.
func (d *deferred) pick(r *resolver, enclosing Schema) (Schema, []string, error) {
	i := r.rnd.Int(0, len(d.choices)-1)
	chosen, ok := asSchema(d.choices[i])
	if !ok {
		return nil, nil, malformed("%s member %d is not a schema", d.keyword, i)
	}
	res, err := r.resolve(cloneSchema(chosen), childPath(d.path, d.keyword, i))
	if err != nil {
		return nil, nil, err
	}
	branch := res.Schema
	if res.Deferred != nil {
		if branch, _, err = res.Deferred.pick(r, enclosing); err != nil {
			return nil, nil, err
		}
	}
	r.logger.Debugf("%s at %s picked branch %d of %d", d.keyword, FormatPath(d.path), i, len(d.choices))

	out := cloneSchema(d.base)
	mergeInto(out, branch, mergeOverride)

	required := make(map[string]bool)
	for _, k := range out.strings("required") {
		required[k] = true
	}
	var enclosingRequired map[string]bool
	if enclosing != nil {
		enclosingRequired = make(map[string]bool)
		for _, k := range enclosing.strings("required") {
			enclosingRequired[k] = true
		}
	}

	var pruned []string
	for j, other := range d.choices {
		if j == i {
			continue
		}
		os, ok := asSchema(other)
		if !ok {
			continue
		}
		for _, key := range r.requiredOf(os) {
			if required[key] {
				continue
			}
			if props, ok := out.sub("properties"); ok {
				delete(props, key)
			}
			if enclosing != nil && !enclosingRequired[key] {
				if props, ok := enclosing.sub("properties"); ok {
					delete(props, key)
				}
				pruned = append(pruned, key)
			}
		}
	}
	return out, pruned, nil
}

// negation is what `not` contributes beyond rewritten bounds: literal values
// the generated value must avoid.
type negation struct {
	forbidden []any
}

// expandNot rewrites node so its bounds and type complement the negated
// subschema.
func (r *resolver) expandNot(node Schema) (Schema, negation) {
	neg, ok := asSchema(node["not"])
	if !ok {
		return node, negation{}
	}
	out := omitKeys(node, "not")
	var n negation

	negateRange(r.rnd, out, neg, "minimum", "maximum", "exclusiveMinimum", "exclusiveMaximum")
	negateLength(r.rnd, out, neg)

	if types := neg.types(); len(types) > 0 {
		excluded := make(map[string]bool, len(types)+1)
		for _, t := range types {
			excluded[t] = true
			if t == "number" || t == "integer" {
				excluded["number"], excluded["integer"] = true, true
			}
		}
		var allowed []string
		candidates := out.types()
		if len(candidates) == 0 {
			candidates = scalarTypes
		}
		for _, t := range candidates {
			if !excluded[t] {
				allowed = append(allowed, t)
			}
		}
		if len(allowed) > 0 {
			out["type"] = random.Pick(r.rnd, allowed)
		}
	}

	var banned []any
	if enum, ok := neg.list("enum"); ok {
		banned = append(banned, enum...)
	}
	if c, ok := neg["const"]; ok {
		banned = append(banned, c)
	}
	if len(banned) > 0 {
		if own, ok := out.list("enum"); ok {
			var kept []any
			for _, v := range own {
				if !containsValue(banned, v) {
					kept = append(kept, v)
				}
			}
			out["enum"] = kept
		} else {
			n.forbidden = banned
		}
	}

	if req := neg.strings("required"); len(req) > 0 {
		props, _ := out.sub("properties")
		drop := make(map[string]bool, len(req))
		for _, k := range req {
			drop[k] = true
			delete(props, k)
		}
		var keep []any
		for _, k := range out.strings("required") {
			if !drop[k] {
				keep = append(keep, k)
			}
		}
		if out.has("required") {
			out["required"] = keep
		}
	}
	return out, n
}

// negateRange narrows out to one side of the range neg forbids.
func negateRange(rnd *random.Rand, out, neg Schema, minKey, maxKey, exMinKey, exMaxKey string) {
	nmin, hasNMin := neg.num(minKey)
	nmax, hasNMax := neg.num(maxKey)
	if !hasNMin && !hasNMax {
		return
	}
	smin, hasSMin := out.num(minKey)
	smax, hasSMax := out.num(maxKey)

	below := hasNMin && (!hasSMin || smin < nmin)
	above := hasNMax && (!hasSMax || smax > nmax)
	switch {
	case below && above:
		if rnd.Bool() {
			above = false
		} else {
			below = false
		}
	case !below && !above:
		return
	}

	if below {
		if !hasSMax || smax >= nmin {
			out[maxKey] = nmin
			out[exMaxKey] = true
		}
		return
	}
	if !hasSMin || smin <= nmax {
		out[minKey] = nmax
		out[exMinKey] = true
	}
}

// negateLength narrows string length bounds outside the forbidden window.
func negateLength(rnd *random.Rand, out, neg Schema) {
	nmin, hasNMin := neg.num("minLength")
	nmax, hasNMax := neg.num("maxLength")
	below := hasNMin && nmin > 0
	above := hasNMax
	if below && above && rnd.Bool() {
		below = false
	}
	switch {
	case below:
		limit := int(nmin) - 1
		if cur := out.intOr("maxLength", math.MaxInt); cur > limit {
			out["maxLength"] = limit
		}
		if out.intOr("minLength", 0) > limit {
			out["minLength"] = limit
		}
	case above:
		floor := int(nmax) + 1
		if out.intOr("minLength", 0) < floor {
			out["minLength"] = floor
		}
		if cur := out.intOr("maxLength", -1); cur >= 0 && cur < floor {
			out["maxLength"] = floor
		}
	}
}

// withinBounds is a shallow validity check of v against schema's scalar
// constraints.
func withinBounds(v any, schema Schema) bool {
	if types := schema.types(); len(types) > 0 && !matchesAnyType(v, types) {
		return false
	}
	if f, ok := toFloat(v); ok {
		if lo, ok := schema.num("minimum"); ok && f < lo {
			return false
		}
		if hi, ok := schema.num("maximum"); ok && f > hi {
			return false
		}
		if lo, ok := schema.num("exclusiveMinimum"); ok && f <= lo {
			return false
		}
		if hi, ok := schema.num("exclusiveMaximum"); ok && f >= hi {
			return false
		}
		if step, ok := schema.num("multipleOf"); ok && step > 0 {
			q := f / step
			if math.Abs(q-math.Round(q)) > 1e-9 {
				return false
			}
		}
	}
	if s, ok := v.(string); ok {
		n := utf8.RuneCountInString(s)
		if lo, ok := schema.num("minLength"); ok && float64(n) < lo {
			return false
		}
		if hi, ok := schema.num("maxLength"); ok && float64(n) > hi {
			return false
		}
		if p, ok := schema.str("pattern"); ok {
			if re, err := regexp.Compile(p); err == nil && !re.MatchString(s) {
				return false
			}
		}
	}
	if enum, ok := schema.list("enum"); ok && !containsValue(enum, v) {
		return false
	}
	if c, ok := schema["const"]; ok && !valuesEqual(c, v) {
		return false
	}
	return true
}

func matchesAnyType(v any, types []string) bool {
	for _, t := range types {
		switch t {
		case "null":
			if v == nil {
				return true
			}
		case "boolean":
			if _, ok := v.(bool); ok {
				return true
			}
		case "string":
			if _, ok := v.(string); ok {
				return true
			}
		case "number":
			if _, ok := toFloat(v); ok {
				return true
			}
		case "integer":
			if f, ok := toFloat(v); ok && isIntegral(f) {
				return true
			}
		case "array":
			if _, ok := v.([]any); ok {
				return true
			}
		case "object":
			if _, ok := asMap(v); ok {
				return true
			}
		}
	}
	return false
}
