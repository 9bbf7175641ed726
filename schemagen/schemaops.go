package schemagen

import "math"

// ============================================================================
// Copying
// ============================================================================

// cloneValue deep-copies JSON-like data. Maps come back as map[string]any
// and string lists as []any so later code sees one shape.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = cloneValue(item)
		}
		return out
	case Schema:
		return cloneValue(map[string]any(t))
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func cloneSchema(s Schema) Schema {
	if s == nil {
		return nil
	}
	return Schema(cloneValue(map[string]any(s)).(map[string]any))
}

// omitKeys returns a deep copy of s without keys.
func omitKeys(s Schema, keys ...string) Schema {
	out := cloneSchema(s)
	if out == nil {
		out = Schema{}
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// ============================================================================
// Merging
// ============================================================================

type mergeMode int

const (
	// mergeFill keeps scalars already on dst; src only fills gaps.
	mergeFill mergeMode = iota
	// mergeOverride lets src scalars replace dst's.
	mergeOverride
	// mergeConjoin is allOf: fill gaps, tighten bounds, intersect types and enums.
	mergeConjoin
)

// mergeInto deep-merges src into dst. Nested maps merge recursively and
// lists concatenate without duplicates. Values copied from src are cloned so
// dst never aliases src.
func mergeInto(dst, src Schema, mode mergeMode) {
	for _, k := range sortedKeys(src) {
		sv := src[k]
		dv, exists := dst[k]
		if !exists {
			dst[k] = cloneValue(sv)
			continue
		}
		if mode == mergeConjoin {
			if merged, ok := conjoinKeyword(k, dv, sv); ok {
				dst[k] = merged
				continue
			}
		}
		if sm, ok := asMap(sv); ok {
			if dm, ok := asMap(dv); ok {
				mergeInto(dm, sm, mode)
				continue
			}
		}
		if sl, ok := sv.([]any); ok {
			if dl, ok := dv.([]any); ok {
				dst[k] = unionList(dl, sl)
				continue
			}
		}
		if mode == mergeOverride {
			dst[k] = cloneValue(sv)
		}
	}
}

func asMap(v any) (Schema, bool) {
	switch t := v.(type) {
	case map[string]any:
		return Schema(t), true
	case Schema:
		return t, true
	}
	return nil, false
}

// unionList appends the members of b missing from a.
func unionList(a, b []any) []any {
	out := make([]any, 0, len(a)+len(b))
	seen := make(map[string]bool, len(a)+len(b))
	for _, list := range [][]any{a, b} {
		for _, v := range list {
			fp := Fingerprint(v)
			if seen[fp] {
				continue
			}
			seen[fp] = true
			out = append(out, cloneValue(v))
		}
	}
	return out
}

// intersectList keeps members of a that also appear in b.
func intersectList(a, b []any) []any {
	out := make([]any, 0, len(a))
	for _, v := range a {
		if containsValue(b, v) {
			out = append(out, v)
		}
	}
	return out
}

var (
	lowerBoundKeys = map[string]bool{"minimum": true, "minLength": true, "minItems": true, "minProperties": true}
	upperBoundKeys = map[string]bool{"maximum": true, "maxLength": true, "maxItems": true, "maxProperties": true}
)

// conjoinKeyword merges one keyword under allOf semantics. ok is false when
// the generic merge should handle the keyword.
func conjoinKeyword(key string, dv, sv any) (any, bool) {
	switch {
	case lowerBoundKeys[key]:
		return tighter(dv, sv, math.Max), true
	case upperBoundKeys[key]:
		return tighter(dv, sv, math.Min), true
	}
	switch key {
	case "exclusiveMinimum", "exclusiveMaximum":
		db, dIsBool := dv.(bool)
		sb, sIsBool := sv.(bool)
		if dIsBool && sIsBool {
			return db || sb, true
		}
		if dIsBool || sIsBool {
			return dv, true
		}
		if key == "exclusiveMinimum" {
			return tighter(dv, sv, math.Max), true
		}
		return tighter(dv, sv, math.Min), true
	case "type":
		return intersectTypes(dv, sv), true
	case "enum":
		dl, dok := dv.([]any)
		sl, sok := sv.([]any)
		if dok && sok {
			if common := intersectList(dl, sl); len(common) > 0 {
				return common, true
			}
		}
		return dv, true
	case "multipleOf":
		df, dok := toFloat(dv)
		sf, sok := toFloat(sv)
		if dok && sok && df > 0 && sf > 0 && isIntegral(sf/df) {
			return sv, true
		}
		return dv, true
	}
	return nil, false
}

func tighter(dv, sv any, pick func(a, b float64) float64) any {
	df, dok := toFloat(dv)
	sf, sok := toFloat(sv)
	if !dok || !sok {
		return dv
	}
	if pick(df, sf) == sf && sf != df {
		return sv
	}
	return dv
}

// intersectTypes intersects two type keywords, treating integer as a
// subtype of number. An empty intersection keeps the first.
func intersectTypes(dv, sv any) any {
	a := Schema{"type": dv}.types()
	b := Schema{"type": sv}.types()
	has := func(list []string, name string) bool {
		for _, v := range list {
			if v == name {
				return true
			}
		}
		return false
	}
	var out []any
	for _, t := range a {
		switch {
		case has(b, t):
			out = append(out, t)
		case t == "number" && has(b, "integer"):
			out = append(out, "integer")
		case t == "integer" && has(b, "number"):
			out = append(out, "integer")
		}
	}
	switch len(out) {
	case 0:
		return dv
	case 1:
		return out[0]
	default:
		return unionList(nil, out)
	}
}
