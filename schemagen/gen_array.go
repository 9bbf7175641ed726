package schemagen

import (
	"math"
)

// maxUniqueFailures bounds redraws spent on duplicate items.
const maxUniqueFailures = 100

// array generates tuple-form or list-form arrays.
func (w *walker) array(node Schema, path []string, nctx *Context) (any, error) {
	if tuple, ok := node.list("items"); ok {
		extra, _ := node["additionalItems"].(map[string]any)
		return w.tuple(node, path, nctx, "items", tuple, "additionalItems", extra)
	}
	if tuple, ok := node.list("prefixItems"); ok {
		extra, _ := node["items"].(map[string]any)
		return w.tuple(node, path, nctx, "prefixItems", tuple, "items", extra)
	}

	itemKey := "items"
	itemSchema, ok := asSchema(node["items"])
	if !ok {
		if itemSchema, ok = asSchema(node["additionalItems"]); ok {
			itemKey = "additionalItems"
		} else if itemSchema, ok = asSchema(node["contains"]); ok {
			itemKey = "contains"
		}
	}

	lo, hi, err := w.itemBounds(node)
	if err != nil {
		return nil, err
	}
	if !ok {
		if lo > 0 {
			return nil, malformed("array requires %d items but declares no item schema", lo)
		}
		return []any{}, nil
	}

	drawLo := lo
	if !node.has("minItems") && drawLo == 0 {
		drawLo = 1
	}
	if hi < 0 {
		hi = max(lo, 1) + 4
	}
	drawLo = min(drawLo, hi)
	n := w.itemCount(lo, drawLo, hi)

	unique, _ := node["uniqueItems"].(bool)
	out := make([]any, 0, n)
	seen := make(map[string]bool, n)
	failures := 0
	for len(out) < n {
		i := len(out)
		v, c, err := w.traverse(cloneValue(map[string]any(itemSchema)), childPath(path, itemKey, i), nil)
		if err != nil {
			return nil, err
		}
		if unique {
			fp := Fingerprint(v)
			if seen[fp] {
				if failures++; failures >= maxUniqueFailures {
					break
				}
				continue
			}
			seen[fp] = true
		}
		out = append(out, v)
		nctx.Items = append(nctx.Items, c)
	}
	if len(out) < lo {
		return nil, malformed("could only produce %d of %d unique items", len(out), lo)
	}

	if contains, ok := asSchema(node["contains"]); ok && itemKey != "contains" {
		if err := w.placeContains(contains, path, nctx, &out, hi, unique); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// itemBounds applies the global floor and cap to minItems and maxItems.
// hi is -1 when the length is unbounded.
func (w *walker) itemBounds(node Schema) (lo, hi int, err error) {
	lo = node.intOr("minItems", 0)
	hi = node.intOr("maxItems", -1)
	if g := w.opts.MinItems; g > lo && (hi < 0 || g <= hi) {
		lo = g
	}
	if g := w.opts.MaxItems; g > 0 {
		if c := max(g, lo); hi < 0 || c < hi {
			hi = c
		}
	}
	if hi >= 0 && lo > hi {
		return 0, 0, malformed("minItems %d exceeds maxItems %d", lo, hi)
	}
	return lo, hi, nil
}

// itemCount applies the optionals policy to a length range.
func (w *walker) itemCount(lo, drawLo, hi int) int {
	p := w.opts.OptionalsProbability
	switch {
	case w.opts.AlwaysFakeOptionals:
		return hi
	case p != nil && w.opts.FixedProbabilities:
		return max(lo, int(math.Round(float64(hi)**p)))
	case p != nil:
		return max(lo, int(math.Round(float64(w.rnd.Int(drawLo, hi))**p)))
	}
	return w.rnd.Int(drawLo, hi)
}

// placeContains overwrites a random slot with a value matching contains.
func (w *walker) placeContains(contains Schema, path []string, nctx *Context, out *[]any, hi int, unique bool) error {
	items := *out
	for attempt := 0; attempt < maxNotRetries; attempt++ {
		v, c, err := w.traverse(cloneValue(map[string]any(contains)), childPath(path, "contains"), nil)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			if hi == 0 {
				return malformed("contains cannot be satisfied with maxItems 0")
			}
			*out = append(items, v)
			nctx.Items = append(nctx.Items, c)
			return nil
		}
		idx := w.rnd.Int(0, len(items)-1)
		if unique && containsOther(items, idx, v) {
			continue
		}
		items[idx] = v
		nctx.Items[idx] = c
		return nil
	}
	return nil
}

func containsOther(items []any, skip int, v any) bool {
	for i, item := range items {
		if i != skip && valuesEqual(item, v) {
			return true
		}
	}
	return false
}

// tuple generates one value per positional schema, then fills any items
// minItems still requires from extra. Slots past maxItems are dropped.
func (w *walker) tuple(node Schema, path []string, nctx *Context, key string, tuple []any, extraKey string, extra map[string]any) (any, error) {
	lo, hi, err := w.itemBounds(node)
	if err != nil {
		return nil, err
	}
	if hi >= 0 && len(tuple) > hi {
		tuple = tuple[:hi]
	}
	out := make([]any, 0, len(tuple))
	for i, item := range tuple {
		v, c, err := w.traverse(cloneValue(item), childPath(path, key, i), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		nctx.Items = append(nctx.Items, c)
	}
	for i := len(out); extra != nil && i < lo; i++ {
		v, c, err := w.traverse(cloneValue(extra), childPath(path, extraKey, i), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		nctx.Items = append(nctx.Items, c)
	}
	return out, nil
}
