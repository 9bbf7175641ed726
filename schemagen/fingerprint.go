package schemagen

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"sort"
	"strconv"
	"strings"
)

// maxCanonDepth guards against pathological nesting.
const maxCanonDepth = 1000

// Fingerprint returns a deterministic hex digest of a JSON-compatible value.
// Equal values (including 1 and 1.0, and maps with reordered keys) share a
// fingerprint.
func Fingerprint(v any) string {
	ctx := &canonCtx{maxDepth: maxCanonDepth}
	var b strings.Builder
	ctx.write(&b, v)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// valuesEqual compares two values structurally.
func valuesEqual(a, b any) bool {
	return Fingerprint(a) == Fingerprint(b)
}

// containsValue reports whether list holds a value equal to v.
func containsValue(list []any, v any) bool {
	fp := Fingerprint(v)
	for _, item := range list {
		if Fingerprint(item) == fp {
			return true
		}
	}
	return false
}

// canonCtx holds state for one canonicalization pass.
type canonCtx struct {
	depth    int
	maxDepth int
}

func (c *canonCtx) write(b *strings.Builder, v any) {
	if c.depth > c.maxDepth {
		b.WriteString("…")
		return
	}
	c.depth++
	defer func() { c.depth-- }()

	if f, ok := toFloat(v); ok {
		b.WriteString("n:")
		b.WriteString(canonNumber(f))
		return
	}

	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		b.WriteString("s:")
		b.WriteString(strconv.Quote(t))
	case []any:
		b.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			c.write(b, item)
		}
		b.WriteByte(']')
	case map[string]any:
		c.writeMap(b, t)
	case Schema:
		c.writeMap(b, t)
	default:
		// Funcs and other opaque values only need a stable tag.
		b.WriteString("?")
	}
}

func (c *canonCtx) writeMap(b *strings.Builder, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(k))
		b.WriteByte(':')
		c.write(b, m[k])
	}
	b.WriteByte('}')
}

func canonNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
