package schemagen

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
)

// Schema is a JSON Schema node in its language-native form.
type Schema map[string]any

// SchemaType enumerates the JSON Schema primitive types the engine can
// synthesize. TypeUnknown covers both a missing and an unrecognized type.
type SchemaType int

const (
	TypeUnknown SchemaType = iota
	TypeObject
	TypeArray
	TypeString
	TypeNumber
	TypeInteger
	TypeBoolean
	TypeNull
)

var typeNames = map[string]SchemaType{
	"object":  TypeObject,
	"array":   TypeArray,
	"string":  TypeString,
	"number":  TypeNumber,
	"integer": TypeInteger,
	"boolean": TypeBoolean,
	"null":    TypeNull,
}

// ParseSchemaType maps a type keyword value to its SchemaType.
func ParseSchemaType(s string) SchemaType {
	return typeNames[s]
}

func (t SchemaType) String() string {
	switch t {
	case TypeObject:
		return "object"
	case TypeArray:
		return "array"
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeInteger:
		return "integer"
	case TypeBoolean:
		return "boolean"
	case TypeNull:
		return "null"
	default:
		return "unknown"
	}
}

// scalarTypes are the types `not` may fall back to.
var scalarTypes = []string{"integer", "number", "string", "boolean", "null"}

// anyTypeSchema stands in for `true` and for additionalProperties: true.
func anyTypeSchema() Schema {
	return Schema{"type": []any{"integer", "number", "string", "boolean"}}
}

// asSchema views v as a schema node. `true` becomes the any-type schema.
func asSchema(v any) (Schema, bool) {
	switch t := v.(type) {
	case Schema:
		return t, true
	case map[string]any:
		return Schema(t), true
	case bool:
		if t {
			return anyTypeSchema(), true
		}
	}
	return nil, false
}

func (s Schema) has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s Schema) str(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

func (s Schema) num(key string) (float64, bool) {
	return toFloat(s[key])
}

// intOr returns the keyword as an int, or def when absent or non-numeric.
func (s Schema) intOr(key string, def int) int {
	f, ok := s.num(key)
	if !ok || math.IsNaN(f) {
		return def
	}
	return int(f)
}

func (s Schema) list(key string) ([]any, bool) {
	v, ok := s[key].([]any)
	return v, ok
}

func (s Schema) sub(key string) (Schema, bool) {
	switch t := s[key].(type) {
	case map[string]any:
		return Schema(t), true
	case Schema:
		return t, true
	}
	return nil, false
}

// strings returns a string-list keyword such as required, deduplicated
// and in declaration order.
func (s Schema) strings(key string) []string {
	var raw []any
	switch t := s[key].(type) {
	case []any:
		raw = t
	case []string:
		for _, v := range t {
			raw = append(raw, v)
		}
	}
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		if str, ok := v.(string); ok && !seen[str] {
			seen[str] = true
			out = append(out, str)
		}
	}
	return out
}

// types returns the declared type names; a scalar type yields one entry.
func (s Schema) types() []string {
	switch t := s["type"].(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if name, ok := v.(string); ok {
				out = append(out, name)
			}
		}
		return out
	case []string:
		return t
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func isIntegral(f float64) bool {
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// childPath returns a fresh slice so sibling paths never share backing arrays.
func childPath(path []string, segs ...any) []string {
	out := make([]string, len(path), len(path)+len(segs))
	copy(out, path)
	for _, seg := range segs {
		switch v := seg.(type) {
		case string:
			out = append(out, v)
		case int:
			out = append(out, strconv.Itoa(v))
		}
	}
	return out
}
