package schemagen

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFingerprint(t *testing.T) {
	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"int and float", 1, 1.0, true},
		{"int64 and float", int64(3), 3.0, true},
		{"key order", map[string]any{"a": 1, "b": 2}, map[string]any{"b": 2, "a": 1}, true},
		{"schema and map", Schema{"a": "x"}, map[string]any{"a": "x"}, true},
		{"list order matters", []any{1, 2}, []any{2, 1}, false},
		{"string vs number", "1", 1, false},
		{"null vs false", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.a) == Fingerprint(tt.b); got != tt.equal {
				t.Errorf("equal = %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMergeModes(t *testing.T) {
	dst := Schema{"type": "string", "required": []any{"a"}, "properties": map[string]any{"a": map[string]any{"title": "A"}}}
	src := Schema{"type": "integer", "required": []any{"b", "a"}, "properties": map[string]any{"a": map[string]any{"description": "d"}}}

	fill := cloneSchema(dst)
	mergeInto(fill, src, mergeFill)
	want := Schema{
		"type":       "string",
		"required":   []any{"a", "b"},
		"properties": map[string]any{"a": map[string]any{"title": "A", "description": "d"}},
	}
	if diff := cmp.Diff(want, fill); diff != "" {
		t.Errorf("fill mismatch (-want +got):\n%s", diff)
	}

	override := cloneSchema(dst)
	mergeInto(override, src, mergeOverride)
	if override["type"] != "integer" {
		t.Errorf("override kept %v", override["type"])
	}

	src["properties"].(map[string]any)["a"].(map[string]any)["description"] = "changed"
	if fill["properties"].(map[string]any)["a"].(map[string]any)["description"] != "d" {
		t.Error("merged values alias the source")
	}
}

func TestOmitKeysCopies(t *testing.T) {
	s := Schema{"a": map[string]any{"b": 1}, "c": 2}
	out := omitKeys(s, "c")
	out["a"].(map[string]any)["b"] = 9
	if s["a"].(map[string]any)["b"] != 1 {
		t.Error("omitKeys must deep copy")
	}
	if out.has("c") {
		t.Error("c should be omitted")
	}
}

func TestCastTo(t *testing.T) {
	tests := []struct {
		typ  SchemaType
		in   any
		want any
		ok   bool
	}{
		{TypeInteger, "12", int64(12), true},
		{TypeInteger, 3.9, int64(3), true},
		{TypeInteger, "x", nil, false},
		{TypeNumber, "1.5", 1.5, true},
		{TypeBoolean, "true", true, true},
		{TypeBoolean, 0, false, true},
		{TypeString, 7, "7", true},
		{TypeString, map[string]any{"a": 1}, `{"a":1}`, true},
		{TypeArray, "x", []any{"x"}, true},
		{TypeObject, []any{}, nil, false},
		{TypeNull, nil, nil, true},
		{TypeUnknown, "as-is", "as-is", true},
	}
	for _, tt := range tests {
		got, ok := castTo(tt.typ, tt.in)
		if ok != tt.ok {
			t.Errorf("castTo(%s, %#v) ok = %v, want %v", tt.typ, tt.in, ok, tt.ok)
			continue
		}
		if ok {
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("castTo(%s, %#v) mismatch (-want +got):\n%s", tt.typ, tt.in, diff)
			}
		}
	}
}

func TestNumberHelpers(t *testing.T) {
	if got := integralStep(0.5); got != 1 {
		t.Errorf("integralStep(0.5) = %v", got)
	}
	if got := integralStep(0.3); got != 3 {
		t.Errorf("integralStep(0.3) = %v", got)
	}
	if got := decimals(0.025); got != 3 {
		t.Errorf("decimals(0.025) = %v", got)
	}
	if got := roundTo(0.1+0.2, 1); got != 0.3 {
		t.Errorf("roundTo = %v", got)
	}
	if got := snap(2.9999999999999996, math.Ceil); got != 3 {
		t.Errorf("snap = %v", got)
	}
}

func TestSchemaTypeNames(t *testing.T) {
	for _, name := range []string{"object", "array", "string", "number", "integer", "boolean", "null"} {
		if got := ParseSchemaType(name).String(); got != name {
			t.Errorf("round trip of %s gave %s", name, got)
		}
	}
	if ParseSchemaType("decimal") != TypeUnknown {
		t.Error("unknown names should map to TypeUnknown")
	}
}
