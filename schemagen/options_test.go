package schemagen

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/random"
)

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"refDepthMax":          "5",
		"alwaysFakeOptionals":  true,
		"optionalsProbability": 0.25,
		"ignoreProperties":     []any{"secret", "/^x_/"},
		"seed":                 42,
	})
	if err != nil {
		t.Fatalf("DecodeOptions() error = %v", err)
	}
	want := DefaultOptions()
	want.RefDepthMax = 5
	want.AlwaysFakeOptionals = true
	want.OptionalsProbability = Probability(0.25)
	want.IgnoreProperties = []string{"secret", "/^x_/"}
	want.Seed = 42
	if diff := cmp.Diff(want, opts); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err := DecodeOptions(map[string]any{"refDepth": 1}); err == nil {
		t.Error("unknown keys should be rejected")
	}
	if _, err := DecodeOptions(map[string]any{"optionalsProbability": 2}); err == nil {
		t.Error("probability above 1 should be rejected")
	}
	if _, err := DecodeOptions(map[string]any{"refDepthMin": 4, "refDepthMax": 1}); err == nil {
		t.Error("inverted ref depth should be rejected")
	}
}

func TestSeedIsDeterministic(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "string"},
			"b": map[string]any{"type": "array", "items": map[string]any{"type": "number"}},
			"c": map[string]any{"type": "string", "format": "uuid"},
		},
	}
	first := mustGenerate(t, seeded(77), schema, nil)
	second := mustGenerate(t, seeded(77), schema, nil)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("same seed produced different values (-first +second):\n%s", diff)
	}
}

func TestOptionalsPolicy(t *testing.T) {
	props := map[string]any{}
	for _, k := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		props[k] = map[string]any{"type": "boolean"}
	}
	schema := map[string]any{"type": "object", "required": []any{"a"}, "properties": props}

	opts := seeded(1)
	opts.AlwaysFakeOptionals = true
	if n := len(mustGenerate(t, opts, schema, nil).(map[string]any)); n != 10 {
		t.Errorf("alwaysFakeOptionals produced %d keys", n)
	}

	opts = seeded(1)
	opts.RequiredOnly = true
	if got := mustGenerate(t, opts, schema, nil).(map[string]any); len(got) != 1 {
		t.Errorf("requiredOnly produced %v", got)
	}

	opts = seeded(1)
	opts.OptionalsProbability = Probability(0.5)
	opts.FixedProbabilities = true
	for seed := uint64(0); seed < 20; seed++ {
		opts.Seed = seed + 1
		// 1 required + round(0.5 * 9) optionals
		if n := len(mustGenerate(t, opts, schema, nil).(map[string]any)); n != 6 {
			t.Fatalf("seed %d: fixed probability produced %d keys", seed, n)
		}
	}

	opts = seeded(1)
	opts.OptionalsProbability = Probability(0)
	if got := mustGenerate(t, opts, schema, nil).(map[string]any); len(got) != 1 {
		t.Errorf("zero probability produced %v", got)
	}
}

func TestPropertyCountBounds(t *testing.T) {
	schema := map[string]any{
		"type":                 "object",
		"minProperties":        3,
		"maxProperties":        4,
		"properties":           map[string]any{"a": map[string]any{"type": "null"}},
		"additionalProperties": map[string]any{"type": "integer"},
	}
	for seed := uint64(0); seed < seeds; seed++ {
		got := mustGenerate(t, seeded(seed), schema, nil).(map[string]any)
		if len(got) < 3 || len(got) > 4 {
			t.Fatalf("seed %d: %d properties in %v", seed, len(got), got)
		}
	}

	closed := map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"a": map[string]any{"type": "null"}},
		"additionalProperties": false,
	}
	opts := seeded(1)
	opts.AlwaysFakeOptionals = true
	if diff := cmp.Diff(map[string]any{"a": nil}, mustGenerate(t, opts, closed, nil)); diff != "" {
		t.Errorf("closed object mismatch (-want +got):\n%s", diff)
	}
}

func TestPatternProperties(t *testing.T) {
	schema := map[string]any{
		"type":                 "object",
		"patternProperties":    map[string]any{"^S_[a-z]{3}$": map[string]any{"type": "string"}},
		"additionalProperties": false,
		"minProperties":        2,
	}
	key := regexp.MustCompile(`^S_[a-z]{3}$`)
	for seed := uint64(0); seed < 50; seed++ {
		got := mustGenerate(t, seeded(seed), schema, nil).(map[string]any)
		if len(got) < 2 {
			t.Fatalf("seed %d: %v", seed, got)
		}
		for k, v := range got {
			if !key.MatchString(k) {
				t.Fatalf("seed %d: key %q does not match", seed, k)
			}
			if _, ok := v.(string); !ok {
				t.Fatalf("seed %d: %q = %T", seed, k, v)
			}
		}
	}
}

func TestDependencies(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"card"},
		"properties": map[string]any{
			"card":    map[string]any{"type": "string"},
			"billing": map[string]any{"type": "string"},
			"zip":     map[string]any{"type": "string"},
		},
		"dependencies": map[string]any{
			"card":    []any{"billing"},
			"billing": map[string]any{"required": []any{"zip"}},
		},
	}
	opts := seeded(1)
	opts.RequiredOnly = true
	got := mustGenerate(t, opts, schema, nil).(map[string]any)
	for _, k := range []string{"card", "billing", "zip"} {
		if _, ok := got[k]; !ok {
			t.Errorf("%s missing from %v", k, got)
		}
	}
}

func TestIgnoreProperties(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"x_required"},
		"properties": map[string]any{
			"x_required": map[string]any{"type": "null"},
			"x_internal": map[string]any{"type": "null"},
			"secret":     map[string]any{"type": "null"},
			"public":     map[string]any{"type": "null"},
		},
	}
	opts := seeded(1)
	opts.AlwaysFakeOptionals = true
	opts.IgnoreProperties = []string{"secret", "/^x_/"}
	got := mustGenerate(t, opts, schema, nil)
	if diff := cmp.Diff(map[string]any{"x_required": nil, "public": nil}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLiteralPreferences(t *testing.T) {
	schema := map[string]any{"type": "string", "default": "", "examples": []any{"ex"}}

	opts := seeded(1)
	opts.UseDefaultValue = true
	if v := mustGenerate(t, opts, schema, nil); v != "" {
		t.Errorf("default = %#v", v)
	}
	opts.ReplaceEmptyByRandomValue = true
	if v := mustGenerate(t, opts, schema, nil); v == "" {
		t.Error("empty default should be replaced")
	}

	opts = seeded(1)
	opts.UseExamplesValue = true
	for seed := uint64(0); seed < 20; seed++ {
		opts.Seed = seed + 1
		if v := mustGenerate(t, opts, schema, nil); v != "ex" && v != "" {
			t.Fatalf("examples pick = %#v", v)
		}
	}
}

func TestTemplate(t *testing.T) {
	schema := map[string]any{
		"type":     "object",
		"required": []any{"first", "last", "full", "copy"},
		"properties": map[string]any{
			"first": map[string]any{"const": "Ada"},
			"last":  map[string]any{"const": "Lovelace"},
			"full":  map[string]any{"type": "string", "template": "#{first} #{last}"},
			"copy":  map[string]any{"template": "#{first}"},
		},
	}
	got := mustGenerate(t, seeded(1), schema, nil)
	want := map[string]any{"first": "Ada", "last": "Lovelace", "full": "Ada Lovelace", "copy": "Ada"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGlobalCaps(t *testing.T) {
	opts := seeded(1)
	opts.MaxItems = 2
	opts.MaxLength = 3
	opts.MinItems = 2
	for seed := uint64(0); seed < 30; seed++ {
		opts.Seed = seed + 1
		arr := mustGenerate(t, opts, map[string]any{"type": "array", "items": map[string]any{"type": "string"}}, nil).([]any)
		if len(arr) != 2 {
			t.Fatalf("global item bounds produced %d items", len(arr))
		}
		for _, s := range arr {
			if len([]rune(s.(string))) > 3 {
				t.Fatalf("global maxLength exceeded by %q", s)
			}
		}
	}
	// Schema bounds win over global caps.
	opts.MaxItems = 1
	arr := mustGenerate(t, opts, map[string]any{"type": "array", "items": map[string]any{"type": "null"}, "minItems": 4, "maxItems": 4}, nil).([]any)
	if len(arr) != 4 {
		t.Errorf("schema minItems overridden: %d items", len(arr))
	}
}

func TestHooksAndGeneratorFunc(t *testing.T) {
	hooks := NewHooks()
	hooks.Register("x-upper", func(_ context.Context, arg any, _ Schema, _ *random.Rand) (any, error) {
		return strings.ToUpper(arg.(string)), nil
	})
	g, err := New(seeded(1), WithHooks(hooks))
	if err != nil {
		t.Fatal(err)
	}
	res, err := g.Generate(context.Background(), map[string]any{"type": "string", "x-upper": "shout"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Value != "SHOUT" {
		t.Errorf("hook value = %#v", res.Value)
	}
	if diff := cmp.Diff([]string{"x-upper"}, hooks.Keywords()); diff != "" {
		t.Errorf("keywords mismatch (-want +got):\n%s", diff)
	}

	schema := map[string]any{
		"type": "integer",
		"generate": GeneratorFunc(func(Schema, []string) any {
			return "12"
		}),
	}
	if v := mustGenerate(t, seeded(1), schema, nil); v != int64(12) {
		t.Errorf("generator func value = %#v", v)
	}
	schema["generate"] = GeneratorFunc(func(Schema, []string) any { return "nope" })
	schema["minimum"], schema["maximum"] = 3, 3
	if v := mustGenerate(t, seeded(1), schema, nil); v != int64(3) {
		t.Errorf("mismatched generator result should fall through, got %#v", v)
	}
}

func TestCustomFormat(t *testing.T) {
	g, err := New(seeded(1))
	if err != nil {
		t.Fatal(err)
	}
	g.RegisterFormat("ticket", func(*random.Rand, map[string]any) (any, error) { return "T-1", nil })
	res, err := g.Generate(context.Background(), map[string]any{"type": "string", "format": "ticket"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.String() != `"T-1"` {
		t.Errorf("String() = %s", res.String())
	}
	if _, known := g.Formats().Lookup("ticket"); !known {
		t.Error("registered format is not listed")
	}
	if _, known := format.NewRegistry().Lookup("ticket"); known {
		t.Error("registration leaked into a fresh registry")
	}
}

func TestContextTree(t *testing.T) {
	schema := map[string]any{
		"type":        "object",
		"title":       "Order",
		"required":    []any{"lines"},
		"description": "A purchase",
		"properties": map[string]any{
			"lines": map[string]any{
				"type":     "array",
				"minItems": 1,
				"maxItems": 1,
				"items": map[string]any{
					"type":     "object",
					"required": []any{"sku"},
					"properties": map[string]any{
						"sku": map[string]any{"type": "string", "$comment": "stock keeping unit"},
					},
				},
			},
		},
	}
	g, err := New(seeded(1))
	if err != nil {
		t.Fatal(err)
	}
	res, err := g.Generate(context.Background(), schema, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Context.Title != "Order" || res.Context.Description != "A purchase" {
		t.Errorf("root context = %+v", res.Context)
	}
	sku := res.Context.Lookup("lines", 0, "sku")
	if sku == nil || sku.Comment != "stock keeping unit" {
		t.Fatalf("sku context = %+v", sku)
	}
	if got := sku.Path(); got != "#/properties/lines/items/0/properties/sku" {
		t.Errorf("sku path = %s", got)
	}
	if res.Context.Lookup("lines", "7") != nil {
		t.Error("out of range lookup should be nil")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelDebug, &buf)
	opts := seeded(1)
	g, err := New(opts, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	schema := map[string]any{
		"definitions": map[string]any{"a": map[string]any{"type": "null"}},
		"$ref":        "#/definitions/a",
	}
	if _, err := g.Generate(context.Background(), schema, nil); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "[DEBUG]") || !strings.Contains(out, "expand #/definitions/a") {
		t.Errorf("debug log missing ref expansion:\n%s", out)
	}
	if !strings.Contains(out, "component=resolver") {
		t.Errorf("resolver lines should carry the component field:\n%s", out)
	}

	buf.Reset()
	quiet := NewLogger(LevelWarn, &buf)
	quiet.Debugf("hidden")
	quiet.Warnf("shown %d", 1)
	if got := buf.String(); strings.Contains(got, "hidden") || !strings.Contains(got, "shown 1") {
		t.Errorf("level filtering failed:\n%s", got)
	}
}
