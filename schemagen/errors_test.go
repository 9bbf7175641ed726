package schemagen

import (
	"context"
	"errors"
	"testing"

	"github.com/speakeasy-api/schemafaker/format"
)

func generateErr(t *testing.T, opts Options, schema any, fns ...Option) error {
	t.Helper()
	g, err := New(opts, fns...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	res, err := g.Generate(context.Background(), schema, nil)
	if err == nil {
		t.Fatalf("Generate() = %v, want an error", res)
	}
	if res != nil {
		t.Fatalf("Generate() returned a partial result %v alongside %v", res.Value, err)
	}
	return err
}

func TestErrorTaxonomy(t *testing.T) {
	unsupported := format.NewRegistry()
	unsupported.Register("credit-card", nil)

	tests := []struct {
		name   string
		schema map[string]any
		fns    []Option
		want   error
		path   string
	}{
		{
			name:   "missing ref",
			schema: map[string]any{"$ref": "#/definitions/missing"},
			want:   ErrReferenceNotFound,
			path:   "#",
		},
		{
			name: "unknown type below root",
			schema: map[string]any{
				"type":       "object",
				"required":   []any{"a"},
				"properties": map[string]any{"a": map[string]any{"type": "decimal"}},
			},
			want: ErrUnknownType,
			path: "#/properties/a",
		},
		{
			name:   "unknown format",
			schema: map[string]any{"type": "string", "format": "zip-code"},
			want:   ErrUnknownFormat,
			path:   "#",
		},
		{
			name:   "unsupported format",
			schema: map[string]any{"type": "string", "format": "credit-card"},
			fns:    []Option{WithFormats(unsupported)},
			want:   ErrUnsupportedFormat,
			path:   "#",
		},
		{
			name:   "array without item schema",
			schema: map[string]any{"type": "array", "minItems": 2},
			want:   ErrMalformedSchema,
			path:   "#",
		},
		{
			name: "items error carries its index",
			schema: map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 5, "maxLength": 1},
			},
			want: ErrMalformedSchema,
			path: "#/items/0",
		},
		{
			name:   "empty enum",
			schema: map[string]any{"enum": []any{}},
			want:   ErrMalformedSchema,
			path:   "#",
		},
		{
			name:   "false schema",
			schema: map[string]any{"type": "object", "required": []any{"a"}, "properties": map[string]any{"a": false}},
			want:   ErrMalformedSchema,
			path:   "#/properties/a",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := generateErr(t, seeded(1), tt.schema, tt.fns...)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			var pe *PathError
			if !errors.As(err, &pe) {
				t.Fatalf("error %v carries no path", err)
			}
			if got := FormatPath(pe.Path); got != tt.path {
				t.Errorf("path = %s, want %s", got, tt.path)
			}
		})
	}
}

func TestTolerantModes(t *testing.T) {
	opts := seeded(1)
	opts.IgnoreMissingRefs = true
	v := mustGenerate(t, opts, map[string]any{"$ref": "#/nope"}, nil)
	if m, ok := v.(map[string]any); !ok || len(m) != 0 {
		t.Errorf("missing ref = %#v, want empty object", v)
	}

	opts = seeded(1)
	opts.FailOnInvalidTypes = false
	opts.DefaultInvalidTypeProduct = "n/a"
	if v := mustGenerate(t, opts, map[string]any{"type": "decimal"}, nil); v != "n/a" {
		t.Errorf("fallback product = %#v", v)
	}
	opts.DefaultInvalidTypeProduct = "boolean"
	if v := mustGenerate(t, opts, map[string]any{"type": "decimal"}, nil); v != true && v != false {
		t.Errorf("type-name fallback = %#v, want a boolean", v)
	}

	opts = seeded(1)
	opts.FailOnInvalidFormat = false
	if _, ok := mustGenerate(t, opts, map[string]any{"type": "string", "format": "zip-code"}, nil).(string); !ok {
		t.Error("unknown format should fall back to a string")
	}
}

func TestCancelledContext(t *testing.T) {
	g, err := New(seeded(1))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, map[string]any{"type": "string"}, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestPathErrorMessage(t *testing.T) {
	err := &PathError{Path: []string{"properties", "a/b"}, Err: ErrUnknownType}
	if got, want := err.Error(), "#/properties/a~1b: unknown type"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
