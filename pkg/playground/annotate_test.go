package playground

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/schemafaker/schemagen"
)

const petstore = `openapi: 3.1.0
info:
  title: Pets
  version: 1.0.0
paths:
  /pets:
    get:
      responses:
        "200":
          description: OK
          content:
            application/json:
              x-schemafaker:
                count: 2
                seed: 9
              schema:
                type: array
                minItems: 1
                maxItems: 2
                items:
                  $ref: "#/components/schemas/Pet"
components:
  schemas:
    Pet:
      type: object
      x-schemafaker: true
      required: [id, name]
      properties:
        id:
          type: integer
          minimum: 1
          maximum: 100
        name:
          type: string
          enum: [rex, fido]
        tag:
          $ref: "#/components/schemas/Tag"
    Tag:
      type: string
      x-schemafaker:
        count: 3
        target: examples
        options:
          minLength: 2
      pattern: "^[a-z]{2,4}$"
    Plain:
      type: boolean
`

func decodeDoc(t *testing.T, doc string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := yaml.Unmarshal([]byte(doc), &out); err != nil {
		t.Fatalf("annotated document is not YAML: %v", err)
	}
	return out
}

func dig(t *testing.T, v any, path ...string) any {
	t.Helper()
	for _, p := range path {
		m, ok := v.(map[string]any)
		if !ok {
			t.Fatalf("expected mapping at %q, got %T", p, v)
		}
		v = m[p]
	}
	return v
}

func TestAnnotateExamples(t *testing.T) {
	result, err := AnnotateExamples(context.Background(), petstore, AnnotateConfig{})
	if err != nil {
		t.Fatalf("AnnotateExamples failed: %v", err)
	}

	if strings.Contains(result.Document, ExtensionName) {
		t.Errorf("marker left in document:\n%s", result.Document)
	}

	want := []string{
		"#/paths/~1pets/get/responses/200/content/application~1json/schema",
		"#/components/schemas/Pet",
		"#/components/schemas/Tag",
	}
	if len(result.Annotated) != len(want) {
		t.Fatalf("annotated = %v, want %v", result.Annotated, want)
	}
	for i := range want {
		if result.Annotated[i] != want[i] {
			t.Errorf("annotated[%d] = %s, want %s", i, result.Annotated[i], want[i])
		}
	}

	doc := decodeDoc(t, result.Document)

	pet, ok := dig(t, doc, "components", "schemas", "Pet", "example").(map[string]any)
	if !ok {
		t.Fatalf("Pet example missing:\n%s", result.Document)
	}
	if name := pet["name"]; name != "rex" && name != "fido" {
		t.Errorf("Pet example name = %v", name)
	}
	if id, ok := pet["id"].(int); !ok || id < 1 || id > 100 {
		t.Errorf("Pet example id = %v", pet["id"])
	}

	tags, ok := dig(t, doc, "components", "schemas", "Tag", "examples").([]any)
	if !ok || len(tags) != 3 {
		t.Fatalf("Tag examples = %v", dig(t, doc, "components", "schemas", "Tag", "examples"))
	}
	for _, tag := range tags {
		s, _ := tag.(string)
		if len(s) < 2 || len(s) > 4 {
			t.Errorf("Tag example %q violates the pattern", s)
		}
	}

	media := dig(t, doc, "paths", "/pets", "get", "responses", "200", "content", "application/json")
	examples, ok := dig(t, media, "examples").(map[string]any)
	if !ok || len(examples) != 2 {
		t.Fatalf("media type examples = %v", dig(t, media, "examples"))
	}
	list, ok := dig(t, examples, "generated-1", "value").([]any)
	if !ok || len(list) < 1 || len(list) > 2 {
		t.Errorf("generated-1 value = %v", dig(t, examples, "generated-1", "value"))
	}

	if dig(t, doc, "components", "schemas", "Plain", "example") != nil {
		t.Errorf("unmarked schema was annotated")
	}
}

func TestAnnotateExamples_SeedIsDeterministic(t *testing.T) {
	first, err := AnnotateExamples(context.Background(), petstore, AnnotateConfig{Options: map[string]any{"seed": 5}})
	if err != nil {
		t.Fatalf("AnnotateExamples failed: %v", err)
	}
	second, err := AnnotateExamples(context.Background(), petstore, AnnotateConfig{Options: map[string]any{"seed": 5}})
	if err != nil {
		t.Fatalf("AnnotateExamples failed: %v", err)
	}
	if first.Document != second.Document {
		t.Errorf("same seed produced different documents:\n%s\n---\n%s", first.Document, second.Document)
	}
}

const broken = `openapi: 3.1.0
info:
  title: Broken
  version: 1.0.0
paths: {}
components:
  schemas:
    Bad:
      type: object
      x-schemafaker: true
      required: [code]
      properties:
        code:
          type: string
          format: zip-code
    BadMarker:
      type: string
      x-schemafaker:
        count: 0
`

func TestAnnotateExamples_WarnsWhenLenient(t *testing.T) {
	result, err := AnnotateExamples(context.Background(), broken, AnnotateConfig{})
	if err != nil {
		t.Fatalf("AnnotateExamples failed: %v", err)
	}
	if len(result.Annotated) != 0 {
		t.Errorf("annotated = %v, want none", result.Annotated)
	}

	var sawFormat, sawMarker bool
	for _, w := range result.Warnings {
		if strings.Contains(w, "#/components/schemas/Bad") && strings.Contains(w, "format") {
			sawFormat = true
		}
		if strings.Contains(w, "count") {
			sawMarker = true
		}
	}
	if !sawFormat || !sawMarker {
		t.Errorf("warnings = %v", result.Warnings)
	}
	if !strings.Contains(result.Document, ExtensionName) {
		t.Errorf("failed marker should stay in the document")
	}
}

func TestAnnotateExamples_StrictFails(t *testing.T) {
	_, err := AnnotateExamples(context.Background(), broken, AnnotateConfig{Strict: true})
	if err == nil {
		t.Fatal("expected strict mode to fail")
	}
	msg := err.Error()
	for _, want := range []string{
		"Example generation failed (strict mode).",
		"Location: #/components/schemas/Bad/properties/code",
		"How to fix:",
		"The " + ExtensionName + " extension is invalid.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q:\n%s", want, msg)
		}
	}
}

func TestAnnotateExamples_RejectsNonOpenAPI(t *testing.T) {
	if _, err := AnnotateExamples(context.Background(), "{{{", AnnotateConfig{}); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestParseExampleExtension(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		want    *ExampleDirective
		wantErr string
	}{
		{name: "true", yaml: "true", want: &ExampleDirective{Count: 1}},
		{name: "false disables", yaml: "false", want: nil},
		{
			name: "full",
			yaml: "{count: 3, seed: 7, target: examples, options: {requiredOnly: true}}",
			want: &ExampleDirective{Count: 3, Seed: 7, Target: TargetExamples, Options: map[string]any{"requiredOnly": true}},
		},
		{name: "not a bool", yaml: "sometimes", wantErr: "must be a boolean or an object"},
		{name: "list", yaml: "[1]", wantErr: "must be a boolean or an object"},
		{name: "count range", yaml: "{count: 51}", wantErr: "between 1 and 50"},
		{name: "count type", yaml: "{count: many}", wantErr: "'count' must be an integer"},
		{name: "seed type", yaml: "{seed: -1}", wantErr: "'seed'"},
		{name: "target", yaml: "{target: samples}", wantErr: "'target'"},
		{name: "single target with count", yaml: "{target: example, count: 2}", wantErr: "holds a single value"},
		{name: "unknown key", yaml: "{cuont: 2}", wantErr: `unknown key "cuont"`},
		{name: "bad option", yaml: "{options: {nope: 1}}", wantErr: "invalid options"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc yaml.Node
			if err := yaml.Unmarshal([]byte(tt.yaml), &doc); err != nil {
				t.Fatalf("bad fixture: %v", err)
			}
			got, err := ParseExampleExtension(doc.Content[0])
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			if got == nil {
				return
			}
			if got.Count != tt.want.Count || got.Seed != tt.want.Seed || got.Target != tt.want.Target || len(got.Options) != len(tt.want.Options) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatGenerationErrors(t *testing.T) {
	if got := FormatGenerationErrors(nil); !strings.Contains(got, "no additional details") {
		t.Errorf("empty message = %q", got)
	}

	err := &LocationError{
		Location: "#/components/schemas/A",
		Err:      &schemagen.PathError{Path: []string{"components", "schemas", "A", "items"}, Err: schemagen.ErrReferenceNotFound},
	}
	got := FormatGenerationErrors([]error{err, errors.New("boom")})

	for _, want := range []string{
		"- A $ref could not be resolved.",
		"Location: #/components/schemas/A/items",
		"Details: reference not found",
		"- Example generation error.",
		"Details: boom",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("message missing %q:\n%s", want, got)
		}
	}
}
