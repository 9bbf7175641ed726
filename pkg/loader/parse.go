package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/speakeasy-api/openapi/openapi"
	"gopkg.in/yaml.v3"
)

// Parser decodes document bytes into native maps, slices and scalars.
type Parser interface {
	CanHandle(uri string, data []byte) bool
	Parse(ctx context.Context, data []byte) (any, error)
}

// OpenAPIParser handles OpenAPI documents. The document is validated, then
// re-marshaled so the engine sees the library's normalized form.
type OpenAPIParser struct {
	// Strict fails on validation errors instead of ignoring them.
	Strict bool
}

func (p OpenAPIParser) CanHandle(_ string, data []byte) bool {
	var head struct {
		OpenAPI string `yaml:"openapi"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return false
	}
	return head.OpenAPI != ""
}

func (p OpenAPIParser) Parse(ctx context.Context, data []byte) (any, error) {
	doc, validationErrs, err := openapi.Unmarshal(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if p.Strict && len(validationErrs) > 0 {
		return nil, fmt.Errorf("OpenAPI validation failed: %v", validationErrs[0])
	}

	var buf bytes.Buffer
	if err := openapi.Marshal(ctx, doc, &buf); err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI document: %w", err)
	}
	return YAMLParser{}.Parse(ctx, buf.Bytes())
}

// JSONParser handles JSON documents.
type JSONParser struct{}

func (JSONParser) CanHandle(uri string, data []byte) bool {
	if strings.EqualFold(path.Ext(stripFragment(uri)), ".json") {
		return true
	}
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func (JSONParser) Parse(_ context.Context, data []byte) (any, error) {
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return out, nil
}

// YAMLParser handles YAML documents and accepts anything as a last resort.
type YAMLParser struct{}

func (YAMLParser) CanHandle(string, []byte) bool { return true }

func (YAMLParser) Parse(_ context.Context, data []byte) (any, error) {
	var out any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	return normalize(out), nil
}

// normalize converts YAML's non-string-keyed maps into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}

func stripFragment(uri string) string {
	if i := strings.IndexByte(uri, '#'); i >= 0 {
		return uri[:i]
	}
	return uri
}
