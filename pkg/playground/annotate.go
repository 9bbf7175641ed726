package playground

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/speakeasy-api/openapi/openapi"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/pkg/loader"
	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// AnnotateConfig configures AnnotateExamples.
type AnnotateConfig struct {
	// Strict turns validation findings and generation failures into errors.
	Strict bool
	// Options is the engine option map each directive's options overlay.
	Options map[string]any
	Formats *format.Registry
	Hooks   *schemagen.Hooks
	Logger  schemagen.Logger
}

// AnnotateResult is the rewritten document.
type AnnotateResult struct {
	Document  string   `json:"document"`
	Annotated []string `json:"annotated"`
	Warnings  []string `json:"warnings"`
}

// marked is a node carrying the extension.
type marked struct {
	node      *yaml.Node
	path      []string
	directive *ExampleDirective
}

// literalKeys hold data, not schemas, and are never searched for markers.
var literalKeys = map[string]bool{
	"example":  true,
	"examples": true,
	"default":  true,
	"enum":     true,
	"const":    true,
}

// AnnotateExamples validates an OpenAPI document, generates values for
// every schema or media type marked with x-schemafaker and writes them as
// examples, removing the marker. Marked nodes whose generation fails keep
// their marker and are reported as warnings unless cfg.Strict is set.
func AnnotateExamples(ctx context.Context, oasYAML string, cfg AnnotateConfig) (*AnnotateResult, error) {
	result := &AnnotateResult{
		Annotated: []string{},
		Warnings:  []string{},
	}

	doc, validationErrs, err := openapi.Unmarshal(ctx, strings.NewReader(oasYAML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI document: %w", err)
	}
	if len(validationErrs) > 0 {
		if cfg.Strict {
			return nil, fmt.Errorf("OpenAPI validation failed: %v", validationErrs[0])
		}
		for _, verr := range validationErrs {
			result.Warnings = append(result.Warnings, fmt.Sprintf("validation: %v", verr))
		}
	}

	var normalized strings.Builder
	if err := openapi.Marshal(ctx, doc, &normalized); err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(normalized.String()), &root); err != nil {
		return nil, fmt.Errorf("failed to read normalized document: %w", err)
	}
	data, err := loader.YAMLParser{}.Parse(ctx, []byte(normalized.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode normalized document: %w", err)
	}

	var found []marked
	var parseErrs []error
	if len(root.Content) > 0 {
		collectMarked(root.Content[0], nil, &found, &parseErrs)
	}

	var genErrs []error
	genErrs = append(genErrs, parseErrs...)
	for _, m := range found {
		values, schemaPath, err := generateFor(ctx, cfg, data, m)
		if err != nil {
			genErrs = append(genErrs, &LocationError{Location: schemagen.FormatPath(m.path), Err: err})
			continue
		}
		writeExamples(m, values, isMediaType(m.node, m.path))
		result.Annotated = append(result.Annotated, schemagen.FormatPath(schemaPath))
	}

	if len(genErrs) > 0 {
		if cfg.Strict {
			return nil, fmt.Errorf("%s", FormatGenerationErrors(genErrs))
		}
		for _, e := range genErrs {
			result.Warnings = append(result.Warnings, e.Error())
		}
	}

	var out strings.Builder
	enc := yaml.NewEncoder(&out)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to encode annotated document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode annotated document: %w", err)
	}

	// Round-trip once more so the output is validated and formatted the
	// same way as the input.
	final, validationErrs, err := openapi.Unmarshal(ctx, strings.NewReader(out.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse annotated document: %w", err)
	}
	if len(validationErrs) > 0 {
		if cfg.Strict {
			return nil, fmt.Errorf("annotated document failed validation: %v", validationErrs[0])
		}
		for _, verr := range validationErrs {
			msg := fmt.Sprintf("validation: %v", verr)
			if !contains(result.Warnings, msg) {
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}

	var buf strings.Builder
	if err := openapi.Marshal(ctx, final, &buf); err != nil {
		return nil, fmt.Errorf("failed to marshal annotated document: %w", err)
	}
	result.Document = buf.String()
	return result, nil
}

// collectMarked walks the YAML tree recording nodes that carry the
// extension, in document order.
func collectMarked(node *yaml.Node, path []string, found *[]marked, errs *[]error) {
	switch node.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key, value := node.Content[i].Value, node.Content[i+1]
			if key == ExtensionName {
				d, err := ParseExampleExtension(value)
				if err != nil {
					*errs = append(*errs, &LocationError{Location: schemagen.FormatPath(path), Err: err})
					continue
				}
				if d != nil {
					*found = append(*found, marked{node: node, path: append([]string{}, path...), directive: d})
				}
				continue
			}
			if literalKeys[key] || strings.HasPrefix(key, "x-") {
				continue
			}
			collectMarked(value, append(path, key), found, errs)
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			collectMarked(item, append(path, strconv.Itoa(i)), found, errs)
		}
	}
}

// isMediaType reports whether a marked node is a media type object, whose
// examples are generated from its schema member.
func isMediaType(node *yaml.Node, path []string) bool {
	if len(path) < 2 || path[len(path)-2] != "content" {
		return false
	}
	_, ok := mappingValue(node, "schema")
	return ok
}

func generateFor(ctx context.Context, cfg AnnotateConfig, data any, m marked) ([]any, []string, error) {
	schemaPath := m.path
	if isMediaType(m.node, m.path) {
		schemaPath = append(append([]string{}, m.path...), "schema")
	}

	raw := maps.Clone(cfg.Options)
	if raw == nil {
		raw = map[string]any{}
	}
	maps.Copy(raw, m.directive.Options)
	if m.directive.Seed > 0 {
		raw["seed"] = m.directive.Seed
	}
	opts, err := schemagen.DecodeOptions(raw)
	if err != nil {
		return nil, nil, err
	}

	fns := []schemagen.Option{}
	if cfg.Formats != nil {
		fns = append(fns, schemagen.WithFormats(cfg.Formats))
	}
	if cfg.Hooks != nil {
		fns = append(fns, schemagen.WithHooks(cfg.Hooks))
	}
	if cfg.Logger != nil {
		fns = append(fns, schemagen.WithLogger(cfg.Logger))
	}
	g, err := schemagen.New(opts, fns...)
	if err != nil {
		return nil, nil, err
	}

	values := make([]any, 0, m.directive.Count)
	for range m.directive.Count {
		res, err := g.GenerateAt(ctx, data, schemagen.FormatPath(schemaPath), nil)
		if err != nil {
			return nil, nil, err
		}
		values = append(values, render.Sanitize(res.Value))
	}
	return values, schemaPath, nil
}

// writeExamples replaces the marker with the generated examples.
func writeExamples(m marked, values []any, mediaType bool) {
	removeKey(m.node, ExtensionName)

	target := m.directive.Target
	if target == "" {
		target = TargetExample
		if len(values) > 1 {
			target = TargetExamples
		}
	}

	var value *yaml.Node
	switch {
	case target == TargetExample:
		value = encodeNode(values[0])
	case mediaType:
		value = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for i, v := range values {
			entry := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			entry.Content = append(entry.Content, scalarKey("value"), encodeNode(v))
			value.Content = append(value.Content, scalarKey(fmt.Sprintf("generated-%d", i+1)), entry)
		}
	default:
		value = encodeNode(values)
	}
	setKey(m.node, string(target), value)
}

func encodeNode(v any) *yaml.Node {
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
	return n
}

func scalarKey(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mappingValue(node *yaml.Node, key string) (*yaml.Node, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1], true
		}
	}
	return nil, false
}

func setKey(node *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content[i+1] = value
			return
		}
	}
	node.Content = append(node.Content, scalarKey(key), value)
}

func removeKey(node *yaml.Node, key string) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			node.Content = append(node.Content[:i], node.Content[i+2:]...)
			return
		}
	}
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
