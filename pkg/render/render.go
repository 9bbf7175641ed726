// Package render turns generated values into text.
package render

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/mattn/go-runewidth"
	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/schemafaker/schemagen"
)

// ErrUnknownRenderer is returned by ByName.
var ErrUnknownRenderer = errors.New("unknown renderer")

// DefaultCommentWidth is the display width comments are truncated to.
const DefaultCommentWidth = 80

// Renderer formats a value. ctx may be nil.
type Renderer interface {
	Render(value any, ctx *schemagen.Context) (string, error)
}

// Names lists the renderers ByName knows.
func Names() []string {
	return []string{"json", "json-compact", "yaml"}
}

// ByName returns the renderer registered under name.
func ByName(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON{Indent: "  "}, nil
	case "json-compact", "compact":
		return JSON{}, nil
	case "yaml", "yml":
		return YAML{Comments: true}, nil
	}
	return nil, fmt.Errorf("%w %q (want one of %s)", ErrUnknownRenderer, name, strings.Join(Names(), ", "))
}

// JSON renders JSON. An empty Indent produces compact output.
type JSON struct {
	Indent string
}

func (j JSON) Render(value any, _ *schemagen.Context) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if j.Indent != "" {
		enc.SetIndent("", j.Indent)
	}
	if err := enc.Encode(Sanitize(value)); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// YAML renders YAML. With Comments set, titles, descriptions and $comment
// annotations from the context tree become comments above their keys.
type YAML struct {
	Comments bool
	Width    int
}

func (y YAML) Render(value any, ctx *schemagen.Context) (string, error) {
	root, err := y.node(Sanitize(value), ctx)
	if err != nil {
		return "", err
	}
	doc := &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
	if y.Comments {
		doc.HeadComment = y.comment(ctx)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode YAML: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func (y YAML) node(value any, ctx *schemagen.Context) (*yaml.Node, error) {
	switch v := value.(type) {
	case map[string]any:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		if len(v) == 0 {
			n.Style = yaml.FlowStyle
		}
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			var child *schemagen.Context
			if ctx != nil {
				child = ctx.Properties[k]
			}
			key := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
			if y.Comments {
				key.HeadComment = y.comment(child)
			}
			val, err := y.node(v[k], child)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, key, val)
		}
		return n, nil
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		if len(v) == 0 {
			n.Style = yaml.FlowStyle
		}
		for i, item := range v {
			var child *schemagen.Context
			if ctx != nil && i < len(ctx.Items) {
				child = ctx.Items[i]
			}
			val, err := y.node(item, child)
			if err != nil {
				return nil, err
			}
			n.Content = append(n.Content, val)
		}
		return n, nil
	}
	n := &yaml.Node{}
	if err := n.Encode(value); err != nil {
		return nil, fmt.Errorf("failed to encode %T: %w", value, err)
	}
	return n, nil
}

// comment joins the context's metadata into comment lines, each truncated
// to the configured display width.
func (y YAML) comment(ctx *schemagen.Context) string {
	if !ctx.HasMeta() {
		return ""
	}
	width := y.Width
	if width <= 0 {
		width = DefaultCommentWidth
	}
	var lines []string
	for _, text := range []string{ctx.Title, ctx.Description, ctx.Comment} {
		for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lines = append(lines, runewidth.Truncate(line, width, "…"))
		}
	}
	return strings.Join(lines, "\n")
}

// Sanitize returns a copy of value safe for encoders: NaN and infinities
// become nil and Schema maps become plain maps.
func Sanitize(value any) any {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return nil
		}
		return v
	case schemagen.Schema:
		return Sanitize(map[string]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Sanitize(item)
		}
		return out
	}
	return value
}
