package playground

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/speakeasy-api/schemafaker/schemagen"
)

// ExtensionName marks schemas and media types that should receive
// generated examples.
const ExtensionName = "x-schemafaker"

// MaxExampleCount caps how many examples one directive may request.
const MaxExampleCount = 50

// Target is where generated examples are written.
type Target string

const (
	// TargetExample writes a single value under "example".
	TargetExample Target = "example"
	// TargetExamples writes a list (schemas) or named map (media types)
	// under "examples".
	TargetExamples Target = "examples"
)

// ExampleDirective is the parsed x-schemafaker extension.
type ExampleDirective struct {
	Count   int
	Seed    uint64
	Target  Target // empty picks a default from the node kind and Count
	Options map[string]any
}

// ParseExampleExtension parses the x-schemafaker extension. The value is
// either a boolean or a mapping with count, seed, target and options keys.
// A false value disables the directive and returns nil.
func ParseExampleExtension(yamlNode *yaml.Node) (*ExampleDirective, error) {
	d := &ExampleDirective{Count: 1}

	switch yamlNode.Kind {
	case yaml.ScalarNode:
		enabled, err := strconv.ParseBool(yamlNode.Value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean or an object", ExtensionName)
		}
		if !enabled {
			return nil, nil
		}
		return d, nil
	case yaml.MappingNode:
	default:
		return nil, fmt.Errorf("%s must be a boolean or an object", ExtensionName)
	}

	// YAML MappingNode stores content as alternating key/value pairs
	for i := 0; i+1 < len(yamlNode.Content); i += 2 {
		keyNode := yamlNode.Content[i]
		valueNode := yamlNode.Content[i+1]

		switch keyNode.Value {
		case "count":
			n, err := strconv.Atoi(valueNode.Value)
			if valueNode.Kind != yaml.ScalarNode || err != nil {
				return nil, fmt.Errorf("%s: 'count' must be an integer", ExtensionName)
			}
			if n < 1 || n > MaxExampleCount {
				return nil, fmt.Errorf("%s: 'count' must be between 1 and %d, got %d", ExtensionName, MaxExampleCount, n)
			}
			d.Count = n
		case "seed":
			n, err := strconv.ParseUint(valueNode.Value, 10, 64)
			if valueNode.Kind != yaml.ScalarNode || err != nil {
				return nil, fmt.Errorf("%s: 'seed' must be a non-negative integer", ExtensionName)
			}
			d.Seed = n
		case "target":
			switch t := Target(strings.TrimSpace(valueNode.Value)); t {
			case TargetExample, TargetExamples:
				d.Target = t
			default:
				return nil, fmt.Errorf("%s: 'target' must be %q or %q, got %q", ExtensionName, TargetExample, TargetExamples, valueNode.Value)
			}
		case "options":
			if valueNode.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("%s: 'options' must be an object", ExtensionName)
			}
			var opts map[string]any
			if err := valueNode.Decode(&opts); err != nil {
				return nil, fmt.Errorf("%s: invalid 'options': %w", ExtensionName, err)
			}
			if _, err := schemagen.DecodeOptions(opts); err != nil {
				return nil, fmt.Errorf("%s: %w", ExtensionName, err)
			}
			d.Options = opts
		default:
			return nil, fmt.Errorf("%s: unknown key %q", ExtensionName, keyNode.Value)
		}
	}

	if d.Target == TargetExample && d.Count > 1 {
		return nil, fmt.Errorf("%s: target %q holds a single value but count is %d", ExtensionName, TargetExample, d.Count)
	}
	return d, nil
}
