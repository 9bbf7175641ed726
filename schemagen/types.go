package schemagen

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/speakeasy-api/schemafaker/random"
)

// Options configures a generation run.
type Options struct {
	// Reference expansion
	RefDepthMin       int  `mapstructure:"refDepthMin"`       // Lower bound for per-ref expansion depth (default: 0)
	RefDepthMax       int  `mapstructure:"refDepthMax"`       // Upper bound for per-ref expansion depth (default: 3)
	IgnoreMissingRefs bool `mapstructure:"ignoreMissingRefs"` // Drop unresolvable $refs instead of failing

	// Strictness
	FailOnInvalidTypes        bool `mapstructure:"failOnInvalidTypes"`        // Error on unknown type names (default: true)
	DefaultInvalidTypeProduct any  `mapstructure:"defaultInvalidTypeProduct"` // Substitute for unknown types; a type name generates that type
	FailOnInvalidFormat       bool `mapstructure:"failOnInvalidFormat"`       // Error on unknown formats (default: true)

	// Optional members
	AlwaysFakeOptionals  bool     `mapstructure:"alwaysFakeOptionals"`  // Include every optional property and fill arrays to maxItems
	OptionalsProbability *float64 `mapstructure:"optionalsProbability"` // Chance in [0,1] that an optional member is generated
	FixedProbabilities   bool     `mapstructure:"fixedProbabilities"`   // Use OptionalsProbability as an exact ratio instead of a per-member chance
	RequiredOnly         bool     `mapstructure:"requiredOnly"`         // Emit only required object properties

	// Global floors and caps; zero means unset
	MinItems  int `mapstructure:"minItems"`
	MaxItems  int `mapstructure:"maxItems"`
	MinLength int `mapstructure:"minLength"`
	MaxLength int `mapstructure:"maxLength"`

	// Literal preferences
	UseDefaultValue           bool `mapstructure:"useDefaultValue"`           // Return `default` when present
	UseExamplesValue          bool `mapstructure:"useExamplesValue"`          // Return a random entry of `examples` when present
	ReplaceEmptyByRandomValue bool `mapstructure:"replaceEmptyByRandomValue"` // Ignore empty-string defaults

	IgnoreProperties []string `mapstructure:"ignoreProperties"` // Optional property names to skip; "/re/" entries are regexps
	MaxRegexRepeat   int      `mapstructure:"maxRegexRepeat"`   // Cap past the minimum for unbounded regex repeats (default: 10)

	// Determinism and diagnostics
	Seed     uint64        `mapstructure:"seed"`     // Seed for the built-in source; 0 seeds from the clock
	Random   random.Source `mapstructure:"-"`        // Pluggable source; overrides Seed
	LogLevel string        `mapstructure:"logLevel"` // "error", "warn", "info", "debug"; empty disables logging
	Logger   Logger        `mapstructure:"-"`        // Overrides LogLevel when set
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		RefDepthMin:         0,
		RefDepthMax:         3,
		FailOnInvalidTypes:  true,
		FailOnInvalidFormat: true,
		MaxRegexRepeat:      10,
		LogLevel:            "warn",
	}
}

// DecodeOptions overlays a loosely typed option map (config files, request
// bodies) onto DefaultOptions. Unknown keys are rejected.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(raw) == 0 {
		return opts, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return opts, fmt.Errorf("failed to build option decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return opts, fmt.Errorf("invalid options: %w", err)
	}
	return opts, opts.Validate()
}

// Validate rejects option combinations that cannot be honored.
func (o Options) Validate() error {
	if o.RefDepthMin < 0 || o.RefDepthMax < 0 {
		return fmt.Errorf("refDepthMin and refDepthMax must not be negative")
	}
	if o.RefDepthMin > o.RefDepthMax {
		return fmt.Errorf("refDepthMin (%d) exceeds refDepthMax (%d)", o.RefDepthMin, o.RefDepthMax)
	}
	if p := o.OptionalsProbability; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("optionalsProbability must be within [0, 1], got %v", *p)
	}
	if o.MinItems < 0 || o.MaxItems < 0 || o.MinLength < 0 || o.MaxLength < 0 {
		return fmt.Errorf("global item and length bounds must not be negative")
	}
	return nil
}

// Probability is a helper for setting OptionalsProbability inline.
func Probability(p float64) *float64 {
	return &p
}

// Result is the outcome of one generation call.
type Result struct {
	Value   any      // JSON-compatible value
	Context *Context // Metadata tree parallel to Value
}
