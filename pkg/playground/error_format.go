// Package playground annotates OpenAPI documents with generated examples
// and formats generation failures for people.
package playground

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/speakeasy-api/schemafaker/schemagen"
)

// LocationError ties an error to the document node it concerns.
type LocationError struct {
	Location string
	Err      error
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Location, e.Err)
}

func (e *LocationError) Unwrap() error { return e.Err }

// FormatGenerationErrors turns generation failures into a user-facing message.
func FormatGenerationErrors(errs []error) string {
	if len(errs) == 0 {
		return "Example generation failed, but no additional details were provided."
	}

	var b strings.Builder
	b.WriteString("Example generation failed (strict mode).\n")

	for _, err := range errs {
		loc := deriveLocation(err)
		msg, hint := classifyAndHint(err)
		details := extractDetails(err)

		fmt.Fprintf(&b, "- %s\n", msg)
		if loc != "" {
			fmt.Fprintf(&b, "  Location: %s\n", loc)
		}
		if hint != "" {
			fmt.Fprintf(&b, "  How to fix: %s\n", hint)
		}
		if details != "" {
			fmt.Fprintf(&b, "  Details: %s\n", details)
		}
	}

	return b.String()
}

// deriveLocation prefers the engine's schema path, which is rooted at the
// document, over the marked node's location.
func deriveLocation(err error) string {
	var pe *schemagen.PathError
	if errors.As(err, &pe) {
		return schemagen.FormatPath(pe.Path)
	}
	var le *LocationError
	if errors.As(err, &le) {
		return le.Location
	}
	return ""
}

func classifyAndHint(err error) (msg, hint string) {
	switch {
	case errors.Is(err, schemagen.ErrReferenceNotFound):
		msg = "A $ref could not be resolved."
		hint = "Check the reference target exists in this document, or set ignoreMissingRefs in the extension's options."
	case errors.Is(err, schemagen.ErrUnknownType):
		msg = "The schema declares a type that is not a JSON Schema type."
		hint = `Use one of "object", "array", "string", "number", "integer", "boolean" or "null", or set failOnInvalidTypes: false.`
	case errors.Is(err, schemagen.ErrUnknownFormat):
		msg = "The schema uses a format no generator is registered for."
		hint = "Register a generator for the format, or set failOnInvalidFormat: false to fall back to plain strings."
	case errors.Is(err, schemagen.ErrUnsupportedFormat):
		msg = "The schema uses a format that is known but cannot be generated."
		hint = "Register a generator for the format, or replace it with a pattern."
	case errors.Is(err, schemagen.ErrMalformedSchema):
		msg = "The schema is contradictory or incomplete."
		hint = "Check bounds such as minLength/maxLength and minItems/maxItems, and that arrays declare items."
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		msg = "Generation was interrupted."
		hint = "Retry, or lower refDepthMax for deeply recursive schemas."
	case strings.Contains(err.Error(), ExtensionName):
		msg = "The " + ExtensionName + " extension is invalid."
		hint = "Use true, or an object with count, seed, target and options."
	default:
		msg = "Example generation error."
	}
	return msg, hint
}

// extractDetails returns the innermost message without location prefixes.
func extractDetails(err error) string {
	for {
		var pe *schemagen.PathError
		var le *LocationError
		switch {
		case errors.As(err, &pe):
			err = pe.Err
		case errors.As(err, &le):
			err = le.Err
		default:
			return strings.TrimSpace(err.Error())
		}
	}
}
