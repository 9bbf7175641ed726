package schemagen

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceNotFound reports a $ref whose target is not in the reference table.
	ErrReferenceNotFound = errors.New("reference not found")
	// ErrUnknownType reports a type keyword with no generator.
	ErrUnknownType = errors.New("unknown type")
	// ErrUnknownFormat reports a format keyword missing from the registry.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrUnsupportedFormat reports a format registered without a generator.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedSchema reports input that cannot be synthesized at all.
	ErrMalformedSchema = errors.New("malformed schema")
)

// PathError annotates a generation failure with the schema path where it
// originated.
type PathError struct {
	Path []string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s: %v", FormatPath(e.Path), e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

// annotate attaches path unless err already carries one from deeper down.
func annotate(err error, path []string) error {
	if err == nil {
		return nil
	}
	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}
	return &PathError{Path: childPath(path), Err: err}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedSchema, fmt.Sprintf(format, args...))
}
