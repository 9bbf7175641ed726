package schemagen

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/pattern"
)

// maxPatternRetries bounds redraws of a pattern or format whose output
// misses the length bounds.
const maxPatternRetries = 10

// string synthesizes from format, then pattern, then filler words.
func (w *walker) string(node Schema) (any, error) {
	minLen := node.intOr("minLength", 0)
	maxLen := node.intOr("maxLength", -1)
	if g := w.opts.MinLength; g > minLen && (maxLen < 0 || g <= maxLen) {
		minLen = g
	}
	if g := w.opts.MaxLength; g > 0 {
		if c := max(g, minLen); maxLen < 0 || c < maxLen {
			maxLen = c
		}
	}
	if maxLen >= 0 && minLen > maxLen {
		return nil, malformed("minLength %d exceeds maxLength %d", minLen, maxLen)
	}

	if name, ok := node.str("format"); ok {
		fn, known := w.formats.Lookup(name)
		switch {
		case known && fn == nil:
			if w.opts.FailOnInvalidFormat {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
			}
			w.logger.Warnf("format %q is not supported, generating plain text", name)
		case known:
			return w.formatted(node, name, fn, minLen, maxLen)
		default:
			if w.opts.FailOnInvalidFormat {
				return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
			}
			w.logger.Warnf("unknown format %q, ignoring", name)
		}
	}

	if expr, ok := node.str("pattern"); ok {
		return w.fromPattern(expr, minLen, maxLen)
	}
	return format.Filler(w.rnd, minLen, maxLen), nil
}

func (w *walker) formatted(node Schema, name string, fn format.Generator, minLen, maxLen int) (any, error) {
	if format.IsDateFormat(name) {
		if expr, ok := node.str("pattern"); ok {
			s, err := w.fromPattern(expr, minLen, maxLen)
			if err != nil {
				return nil, err
			}
			return format.ClampDate(name, s), nil
		}
	}
	var last string
	for i := 0; i < maxPatternRetries; i++ {
		v, err := fn(w.rnd, node)
		if err != nil {
			return nil, fmt.Errorf("format %s: %w", name, err)
		}
		s, ok := v.(string)
		if !ok || format.IsDateFormat(name) {
			return v, nil
		}
		if n := utf8.RuneCountInString(s); n >= minLen && (maxLen < 0 || n <= maxLen) {
			return s, nil
		}
		last = s
	}
	if w.opts.FailOnInvalidFormat {
		return nil, malformed("format %s cannot produce a value of length %s", name, lengthRange(minLen, maxLen))
	}
	w.logger.Warnf("format %q does not fit length %s, value will not match the format", name, lengthRange(minLen, maxLen))
	return format.Truncate(format.Pad(w.rnd, last, minLen), maxLen), nil
}

func lengthRange(minLen, maxLen int) string {
	if maxLen < 0 {
		return fmt.Sprintf(">= %d", minLen)
	}
	return fmt.Sprintf("%d..%d", minLen, maxLen)
}

// fromPattern prefers a draw that fits the length bounds; when none does,
// the pattern wins.
func (w *walker) fromPattern(expr string, minLen, maxLen int) (string, error) {
	p, err := pattern.Compile(expr)
	if err != nil {
		return "", malformed("%v", err)
	}
	var last string
	for i := 0; i < maxPatternRetries; i++ {
		s, err := p.Generate(w.rnd, w.opts.MaxRegexRepeat)
		if err != nil {
			if errors.Is(err, pattern.ErrNoMatch) {
				return "", malformed("%v", err)
			}
			return "", err
		}
		if n := utf8.RuneCountInString(s); n >= minLen && (maxLen < 0 || n <= maxLen) {
			return s, nil
		}
		last = s
	}
	return last, nil
}
