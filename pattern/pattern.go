// Package pattern synthesizes strings that match a regular expression by
// walking the parsed expression tree and emitting one random choice per node.
package pattern

import (
	"errors"
	"fmt"
	"regexp/syntax"
	"strings"
	"unicode"

	"github.com/speakeasy-api/schemafaker/random"
)

// DefaultMaxRepeat bounds how far past its minimum an unbounded repetition
// (`*`, `+`, `{n,}`) may run.
const DefaultMaxRepeat = 10

// ErrNoMatch is returned for expressions that can never match anything.
var ErrNoMatch = errors.New("pattern matches no input")

const (
	printableLo = 0x20
	printableHi = 0x7e
)

// Pattern is a parsed expression ready to generate strings.
type Pattern struct {
	expr string
	re   *syntax.Regexp
}

// Compile parses expr using Perl syntax.
func Compile(expr string) (*Pattern, error) {
	re, err := syntax.Parse(expr, syntax.Perl)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// String returns the source expression.
func (p *Pattern) String() string { return p.expr }

// Generate emits a string matching the pattern. maxRepeat <= 0 selects
// DefaultMaxRepeat.
func (p *Pattern) Generate(r *random.Rand, maxRepeat int) (string, error) {
	if maxRepeat <= 0 {
		maxRepeat = DefaultMaxRepeat
	}
	w := walker{r: r, maxRepeat: maxRepeat}
	var b strings.Builder
	if err := w.emit(&b, p.re); err != nil {
		return "", fmt.Errorf("pattern %q: %w", p.expr, err)
	}
	return b.String(), nil
}

// Generate compiles expr and emits one matching string.
func Generate(r *random.Rand, expr string, maxRepeat int) (string, error) {
	p, err := Compile(expr)
	if err != nil {
		return "", err
	}
	return p.Generate(r, maxRepeat)
}

type walker struct {
	r         *random.Rand
	maxRepeat int
}

func (w *walker) emit(b *strings.Builder, re *syntax.Regexp) error {
	switch re.Op {
	case syntax.OpNoMatch:
		return ErrNoMatch
	case syntax.OpEmptyMatch,
		syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText,
		syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return nil
	case syntax.OpLiteral:
		for _, c := range re.Rune {
			if re.Flags&syntax.FoldCase != 0 && w.r.Bool() {
				c = swapCase(c)
			}
			b.WriteRune(c)
		}
		return nil
	case syntax.OpCharClass:
		c, ok := w.pickClass(re.Rune)
		if !ok {
			return ErrNoMatch
		}
		b.WriteRune(c)
		return nil
	case syntax.OpAnyCharNotNL, syntax.OpAnyChar:
		b.WriteRune(rune(w.r.Int(printableLo, printableHi)))
		return nil
	case syntax.OpCapture:
		return w.emit(b, re.Sub[0])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if err := w.emit(b, sub); err != nil {
				return err
			}
		}
		return nil
	case syntax.OpAlternate:
		return w.emit(b, random.Pick(w.r, re.Sub))
	case syntax.OpStar:
		return w.repeat(b, re.Sub[0], 0, -1)
	case syntax.OpPlus:
		return w.repeat(b, re.Sub[0], 1, -1)
	case syntax.OpQuest:
		return w.repeat(b, re.Sub[0], 0, 1)
	case syntax.OpRepeat:
		return w.repeat(b, re.Sub[0], re.Min, re.Max)
	default:
		return fmt.Errorf("unsupported regexp operator %v", re.Op)
	}
}

// repeat emits sub between lo and hi times; hi < 0 means unbounded.
func (w *walker) repeat(b *strings.Builder, sub *syntax.Regexp, lo, hi int) error {
	if hi < 0 {
		hi = lo + w.maxRepeat
	}
	n := w.r.Int(lo, hi)
	for i := 0; i < n; i++ {
		if err := w.emit(b, sub); err != nil {
			return err
		}
	}
	return nil
}

// pickClass draws a rune from a class given as [lo, hi] pairs. Printable
// ASCII members are preferred so negated classes stay readable.
func (w *walker) pickClass(ranges []rune) (rune, bool) {
	if len(ranges) == 0 {
		return 0, false
	}
	var printable []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := max(ranges[i], printableLo), min(ranges[i+1], printableHi)
		if lo <= hi {
			printable = append(printable, lo, hi)
		}
	}
	if len(printable) > 0 {
		ranges = printable
	}

	var total int
	for i := 0; i+1 < len(ranges); i += 2 {
		total += int(ranges[i+1]-ranges[i]) + 1
	}
	n := w.r.Int(0, total-1)
	for i := 0; i+1 < len(ranges); i += 2 {
		size := int(ranges[i+1]-ranges[i]) + 1
		if n < size {
			return ranges[i] + rune(n), true
		}
		n -= size
	}
	return ranges[len(ranges)-1], true
}

func swapCase(c rune) rune {
	if unicode.IsUpper(c) {
		return unicode.ToLower(c)
	}
	return unicode.ToUpper(c)
}
