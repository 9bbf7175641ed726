package format

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/speakeasy-api/schemafaker/random"
)

var lorem = strings.Fields(`lorem ipsum dolor sit amet consectetur adipiscing elit sed do
eiusmod tempor incididunt ut labore et dolore magna aliqua enim ad minim veniam quis nostrud
exercitation ullamco laboris nisi aliquip ex ea commodo consequat duis aute irure in
reprehenderit voluptate velit esse cillum eu fugiat nulla pariatur excepteur sint occaecat
cupidatat non proident sunt culpa qui officia deserunt mollit anim id est laborum`)

var titleCaser = cases.Title(language.Und)

// Words returns n random lorem words.
func Words(r *random.Rand, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = random.Pick(r, lorem)
	}
	return out
}

// Filler returns a few title-cased lorem words padded to at least min runes
// and cut to at most max runes. max < 0 means no cap.
func Filler(r *random.Rand, min, max int) string {
	if max == 0 {
		return ""
	}
	words := Words(r, r.Int(1, 5))
	words[0] = titleCaser.String(words[0])
	text := Pad(r, strings.Join(words, " "), min)
	return Truncate(text, max)
}

// Pad extends s with filler words until it holds at least min runes.
func Pad(r *random.Rand, s string, min int) string {
	for utf8.RuneCountInString(s) < min {
		if s == "" {
			s = random.Pick(r, lorem)
			continue
		}
		s += " " + random.Pick(r, lorem)
	}
	return s
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max < 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return truncateRunes(s, max)
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
