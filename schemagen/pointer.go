package schemagen

import (
	"net/url"
	"strconv"
	"strings"
)

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// FormatPath renders a schema path as a URI-fragment JSON pointer ("#/a/b").
func FormatPath(path []string) string {
	if len(path) == 0 {
		return "#"
	}
	var b strings.Builder
	b.WriteByte('#')
	for _, seg := range path {
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(seg))
	}
	return b.String()
}

// parsePointer splits a JSON pointer (optionally prefixed with "#") into
// unescaped reference tokens.
func parsePointer(ptr string) []string {
	ptr = strings.TrimPrefix(ptr, "#")
	if ptr == "" {
		return nil
	}
	ptr = strings.TrimPrefix(ptr, "/")
	parts := strings.Split(ptr, "/")
	for i, p := range parts {
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
		parts[i] = pointerUnescaper.Replace(p)
	}
	return parts
}

// lookupPointer walks tokens through nested maps and arrays.
func lookupPointer(doc any, tokens []string) (any, bool) {
	cur := doc
	for _, tok := range tokens {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case Schema:
			next, ok := node[tok]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(tok)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
