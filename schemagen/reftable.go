package schemagen

import (
	"net/url"
	"strings"

	"github.com/speakeasy-api/openapi/references"
	"github.com/speakeasy-api/openapi/sequencedmap"
)

// refEntry is a registered document or embedded subschema.
type refEntry struct {
	doc  any
	base string // id that relative refs inside doc resolve against
}

// RefTable maps document identifiers to schema documents for one
// generation call. Entries are read-only; the resolver clones what it merges.
type RefTable struct {
	root    any
	rootID  string
	entries *sequencedmap.Map[string, *refEntry]
}

// NewRefTable registers root under "" (and its $id) and each auxiliary
// document under its name (and $id). Embedded $id and $anchor subschemas are
// indexed too.
func NewRefTable(root any, refs map[string]any) *RefTable {
	t := &RefTable{
		root:    root,
		entries: sequencedmap.New[string, *refEntry](),
	}
	if s, ok := asMap(root); ok {
		t.rootID, _ = s.str("$id")
	}
	t.Register("", root)
	for _, name := range sortedKeys(refs) {
		t.Register(name, refs[name])
	}
	return t
}

// Register adds doc under id and indexes the identifiers it embeds.
func (t *RefTable) Register(id string, doc any) {
	base := id
	if id == t.rootID {
		base = ""
	}
	t.entries.Set(id, &refEntry{doc: doc, base: base})
	t.index(doc, base, true)
}

// Document returns the document registered under id.
func (t *RefTable) Document(id string) (any, bool) {
	e, ok := t.entries.Get(id)
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// IDs lists registered identifiers in registration order.
func (t *RefTable) IDs() []string {
	var ids []string
	for id := range t.entries.All() {
		ids = append(ids, id)
	}
	return ids
}

// index walks doc registering $id and $anchor subschemas. Value keywords are
// skipped so literal data is never mistaken for a schema.
func (t *RefTable) index(doc any, base string, top bool) {
	switch node := doc.(type) {
	case []any:
		for _, item := range node {
			t.index(item, base, false)
		}
	case map[string]any, Schema:
		s, _ := asMap(node)
		if id, ok := s.str("$id"); ok && id != "" {
			abs := ResolveURI(base, id)
			if !top || abs != base {
				if _, exists := t.entries.Get(abs); !exists {
					t.entries.Set(abs, &refEntry{doc: s, base: abs})
				}
				if _, exists := t.entries.Get(id); !exists {
					t.entries.Set(id, &refEntry{doc: s, base: abs})
				}
			}
			base = abs
		}
		if anchor, ok := s.str("$anchor"); ok && anchor != "" {
			keys := []string{base + "#" + anchor}
			if base == t.rootID {
				keys = append(keys, "#"+anchor)
			}
			for _, key := range keys {
				if _, exists := t.entries.Get(key); !exists {
					t.entries.Set(key, &refEntry{doc: s, base: base})
				}
			}
		}
		for _, k := range sortedKeys(s) {
			if valueKeywords[k] {
				continue
			}
			t.index(s[k], base, false)
		}
	}
}

// lookup finds the target of ref and the base id for the refs inside it.
func (t *RefTable) lookup(ref string) (any, string, bool) {
	if !strings.Contains(ref, "#/") {
		if e, ok := t.entries.Get(ref); ok {
			return e.doc, e.base, true
		}
		uri := references.Reference(ref).GetURI()
		if uri != "" && uri != ref {
			if e, ok := t.entries.Get(uri); ok {
				return e.doc, e.base, true
			}
		}
		return nil, "", false
	}

	r := references.Reference(ref)
	uri := r.GetURI()
	ptr := string(r.GetJSONPointer())

	var doc any
	var base string
	switch e, ok := t.entries.Get(uri); {
	case uri == "" || uri == t.rootID:
		doc = t.root
	case ok:
		doc, base = e.doc, e.base
	default:
		if e, ok := t.entries.Get(ref); ok {
			return e.doc, e.base, true
		}
		return nil, "", false
	}
	target, ok := lookupPointer(doc, parsePointer(ptr))
	if !ok {
		return nil, "", false
	}
	return target, base, true
}

// ResolveURI resolves ref against base the way a browser resolves links.
// Unparseable input falls back to ref unchanged.
func ResolveURI(base, ref string) string {
	if base == "" {
		return ref
	}
	bu, err := url.Parse(base)
	if err != nil {
		return ref
	}
	ru, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return bu.ResolveReference(ru).String()
}

// rebaseRefs rewrites the relative $refs inside a subtree pulled from the
// document identified by base so they keep pointing into that document.
func rebaseRefs(node any, base string) {
	if base == "" {
		return
	}
	switch t := node.(type) {
	case []any:
		for _, item := range t {
			rebaseRefs(item, base)
		}
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			if u, err := url.Parse(ref); err == nil && !u.IsAbs() {
				t["$ref"] = ResolveURI(base, ref)
			}
		}
		for k, v := range t {
			if valueKeywords[k] {
				continue
			}
			rebaseRefs(v, base)
		}
	}
}
