package schemagen

import "strconv"

// Context is the metadata node paired with a generated value. Object values
// have Properties keyed like the value; array values have Items by index.
type Context struct {
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Comment     string              `json:"comment,omitempty"`
	SchemaPath  []string            `json:"schemaPath"`
	Properties  map[string]*Context `json:"properties,omitempty"`
	Items       []*Context          `json:"items,omitempty"`
}

func newContext(node Schema, path []string) *Context {
	c := &Context{SchemaPath: childPath(path)}
	if node != nil {
		c.Title, _ = node.str("title")
		c.Description, _ = node.str("description")
		c.Comment, _ = node.str("$comment")
	}
	return c
}

// Path renders SchemaPath as a JSON pointer fragment.
func (c *Context) Path() string {
	if c == nil {
		return ""
	}
	return FormatPath(c.SchemaPath)
}

// Lookup follows string keys and int indexes (or numeric strings) down the
// tree, returning nil when a step is missing.
func (c *Context) Lookup(path ...any) *Context {
	cur := c
	for _, step := range path {
		if cur == nil {
			return nil
		}
		switch s := step.(type) {
		case string:
			if next, ok := cur.Properties[s]; ok {
				cur = next
				continue
			}
			idx, err := strconv.Atoi(s)
			if err != nil || idx < 0 || idx >= len(cur.Items) {
				return nil
			}
			cur = cur.Items[idx]
		case int:
			if s < 0 || s >= len(cur.Items) {
				return nil
			}
			cur = cur.Items[s]
		default:
			return nil
		}
	}
	return cur
}

// HasMeta reports whether any descriptive metadata is set.
func (c *Context) HasMeta() bool {
	return c != nil && (c.Title != "" || c.Description != "" || c.Comment != "")
}

func (c *Context) setProperty(key string, child *Context) {
	if c.Properties == nil {
		c.Properties = make(map[string]*Context)
	}
	c.Properties[key] = child
}
