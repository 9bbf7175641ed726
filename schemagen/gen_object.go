package schemagen

import (
	"maps"
	"math"
	"regexp"
	"sort"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/pattern"
	"github.com/speakeasy-api/schemafaker/random"
)

// maxNameRetries bounds attempts to synthesize a fresh property name.
const maxNameRetries = 10

// slot is one property to generate: a fixed name, or a patternProperties
// key whose name is synthesized.
type slot struct {
	name    string
	pattern string
}

// object generates an object honoring required, optionals policy,
// property count bounds and dependencies.
func (w *walker) object(node Schema, path []string, nctx *Context, parent *objectFrame) (any, error) {
	props, _ := node.sub("properties")
	patterns, _ := node.sub("patternProperties")
	required := node.strings("required")
	requiredSet := make(map[string]bool, len(required))
	for _, k := range required {
		requiredSet[k] = true
	}

	var optional []slot
	if !w.opts.RequiredOnly {
		for _, k := range sortedKeys(props) {
			if requiredSet[k] || forbidden(props[k]) || w.ignored(k) {
				continue
			}
			optional = append(optional, slot{name: k})
		}
		for _, k := range sortedKeys(patterns) {
			optional = append(optional, slot{pattern: k})
		}
	}

	minProps := node.intOr("minProperties", 0)
	maxProps := node.intOr("maxProperties", -1)
	deps := dependencyMap(node)
	names := make(map[string]bool, len(required))
	for _, k := range required {
		names[k] = true
	}
	addDependencies(deps, names)
	if maxProps >= 0 && len(names) > maxProps {
		w.logger.Warnf("required properties at %s exceed maxProperties %d", FormatPath(path), maxProps)
	}

	// An optional counts together with every name its dependencies pull in.
	var chosen []slot
	count := len(names)
	admit := func(s slot) {
		if s.pattern != "" {
			if maxProps >= 0 && count+1 > maxProps {
				return
			}
			chosen = append(chosen, s)
			count++
			return
		}
		if names[s.name] {
			return
		}
		next := maps.Clone(names)
		next[s.name] = true
		addDependencies(deps, next)
		if maxProps >= 0 && count+len(next)-len(names) > maxProps {
			return
		}
		count += len(next) - len(names)
		names = next
		chosen = append(chosen, s)
	}
	for _, s := range w.chooseOptionals(optional) {
		admit(s)
	}
	if count < minProps {
		taken := make(map[slot]bool, len(chosen))
		for _, s := range chosen {
			taken[s] = true
		}
		for _, s := range optional {
			if count >= minProps {
				break
			}
			if !taken[s] {
				admit(s)
			}
		}
	}

	if triggered := schemaDependencies(node, names); len(triggered) > 0 {
		return w.objectWithDependencies(node, path, nctx, parent, triggered)
	}

	frame := &objectFrame{node: node, values: make(map[string]any)}
	var slots []slot
	for _, k := range sortedKeys(names) {
		slots = append(slots, slot{name: k})
	}
	for _, s := range chosen {
		if s.pattern != "" {
			slots = append(slots, s)
		}
	}
	if extra := w.extraCount(node, props, patterns, len(slots), minProps, maxProps); extra > 0 {
		for i := 0; i < extra; i++ {
			slots = append(slots, slot{})
		}
	}

	// Templates read sibling values, so they go last.
	sort.SliceStable(slots, func(i, j int) bool {
		return !isTemplate(props, slots[i]) && isTemplate(props, slots[j])
	})

	for _, s := range slots {
		name, schema, schemaPath, ok := w.slotSchema(node, props, patterns, frame, s, path)
		if !ok {
			continue
		}
		if frame.pruned[name] {
			continue
		}
		v, c, err := w.traverse(schema, schemaPath, frame)
		if err != nil {
			return nil, err
		}
		if frame.pruned[name] {
			continue
		}
		frame.values[name] = v
		nctx.setProperty(name, c)
	}

	for k := range frame.pruned {
		delete(nctx.Properties, k)
	}
	return frame.values, nil
}

// chooseOptionals applies the optionals policy to candidate slots.
func (w *walker) chooseOptionals(optional []slot) []slot {
	if len(optional) == 0 {
		return nil
	}
	p := w.opts.OptionalsProbability
	switch {
	case w.opts.AlwaysFakeOptionals:
		return append([]slot(nil), optional...)
	case p != nil && w.opts.FixedProbabilities:
		k := int(math.Round(*p * float64(len(optional))))
		return random.Shuffle(w.rnd, optional)[:k]
	case p != nil:
		var out []slot
		for _, s := range optional {
			if w.rnd.Chance(*p) {
				out = append(out, s)
			}
		}
		return out
	}
	return random.Shuffle(w.rnd, optional)[:w.rnd.Int(0, len(optional))]
}

// extraCount is how many undeclared properties to add.
func (w *walker) extraCount(node, props, patterns Schema, have, minProps, maxProps int) int {
	additional := node["additionalProperties"]
	if b, ok := additional.(bool); ok && !b && len(patterns) == 0 {
		return 0
	}
	if w.opts.RequiredOnly {
		return max(0, minProps-have)
	}
	n := max(0, minProps-have)
	if _, open := asSchema(additional); open && len(props) == 0 && len(patterns) == 0 {
		want := w.rnd.Int(minProps, minProps+3)
		if maxProps >= 0 {
			want = min(want, maxProps)
		}
		n = max(n, want-have)
	}
	if maxProps >= 0 {
		n = min(n, max(0, maxProps-have))
	}
	return n
}

// dependencyMap collects the name-list form of dependencies and
// dependentRequired.
func dependencyMap(node Schema) map[string][]string {
	deps := make(map[string][]string)
	for _, kw := range []string{"dependencies", "dependentRequired"} {
		m, _ := node.sub(kw)
		for k, v := range m {
			if list, ok := v.([]any); ok {
				for _, d := range list {
					if s, ok := d.(string); ok {
						deps[k] = append(deps[k], s)
					}
				}
			}
		}
	}
	return deps
}

// addDependencies pulls in names required by present properties until
// nothing changes.
func addDependencies(deps map[string][]string, names map[string]bool) {
	for changed := true; changed; {
		changed = false
		for k, ds := range deps {
			if !names[k] {
				continue
			}
			for _, d := range ds {
				if !names[d] {
					names[d] = true
					changed = true
				}
			}
		}
	}
}

// schemaDependencies returns the schema-form dependencies triggered by names.
func schemaDependencies(node Schema, names map[string]bool) map[string]any {
	out := make(map[string]any)
	for _, kw := range []string{"dependencies", "dependentSchemas"} {
		m, _ := node.sub(kw)
		for k, v := range m {
			if _, ok := v.(map[string]any); ok && names[k] {
				out[k] = v
			}
		}
	}
	return out
}

// objectWithDependencies folds triggered dependency schemas into node via
// allOf and regenerates with the triggering names required.
func (w *walker) objectWithDependencies(node Schema, path []string, nctx *Context, parent *objectFrame, triggered map[string]any) (any, error) {
	base := omitKeys(node, "dependentSchemas")
	if deps, ok := base.sub("dependencies"); ok {
		for k, v := range deps {
			if _, isSchema := v.(map[string]any); isSchema {
				delete(deps, k)
			}
		}
	}
	required, _ := base.list("required")
	members := make([]any, 0, len(triggered))
	for _, k := range sortedKeys(triggered) {
		if !containsValue(required, k) {
			required = append(required, k)
		}
		members = append(members, cloneValue(triggered[k]))
	}
	base["required"] = required
	base["allOf"] = members
	merged, err := w.res.expandAllOf(base, path)
	if err != nil {
		return nil, err
	}
	return w.object(merged, path, nctx, parent)
}

// slotSchema resolves the name and schema for s.
func (w *walker) slotSchema(node, props, patterns Schema, frame *objectFrame, s slot, path []string) (string, any, []string, bool) {
	switch {
	case s.pattern != "":
		name, ok := w.freshName(frame, func() (string, error) {
			return pattern.Generate(w.rnd, s.pattern, w.opts.MaxRegexRepeat)
		})
		if !ok {
			return "", nil, nil, false
		}
		return name, cloneValue(patterns[s.pattern]), childPath(path, "patternProperties", s.pattern), true
	case s.name != "":
		matches := matchingPatterns(patterns, s.name)
		if declared, ok := props[s.name]; ok {
			if len(matches) == 0 {
				return s.name, cloneValue(declared), childPath(path, "properties", s.name), true
			}
			members := []any{cloneValue(declared)}
			for _, m := range matches {
				members = append(members, cloneValue(patterns[m]))
			}
			return s.name, map[string]any{"allOf": members}, childPath(path, "properties", s.name), true
		}
		if len(matches) > 0 {
			return s.name, cloneValue(patterns[matches[0]]), childPath(path, "patternProperties", matches[0]), true
		}
		if additional, ok := asSchema(node["additionalProperties"]); ok {
			return s.name, cloneValue(map[string]any(additional)), childPath(path, "additionalProperties"), true
		}
		return s.name, map[string]any(anyTypeSchema()), childPath(path, "properties", s.name), true
	}
	return w.extraSlot(node, patterns, frame, path)
}

// extraSlot synthesizes an undeclared property name and its schema.
func (w *walker) extraSlot(node, patterns Schema, frame *objectFrame, path []string) (string, any, []string, bool) {
	if len(patterns) > 0 {
		key := random.Pick(w.rnd, sortedKeys(patterns))
		name, ok := w.freshName(frame, func() (string, error) {
			return pattern.Generate(w.rnd, key, w.opts.MaxRegexRepeat)
		})
		return name, cloneValue(patterns[key]), childPath(path, "patternProperties", key), ok
	}
	gen := func() (string, error) {
		suffix, err := pattern.Generate(w.rnd, `^[a-f0-9]{1,3}$`, 0)
		return format.Words(w.rnd, 1)[0] + "_" + suffix, err
	}
	if names, ok := node.sub("propertyNames"); ok {
		if expr, ok := names.str("pattern"); ok {
			gen = func() (string, error) { return pattern.Generate(w.rnd, expr, w.opts.MaxRegexRepeat) }
		}
	}
	name, ok := w.freshName(frame, gen)
	if !ok {
		return "", nil, nil, false
	}
	if additional, ok := asSchema(node["additionalProperties"]); ok {
		return name, cloneValue(map[string]any(additional)), childPath(path, "additionalProperties"), true
	}
	return name, map[string]any(anyTypeSchema()), childPath(path, "additionalProperties"), true
}

// freshName draws names until one is not yet taken.
func (w *walker) freshName(frame *objectFrame, gen func() (string, error)) (string, bool) {
	for i := 0; i < maxNameRetries; i++ {
		name, err := gen()
		if err != nil {
			w.logger.Warnf("cannot synthesize property name: %v", err)
			return "", false
		}
		if _, taken := frame.values[name]; !taken && !frame.pruned[name] {
			return name, true
		}
	}
	return "", false
}

func matchingPatterns(patterns Schema, name string) []string {
	var out []string
	for _, k := range sortedKeys(patterns) {
		if re, err := regexp.Compile(k); err == nil && re.MatchString(name) {
			out = append(out, k)
		}
	}
	return out
}

// forbidden reports a property schema that admits no value.
func forbidden(v any) bool {
	if b, ok := v.(bool); ok {
		return !b
	}
	s, ok := asSchema(v)
	if !ok {
		return false
	}
	switch not := s["not"].(type) {
	case bool:
		return not
	case map[string]any:
		return len(not) == 0
	}
	return false
}

func isTemplate(props Schema, s slot) bool {
	if s.name == "" {
		return false
	}
	p, ok := asSchema(props[s.name])
	return ok && p.has("template")
}
