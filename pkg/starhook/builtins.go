package starhook

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/speakeasy-api/schemafaker/random"
)

func (m *Module) predeclared() starlark.StringDict {
	return starlark.StringDict{
		"rand_int":   starlark.NewBuiltin("rand_int", randInt),
		"rand_float": starlark.NewBuiltin("rand_float", randFloat),
		"rand_bool":  starlark.NewBuiltin("rand_bool", randBool),
		"rand_pick":  starlark.NewBuiltin("rand_pick", randPick),
		"format":     starlark.NewBuiltin("format", m.formatValue),
	}
}

// randOf returns the engine's Rand for the running call. Builtins are
// unavailable while the script's top level executes.
func randOf(thread *starlark.Thread, fn *starlark.Builtin) (*random.Rand, error) {
	r, ok := thread.Local(randLocal).(*random.Rand)
	if !ok || r == nil {
		return nil, fmt.Errorf("%s: only available inside a hook call", fn.Name())
	}
	return r, nil
}

func randInt(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi int
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &lo, &hi); err != nil {
		return nil, err
	}
	r, err := randOf(thread, fn)
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(r.Int(lo, hi)), nil
}

func randFloat(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var loArg, hiArg starlark.Value
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0, &loArg, &hiArg); err != nil {
		return nil, err
	}
	r, err := randOf(thread, fn)
	if err != nil {
		return nil, err
	}
	if loArg == nil {
		return starlark.Float(r.Float()), nil
	}
	lo, ok := starlark.AsFloat(loArg)
	if !ok {
		return nil, fmt.Errorf("%s: min must be a number, got %s", fn.Name(), loArg.Type())
	}
	hi := lo + 1
	if hiArg != nil {
		if hi, ok = starlark.AsFloat(hiArg); !ok {
			return nil, fmt.Errorf("%s: max must be a number, got %s", fn.Name(), hiArg.Type())
		}
	}
	return starlark.Float(r.Number(lo, hi)), nil
}

func randBool(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 0); err != nil {
		return nil, err
	}
	r, err := randOf(thread, fn)
	if err != nil {
		return nil, err
	}
	return starlark.Bool(r.Bool()), nil
}

func randPick(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var seq starlark.Indexable
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &seq); err != nil {
		return nil, err
	}
	if seq.Len() == 0 {
		return nil, fmt.Errorf("%s: empty sequence", fn.Name())
	}
	r, err := randOf(thread, fn)
	if err != nil {
		return nil, err
	}
	return seq.Index(r.Int(0, seq.Len()-1)), nil
}

// formatValue runs a registered format generator: format("email").
func (m *Module) formatValue(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}
	r, err := randOf(thread, fn)
	if err != nil {
		return nil, err
	}
	gen, known := m.formats.Lookup(name)
	if gen == nil {
		if known {
			return nil, fmt.Errorf("%s: format %q is not supported", fn.Name(), name)
		}
		return nil, fmt.Errorf("%s: unknown format %q", fn.Name(), name)
	}
	v, err := gen(r, map[string]any{"type": "string", "format": name})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name(), err)
	}
	return toStarlark(v), nil
}
