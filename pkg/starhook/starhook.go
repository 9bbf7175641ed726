// Package starhook lets Starlark scripts generate values. A schema node
// carrying "x-starlark": "name" is produced by calling the script's exported
// function name with the node as a dict.
package starhook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/random"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// Keyword is the schema keyword the hook is registered under.
const Keyword = "x-starlark"

// DefaultMaxSteps bounds the work a single hook call may do.
const DefaultMaxSteps = 1_000_000

const randLocal = "schemafaker.rand"

var (
	// ErrNoFunction is returned when a node names a function the script
	// does not export.
	ErrNoFunction = errors.New("starlark function not found")
	// ErrBadArgument is returned for keyword values that name no function.
	ErrBadArgument = errors.New("invalid x-starlark value")
)

// LoadError reports a script that failed to load.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Module is a loaded script. Its globals are frozen, so one Module may serve
// concurrent generations.
type Module struct {
	name     string
	exports  starlark.StringDict
	formats  *format.Registry
	maxSteps uint64
}

// Option configures a Module.
type Option func(*Module)

// WithFormats sets the registry behind the format() builtin.
func WithFormats(reg *format.Registry) Option {
	return func(m *Module) { m.formats = reg }
}

// WithMaxSteps overrides DefaultMaxSteps.
func WithMaxSteps(n uint64) Option {
	return func(m *Module) { m.maxSteps = n }
}

// Load reads and executes the script at path.
func Load(path string, opts ...Option) (*Module, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	return LoadSource(path, src, opts...)
}

// LoadSource executes src as a script named name.
func LoadSource(name string, src []byte, opts ...Option) (*Module, error) {
	m := &Module{
		name:     strings.TrimSuffix(filepath.Base(name), ".star"),
		formats:  format.NewRegistry(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(m)
	}

	thread := &starlark.Thread{
		Name:  "load:" + m.name,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(m.maxSteps)

	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, m.predeclared())
	if err != nil {
		return nil, &LoadError{File: name, Message: fmt.Sprintf("starlark execution error: %v", err)}
	}
	globals.Freeze()

	m.exports = make(starlark.StringDict)
	for k, v := range globals {
		if !strings.HasPrefix(k, "_") {
			m.exports[k] = v
		}
	}
	return m, nil
}

// Name is the script's base name without extension.
func (m *Module) Name() string { return m.name }

// Functions lists the exported callables.
func (m *Module) Functions() []string {
	var out []string
	for k, v := range m.exports {
		if _, ok := v.(starlark.Callable); ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Register installs the module's hook under Keyword.
func (m *Module) Register(h *schemagen.Hooks) {
	h.Register(Keyword, m.Hook())
}

// Hook returns the hook function. The keyword value is either a function
// name or a mapping {"fn": name, "args": [...]}; extra args follow the
// schema dict.
func (m *Module) Hook() schemagen.HookFunc {
	return func(ctx context.Context, arg any, schema schemagen.Schema, r *random.Rand) (any, error) {
		name, extra, err := parseArg(arg)
		if err != nil {
			return nil, err
		}
		return m.Call(ctx, r, name, schema, extra...)
	}
}

// Call invokes the exported function name with schema and args.
func (m *Module) Call(ctx context.Context, r *random.Rand, name string, schema schemagen.Schema, args ...any) (any, error) {
	fn, ok := m.exports[name].(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNoFunction, m.name, name)
	}

	callArgs := make(starlark.Tuple, 0, len(args)+1)
	callArgs = append(callArgs, toStarlark(map[string]any(schema)))
	for _, a := range args {
		callArgs = append(callArgs, toStarlark(a))
	}

	thread := &starlark.Thread{
		Name:  m.name + "." + name,
		Print: func(*starlark.Thread, string) {},
	}
	thread.SetMaxExecutionSteps(m.maxSteps)
	thread.SetLocal(randLocal, r)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	out, err := starlark.Call(thread, fn, callArgs, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%s.%s: %w", m.name, name, err)
	}
	return toGo(out), nil
}

func parseArg(arg any) (string, []any, error) {
	switch v := arg.(type) {
	case string:
		if v != "" {
			return v, nil, nil
		}
	case map[string]any:
		name, _ := v["fn"].(string)
		if name == "" {
			break
		}
		args, _ := v["args"].([]any)
		return name, args, nil
	}
	return "", nil, fmt.Errorf("%w: %v", ErrBadArgument, arg)
}

// Set dispatches one keyword to several modules. A name qualified as
// "module.fn" selects a module; a bare name goes to the first module that
// exports it.
type Set []*Module

// Register installs the set's hook under Keyword.
func (s Set) Register(h *schemagen.Hooks) {
	h.Register(Keyword, s.Hook())
}

// Hook returns the dispatching hook function.
func (s Set) Hook() schemagen.HookFunc {
	return func(ctx context.Context, arg any, schema schemagen.Schema, r *random.Rand) (any, error) {
		name, extra, err := parseArg(arg)
		if err != nil {
			return nil, err
		}
		m, fn, err := s.lookup(name)
		if err != nil {
			return nil, err
		}
		return m.Call(ctx, r, fn, schema, extra...)
	}
}

func (s Set) lookup(name string) (*Module, string, error) {
	if mod, fn, ok := strings.Cut(name, "."); ok {
		for _, m := range s {
			if m.name == mod {
				return m, fn, nil
			}
		}
	}
	for _, m := range s {
		if _, ok := m.exports[name].(starlark.Callable); ok {
			return m, name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", ErrNoFunction, name)
}
