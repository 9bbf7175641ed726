package starhook

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakeasy-api/schemafaker/random"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

const script = `
def sku(schema):
    prefix = schema.get("x-prefix", "SKU")
    return "%s-%d" % (prefix, rand_int(1000, 9999))

def pick_color(schema):
    return rand_pick(["red", "green", "blue"])

def price(schema, scale):
    return round_to(rand_float(1, 10) * scale)

def email(schema):
    return format("email")

def spin(schema):
    n = 0
    for i in range(100000000):
        n += i
    return n

def round_to(x):
    return int(x * 100) / 100.0

def _hidden(schema):
    return "no"

LIMIT = 3
`

func loadScript(t *testing.T) *Module {
	t.Helper()
	m, err := LoadSource("catalog.star", []byte(script))
	require.NoError(t, err)
	return m
}

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.star")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "catalog", m.Name())
	assert.Equal(t, []string{"email", "pick_color", "price", "round_to", "sku", "spin"}, m.Functions())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.star"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Contains(t, le.Message, "failed to read file")

	_, err = LoadSource("bad.star", []byte("def broken(:\n"))
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "bad.star", le.File)

	_, err = LoadSource("eager.star", []byte("X = rand_int(1, 2)\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only available inside a hook call")
}

func TestCall_UsesSchemaAndRand(t *testing.T) {
	m := loadScript(t)
	r := random.NewSeeded(3)

	v, err := m.Call(context.Background(), r, "sku", schemagen.Schema{"x-prefix": "ACME"})
	require.NoError(t, err)
	s, ok := v.(string)
	require.True(t, ok, "got %T", v)
	assert.True(t, strings.HasPrefix(s, "ACME-"), s)
	assert.Len(t, s, len("ACME-0000"))

	v, err = m.Call(context.Background(), r, "pick_color", nil)
	require.NoError(t, err)
	assert.Contains(t, []any{"red", "green", "blue"}, v)

	v, err = m.Call(context.Background(), r, "price", nil, int64(10))
	require.NoError(t, err)
	f, ok := v.(float64)
	require.True(t, ok, "got %T", v)
	assert.GreaterOrEqual(t, f, 10.0)
	assert.LessOrEqual(t, f, 100.0)

	v, err = m.Call(context.Background(), r, "email", nil)
	require.NoError(t, err)
	assert.Contains(t, v, "@")
}

func TestCall_UnknownAndPrivateFunctions(t *testing.T) {
	m := loadScript(t)
	r := random.NewSeeded(1)

	_, err := m.Call(context.Background(), r, "nope", nil)
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = m.Call(context.Background(), r, "_hidden", nil)
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = m.Call(context.Background(), r, "LIMIT", nil)
	assert.ErrorIs(t, err, ErrNoFunction)
}

func TestCall_StepLimit(t *testing.T) {
	m, err := LoadSource("catalog.star", []byte(script), WithMaxSteps(10_000))
	require.NoError(t, err)

	_, err = m.Call(context.Background(), random.NewSeeded(1), "spin", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.spin")
}

func TestCall_Cancelled(t *testing.T) {
	m := loadScript(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Call(ctx, random.NewSeeded(1), "spin", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHook_InsideGenerator(t *testing.T) {
	m := loadScript(t)
	hooks := schemagen.NewHooks()
	m.Register(hooks)

	opts := schemagen.DefaultOptions()
	opts.Seed = 11
	opts.AlwaysFakeOptionals = true
	g, err := schemagen.New(opts, schemagen.WithHooks(hooks))
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sku":   map[string]any{"type": "string", "x-starlark": "sku", "x-prefix": "P"},
			"color": map[string]any{"type": "string", "x-starlark": map[string]any{"fn": "pick_color"}},
			"price": map[string]any{"type": "number", "x-starlark": map[string]any{"fn": "price", "args": []any{2}}},
		},
	}, nil)
	require.NoError(t, err)

	obj := res.Value.(map[string]any)
	assert.True(t, strings.HasPrefix(obj["sku"].(string), "P-"))
	assert.Contains(t, []any{"red", "green", "blue"}, obj["color"])
	assert.IsType(t, float64(0), obj["price"])
}

func TestHook_BadArgument(t *testing.T) {
	hook := loadScript(t).Hook()
	_, err := hook(context.Background(), 42, nil, random.NewSeeded(1))
	assert.ErrorIs(t, err, ErrBadArgument)

	_, err = hook(context.Background(), map[string]any{"args": []any{}}, nil, random.NewSeeded(1))
	assert.ErrorIs(t, err, ErrBadArgument)
}

func TestConvert_RoundTrip(t *testing.T) {
	in := map[string]any{
		"s": "x",
		"n": int64(3),
		"f": 1.5,
		"b": true,
		"l": []any{nil, "y"},
		"m": map[string]any{"k": []string{"a"}},
	}
	out := toGo(toStarlark(in))
	assert.Equal(t, map[string]any{
		"s": "x",
		"n": int64(3),
		"f": 1.5,
		"b": true,
		"l": []any{nil, "y"},
		"m": map[string]any{"k": []any{"a"}},
	}, out)

	assert.Nil(t, toGo(toStarlark(func() {})))
}

func TestSet_Dispatch(t *testing.T) {
	catalog := loadScript(t)
	other, err := LoadSource("other.star", []byte("def sku(schema):\n    return \"other\"\n\ndef only(schema):\n    return 1\n"))
	require.NoError(t, err)

	hook := Set{catalog, other}.Hook()
	r := random.NewSeeded(1)

	v, err := hook(context.Background(), "sku", schemagen.Schema{}, r)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(v.(string), "SKU-"), "bare name goes to the first module, got %v", v)

	v, err = hook(context.Background(), "other.sku", schemagen.Schema{}, r)
	require.NoError(t, err)
	assert.Equal(t, "other", v)

	v, err = hook(context.Background(), "only", schemagen.Schema{}, r)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	_, err = hook(context.Background(), "missing", schemagen.Schema{}, r)
	assert.ErrorIs(t, err, ErrNoFunction)

	_, err = hook(context.Background(), "other.missing", schemagen.Schema{}, r)
	assert.ErrorIs(t, err, ErrNoFunction)
}
