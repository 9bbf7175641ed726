package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.StringP("output", "o", "", "")
	fs.String("log-level", "", "")
	fs.Uint64("seed", 0, "")
	fs.Int("count", 1, "")
	fs.StringArray("ref", nil, "")
	fs.StringSlice("hook", nil, "")
	fs.String("addr", "", "")
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schemafaker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultCount, cfg.Count)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Zero(t, cfg.Seed)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
output: yaml
log_level: info
seed: 7
count: 3
refs:
  - common.json=./schemas/common.json
options:
  alwaysFakeOptionals: true
  maxItems: 4
`)
	t.Setenv("SCHEMAFAKER_LOG_LEVEL", "debug")
	t.Setenv("SCHEMAFAKER_COUNT", "5")

	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--count", "9", "--hook", "a.star,b.star"}))

	cfg, used, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, path, used)

	assert.Equal(t, "yaml", cfg.Output)    // file
	assert.Equal(t, "debug", cfg.LogLevel) // env over file
	assert.Equal(t, 9, cfg.Count)          // flag over env
	assert.Equal(t, uint64(7), cfg.Seed)   // file
	assert.Equal(t, DefaultAddr, cfg.Addr) // default
	assert.Equal(t, []string{"a.star", "b.star"}, cfg.Hooks)

	refs, err := cfg.ParsedRefs()
	require.NoError(t, err)
	assert.Equal(t, []Ref{{ID: "common.json", Path: "./schemas/common.json"}}, refs)

	opts, err := cfg.EngineOptions()
	require.NoError(t, err)
	assert.True(t, opts.AlwaysFakeOptionals)
	assert.Equal(t, 4, opts.MaxItems)
	assert.Equal(t, uint64(7), opts.Seed)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestLoad_UnchangedFlagsDoNotOverride(t *testing.T) {
	path := writeConfig(t, "output: json-compact\n")
	fs := newFlags()
	require.NoError(t, fs.Parse(nil))

	cfg, _, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, "json-compact", cfg.Output)
}

func TestLoad_RefFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	fs := newFlags()
	require.NoError(t, fs.Parse([]string{"--ref", "a.json", "--ref", "b=./dir/b.yaml"}))

	cfg, _, err := Load("", fs)
	require.NoError(t, err)

	refs, err := cfg.ParsedRefs()
	require.NoError(t, err)
	assert.Equal(t, []Ref{{ID: "a.json", Path: "a.json"}, {ID: "b", Path: "./dir/b.yaml"}}, refs)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{"bad output", "output: xml\n", "invalid output"},
		{"bad count", "count: 0\n", "count must be at least 1"},
		{"bad option", "options:\n  nope: 1\n", "invalid options"},
		{"bad ref", "refs: ['=x']\n", "invalid ref"},
		{"bad yaml", "output: [\n", "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestLoad_FindsConfigInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemafaker.yml"), []byte("addr: :9999\n"), 0o644))
	t.Chdir(dir)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "schemafaker.yml", used)
	assert.Equal(t, ":9999", cfg.Addr)
}

func TestContext(t *testing.T) {
	fallback := FromContext(context.Background())
	assert.Equal(t, DefaultOutput, fallback.Output)

	cfg := &Config{Output: "yaml"}
	assert.Same(t, cfg, FromContext(WithContext(context.Background(), cfg)))
}
