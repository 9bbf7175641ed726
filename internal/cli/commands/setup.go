// Package commands implements the schemafaker subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/internal/cli/config"
	"github.com/speakeasy-api/schemafaker/pkg/loader"
	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/pkg/starhook"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// stdinName is the schema argument that reads from standard input.
const stdinName = "-"

// CommandContext holds what generating commands share.
type CommandContext struct {
	Config  *config.Config
	Logger  schemagen.Logger
	Formats *format.Registry
	Hooks   *schemagen.Hooks
	Scripts starhook.Set
}

// NewCommandContext builds the registries and logger from the command's
// config. Hook scripts are loaded here so a broken script fails early.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cfg := config.FromContext(cmd.Context())
	c := &CommandContext{
		Config:  cfg,
		Logger:  schemagen.NewLogger(schemagen.ParseLogLevel(cfg.LogLevel), cmd.ErrOrStderr()),
		Formats: format.NewRegistry(),
		Hooks:   schemagen.NewHooks(),
	}
	for _, path := range cfg.Hooks {
		m, err := starhook.Load(path, starhook.WithFormats(c.Formats))
		if err != nil {
			return nil, fmt.Errorf("failed to load hook script: %w", err)
		}
		c.Scripts = append(c.Scripts, m)
		c.Logger.Debugf("loaded hook script %s exporting %s", m.Name(), strings.Join(m.Functions(), ", "))
	}
	if len(c.Scripts) > 0 {
		c.Scripts.Register(c.Hooks)
	}
	return c, nil
}

// Generator builds a generator sharing the context's registries.
func (c *CommandContext) Generator() (*schemagen.Generator, error) {
	opts, err := c.Config.EngineOptions()
	if err != nil {
		return nil, err
	}
	return schemagen.New(opts,
		schemagen.WithFormats(c.Formats),
		schemagen.WithHooks(c.Hooks),
		schemagen.WithLogger(c.Logger),
	)
}

// Load reads the schema at uri, or from in when uri is "-", together with
// every document it references. Configured extra refs are loaded first and
// registered under their ids.
func (c *CommandContext) Load(ctx context.Context, uri string, in io.Reader) (*loader.Bundle, error) {
	preloaded, err := c.loadRefs(ctx)
	if err != nil {
		return nil, err
	}
	l := loader.New(loader.WithLogger(c.Logger), loader.WithPreloaded(preloaded))

	if uri != stdinName {
		return l.Load(ctx, uri)
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("failed to read standard input: %w", err)
	}
	return l.LoadBytes(ctx, "", data)
}

func (c *CommandContext) loadRefs(ctx context.Context) (map[string]any, error) {
	refs, err := c.Config.ParsedRefs()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(refs))
	l := loader.New(loader.WithLogger(c.Logger))
	for _, ref := range refs {
		b, err := l.Load(ctx, ref.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to load ref %s: %w", ref.ID, err)
		}
		out[ref.ID] = b.Root
		// Nested documents were keyed relative to the ref's own location.
		for k, doc := range b.Refs {
			key := schemagen.ResolveURI(ref.ID, k)
			if _, taken := out[key]; !taken {
				out[key] = doc
			}
		}
	}
	return out, nil
}

// Renderer resolves the configured output for w. "auto" is indented JSON on
// a terminal and compact JSON otherwise.
func Renderer(output string, w io.Writer) (render.Renderer, error) {
	if output == config.DefaultOutput {
		output = "json-compact"
		if isTerminal(w) {
			output = "json"
		}
	}
	return render.ByName(output)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
