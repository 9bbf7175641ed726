package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// watchDebounce collapses bursts of editor writes into one regeneration.
const watchDebounce = 100 * time.Millisecond

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var (
		schemaName string
		watch      bool
		list       bool
	)

	cmd := &cobra.Command{
		Use:   "generate <schema>",
		Short: "Generate fake data from a JSON Schema or OpenAPI document",
		Long: `Generate values that conform to a JSON Schema.

The schema may be a local path, an http(s) URL, or "-" for standard input.
JSON, YAML and OpenAPI documents are accepted; external $refs are fetched.
For documents holding many schemas, --schema-name picks one from
components/schemas, $defs or definitions.`,
		Example: `  # Generate one value
  schemafaker generate pet.json

  # Generate five values from a named OpenAPI schema as YAML
  schemafaker generate openapi.yaml -n Pet --count 5 -o yaml

  # Reproducible output
  schemafaker generate pet.json --seed 42

  # Regenerate whenever the schema changes
  schemafaker generate pet.json --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			run := &generateRun{cc: cc, uri: args[0], name: schemaName, out: cmd.OutOrStdout(), in: cmd.InOrStdin()}
			switch {
			case list:
				return run.list(cmd.Context())
			case watch:
				return run.watch(cmd.Context())
			default:
				return run.once(cmd.Context())
			}
		},
	}

	cmd.Flags().StringVarP(&schemaName, "schema-name", "n", "", "Named schema or JSON pointer to generate")
	cmd.Flags().Int("count", 1, "Number of values to generate")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Regenerate when the schema or its refs change")
	cmd.Flags().BoolVar(&list, "list", false, "List the named schemas in the document")

	return cmd
}

type generateRun struct {
	cc   *CommandContext
	uri  string
	name string
	out  io.Writer
	in   io.Reader
	mu   sync.Mutex
}

func (r *generateRun) once(ctx context.Context) error {
	b, err := r.cc.Load(ctx, r.uri, r.in)
	if err != nil {
		return err
	}
	g, err := r.cc.Generator()
	if err != nil {
		return err
	}

	results := make([]*schemagen.Result, 0, r.cc.Config.Count)
	for i := 0; i < r.cc.Config.Count; i++ {
		res, err := b.Generate(ctx, g, r.name)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	renderer, err := Renderer(r.cc.Config.Output, r.out)
	if err != nil {
		return err
	}
	text, err := renderResults(renderer, results)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(r.out, text)
	return nil
}

func (r *generateRun) list(ctx context.Context) error {
	b, err := r.cc.Load(ctx, r.uri, r.in)
	if err != nil {
		return err
	}
	for _, name := range b.Names() {
		_, _ = fmt.Fprintln(r.out, name)
	}
	return nil
}

// renderResults renders one value as-is. Several JSON values become one
// array; several YAML values become a multi-document stream.
func renderResults(renderer render.Renderer, results []*schemagen.Result) (string, error) {
	if len(results) == 1 {
		return renderer.Render(results[0].Value, results[0].Context)
	}
	if _, ok := renderer.(render.JSON); ok {
		values := make([]any, len(results))
		for i, res := range results {
			values[i] = res.Value
		}
		return renderer.Render(values, nil)
	}
	docs := make([]string, len(results))
	for i, res := range results {
		text, err := renderer.Render(res.Value, res.Context)
		if err != nil {
			return "", err
		}
		docs[i] = text
	}
	return strings.Join(docs, "\n---\n"), nil
}

// watch generates once, then again after every change to the schema file
// or a configured ref file, until ctx is done.
func (r *generateRun) watch(ctx context.Context) error {
	if r.uri == stdinName || strings.Contains(r.uri, "://") {
		return errors.New("--watch needs a local schema file")
	}

	files := map[string]bool{}
	paths := []string{r.uri}
	refs, err := r.cc.Config.ParsedRefs()
	if err != nil {
		return err
	}
	for _, ref := range refs {
		paths = append(paths, ref.Path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := map[string]bool{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		files[abs] = true
		// Editors often replace files, so the directory is watched.
		if dir := filepath.Dir(abs); !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}

	r.regenerate(ctx)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !files[abs] {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			name := filepath.Base(event.Name)
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				r.cc.Logger.Infof("change detected: %s", name)
				r.regenerate(ctx)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.cc.Logger.Warnf("watcher error: %v", err)
		}
	}
}

// regenerate runs once and logs failures instead of stopping the watch.
func (r *generateRun) regenerate(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err := r.once(ctx); err != nil {
		r.cc.Logger.Errorf("generation failed: %v", err)
	}
}
