package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/pkg/playground"
)

// NewAnnotateCommand creates the annotate command.
func NewAnnotateCommand() *cobra.Command {
	var (
		strict bool
		write  bool
	)

	cmd := &cobra.Command{
		Use:   "annotate <openapi>",
		Short: "Fill in OpenAPI examples marked with " + playground.ExtensionName,
		Long: `Generate examples for every schema or media type in an OpenAPI document
that carries the ` + playground.ExtensionName + ` extension, and print the
rewritten document.

The extension is either true or an object:
  ` + playground.ExtensionName + `:
    count: 3        # number of examples
    seed: 42        # reproducible output for this node
    target: examples
    options: {alwaysFakeOptionals: true}

Failures are reported as warnings and leave the marker in place, unless
--strict is set.`,
		Example: `  # Print the annotated document
  schemafaker annotate openapi.yaml

  # Rewrite the file, failing on any problem
  schemafaker annotate openapi.yaml --strict --write`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if write && args[0] == stdinName {
				return fmt.Errorf("--write needs a file, not standard input")
			}
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			var data []byte
			if args[0] == stdinName {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to read document: %w", err)
			}

			res, err := playground.AnnotateExamples(cmd.Context(), string(data), playground.AnnotateConfig{
				Strict:  strict,
				Options: cc.Config.EngineOptionMap(),
				Formats: cc.Formats,
				Hooks:   cc.Hooks,
				Logger:  cc.Logger,
			})
			if err != nil {
				return err
			}

			for _, w := range res.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			cc.Logger.Infof("annotated %d nodes", len(res.Annotated))

			if write {
				info, err := os.Stat(args[0])
				if err != nil {
					return err
				}
				return os.WriteFile(args[0], []byte(res.Document), info.Mode().Perm())
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), res.Document)
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on validation findings and generation errors")
	cmd.Flags().BoolVar(&write, "write", false, "Rewrite the document in place")

	return cmd
}
