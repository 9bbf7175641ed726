// Package cli provides the command-line interface for schemafaker.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/internal/cli/commands"
	"github.com/speakeasy-api/schemafaker/internal/cli/config"
	"github.com/speakeasy-api/schemafaker/pkg/render"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "schemafaker",
		Short: "schemafaker - fake data from JSON Schema",
		Long: `schemafaker generates realistic values that conform to JSON Schema and
OpenAPI documents, for fixtures, mocks and examples.

Configuration is read from ./schemafaker.yaml (or --config), then
SCHEMAFAKER_* environment variables, then flags.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if used != "" && cfg.LogLevel == "debug" {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Using config file: %s\n", used)
			}
			cmd.SetContext(config.WithContext(cmd.Context(), cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./schemafaker.yaml)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format (auto|json|json-compact|yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (error|warn|info|debug)")
	rootCmd.PersistentFlags().Uint64("seed", 0, "Random seed; 0 seeds from the clock")
	rootCmd.PersistentFlags().StringArray("ref", nil, "Extra schema document as path or id=path (repeatable)")
	rootCmd.PersistentFlags().StringSlice("hook", nil, "Starlark hook script (repeatable)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return append([]string{config.DefaultOutput}, render.Names()...), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"error", "warn", "info", "debug"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit))
	rootCmd.AddCommand(commands.NewGenerateCommand())
	rootCmd.AddCommand(commands.NewFormatsCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewAnnotateCommand())

	return rootCmd
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
