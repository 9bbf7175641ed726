package commands

import (
	"github.com/spf13/cobra"

	"github.com/speakeasy-api/schemafaker/pkg/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generation over HTTP",
		Long: `Start an HTTP server exposing generation.

Endpoints:
  GET  /healthz   liveness
  GET  /formats   registered formats
  POST /generate  {"schema": ..., "refs": ..., "options": ..., "count": n}

Request options overlay the configured options. Hook scripts given with
--hook are available to every request.`,
		Example: `  schemafaker serve --addr :9090 --hook hooks/catalog.star`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			srv := server.New(server.Config{
				Addr:    cc.Config.Addr,
				Options: cc.Config.EngineOptionMap(),
				Formats: cc.Formats,
				Hooks:   cc.Hooks,
				Logger:  cc.Logger,
			})
			return srv.Serve(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (default :8080)")

	return cmd
}
