package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gagern/confoo/pkg/cache"
	"github.com/gagern/confoo/pkg/server"
)

// serveCommand creates the serve command, which exposes the flattening
// pipeline over HTTP until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		maxBody int64
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve answers POST /v1/flatten with the flattened mesh. The request body
is a Wavefront OBJ file; options are query parameters named like the
flatten flags, e.g. /v1/flatten?format=svg&angle=1:90&angle=3:90.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Server
			flags := cmd.Flags()
			if !flags.Changed("addr") && cfg.Addr != "" {
				addr = cfg.Addr
			}
			if !flags.Changed("max-body") && cfg.MaxBodySize > 0 {
				maxBody = cfg.MaxBodySize
			}
			if !flags.Changed("timeout") && cfg.Timeout > 0 {
				timeout = cfg.Timeout
			}

			runner, err := c.newRunner(ctx, cache.NewScopedKeyer(cache.NewDefaultKeyer(), "api:"))
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner, c.Logger,
				server.WithMaxBodySize(maxBody),
				server.WithTimeout(timeout),
			)
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBodySize, "largest accepted request body in bytes")
	cmd.Flags().DurationVar(&timeout, "timeout", server.DefaultTimeout, "per-request time limit")

	return cmd
}
