package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the confoo CLI and returns an error if any command fails.
// This is the main entry point for the CLI application.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v): debug level
//   - With -vv: per-edge and per-iteration trace output
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute(ctx context.Context, args []string) error {
	var verbosity int

	c := New(os.Stderr, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SilenceErrors = true
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "enable verbose logging (repeat for trace output)")

	configure := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c.SetLogLevel(levelFor(verbosity))
		return configure(cmd, args)
	}

	return root.ExecuteContext(ctx)
}
