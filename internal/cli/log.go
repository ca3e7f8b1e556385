// Package cli implements the confoo command-line interface.
//
// This package provides commands for flattening meshes, inspecting their
// topology, redrawing flattened results, serving the HTTP API and
// managing the result cache. The CLI is built using cobra and logs via
// the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - flatten: Compute the conformal flattening of an OBJ mesh
//   - inspect: Print vertex, edge and boundary statistics of a mesh
//   - render: Draw a flattened JSON mesh as SVG, PNG or DOT
//   - serve: Run the HTTP API
//   - cache: Manage the result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and -vv for
// trace output. Loggers are passed through context.Context.
//
// # Example
//
//	import "github.com/gagern/confoo/internal/cli"
//
//	func main() {
//	    if err := cli.Execute(ctx, os.Args[1:]); err != nil {
//	        os.Exit(1)
//	    }
//	}
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// traceLevel is below debug; the optimizer logs per-edge values there.
const traceLevel = log.DebugLevel - 1

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// levelFor maps the number of -v flags to a log level.
func levelFor(verbosity int) log.Level {
	switch {
	case verbosity >= 2:
		return traceLevel
	case verbosity == 1:
		return log.DebugLevel
	default:
		return log.InfoLevel
	}
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time, rounded to milliseconds.
// Example output: "Flattened 9 vertices (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
