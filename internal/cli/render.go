package cli

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/pipeline"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output  string // output file (single format) or base path
	formats string // comma-separated output formats
	width   int    // drawing width in pixels
	height  int    // drawing height in pixels
	labels  bool   // draw vertex ids
	refresh bool   // ignore cached artifacts
}

// renderCommand creates the render command, which draws a flattened mesh
// previously written by "flatten -f json" without optimizing again.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render flat.json",
		Short: "Draw a flattened JSON mesh as SVG, PNG or DOT",
		Example: `  confoo flatten square.obj -f json
  confoo render square.flat.json -f svg,png --labels`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd, args[0], &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several)")
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s): svg (default), png, dot, graphviz, layout, obj")
	f.IntVar(&opts.width, "width", 0, "drawing width in pixels")
	f.IntVar(&opts.height, "height", 0, "drawing height in pixels")
	f.BoolVar(&opts.labels, "labels", false, "draw vertex ids")
	f.BoolVar(&opts.refresh, "refresh", false, "redraw even if cached")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, input string, ro *renderOpts) error {
	ctx := cmd.Context()

	var opts pipeline.Options
	c.Config.apply(&opts)
	opts.Logger = c.Logger
	opts.Refresh = ro.refresh
	flags := cmd.Flags()
	if flags.Changed("width") {
		opts.Width = ro.width
	}
	if flags.Changed("height") {
		opts.Height = ro.height
	}
	if flags.Changed("labels") {
		opts.Labels = ro.labels
	}
	switch {
	case ro.formats != "":
		opts.Formats = parseFormats(ro.formats)
	case ro.output != "":
		opts.Formats = []string{formatFromPath(ro.output)}
	case len(opts.Formats) == 0:
		opts.Formats = []string{pipeline.FormatSVG}
	}
	if err := opts.ValidateForRender(); err != nil {
		return err
	}

	doc, err := cio.ImportJSON(input)
	if err != nil {
		return err
	}
	if len(doc.Vertices) == 0 {
		return errors.New(errors.ErrCodeInvalidMesh, "%s has no vertices", input)
	}
	logger := loggerFromContext(ctx)
	logger.Infof("Rendering %s", input)

	artifacts, hit, err := c.render(ctx, doc, opts)
	if err != nil {
		return err
	}
	logger.Debug("rendered", "formats", opts.Formats, "cached", hit)

	base := strings.TrimSuffix(input, filepath.Ext(input))
	if ro.output != "" {
		base = basePath(ro.output, input)
	}
	for _, format := range opts.Formats {
		path := base + "." + format
		if len(opts.Formats) == 1 && ro.output != "" {
			path = ro.output
		}
		if err := writeOutput(path, artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

func (c *CLI) render(ctx context.Context, doc *cio.MeshDoc, opts pipeline.Options) (map[string][]byte, bool, error) {
	runner, err := c.newRunner(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer runner.Close()
	return runner.RenderWithCacheInfo(ctx, doc, opts)
}
