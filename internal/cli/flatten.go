package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/pipeline"
)

// flattenOpts holds the command-line flags for the flatten command.
type flattenOpts struct {
	output     string   // output file (single format) or base path
	angles     []string // N=deg, repeatable
	isometric  bool     // keep boundary lengths
	inGeometry string   // geometry of the input lengths
	geometry   string   // geometry of the result
	bound      float64  // largest acceptable angle sum error, radians
	maxIter    int      // Newton step limit
	start      string   // a,b,c corners of the first laid out triangle
	formats    string   // comma-separated output formats
	width      int      // drawing width in pixels
	height     int      // drawing height in pixels
	labels     bool     // draw vertex ids
	refresh    bool     // ignore cached results
	progress   bool     // live optimizer view
}

// flattenCommand creates the flatten command.
//
// The positional form "flatten in.obj out.obj a1 a2 ..." prescribes the
// angles a1..an, in degrees, at vertices 1..n.
func (c *CLI) flattenCommand() *cobra.Command {
	var opts flattenOpts

	cmd := &cobra.Command{
		Use:   "flatten in.obj [out] [angles...]",
		Short: "Flatten a triangle mesh by a discrete conformal map",
		Long: `Flatten reads a Wavefront OBJ mesh, rescales its edge lengths until every
vertex has its target angle sum and lays the result out in the plane.

Without --isometric, corners of the boundary get 90°, other boundary
vertices 180° and interior vertices 360°, unless --angle says otherwise.
Vertex ids are the 1-based OBJ indices.`,
		Example: `  confoo flatten square.obj --angle 1=90 --angle 3=90 -f obj,svg
  confoo flatten square.obj flat.obj 90 90 90 90
  confoo flatten patch.obj --isometric --geometry hyperbolic -f png`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFlatten(cmd, args, &opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path (several)")
	f.StringArrayVarP(&opts.angles, "angle", "a", nil, "target angle sum as id=degrees (repeatable)")
	f.BoolVar(&opts.isometric, "isometric", false, "keep boundary lengths instead of prescribing angles")
	f.StringVar(&opts.inGeometry, "input-geometry", "", "geometry of the input lengths: euclidean (default), hyperbolic")
	f.StringVarP(&opts.geometry, "geometry", "g", "", "geometry of the result: euclidean (default), hyperbolic")
	f.Float64Var(&opts.bound, "bound", 0, "largest acceptable angle sum error in radians")
	f.IntVar(&opts.maxIter, "max-iterations", 0, "Newton step limit")
	f.StringVar(&opts.start, "start", "", "first triangle of the layout as a,b,c")
	f.StringVarP(&opts.formats, "format", "f", "", "output format(s): obj (default), json, svg, png, dot, graphviz, layout")
	f.IntVar(&opts.width, "width", 0, "drawing width in pixels")
	f.IntVar(&opts.height, "height", 0, "drawing height in pixels")
	f.BoolVar(&opts.labels, "labels", false, "draw vertex ids")
	f.BoolVar(&opts.refresh, "refresh", false, "recompute even if cached")
	f.BoolVar(&opts.progress, "progress", false, "show live optimizer progress")

	return cmd
}

func (c *CLI) runFlatten(cmd *cobra.Command, args []string, fo *flattenOpts) error {
	ctx := cmd.Context()
	input := args[0]
	if len(args) > 1 {
		if fo.output != "" {
			return errors.New(errors.ErrCodeInvalidInput, "output given twice: %s and --output %s", args[1], fo.output)
		}
		fo.output = args[1]
	}

	opts, err := c.pipelineOptions(cmd, fo, args[min(len(args), 2):])
	if err != nil {
		return err
	}

	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, nil)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	var res *pipeline.Result
	if fo.progress {
		res, err = runWithProgress(ctx, filepath.Base(input), func(ctx context.Context) (*pipeline.Result, error) {
			return runner.Execute(ctx, data, opts)
		})
	} else {
		res, err = spinWhile(ctx, "Flattening "+filepath.Base(input), func(ctx context.Context) (*pipeline.Result, error) {
			return runner.Execute(ctx, data, opts)
		})
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Flattened %s", filepath.Base(input)))

	printSuccess("Flattened %d vertices, %d triangles", res.Stats.Mesh.Vertices, res.Stats.Mesh.Triangles)
	printStats(res.Stats.Iterations, res.Stats.Exit, res.CacheInfo.TransformHit)

	base := basePath(fo.output, input)
	for _, format := range opts.Formats {
		path := base + "." + format
		if len(opts.Formats) == 1 && fo.output != "" {
			path = fo.output
		}
		if err := writeOutput(path, res.Artifacts[format]); err != nil {
			return err
		}
		printFile(path)
	}
	return nil
}

// pipelineOptions merges config file values, flags and legacy positional
// angles. Flags win over the config file.
func (c *CLI) pipelineOptions(cmd *cobra.Command, fo *flattenOpts, legacy []string) (pipeline.Options, error) {
	var opts pipeline.Options
	c.Config.apply(&opts)
	opts.Logger = c.Logger

	flags := cmd.Flags()
	if flags.Changed("isometric") {
		opts.Isometric = fo.isometric
	}
	if flags.Changed("input-geometry") {
		opts.InputGeometry = fo.inGeometry
	}
	if flags.Changed("geometry") {
		opts.OutputGeometry = fo.geometry
	}
	if flags.Changed("bound") {
		opts.AngleErrorBound = fo.bound
	}
	if flags.Changed("max-iterations") {
		opts.MaxIterations = fo.maxIter
	}
	if flags.Changed("width") {
		opts.Width = fo.width
	}
	if flags.Changed("height") {
		opts.Height = fo.height
	}
	if flags.Changed("labels") {
		opts.Labels = fo.labels
	}
	opts.Refresh = fo.refresh

	if fo.formats != "" {
		opts.Formats = parseFormats(fo.formats)
	} else if len(opts.Formats) == 0 {
		opts.Formats = []string{formatFromPath(fo.output)}
	}

	if fo.start != "" {
		start, err := parseStart(fo.start)
		if err != nil {
			return opts, err
		}
		opts.Start = start
	}

	angles, err := parseAngles(fo.angles, legacy)
	if err != nil {
		return opts, err
	}
	if len(angles) > 0 {
		if opts.Angles == nil {
			opts.Angles = make(map[int]float64, len(angles))
		}
		for id, a := range angles {
			opts.Angles[id] = a
		}
	}

	return opts, opts.ValidateAndSetDefaults()
}

// parseAngles reads id=deg flags and positional degrees for vertices
// 1..n, returning radians.
func parseAngles(flags, positional []string) (map[int]float64, error) {
	angles := make(map[int]float64, len(flags)+len(positional))
	for i, s := range positional {
		deg, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "angle %q", s)
		}
		angles[i+1] = deg * math.Pi / 180
	}
	for _, s := range flags {
		id, deg, ok := strings.Cut(s, "=")
		if !ok {
			id, deg, ok = strings.Cut(s, ":")
		}
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidInput, "angle %q: want id=degrees", s)
		}
		n, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "angle %q: vertex id", s)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(deg), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "angle %q: degrees", s)
		}
		angles[n] = d * math.Pi / 180
	}
	return angles, nil
}

func parseStart(s string) ([3]int, error) {
	var start [3]int
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return start, errors.New(errors.ErrCodeInvalidInput, "start %q: want three vertex ids", s)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return start, errors.Wrap(errors.ErrCodeInvalidInput, err, "start %q", s)
		}
		start[i] = n
	}
	return start, nil
}

// =============================================================================
// Files
// =============================================================================

// formatFromPath guesses the format from an output file extension,
// falling back to obj.
func formatFromPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if pipeline.ValidFormats[ext] {
		return ext
	}
	return pipeline.FormatOBJ
}

// basePath derives the base output path. Without an explicit output the
// input name gets a ".flat" suffix so that the input is never overwritten.
func basePath(output, input string) string {
	if output == "" {
		return strings.TrimSuffix(input, filepath.Ext(input)) + ".flat"
	}
	if pipeline.ValidFormats[strings.TrimPrefix(filepath.Ext(output), ".")] {
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	return output
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read stdin")
		}
		return data, nil
	}
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "%s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", path)
	}
	return nil
}
