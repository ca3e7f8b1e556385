// Package pipeline provides the flattening pipeline shared by the CLI and
// the HTTP API.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Parse: read a Wavefront OBJ mesh
//  2. Transform: compute the conformal re-metrization and its layout
//  3. Render: write the flattened mesh in the requested formats
//
// The transform and render stages are cached by content hash, so repeated
// requests for the same mesh and options are answered without running the
// optimizer again.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Angles:  map[int]float64{1: math.Pi / 2, 3: math.Pi / 2},
//	    Formats: []string{"obj", "svg"},
//	}
//	result, err := runner.Execute(ctx, objData, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/gagern/confoo/pkg/cache"
	"github.com/gagern/confoo/pkg/conformal"
	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/opt"
	"github.com/gagern/confoo/pkg/render"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultGeometry is used for both input and output when unset.
	DefaultGeometry = "euclidean"

	// DefaultWidth is the default image width in pixels.
	DefaultWidth = render.DefaultWidth

	// DefaultHeight is the default image height in pixels.
	DefaultHeight = render.DefaultHeight
)

// Format constants for output formats.
const (
	FormatOBJ      = "obj"      // flattened mesh as Wavefront OBJ
	FormatJSON     = "json"     // flattened mesh with scale factors
	FormatSVG      = "svg"      // vector drawing
	FormatPNG      = "png"      // raster drawing
	FormatDOT      = "dot"      // Graphviz source with pinned vertices
	FormatGraphviz = "graphviz" // the DOT source drawn by Graphviz
	FormatLayout   = "layout"   // viewport coordinates as JSON
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatOBJ:      true,
	FormatJSON:     true,
	FormatSVG:      true,
	FormatPNG:      true,
	FormatDOT:      true,
	FormatGraphviz: true,
	FormatLayout:   true,
}

// ContentTypes maps each format to its MIME type.
var ContentTypes = map[string]string{
	FormatOBJ:      "model/obj",
	FormatJSON:     "application/json",
	FormatSVG:      "image/svg+xml",
	FormatPNG:      "image/png",
	FormatDOT:      "text/vnd.graphviz",
	FormatGraphviz: "image/svg+xml",
	FormatLayout:   "application/json",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the flattening pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Transform options
	InputGeometry   string          `json:"input_geometry,omitempty"`
	OutputGeometry  string          `json:"output_geometry,omitempty"`
	Angles          map[int]float64 `json:"angles,omitempty"` // radians, keyed by 1-based OBJ vertex id
	Isometric       bool            `json:"isometric,omitempty"`
	AngleErrorBound float64         `json:"angle_error_bound,omitempty"`
	MaxIterations   int             `json:"max_iterations,omitempty"`
	LineSearch      [3]float64      `json:"line_search,omitempty"` // alpha, beta, gamma
	Start           [3]int          `json:"start,omitempty"`       // first laid out triangle; zero picks one
	Refresh         bool            `json:"refresh,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Width   int      `json:"width,omitempty"`
	Height  int      `json:"height,omitempty"`
	Labels  bool     `json:"labels,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and API responses.
	RunID string

	// MeshHash is the content hash of the input.
	MeshHash string

	// Mesh is the flattened mesh with its scale factors.
	Mesh *cio.MeshDoc

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing, size and convergence information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Mesh          mesh.Stats
	Iterations    int
	Exit          string
	GradientNorm  float64
	ParseTime     time.Duration
	TransformTime time.Duration
	RenderTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	TransformHit bool // Whether the flattened mesh came from cache
	RenderHit    bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidConfig,
			"invalid format: %q (must be one of: obj, json, svg, png, dot, graphviz, layout)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForTransform(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForTransform checks the transform options and applies defaults.
// Geometry names are normalized to their canonical spelling.
func (o *Options) ValidateForTransform() error {
	in, err := geometry(o.InputGeometry)
	if err != nil {
		return err
	}
	out, err := geometry(o.OutputGeometry)
	if err != nil {
		return err
	}
	o.InputGeometry, o.OutputGeometry = in.String(), out.String()

	if o.Isometric && len(o.Angles) > 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "explicit angles cannot be combined with an isometric boundary")
	}
	for v, a := range o.Angles {
		if err := errors.ValidateAngle(a); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "angle for vertex %d", v)
		}
	}

	if o.AngleErrorBound == 0 {
		o.AngleErrorBound = conformal.DefaultAngleErrorBound
	} else if err := errors.ValidateEpsilon("angle error bound", o.AngleErrorBound); err != nil {
		return err
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = conformal.DefaultMaxIterations
	} else if o.MaxIterations < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "max iterations must be positive, got %d", o.MaxIterations)
	}
	if o.LineSearch == ([3]float64{}) {
		o.LineSearch = [3]float64{opt.DefaultAlpha, opt.DefaultBeta, opt.DefaultGamma}
	} else if err := opt.ValidateLineSearch(o.LineSearch[0], o.LineSearch[1], o.LineSearch[2]); err != nil {
		return err
	}
	if o.Start != ([3]int{}) && slices.Contains(o.Start[:], 0) {
		return errors.New(errors.ErrCodeInvalidConfig, "start triangle needs three vertex ids, got %v", o.Start)
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	return render.ValidateSize(o.Width, o.Height)
}

// TransformKeyOpts returns cache key options for the transform.
func (o *Options) TransformKeyOpts() cache.TransformKeyOpts {
	return cache.TransformKeyOpts{
		InputGeometry:   o.InputGeometry,
		OutputGeometry:  o.OutputGeometry,
		Isometric:       o.Isometric,
		Angles:          o.Angles,
		AngleErrorBound: o.AngleErrorBound,
		MaxIterations:   o.MaxIterations,
		LineSearch:      o.LineSearch,
		Start:           o.Start,
	}
}

// RenderKeyOpts returns cache key options for one artifact.
func (o *Options) RenderKeyOpts(format string) cache.RenderKeyOpts {
	k := cache.RenderKeyOpts{Format: format}
	switch format {
	case FormatOBJ, FormatJSON:
		// independent of the viewport
	default:
		k.Width, k.Height, k.Labels = o.Width, o.Height, o.Labels
	}
	return k
}

func geometry(s string) (conformal.Geometry, error) {
	if s == "" {
		s = DefaultGeometry
	}
	return conformal.ParseGeometry(s)
}
