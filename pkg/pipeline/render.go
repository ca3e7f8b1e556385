package pipeline

import (
	"bytes"
	"context"

	"github.com/gagern/confoo/pkg/conformal"
	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/mesh"
	"github.com/gagern/confoo/pkg/render"
)

// Render generates output artifacts of a flattened mesh in the requested
// formats.
func Render(ctx context.Context, doc *cio.MeshDoc, opts Options) (map[string][]byte, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, err
	}

	m := mesh.NewMesh2D[int](doc)
	ropts := renderOptions(doc, opts)
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		if _, done := artifacts[format]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCanceled, err, "render")
		}

		var data []byte
		var err error

		switch format {
		case FormatOBJ:
			var buf bytes.Buffer
			err = cio.WriteOBJ(cio.NewObjMesh(doc), &buf)
			data = buf.Bytes()
		case FormatJSON:
			var buf bytes.Buffer
			err = cio.WriteJSON(doc, &buf)
			data = buf.Bytes()
		case FormatSVG:
			data = render.SVG(m, ropts...)
		case FormatPNG:
			data, err = render.PNG(m, ropts...)
		case FormatDOT:
			data = []byte(render.DOT(m, ropts...))
		case FormatGraphviz:
			data, err = render.DOTToSVG(ctx, render.DOT(m, ropts...))
		case FormatLayout:
			data, err = render.JSON(m, ropts...)
		default:
			return nil, errors.New(errors.ErrCodeUnsupported, "unsupported format: %s", format)
		}

		if err != nil {
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeRender
			}
			return nil, errors.Wrap(code, err, "render %s", format)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}

// renderOptions builds the drawing options. Hyperbolic results are drawn
// inside the unit circle of the Poincaré disk.
func renderOptions(doc *cio.MeshDoc, opts Options) []render.Option {
	ropts := []render.Option{render.WithSize(opts.Width, opts.Height)}
	if opts.Labels {
		ropts = append(ropts, render.WithLabels())
	}
	if doc.Geometry == conformal.Hyperbolic.String() {
		ropts = append(ropts, render.WithDisk())
	}
	return ropts
}
