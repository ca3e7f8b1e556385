package pipeline

import (
	"context"
	"math"

	"github.com/gagern/confoo/pkg/conformal"
	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
	"github.com/gagern/confoo/pkg/mesh"
)

// Flattened is the cached outcome of the transform stage.
type Flattened struct {
	Mesh         *cio.MeshDoc `json:"mesh"`
	Iterations   int          `json:"iterations"`
	Exit         string       `json:"exit"`
	GradientNorm float64      `json:"gradient_norm"`
}

// Transform flattens m with the transform options in opts. The vertex ids
// of the result are those of m.
func Transform(ctx context.Context, m mesh.LocatedMesh[int], opts Options) (*Flattened, error) {
	if err := opts.ValidateForTransform(); err != nil {
		return nil, err
	}
	c, err := conformal.New(mesh.Metric(m))
	if err != nil {
		return nil, err
	}
	if err := configure(c, opts); err != nil {
		return nil, err
	}

	res, err := c.Transform(ctx)
	if err != nil {
		return nil, err
	}
	doc := cio.NewMeshDoc(res)
	doc.Geometry = res.Geometry().String()
	for _, v := range doc.Vertices {
		if math.IsNaN(v.X) || math.IsNaN(v.Y) {
			return nil, errors.New(errors.ErrCodeInvalidMesh,
				"vertex %d was not laid out; the mesh is not connected", v.ID)
		}
	}

	o := res.Optimization()
	return &Flattened{
		Mesh:         doc,
		Iterations:   o.Iterations,
		Exit:         o.Exit.String(),
		GradientNorm: o.GradientNorm,
	}, nil
}

// configure applies validated options to c.
func configure(c *conformal.Conformal[int], opts Options) error {
	c.SetLogger(opts.Logger)

	in, _ := conformal.ParseGeometry(opts.InputGeometry)
	out, _ := conformal.ParseGeometry(opts.OutputGeometry)
	if err := c.SetInputGeometry(in); err != nil {
		return err
	}
	if err := c.SetOutputGeometry(out); err != nil {
		return err
	}
	if err := c.SetAngleErrorBound(opts.AngleErrorBound); err != nil {
		return err
	}
	if err := c.SetMaxIterations(opts.MaxIterations); err != nil {
		return err
	}
	ls := opts.LineSearch
	if err := c.SetLineSearch(ls[0], ls[1], ls[2]); err != nil {
		return err
	}

	if opts.Isometric {
		c.IsometricBoundaryCondition()
	} else if err := c.FixedBoundaryCurvature(opts.Angles); err != nil {
		return err
	}

	if s := opts.Start; s != ([3]int{}) {
		return c.SetLayoutStartTriangle(s[0], s[1], s[2])
	}
	return nil
}
