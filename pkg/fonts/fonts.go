// Package fonts provides the font used for vertex labels.
//
// SVG output names the font family and leaves the glyphs to the viewer.
// Raster output draws glyphs itself with the Go Regular typeface, which is
// compiled into the binary, so no system fonts are needed.
package fonts

import (
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontFamily is the CSS font-family for SVG labels.
const FontFamily = `'Go', 'DejaVu Sans', sans-serif`

// LabelSize is the label size in pixels.
const LabelSize = 10.0

// Parsed font (computed once on first access).
var (
	regular     *opentype.Font
	regularErr  error
	regularOnce sync.Once
)

// Regular returns the parsed Go Regular font.
func Regular() (*opentype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = opentype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// Face returns a new face of Go Regular at size pixels. Faces are not safe
// for concurrent use, so every renderer asks for its own.
func Face(size float64) (font.Face, error) {
	f, err := Regular()
	if err != nil {
		return nil, err
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
