package rmask

import (
	"github.com/gogpu/rmask/internal/raster"
)

// Tool selects how pointer gestures paint.
type Tool int

const (
	// ToolBrush paints round strokes following the pointer.
	ToolBrush Tool = iota
	// ToolLasso collects a freehand outline and fills it on release.
	ToolLasso
)

// String returns the tool name.
func (t Tool) String() string {
	switch t {
	case ToolBrush:
		return "brush"
	case ToolLasso:
		return "lasso"
	default:
		return "unknown"
	}
}

// DefaultBrushSize is the brush diameter in canvas pixels.
const DefaultBrushSize = 100

// PaintEngine rasterizes brush strokes and lasso fills onto a layer.
//
// Painting writes the layer's opaque identity color. With Eraser set, the
// same shapes instead zero the alpha of covered pixels and leave their RGB
// alone. Eraser composes with either tool.
type PaintEngine struct {
	Tool      Tool
	Eraser    bool
	BrushSize float64

	lasso []Point
	r     *raster.Rasterizer
}

// NewPaintEngine creates a brush engine with the default brush size.
func NewPaintEngine() *PaintEngine {
	return &PaintEngine{
		Tool:      ToolBrush,
		BrushSize: DefaultBrushSize,
		r:         raster.NewRasterizer(),
	}
}

// SetTool switches tools. Any open lasso path is discarded.
func (e *PaintEngine) SetTool(t Tool) {
	if t != e.Tool {
		e.lasso = nil
	}
	e.Tool = t
}

// painter adapts a layer raster to the rasterizer's span target.
type painter struct {
	p     *Pixmap
	rgb   [3]uint8
	erase bool
}

func (pt painter) Width() int  { return pt.p.width }
func (pt painter) Height() int { return pt.p.height }

func (pt painter) FillSpan(x1, x2, y int) {
	row := pt.p.data[y*pt.p.width*4:]
	for x := x1; x < x2; x++ {
		i := x * 4
		if pt.erase {
			row[i+3] = 0
			continue
		}
		row[i+0] = pt.rgb[0]
		row[i+1] = pt.rgb[1]
		row[i+2] = pt.rgb[2]
		row[i+3] = 255
	}
}

func (e *PaintEngine) target(l *Layer) painter {
	return painter{p: l.Raster, rgb: l.Color.RGB, erase: e.Eraser}
}

func (e *PaintEngine) brushWidth() float64 {
	if e.BrushSize < 1 {
		return 1
	}
	return e.BrushSize
}

// Stroke paints a round-capped segment of width BrushSize from one canvas
// point to another.
func (e *PaintEngine) Stroke(l *Layer, from, to Point) {
	if l == nil {
		return
	}
	e.r.FillCapsule(e.target(l),
		raster.Point{X: from.X, Y: from.Y},
		raster.Point{X: to.X, Y: to.Y},
		e.brushWidth())
}

// Dab paints a filled disc of diameter BrushSize centered on p. A dab
// always covers at least the pixel under p.
func (e *PaintEngine) Dab(l *Layer, p Point) {
	if l == nil {
		return
	}
	t := e.target(l)
	if raster.FillCircle(t, p.X, p.Y, e.brushWidth()/2) > 0 {
		return
	}
	x, y := int(p.X), int(p.Y)
	if x >= 0 && x < t.Width() && y >= 0 && y < t.Height() {
		t.FillSpan(x, x+1, y)
	}
}

// LassoAdd appends a canvas point to the open lasso path.
func (e *PaintEngine) LassoAdd(p Point) {
	e.lasso = append(e.lasso, p)
}

// LassoPath returns the open lasso path, nil when no gesture is open.
func (e *PaintEngine) LassoPath() []Point {
	return e.lasso
}

// LassoOpen reports whether a lasso gesture is collecting points.
func (e *PaintEngine) LassoOpen() bool {
	return len(e.lasso) > 0
}

// LassoClose closes the path from its last point back to the first and
// fills it with the non-zero winding rule. Paths with fewer than three
// points are discarded without painting. The path is cleared either way.
// It reports whether anything was filled.
func (e *PaintEngine) LassoClose(l *Layer) bool {
	pts := e.lasso
	e.lasso = nil
	if l == nil || len(pts) < 3 {
		return false
	}
	contour := make([]raster.Point, len(pts))
	for i, p := range pts {
		contour[i] = raster.Point{X: p.X, Y: p.Y}
	}
	e.r.Fill(e.target(l), [][]raster.Point{contour}, raster.FillRuleNonZero)
	return true
}

// LassoCancel discards the open lasso path.
func (e *PaintEngine) LassoCancel() {
	e.lasso = nil
}
