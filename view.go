package rmask

import "math"

// Zoom bounds for interactive zooming.
const (
	MinZoom = 0.1
	MaxZoom = 4.0
)

// View holds the zoom and pan of the canvas inside a viewport and maps
// between screen space and canvas space.
//
// Screen coordinates are what pointer events report, relative to the
// viewport's displayed box. Ratio converts them to the viewport's native
// pixels when the viewport is displayed at a different size than it is
// rendered (HiDPI, CSS scaling). Zoom and pan then place the canvas in
// native viewport pixels.
type View struct {
	Zoom  float64
	PanX  float64
	PanY  float64
	Ratio float64

	width  int
	height int
}

// NewView creates a view for a width x height canvas at zoom 1 with no
// pan.
func NewView(width, height int) *View {
	return &View{Zoom: 1, Ratio: 1, width: width, height: height}
}

// SetCanvasSize updates the canvas dimensions the view fits against.
func (v *View) SetCanvasSize(width, height int) {
	v.width = width
	v.height = height
}

// Matrix returns the canvas to viewport transform: Translate(pan)·Scale(zoom).
func (v *View) Matrix() Matrix {
	return Translate(v.PanX, v.PanY).Multiply(Scale(v.Zoom, v.Zoom))
}

// FitToScreen scales the canvas to fit a viewport of vw x vh native pixels
// and centers it. The canvas is never enlarged beyond 1:1.
func (v *View) FitToScreen(vw, vh float64) {
	if v.width <= 0 || v.height <= 0 {
		return
	}
	zoom := math.Min(vw/float64(v.width), vh/float64(v.height))
	zoom = math.Min(zoom, 1)
	v.Zoom = zoom
	v.PanX = (vw - float64(v.width)*zoom) / 2
	v.PanY = (vh - float64(v.height)*zoom) / 2
}

func (v *View) ratio() float64 {
	if v.Ratio <= 0 {
		return 1
	}
	return v.Ratio
}

// ScreenToCanvas maps a pointer position to canvas space.
func (v *View) ScreenToCanvas(p Point) Point {
	return v.Matrix().Invert().TransformPoint(p.Mul(v.ratio()))
}

// CanvasToScreen maps a canvas position to pointer space.
func (v *View) CanvasToScreen(p Point) Point {
	return v.Matrix().TransformPoint(p).Mul(1 / v.ratio())
}

// CanvasToViewport maps a canvas position to native viewport pixels.
func (v *View) CanvasToViewport(p Point) Point {
	return v.Matrix().TransformPoint(p)
}

// ZoomAt sets the zoom, clamped to [MinZoom, MaxZoom], keeping the canvas
// point under the screen position (sx, sy) fixed.
func (v *View) ZoomAt(zoom, sx, sy float64) {
	anchor := Pt(sx, sy)
	c := v.ScreenToCanvas(anchor)
	v.Zoom = clampZoom(zoom)
	vp := anchor.Mul(v.ratio())
	v.PanX = vp.X - c.X*v.Zoom
	v.PanY = vp.Y - c.Y*v.Zoom
}

// PanBy moves the canvas by a screen-space delta.
func (v *View) PanBy(dx, dy float64) {
	r := v.ratio()
	v.PanX += dx * r
	v.PanY += dy * r
}

// ZoomPercent returns the zoom as a rounded percentage, the unit hosts
// display.
func (v *View) ZoomPercent() int {
	return int(math.Round(v.Zoom * 100))
}

// SetZoomPercent applies a percentage zoom anchored at the center of a
// vw x vh viewport (native pixels).
func (v *View) SetZoomPercent(percent, vw, vh float64) {
	r := v.ratio()
	v.ZoomAt(percent/100, vw/2/r, vh/2/r)
}

func clampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}
