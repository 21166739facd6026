package rmask

import (
	"math"
	"testing"
)

func newPaintLayer(w, h int) *Layer {
	s := NewLayerStore(w, h)
	s.Create()
	return s.Layer(0)
}

func TestPaintDab(t *testing.T) {
	tests := []struct {
		name string
		size float64
		at   Point
		want int
	}{
		{"radius two", 4, Pt(10, 10), 12},
		{"single pixel", 1, Pt(3.5, 3.5), 1},
		// No pixel center within the radius: the pixel under the point is
		// still painted.
		{"falls back to pixel under point", 1, Pt(3, 3), 1},
		{"outside canvas", 1, Pt(-3, -3), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newPaintLayer(20, 20)
			e := NewPaintEngine()
			e.BrushSize = tt.size
			e.Dab(l, tt.at)
			if got := l.Raster.CountOpaque(); got != tt.want {
				t.Errorf("painted %d pixels, want %d", got, tt.want)
			}
		})
	}
}

func TestPaintDabWritesOpaqueLayerColor(t *testing.T) {
	l := newPaintLayer(8, 8)
	e := NewPaintEngine()
	e.BrushSize = 1
	e.Dab(l, Pt(3, 3))
	want := l.Color.RGB
	if got := l.Raster.Pix(3, 3); got != [4]uint8{want[0], want[1], want[2], 255} {
		t.Errorf("Pix(3,3) = %v, want %v opaque", got, want)
	}
}

func TestPaintStroke(t *testing.T) {
	l := newPaintLayer(20, 10)
	e := NewPaintEngine()
	e.BrushSize = 2
	e.Stroke(l, Pt(2, 5), Pt(12, 5))
	if got := l.Raster.CountOpaque(); got != 24 {
		t.Errorf("stroke painted %d pixels, want 24", got)
	}
	for _, p := range [][2]int{{1, 4}, {12, 5}, {7, 4}} {
		if l.Raster.Pix(p[0], p[1])[3] != 255 {
			t.Errorf("pixel %v not painted", p)
		}
	}
	if l.Raster.Pix(7, 3)[3] != 0 {
		t.Error("pixel outside the stroke width painted")
	}
}

func TestPaintEraserKeepsRGB(t *testing.T) {
	l := newPaintLayer(10, 10)
	e := NewPaintEngine()
	e.BrushSize = 4
	e.Dab(l, Pt(5, 5))
	e.Eraser = true
	e.Dab(l, Pt(5, 5))

	if got := l.Raster.CountOpaque(); got != 0 {
		t.Fatalf("%d pixels left after erasing", got)
	}
	px := l.Raster.Pix(5, 5)
	if [3]uint8{px[0], px[1], px[2]} != l.Color.RGB {
		t.Errorf("erased pixel RGB = %v, want %v", px, l.Color.RGB)
	}
}

func TestLassoFillSquare(t *testing.T) {
	l := newPaintLayer(10, 10)
	e := NewPaintEngine()
	e.SetTool(ToolLasso)
	for _, p := range []Point{Pt(2, 2), Pt(8, 2), Pt(8, 8), Pt(2, 8)} {
		e.LassoAdd(p)
	}
	if !e.LassoOpen() || len(e.LassoPath()) != 4 {
		t.Fatal("lasso path not collected")
	}
	if !e.LassoClose(l) {
		t.Fatal("LassoClose() = false")
	}
	if got := l.Raster.CountOpaque(); got != 36 {
		t.Errorf("lasso filled %d pixels, want 36", got)
	}
	if e.LassoOpen() {
		t.Error("path should be discarded after close")
	}
}

func TestLassoTooFewPoints(t *testing.T) {
	l := newPaintLayer(10, 10)
	e := NewPaintEngine()
	e.SetTool(ToolLasso)
	e.LassoAdd(Pt(1, 1))
	e.LassoAdd(Pt(8, 8))
	if e.LassoClose(l) {
		t.Error("LassoClose with two points should not fill")
	}
	if l.Raster.CountOpaque() != 0 || e.LassoOpen() {
		t.Error("two-point lasso painted or left its path open")
	}
}

func TestLassoSelfIntersectingNonZero(t *testing.T) {
	l := newPaintLayer(100, 100)
	e := NewPaintEngine()
	e.SetTool(ToolLasso)
	for i := 0; i < 5; i++ {
		a := -math.Pi/2 + float64(i*2)*2*math.Pi/5
		e.LassoAdd(Pt(50+40*math.Cos(a), 50+40*math.Sin(a)))
	}
	e.LassoClose(l)
	if l.Raster.Pix(50, 50)[3] != 255 {
		t.Error("pentagram center should be filled under non-zero winding")
	}
	if l.Raster.Pix(50, 15)[3] != 255 {
		t.Error("pentagram tip should be filled")
	}
	if l.Raster.Pix(2, 2)[3] != 0 {
		t.Error("outside the star painted")
	}
}

func TestLassoErase(t *testing.T) {
	l := newPaintLayer(10, 10)
	paintRect(l, 0, 0, 10, 10)
	e := NewPaintEngine()
	e.SetTool(ToolLasso)
	e.Eraser = true
	for _, p := range []Point{Pt(0, 0), Pt(5, 0), Pt(5, 10), Pt(0, 10)} {
		e.LassoAdd(p)
	}
	e.LassoClose(l)
	if got := l.Raster.CountOpaque(); got != 50 {
		t.Errorf("%d opaque pixels after erasing half, want 50", got)
	}
}

func TestSetToolDiscardsLasso(t *testing.T) {
	e := NewPaintEngine()
	e.SetTool(ToolLasso)
	e.LassoAdd(Pt(1, 1))
	e.SetTool(ToolLasso)
	if !e.LassoOpen() {
		t.Fatal("selecting the same tool should keep the path")
	}
	e.SetTool(ToolBrush)
	if e.LassoOpen() {
		t.Error("switching tools should discard the lasso path")
	}
}

func TestToolString(t *testing.T) {
	tests := []struct {
		tool Tool
		want string
	}{
		{ToolBrush, "brush"},
		{ToolLasso, "lasso"},
		{Tool(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.tool.String(); got != tt.want {
			t.Errorf("Tool(%d).String() = %q, want %q", tt.tool, got, tt.want)
		}
	}
}
