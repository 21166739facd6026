// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"math"
	"testing"
)

// gridTarget records filled pixels in a boolean grid.
type gridTarget struct {
	w, h  int
	cells []bool
}

func newGrid(w, h int) *gridTarget {
	return &gridTarget{w: w, h: h, cells: make([]bool, w*h)}
}

func (g *gridTarget) Width() int  { return g.w }
func (g *gridTarget) Height() int { return g.h }

func (g *gridTarget) FillSpan(x1, x2, y int) {
	for x := x1; x < x2; x++ {
		g.cells[y*g.w+x] = true
	}
}

func (g *gridTarget) at(x, y int) bool { return g.cells[y*g.w+x] }

func (g *gridTarget) count() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

func TestFillRectangle(t *testing.T) {
	g := newGrid(10, 10)
	r := NewRasterizer()
	r.Fill(g, [][]Point{{{2, 2}, {6, 2}, {6, 6}, {2, 6}}}, FillRuleNonZero)

	if got := g.count(); got != 16 {
		t.Fatalf("filled %d pixels, want 16", got)
	}
	for y := 2; y < 6; y++ {
		for x := 2; x < 6; x++ {
			if !g.at(x, y) {
				t.Errorf("pixel (%d,%d) not filled", x, y)
			}
		}
	}
	if g.at(6, 6) || g.at(1, 2) {
		t.Error("pixels outside the rectangle were filled")
	}
}

func TestFillOrientationIndependent(t *testing.T) {
	cw := newGrid(10, 10)
	ccw := newGrid(10, 10)
	r := NewRasterizer()
	r.Fill(cw, [][]Point{{{1, 1}, {8, 1}, {8, 8}, {1, 8}}}, FillRuleNonZero)
	r.Fill(ccw, [][]Point{{{1, 8}, {8, 8}, {8, 1}, {1, 1}}}, FillRuleNonZero)
	for i := range cw.cells {
		if cw.cells[i] != ccw.cells[i] {
			t.Fatalf("winding direction changed coverage at cell %d", i)
		}
	}
}

func pentagram(cx, cy, radius float64) []Point {
	pts := make([]Point, 5)
	for i := 0; i < 5; i++ {
		// Visit every second pentagon vertex so the outline crosses itself.
		a := -math.Pi/2 + float64(i*2)*2*math.Pi/5
		pts[i] = Point{X: cx + radius*math.Cos(a), Y: cy + radius*math.Sin(a)}
	}
	return pts
}

func TestFillSelfIntersecting(t *testing.T) {
	tests := []struct {
		name       string
		rule       FillRule
		wantCenter bool
	}{
		{"nonzero fills the doubly wound center", FillRuleNonZero, true},
		{"evenodd leaves the center empty", FillRuleEvenOdd, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGrid(100, 100)
			NewRasterizer().Fill(g, [][]Point{pentagram(50, 50, 40)}, tt.rule)
			if got := g.at(50, 50); got != tt.wantCenter {
				t.Errorf("center filled = %v, want %v", got, tt.wantCenter)
			}
			// A point inside one of the star's tips is wound once under
			// either rule.
			if !g.at(50, 15) {
				t.Error("star tip not filled")
			}
		})
	}
}

func TestFillIgnoresDegenerateContours(t *testing.T) {
	g := newGrid(10, 10)
	NewRasterizer().Fill(g, [][]Point{{{1, 1}, {5, 5}}}, FillRuleNonZero)
	if g.count() != 0 {
		t.Errorf("two-point contour filled %d pixels", g.count())
	}
}

func TestFillClipsToTarget(t *testing.T) {
	g := newGrid(10, 10)
	NewRasterizer().Fill(g, [][]Point{{{-5, -5}, {20, -5}, {20, 20}, {-5, 20}}}, FillRuleNonZero)
	if got := g.count(); got != 100 {
		t.Errorf("filled %d pixels, want all 100", got)
	}
}

func TestFillCircle(t *testing.T) {
	tests := []struct {
		name   string
		cx, cy float64
		radius float64
		want   int
	}{
		{"single pixel", 5.5, 5.5, 0.5, 1},
		{"zero radius", 5, 5, 0, 0},
		{"radius two", 5, 5, 2, 12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newGrid(10, 10)
			FillCircle(g, tt.cx, tt.cy, tt.radius)
			if got := g.count(); got != tt.want {
				t.Errorf("filled %d pixels, want %d", got, tt.want)
			}
		})
	}
}

func TestFillCapsule(t *testing.T) {
	g := newGrid(30, 12)
	NewRasterizer().FillCapsule(g, Point{5, 6}, Point{20, 6}, 4)

	for x := 5; x < 20; x++ {
		for y := 4; y < 8; y++ {
			if !g.at(x, y) {
				t.Errorf("body pixel (%d,%d) not filled", x, y)
			}
		}
	}
	// Round caps reach past the endpoints along the axis.
	if !g.at(3, 6) || !g.at(21, 6) {
		t.Error("caps not filled")
	}
	// Nothing beyond the half width.
	if g.at(12, 2) || g.at(12, 9) {
		t.Error("capsule wider than its width")
	}
}
