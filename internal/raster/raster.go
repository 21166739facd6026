// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package raster provides aliased scanline rasterization for mask painting.
//
// Masks are hard edged: a pixel is either inside a shape or not, decided by
// whether its center lies inside. There is no coverage accumulation, so a
// filled pixel always carries the exact layer color.
package raster

import "math"

// Target receives the horizontal spans produced by the rasterizer.
type Target interface {
	Width() int
	Height() int
	// FillSpan fills pixels [x1, x2) on row y. Spans are already clipped.
	FillSpan(x1, x2, y int)
}

// FillRule specifies how to determine which areas are inside a path.
type FillRule int

const (
	// FillRuleNonZero uses the non-zero winding rule.
	FillRuleNonZero FillRule = iota
	// FillRuleEvenOdd uses the even-odd rule.
	FillRuleEvenOdd
)

// String returns the fill rule name.
func (r FillRule) String() string {
	switch r {
	case FillRuleNonZero:
		return "nonzero"
	case FillRuleEvenOdd:
		return "evenodd"
	default:
		return "unknown"
	}
}

// Rasterizer performs scanline rasterization.
type Rasterizer struct {
	aet   *ActiveEdgeTable
	edges []Edge
}

// NewRasterizer creates a new rasterizer. A Rasterizer reuses its edge
// buffers between calls and is not safe for concurrent use.
func NewRasterizer() *Rasterizer {
	return &Rasterizer{
		aet: NewActiveEdgeTable(),
	}
}

// Fill rasterizes closed polygons onto t. Every contour is implicitly
// closed from its last point back to its first.
func (r *Rasterizer) Fill(t Target, contours [][]Point, rule FillRule) {
	r.edges = r.edges[:0]
	for _, pts := range contours {
		if len(pts) < 3 {
			continue
		}
		for i := range pts {
			p0 := pts[i]
			p1 := pts[(i+1)%len(pts)]
			// Horizontal edges never cross a scanline center.
			if p0.Y == p1.Y {
				continue
			}
			r.edges = append(r.edges, NewEdge(p0, p1))
		}
	}
	if len(r.edges) == 0 {
		return
	}

	yMin := math.MaxFloat64
	yMax := -math.MaxFloat64
	for _, e := range r.edges {
		yMin = math.Min(yMin, e.y0)
		yMax = math.Max(yMax, e.y1)
	}

	y0 := max(int(math.Floor(yMin)), 0)
	y1 := min(int(math.Ceil(yMax)), t.Height())

	for y := y0; y < y1; y++ {
		r.scanline(t, float64(y)+0.5, y, rule)
	}
}

// scanline processes a single scanline sampled at pixel centers.
func (r *Rasterizer) scanline(t Target, scanY float64, y int, rule FillRule) {
	r.aet.Clear()
	for i := range r.edges {
		if r.edges[i].Covers(scanY) {
			r.aet.AddAtY(r.edges[i], scanY)
		}
	}
	if len(r.aet.Edges()) == 0 {
		return
	}
	r.aet.Sort()

	active := r.aet.Edges()
	if rule == FillRuleEvenOdd {
		for i := 0; i+1 < len(active); i += 2 {
			fillSpan(t, active[i].x, active[i+1].x, y)
		}
		return
	}

	winding := 0
	var x1 float64
	for _, edge := range active {
		if winding == 0 {
			x1 = edge.x
		}
		winding += edge.dir
		if winding == 0 {
			fillSpan(t, x1, edge.x, y)
		}
	}
}

// fillSpan fills the pixels whose centers lie in [xa, xb).
func fillSpan(t Target, xa, xb float64, y int) {
	if y < 0 || y >= t.Height() {
		return
	}
	x1 := int(math.Ceil(xa - 0.5))
	x2 := int(math.Ceil(xb - 0.5))
	x1 = max(x1, 0)
	x2 = min(x2, t.Width())
	if x1 >= x2 {
		return
	}
	t.FillSpan(x1, x2, y)
}

// FillCircle fills every pixel whose center lies within radius of
// (cx, cy) and reports how many rows received a span.
func FillCircle(t Target, cx, cy, radius float64) int {
	if radius <= 0 {
		return 0
	}
	rows := 0
	r2 := radius * radius
	y0 := max(int(math.Floor(cy-radius)), 0)
	y1 := min(int(math.Ceil(cy+radius)), t.Height()-1)
	for y := y0; y <= y1; y++ {
		dy := float64(y) + 0.5 - cy
		if dy*dy > r2 {
			continue
		}
		half := math.Sqrt(r2 - dy*dy)
		x1 := max(int(math.Ceil(cx-half-0.5)), 0)
		x2 := min(int(math.Floor(cx+half-0.5))+1, t.Width())
		if x1 >= x2 {
			continue
		}
		t.FillSpan(x1, x2, y)
		rows++
	}
	return rows
}

// FillCapsule fills a segment of the given width with round caps: a disc
// at each end joined by the segment's body. Consecutive capsules sharing
// endpoints therefore join round as well.
func (r *Rasterizer) FillCapsule(t Target, p0, p1 Point, width float64) {
	half := width / 2
	FillCircle(t, p0.X, p0.Y, half)
	FillCircle(t, p1.X, p1.Y, half)

	dx := p1.X - p0.X
	dy := p1.Y - p0.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length < 0.001 {
		return
	}

	// Perpendicular offset of half the width.
	nx := -dy / length * half
	ny := dx / length * half

	body := []Point{
		{X: p0.X + nx, Y: p0.Y + ny},
		{X: p0.X - nx, Y: p0.Y - ny},
		{X: p1.X - nx, Y: p1.Y - ny},
		{X: p1.X + nx, Y: p1.Y + ny},
	}
	r.Fill(t, [][]Point{body}, FillRuleNonZero)
}
