// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rmask

import (
	"image"
	"image/color"
	"math"
	"strconv"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Layer alpha on screen before the mask opacity setting is applied.
const (
	ActiveLayerAlpha   = 0.9
	InactiveLayerAlpha = 0.6

	// CompositeLayerAlpha is the layer alpha of the human-facing composite.
	CompositeLayerAlpha = 0.6
)

const (
	checkerTile      = 16
	thumbCheckerTile = 6
	lassoFillAlpha   = 51 // 0.2
	lassoLineWidth   = 1.5
	markerRadius     = 4
)

var (
	checkerLight = color.NRGBA{R: 200, G: 200, B: 200, A: 90}
	checkerDark  = color.NRGBA{R: 120, G: 120, B: 120, A: 90}
	white        = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	black        = color.NRGBA{A: 255}
)

// Scene is everything one frame depends on.
type Scene struct {
	Layers *LayerStore
	Base   *Pixmap
	View   *View

	// MaskOpacity is the user setting in [0, 100]: 0 draws masks at their
	// full alpha, 100 hides them.
	MaskOpacity float64

	Tool      Tool
	Eraser    bool
	BrushSize float64

	// Lasso is the open lasso path in canvas space, nil when none.
	Lasso []Point

	// Cursor is the pointer position in canvas space, nil when the
	// pointer is outside the viewport.
	Cursor  *Point
	Panning bool
}

// Compositor renders frames, flattened masks and layer thumbnails.
// A Compositor keeps scratch buffers between frames and must not be used
// from more than one goroutine at a time.
type Compositor struct {
	canvas *image.RGBA
	vr     *vector.Rasterizer
}

// NewCompositor creates a compositor.
func NewCompositor() *Compositor {
	return &Compositor{vr: vector.NewRasterizer(0, 0)}
}

// LayerAlpha returns the on-screen alpha byte of a layer.
func LayerAlpha(active bool, maskOpacity float64) uint8 {
	base := InactiveLayerAlpha
	if active {
		base = ActiveLayerAlpha
	}
	factor := 1 - math.Max(0, math.Min(100, maskOpacity))/100
	return uint8(math.Round(255 * base * factor))
}

// Frame draws s into dst, whose bounds are the viewport in native pixels.
//
// The canvas is assembled in canvas space (checkerboard, base image,
// visible layers) and then mapped through the view transform. The lasso
// preview and brush cursor are drawn afterwards in viewport space so they
// keep a constant on-screen width at any zoom.
func (c *Compositor) Frame(dst *image.RGBA, s Scene) {
	draw.Draw(dst, dst.Bounds(), image.Transparent, image.Point{}, draw.Src)
	if s.Layers == nil || s.View == nil {
		return
	}

	w, h := s.Layers.Size()
	if c.canvas == nil || c.canvas.Rect.Dx() != w || c.canvas.Rect.Dy() != h {
		c.canvas = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		clear(c.canvas.Pix)
	}

	drawCheckerboard(c.canvas, c.canvas.Rect, checkerTile)
	if s.Base != nil {
		draw.Draw(c.canvas, c.canvas.Rect, s.Base.NRGBA(), image.Point{}, draw.Over)
	}
	active := s.Layers.ActiveIndex()
	for i, l := range s.Layers.Layers() {
		if !l.Visible {
			continue
		}
		a := LayerAlpha(i == active, s.MaskOpacity)
		if a == 0 {
			continue
		}
		draw.DrawMask(c.canvas, c.canvas.Rect, l.Raster.NRGBA(), image.Point{},
			image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
	}

	draw.NearestNeighbor.Transform(dst, s.View.Matrix().Aff3(), c.canvas, c.canvas.Rect, draw.Over, nil)

	if len(s.Lasso) > 0 {
		c.drawLasso(dst, s)
	}
	if s.Cursor != nil && s.Tool != ToolLasso && !s.Panning {
		c.drawCursor(dst, s)
	}
}

func (c *Compositor) drawLasso(dst *image.RGBA, s Scene) {
	pts := make([]Point, len(s.Lasso))
	for i, p := range s.Lasso {
		pts[i] = s.View.CanvasToViewport(p)
	}

	tint := paintColor(s)
	tint.A = lassoFillAlpha
	if len(pts) >= 3 {
		c.reset(dst)
		c.vr.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, p := range pts[1:] {
			c.vr.LineTo(float32(p.X), float32(p.Y))
		}
		c.vr.ClosePath()
		c.vr.Draw(dst, dst.Bounds(), image.NewUniform(tint), image.Point{})
	}

	// Marching ants: a dark dash with a light dash filling its gaps.
	c.strokeDashed(dst, pts, NewDash(6, 4), black)
	light := NewDash(4, 6)
	light.Offset = 4
	c.strokeDashed(dst, pts, light, white)

	c.fillDisc(dst, pts[0], markerRadius, paintColor(s))
	c.ring(dst, pts[0], markerRadius, 1, white)
}

func (c *Compositor) drawCursor(dst *image.RGBA, s Scene) {
	p := s.View.CanvasToViewport(*s.Cursor)
	r := math.Max(1, s.BrushSize/2*s.View.Zoom)
	c.ring(dst, p, r+1, 1.5, black)
	c.ring(dst, p, r, 1, white)
}

func paintColor(s Scene) color.NRGBA {
	if s.Eraser {
		return white
	}
	if l := s.Layers.Active(); l != nil {
		return l.Color.Color()
	}
	return white
}

func (c *Compositor) reset(dst *image.RGBA) {
	b := dst.Bounds()
	c.vr.Reset(b.Dx(), b.Dy())
}

// strokeDashed draws each visible dash of pts as a thin quad.
func (c *Compositor) strokeDashed(dst *image.RGBA, pts []Point, d *Dash, col color.NRGBA) {
	segs := d.Split(pts)
	if len(segs) == 0 {
		return
	}
	c.reset(dst)
	hw := lassoLineWidth / 2
	for _, sg := range segs {
		dir := sg.To.Sub(sg.From)
		n := dir.Length()
		if n == 0 {
			continue
		}
		off := Pt(-dir.Y/n*hw, dir.X/n*hw)
		a, b := sg.From.Add(off), sg.To.Add(off)
		cc, dd := sg.To.Sub(off), sg.From.Sub(off)
		c.vr.MoveTo(float32(a.X), float32(a.Y))
		c.vr.LineTo(float32(b.X), float32(b.Y))
		c.vr.LineTo(float32(cc.X), float32(cc.Y))
		c.vr.LineTo(float32(dd.X), float32(dd.Y))
		c.vr.ClosePath()
	}
	c.vr.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
}

func (c *Compositor) fillDisc(dst *image.RGBA, center Point, r float64, col color.NRGBA) {
	c.reset(dst)
	circle(c.vr, center, r, false)
	c.vr.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
}

// ring draws an annulus of the given stroke width centered on radius r.
func (c *Compositor) ring(dst *image.RGBA, center Point, r, width float64, col color.NRGBA) {
	c.reset(dst)
	circle(c.vr, center, r+width/2, false)
	if inner := r - width/2; inner > 0 {
		circle(c.vr, center, inner, true)
	}
	c.vr.Draw(dst, dst.Bounds(), image.NewUniform(col), image.Point{})
}

// circle adds a closed polygonal circle to vr. Opposite windings cancel,
// which is how ring cuts its hole.
func circle(vr *vector.Rasterizer, center Point, r float64, reverse bool) {
	n := int(math.Max(16, math.Ceil(r*2)))
	step := 2 * math.Pi / float64(n)
	if reverse {
		step = -step
	}
	vr.MoveTo(float32(center.X+r), float32(center.Y))
	for i := 1; i < n; i++ {
		a := step * float64(i)
		vr.LineTo(float32(center.X+r*math.Cos(a)), float32(center.Y+r*math.Sin(a)))
	}
	vr.ClosePath()
}

func drawCheckerboard(dst draw.Image, r image.Rectangle, tile int) {
	light := image.NewUniform(checkerLight)
	dark := image.NewUniform(checkerDark)
	for y := r.Min.Y; y < r.Max.Y; y += tile {
		for x := r.Min.X; x < r.Max.X; x += tile {
			src := light
			if ((x-r.Min.X)/tile+(y-r.Min.Y)/tile)%2 == 1 {
				src = dark
			}
			draw.Draw(dst, image.Rect(x, y, x+tile, y+tile).Intersect(r), src, image.Point{}, draw.Over)
		}
	}
}

// CleanMask flattens every layer, hidden ones included, over white at full
// opacity in index order. This is the machine-facing mask: each painted
// pixel carries exactly its layer's identity color.
func CleanMask(s *LayerStore) *Pixmap {
	w, h := s.Size()
	out := NewPixmap(w, h)
	out.Clear(white)
	dst := out.NRGBA()
	for _, l := range s.Layers() {
		draw.Draw(dst, dst.Rect, l.Raster.NRGBA(), image.Point{}, draw.Over)
	}
	return out
}

// Composite flattens the base image (or white) and the visible layers at
// CompositeLayerAlpha. It is meant for people, not for reconstruction.
func Composite(s *LayerStore, base *Pixmap) *Pixmap {
	w, h := s.Size()
	out := NewPixmap(w, h)
	out.Clear(white)
	dst := out.NRGBA()
	if base != nil {
		draw.Draw(dst, dst.Rect, base.NRGBA(), image.Point{}, draw.Over)
	}
	a := uint8(math.Round(255 * CompositeLayerAlpha))
	for _, l := range s.Layers() {
		if !l.Visible {
			continue
		}
		draw.DrawMask(dst, dst.Rect, l.Raster.NRGBA(), image.Point{},
			image.NewUniform(color.Alpha{A: a}), image.Point{}, draw.Over)
	}
	return out
}

var labelFace = sync.OnceValue(func() font.Face {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		Logger().Warn("rmask: thumbnail font unavailable", "err", err)
		return nil
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    11,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		Logger().Warn("rmask: thumbnail font unavailable", "err", err)
		return nil
	}
	return face
})

// Thumbnail renders l scaled to fit a size x size box over a small
// checkerboard, labelled with its 1-based position.
func Thumbnail(l *Layer, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	if l == nil || size <= 0 {
		return dst
	}
	drawCheckerboard(dst, dst.Rect, thumbCheckerTile)

	src := l.Raster.NRGBA()
	sw, sh := src.Rect.Dx(), src.Rect.Dy()
	if sw > 0 && sh > 0 {
		scale := math.Min(float64(size)/float64(sw), float64(size)/float64(sh))
		tw := max(1, int(math.Round(float64(sw)*scale)))
		th := max(1, int(math.Round(float64(sh)*scale)))
		x0, y0 := (size-tw)/2, (size-th)/2
		draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+tw, y0+th), src, src.Rect, draw.Over, nil)
	}

	if face := labelFace(); face != nil {
		label := strconv.Itoa(l.Color.Index + 1)
		base := fixed.P(3, size-3)
		shadow := &font.Drawer{Dst: dst, Src: image.NewUniform(black), Face: face, Dot: base.Add(fixed.P(1, 1))}
		shadow.DrawString(label)
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(white), Face: face, Dot: base}
		d.DrawString(label)
	}
	return dst
}
