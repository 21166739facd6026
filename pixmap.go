// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package rmask

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
)

// Pixmap represents a rectangular pixel buffer in straight (non
// premultiplied) RGBA, 4 bytes per pixel. Layer rasters, the base image
// and every exported mask are Pixmaps.
//
// Erased pixels keep their RGB with alpha 0, so the buffer is compared
// and persisted byte for byte rather than by visible color.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a new, fully transparent pixmap.
func NewPixmap(width, height int) *Pixmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data (straight RGBA).
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// Pix returns the RGBA bytes at (x, y). Out of bounds reads return zero.
func (p *Pixmap) Pix(x, y int) [4]uint8 {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return [4]uint8{}
	}
	i := (y*p.width + x) * 4
	return [4]uint8{p.data[i], p.data[i+1], p.data[i+2], p.data[i+3]}
}

// SetPix writes RGBA bytes at (x, y). Out of bounds writes are ignored.
func (p *Pixmap) SetPix(x, y int, c [4]uint8) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = c[0]
	p.data[i+1] = c[1]
	p.data[i+2] = c[2]
	p.data[i+3] = c[3]
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c color.NRGBA) {
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = c.R
		p.data[i+1] = c.G
		p.data[i+2] = c.B
		p.data[i+3] = c.A
	}
}

// Clone returns a deep copy of the pixmap.
func (p *Pixmap) Clone() *Pixmap {
	data := make([]uint8, len(p.data))
	copy(data, p.data)
	return &Pixmap{width: p.width, height: p.height, data: data}
}

// Equal reports whether both pixmaps have the same size and identical
// bytes.
func (p *Pixmap) Equal(o *Pixmap) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.width == o.width && p.height == o.height && bytes.Equal(p.data, o.data)
}

// CopyFrom replaces the content of p with src. When the sizes differ,
// src is blitted at the origin over a cleared buffer.
func (p *Pixmap) CopyFrom(src *Pixmap) {
	if src.width == p.width && src.height == p.height {
		copy(p.data, src.data)
		return
	}
	clear(p.data)
	p.Blit(src)
}

// Blit copies src into p with both origins aligned, cropping whatever
// does not fit. No scaling is applied.
func (p *Pixmap) Blit(src *Pixmap) {
	w := min(p.width, src.width)
	h := min(p.height, src.height)
	for y := 0; y < h; y++ {
		copy(p.data[y*p.width*4:y*p.width*4+w*4], src.data[y*src.width*4:y*src.width*4+w*4])
	}
}

// Resized returns a new width x height pixmap holding p's content at the
// top-left origin, unscaled.
func (p *Pixmap) Resized(width, height int) *Pixmap {
	out := NewPixmap(width, height)
	out.Blit(p)
	return out
}

// NRGBA returns an *image.NRGBA that shares p's pixel memory.
func (p *Pixmap) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    p.data,
		Stride: p.width * 4,
		Rect:   image.Rect(0, 0, p.width, p.height),
	}
}

// CountOpaque returns the number of pixels whose alpha is non-zero.
func (p *Pixmap) CountOpaque() int {
	n := 0
	for i := 3; i < len(p.data); i += 4 {
		if p.data[i] != 0 {
			n++
		}
	}
	return n
}

// FromImage creates a pixmap from an image.
//
// *image.NRGBA is copied verbatim, so a pixmap survives an NRGBA PNG round
// trip byte for byte. Other images go through the NRGBA color model.
func FromImage(img image.Image) *Pixmap {
	bounds := img.Bounds()
	pm := NewPixmap(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < pm.height; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pm.data[y*pm.width*4:(y+1)*pm.width*4], src.Pix[off:off+pm.width*4])
		}
	default:
		draw.Draw(pm.NRGBA(), pm.NRGBA().Rect, img, bounds.Min, draw.Src)
	}
	return pm
}

// EncodePNG writes the pixmap as a PNG.
func (p *Pixmap) EncodePNG(w io.Writer) error {
	return png.Encode(w, p.NRGBA())
}

// At implements the image.Image interface.
func (p *Pixmap) At(x, y int) color.Color {
	c := p.Pix(x, y)
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
