package rmask

import (
	"bytes"
	"image"
	"testing"
)

func TestLayerAlpha(t *testing.T) {
	tests := []struct {
		name    string
		active  bool
		opacity float64
		want    uint8
	}{
		{"active opaque", true, 0, 230},
		{"inactive opaque", false, 0, 153},
		{"active hidden", true, 100, 0},
		{"inactive half", false, 50, 77},
		{"out of range clamps", true, 150, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LayerAlpha(tt.active, tt.opacity); got != tt.want {
				t.Errorf("LayerAlpha(%v, %v) = %d, want %d", tt.active, tt.opacity, got, tt.want)
			}
		})
	}
}

func twoLayerStore() *LayerStore {
	s := NewLayerStore(8, 8)
	s.Create()
	s.Create()
	paintRect(s.Layer(0), 0, 0, 4, 4)
	paintRect(s.Layer(1), 2, 2, 6, 6)
	return s
}

func TestCleanMask(t *testing.T) {
	s := twoLayerStore()
	s.SetVisible(1, false)
	m := CleanMask(s)

	c0, c1 := LayerColor(0).RGB, LayerColor(1).RGB
	tests := []struct {
		x, y int
		want [4]uint8
	}{
		{0, 0, [4]uint8{c0[0], c0[1], c0[2], 255}},
		// Higher index wins where layers overlap; hidden layers count.
		{3, 3, [4]uint8{c1[0], c1[1], c1[2], 255}},
		{5, 5, [4]uint8{c1[0], c1[1], c1[2], 255}},
		{7, 7, [4]uint8{255, 255, 255, 255}},
	}
	for _, tt := range tests {
		if got := m.Pix(tt.x, tt.y); got != tt.want {
			t.Errorf("Pix(%d,%d) = %v, want %v", tt.x, tt.y, got, tt.want)
		}
	}
}

func near(a, b uint8, tol int) bool {
	d := int(a) - int(b)
	return d >= -tol && d <= tol
}

func TestComposite(t *testing.T) {
	s := twoLayerStore()
	s.SetVisible(1, false)

	out := Composite(s, nil)
	// (128,64,64) at 0.6 over white.
	px := out.Pix(0, 0)
	if !near(px[0], 179, 2) || !near(px[1], 140, 2) || !near(px[2], 140, 2) || px[3] != 255 {
		t.Errorf("Pix(0,0) = %v, want about (179,140,140)", px)
	}
	if got := out.Pix(5, 5); got != [4]uint8{255, 255, 255, 255} {
		t.Errorf("hidden layer drawn into composite: %v", got)
	}

	base := NewPixmap(8, 8)
	base.Clear(black)
	out = Composite(s, base)
	if got := out.Pix(7, 7); got != [4]uint8{0, 0, 0, 255} {
		t.Errorf("base not used as background: %v", got)
	}
}

func frameScene(s *LayerStore) Scene {
	return Scene{Layers: s, View: NewView(8, 8), BrushSize: 4}
}

func renderFrame(sc Scene, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	NewCompositor().Frame(dst, sc)
	return dst
}

func TestFrameMaskOpacity(t *testing.T) {
	s := twoLayerStore()
	empty := NewLayerStore(8, 8)
	empty.Create()

	sc := frameScene(s)
	sc.MaskOpacity = 100
	hidden := renderFrame(sc, 8, 8)
	bare := renderFrame(frameScene(empty), 8, 8)
	if !bytes.Equal(hidden.Pix, bare.Pix) {
		t.Error("mask opacity 100 should hide every layer")
	}

	shown := renderFrame(frameScene(s), 8, 8)
	if bytes.Equal(shown.Pix, bare.Pix) {
		t.Error("mask opacity 0 should draw the layers")
	}
	off := shown.PixOffset(0, 0)
	if r, g := shown.Pix[off], shown.Pix[off+1]; r <= g {
		t.Errorf("layer 0 pixel should read red, got r=%d g=%d", r, g)
	}
}

func TestFrameOutsideCanvasTransparent(t *testing.T) {
	s := twoLayerStore()
	dst := renderFrame(frameScene(s), 16, 16)
	if a := dst.RGBAAt(12, 12).A; a != 0 {
		t.Errorf("pixel outside the canvas has alpha %d, want 0", a)
	}
}

func TestFrameZoomMapsCanvas(t *testing.T) {
	s := twoLayerStore()
	sc := frameScene(s)
	sc.View.Zoom = 2
	dst := renderFrame(sc, 16, 16)
	// Canvas (0,0) covers viewport (0,0)..(2,2); canvas (7,7) is unpainted.
	if dst.RGBAAt(1, 1) != dst.RGBAAt(0, 0) {
		t.Error("zoomed pixel should cover a 2x2 block")
	}
	if dst.RGBAAt(15, 15).A == 0 {
		t.Error("zoomed canvas should reach the far corner")
	}
}

func TestFrameCursorRing(t *testing.T) {
	s := twoLayerStore()
	cur := Pt(20, 20)

	plain := frameScene(s)
	withCursor := frameScene(s)
	withCursor.Cursor = &cur
	withCursor.BrushSize = 10

	base := renderFrame(plain, 40, 40)
	if bytes.Equal(base.Pix, renderFrame(withCursor, 40, 40).Pix) {
		t.Error("brush cursor ring not drawn")
	}

	lasso := withCursor
	lasso.Tool = ToolLasso
	if !bytes.Equal(base.Pix, renderFrame(lasso, 40, 40).Pix) {
		t.Error("cursor ring drawn while the lasso tool is active")
	}

	panning := withCursor
	panning.Panning = true
	if !bytes.Equal(base.Pix, renderFrame(panning, 40, 40).Pix) {
		t.Error("cursor ring drawn while panning")
	}
}

func TestFrameLassoPreview(t *testing.T) {
	s := twoLayerStore()
	sc := frameScene(s)
	sc.Tool = ToolLasso
	base := renderFrame(sc, 40, 40)

	sc.Lasso = []Point{Pt(10, 10), Pt(30, 10), Pt(30, 30), Pt(10, 30)}
	got := renderFrame(sc, 40, 40)
	if bytes.Equal(base.Pix, got.Pix) {
		t.Fatal("lasso preview not drawn")
	}
	// The fill preview tints the inside.
	if got.RGBAAt(20, 20) == base.RGBAAt(20, 20) {
		t.Error("lasso fill preview missing")
	}
}

func TestThumbnail(t *testing.T) {
	s := NewLayerStore(32, 32)
	s.Create()
	paintRect(s.Layer(0), 0, 0, 32, 32)

	th := Thumbnail(s.Layer(0), 16)
	if th.Rect != image.Rect(0, 0, 16, 16) {
		t.Fatalf("thumbnail bounds = %v", th.Rect)
	}
	c := th.RGBAAt(13, 2)
	want := LayerColor(0).RGB
	if !near(c.R, want[0], 2) || !near(c.G, want[1], 2) || !near(c.B, want[2], 2) {
		t.Errorf("thumbnail pixel = %v, want about %v", c, want)
	}

	if Thumbnail(nil, 16).Rect.Dx() != 16 {
		t.Error("nil layer should still produce a blank thumbnail")
	}
}
