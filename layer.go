package rmask

import (
	"slices"

	"github.com/google/uuid"
)

// RecolorTolerance is the per-channel distance within which painted pixels
// are treated as belonging to a layer's old color when the layer changes
// position.
const RecolorTolerance = 30

// Layer is one independently paintable raster with its own identity color
// and prompt.
type Layer struct {
	// ID is stable for the lifetime of the layer. It is never used for
	// ordering; position in the store is the only order.
	ID      string
	Name    string
	Color   Identity
	Raster  *Pixmap
	Visible bool
	Prompt  string
}

// LayerStore owns the ordered layer collection. All mutation goes through
// Create, Delete, Select and Resize so that positions stay contiguous and
// the layer at position i is always colored LayerColor(i).
type LayerStore struct {
	width  int
	height int
	layers []*Layer
	active int
}

// NewLayerStore creates an empty store for a width x height canvas.
func NewLayerStore(width, height int) *LayerStore {
	return &LayerStore{width: width, height: height}
}

// Size returns the canvas dimensions shared by every layer.
func (s *LayerStore) Size() (width, height int) {
	return s.width, s.height
}

// Len returns the number of layers.
func (s *LayerStore) Len() int {
	return len(s.layers)
}

// Layer returns the layer at position i, or nil when out of range.
func (s *LayerStore) Layer(i int) *Layer {
	if i < 0 || i >= len(s.layers) {
		return nil
	}
	return s.layers[i]
}

// Layers returns the layers in position order. The slice is a copy; the
// layers are not.
func (s *LayerStore) Layers() []*Layer {
	out := make([]*Layer, len(s.layers))
	copy(out, s.layers)
	return out
}

// ActiveIndex returns the active position, -1 when the store is empty.
func (s *LayerStore) ActiveIndex() int {
	if len(s.layers) == 0 {
		return -1
	}
	return s.active
}

// Active returns the active layer, or nil when the store is empty.
func (s *LayerStore) Active() *Layer {
	return s.Layer(s.ActiveIndex())
}

// Create appends a layer at the next position, makes it active and
// returns its index.
func (s *LayerStore) Create() int {
	idx := len(s.layers)
	id := LayerColor(idx)
	s.layers = append(s.layers, &Layer{
		ID:      uuid.NewString(),
		Name:    id.Name,
		Color:   id,
		Raster:  NewPixmap(s.width, s.height),
		Visible: true,
	})
	s.active = idx
	Logger().Debug("rmask: layer created", "index", idx, "color", id.Hex)
	return idx
}

// Delete removes the layer at position i. The last remaining layer cannot
// be deleted; Delete then reports false and changes nothing.
//
// Every layer that moves to a new position takes that position's color.
// Painted pixels close to the old color are rewritten to the new one so
// the content keeps reading as the same layer.
func (s *LayerStore) Delete(i int) bool {
	if len(s.layers) <= 1 || i < 0 || i >= len(s.layers) {
		return false
	}
	s.layers = slices.Delete(s.layers, i, i+1)

	for j, l := range s.layers {
		next := LayerColor(j)
		if next.RGB == l.Color.RGB {
			continue
		}
		RecolorPixels(l.Raster, l.Color.RGB, next.RGB, RecolorTolerance)
		if l.Name == l.Color.Name {
			l.Name = next.Name
		}
		l.Color = next
	}

	if s.active >= len(s.layers) {
		s.active = len(s.layers) - 1
	}
	Logger().Info("rmask: layer deleted", "index", i, "remaining", len(s.layers))
	return true
}

// Select makes position i active when it exists.
func (s *LayerStore) Select(i int) bool {
	if i < 0 || i >= len(s.layers) {
		return false
	}
	s.active = i
	return true
}

// Resize reallocates every raster to width x height, keeping existing
// content at the top-left origin without scaling.
func (s *LayerStore) Resize(width, height int) {
	for _, l := range s.layers {
		l.Raster = l.Raster.Resized(width, height)
	}
	s.width = width
	s.height = height
}

// SetVisible toggles whether layer i is drawn on screen.
func (s *LayerStore) SetVisible(i int, visible bool) bool {
	l := s.Layer(i)
	if l == nil {
		return false
	}
	l.Visible = visible
	return true
}

// SetPrompt sets the free-text prompt of layer i.
func (s *LayerStore) SetPrompt(i int, prompt string) bool {
	l := s.Layer(i)
	if l == nil {
		return false
	}
	l.Prompt = prompt
	return true
}

// Clone returns a deep copy of the store. Layer IDs are preserved.
func (s *LayerStore) Clone() *LayerStore {
	out := &LayerStore{
		width:  s.width,
		height: s.height,
		active: s.active,
		layers: make([]*Layer, len(s.layers)),
	}
	for i, l := range s.layers {
		cp := *l
		cp.Raster = l.Raster.Clone()
		out.layers[i] = &cp
	}
	return out
}

// RecolorPixels rewrites every pixel of p with non-zero alpha whose RGB
// is within tol of from to the RGB of to, keeping its alpha.
//
// Colors are matched, not owned: any other color in the raster that
// happens to sit within tol of from is rewritten as well.
func RecolorPixels(p *Pixmap, from, to [3]uint8, tol int) int {
	n := 0
	data := p.Data()
	for i := 0; i < len(data); i += 4 {
		if data[i+3] == 0 {
			continue
		}
		if !WithinTolerance([3]uint8{data[i], data[i+1], data[i+2]}, from, tol) {
			continue
		}
		data[i+0] = to[0]
		data[i+1] = to[1]
		data[i+2] = to[2]
		n++
	}
	return n
}
