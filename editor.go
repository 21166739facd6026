package rmask

import (
	"errors"
	"image"
	"log/slog"
	"math"
	"strconv"
	"sync"
)

// Canvas dimension bounds accepted by Resize.
const (
	MinCanvasSize = 1
	MaxCanvasSize = 8192
)

// DefaultThumbnailSize is the edge length of layer thumbnails.
const DefaultThumbnailSize = 64

// WheelZoomStep is the zoom factor of one wheel notch.
const WheelZoomStep = 1.1

var (
	// ErrClosed is returned by operations on an editor after Close.
	ErrClosed = errors.New("rmask: editor closed")

	// ErrNoLayers is returned when state to load holds no layers.
	ErrNoLayers = errors.New("rmask: no layers")
)

// Snapshot is a deep copy of the persistent editor state.
type Snapshot struct {
	Layers *LayerStore
	Base   *Pixmap
}

// Prompts returns the layer prompts keyed by 1-based layer position.
func (s *Snapshot) Prompts() map[string]string {
	return promptMap(s.Layers)
}

// SyncFunc persists a snapshot. It runs on a timer goroutine.
type SyncFunc func(*Snapshot) error

// Editor is one mask editing session: the layers, the view, the active
// tool, undo history and what the host needs to display them.
//
// Every exported method runs to completion under the editor's lock, so
// mutations never interleave. After a mutation the frame is marked dirty,
// the affected thumbnails are marked stale and a persistence sync is
// scheduled.
type Editor struct {
	mu sync.Mutex

	layers  *LayerStore
	view    *View
	paint   *PaintEngine
	history *History
	comp    *Compositor
	base    *Pixmap

	maskOpacity float64

	gesture     bool
	gestureLast Point
	panMode     bool
	panDrag     bool
	panLast     Point
	cursor      *Point

	dirty     bool
	frame     *image.RGBA
	thumbSize int
	thumbs    []*image.RGBA // nil entries are stale

	syncFn SyncFunc
	syncer *debouncer
	log    *slog.Logger
	closed bool
}

// NewEditor creates an editor for a width x height canvas holding one
// empty layer.
func NewEditor(width, height int, opts ...Option) *Editor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	e := &Editor{
		layers:    NewLayerStore(width, height),
		view:      NewView(width, height),
		paint:     NewPaintEngine(),
		history:   NewHistory(),
		comp:      NewCompositor(),
		thumbSize: o.thumbSize,
		syncFn:    o.syncFn,
		log:       o.logger,
		dirty:     true,
	}
	e.paint.BrushSize = math.Max(1, o.brushSize)
	e.maskOpacity = clampPercent(o.maskOpacity)
	e.layers.Create()
	e.syncer = newDebouncer(o.syncDelay, e.runSync)
	return e
}

func (e *Editor) logger() *slog.Logger {
	if e.log != nil {
		return e.log
	}
	return Logger()
}

// changed records a mutation. Thumbnails of the given layers become stale;
// with no layers given every thumbnail does.
func (e *Editor) changed(layers ...int) {
	e.dirty = true
	if len(layers) == 0 {
		e.thumbs = nil
	}
	for _, i := range layers {
		if i >= 0 && i < len(e.thumbs) {
			e.thumbs[i] = nil
		}
	}
	if !e.closed {
		e.syncer.Trigger()
	}
}

func (e *Editor) runSync() {
	e.mu.Lock()
	fn := e.syncFn
	if fn == nil {
		e.mu.Unlock()
		return
	}
	snap := e.snapshotLocked()
	e.mu.Unlock()

	if err := fn(snap); err != nil {
		e.logger().Warn("rmask: sync failed", "err", err)
	}
}

// abandonGesture drops an open gesture without recording history.
func (e *Editor) abandonGesture() {
	if e.gesture {
		e.logger().Debug("rmask: gesture abandoned")
	}
	e.gesture = false
	e.history.Abandon()
	e.paint.LassoCancel()
}

// PointerDown starts a gesture at a screen position. In pan mode it
// starts dragging the view instead. A gesture that is still open is
// abandoned first.
func (e *Editor) PointerDown(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.panMode {
		e.panDrag = true
		e.panLast = p
		return
	}
	e.abandonGesture()

	l := e.layers.Active()
	if l == nil {
		return
	}
	c := e.view.ScreenToCanvas(p)
	e.cursor = &c
	e.history.Begin(e.layers.ActiveIndex(), l.Raster)
	e.gesture = true
	e.gestureLast = c

	switch e.paint.Tool {
	case ToolLasso:
		e.paint.LassoAdd(c)
	default:
		e.paint.Dab(l, c)
	}
	e.dirty = true
}

// PointerMove continues a gesture or a pan, and moves the brush cursor.
func (e *Editor) PointerMove(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.panDrag {
		e.view.PanBy(p.X-e.panLast.X, p.Y-e.panLast.Y)
		e.panLast = p
		e.dirty = true
		return
	}

	c := e.view.ScreenToCanvas(p)
	e.cursor = &c
	e.dirty = true
	if !e.gesture {
		return
	}
	l := e.layers.Active()
	switch e.paint.Tool {
	case ToolLasso:
		e.paint.LassoAdd(c)
	default:
		e.paint.Stroke(l, e.gestureLast, c)
	}
	e.gestureLast = c
}

// PointerUp completes the gesture. A lasso is closed and filled; the
// change, if any, becomes one history entry.
func (e *Editor) PointerUp(p Point) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.panDrag {
		e.panDrag = false
		return
	}
	if !e.gesture {
		return
	}
	e.gesture = false

	idx := e.layers.ActiveIndex()
	l := e.layers.Active()
	if e.paint.Tool == ToolLasso {
		e.paint.LassoAdd(e.view.ScreenToCanvas(p))
		e.paint.LassoClose(l)
	}
	if e.history.Commit(l.Raster) {
		e.changed(idx)
		return
	}
	e.dirty = true
}

// PointerLeave hides the brush cursor.
func (e *Editor) PointerLeave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cursor = nil
	e.dirty = true
}

// BeginPan enters pan mode (space held, middle button). Pointer drags
// move the view until EndPan. An open gesture is abandoned.
func (e *Editor) BeginPan() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	e.panMode = true
	e.dirty = true
}

// EndPan leaves pan mode.
func (e *Editor) EndPan() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.panMode = false
	e.panDrag = false
	e.dirty = true
}

// SetTool switches between brush and lasso. An open lasso is discarded.
func (e *Editor) SetTool(t Tool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t != e.paint.Tool {
		e.abandonGesture()
	}
	e.paint.SetTool(t)
	e.dirty = true
}

// Tool returns the current tool.
func (e *Editor) Tool() Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paint.Tool
}

// SetEraser toggles erasing for both tools.
func (e *Editor) SetEraser(on bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paint.Eraser = on
	e.dirty = true
}

// Eraser reports whether erasing is on.
func (e *Editor) Eraser() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paint.Eraser
}

// SetBrushSize sets the brush diameter in canvas pixels, at least 1.
func (e *Editor) SetBrushSize(size float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if math.IsNaN(size) {
		return
	}
	e.paint.BrushSize = math.Max(1, size)
	e.dirty = true
}

// BrushSize returns the brush diameter.
func (e *Editor) BrushSize() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paint.BrushSize
}

// SetMaskOpacity sets the mask opacity setting, clamped to [0, 100].
func (e *Editor) SetMaskOpacity(percent float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.maskOpacity = clampPercent(percent)
	e.dirty = true
}

// MaskOpacity returns the mask opacity setting.
func (e *Editor) MaskOpacity() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maskOpacity
}

func clampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// Undo reverts the newest undoable change.
func (e *Editor) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	i := e.history.Cursor()
	if !e.history.Undo(e.layers) {
		return false
	}
	ent, _ := e.history.Entry(i)
	e.changed(ent.LayerIndex)
	return true
}

// Redo reapplies the next undone change.
func (e *Editor) Redo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	if !e.history.Redo(e.layers) {
		return false
	}
	ent, _ := e.history.Entry(e.history.Cursor())
	e.changed(ent.LayerIndex)
	return true
}

// CanUndo reports whether Undo would do anything.
func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanUndo()
}

// CanRedo reports whether Redo would do anything.
func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.CanRedo()
}

// AddLayer appends an empty layer, makes it active and returns its index.
func (e *Editor) AddLayer() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	i := e.layers.Create()
	e.changed(i)
	return i
}

// DeleteLayer removes layer i. The last layer cannot be deleted.
// Undo history is cleared because its entries refer to positions that
// have shifted.
func (e *Editor) DeleteLayer(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	if !e.layers.Delete(i) {
		return false
	}
	e.history.Clear()
	e.changed()
	return true
}

// SelectLayer makes layer i active.
func (e *Editor) SelectLayer(i int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if i == e.layers.ActiveIndex() {
		return e.layers.Layer(i) != nil
	}
	e.abandonGesture()
	if !e.layers.Select(i) {
		return false
	}
	e.dirty = true
	return true
}

// SetLayerVisible shows or hides layer i on screen and in the composite.
// Hidden layers still go into the clean mask.
func (e *Editor) SetLayerVisible(i int, visible bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.layers.SetVisible(i, visible) {
		return false
	}
	e.changed(i)
	return true
}

// ActiveLayer returns the active layer index.
func (e *Editor) ActiveLayer() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.ActiveIndex()
}

// LayerCount returns the number of layers.
func (e *Editor) LayerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.Len()
}

// Size returns the canvas dimensions.
func (e *Editor) Size() (width, height int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layers.Size()
}

// Resize changes the canvas dimensions. Layer content stays at the
// origin, unscaled. Sizes outside [MinCanvasSize, MaxCanvasSize] are
// rejected. Undo history is cleared.
func (e *Editor) Resize(width, height int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if width < MinCanvasSize || height < MinCanvasSize || width > MaxCanvasSize || height > MaxCanvasSize {
		return false
	}
	if w, h := e.layers.Size(); w == width && h == height {
		return true
	}
	e.abandonGesture()
	e.resizeLocked(width, height)
	e.changed()
	return true
}

func (e *Editor) resizeLocked(width, height int) {
	e.layers.Resize(width, height)
	e.view.SetCanvasSize(width, height)
	e.history.Clear()
	e.logger().Info("rmask: canvas resized", "width", width, "height", height)
}

// SetBaseImage sets the reference image and resizes the canvas to match
// it.
func (e *Editor) SetBaseImage(img image.Image) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.abandonGesture()
	e.base = FromImage(img)
	if w, h := e.layers.Size(); w != e.base.Width() || h != e.base.Height() {
		e.resizeLocked(e.base.Width(), e.base.Height())
	}
	e.changed()
}

// ClearBaseImage removes the reference image.
func (e *Editor) ClearBaseImage() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.base == nil {
		return
	}
	e.base = nil
	e.changed()
}

// SetPrompt sets the prompt of layer i (0-based).
func (e *Editor) SetPrompt(i int, prompt string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.layers.SetPrompt(i, prompt) {
		return false
	}
	if !e.closed {
		e.syncer.Trigger()
	}
	return true
}

// Prompt returns the prompt of layer i (0-based).
func (e *Editor) Prompt(i int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l := e.layers.Layer(i); l != nil {
		return l.Prompt
	}
	return ""
}

// Prompts returns every layer prompt keyed by 1-based layer position.
func (e *Editor) Prompts() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return promptMap(e.layers)
}

func promptMap(s *LayerStore) map[string]string {
	m := make(map[string]string, s.Len())
	for i, l := range s.Layers() {
		m[strconv.Itoa(i+1)] = l.Prompt
	}
	return m
}

// FitToScreen fits the canvas into a vw x vh viewport without enlarging
// it.
func (e *Editor) FitToScreen(vw, vh float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.FitToScreen(vw, vh)
	e.dirty = true
}

// Wheel zooms one step per notch around the screen position (sx, sy).
// Negative delta zooms in.
func (e *Editor) Wheel(delta, sx, sy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if delta == 0 {
		return
	}
	z := e.view.Zoom * WheelZoomStep
	if delta > 0 {
		z = e.view.Zoom / WheelZoomStep
	}
	e.view.ZoomAt(z, sx, sy)
	e.dirty = true
}

// ZoomPercent returns the zoom as a percentage.
func (e *Editor) ZoomPercent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.ZoomPercent()
}

// SetZoomPercent zooms around the center of a vw x vh viewport.
func (e *Editor) SetZoomPercent(percent, vw, vh float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.view.SetZoomPercent(percent, vw, vh)
	e.dirty = true
}

// SetPixelRatio sets the ratio of native viewport pixels to pointer
// units.
func (e *Editor) SetPixelRatio(r float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r > 0 {
		e.view.Ratio = r
		e.dirty = true
	}
}

// View returns a copy of the current view.
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return *e.view
}

// Dirty reports whether the display changed since the last Frame.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Frame renders the display into a vw x vh buffer. The buffer is reused
// by the next call; callers that keep it must copy it.
func (e *Editor) Frame(vw, vh int) *image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.frame == nil || e.frame.Rect.Dx() != vw || e.frame.Rect.Dy() != vh {
		e.frame = image.NewRGBA(image.Rect(0, 0, vw, vh))
	}
	e.comp.Frame(e.frame, Scene{
		Layers:      e.layers,
		Base:        e.base,
		View:        e.view,
		MaskOpacity: e.maskOpacity,
		Tool:        e.paint.Tool,
		Eraser:      e.paint.Eraser,
		BrushSize:   e.paint.BrushSize,
		Lasso:       e.paint.LassoPath(),
		Cursor:      e.cursor,
		Panning:     e.panMode,
	})
	e.dirty = false
	return e.frame
}

// Thumbnails returns one thumbnail per layer in position order,
// re-rendering only the stale ones.
func (e *Editor) Thumbnails() []*image.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.layers.Len()
	if len(e.thumbs) != n {
		thumbs := make([]*image.RGBA, n)
		copy(thumbs, e.thumbs)
		e.thumbs = thumbs
	}
	out := make([]*image.RGBA, n)
	for i, l := range e.layers.Layers() {
		if e.thumbs[i] == nil {
			e.thumbs[i] = Thumbnail(l, e.thumbSize)
		}
		out[i] = e.thumbs[i]
	}
	return out
}

// CleanMask flattens all layers over white.
func (e *Editor) CleanMask() *Pixmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return CleanMask(e.layers)
}

// Composite flattens the base image and visible layers.
func (e *Editor) Composite() *Pixmap {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Composite(e.layers, e.base)
}

// Snapshot returns a deep copy of the persistent state.
func (e *Editor) Snapshot() *Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Editor) snapshotLocked() *Snapshot {
	s := &Snapshot{Layers: e.layers.Clone()}
	if e.base != nil {
		s.Base = e.base.Clone()
	}
	return s
}

// Load replaces the editor state with a copy of s. The view keeps its
// zoom; history is cleared. It returns ErrNoLayers when s holds none.
func (e *Editor) Load(s *Snapshot) error {
	if s == nil || s.Layers == nil || s.Layers.Len() == 0 {
		return ErrNoLayers
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	e.abandonGesture()
	e.layers = s.Layers.Clone()
	e.base = nil
	if s.Base != nil {
		e.base = s.Base.Clone()
	}
	e.view.SetCanvasSize(e.layers.Size())
	e.history.Clear()
	e.changed()
	e.logger().Info("rmask: state loaded", "layers", e.layers.Len())
	return nil
}

// Flush runs a pending sync now instead of waiting for the delay.
func (e *Editor) Flush() {
	e.syncer.Flush()
}

// Close flushes a pending sync and stops further syncs.
func (e *Editor) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	e.closed = true
	e.mu.Unlock()
	e.syncer.Flush()
	return nil
}
