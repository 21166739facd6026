package rmask

// MaxHistory bounds the number of undo steps kept.
const MaxHistory = 30

// HistoryEntry is one undoable change to a single layer's raster.
type HistoryEntry struct {
	LayerIndex int
	Before     *Pixmap
	After      *Pixmap
}

// History is a bounded undo/redo stack of raster snapshots.
//
// The cursor points at the newest undoable entry; entries after it are
// redoable and are dropped as soon as a new entry is pushed. When the
// stack is full the oldest entry is dropped, never the newest.
type History struct {
	entries []HistoryEntry
	cursor  int

	pending      *Pixmap
	pendingLayer int
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{cursor: -1}
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Cursor returns the index of the newest undoable entry, -1 when there is
// nothing to undo.
func (h *History) Cursor() int {
	return h.cursor
}

// CanUndo reports whether Undo would restore something.
func (h *History) CanUndo() bool {
	return h.cursor >= 0 && h.cursor < len(h.entries)
}

// CanRedo reports whether Redo would restore something.
func (h *History) CanRedo() bool {
	return h.cursor+1 < len(h.entries)
}

// Entry returns the entry at i.
func (h *History) Entry(i int) (HistoryEntry, bool) {
	if i < 0 || i >= len(h.entries) {
		return HistoryEntry{}, false
	}
	return h.entries[i], true
}

// Begin snapshots the raster a gesture is about to modify. A gesture that
// was begun and never committed is dropped.
func (h *History) Begin(layerIndex int, raster *Pixmap) {
	h.pending = raster.Clone()
	h.pendingLayer = layerIndex
}

// Pending reports whether a gesture snapshot is waiting for Commit.
func (h *History) Pending() bool {
	return h.pending != nil
}

// Abandon drops the pending snapshot without recording anything.
func (h *History) Abandon() {
	h.pending = nil
}

// Commit compares raster with the snapshot taken by Begin and records an
// entry when at least one byte changed. It reports whether an entry was
// pushed.
func (h *History) Commit(raster *Pixmap) bool {
	before := h.pending
	h.pending = nil
	if before == nil || before.Equal(raster) {
		return false
	}
	h.Push(HistoryEntry{
		LayerIndex: h.pendingLayer,
		Before:     before,
		After:      raster.Clone(),
	})
	return true
}

// Push records e after the cursor, discarding any redo tail.
func (h *History) Push(e HistoryEntry) {
	h.entries = append(h.entries[:h.cursor+1], e)
	if len(h.entries) > MaxHistory {
		h.entries[0] = HistoryEntry{}
		h.entries = h.entries[1:]
	} else {
		h.cursor++
	}
	Logger().Debug("rmask: history push", "layer", e.LayerIndex, "len", len(h.entries), "cursor", h.cursor)
}

// Undo restores the Before raster of the entry at the cursor and moves
// the cursor back. It reports false when there is nothing to undo.
func (h *History) Undo(s *LayerStore) bool {
	if !h.CanUndo() {
		return false
	}
	e := h.entries[h.cursor]
	h.cursor--
	restore(s, e.LayerIndex, e.Before)
	return true
}

// Redo moves the cursor forward and restores that entry's After raster.
// It reports false when there is nothing to redo.
func (h *History) Redo(s *LayerStore) bool {
	if !h.CanRedo() {
		return false
	}
	h.cursor++
	e := h.entries[h.cursor]
	restore(s, e.LayerIndex, e.After)
	return true
}

// Clear drops every entry and any pending snapshot.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = -1
	h.pending = nil
}

func restore(s *LayerStore, index int, snap *Pixmap) {
	l := s.Layer(index)
	if l == nil {
		return
	}
	l.Raster.CopyFrom(snap)
}
