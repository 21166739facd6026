package rmask

import "testing"

func newHistoryStore() *LayerStore {
	s := NewLayerStore(4, 4)
	s.Create()
	return s
}

// gesture paints one pixel of layer 0 as a single history entry.
func gesture(h *History, s *LayerStore, x int) {
	l := s.Layer(0)
	h.Begin(0, l.Raster)
	l.Raster.SetPix(x%4, x/4%4, [4]uint8{byte(x), 1, 1, 255})
	h.Commit(l.Raster)
}

func TestHistoryNoOpCommit(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	h.Begin(0, s.Layer(0).Raster)
	if h.Commit(s.Layer(0).Raster) {
		t.Error("Commit of an unchanged raster should not push")
	}
	if h.Len() != 0 || h.CanUndo() {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestHistoryCommitWithoutBegin(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	if h.Commit(s.Layer(0).Raster) {
		t.Error("Commit without Begin should not push")
	}
}

func TestHistoryUndoRedoExact(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	before := s.Layer(0).Raster.Clone()

	gesture(h, s, 5)
	after := s.Layer(0).Raster.Clone()
	if h.Len() != 1 || h.Cursor() != 0 {
		t.Fatalf("Len() = %d, Cursor() = %d; want 1, 0", h.Len(), h.Cursor())
	}

	if !h.Undo(s) {
		t.Fatal("Undo() = false")
	}
	if !s.Layer(0).Raster.Equal(before) {
		t.Error("Undo did not restore the before raster exactly")
	}
	if h.Undo(s) {
		t.Error("Undo past the bottom should be a no-op")
	}

	if !h.Redo(s) {
		t.Fatal("Redo() = false")
	}
	if !s.Layer(0).Raster.Equal(after) {
		t.Error("Redo did not restore the after raster exactly")
	}
	if h.Redo(s) {
		t.Error("Redo past the newest entry should be a no-op")
	}
}

func TestHistoryPushTruncatesRedoTail(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	gesture(h, s, 1)
	gesture(h, s, 2)
	gesture(h, s, 3)
	h.Undo(s)
	h.Undo(s)
	if !h.CanRedo() {
		t.Fatal("expected redo entries")
	}
	gesture(h, s, 4)
	if h.CanRedo() {
		t.Error("a new entry should drop the redo tail")
	}
	if h.Len() != 2 || h.Cursor() != 1 {
		t.Errorf("Len() = %d, Cursor() = %d; want 2, 1", h.Len(), h.Cursor())
	}
}

func TestHistoryBoundDropsOldest(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	for i := 1; i <= MaxHistory; i++ {
		gesture(h, s, i)
	}
	first, _ := h.Entry(0)
	second, _ := h.Entry(1)
	if h.Len() != MaxHistory || h.Cursor() != MaxHistory-1 {
		t.Fatalf("Len() = %d, Cursor() = %d after %d pushes", h.Len(), h.Cursor(), MaxHistory)
	}

	gesture(h, s, MaxHistory+1)
	if h.Len() != MaxHistory {
		t.Errorf("Len() = %d, want %d", h.Len(), MaxHistory)
	}
	if h.Cursor() != MaxHistory-1 {
		t.Errorf("Cursor() = %d, want %d", h.Cursor(), MaxHistory-1)
	}
	got, _ := h.Entry(0)
	if got.Before == first.Before || got.Before != second.Before {
		t.Error("the oldest entry should have been dropped")
	}
	newest, _ := h.Entry(MaxHistory - 1)
	if !newest.After.Equal(s.Layer(0).Raster) {
		t.Error("the newest entry should be the last push")
	}

	undone := 0
	for h.Undo(s) {
		undone++
	}
	if undone != MaxHistory {
		t.Errorf("undid %d steps, want %d", undone, MaxHistory)
	}
}

func TestHistoryAbandon(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	h.Begin(0, s.Layer(0).Raster)
	if !h.Pending() {
		t.Fatal("Pending() = false after Begin")
	}
	s.Layer(0).Raster.SetPix(0, 0, [4]uint8{1, 1, 1, 255})
	h.Abandon()
	if h.Commit(s.Layer(0).Raster) || h.Len() != 0 {
		t.Error("an abandoned gesture must never be committed")
	}
}

func TestHistoryClear(t *testing.T) {
	s := newHistoryStore()
	h := NewHistory()
	gesture(h, s, 1)
	h.Clear()
	if h.Len() != 0 || h.Cursor() != -1 || h.CanUndo() || h.CanRedo() {
		t.Error("Clear() left entries behind")
	}
}
