package rmask

import (
	"slices"
	"sync/atomic"
	"testing"
	"time"
)

func TestSessions(t *testing.T) {
	s := NewSessions()
	t.Cleanup(s.CloseAll)

	id1, ed1 := s.Open(8, 8)
	id2, _ := s.Open(16, 16)
	if id1 == id2 {
		t.Fatal("session IDs should be unique")
	}

	got, ok := s.Get(id1)
	if !ok || got != ed1 {
		t.Error("Get did not return the opened editor")
	}
	ids := s.IDs()
	if len(ids) != 2 || !slices.IsSorted(ids) {
		t.Errorf("IDs() = %v", ids)
	}

	if !s.Close(id1) {
		t.Error("Close of an open session = false")
	}
	if s.Close(id1) {
		t.Error("Close of a closed session = true")
	}
	if _, ok := s.Get(id1); ok {
		t.Error("closed session still reachable")
	}
}

func TestSessionsCloseFlushes(t *testing.T) {
	var calls atomic.Int32
	s := NewSessions()
	id, ed := s.Open(8, 8, WithSyncDelay(time.Hour), WithSyncFunc(func(*Snapshot) error {
		calls.Add(1)
		return nil
	}))
	ed.AddLayer()
	s.Close(id)
	if calls.Load() != 1 {
		t.Errorf("closing a session ran sync %d times, want 1", calls.Load())
	}
}
