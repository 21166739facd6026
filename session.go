package rmask

import (
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Sessions maps session IDs to editors. A host owns one Sessions value and
// passes it where it is needed; the package keeps no global editor.
type Sessions struct {
	mu      sync.Mutex
	editors map[string]*Editor
}

// NewSessions creates an empty session table.
func NewSessions() *Sessions {
	return &Sessions{editors: make(map[string]*Editor)}
}

// Open creates an editor under a fresh session ID.
func (s *Sessions) Open(width, height int, opts ...Option) (string, *Editor) {
	ed := NewEditor(width, height, opts...)
	id := uuid.NewString()

	s.mu.Lock()
	s.editors[id] = ed
	s.mu.Unlock()

	Logger().Debug("rmask: session opened", "id", id, "width", width, "height", height)
	return id, ed
}

// Get returns the editor of session id.
func (s *Sessions) Get(id string) (*Editor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ed, ok := s.editors[id]
	return ed, ok
}

// Close removes session id and closes its editor, flushing a pending
// sync. It reports false for an unknown id.
func (s *Sessions) Close(id string) bool {
	s.mu.Lock()
	ed, ok := s.editors[id]
	delete(s.editors, id)
	s.mu.Unlock()

	if !ok {
		return false
	}
	if err := ed.Close(); err != nil {
		Logger().Warn("rmask: session close", "id", id, "err", err)
	}
	return true
}

// IDs returns the open session IDs in sorted order.
func (s *Sessions) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.editors))
	for id := range s.editors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CloseAll closes every session.
func (s *Sessions) CloseAll() {
	for _, id := range s.IDs() {
		s.Close(id)
	}
}
