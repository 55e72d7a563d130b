package tabs

type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeUpdated   ChangeKind = "updated"
	ChangeReordered ChangeKind = "reordered"
	ChangeHidden    ChangeKind = "hidden"
	ChangeShown     ChangeKind = "shown"
	ChangeDeleted   ChangeKind = "deleted"
	ChangeRebuilt   ChangeKind = "rebuilt"
	ChangeLoaded    ChangeKind = "loaded"
	ChangeLayout    ChangeKind = "layout"
)

// Change describes one committed store operation
type Change struct {
	Kind   ChangeKind
	TabIDs []string
}

// Listener is called after the store lock is released; it may call back
// into the store
type Listener func(Change)

// Subscribe registers a listener and returns its cancel function
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listenerSeq++
	id := s.listenerSeq
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// listenersLocked returns the listeners in registration order
func (s *Store) listenersLocked() []Listener {
	if len(s.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(s.listeners))
	for id := 1; id <= s.listenerSeq; id++ {
		if l, ok := s.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
