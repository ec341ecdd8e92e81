package buffer

import "sync"

// sharedState holds the buffer's current content, readable by the
// controller (for Content() queries and to size outgoing TextChanges)
// and writable only by the owning worker.
type sharedState struct {
	mu      sync.RWMutex
	content string
}

func newSharedState(initial string) *sharedState {
	return &sharedState{content: initial}
}

func (s *sharedState) get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content
}

func (s *sharedState) set(v string) {
	s.mu.Lock()
	s.content = v
	s.mu.Unlock()
}
