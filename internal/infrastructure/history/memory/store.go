package memory

import (
	"sync"

	"github.com/abhikalparya/documentchatbot/internal/core/domain"
)

// Store is an in-process conversation log owned by one session.
type Store struct {
	mu    sync.RWMutex
	turns []domain.Turn
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Append(role domain.Role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, domain.Turn{Role: role, Content: content})
}

// All returns a copy in append order.
func (s *Store) All() []domain.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}
