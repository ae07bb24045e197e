package store

import (
	"context"
	"sync"

	"github.com/Nishant28-sh/TradeTogether/internal/domain"
)

// MemoryStore keeps the message log in process memory. It backs tests and
// standalone development runs where no Cassandra cluster is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string][]domain.ChatMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string][]domain.ChatMessage)}
}

func (s *MemoryStore) Append(_ context.Context, msg domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[msg.Room] = append(s.rooms[msg.Room], msg)
	return nil
}

func (s *MemoryStore) RecentHistory(_ context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.rooms[roomID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]domain.ChatMessage, len(log))
	copy(out, log)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
