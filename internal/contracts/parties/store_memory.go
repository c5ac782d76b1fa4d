package parties

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type key struct {
	role string
	rut  string
}

type InMemoryStore struct {
	mu      sync.RWMutex
	parties map[key]Party
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{parties: make(map[key]Party)}
}

func (s *InMemoryStore) Upsert(_ context.Context, party Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key{role: party.Role, rut: party.RUT}
	now := time.Now().UTC()
	if existing, ok := s.parties[k]; ok {
		party.ID = existing.ID
		party.CreatedAt = existing.CreatedAt
	} else {
		party.ID = uuid.NewString()
		party.CreatedAt = now
	}
	party.UpdatedAt = now
	s.parties[k] = party
	return nil
}

func (s *InMemoryStore) ListByRole(_ context.Context, role string) ([]Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Party
	for k, party := range s.parties {
		if k.role == role {
			out = append(out, party)
		}
	}
	return out, nil
}
