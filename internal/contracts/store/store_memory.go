package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"rentaldocs/internal/contracts"
)

type InMemoryTemplateStore struct {
	mu        sync.RWMutex
	templates map[string]contracts.TemplateRecord
}

func NewInMemoryTemplateStore() *InMemoryTemplateStore {
	return &InMemoryTemplateStore{templates: make(map[string]contracts.TemplateRecord)}
}

func (s *InMemoryTemplateStore) Insert(_ context.Context, record *contracts.TemplateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[record.ID] = *record
	return nil
}

func (s *InMemoryTemplateStore) GetByID(_ context.Context, id string) (*contracts.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return &record, nil
}

func (s *InMemoryTemplateStore) List(_ context.Context) ([]contracts.TemplateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]contracts.TemplateRecord, 0, len(s.templates))
	for _, record := range s.templates {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Version > out[j].Version
	})
	return out, nil
}

func (s *InMemoryTemplateStore) SetActive(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.templates[id]
	if !ok {
		return ErrTemplateNotFound
	}
	for key, record := range s.templates {
		if record.Name != target.Name {
			continue
		}
		if key == id {
			record.Status = contracts.TemplateActive
		} else {
			record.Status = contracts.TemplateInactive
		}
		record.UpdatedAt = time.Now().UTC()
		s.templates[key] = record
	}
	return nil
}

type InMemoryContractStore struct {
	mu      sync.RWMutex
	records map[string]contracts.ContractRecord
}

func NewInMemoryContractStore() *InMemoryContractStore {
	return &InMemoryContractStore{records: make(map[string]contracts.ContractRecord)}
}

func (s *InMemoryContractStore) Insert(_ context.Context, record *contracts.ContractRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = *record
	return nil
}

func (s *InMemoryContractStore) GetByID(_ context.Context, id string) (*contracts.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, ErrContractNotFound
	}
	return &record, nil
}

func (s *InMemoryContractStore) FindRecentIssued(_ context.Context, templateID, actorID, fingerprint string, since time.Time) (*contracts.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *contracts.ContractRecord
	for _, record := range s.records {
		if record.TemplateID != templateID ||
			record.ActorID != actorID ||
			record.Fingerprint != fingerprint ||
			record.Status != contracts.ContractIssued ||
			record.IssuedAt.Before(since) {
			continue
		}
		candidate := record
		if newest == nil || candidate.IssuedAt.After(newest.IssuedAt) {
			newest = &candidate
		}
	}
	return newest, nil
}

func (s *InMemoryContractStore) List(_ context.Context, filter ContractListFilter) ([]contracts.ContractRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []contracts.ContractRecord
	for _, record := range s.records {
		if filter.TemplateID != "" && record.TemplateID != filter.TemplateID {
			continue
		}
		if filter.ActorID != "" && record.ActorID != filter.ActorID {
			continue
		}
		if filter.Status != "" && record.Status != filter.Status {
			continue
		}
		if !filter.IssuedFrom.IsZero() && record.IssuedAt.Before(filter.IssuedFrom) {
			continue
		}
		if !filter.IssuedTo.IsZero() && record.IssuedAt.After(filter.IssuedTo) {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}
