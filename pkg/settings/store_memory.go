package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-shot CLI runs.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	models []*AIModel
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		nextID: 1,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[key], nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) DefaultModel(ctx context.Context) (*AIModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var firstActive *AIModel
	for _, model := range s.models {
		if !model.Active {
			continue
		}
		if model.IsDefault {
			copied := *model
			return &copied, nil
		}
		if firstActive == nil {
			firstActive = model
		}
	}

	if firstActive == nil {
		return nil, nil
	}
	copied := *firstActive
	return &copied, nil
}

func (s *MemoryStore) SaveModel(ctx context.Context, model *AIModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if model.IsDefault {
		for _, existing := range s.models {
			existing.IsDefault = false
		}
	}

	copied := *model
	copied.ID = s.nextID
	s.nextID++
	model.ID = copied.ID
	s.models = append(s.models, &copied)
	return nil
}
