package knownsource

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists known-source entries.
type Store interface {
	Create(ctx context.Context, src KnownSource) error
	BulkCreate(ctx context.Context, sources []KnownSource) error
	FindByKey(ctx context.Context, key string) (*KnownSource, error)
	FindByLocation(ctx context.Context, country, region, subject string) ([]KnownSource, error)
	RefreshVerification(ctx context.Context, key string) error
	Deactivate(ctx context.Context, key string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	sources map[string]*KnownSource
	order   []string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory known-source store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sources: make(map[string]*KnownSource)}
}

func (s *MemoryStore) Create(_ context.Context, src KnownSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.create(src)
}

func (s *MemoryStore) BulkCreate(_ context.Context, sources []KnownSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, src := range sources {
		if err := s.create(src); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) create(src KnownSource) error {
	if src.Key == "" {
		return fmt.Errorf("source key is required")
	}
	if _, ok := s.sources[src.Key]; ok {
		return fmt.Errorf("known source already exists: %s", src.Key)
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now()
	}
	s.sources[src.Key] = &src
	s.order = append(s.order, src.Key)
	return nil
}

func (s *MemoryStore) FindByKey(_ context.Context, key string) (*KnownSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src, ok := s.sources[key]
	if !ok {
		return nil, fmt.Errorf("known source not found: %s", key)
	}
	cp := *src
	return &cp, nil
}

func (s *MemoryStore) FindByLocation(_ context.Context, country, region, subject string) ([]KnownSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KnownSource
	for _, key := range s.order {
		src := s.sources[key]
		if !src.IsActive || src.Country != country {
			continue
		}
		if !src.MatchesRegion(region) || !src.CoversSubject(subject) {
			continue
		}
		out = append(out, *src)
	}
	return out, nil
}

func (s *MemoryStore) RefreshVerification(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[key]
	if !ok {
		return fmt.Errorf("known source not found: %s", key)
	}
	now := time.Now()
	src.LastVerified = &now
	return nil
}

func (s *MemoryStore) Deactivate(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[key]
	if !ok {
		return fmt.Errorf("known source not found: %s", key)
	}
	src.IsActive = false
	return nil
}
