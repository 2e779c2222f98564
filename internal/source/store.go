package source

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists source records.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	ListByCurriculum(ctx context.Context, curriculumID string) ([]Record, error)
	ListVetted(ctx context.Context, curriculumID string) ([]Record, error)
	SetChunkRefs(ctx context.Context, id string, chunkIDs []string, state string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]*Record
	order   []string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory source record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("source record id is required")
	}
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("source record already exists: %s", rec.ID)
	}
	if rec.DiscoveredAt.IsZero() {
		rec.DiscoveredAt = time.Now()
	}
	rec.UpdatedAt = time.Now()
	if rec.ExtractionState == "" {
		rec.ExtractionState = StatePending
	}
	s.records[rec.ID] = &rec
	s.order = append(s.order, rec.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("source record not found: %s", id)
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) ListByCurriculum(_ context.Context, curriculumID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, id := range s.order {
		if rec := s.records[id]; rec.CurriculumID == curriculumID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListVetted(_ context.Context, curriculumID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, id := range s.order {
		if rec := s.records[id]; rec.CurriculumID == curriculumID && rec.Vetted {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetChunkRefs(_ context.Context, id string, chunkIDs []string, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("source record not found: %s", id)
	}
	rec.ChunkIDs = append([]string(nil), chunkIDs...)
	rec.ExtractionState = state
	rec.UpdatedAt = time.Now()
	return nil
}
