package chunk

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists knowledge chunks. All reads skip soft-deleted chunks.
type Store interface {
	Create(ctx context.Context, kc KnowledgeChunk) error
	Get(ctx context.Context, id string) (*KnowledgeChunk, error)
	ListBySource(ctx context.Context, sourceID string) ([]KnowledgeChunk, error)
	ListByCurriculum(ctx context.Context, curriculumID string) ([]KnowledgeChunk, error)
	SoftDelete(ctx context.Context, id string) error
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	chunks map[string]*KnowledgeChunk
	order  []string
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory knowledge chunk store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chunks: make(map[string]*KnowledgeChunk)}
}

func (s *MemoryStore) Create(_ context.Context, kc KnowledgeChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if kc.ID == "" {
		return fmt.Errorf("chunk id is required")
	}
	if _, ok := s.chunks[kc.ID]; ok {
		return fmt.Errorf("chunk already exists: %s", kc.ID)
	}
	if kc.CreatedAt.IsZero() {
		kc.CreatedAt = time.Now()
	}
	s.chunks[kc.ID] = &kc
	s.order = append(s.order, kc.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*KnowledgeChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kc, ok := s.chunks[id]
	if !ok || kc.Deleted {
		return nil, fmt.Errorf("chunk not found: %s", id)
	}
	cp := *kc
	return &cp, nil
}

func (s *MemoryStore) ListBySource(_ context.Context, sourceID string) ([]KnowledgeChunk, error) {
	return s.list(func(kc *KnowledgeChunk) bool { return kc.SourceID == sourceID })
}

func (s *MemoryStore) ListByCurriculum(_ context.Context, curriculumID string) ([]KnowledgeChunk, error) {
	return s.list(func(kc *KnowledgeChunk) bool { return kc.CurriculumID == curriculumID })
}

func (s *MemoryStore) list(match func(*KnowledgeChunk) bool) ([]KnowledgeChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []KnowledgeChunk
	for _, id := range s.order {
		if kc := s.chunks[id]; !kc.Deleted && match(kc) {
			out = append(out, *kc)
		}
	}
	return out, nil
}

func (s *MemoryStore) SoftDelete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kc, ok := s.chunks[id]
	if !ok {
		return fmt.Errorf("chunk not found: %s", id)
	}
	kc.Deleted = true
	return nil
}
