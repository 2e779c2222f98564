package job

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Store persists job records.
type Store interface {
	Create(ctx context.Context, rec Record) error
	Get(ctx context.Context, id string) (*Record, error)
	AppendStage(ctx context.Context, id string, stage Stage) error
	Complete(ctx context.Context, id string, status Status, summary map[string]any, errMsg string) error
	ListByType(ctx context.Context, t Type, limit int) ([]Record, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	records map[string]*Record
	order   []string
	mu      sync.RWMutex
}

// NewMemoryStore creates a new in-memory job record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Create(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		return fmt.Errorf("job id is required")
	}
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("job already exists: %s", rec.ID)
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusStarted
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
		return nil, fmt.Errorf("job not found: %s", id)
	}
	cp := *rec
	cp.Stages = append([]Stage(nil), rec.Stages...)
	return &cp, nil
}

func (s *MemoryStore) AppendStage(_ context.Context, id string, stage Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if stage.Timestamp.IsZero() {
		stage.Timestamp = time.Now()
	}
	rec.Stages = append(rec.Stages, stage)
	return nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, status Status, summary map[string]any, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	now := time.Now()
	rec.Status = status
	rec.Summary = summary
	rec.Error = errMsg
	rec.EndedAt = &now
	return nil
}

func (s *MemoryStore) ListByType(_ context.Context, t Type, limit int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for i := len(s.order) - 1; i >= 0; i-- {
		rec := s.records[s.order[i]]
		if rec.Type != t {
			continue
		}
		cp := *rec
		cp.Stages = append([]Stage(nil), rec.Stages...)
		out = append(out, cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
