package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"contractgateway/internal/models"
)

// MemoryStore keeps operation records for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]models.OperationRecord
	now     func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]models.OperationRecord),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, record *models.OperationRecord) error {
	s.mu.Lock()
	s.records[record.ID] = *record
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, update models.OperationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	update.Apply(&record, s.now())
	s.records[id] = record
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.OperationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &record, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
