package memory

import (
	"context"
	"sync"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// callLogCap bounds in-memory call-log growth; oldest entries are dropped.
const callLogCap = 10000

// CallLogStore is an in-memory implementation of storage.CallLogStore.
type CallLogStore struct {
	mu   sync.RWMutex
	data []*domain.CallLogEntry // append order = call order
}

// NewCallLogStore creates a new in-memory call log store.
func NewCallLogStore() *CallLogStore {
	return &CallLogStore{}
}

// Verify interface compliance at compile time.
var _ storage.CallLogStore = (*CallLogStore)(nil)

// Insert adds one call record.
func (s *CallLogStore) Insert(_ context.Context, e *domain.CallLogEntry) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entryCopy := *e
	s.data = append(s.data, &entryCopy)
	if len(s.data) > callLogCap {
		s.data = s.data[len(s.data)-callLogCap:]
	}
	return nil
}

// Recent retrieves up to limit records, newest first.
func (s *CallLogStore) Recent(_ context.Context, limit int) ([]*domain.CallLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.data)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]*domain.CallLogEntry, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		entryCopy := *s.data[i]
		result = append(result, &entryCopy)
	}
	return result, nil
}
