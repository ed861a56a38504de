package memory

import (
	"context"
	"sort"
	"sync"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// historyKey is the uniqueness key for the line history ledger.
type historyKey struct {
	matchID  string
	line     float64
	overOdds string
}

// HistoryStore is an in-memory implementation of storage.HistoryStore.
type HistoryStore struct {
	mu   sync.RWMutex
	data map[historyKey]*domain.LineHistoryRecord
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		data: make(map[historyKey]*domain.LineHistoryRecord),
	}
}

// Verify interface compliance at compile time.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the tuple exists.
func (s *HistoryStore) Insert(_ context.Context, r *domain.LineHistoryRecord) error {
	if r == nil || r.MatchID == "" {
		return storage.ErrInvalidInput
	}

	key := historyKey{matchID: r.MatchID, line: r.Line, overOdds: r.OverOdds}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	recordCopy := *r
	s.data[key] = &recordCopy
	return nil
}

// GetByMatchID retrieves all records for a match, ordered by observed_at ASC.
func (s *HistoryStore) GetByMatchID(_ context.Context, matchID string) ([]*domain.LineHistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.LineHistoryRecord
	for _, r := range s.data {
		if r.MatchID == matchID {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ObservedAt != result[j].ObservedAt {
			return result[i].ObservedAt < result[j].ObservedAt
		}
		return result[i].Line < result[j].Line
	})

	return result, nil
}

// DeleteByMatchID removes all records for a match.
func (s *HistoryStore) DeleteByMatchID(_ context.Context, matchID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for key := range s.data {
		if key.matchID == matchID {
			delete(s.data, key)
			deleted++
		}
	}
	return deleted, nil
}
