package memory

import (
	"context"
	"sort"
	"sync"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// MatchStore is an in-memory implementation of storage.MatchStore.
type MatchStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TrackedMatch // keyed by match_id
}

// NewMatchStore creates a new in-memory match store.
func NewMatchStore() *MatchStore {
	return &MatchStore{
		data: make(map[string]*domain.TrackedMatch),
	}
}

// Verify interface compliance at compile time.
var _ storage.MatchStore = (*MatchStore)(nil)

// Insert adds a new match. Returns ErrDuplicateKey if match_id exists.
func (s *MatchStore) Insert(_ context.Context, m *domain.TrackedMatch) error {
	if m == nil || m.MatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MatchID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	s.data[m.MatchID] = m.Clone()
	return nil
}

// Update replaces a stored match. Returns ErrNotFound if not exists.
func (s *MatchStore) Update(_ context.Context, m *domain.TrackedMatch) error {
	if m == nil || m.MatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[m.MatchID]; !exists {
		return storage.ErrNotFound
	}

	s.data[m.MatchID] = m.Clone()
	return nil
}

// GetByID retrieves a match by its ID. Returns ErrNotFound if not exists.
func (s *MatchStore) GetByID(_ context.Context, matchID string) (*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.data[matchID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return m.Clone(), nil
}

// GetByStatus retrieves all matches in a status, ordered by detected_at ASC.
func (s *MatchStore) GetByStatus(_ context.Context, status domain.Status) ([]*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMatch
	for _, m := range s.data {
		if m.Status == status {
			result = append(result, m.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt < result[j].DetectedAt
		}
		return result[i].MatchID < result[j].MatchID
	})

	return result, nil
}

// List retrieves matches matching the filter, ordered by detected_at DESC.
func (s *MatchStore) List(_ context.Context, f storage.MatchFilter) ([]*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMatch
	for _, m := range s.data {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.LeagueID != "" && m.LeagueID != f.LeagueID {
			continue
		}
		result = append(result, m.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt > result[j].DetectedAt
		}
		return result[i].MatchID > result[j].MatchID
	})

	if f.Offset > 0 {
		if f.Offset >= len(result) {
			return nil, nil
		}
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}

	return result, nil
}

// Count returns the total number of stored matches.
func (s *MatchStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data)), nil
}

// OldestFinished retrieves up to limit finished matches, oldest detected_at first.
func (s *MatchStore) OldestFinished(_ context.Context, limit int) ([]*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMatch
	for _, m := range s.data {
		if m.Status == domain.StatusFinished {
			result = append(result, m.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].DetectedAt != result[j].DetectedAt {
			return result[i].DetectedAt < result[j].DetectedAt
		}
		return result[i].MatchID < result[j].MatchID
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a match. Returns ErrNotFound if not exists.
func (s *MatchStore) Delete(_ context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[matchID]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, matchID)
	return nil
}

// MissingDetection retrieves live matches with no detection line.
func (s *MatchStore) MissingDetection(_ context.Context) ([]*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMatch
	for _, m := range s.data {
		if m.Status == domain.StatusLive && m.DetectionLine == nil {
			result = append(result, m.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MatchID < result[j].MatchID
	})
	return result, nil
}

// MissingOutcome retrieves finished matches with no final score.
func (s *MatchStore) MissingOutcome(_ context.Context) ([]*domain.TrackedMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TrackedMatch
	for _, m := range s.data {
		if m.Status == domain.StatusFinished && m.FinalHome == nil {
			result = append(result, m.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].MatchID < result[j].MatchID
	})
	return result, nil
}

// LeagueBreakdown aggregates tracked/touched counts per league.
func (s *MatchStore) LeagueBreakdown(_ context.Context) ([]*storage.LeagueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLeague := make(map[string]*storage.LeagueStats)
	for _, m := range s.data {
		stats, ok := byLeague[m.LeagueID]
		if !ok {
			stats = &storage.LeagueStats{LeagueID: m.LeagueID}
			byLeague[m.LeagueID] = stats
		}
		stats.Tracked++
		if m.TouchedTarget {
			stats.Touched++
		}
	}

	result := make([]*storage.LeagueStats, 0, len(byLeague))
	for _, stats := range byLeague {
		result = append(result, stats)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LeagueID < result[j].LeagueID
	})
	return result, nil
}
