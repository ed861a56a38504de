package postgres

import (
	"context"
	"fmt"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// HistoryStore implements storage.HistoryStore using PostgreSQL.
// Dedupe is enforced by the (match_id, line, over_odds) primary key.
type HistoryStore struct {
	pool *Pool
}

// NewHistoryStore creates a new HistoryStore.
func NewHistoryStore(pool *Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HistoryStore = (*HistoryStore)(nil)

// Insert appends one observation. Returns ErrDuplicateKey when the
// (match_id, line, over_odds) tuple was already recorded.
func (s *HistoryStore) Insert(ctx context.Context, r *domain.LineHistoryRecord) error {
	if r == nil || r.MatchID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO line_history (match_id, line, over_odds, observed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query, r.MatchID, r.Line, r.OverOdds, r.ObservedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert line history: %w", err)
	}
	return nil
}

// GetByMatchID retrieves all observations for a match, oldest first.
func (s *HistoryStore) GetByMatchID(ctx context.Context, matchID string) ([]*domain.LineHistoryRecord, error) {
	query := `
		SELECT match_id, line, over_odds, observed_at
		FROM line_history
		WHERE match_id = $1
		ORDER BY observed_at ASC, line ASC
	`

	rows, err := s.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("get line history by match id: %w", err)
	}
	defer rows.Close()

	var records []*domain.LineHistoryRecord
	for rows.Next() {
		var r domain.LineHistoryRecord
		if err := rows.Scan(&r.MatchID, &r.Line, &r.OverOdds, &r.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan line history row: %w", err)
		}
		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line history rows: %w", err)
	}
	return records, nil
}

// DeleteByMatchID removes all observations for a match and returns the count.
func (s *HistoryStore) DeleteByMatchID(ctx context.Context, matchID string) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM line_history WHERE match_id = $1`, matchID)
	if err != nil {
		return 0, fmt.Errorf("delete line history: %w", err)
	}
	return tag.RowsAffected(), nil
}
