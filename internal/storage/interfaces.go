package storage

import (
	"context"

	"linewatch/internal/domain"
)

// MatchFilter narrows List results. Zero values mean "no filter".
type MatchFilter struct {
	Status   domain.Status
	LeagueID string
	Limit    int // 0 means no limit
	Offset   int
}

// LeagueStats aggregates detection counts for one league.
type LeagueStats struct {
	LeagueID string
	Tracked  int64 // matches ever tracked in this league
	Touched  int64 // matches whose line reached the league target
}

// MatchStore provides access to tracked_matches storage. The poll
// orchestrator is the only writer; the HTTP layer only reads.
type MatchStore interface {
	// Insert adds a new match. Returns ErrDuplicateKey if match_id exists.
	Insert(ctx context.Context, m *domain.TrackedMatch) error

	// Update replaces a stored match. Returns ErrNotFound if not exists.
	Update(ctx context.Context, m *domain.TrackedMatch) error

	// GetByID retrieves a match by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, matchID string) (*domain.TrackedMatch, error)

	// GetByStatus retrieves all matches in a status, ordered by detected_at ASC.
	GetByStatus(ctx context.Context, status domain.Status) ([]*domain.TrackedMatch, error)

	// List retrieves matches matching the filter, ordered by detected_at DESC.
	List(ctx context.Context, f MatchFilter) ([]*domain.TrackedMatch, error)

	// Count returns the total number of stored matches.
	Count(ctx context.Context) (int64, error)

	// OldestFinished retrieves up to limit finished matches, oldest
	// detected_at first. Used by retention enforcement.
	OldestFinished(ctx context.Context, limit int) ([]*domain.TrackedMatch, error)

	// Delete removes a match. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, matchID string) error

	// MissingDetection retrieves live matches with no detection line.
	MissingDetection(ctx context.Context) ([]*domain.TrackedMatch, error)

	// MissingOutcome retrieves finished matches with no final score.
	MissingOutcome(ctx context.Context) ([]*domain.TrackedMatch, error)

	// LeagueBreakdown aggregates tracked/touched counts per league.
	LeagueBreakdown(ctx context.Context) ([]*LeagueStats, error)
}

// HistoryStore provides access to line_history storage. Append-only:
// rows are never updated, only inserted and bulk-deleted per match.
type HistoryStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the
	// (match_id, line, over_odds) tuple exists; callers absorb duplicates.
	Insert(ctx context.Context, r *domain.LineHistoryRecord) error

	// GetByMatchID retrieves all records for a match, ordered by observed_at ASC.
	GetByMatchID(ctx context.Context, matchID string) ([]*domain.LineHistoryRecord, error)

	// DeleteByMatchID removes all records for a match. Returns the number deleted.
	DeleteByMatchID(ctx context.Context, matchID string) (int64, error)
}

// CallLogStore records upstream calls for observability. Never consulted
// by the tracking logic itself.
type CallLogStore interface {
	// Insert adds one call record.
	Insert(ctx context.Context, e *domain.CallLogEntry) error

	// Recent retrieves up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]*domain.CallLogEntry, error)
}
