package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// MatchStore implements storage.MatchStore using PostgreSQL.
type MatchStore struct {
	pool *Pool
}

// NewMatchStore creates a new MatchStore.
func NewMatchStore(pool *Pool) *MatchStore {
	return &MatchStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MatchStore = (*MatchStore)(nil)

const matchColumns = `
	match_id, external_ref, league_id, home_team, away_team,
	detected_at, detection_line, current_line, current_score,
	status, final_home, final_away, finished_at,
	touched_target, detection_notified, completion_notified,
	created_at
`

// Insert adds a new match. Returns ErrDuplicateKey if match_id exists.
func (s *MatchStore) Insert(ctx context.Context, m *domain.TrackedMatch) error {
	if m == nil || m.MatchID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tracked_matches (` + matchColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16,
			$17
		)
	`

	_, err := s.pool.Exec(ctx, query,
		m.MatchID, m.ExternalRef, m.LeagueID, m.HomeTeam, m.AwayTeam,
		m.DetectedAt, m.DetectionLine, m.CurrentLine, m.CurrentScore,
		string(m.Status), m.FinalHome, m.FinalAway, m.FinishedAt,
		m.TouchedTarget, m.DetectionNotified, m.CompletionNotified,
		m.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert tracked match: %w", err)
	}
	return nil
}

// Update replaces a stored match. Returns ErrNotFound if not exists.
func (s *MatchStore) Update(ctx context.Context, m *domain.TrackedMatch) error {
	if m == nil || m.MatchID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE tracked_matches SET
			external_ref = $2, league_id = $3, home_team = $4, away_team = $5,
			detected_at = $6, detection_line = $7, current_line = $8, current_score = $9,
			status = $10, final_home = $11, final_away = $12, finished_at = $13,
			touched_target = $14, detection_notified = $15, completion_notified = $16
		WHERE match_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		m.MatchID, m.ExternalRef, m.LeagueID, m.HomeTeam, m.AwayTeam,
		m.DetectedAt, m.DetectionLine, m.CurrentLine, m.CurrentScore,
		string(m.Status), m.FinalHome, m.FinalAway, m.FinishedAt,
		m.TouchedTarget, m.DetectionNotified, m.CompletionNotified,
	)
	if err != nil {
		return fmt.Errorf("update tracked match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves a match by its ID. Returns ErrNotFound if not exists.
func (s *MatchStore) GetByID(ctx context.Context, matchID string) (*domain.TrackedMatch, error) {
	query := `SELECT ` + matchColumns + ` FROM tracked_matches WHERE match_id = $1`

	row := s.pool.QueryRow(ctx, query, matchID)
	m, err := scanMatch(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get tracked match by id: %w", err)
	}
	return m, nil
}

// GetByStatus retrieves all matches in a status, ordered by detected_at ASC.
func (s *MatchStore) GetByStatus(ctx context.Context, status domain.Status) ([]*domain.TrackedMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM tracked_matches
		WHERE status = $1
		ORDER BY detected_at ASC, match_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("get tracked matches by status: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// List retrieves matches matching the filter, ordered by detected_at DESC.
func (s *MatchStore) List(ctx context.Context, f storage.MatchFilter) ([]*domain.TrackedMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM tracked_matches
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR league_id = $2)
		ORDER BY detected_at DESC, match_id DESC
	`
	args := []any{string(f.Status), f.LeagueID}

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, f.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracked matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Count returns the total number of stored matches.
func (s *MatchStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracked_matches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tracked matches: %w", err)
	}
	return count, nil
}

// OldestFinished retrieves up to limit finished matches, oldest detected_at first.
func (s *MatchStore) OldestFinished(ctx context.Context, limit int) ([]*domain.TrackedMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM tracked_matches
		WHERE status = $1
		ORDER BY detected_at ASC, match_id ASC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusFinished), limit)
	if err != nil {
		return nil, fmt.Errorf("get oldest finished matches: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// Delete removes a match. Returns ErrNotFound if not exists.
func (s *MatchStore) Delete(ctx context.Context, matchID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tracked_matches WHERE match_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("delete tracked match: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// MissingDetection retrieves live matches with no detection line.
func (s *MatchStore) MissingDetection(ctx context.Context) ([]*domain.TrackedMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM tracked_matches
		WHERE status = $1 AND detection_line IS NULL
		ORDER BY match_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusLive))
	if err != nil {
		return nil, fmt.Errorf("get matches missing detection: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// MissingOutcome retrieves finished matches with no final score.
func (s *MatchStore) MissingOutcome(ctx context.Context) ([]*domain.TrackedMatch, error) {
	query := `
		SELECT ` + matchColumns + `
		FROM tracked_matches
		WHERE status = $1 AND final_home IS NULL
		ORDER BY match_id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.StatusFinished))
	if err != nil {
		return nil, fmt.Errorf("get matches missing outcome: %w", err)
	}
	defer rows.Close()

	return scanMatches(rows)
}

// LeagueBreakdown aggregates tracked/touched counts per league.
func (s *MatchStore) LeagueBreakdown(ctx context.Context) ([]*storage.LeagueStats, error) {
	query := `
		SELECT
			league_id,
			COUNT(*),
			COUNT(*) FILTER (WHERE touched_target)
		FROM tracked_matches
		GROUP BY league_id
		ORDER BY league_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("league breakdown: %w", err)
	}
	defer rows.Close()

	var result []*storage.LeagueStats
	for rows.Next() {
		var ls storage.LeagueStats
		if err := rows.Scan(&ls.LeagueID, &ls.Tracked, &ls.Touched); err != nil {
			return nil, fmt.Errorf("scan league stats row: %w", err)
		}
		result = append(result, &ls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate league stats rows: %w", err)
	}
	return result, nil
}

// scanMatch scans a single row into a TrackedMatch.
func scanMatch(row pgx.Row) (*domain.TrackedMatch, error) {
	var m domain.TrackedMatch
	var status string

	err := row.Scan(
		&m.MatchID, &m.ExternalRef, &m.LeagueID, &m.HomeTeam, &m.AwayTeam,
		&m.DetectedAt, &m.DetectionLine, &m.CurrentLine, &m.CurrentScore,
		&status, &m.FinalHome, &m.FinalAway, &m.FinishedAt,
		&m.TouchedTarget, &m.DetectionNotified, &m.CompletionNotified,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Status = domain.Status(status)

	return &m, nil
}

// scanMatches scans multiple rows into a slice of TrackedMatch.
func scanMatches(rows pgx.Rows) ([]*domain.TrackedMatch, error) {
	var matches []*domain.TrackedMatch

	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tracked match row: %w", err)
		}
		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracked match rows: %w", err)
	}

	return matches, nil
}
