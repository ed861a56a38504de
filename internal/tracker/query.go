package tracker

import (
	"context"
	"fmt"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

// QueryService is the read side of the engine, backing the HTTP API.
type QueryService struct {
	matches storage.MatchStore
	history storage.HistoryStore
	callLog storage.CallLogStore
}

// NewQueryService creates a new query service.
func NewQueryService(matches storage.MatchStore, history storage.HistoryStore, callLog storage.CallLogStore) *QueryService {
	return &QueryService{
		matches: matches,
		history: history,
		callLog: callLog,
	}
}

// MatchDetail is a match together with its full line history.
type MatchDetail struct {
	Match   *domain.TrackedMatch        `json:"match"`
	History []*domain.LineHistoryRecord `json:"history"`
}

// LeagueSummary reports per-league touch counts.
type LeagueSummary struct {
	LeagueID   string  `json:"league_id"`
	Tracked    int64   `json:"tracked"`
	Touched    int64   `json:"touched"`
	TouchRatio float64 `json:"touch_ratio"`
}

// EngineStats is the aggregate view for the stats endpoint.
type EngineStats struct {
	TotalTracked int64            `json:"total_tracked"`
	Live         int              `json:"live"`
	Finished     int              `json:"finished"`
	Leagues      []*LeagueSummary `json:"leagues"`
}

// ListMatches returns matches ordered newest first.
func (s *QueryService) ListMatches(ctx context.Context, f storage.MatchFilter) ([]*domain.TrackedMatch, error) {
	matches, err := s.matches.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	return matches, nil
}

// GetMatch returns one match with its line history, oldest first.
func (s *QueryService) GetMatch(ctx context.Context, matchID string) (*MatchDetail, error) {
	m, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	records, err := s.history.GetByMatchID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &MatchDetail{Match: m, History: records}, nil
}

// Stats aggregates tracked counts overall and per league.
func (s *QueryService) Stats(ctx context.Context) (*EngineStats, error) {
	total, err := s.matches.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	live, err := s.matches.GetByStatus(ctx, domain.StatusLive)
	if err != nil {
		return nil, fmt.Errorf("count live: %w", err)
	}
	breakdown, err := s.matches.LeagueBreakdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("league breakdown: %w", err)
	}

	stats := &EngineStats{
		TotalTracked: total,
		Live:         len(live),
		Finished:     int(total) - len(live),
	}
	for _, ls := range breakdown {
		summary := &LeagueSummary{
			LeagueID: ls.LeagueID,
			Tracked:  ls.Tracked,
			Touched:  ls.Touched,
		}
		if ls.Tracked > 0 {
			summary.TouchRatio = float64(ls.Touched) / float64(ls.Tracked)
		}
		stats.Leagues = append(stats.Leagues, summary)
	}
	return stats, nil
}

// RecentCalls returns the latest upstream call log entries, newest first.
func (s *QueryService) RecentCalls(ctx context.Context, limit int) ([]*domain.CallLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := s.callLog.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent calls: %w", err)
	}
	return entries, nil
}
