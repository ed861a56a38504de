package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/feed"
	"linewatch/internal/storage"
)

// Backfiller repairs gaps the poll loop left behind: live matches that
// never got a detection line and finished matches with no final score.
// It runs on demand, not on the cycle timer.
type Backfiller struct {
	feed     feed.Client
	resolver LineResolver
	matches  storage.MatchStore
	history  storage.HistoryStore
	targets  *domain.TargetTable
	now      func() time.Time
	logger   *log.Logger
}

// BackfillerOptions contains configuration for creating a Backfiller.
type BackfillerOptions struct {
	Feed       feed.Client
	Resolver   LineResolver
	MatchStore storage.MatchStore
	History    storage.HistoryStore
	Targets    *domain.TargetTable
	Now        func() time.Time
	Logger     *log.Logger
}

// NewBackfiller creates a new backfill runner.
func NewBackfiller(opts BackfillerOptions) *Backfiller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Backfiller{
		feed:     opts.Feed,
		resolver: opts.Resolver,
		matches:  opts.MatchStore,
		history:  opts.History,
		targets:  opts.Targets,
		now:      now,
		logger:   logger,
	}
}

// BackfillResult summarizes one backfill run.
type BackfillResult struct {
	DetectionCandidates int `json:"detection_candidates"`
	DetectionFilled     int `json:"detection_filled"`
	OutcomeCandidates   int `json:"outcome_candidates"`
	OutcomeFilled       int `json:"outcome_filled"`
	Errors              int `json:"errors"`
}

// Run executes both backfill passes and returns their combined stats.
func (b *Backfiller) Run(ctx context.Context) (*BackfillResult, error) {
	result := &BackfillResult{}

	if err := b.fillDetections(ctx, result); err != nil {
		return result, err
	}
	if err := b.fillOutcomes(ctx, result); err != nil {
		return result, err
	}

	b.logger.Printf("Backfill completed: %d/%d detections, %d/%d outcomes, %d errors",
		result.DetectionFilled, result.DetectionCandidates,
		result.OutcomeFilled, result.OutcomeCandidates, result.Errors)
	return result, nil
}

// fillDetections re-resolves lines for live matches that have none yet.
// Filled lines go through the regular transition so a line that lands on
// the target still counts as a touch; the resulting notification is left
// to the next poll cycle.
func (b *Backfiller) fillDetections(ctx context.Context, result *BackfillResult) error {
	candidates, err := b.matches.MissingDetection(ctx)
	if err != nil {
		return fmt.Errorf("list matches missing detection: %w", err)
	}
	result.DetectionCandidates = len(candidates)

	for _, m := range candidates {
		obs, ok := b.resolver.Resolve(ctx, m.MatchID, m.ExternalRef)
		if !ok {
			continue
		}

		target := b.targets.For(m.LeagueID)
		next, eff := Transition(m, obs, target, &feed.LiveMatch{
			MatchID:     m.MatchID,
			LeagueID:    m.LeagueID,
			ExternalRef: m.ExternalRef,
		}, b.now().UnixMilli())

		if err := b.matches.Update(ctx, next); err != nil {
			b.logger.Printf("Backfill: update %s failed: %v", m.MatchID, err)
			result.Errors++
			continue
		}
		if eff.History != nil {
			if err := b.history.Insert(ctx, eff.History); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				b.logger.Printf("Backfill: history for %s failed: %v", m.MatchID, err)
				result.Errors++
			}
		}
		result.DetectionFilled++
	}
	return nil
}

// fillOutcomes looks up final scores for finished matches missing one.
func (b *Backfiller) fillOutcomes(ctx context.Context, result *BackfillResult) error {
	candidates, err := b.matches.MissingOutcome(ctx)
	if err != nil {
		return fmt.Errorf("list matches missing outcome: %w", err)
	}
	result.OutcomeCandidates = len(candidates)

	for _, m := range candidates {
		if m.ExternalRef == "" {
			continue
		}
		score, err := b.feed.Result(ctx, m.ExternalRef)
		if err != nil {
			b.logger.Printf("Backfill: result lookup for %s failed: %v", m.MatchID, err)
			result.Errors++
			continue
		}
		home, away, ok := domain.ParseScore(score)
		if !ok {
			continue
		}

		m.FinalHome = &home
		m.FinalAway = &away
		m.CurrentScore = domain.FormatScore(home, away)
		if err := b.matches.Update(ctx, m); err != nil {
			b.logger.Printf("Backfill: update %s failed: %v", m.MatchID, err)
			result.Errors++
			continue
		}
		result.OutcomeFilled++
	}
	return nil
}
