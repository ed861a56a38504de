package tracker

import (
	"context"
	"log"

	"linewatch/internal/observability"
	"linewatch/internal/storage"
)

// DefaultMaxTracked caps retained matches when no cap is configured.
const DefaultMaxTracked = 3200

// Enforcer caps the number of retained matches by hard-deleting the oldest
// finished ones together with their history rows. Live matches are never
// evicted, even when that leaves the store above the cap.
type Enforcer struct {
	matches    storage.MatchStore
	history    storage.HistoryStore
	maxTracked int
	logger     *log.Logger
}

// NewEnforcer creates a retention enforcer.
func NewEnforcer(matches storage.MatchStore, history storage.HistoryStore, maxTracked int, logger *log.Logger) *Enforcer {
	if maxTracked <= 0 {
		maxTracked = DefaultMaxTracked
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Enforcer{
		matches:    matches,
		history:    history,
		maxTracked: maxTracked,
		logger:     logger,
	}
}

// Enforce runs one enforcement pass and returns the number of evicted
// matches. Per-match persistence errors are logged and skipped so one bad
// row cannot stall retention.
func (e *Enforcer) Enforce(ctx context.Context) int {
	total, err := e.matches.Count(ctx)
	if err != nil {
		e.logger.Printf("Retention: count failed: %v", err)
		return 0
	}
	excess := int(total) - e.maxTracked
	if excess <= 0 {
		return 0
	}

	candidates, err := e.matches.OldestFinished(ctx, excess)
	if err != nil {
		e.logger.Printf("Retention: selecting finished matches failed: %v", err)
		return 0
	}

	evicted := 0
	for _, m := range candidates {
		// History rows reference the match and must go first.
		if _, err := e.history.DeleteByMatchID(ctx, m.MatchID); err != nil {
			e.logger.Printf("Retention: delete history for %s failed: %v", m.MatchID, err)
			continue
		}
		if err := e.matches.Delete(ctx, m.MatchID); err != nil {
			e.logger.Printf("Retention: delete match %s failed: %v", m.MatchID, err)
			continue
		}
		evicted++
	}

	if evicted > 0 {
		observability.RecordEvicted(evicted)
		e.logger.Printf("Retention: evicted %d of %d excess matches", evicted, excess)
	}
	return evicted
}
