// Package tracker implements the live line tracking engine: the per-match
// state machine, the poll orchestrator, retention enforcement and the
// backfill pass.
package tracker

import (
	"linewatch/internal/domain"
	"linewatch/internal/feed"
	"linewatch/internal/resolver"
)

// Effects describes the side effects a transition asks the caller to carry
// out. The machine itself never touches storage or the queue; the poller
// persists the returned match, appends history and enqueues notifications.
type Effects struct {
	// Created is true when the match was seen for the first time.
	Created bool

	// TouchedNow is true when this transition is the first target touch.
	TouchedNow bool

	// NotifyDetection asks the caller to enqueue a detection notification.
	// The caller flips DetectionNotified only after a successful hand-off.
	NotifyDetection bool

	// History is the observation to append to the ledger, nil when the
	// line was unavailable. Duplicates are absorbed by the ledger.
	History *domain.LineHistoryRecord
}

// Transition decides the next state for one match given a new observation.
// existing == nil means the match is not tracked yet; obs == nil means the
// line was unavailable this cycle. Pure function: no I/O, no clock.
func Transition(existing *domain.TrackedMatch, obs *resolver.Observation, target float64, live *feed.LiveMatch, now int64) (*domain.TrackedMatch, Effects) {
	var eff Effects

	if existing == nil {
		next := &domain.TrackedMatch{
			MatchID:      live.MatchID,
			ExternalRef:  live.ExternalRef,
			LeagueID:     live.LeagueID,
			HomeTeam:     live.HomeTeam,
			AwayTeam:     live.AwayTeam,
			DetectedAt:   now,
			CurrentScore: live.Score,
			Status:       domain.StatusLive,
			CreatedAt:    now,
		}
		eff.Created = true

		if obs != nil {
			line := obs.Line
			next.CurrentLine = &line
			detection := obs.Line
			next.DetectionLine = &detection
			if obs.Line == target {
				next.TouchedTarget = true
				eff.TouchedNow = true
				eff.NotifyDetection = true
			}
			eff.History = historyRecord(live.MatchID, obs, now)
		}
		return next, eff
	}

	next := existing.Clone()

	// Progress updates on every cycle regardless of line availability.
	if live.Score != "" {
		next.CurrentScore = live.Score
	}
	// The secondary ref is immutable once set but may arrive late.
	if next.ExternalRef == "" && live.ExternalRef != "" {
		next.ExternalRef = live.ExternalRef
	}

	if obs != nil {
		line := obs.Line
		next.CurrentLine = &line
		eff.History = historyRecord(existing.MatchID, obs, now)

		if !existing.TouchedTarget {
			detection := obs.Line
			next.DetectionLine = &detection
			if obs.Line == target {
				next.TouchedTarget = true
				eff.TouchedNow = true
			}
		}
		// Once touched, DetectionLine stays frozen; only CurrentLine moves.
	}

	// Covers both the first touch and a retry after a rejected hand-off.
	if next.TouchedTarget && !next.DetectionNotified {
		eff.NotifyDetection = true
	}

	return next, eff
}

func historyRecord(matchID string, obs *resolver.Observation, now int64) *domain.LineHistoryRecord {
	return &domain.LineHistoryRecord{
		MatchID:    matchID,
		Line:       obs.Line,
		OverOdds:   obs.OverOdds,
		ObservedAt: now,
	}
}
