package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"linewatch/internal/domain"
	"linewatch/internal/feed"
	"linewatch/internal/feed/stub"
	"linewatch/internal/resolver"
	"linewatch/internal/storage/memory"
)

type backfillFixture struct {
	feed       *stub.Feed
	matches    *memory.MatchStore
	history    *memory.HistoryStore
	backfiller *Backfiller
}

func newBackfillFixture(t *testing.T) *backfillFixture {
	t.Helper()

	f := stub.New()
	matches := memory.NewMatchStore()
	history := memory.NewHistoryStore()

	res := resolver.New(resolver.Options{
		Feed:     f,
		CacheTTL: time.Nanosecond,
		Logger:   quietLogger(),
	})

	backfiller := NewBackfiller(BackfillerOptions{
		Feed:       f,
		Resolver:   res,
		MatchStore: matches,
		History:    history,
		Targets:    domain.NewTargetTable(2.5, nil),
		Logger:     quietLogger(),
	})

	return &backfillFixture{feed: f, matches: matches, history: history, backfiller: backfiller}
}

func TestBackfillFillsMissingDetection(t *testing.T) {
	ctx := context.Background()
	fx := newBackfillFixture(t)

	m := storedMatch("m1", domain.StatusLive, 1000)
	m.ExternalRef = "ref-m1"
	if err := fx.matches.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fx.feed.SetLiveTotals("m1", &feed.LineQuote{Line: "2.5", Over: "1.85", Under: "1.95"})

	result, err := fx.backfiller.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.DetectionCandidates != 1 || result.DetectionFilled != 1 {
		t.Fatalf("Expected 1/1 detections, got %+v", result)
	}

	got, _ := fx.matches.GetByID(ctx, "m1")
	if got.DetectionLine == nil || *got.DetectionLine != 2.5 {
		t.Errorf("Expected detection line 2.5, got %v", got.DetectionLine)
	}
	if !got.TouchedTarget {
		t.Error("Expected backfilled line at target to count as a touch")
	}

	records, _ := fx.history.GetByMatchID(ctx, "m1")
	if len(records) != 1 {
		t.Errorf("Expected 1 history record, got %d", len(records))
	}
}

func TestBackfillSkipsUnresolvable(t *testing.T) {
	ctx := context.Background()
	fx := newBackfillFixture(t)

	if err := fx.matches.Insert(ctx, storedMatch("m1", domain.StatusLive, 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fx.feed.FailTotals(errors.New("feed down"))

	result, err := fx.backfiller.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.DetectionCandidates != 1 || result.DetectionFilled != 0 {
		t.Fatalf("Expected 1/0 detections, got %+v", result)
	}

	got, _ := fx.matches.GetByID(ctx, "m1")
	if got.DetectionLine != nil {
		t.Errorf("Expected detection still missing, got %v", *got.DetectionLine)
	}
}

func TestBackfillFillsMissingOutcome(t *testing.T) {
	ctx := context.Background()
	fx := newBackfillFixture(t)

	m := storedMatch("m1", domain.StatusFinished, 1000)
	m.ExternalRef = "ref-m1"
	if err := fx.matches.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fx.feed.SetResult("ref-m1", "1-3")

	result, err := fx.backfiller.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OutcomeCandidates != 1 || result.OutcomeFilled != 1 {
		t.Fatalf("Expected 1/1 outcomes, got %+v", result)
	}

	got, _ := fx.matches.GetByID(ctx, "m1")
	if got.FinalHome == nil || *got.FinalHome != 1 || *got.FinalAway != 3 {
		t.Errorf("Expected final 1-3, got %v-%v", got.FinalHome, got.FinalAway)
	}
	if got.CurrentScore != "1-3" {
		t.Errorf("Expected progress synced to final, got %q", got.CurrentScore)
	}
}

func TestBackfillOutcomeWithoutRef(t *testing.T) {
	ctx := context.Background()
	fx := newBackfillFixture(t)

	// No external ref means no lookup is possible; the match stays as is.
	if err := fx.matches.Insert(ctx, storedMatch("m1", domain.StatusFinished, 1000)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	result, err := fx.backfiller.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.OutcomeCandidates != 1 || result.OutcomeFilled != 0 || result.Errors != 0 {
		t.Fatalf("Expected 1/0 outcomes without errors, got %+v", result)
	}
}

func TestBackfillCountsLookupErrors(t *testing.T) {
	ctx := context.Background()
	fx := newBackfillFixture(t)

	m := storedMatch("m1", domain.StatusFinished, 1000)
	m.ExternalRef = "ref-m1"
	if err := fx.matches.Insert(ctx, m); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	fx.feed.FailResult(errors.New("upstream down"))

	result, err := fx.backfiller.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Errors != 1 || result.OutcomeFilled != 0 {
		t.Fatalf("Expected 1 error and no fill, got %+v", result)
	}
}
