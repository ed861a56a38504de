package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

func testMatch(id string, status domain.Status, detectedAt int64) *domain.TrackedMatch {
	return &domain.TrackedMatch{
		MatchID:    id,
		LeagueID:   "39",
		HomeTeam:   "Home " + id,
		AwayTeam:   "Away " + id,
		DetectedAt: detectedAt,
		Status:     status,
		CreatedAt:  detectedAt,
	}
}

func TestMatchStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	m := testMatch("m1", domain.StatusLive, 1000)
	m.ExternalRef = "ref-m1"
	m.DetectionLine = ptr(2.5)
	m.CurrentLine = ptr(2.5)
	m.CurrentScore = "1-0"
	m.TouchedTarget = true

	require.NoError(t, store.Insert(ctx, m))

	got, err := store.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "ref-m1", got.ExternalRef)
	assert.Equal(t, 2.5, *got.DetectionLine)
	assert.Equal(t, "1-0", got.CurrentScore)
	assert.True(t, got.TouchedTarget)
	assert.Nil(t, got.FinalHome)
	assert.Nil(t, got.FinishedAt)

	// Duplicate insert
	err = store.Insert(ctx, testMatch("m1", domain.StatusLive, 2000))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Missing row
	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMatchStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	m := testMatch("m1", domain.StatusLive, 1000)
	require.NoError(t, store.Insert(ctx, m))

	m.Status = domain.StatusFinished
	m.FinalHome = ptr(2)
	m.FinalAway = ptr(1)
	m.FinishedAt = ptr(int64(5000))
	m.CompletionNotified = true
	require.NoError(t, store.Update(ctx, m))

	got, err := store.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFinished, got.Status)
	assert.Equal(t, 2, *got.FinalHome)
	assert.Equal(t, 1, *got.FinalAway)
	assert.Equal(t, int64(5000), *got.FinishedAt)
	assert.True(t, got.CompletionNotified)

	err = store.Update(ctx, testMatch("missing", domain.StatusLive, 1000))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMatchStore_GetByStatusAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	require.NoError(t, store.Insert(ctx, testMatch("m1", domain.StatusLive, 1000)))
	require.NoError(t, store.Insert(ctx, testMatch("m2", domain.StatusFinished, 2000)))
	m3 := testMatch("m3", domain.StatusLive, 3000)
	m3.LeagueID = "140"
	require.NoError(t, store.Insert(ctx, m3))

	live, err := store.GetByStatus(ctx, domain.StatusLive)
	require.NoError(t, err)
	require.Len(t, live, 2)
	assert.Equal(t, "m1", live[0].MatchID) // detected_at ASC
	assert.Equal(t, "m3", live[1].MatchID)

	// List is newest first with filters and pagination
	all, err := store.List(ctx, storage.MatchFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "m3", all[0].MatchID)

	league, err := store.List(ctx, storage.MatchFilter{LeagueID: "140"})
	require.NoError(t, err)
	require.Len(t, league, 1)
	assert.Equal(t, "m3", league[0].MatchID)

	page, err := store.List(ctx, storage.MatchFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "m2", page[0].MatchID)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestMatchStore_OldestFinishedAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	require.NoError(t, store.Insert(ctx, testMatch("m1", domain.StatusFinished, 1000)))
	require.NoError(t, store.Insert(ctx, testMatch("m2", domain.StatusLive, 500)))
	require.NoError(t, store.Insert(ctx, testMatch("m3", domain.StatusFinished, 3000)))

	oldest, err := store.OldestFinished(ctx, 1)
	require.NoError(t, err)
	require.Len(t, oldest, 1)
	assert.Equal(t, "m1", oldest[0].MatchID) // live m2 not eligible despite older detected_at

	require.NoError(t, store.Delete(ctx, "m1"))
	_, err = store.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, store.Delete(ctx, "m1"), storage.ErrNotFound)
}

func TestMatchStore_BackfillQueries(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	noLine := testMatch("m1", domain.StatusLive, 1000)
	require.NoError(t, store.Insert(ctx, noLine))

	withLine := testMatch("m2", domain.StatusLive, 2000)
	withLine.DetectionLine = ptr(2.5)
	require.NoError(t, store.Insert(ctx, withLine))

	noOutcome := testMatch("m3", domain.StatusFinished, 3000)
	require.NoError(t, store.Insert(ctx, noOutcome))

	withOutcome := testMatch("m4", domain.StatusFinished, 4000)
	withOutcome.FinalHome = ptr(1)
	withOutcome.FinalAway = ptr(1)
	require.NoError(t, store.Insert(ctx, withOutcome))

	missingDetection, err := store.MissingDetection(ctx)
	require.NoError(t, err)
	require.Len(t, missingDetection, 1)
	assert.Equal(t, "m1", missingDetection[0].MatchID)

	missingOutcome, err := store.MissingOutcome(ctx)
	require.NoError(t, err)
	require.Len(t, missingOutcome, 1)
	assert.Equal(t, "m3", missingOutcome[0].MatchID)
}

func TestMatchStore_LeagueBreakdown(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewMatchStore(pool)

	touched := testMatch("m1", domain.StatusLive, 1000)
	touched.TouchedTarget = true
	require.NoError(t, store.Insert(ctx, touched))
	require.NoError(t, store.Insert(ctx, testMatch("m2", domain.StatusLive, 2000)))

	other := testMatch("m3", domain.StatusFinished, 3000)
	other.LeagueID = "140"
	require.NoError(t, store.Insert(ctx, other))

	breakdown, err := store.LeagueBreakdown(ctx)
	require.NoError(t, err)
	require.Len(t, breakdown, 2)
	assert.Equal(t, "140", breakdown[0].LeagueID)
	assert.Equal(t, int64(1), breakdown[0].Tracked)
	assert.Equal(t, int64(0), breakdown[0].Touched)
	assert.Equal(t, "39", breakdown[1].LeagueID)
	assert.Equal(t, int64(2), breakdown[1].Tracked)
	assert.Equal(t, int64(1), breakdown[1].Touched)
}
