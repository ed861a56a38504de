package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linewatch/internal/domain"
	"linewatch/internal/storage"
)

func TestHistoryStore_InsertIsIdempotentPerTuple(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHistoryStore(pool)

	r := &domain.LineHistoryRecord{MatchID: "m1", Line: 2.5, OverOdds: "1.90", ObservedAt: 1000}
	require.NoError(t, store.Insert(ctx, r))

	// Same tuple again, even with a different timestamp
	dup := &domain.LineHistoryRecord{MatchID: "m1", Line: 2.5, OverOdds: "1.90", ObservedAt: 2000}
	assert.ErrorIs(t, store.Insert(ctx, dup), storage.ErrDuplicateKey)

	// Different odds for the same line is a distinct observation
	moved := &domain.LineHistoryRecord{MatchID: "m1", Line: 2.5, OverOdds: "1.95", ObservedAt: 3000}
	require.NoError(t, store.Insert(ctx, moved))

	records, err := store.GetByMatchID(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1.90", records[0].OverOdds) // observed_at ASC
	assert.Equal(t, "1.95", records[1].OverOdds)
}

func TestHistoryStore_DeleteByMatchID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewHistoryStore(pool)

	for i, line := range []float64{3.0, 2.75, 2.5} {
		require.NoError(t, store.Insert(ctx, &domain.LineHistoryRecord{
			MatchID: "m1", Line: line, OverOdds: "1.90", ObservedAt: int64(1000 + i),
		}))
	}
	require.NoError(t, store.Insert(ctx, &domain.LineHistoryRecord{
		MatchID: "m2", Line: 2.5, OverOdds: "1.80", ObservedAt: 5000,
	}))

	deleted, err := store.DeleteByMatchID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	records, err := store.GetByMatchID(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Other matches untouched
	records, err = store.GetByMatchID(ctx, "m2")
	require.NoError(t, err)
	assert.Len(t, records, 1)

	// Deleting nothing is not an error
	deleted, err = store.DeleteByMatchID(ctx, "m1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
