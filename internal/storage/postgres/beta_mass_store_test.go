package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/storage"
)

func TestBetaMassStore_Beta(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetaMassStore(pool)

	recs := []domain.BetaRecord{
		{TrackIndex: 0, Beta: 0.98, BetaErr: 0.004},
		{TrackIndex: 1, Beta: domain.BetaSentinel, BetaErr: domain.BetaSentinel},
	}
	require.NoError(t, store.InsertBetaBulk(ctx, 544122, recs))

	got, err := store.GetBetaByRun(ctx, 544122)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.98, got[0].Beta, 1e-9)
	assert.InDelta(t, domain.BetaSentinel, got[1].Beta, 1e-9)

	assert.ErrorIs(t, store.InsertBetaBulk(ctx, 544122, recs[:1]), storage.ErrDuplicateKey)
}

func TestBetaMassStore_Mass(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetaMassStore(pool)

	recs := []domain.MassRecord{
		{TrackIndex: 0, Mass: 0.139},
		{TrackIndex: 1, Mass: 0.938},
	}
	require.NoError(t, store.InsertMassBulk(ctx, 544122, recs))

	got, err := store.GetMassByRun(ctx, 544122)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, 0.139, got[0].Mass, 1e-9)
	assert.InDelta(t, 0.938, got[1].Mass, 1e-9)

	assert.ErrorIs(t, store.InsertMassBulk(ctx, 544122, recs), storage.ErrDuplicateKey)
}

func TestBetaMassStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBetaMassStore(pool)

	_, err := store.GetBetaByRun(ctx, 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.GetMassByRun(ctx, 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
