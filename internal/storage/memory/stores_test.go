package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/storage"
)

func TestEventTimeStoreRoundtrip(t *testing.T) {
	store := NewEventTimeStore()
	ctx := context.Background()

	recs := []domain.EventTimeRecord{
		{TrackIndex: 2, Value: 20, Err: 40},
		{TrackIndex: 0, Value: 10, Err: 30, Flags: domain.EvTimeFlagT0AC},
	}
	require.NoError(t, store.InsertBulk(ctx, 544122, recs))

	got, err := store.GetByRun(ctx, 544122)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].TrackIndex, "rows come back ordered by track index")
	assert.Equal(t, 2, got[1].TrackIndex)
	assert.Equal(t, domain.EvTimeFlagT0AC, got[0].Flags)
}

func TestEventTimeStoreDuplicateRejectsBatch(t *testing.T) {
	store := NewEventTimeStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, 544122, []domain.EventTimeRecord{{TrackIndex: 0}}))

	err := store.InsertBulk(ctx, 544122, []domain.EventTimeRecord{
		{TrackIndex: 1},
		{TrackIndex: 0}, // duplicate
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.GetByRun(ctx, 544122)
	require.NoError(t, err)
	assert.Len(t, got, 1, "a rejected batch leaves nothing behind")

	// The same index under another run is a distinct key.
	require.NoError(t, store.InsertBulk(ctx, 544123, []domain.EventTimeRecord{{TrackIndex: 0}}))
}

func TestEventTimeStoreNotFound(t *testing.T) {
	store := NewEventTimeStore()
	_, err := store.GetByRun(context.Background(), 1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestNsigmaStoreSpeciesKeying(t *testing.T) {
	store := NewNsigmaStore()
	ctx := context.Background()

	rows := []domain.NsigmaFullRecord{
		{TrackIndex: 0, Species: domain.SpeciesPion, Nsigma: 0.2},
		{TrackIndex: 0, Species: domain.SpeciesKaon, Nsigma: -4.0},
		{TrackIndex: 1, Species: domain.SpeciesPion, Nsigma: 1.1},
	}
	require.NoError(t, store.InsertBulk(ctx, 544122, rows))

	pions, err := store.GetByRunSpecies(ctx, 544122, domain.SpeciesPion)
	require.NoError(t, err)
	require.Len(t, pions, 2)
	assert.Equal(t, 0, pions[0].TrackIndex)
	assert.Equal(t, 1, pions[1].TrackIndex)

	kaons, err := store.GetByRunSpecies(ctx, 544122, domain.SpeciesKaon)
	require.NoError(t, err)
	assert.Len(t, kaons, 1)

	protons, err := store.GetByRunSpecies(ctx, 544122, domain.SpeciesProton)
	require.NoError(t, err)
	assert.Empty(t, protons, "run exists but carries no rows for the species")

	err = store.InsertBulk(ctx, 544122, []domain.NsigmaFullRecord{
		{TrackIndex: 0, Species: domain.SpeciesPion},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBetaMassStore(t *testing.T) {
	store := NewBetaMassStore()
	ctx := context.Background()

	require.NoError(t, store.InsertBetaBulk(ctx, 544122, []domain.BetaRecord{
		{TrackIndex: 1, Beta: 0.97},
		{TrackIndex: 0, Beta: 0.99},
	}))
	require.NoError(t, store.InsertMassBulk(ctx, 544122, []domain.MassRecord{
		{TrackIndex: 0, Mass: 0.139},
	}))

	betas, err := store.GetBetaByRun(ctx, 544122)
	require.NoError(t, err)
	require.Len(t, betas, 2)
	assert.Equal(t, 0, betas[0].TrackIndex)

	masses, err := store.GetMassByRun(ctx, 544122)
	require.NoError(t, err)
	assert.Len(t, masses, 1)

	// Beta and mass tables are keyed independently.
	err = store.InsertMassBulk(ctx, 544122, []domain.MassRecord{{TrackIndex: 1}})
	require.NoError(t, err)
	err = store.InsertBetaBulk(ctx, 544122, []domain.BetaRecord{{TrackIndex: 1}})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	_, err = store.GetMassByRun(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
