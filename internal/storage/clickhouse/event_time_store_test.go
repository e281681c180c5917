package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/storage"
)

func TestEventTimeStore_InsertBulkAndGetByRun(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventTimeStore(conn)

	recs := []domain.EventTimeRecord{
		{TrackIndex: 0, Value: 12.5, Err: 42.0, Flags: domain.EvTimeFlagTOF},
		{TrackIndex: 1, Value: -8.0, Err: 55.0, Flags: domain.EvTimeFlagTOF | domain.EvTimeFlagT0AC},
		{TrackIndex: 2, Value: 0.0, Err: domain.EvTimeErrNoCollision, Flags: 0},
	}
	require.NoError(t, store.InsertBulk(ctx, 544122, recs))

	got, err := store.GetByRun(ctx, 544122)
	require.NoError(t, err)
	require.Len(t, got, len(recs))
	for i, r := range recs {
		assert.Equal(t, r.TrackIndex, got[i].TrackIndex)
		assert.InDelta(t, r.Value, got[i].Value, 1e-9)
		assert.InDelta(t, r.Err, got[i].Err, 1e-9)
		assert.Equal(t, r.Flags, got[i].Flags)
	}
}

func TestEventTimeStore_RunAlreadyStored(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventTimeStore(conn)

	recs := []domain.EventTimeRecord{{TrackIndex: 0, Value: 1.0, Err: 40.0}}
	require.NoError(t, store.InsertBulk(ctx, 544122, recs))

	assert.ErrorIs(t, store.InsertBulk(ctx, 544122, recs), storage.ErrDuplicateKey)
	assert.NoError(t, store.InsertBulk(ctx, 544123, recs))
}

func TestEventTimeStore_IntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventTimeStore(conn)
	err := store.InsertBulk(context.Background(), 544122, []domain.EventTimeRecord{
		{TrackIndex: 7, Value: 1.0, Err: 40.0},
		{TrackIndex: 7, Value: 2.0, Err: 41.0},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestEventTimeStore_GetByRunNotFound(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewEventTimeStore(conn)
	_, err := store.GetByRun(context.Background(), 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
