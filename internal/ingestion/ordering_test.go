package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/domain"
)

func TestSortTracks(t *testing.T) {
	tracks := []domain.Track{
		{Index: 3}, {Index: 0}, {Index: 2}, {Index: 1},
	}
	SortTracks(tracks)

	for i, trk := range tracks {
		assert.Equal(t, i, trk.Index)
	}
}

func TestValidateBatch(t *testing.T) {
	valid := &domain.Batch{
		RunNumber: 544122,
		Tracks: []domain.Track{
			{Index: 0, CollisionID: 1},
			{Index: 1, CollisionID: domain.NoCollision},
		},
		Collisions: map[int64]*domain.Collision{
			1: {ID: 1},
		},
	}
	require.NoError(t, ValidateBatch(valid))

	t.Run("nil batch", func(t *testing.T) {
		assert.Error(t, ValidateBatch(nil))
	})

	t.Run("bad run number", func(t *testing.T) {
		b := *valid
		b.RunNumber = 0
		assert.Error(t, ValidateBatch(&b))
	})

	t.Run("duplicate track index", func(t *testing.T) {
		b := *valid
		b.Tracks = []domain.Track{
			{Index: 0, CollisionID: domain.NoCollision},
			{Index: 0, CollisionID: domain.NoCollision},
		}
		assert.Error(t, ValidateBatch(&b))
	})

	t.Run("unknown collision", func(t *testing.T) {
		b := *valid
		b.Tracks = []domain.Track{{Index: 0, CollisionID: 99}}
		assert.Error(t, ValidateBatch(&b))
	})
}
