package stub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/ingestion"
)

func TestSource_ReplaysAndDrains(t *testing.T) {
	src := NewSource(
		&domain.Batch{RunNumber: 1},
		&domain.Batch{RunNumber: 2},
	)
	ctx := context.Background()

	b, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.RunNumber)

	b, err = src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), b.RunNumber)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ingestion.ErrSourceDrained)
}

func TestSource_CloseDrains(t *testing.T) {
	src := NewSource(&domain.Batch{RunNumber: 1})
	require.NoError(t, src.Close())

	_, err := src.Next(context.Background())
	assert.ErrorIs(t, err, ingestion.ErrSourceDrained)
}
