package ingestion

import (
	"fmt"
	"sort"

	"tof-pid-lab/internal/domain"
)

// SortTracks enforces deterministic ordering by track index. The
// pipeline's outputs are positional (row i belongs to input track i), so
// every batch must be ordered the same way regardless of feed arrival
// order.
func SortTracks(tracks []domain.Track) {
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].Index < tracks[j].Index
	})
}

// ValidateBatch checks batch integrity before processing: a positive run
// number, unique track indices, and collision references that resolve.
// Tracks carrying the no-collision sentinel are legitimate input.
func ValidateBatch(b *domain.Batch) error {
	if b == nil {
		return fmt.Errorf("nil batch")
	}
	if b.RunNumber <= 0 {
		return fmt.Errorf("invalid run number %d", b.RunNumber)
	}

	seen := make(map[int]struct{}, len(b.Tracks))
	for _, trk := range b.Tracks {
		if _, dup := seen[trk.Index]; dup {
			return fmt.Errorf("duplicate track index %d", trk.Index)
		}
		seen[trk.Index] = struct{}{}

		if trk.CollisionID == domain.NoCollision {
			continue
		}
		if _, ok := b.Collisions[trk.CollisionID]; !ok {
			return fmt.Errorf("track %d references unknown collision %d", trk.Index, trk.CollisionID)
		}
	}
	return nil
}
