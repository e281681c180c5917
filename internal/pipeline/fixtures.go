// Package pipeline provides deterministic synthetic batches for demos
// and end-to-end tests.
package pipeline

import (
	"math"

	"tof-pid-lab/internal/domain"
)

// Fixture geometry: a typical barrel track length and an arbitrary but
// fixed collision time in ps.
const (
	fixtureLength = 370.0
	fixtureTZero  = 15.0
)

// SampleBatch returns a deterministic batch that exercises every
// pipeline path: a selected collision with a forward-detector time and
// a clean calibration sample, a collision without one, a track without
// a timing signal, and an unassociated track.
func SampleBatch(run int32) *domain.Batch {
	b := &domain.Batch{
		RunNumber: run,
		Timestamp: 1700000000000,
		Collisions: map[int64]*domain.Collision{
			1: {
				ID:        1,
				Selected:  true,
				HasFT0:    true,
				T0ACValid: true,
				T0AC:      fixtureTZero / 1000, // ps -> ns
				T0ACRes:   0.02,
				Time:      fixtureTZero / 1000,
				TimeRes:   0.05,
			},
			2: {
				ID:       2,
				Selected: true,
				Time:     fixtureTZero / 1000,
				TimeRes:  0.05,
			},
		},
	}

	// Collision 1: five sample-quality pions plus one track without a
	// timing signal.
	momenta := []float64{0.6, 0.9, 1.1, 1.4, 1.8}
	index := 0
	for _, p := range momenta {
		b.Tracks = append(b.Tracks, pionTrack(index, 1, p))
		index++
	}
	noTOF := pionTrack(index, 1, 1.0)
	noTOF.HasTOF = false
	noTOF.TOFSignal = 0
	b.Tracks = append(b.Tracks, noTOF)
	index++

	// Collision 2: three pions, no forward detector.
	for _, p := range []float64{0.7, 1.2, 1.6} {
		b.Tracks = append(b.Tracks, pionTrack(index, 2, p))
		index++
	}

	// One track without a collision association.
	orphan := pionTrack(index, domain.NoCollision, 1.0)
	b.Tracks = append(b.Tracks, orphan)

	return b
}

// pionTrack builds a track whose timing signal matches the pion
// hypothesis exactly, offset by the fixture collision time.
func pionTrack(index int, collisionID int64, p float64) domain.Track {
	return domain.Track{
		Index:       index,
		CollisionID: collisionID,
		P:           p,
		Eta:         0.3,
		Sign:        1,
		Length:      fixtureLength,
		TOFExpMom:   p,
		TOFSignal:   PionExpectedTime(fixtureLength, p) + fixtureTZero,
		HasTOF:      true,
		HasTPC:      true,
		HasITS:      true,
		Type:        domain.TrackTypeStandard,
	}
}

// PionExpectedTime is the ideal arrival time in ps of a pion of momentum
// p over the given length, with no calibration shifts applied.
func PionExpectedTime(length, p float64) float64 {
	m := domain.SpeciesPion.Mass()
	return length * domain.InvCLightPsCm * math.Sqrt(1+m*m/(p*p))
}
