package evtime

import (
	"math"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/response"
)

// Config tunes the per-batch estimation.
type Config struct {
	// Calibration-sample momentum window, GeV/c. Zero takes defaults.
	MinMomentum float64
	MaxMomentum float64
	// MaxTracksInSet bounds the calibration sample size per collision.
	MaxTracksInSet int
	// MaxEvTime rejects estimates with a larger magnitude, in ps.
	// Zero or negative disables the cutoff.
	MaxEvTime float64
	// SelectedOnly computes estimates only for collisions passing the
	// event selection.
	SelectedOnly bool
}

// Estimator produces one event-time record per track. The seed
// estimate of a collision is computed once from all of the collision's
// tracks in the batch and reused for the rest of the group, so track
// ordering never changes the emitted values.
type Estimator struct {
	cfg   Config
	mode  Mode
	maker *Maker
}

// New creates an Estimator with the mode resolved for the dataset.
func New(model response.Model, mode Mode, cfg Config) *Estimator {
	return &Estimator{
		cfg:   cfg,
		mode:  mode,
		maker: NewMaker(model, cfg.MinMomentum, cfg.MaxMomentum, cfg.MaxTracksInSet),
	}
}

// Mode returns the resolved estimator selection.
func (e *Estimator) Mode() Mode { return e.mode }

// Process computes event-time records for a full batch, one per track
// in input order, plus the detector-internal diagnostic channel.
func (e *Estimator) Process(tracks []domain.Track, collisions map[int64]*domain.Collision) ([]domain.EventTimeRecord, []domain.TOFOnlyRecord) {
	records := make([]domain.EventTimeRecord, 0, len(tracks))
	tofOnly := make([]domain.TOFOnlyRecord, 0, len(tracks))

	var groups map[int64][]domain.Track
	var seeds map[int64]*Estimate
	if e.mode.UseTOF {
		groups = collisionGroups(tracks)
		seeds = make(map[int64]*Estimate, len(groups))
	}

	for i := range tracks {
		trk := &tracks[i]

		coll := collisions[trk.CollisionID]
		if trk.CollisionID == domain.NoCollision || coll == nil ||
			(e.cfg.SelectedOnly && !coll.Selected) {
			records = append(records, domain.EventTimeRecord{
				TrackIndex: trk.Index,
				Value:      0,
				Err:        domain.EvTimeErrNoCollision,
				Flags:      0,
			})
			tofOnly = append(tofOnly, domain.TOFOnlyRecord{TrackIndex: trk.Index, Multiplicity: -1})
			continue
		}

		var seed *Estimate
		if e.mode.UseTOF {
			var ok bool
			seed, ok = seeds[trk.CollisionID]
			if !ok {
				seed = e.maker.Estimate(groups[trk.CollisionID])
				seeds[trk.CollisionID] = seed
			}
		}

		records = append(records, e.trackRecord(trk, coll, seed))
		tofOnly = append(tofOnly, e.tofOnlyRecord(trk, seed))
	}
	return records, tofOnly
}

// trackRecord combines the enabled estimators for one track.
func (e *Estimator) trackRecord(trk *domain.Track, coll *domain.Collision, seed *Estimate) domain.EventTimeRecord {
	rec := domain.EventTimeRecord{TrackIndex: trk.Index}

	var sumW, sumWT float64

	if e.mode.UseTOF {
		t, errT := seed.RemoveBias(trk)
		if errT < ErrDiamond && (e.cfg.MaxEvTime <= 0 || math.Abs(t) < e.cfg.MaxEvTime) {
			rec.Flags |= domain.EvTimeFlagTOF
			w := 1 / (errT * errT)
			sumW += w
			sumWT += t * w
		}
	}

	if e.mode.UseFT0 && coll.HasFT0 && coll.T0ACValid {
		t0 := coll.T0AC * 1000    // ns -> ps
		e0 := coll.T0ACRes * 1000 // ns -> ps
		rec.Flags |= domain.EvTimeFlagT0AC
		w := 1 / (e0 * e0)
		sumW += w
		sumWT += t0 * w
	}

	// A total weight below the diamond floor would turn the division
	// into a near-infinite-confidence artifact; fall back instead.
	if sumW < WeightDiamond {
		rec.Flags = 0
		rec.Value = 0
		if e.mode.UseTOF {
			rec.Err = ErrDiamond
		} else {
			rec.Err = domain.EvTimeErrNoCollision
		}
		return rec
	}

	rec.Value = sumWT / sumW
	rec.Err = math.Sqrt(1 / sumW)
	return rec
}

// tofOnlyRecord carries the pure detector-internal estimate for the
// diagnostic channel, before any forward-detector combination.
// SampleMember records the raw selection-filter verdict: a qualifying
// track left out of a size-capped sample still reports true.
func (e *Estimator) tofOnlyRecord(trk *domain.Track, seed *Estimate) domain.TOFOnlyRecord {
	rec := domain.TOFOnlyRecord{TrackIndex: trk.Index, Multiplicity: -1}
	rec.SampleMember = e.maker.Filter(trk)
	if seed == nil {
		return rec
	}
	rec.Value, rec.Err = seed.RemoveBias(trk)
	rec.Multiplicity = seed.Multiplicity
	return rec
}

// ProcessLegacy is the Run 2 path: the event time is the collision time
// itself, converted from ns to ps, with no per-track estimation.
func (e *Estimator) ProcessLegacy(tracks []domain.Track, collisions map[int64]*domain.Collision) []domain.EventTimeRecord {
	records := make([]domain.EventTimeRecord, 0, len(tracks))
	for i := range tracks {
		trk := &tracks[i]
		coll := collisions[trk.CollisionID]
		if trk.CollisionID == domain.NoCollision || coll == nil {
			records = append(records, domain.EventTimeRecord{
				TrackIndex: trk.Index,
				Err:        domain.EvTimeErrNoCollision,
			})
			continue
		}
		records = append(records, domain.EventTimeRecord{
			TrackIndex: trk.Index,
			Value:      coll.Time * 1000,
			Err:        coll.TimeRes * 1000,
			Flags:      domain.EvTimeFlagTOF,
		})
	}
	return records
}

// collisionGroups collects every collision's tracks across the whole
// batch. A collision's calibration sample must see all of its tracks
// even when another collision's tracks are interleaved between them.
func collisionGroups(tracks []domain.Track) map[int64][]domain.Track {
	groups := make(map[int64][]domain.Track)
	for i := range tracks {
		id := tracks[i].CollisionID
		if id == domain.NoCollision {
			continue
		}
		groups[id] = append(groups[id], tracks[i])
	}
	return groups
}
