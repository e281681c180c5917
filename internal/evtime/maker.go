package evtime

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/response"
)

// Diamond geometry constants. The diamond is the luminous-region time
// window used as the fallback when no reliable estimate exists; its
// error is the ceiling any accepted estimate must beat.
const (
	Diamond       = 6.0 // cm
	ErrDiamond    = Diamond * domain.InvCLightPsCm
	WeightDiamond = 1.0 / (ErrDiamond * ErrDiamond)
)

// Calibration-sample defaults.
const (
	DefaultMinMomentum    = 0.5 // GeV/c
	DefaultMaxMomentum    = 2.0 // GeV/c
	DefaultMaxTracksInSet = 10

	maxIterations        = 10
	convergenceTol       = 0.1 // ps
	minSampleMemberCount = 2
)

// sampleHypotheses are the mass hypotheses the maker lets each sample
// track choose from when picking its representative expected time.
var sampleHypotheses = []domain.Species{
	domain.SpeciesPion,
	domain.SpeciesKaon,
	domain.SpeciesProton,
}

// SampleFilter reports whether a track qualifies for the event-time
// calibration sample: a TOF hit backed by both inner trackers, a
// standard track type and a momentum inside the selection window.
func SampleFilter(trk *domain.Track, minMomentum, maxMomentum float64) bool {
	return trk.HasTOF && trk.HasTPC && trk.HasITS &&
		trk.P > minMomentum && trk.P < maxMomentum &&
		(trk.Type == domain.TrackTypeStandard || trk.Type == domain.TrackTypeInnermostUpdate)
}

// contribution records one sample track's term in the weighted sums, so
// its own bias can be subtracted later.
type contribution struct {
	w float64 // inverse-variance weight
	x float64 // event-time estimate from this track alone
}

// Estimate is a combined event-time estimate over one collision's
// calibration sample, with the per-track terms kept for bias removal.
type Estimate struct {
	Time         float64
	Err          float64
	Multiplicity int

	sumW    float64
	sumWX   float64
	contrib map[int]contribution
}

// Maker builds combined event-time estimates from collision track
// groups.
type Maker struct {
	model          response.Model
	minMomentum    float64
	maxMomentum    float64
	maxTracksInSet int
}

// NewMaker creates a Maker. Zero limits take the defaults.
func NewMaker(model response.Model, minMomentum, maxMomentum float64, maxTracksInSet int) *Maker {
	if minMomentum <= 0 {
		minMomentum = DefaultMinMomentum
	}
	if maxMomentum <= 0 {
		maxMomentum = DefaultMaxMomentum
	}
	if maxTracksInSet <= 0 {
		maxTracksInSet = DefaultMaxTracksInSet
	}
	return &Maker{
		model:          model,
		minMomentum:    minMomentum,
		maxMomentum:    maxMomentum,
		maxTracksInSet: maxTracksInSet,
	}
}

// Filter reports whether the track passes the calibration-sample
// selection under the maker's momentum window.
func (m *Maker) Filter(trk *domain.Track) bool {
	return SampleFilter(trk, m.minMomentum, m.maxMomentum)
}

// Estimate combines the calibration sample of one collision group into
// a seed event time. The estimate iterates: each sample track picks the
// hypothesis whose expected time sits closest to the signal under the
// current estimate, the weighted mean is recomputed, and the loop stops
// on convergence or the iteration cap. An empty sample yields the
// diamond fallback.
func (m *Maker) Estimate(tracks []domain.Track) *Estimate {
	sample := make([]*domain.Track, 0, m.maxTracksInSet)
	for i := range tracks {
		if !SampleFilter(&tracks[i], m.minMomentum, m.maxMomentum) {
			continue
		}
		sample = append(sample, &tracks[i])
		if len(sample) == m.maxTracksInSet {
			break
		}
	}
	if len(sample) == 0 {
		return &Estimate{Time: 0, Err: ErrDiamond, Multiplicity: 0}
	}

	xs := make([]float64, len(sample))
	ws := make([]float64, len(sample))

	current := 0.0
	for iter := 0; iter < maxIterations; iter++ {
		for i, trk := range sample {
			sp := m.closestHypothesis(trk, current)
			xs[i] = m.model.CorrectedSignal(trk) - m.model.ExpectedTime(trk, sp)
			sigma := m.model.ExpectedSigma(trk, sp, 0)
			ws[i] = 1 / (sigma * sigma)
		}
		next := stat.Mean(xs, ws)
		if math.Abs(next-current) < convergenceTol {
			current = next
			break
		}
		current = next
	}

	est := &Estimate{
		Multiplicity: len(sample),
		contrib:      make(map[int]contribution, len(sample)),
	}
	for i, trk := range sample {
		est.sumW += ws[i]
		est.sumWX += ws[i] * xs[i]
		est.contrib[trk.Index] = contribution{w: ws[i], x: xs[i]}
	}
	est.Time = est.sumWX / est.sumW
	est.Err = math.Sqrt(1 / est.sumW)
	return est
}

// closestHypothesis picks the sample hypothesis whose expected time best
// matches the observed signal under the current event-time estimate.
func (m *Maker) closestHypothesis(trk *domain.Track, evTime float64) domain.Species {
	observed := m.model.CorrectedSignal(trk) - evTime
	best := sampleHypotheses[0]
	bestDist := math.Inf(1)
	for _, sp := range sampleHypotheses {
		dist := math.Abs(observed - m.model.ExpectedTime(trk, sp))
		if dist < bestDist {
			bestDist = dist
			best = sp
		}
	}
	return best
}

// RemoveBias returns the estimate with the given track's own
// contribution subtracted, so a track is never measured against an event
// time it injected itself. Removing item i from an inverse-variance
// weighted mean is (sum(w*x) - w_i*x_i) / (sum(w) - w_i). Tracks outside
// the calibration sample get the unmodified estimate; a sample too small
// to survive removal falls back to the diamond.
func (e *Estimate) RemoveBias(trk *domain.Track) (t, err float64) {
	c, member := e.contrib[trk.Index]
	if !member {
		return e.Time, e.Err
	}
	if e.Multiplicity < minSampleMemberCount {
		return 0, ErrDiamond
	}
	sw := e.sumW - c.w
	if sw <= 0 {
		return 0, ErrDiamond
	}
	return (e.sumWX - c.w*c.x) / sw, math.Sqrt(1 / sw)
}

// IsMember reports whether the track contributed to the estimate.
func (e *Estimate) IsMember(trk *domain.Track) bool {
	_, ok := e.contrib[trk.Index]
	return ok
}
