// Package response computes the calibrated expected-time model: expected
// arrival time and resolution per mass hypothesis, the Nsigma PID
// discriminant, and the species-independent beta and TOF mass.
package response

import "tof-pid-lab/internal/domain"

// Model is the per-hypothesis expected-time model. One concrete
// implementation is selected at startup from the run metadata and used
// uniformly for the whole dataset.
type Model interface {
	// ExpectedTime returns the expected arrival time in ps for the
	// hypothesis, from the track length and shift-corrected momentum.
	ExpectedTime(trk *domain.Track, sp domain.Species) float64

	// ExpectedSigma returns the expected time resolution in ps, with the
	// event-time uncertainty folded in quadrature.
	ExpectedSigma(trk *domain.Track, sp domain.Species, evTimeErr float64) float64

	// CorrectedSignal returns the raw signal with the directional
	// time-shift correction applied, in ps.
	CorrectedSignal(trk *domain.Track) float64
}

// Nsigma computes the PID separation of the observed signal from the
// hypothesis prediction, measured against the resolved event time.
func Nsigma(m Model, trk *domain.Track, sp domain.Species, evTime, evTimeErr float64) float64 {
	sigma := m.ExpectedSigma(trk, sp, evTimeErr)
	if sigma <= 0 {
		return domain.NsigmaSentinel
	}
	return (m.CorrectedSignal(trk) - evTime - m.ExpectedTime(trk, sp)) / sigma
}
