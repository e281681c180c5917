package response

import (
	"math"

	"tof-pid-lab/internal/calib"
	"tof-pid-lab/internal/domain"
)

// defaultSigma is the detector resolution in ps assumed when no
// calibration coefficients are available.
const defaultSigma = 80.0

// ParamModel implements Model from a calibration bundle. The bundle
// pointer is swapped on run changes; evaluation never mutates it.
type ParamModel struct {
	params *calib.Parameters
	run2   bool
}

// NewModel builds the expected-time model for the data-taking period.
// isRun3 selects the resolution coefficient slot.
func NewModel(params *calib.Parameters, isRun3 bool) *ParamModel {
	return &ParamModel{params: params, run2: !isRun3}
}

// Compile-time interface check.
var _ Model = (*ParamModel)(nil)

// SetParameters swaps in a freshly resolved calibration bundle.
func (m *ParamModel) SetParameters(params *calib.Parameters) {
	m.params = params
}

// EffectiveMomentum applies the momentum/charge shift: the expected-time
// momentum is scaled down (or up) by the charge-and-eta-dependent offset
// before the time integral is evaluated.
func (m *ParamModel) EffectiveMomentum(trk *domain.Track) float64 {
	p := trk.TOFExpMom
	if p <= 0 {
		p = trk.P
	}
	denom := 1 + float64(trk.Sign)*m.params.MomentumShift(trk.Eta)
	if denom <= 0 {
		return p
	}
	return p / denom
}

// ExpectedTime returns L/c * E/p for the hypothesis mass, in ps.
func (m *ParamModel) ExpectedTime(trk *domain.Track, sp domain.Species) float64 {
	p := m.EffectiveMomentum(trk) * sp.Charge()
	if p <= 0 || trk.Length <= 0 {
		return 0
	}
	mass := sp.Mass()
	return trk.Length * domain.InvCLightPsCm * math.Sqrt(1+(mass*mass)/(p*p))
}

// ExpectedSigma combines the momentum-dependent detector resolution with
// the event-time uncertainty in quadrature.
func (m *ParamModel) ExpectedSigma(trk *domain.Track, sp domain.Species, evTimeErr float64) float64 {
	det := m.DetectorResolution(trk, sp)
	return math.Sqrt(det*det + evTimeErr*evTimeErr)
}

// DetectorResolution evaluates the resolution parametrization at the
// track momentum: sigma(p) = c0 + c1*exp(c2*p), in ps. Coefficients
// beyond the third are ignored; absent coefficients fall back to a flat
// default resolution.
func (m *ParamModel) DetectorResolution(trk *domain.Track, sp domain.Species) float64 {
	coeffs := m.params.Resolution
	if m.run2 {
		coeffs = m.params.ResolutionRun2
	}
	if len(coeffs) == 0 {
		return defaultSigma
	}
	p := m.EffectiveMomentum(trk) * sp.Charge()
	if p <= 0 {
		p = trk.P
	}
	c := [3]float64{}
	copy(c[:], coeffs)
	return c[0] + c[1]*math.Exp(c[2]*p)
}

// CorrectedSignal offsets the raw signal by the directional time-shift
// lookup at the track pseudorapidity.
func (m *ParamModel) CorrectedSignal(trk *domain.Track) float64 {
	return trk.TOFSignal - m.params.TimeShift(trk.Eta, trk.Sign > 0)
}
