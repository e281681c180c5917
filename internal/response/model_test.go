package response

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/calib"
	"tof-pid-lab/internal/domain"
)

// expectedTime is the closed form the model must reproduce:
// t = L/c * sqrt(1 + m^2/p^2).
func expectedTime(length, p, mass float64) float64 {
	return length * domain.InvCLightPsCm * math.Sqrt(1+(mass*mass)/(p*p))
}

func testTrack(p float64) *domain.Track {
	return &domain.Track{
		P:         p,
		TOFExpMom: p,
		Eta:       0.3,
		Sign:      1,
		Length:    370,
		HasTOF:    true,
	}
}

func TestExpectedTimePion(t *testing.T) {
	m := NewModel(&calib.Parameters{}, true)

	trk := testTrack(1.0)
	want := expectedTime(370, 1.0, domain.SpeciesPion.Mass())
	assert.InDelta(t, want, m.ExpectedTime(trk, domain.SpeciesPion), 1e-9)
}

func TestExpectedTimeChargeTwo(t *testing.T) {
	// Helium-3 momentum is rigidity times charge: the He hypothesis sees
	// twice the track momentum.
	m := NewModel(&calib.Parameters{}, true)

	trk := testTrack(1.0)
	want := expectedTime(370, 2.0, domain.SpeciesHelium3.Mass())
	assert.InDelta(t, want, m.ExpectedTime(trk, domain.SpeciesHelium3), 1e-9)
}

func TestExpectedTimeDegenerateInputs(t *testing.T) {
	m := NewModel(&calib.Parameters{}, true)

	noLength := testTrack(1.0)
	noLength.Length = 0
	assert.Zero(t, m.ExpectedTime(noLength, domain.SpeciesPion))

	noMomentum := testTrack(0)
	noMomentum.TOFExpMom = 0
	assert.Zero(t, m.ExpectedTime(noMomentum, domain.SpeciesPion))
}

func TestDetectorResolutionParametrization(t *testing.T) {
	// sigma(p) = c0 + c1*exp(c2*p)
	params := &calib.Parameters{
		Resolution:     []float64{20, 25, -0.5},
		ResolutionRun2: []float64{60, 30, -0.4},
	}
	trk := testTrack(1.0)

	run3 := NewModel(params, true)
	want := 20 + 25*math.Exp(-0.5)
	assert.InDelta(t, want, run3.DetectorResolution(trk, domain.SpeciesPion), 1e-9)

	run2 := NewModel(params, false)
	want = 60 + 30*math.Exp(-0.4)
	assert.InDelta(t, want, run2.DetectorResolution(trk, domain.SpeciesPion), 1e-9)

	flat := NewModel(&calib.Parameters{}, true)
	assert.Equal(t, defaultSigma, flat.DetectorResolution(trk, domain.SpeciesPion))
}

func TestExpectedSigmaFoldsEventTimeError(t *testing.T) {
	m := NewModel(&calib.Parameters{}, true)
	trk := testTrack(1.0)

	want := math.Sqrt(defaultSigma*defaultSigma + 60*60)
	assert.InDelta(t, want, m.ExpectedSigma(trk, domain.SpeciesPion, 60), 1e-9)
}

func TestMomentumChargeShift(t *testing.T) {
	// A positive shift lowers the effective momentum of a positive track
	// and raises it for a negative one.
	params := &calib.Parameters{MomentumChargeShift: []float64{0.01}}
	m := NewModel(params, true)

	pos := testTrack(1.0)
	neg := testTrack(1.0)
	neg.Sign = -1
	plain := NewModel(&calib.Parameters{}, true)

	tPos := m.ExpectedTime(pos, domain.SpeciesProton)
	tNeg := m.ExpectedTime(neg, domain.SpeciesProton)
	tPlain := plain.ExpectedTime(pos, domain.SpeciesProton)

	assert.Greater(t, tPos, tPlain, "lower momentum means a later arrival")
	assert.Less(t, tNeg, tPlain)
}

func TestCorrectedSignalTimeShift(t *testing.T) {
	params := &calib.Parameters{}
	params.SetTimeShiftGraph(&calib.Graph{X: []float64{-1, 1}, Y: []float64{12, 12}}, true)
	m := NewModel(params, true)

	trk := testTrack(1.0)
	trk.TOFSignal = 1000
	assert.InDelta(t, 988, m.CorrectedSignal(trk), 1e-9)

	trk.Sign = -1 // no negative curve loaded
	assert.InDelta(t, 1000, m.CorrectedSignal(trk), 1e-9)
}

func TestNsigmaZeroForExactSignal(t *testing.T) {
	m := NewModel(&calib.Parameters{}, true)

	trk := testTrack(1.1)
	evTime := 25.0
	trk.TOFSignal = expectedTime(370, 1.1, domain.SpeciesPion.Mass()) + evTime

	ns := Nsigma(m, trk, domain.SpeciesPion, evTime, 20)
	assert.InDelta(t, 0, ns, 1e-9)
}

func TestNsigmaOneSigmaOffset(t *testing.T) {
	m := NewModel(&calib.Parameters{}, true)

	trk := testTrack(1.1)
	sigma := m.ExpectedSigma(trk, domain.SpeciesPion, 0)
	trk.TOFSignal = expectedTime(370, 1.1, domain.SpeciesPion.Mass()) + sigma

	ns := Nsigma(m, trk, domain.SpeciesPion, 0, 0)
	assert.InDelta(t, 1, ns, 1e-9)
}

func TestBeta(t *testing.T) {
	trk := testTrack(1.0)
	trk.TOFSignal = expectedTime(370, 1.0, domain.SpeciesPion.Mass())

	beta := Beta(trk, 0)
	require.NotEqual(t, domain.BetaSentinel, beta)

	// beta = p / E for the hypothesis the signal was built from.
	mass := domain.SpeciesPion.Mass()
	want := 1.0 / math.Sqrt(1.0+mass*mass)
	assert.InDelta(t, want, beta, 1e-6)
}

func TestBetaGuards(t *testing.T) {
	trk := testTrack(1.0)
	trk.TOFSignal = 100

	assert.Equal(t, domain.BetaSentinel, Beta(trk, 100), "zero flight time")
	assert.Equal(t, domain.BetaSentinel, Beta(trk, 200), "negative flight time")

	noLength := testTrack(1.0)
	noLength.TOFSignal = 1000
	noLength.Length = 0
	assert.Equal(t, domain.BetaSentinel, Beta(noLength, 0))

	assert.Equal(t, domain.BetaSentinel, BetaSigma(trk, 100, 20))
}

func TestTOFMass(t *testing.T) {
	mass := domain.SpeciesProton.Mass()
	p := 1.3
	beta := p / math.Sqrt(p*p+mass*mass)

	assert.InDelta(t, mass, TOFMass(p, beta), 1e-9)

	assert.Equal(t, domain.MassSentinel, TOFMass(p, 0), "beta at zero")
	assert.Equal(t, domain.MassSentinel, TOFMass(p, 1), "beta at c")
	assert.Equal(t, domain.MassSentinel, TOFMass(p, 1.2), "superluminal")
	assert.Equal(t, domain.MassSentinel, TOFMass(p, -0.5))
}

func TestTOFMomentum(t *testing.T) {
	trk := testTrack(1.2)
	trk.TOFExpMom = 1.35
	assert.Equal(t, 1.35, TOFMomentum(trk))

	trk.TOFExpMom = 0
	assert.Equal(t, 1.2, TOFMomentum(trk), "falls back to the vertex momentum")
}
