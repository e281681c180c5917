package evtime

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tof-pid-lab/internal/calib"
	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/response"
)

func newTestModel() response.Model {
	return response.NewModel(&calib.Parameters{}, true)
}

// samplePion returns a sample-quality track whose signal carries the
// pion expected time plus the given event-time offset, in ps.
func samplePion(index int, p, t0 float64) domain.Track {
	length := 370.0
	mass := domain.SpeciesPion.Mass()
	return domain.Track{
		Index:     index,
		P:         p,
		TOFExpMom: p,
		Length:    length,
		Sign:      1,
		TOFSignal: length*domain.InvCLightPsCm*math.Sqrt(1+(mass*mass)/(p*p)) + t0,
		HasTOF:    true,
		HasTPC:    true,
		HasITS:    true,
	}
}

func TestSampleFilter(t *testing.T) {
	base := samplePion(0, 1.0, 0)

	tests := []struct {
		name   string
		mutate func(*domain.Track)
		want   bool
	}{
		{"qualifies", func(*domain.Track) {}, true},
		{"no TOF hit", func(trk *domain.Track) { trk.HasTOF = false }, false},
		{"no TPC", func(trk *domain.Track) { trk.HasTPC = false }, false},
		{"no ITS", func(trk *domain.Track) { trk.HasITS = false }, false},
		{"below momentum window", func(trk *domain.Track) { trk.P = 0.3 }, false},
		{"above momentum window", func(trk *domain.Track) { trk.P = 2.5 }, false},
		{"at lower edge", func(trk *domain.Track) { trk.P = 0.5 }, false},
		{"innermost-update type", func(trk *domain.Track) { trk.Type = domain.TrackTypeInnermostUpdate }, true},
		{"other type", func(trk *domain.Track) { trk.Type = domain.TrackTypeOther }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trk := base
			tt.mutate(&trk)
			if got := SampleFilter(&trk, DefaultMinMomentum, DefaultMaxMomentum); got != tt.want {
				t.Errorf("SampleFilter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEstimateEmptySampleFallsToDiamond(t *testing.T) {
	maker := NewMaker(newTestModel(), 0, 0, 0)

	est := maker.Estimate([]domain.Track{
		{Index: 0, P: 1.0, HasTOF: true}, // no TPC/ITS: not sample quality
	})

	assert.Equal(t, 0, est.Multiplicity)
	assert.Zero(t, est.Time)
	assert.Equal(t, ErrDiamond, est.Err)
}

func TestEstimateRecoversInjectedOffset(t *testing.T) {
	maker := NewMaker(newTestModel(), 0, 0, 0)

	const t0 = 30.0
	tracks := []domain.Track{
		samplePion(0, 0.7, t0),
		samplePion(1, 1.0, t0),
		samplePion(2, 1.4, t0),
		samplePion(3, 1.8, t0),
	}

	est := maker.Estimate(tracks)

	assert.Equal(t, 4, est.Multiplicity)
	assert.InDelta(t, t0, est.Time, 1e-6)
	// Equal per-track resolutions: err = sigma / sqrt(n).
	assert.InDelta(t, 80.0/2, est.Err, 1e-9)
}

func TestEstimateCapsSampleSize(t *testing.T) {
	maker := NewMaker(newTestModel(), 0, 0, 3)

	tracks := make([]domain.Track, 0, 6)
	for i := 0; i < 6; i++ {
		tracks = append(tracks, samplePion(i, 1.0, 10))
	}

	est := maker.Estimate(tracks)
	assert.Equal(t, 3, est.Multiplicity)
}

func TestRemoveBias(t *testing.T) {
	maker := NewMaker(newTestModel(), 0, 0, 0)

	// Distinct offsets so the member's own term visibly skews the mean.
	tracks := []domain.Track{
		samplePion(0, 0.8, 0),
		samplePion(1, 1.1, 30),
		samplePion(2, 1.6, 60),
	}
	est := maker.Estimate(tracks)
	require.Equal(t, 3, est.Multiplicity)
	assert.InDelta(t, 30, est.Time, 1e-6)

	// Removing track 0 leaves the mean of the other two.
	tVal, tErr := est.RemoveBias(&tracks[0])
	assert.InDelta(t, 45, tVal, 1e-6)
	assert.InDelta(t, 80.0/math.Sqrt(2), tErr, 1e-6)

	// A track outside the sample sees the unmodified estimate.
	outsider := domain.Track{Index: 99}
	tVal, tErr = est.RemoveBias(&outsider)
	assert.InDelta(t, est.Time, tVal, 1e-12)
	assert.InDelta(t, est.Err, tErr, 1e-12)
	assert.False(t, est.IsMember(&outsider))
	assert.True(t, est.IsMember(&tracks[0]))
}

func TestRemoveBiasSingleMemberFallsToDiamond(t *testing.T) {
	maker := NewMaker(newTestModel(), 0, 0, 0)

	tracks := []domain.Track{samplePion(0, 1.0, 20)}
	est := maker.Estimate(tracks)
	require.Equal(t, 1, est.Multiplicity)

	tVal, tErr := est.RemoveBias(&tracks[0])
	assert.Zero(t, tVal)
	assert.Equal(t, ErrDiamond, tErr)
}
