package response

import (
	"math"

	"tof-pid-lab/internal/domain"
)

// minTimeOfFlight guards the beta inversion: flight times at or below it
// are unphysical and yield the sentinel instead of a diverging value.
const minTimeOfFlight = 1e-3 // ps

// Beta returns the time-of-flight velocity in units of c, from the raw
// signal measured against the resolved event time.
func Beta(trk *domain.Track, evTime float64) float64 {
	if trk.Length <= 0 {
		return domain.BetaSentinel
	}
	tof := trk.TOFSignal - evTime
	if tof <= minTimeOfFlight {
		return domain.BetaSentinel
	}
	return trk.Length / (tof * domain.CLightCmPs)
}

// BetaSigma propagates the timing resolution into the velocity: the
// relative error on beta equals the relative error on the flight time.
func BetaSigma(trk *domain.Track, evTime, evTimeErr float64) float64 {
	beta := Beta(trk, evTime)
	if beta == domain.BetaSentinel {
		return domain.BetaSentinel
	}
	tof := trk.TOFSignal - evTime
	sigmaT := math.Sqrt(defaultSigma*defaultSigma + evTimeErr*evTimeErr)
	return beta * sigmaT / tof
}

// TOFMass inverts beta to the particle mass in GeV/c^2 for the given
// momentum. Velocities at or beyond c are numeric degeneracies and
// return the sentinel, never NaN.
func TOFMass(p, beta float64) float64 {
	if beta <= 0 || beta >= 1 {
		return domain.MassSentinel
	}
	return p * math.Sqrt(1/(beta*beta)-1)
}

// TOFMomentum returns the momentum the mass inversion uses by default:
// the flight-time fit momentum, falling back to the vertex momentum
// when the fit value is absent.
func TOFMomentum(trk *domain.Track) float64 {
	if trk.TOFExpMom > 0 {
		return trk.TOFExpMom
	}
	return trk.P
}
