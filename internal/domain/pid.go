package domain

import "math"

// Sentinel values for channels that could not be computed.
const (
	// NsigmaSentinel fills species channels when no event time exists.
	NsigmaSentinel = -999.0
	// MassSentinel fills the mass channel on numeric degeneracy.
	MassSentinel = -999.0
	// BetaSentinel fills the beta channel when the time of flight is
	// unphysical.
	BetaSentinel = -999.0
	// EvTimeErrNoCollision is the error assigned to tracks without a
	// collision association, in ps.
	EvTimeErrNoCollision = 999.0
)

// Event-time source flags. A zero flag set means the diamond fallback.
const (
	// EvTimeFlagTOF marks a contribution from the detector-internal
	// combinatorial estimator.
	EvTimeFlagTOF uint8 = 1 << 0
	// EvTimeFlagT0AC marks a contribution from the forward-detector
	// coincidence.
	EvTimeFlagT0AC uint8 = 1 << 1
)

// SignalRecord is the per-track raw signal channel: the timing value in
// ps and whether the track is usable for PID.
type SignalRecord struct {
	TrackIndex int
	Value      float64
	Usable     bool
}

// EventTimeRecord is the per-track resolved event time, in ps.
type EventTimeRecord struct {
	TrackIndex int
	Value      float64
	Err        float64
	Flags      uint8
}

// TOFOnlyRecord is the diagnostic channel carrying the pure
// detector-internal estimate before any combination.
type TOFOnlyRecord struct {
	TrackIndex   int
	SampleMember bool
	Value        float64
	Err          float64
	Multiplicity int
}

// NsigmaRecord is one row of a tiny (quantized) species table.
type NsigmaRecord struct {
	TrackIndex int
	Species    Species
	Binned     int8
}

// NsigmaFullRecord is one row of a full species table.
type NsigmaFullRecord struct {
	TrackIndex int
	Species    Species
	Resolution float64
	Nsigma     float64
}

// BetaRecord is the species-independent time-of-flight velocity channel.
type BetaRecord struct {
	TrackIndex int
	Beta       float64
	BetaErr    float64
}

// MassRecord is the species-independent time-of-flight mass channel.
type MassRecord struct {
	TrackIndex int
	Mass       float64
}

// Tiny table quantization: Nsigma is stored in bins of width 0.1 on an
// int8 scale. Values outside the representable range clamp to the edge
// bins; NsigmaBinnedSentinel is reserved for "not computed".
const (
	NsigmaBinWidth        = 0.1
	NsigmaBinnedMax  int8 = 127
	NsigmaBinnedMin  int8 = -127
	// NsigmaBinnedSentinel marks a channel that was never computed.
	NsigmaBinnedSentinel int8 = -128
)

// PackNsigma quantizes an Nsigma value for a tiny table row.
// The sentinel input maps to the sentinel bin, everything else clamps.
func PackNsigma(nsigma float64) int8 {
	if nsigma == NsigmaSentinel {
		return NsigmaBinnedSentinel
	}
	binned := math.Round(nsigma / NsigmaBinWidth)
	if binned > float64(NsigmaBinnedMax) {
		return NsigmaBinnedMax
	}
	if binned < float64(NsigmaBinnedMin) {
		return NsigmaBinnedMin
	}
	return int8(binned)
}

// UnpackNsigma recovers the bin-center Nsigma from a tiny table row.
func UnpackNsigma(binned int8) float64 {
	if binned == NsigmaBinnedSentinel {
		return NsigmaSentinel
	}
	return float64(binned) * NsigmaBinWidth
}
