// Package calib holds the detector response calibration: the
// resolution-vs-momentum coefficients, the momentum/charge shift and the
// directional time-shift curves, bundled per reconstruction pass and
// cached per run number.
package calib

import (
	"encoding/json"
	"fmt"
)

// Graph is a sampled correction curve evaluated by linear interpolation.
// Points must be sorted by X ascending; evaluation clamps outside the
// sampled range.
type Graph struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// ParseGraph decodes a curve payload and validates it.
func ParseGraph(payload []byte) (*Graph, error) {
	var g Graph
	if err := json.Unmarshal(payload, &g); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	if len(g.X) != len(g.Y) {
		return nil, fmt.Errorf("graph size mismatch: %d x values, %d y values", len(g.X), len(g.Y))
	}
	for i := 1; i < len(g.X); i++ {
		if g.X[i] <= g.X[i-1] {
			return nil, fmt.Errorf("graph x values not strictly increasing at index %d", i)
		}
	}
	return &g, nil
}

// Eval interpolates the curve at x.
func (g *Graph) Eval(x float64) float64 {
	if g == nil || len(g.X) == 0 {
		return 0
	}
	if x <= g.X[0] {
		return g.Y[0]
	}
	last := len(g.X) - 1
	if x >= g.X[last] {
		return g.Y[last]
	}
	// find the bracketing segment
	lo := 0
	for lo < last && g.X[lo+1] < x {
		lo++
	}
	frac := (x - g.X[lo]) / (g.X[lo+1] - g.X[lo])
	return g.Y[lo] + frac*(g.Y[lo+1]-g.Y[lo])
}

// Parameters is one fully-formed calibration bundle. It is immutable
// once resolved for a run: refreshes swap in a new bundle wholesale.
type Parameters struct {
	// Identity key.
	Pass      string
	RunNumber int32
	Timestamp int64

	// Resolution holds the resolution-vs-momentum coefficients of the
	// current data-taking period; ResolutionRun2 the legacy slot.
	Resolution     []float64
	ResolutionRun2 []float64

	// MomentumChargeShift holds polynomial coefficients in eta for the
	// charge-dependent effective-momentum correction.
	MomentumChargeShift []float64

	timeShiftPos *Graph
	timeShiftNeg *Graph
}

// TimeShift returns the signal time offset in ps for the given
// pseudorapidity and charge sign. Zero when no curve is loaded.
func (p *Parameters) TimeShift(eta float64, positive bool) float64 {
	if positive {
		return p.timeShiftPos.Eval(eta)
	}
	return p.timeShiftNeg.Eval(eta)
}

// MomentumShift evaluates the momentum/charge shift polynomial at eta.
// The caller applies it with the track's charge sign.
func (p *Parameters) MomentumShift(eta float64) float64 {
	shift := 0.0
	pow := 1.0
	for _, c := range p.MomentumChargeShift {
		shift += c * pow
		pow *= eta
	}
	return shift
}

// SetTimeShiftGraph attaches a directional time-shift curve.
func (p *Parameters) SetTimeShiftGraph(g *Graph, positive bool) {
	if positive {
		p.timeShiftPos = g
	} else {
		p.timeShiftNeg = g
	}
}
