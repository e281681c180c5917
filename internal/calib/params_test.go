package calib

import (
	"math"
	"testing"
)

func TestParseGraph(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"x":[-1,0,1],"y":[10,0,-10]}`, false},
		{"empty", `{"x":[],"y":[]}`, false},
		{"size mismatch", `{"x":[0,1],"y":[0]}`, true},
		{"not increasing", `{"x":[0,1,1],"y":[0,0,0]}`, true},
		{"garbage", `nope`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGraph([]byte(tt.payload))
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseGraph error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGraphEval(t *testing.T) {
	g := &Graph{X: []float64{-1, 0, 1}, Y: []float64{10, 0, -10}}

	tests := []struct {
		x    float64
		want float64
	}{
		{-0.5, 5},   // interpolated
		{0.5, -5},   // interpolated
		{0, 0},      // node
		{-2, 10},    // clamped low
		{2, -10},    // clamped high
		{0.25, -2.5},
	}
	for _, tt := range tests {
		if got := g.Eval(tt.x); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Eval(%v) = %v, want %v", tt.x, got, tt.want)
		}
	}
}

func TestGraphEvalNil(t *testing.T) {
	var g *Graph
	if got := g.Eval(0.5); got != 0 {
		t.Errorf("nil graph Eval = %v, want 0", got)
	}
}

func TestMomentumShift(t *testing.T) {
	// shift(eta) = 0.01 - 0.02*eta + 0.03*eta^2
	p := &Parameters{MomentumChargeShift: []float64{0.01, -0.02, 0.03}}

	eta := 0.5
	want := 0.01 - 0.02*eta + 0.03*eta*eta
	if got := p.MomentumShift(eta); math.Abs(got-want) > 1e-15 {
		t.Errorf("MomentumShift(%v) = %v, want %v", eta, got, want)
	}

	empty := &Parameters{}
	if got := empty.MomentumShift(eta); got != 0 {
		t.Errorf("empty MomentumShift = %v, want 0", got)
	}
}

func TestTimeShiftDirectional(t *testing.T) {
	p := &Parameters{}
	if got := p.TimeShift(0.3, true); got != 0 {
		t.Errorf("unloaded TimeShift = %v, want 0", got)
	}

	p.SetTimeShiftGraph(&Graph{X: []float64{0}, Y: []float64{7}}, true)
	p.SetTimeShiftGraph(&Graph{X: []float64{0}, Y: []float64{-7}}, false)

	if got := p.TimeShift(0.3, true); got != 7 {
		t.Errorf("positive TimeShift = %v, want 7", got)
	}
	if got := p.TimeShift(0.3, false); got != -7 {
		t.Errorf("negative TimeShift = %v, want -7", got)
	}
}
