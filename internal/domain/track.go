package domain

// Physical constants shared by the timing computations.
const (
	// Speed of light in cm/ps.
	CLightCmPs = 0.0299792458
	// Inverse speed of light in ps/cm.
	InvCLightPsCm = 33.356409
)

// TrackType distinguishes standard tracks from tracks parametrized at the
// innermost update point. Both are accepted by the event-time sample filter.
type TrackType uint8

const (
	TrackTypeStandard TrackType = iota
	TrackTypeInnermostUpdate
	TrackTypeOther
)

// NoCollision marks a track without a collision association.
const NoCollision int64 = -1

// Track is a reconstructed track as read from the input tables.
// Read-only input to the PID pipeline.
type Track struct {
	// Index is the position in the input batch; output tables are emitted
	// in this order, one row per track per enabled channel.
	Index int

	// CollisionID associates the track with a collision, NoCollision if
	// the track was not assigned to any vertex.
	CollisionID int64

	// P is the momentum at the vertex in GeV/c.
	P float64
	// Eta is the pseudorapidity.
	Eta float64
	// Sign is the charge sign, +1 or -1.
	Sign int8
	// Length is the integrated track length to the TOF hit in cm.
	Length float64
	// TOFExpMom is the momentum used for the expected-time integral, in
	// GeV/c. It differs from P because it is evaluated along the full
	// trajectory with the pion hypothesis.
	TOFExpMom float64

	// TOFSignal is the raw detector timing signal in ps.
	TOFSignal float64

	// Detector hit flags.
	HasTOF bool
	HasTPC bool
	HasITS bool

	Type TrackType
}

// Collision is a reconstructed primary vertex with the independent
// forward-detector timing measurement attached, when available.
type Collision struct {
	ID int64

	// Time and TimeRes are the collision time and resolution in ns, as
	// estimated by the vertexing. Used only by the legacy (Run 2) path.
	Time    float64
	TimeRes float64

	// Selected reports whether the collision passes the standard event
	// selection.
	Selected bool

	// Forward-detector (FT0) coincidence time.
	HasFT0    bool
	T0ACValid bool
	T0AC      float64 // ns
	T0ACRes   float64 // ns
}
