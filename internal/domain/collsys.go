package domain

import "fmt"

// CollisionSystem categorizes the colliding beam configuration. The
// event-time estimator picks its default mode from it: low-multiplicity
// systems lean on the forward detector, high-multiplicity systems carry
// enough tracks for the detector-internal estimator.
type CollisionSystem int

const (
	// CollSysUndefined means not yet configured or detected.
	CollSysUndefined CollisionSystem = iota - 1
	CollSysPP
	CollSysPbPb
	CollSysXeXe
	CollSysPPb
)

var collSysNames = map[CollisionSystem]string{
	CollSysUndefined: "undefined",
	CollSysPP:        "pp",
	CollSysPbPb:      "PbPb",
	CollSysXeXe:      "XeXe",
	CollSysPPb:       "pPb",
}

// String returns the beam configuration name.
func (c CollisionSystem) String() string {
	if n, ok := collSysNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CollisionSystem(%d)", int(c))
}

// ParseCollisionSystem resolves a beam configuration name.
func ParseCollisionSystem(name string) (CollisionSystem, error) {
	for c, n := range collSysNames {
		if n == name && c != CollSysUndefined {
			return c, nil
		}
	}
	return CollSysUndefined, fmt.Errorf("unknown collision system %q", name)
}

// Batch is one processing unit: all tracks of a data chunk, sorted by
// collision, with the collisions they reference.
type Batch struct {
	RunNumber  int32
	Timestamp  int64 // ms since epoch, validity time for calibration
	Tracks     []Track
	Collisions map[int64]*Collision
}
