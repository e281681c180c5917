// Package evtime estimates the collision event time each track's timing
// signal is measured against. Two estimators exist: the detector-internal
// combinatorial estimator built from the tracks themselves, and the
// independent forward-detector coincidence. Which of the two contribute
// is decided once per dataset from the collision system.
package evtime

import (
	"errors"
	"fmt"

	"tof-pid-lab/internal/domain"
)

// Estimator selection values for ResolveMode: AutoSelect defers to the
// collision-system default, the others force the estimator off or on.
const (
	AutoSelect = -1
	Disabled   = 0
	Enabled    = 1
)

// Configuration errors, fatal for the whole run.
var (
	// ErrUnknownCollisionSystem means automatic estimator selection was
	// requested for a collision system with no defined default.
	ErrUnknownCollisionSystem = errors.New("no default event-time mode for collision system")
	// ErrNoEstimator means both estimators ended up disabled.
	ErrNoEstimator = errors.New("no event-time estimator enabled")
)

// Mode is the resolved estimator selection for a dataset.
type Mode struct {
	UseTOF bool
	UseFT0 bool
}

// ResolveMode combines the configured estimator switches with the
// collision-system defaults: low-multiplicity pp leans on the forward
// detector, PbPb carries enough tracks for the internal estimator.
// Any other system must be configured explicitly.
func ResolveMode(sys domain.CollisionSystem, cfgTOF, cfgFT0 int) (Mode, error) {
	if cfgTOF == AutoSelect || cfgFT0 == AutoSelect {
		switch sys {
		case domain.CollSysPP:
			if cfgTOF == AutoSelect {
				cfgTOF = Disabled
			}
			if cfgFT0 == AutoSelect {
				cfgFT0 = Enabled
			}
		case domain.CollSysPbPb:
			if cfgTOF == AutoSelect {
				cfgTOF = Enabled
			}
			if cfgFT0 == AutoSelect {
				cfgFT0 = Disabled
			}
		default:
			return Mode{}, fmt.Errorf("%w: %s", ErrUnknownCollisionSystem, sys)
		}
	}
	mode := Mode{UseTOF: cfgTOF == Enabled, UseFT0: cfgFT0 == Enabled}
	if !mode.UseTOF && !mode.UseFT0 {
		return Mode{}, ErrNoEstimator
	}
	return mode, nil
}
