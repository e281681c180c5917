// Package signal derives the raw per-track TOF timing observable.
package signal

import "tof-pid-lab/internal/domain"

// Extract reads the raw timing signal off a track. A track is usable for
// PID only when it has a TOF hit; the signal value itself is passed
// through untouched, in ps.
func Extract(trk *domain.Track) domain.SignalRecord {
	return domain.SignalRecord{
		TrackIndex: trk.Index,
		Value:      trk.TOFSignal,
		Usable:     trk.HasTOF,
	}
}
