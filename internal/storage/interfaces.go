// Package storage defines the output surfaces of the PID pipeline: the
// in-memory append-only sinks the orchestrator emits into, and the
// persistent table stores batches are flushed to.
package storage

import (
	"context"

	"tof-pid-lab/internal/domain"
)

// Sinks are ordered append-only numeric tables. The orchestrator emits
// exactly one record per input track per enabled channel, in input-track
// order, sentinel records included. Reserve pre-sizes for a batch.

// SignalSink receives the raw signal channel.
type SignalSink interface {
	Reserve(n int)
	Append(r domain.SignalRecord)
}

// EventTimeSink receives the resolved per-track event times.
type EventTimeSink interface {
	Reserve(n int)
	Append(r domain.EventTimeRecord)
}

// TOFOnlySink receives the detector-internal diagnostic channel.
type TOFOnlySink interface {
	Reserve(n int)
	Append(r domain.TOFOnlyRecord)
}

// NsigmaSink receives tiny (quantized) species rows.
type NsigmaSink interface {
	Reserve(n int)
	Append(r domain.NsigmaRecord)
}

// NsigmaFullSink receives full species rows.
type NsigmaFullSink interface {
	Reserve(n int)
	Append(r domain.NsigmaFullRecord)
}

// BetaSink receives the time-of-flight velocity channel.
type BetaSink interface {
	Reserve(n int)
	Append(r domain.BetaRecord)
}

// MassSink receives the time-of-flight mass channel.
type MassSink interface {
	Reserve(n int)
	Append(r domain.MassRecord)
}

// Persistent stores flush completed batches, keyed by run number.

// EventTimeStore persists event-time records.
type EventTimeStore interface {
	// InsertBulk adds a batch of records for a run. Returns
	// ErrDuplicateKey if any (run, track_index) already exists.
	InsertBulk(ctx context.Context, run int32, recs []domain.EventTimeRecord) error

	// GetByRun retrieves all records of a run, ordered by track index.
	GetByRun(ctx context.Context, run int32) ([]domain.EventTimeRecord, error)
}

// NsigmaStore persists full species rows.
type NsigmaStore interface {
	// InsertBulk adds a batch of rows for a run. Returns ErrDuplicateKey
	// if any (run, track_index, species) already exists.
	InsertBulk(ctx context.Context, run int32, rows []domain.NsigmaFullRecord) error

	// GetByRunSpecies retrieves one species' rows of a run, ordered by
	// track index.
	GetByRunSpecies(ctx context.Context, run int32, sp domain.Species) ([]domain.NsigmaFullRecord, error)
}

// BetaMassStore persists the species-independent channels.
type BetaMassStore interface {
	// InsertBetaBulk adds beta rows for a run.
	InsertBetaBulk(ctx context.Context, run int32, rows []domain.BetaRecord) error

	// InsertMassBulk adds mass rows for a run.
	InsertMassBulk(ctx context.Context, run int32, rows []domain.MassRecord) error

	// GetBetaByRun retrieves beta rows of a run, ordered by track index.
	GetBetaByRun(ctx context.Context, run int32) ([]domain.BetaRecord, error)

	// GetMassByRun retrieves mass rows of a run, ordered by track index.
	GetMassByRun(ctx context.Context, run int32) ([]domain.MassRecord, error)
}
