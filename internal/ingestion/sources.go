// Package ingestion brings track batches into the pipeline: a live
// websocket feed, a stub source for tests, and the ordering guarantees
// the pipeline relies on.
package ingestion

import (
	"context"
	"errors"

	"tof-pid-lab/internal/domain"
)

// ErrSourceDrained is returned by Next when a finite source has no more
// batches.
var ErrSourceDrained = errors.New("ingestion: source drained")

// BatchSource provides track batches from an external source.
type BatchSource interface {
	// Next returns the next batch. Tracks may arrive unordered; callers
	// use SortTracks to enforce deterministic ordering. Returns
	// ErrSourceDrained when the source is exhausted.
	Next(ctx context.Context) (*domain.Batch, error)

	// Close releases the source.
	Close() error
}
