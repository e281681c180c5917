// Package stub provides an in-memory BatchSource for tests and local
// runs without a live feed.
package stub

import (
	"context"
	"sync"

	"tof-pid-lab/internal/domain"
	"tof-pid-lab/internal/ingestion"
)

// Source replays a fixed sequence of batches.
type Source struct {
	mu      sync.Mutex
	batches []*domain.Batch
	pos     int
	closed  bool
}

// Compile-time interface check.
var _ ingestion.BatchSource = (*Source)(nil)

// NewSource creates a source over the given batches.
func NewSource(batches ...*domain.Batch) *Source {
	return &Source{batches: batches}
}

// Next returns the next batch in sequence, ErrSourceDrained when done.
func (s *Source) Next(ctx context.Context) (*domain.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.pos >= len(s.batches) {
		return nil, ingestion.ErrSourceDrained
	}
	b := s.batches[s.pos]
	s.pos++
	return b, nil
}

// Close marks the source drained.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
