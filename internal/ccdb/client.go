// Package ccdb provides access to the remote calibration object store.
// Objects are addressed by path and validity timestamp, with optional
// key/value metadata filters (e.g. the reconstruction pass).
package ccdb

import "context"

// Client fetches calibration objects.
type Client interface {
	// Fetch returns the raw object payload valid at the given timestamp
	// (ms since epoch). Returns ErrObjectMissing if the store has no
	// object for the path/filter combination.
	Fetch(ctx context.Context, path string, timestamp int64, meta map[string]string) ([]byte, error)
}
