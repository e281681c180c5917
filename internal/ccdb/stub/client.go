// Package stub provides a fixed in-memory calibration object store for
// tests and offline runs.
package stub

import (
	"context"
	"sync"

	"tof-pid-lab/internal/ccdb"
)

// Client serves objects from an in-memory map keyed by path.
// Implements ccdb.Client.
type Client struct {
	mu      sync.Mutex
	objects map[string][]byte
	fetches map[string]int
}

// New creates a stub client with the given objects.
func New(objects map[string][]byte) *Client {
	copied := make(map[string][]byte, len(objects))
	for k, v := range objects {
		copied[k] = append([]byte(nil), v...)
	}
	return &Client{
		objects: copied,
		fetches: make(map[string]int),
	}
}

// Compile-time interface check.
var _ ccdb.Client = (*Client)(nil)

// Put registers or replaces an object payload.
func (c *Client) Put(path string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[path] = append([]byte(nil), payload...)
}

// Fetch returns the stored payload for the path, ignoring timestamp and
// metadata. Returns ccdb.ErrObjectMissing for unknown paths.
func (c *Client) Fetch(_ context.Context, path string, _ int64, _ map[string]string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fetches[path]++
	payload, ok := c.objects[path]
	if !ok {
		return nil, ccdb.ErrObjectMissing
	}
	return append([]byte(nil), payload...), nil
}

// FetchCount reports how many times a path was requested. Used by tests
// to assert cache behavior.
func (c *Client) FetchCount(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches[path]
}
