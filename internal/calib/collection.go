package calib

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// ParamSet is one reconstruction pass entry in a parameter collection.
type ParamSet struct {
	Resolution          []float64 `json:"resolution"`
	ResolutionRun2      []float64 `json:"resolutionRun2"`
	MomentumChargeShift []float64 `json:"momentumChargeShift"`
}

// Collection maps reconstruction pass labels to parameter sets, as
// stored in the calibration object store or in a local parameter file.
type Collection struct {
	Passes map[string]ParamSet `json:"passes"`
}

// ParseCollection decodes a parameter collection payload.
func ParseCollection(payload []byte) (*Collection, error) {
	var c Collection
	if err := json.Unmarshal(payload, &c); err != nil {
		return nil, fmt.Errorf("decode parameter collection: %w", err)
	}
	if len(c.Passes) == 0 {
		return nil, fmt.Errorf("parameter collection carries no passes")
	}
	return &c, nil
}

// LoadCollectionFile reads a parameter collection from a local file.
func LoadCollectionFile(path string) (*Collection, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file %s: %w", path, err)
	}
	return ParseCollection(payload)
}

// Retrieve returns the parameter set for a pass label.
func (c *Collection) Retrieve(pass string) (ParamSet, bool) {
	set, ok := c.Passes[pass]
	return set, ok
}

// PassNames lists the available passes, sorted for stable diagnostics.
func (c *Collection) PassNames() []string {
	names := make([]string, 0, len(c.Passes))
	for name := range c.Passes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
