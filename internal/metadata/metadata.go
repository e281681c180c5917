// Package metadata exposes the dataset-level information attached to an
// input file: data-taking period, data/MC origin and reconstruction pass.
package metadata

import "fmt"

// Well-known metadata keys.
const (
	KeyDataType       = "DataType"       // "Run2" or "Run3"
	KeyIsMC           = "IsMC"           // "true" or "false"
	KeyRecoPassName   = "RecoPassName"   // pass label of the reconstruction
	KeyAnchorPassName = "AnchorPassName" // pass an MC production is anchored to
)

// PassFromMetadata is the pass label that requests autodetection from
// the dataset metadata instead of a fixed value.
const PassFromMetadata = "metadata"

// Provider holds the parsed dataset metadata.
type Provider struct {
	values map[string]string
}

// New builds a Provider from raw key/value metadata.
func New(values map[string]string) *Provider {
	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return &Provider{values: copied}
}

// Get returns the raw value for a key, empty if absent.
func (p *Provider) Get(key string) string {
	return p.values[key]
}

// IsFullyDefined reports whether the fields needed for autodetection are
// all present.
func (p *Provider) IsFullyDefined() bool {
	return p.values[KeyDataType] != "" && p.values[KeyIsMC] != ""
}

// IsRun3 reports whether the dataset comes from the current data-taking
// period. Defaults to true when the data type is unset.
func (p *Provider) IsRun3() bool {
	return p.values[KeyDataType] != "Run2"
}

// IsMC reports whether the dataset is a Monte Carlo production.
func (p *Provider) IsMC() bool {
	return p.values[KeyIsMC] == "true"
}

// ReconstructionPassName returns the pass label identifying the
// calibration iteration. For MC this is the anchor pass.
func (p *Provider) ReconstructionPassName() string {
	if p.IsMC() {
		return p.values[KeyAnchorPassName]
	}
	return p.values[KeyRecoPassName]
}

// ResolvePass maps a configured pass label to the effective one,
// expanding the PassFromMetadata request.
func (p *Provider) ResolvePass(configured string) (string, error) {
	if configured != PassFromMetadata {
		return configured, nil
	}
	pass := p.ReconstructionPassName()
	if pass == "" {
		return "", fmt.Errorf("pass autodetection requested but metadata carries no pass name")
	}
	return pass, nil
}
