package domain

import "fmt"

// Species identifies a particle mass hypothesis.
type Species int

// Mass hypotheses, in the canonical detector ordering.
const (
	SpeciesElectron Species = iota
	SpeciesMuon
	SpeciesPion
	SpeciesKaon
	SpeciesProton
	SpeciesDeuteron
	SpeciesTriton
	SpeciesHelium3
	SpeciesAlpha

	NSpecies = 9
)

var speciesNames = [NSpecies]string{
	"El", "Mu", "Pi", "Ka", "Pr", "De", "Tr", "He", "Al",
}

// PDG masses in GeV/c^2.
var speciesMasses = [NSpecies]float64{
	0.000510999, // electron
	0.105658,    // muon
	0.139570,    // pion
	0.493677,    // kaon
	0.938272,    // proton
	1.875613,    // deuteron
	2.808921,    // triton
	2.808391,    // helium-3
	3.727379,    // alpha
}

// Charge number of each hypothesis. Helium-3 and alpha carry charge 2,
// which halves the rigidity-to-momentum conversion.
var speciesCharges = [NSpecies]float64{
	1, 1, 1, 1, 1, 1, 1, 2, 2,
}

// String returns the short species tag used in table names.
func (s Species) String() string {
	if s < 0 || s >= NSpecies {
		return fmt.Sprintf("Species(%d)", int(s))
	}
	return speciesNames[s]
}

// Valid reports whether s is a known hypothesis.
func (s Species) Valid() bool {
	return s >= 0 && s < NSpecies
}

// Mass returns the hypothesis mass in GeV/c^2.
func (s Species) Mass() float64 {
	return speciesMasses[s]
}

// Charge returns the hypothesis charge number.
func (s Species) Charge() float64 {
	return speciesCharges[s]
}

// AllSpecies lists every hypothesis in canonical order.
func AllSpecies() []Species {
	out := make([]Species, NSpecies)
	for i := range out {
		out[i] = Species(i)
	}
	return out
}

// ParseSpecies resolves a short species tag ("Pi", "Ka", ...).
func ParseSpecies(name string) (Species, error) {
	for i, n := range speciesNames {
		if n == name {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("unknown species %q", name)
}
