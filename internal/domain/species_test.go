package domain

import "testing"

func TestParseSpecies(t *testing.T) {
	for _, sp := range AllSpecies() {
		got, err := ParseSpecies(sp.String())
		if err != nil {
			t.Fatalf("ParseSpecies(%q): %v", sp.String(), err)
		}
		if got != sp {
			t.Errorf("ParseSpecies(%q) = %v, want %v", sp.String(), got, sp)
		}
	}
	if _, err := ParseSpecies("Xx"); err == nil {
		t.Error("ParseSpecies accepted an unknown tag")
	}
}

func TestSpeciesValid(t *testing.T) {
	if !SpeciesPion.Valid() {
		t.Error("pion should be valid")
	}
	if Species(-1).Valid() || Species(NSpecies).Valid() {
		t.Error("out-of-range species should be invalid")
	}
}

func TestSpeciesCharge(t *testing.T) {
	// Light hypotheses carry unit charge; helium-3 and alpha carry 2.
	if got := SpeciesProton.Charge(); got != 1 {
		t.Errorf("proton charge = %v, want 1", got)
	}
	if got := SpeciesHelium3.Charge(); got != 2 {
		t.Errorf("helium-3 charge = %v, want 2", got)
	}
	if got := SpeciesAlpha.Charge(); got != 2 {
		t.Errorf("alpha charge = %v, want 2", got)
	}
}

func TestSpeciesMassOrdering(t *testing.T) {
	all := AllSpecies()
	for i := 1; i < len(all); i++ {
		// Helium-3 is the one inversion in the canonical ordering: it sits
		// after the triton but is marginally lighter.
		if all[i] == SpeciesHelium3 {
			continue
		}
		if all[i].Mass() <= all[i-1].Mass() {
			t.Errorf("mass of %v (%v) not above %v (%v)", all[i], all[i].Mass(), all[i-1], all[i-1].Mass())
		}
	}
}
