// Package core provides chemistry calculations for peptide mass calculations
package core

import (
	"fmt"
	"math"
)

// Atomic masses (monoisotopic)
const (
	MassH = 1.0078250321
	MassC = 12.0000000000
	MassN = 14.0030740052
	MassO = 15.9949146221
	MassS = 31.9720706900

	// Decimals kept when masses are used as map keys
	massKeyPrecision = 4
)

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S int
}

func (c *AminoAcidComposition) add(o AminoAcidComposition) {
	c.C += o.C
	c.H += o.H
	c.N += o.N
	c.O += o.O
	c.S += o.S
}

func (c AminoAcidComposition) mass() float64 {
	return float64(c.C)*MassC +
		float64(c.H)*MassH +
		float64(c.N)*MassN +
		float64(c.O)*MassO +
		float64(c.S)*MassS
}

// AminoAcidMasses maps amino acid one-letter codes to elemental composition
var AminoAcidMasses = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
}

// CalculateNeutralMass computes the neutral monoisotopic mass of a peptide,
// looking up each placed modification in db.
func CalculateNeutralMass(p *Peptide, db *ModDatabase) (float64, error) {
	comp := AminoAcidComposition{H: 2, O: 1} // Add water

	for _, aa := range p.Sequence {
		aaComp, ok := AminoAcidMasses[aa]
		if !ok {
			return 0, fmt.Errorf("unknown residue '%c' in %s", aa, p.Sequence)
		}
		comp.add(aaComp)
	}

	mass := comp.mass()

	// Add modification masses
	for _, mod := range p.Modifications {
		modMass, ok := db.GetMass(mod.Name)
		if !ok {
			return 0, fmt.Errorf("unknown modification '%s'", mod.Name)
		}
		mass += modMass
	}

	return mass, nil
}

// RoundFloat rounds a float to n decimal places
func RoundFloat(val float64, precision int) float64 {
	ratio := math.Pow(10, float64(precision))
	return math.Round(val*ratio) / ratio
}

// MassKey rounds a modification mass so that equal masses compare equal as map keys
func MassKey(mass float64) float64 {
	return RoundFloat(mass, massKeyPrecision)
}
