// Package core provides the data model shared by the localization engine,
// the match stores and the readers and writers: peptides with their
// modification placements, spectrum matches and per-match localization evidence.
package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMatchNotFound is returned by match stores for unknown keys
var ErrMatchNotFound = errors.New("spectrum match not found")

// ModificationPlacement is one modification placed on a peptide.
type ModificationPlacement struct {
	Name      string // Modification name (e.g., "Phospho", "Oxidation")
	Variable  bool   // false for fixed modifications
	Site      int    // 1-based residue; 0 for N-term, len(seq)+1 for C-term
	Confident bool   // site accepted without ambiguity
	Inferred  bool   // site assigned from other spectra
}

// Clone returns a copy of the placement
func (p *ModificationPlacement) Clone() *ModificationPlacement {
	c := *p
	return &c
}

// String returns the placement in the "Name@site" notation read by ParseModString
func (p *ModificationPlacement) String() string {
	var b strings.Builder
	if !p.Variable {
		b.WriteByte('+')
	}
	fmt.Fprintf(&b, "%s@%d", p.Name, p.Site)
	if p.Confident {
		b.WriteByte('!')
	}
	return b.String()
}

// Peptide is an amino acid sequence with its modification placements
type Peptide struct {
	Sequence      string
	Modifications []*ModificationPlacement
}

// ModString returns placements in format "Name@site;Name@site;..." ordered by site
func (p *Peptide) ModString() string {
	if len(p.Modifications) == 0 {
		return ""
	}

	mods := make([]*ModificationPlacement, len(p.Modifications))
	copy(mods, p.Modifications)
	sort.SliceStable(mods, func(i, j int) bool {
		return mods[i].Site < mods[j].Site
	})

	var parts []string
	for _, mod := range mods {
		parts = append(parts, mod.String())
	}
	return strings.Join(parts, ";")
}

// Clone returns a deep copy of the peptide
func (p *Peptide) Clone() *Peptide {
	c := &Peptide{Sequence: p.Sequence}
	for _, mod := range p.Modifications {
		c.Modifications = append(c.Modifications, mod.Clone())
	}
	return c
}

// SpectrumMatch is the best peptide interpretation of one spectrum
type SpectrumMatch struct {
	Key           string // identifier in the match store
	SpectrumTitle string
	Peptide       *Peptide
	Evidence      *EvidenceRecord // nil when the match was never scored
}

// ValidationError represents an error found during match validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a spectrum match meets all requirements for inference.
func (m *SpectrumMatch) Validate() error {
	var errs []string

	if m.Key == "" {
		errs = append(errs, "key is required")
	}
	if m.Peptide == nil || m.Peptide.Sequence == "" {
		errs = append(errs, "sequence is required")
		return &ValidationError{Field: "SpectrumMatch", Message: strings.Join(errs, "; ")}
	}

	n := len(m.Peptide.Sequence)
	for _, r := range m.Peptide.Sequence {
		if _, ok := AminoAcidMasses[r]; !ok {
			errs = append(errs, fmt.Sprintf("unknown residue '%c'", r))
			break
		}
	}

	occupied := make(map[int]string)
	for i, mod := range m.Peptide.Modifications {
		if mod.Site < 0 || mod.Site > n+1 {
			errs = append(errs, fmt.Sprintf("modification %d (%s) site %d outside [0, %d]", i, mod.Name, mod.Site, n+1))
		}
		if mod.Confident && mod.Inferred {
			errs = append(errs, fmt.Sprintf("modification %d (%s) is both confident and inferred", i, mod.Name))
		}
		if other, ok := occupied[mod.Site]; ok && mod.Variable {
			errs = append(errs, fmt.Sprintf("modification %d (%s) shares site %d with %s", i, mod.Name, mod.Site, other))
		}
		if mod.Variable {
			occupied[mod.Site] = mod.Name
		}
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   "SpectrumMatch",
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// Name returns the match name in format "Key/Sequence"
func (m *SpectrumMatch) Name() string {
	if m.Peptide == nil {
		return m.Key
	}
	return fmt.Sprintf("%s/%s", m.Key, m.Peptide.Sequence)
}
