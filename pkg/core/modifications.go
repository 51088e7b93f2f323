// Package core provides modification parsing and management
package core

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// ModificationType is the topological type of a modification
type ModificationType int

const (
	ModResidue ModificationType = iota
	ModProteinNTerm
	ModProteinNTermResidue
	ModProteinCTerm
	ModProteinCTermResidue
	ModPeptideNTerm
	ModPeptideNTermResidue
	ModPeptideCTerm
	ModPeptideCTermResidue
)

var modTypeNames = map[ModificationType]string{
	ModResidue:             "residue",
	ModProteinNTerm:        "protein-nterm",
	ModProteinNTermResidue: "protein-nterm-residue",
	ModProteinCTerm:        "protein-cterm",
	ModProteinCTermResidue: "protein-cterm-residue",
	ModPeptideNTerm:        "peptide-nterm",
	ModPeptideNTermResidue: "peptide-nterm-residue",
	ModPeptideCTerm:        "peptide-cterm",
	ModPeptideCTermResidue: "peptide-cterm-residue",
}

func (t ModificationType) String() string {
	if name, ok := modTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ModificationType(%d)", int(t))
}

// ParseModificationType parses the names used in CSV and YAML modification lists.
// An empty string means residue.
func ParseModificationType(s string) (ModificationType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModResidue, nil
	}
	for t, name := range modTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown modification type '%s'", s)
}

// Modification is a modification definition as known to the provider
type Modification struct {
	Name     string
	Mass     float64          // monoisotopic mass shift
	Type     ModificationType // topological type
	Residues string           // target residues; empty means any residue
}

// targets reports whether the modification can sit on residue aa
func (m Modification) targets(aa byte) bool {
	return m.Residues == "" || strings.IndexByte(m.Residues, aa) >= 0
}

// PossibleSites returns the sites of sequence the modification can occupy,
// using 0 for the N-terminus and len(sequence)+1 for the C-terminus.
func (m Modification) PossibleSites(sequence string) []int {
	n := len(sequence)
	if n == 0 {
		return nil
	}
	var sites []int
	switch m.Type {
	case ModResidue:
		for i := 0; i < n; i++ {
			if m.targets(sequence[i]) {
				sites = append(sites, i+1)
			}
		}
	case ModPeptideNTerm, ModProteinNTerm:
		sites = append(sites, 0)
	case ModPeptideNTermResidue, ModProteinNTermResidue:
		if m.targets(sequence[0]) {
			sites = append(sites, 1)
		}
	case ModPeptideCTerm, ModProteinCTerm:
		sites = append(sites, n+1)
	case ModPeptideCTermResidue, ModProteinCTermResidue:
		if m.targets(sequence[n-1]) {
			sites = append(sites, n)
		}
	}
	return sites
}

// ModDatabase stores modification definitions
type ModDatabase struct {
	mods   map[string]Modification // name -> definition
	byMass map[float64][]string    // rounded mass -> names
}

// NewModDatabase creates an empty modification database
func NewModDatabase() *ModDatabase {
	return &ModDatabase{
		mods:   make(map[string]Modification),
		byMass: make(map[float64][]string),
	}
}

// LoadFromCSV loads modifications from a CSV file (format: mod,massshift,aa,type)
func (db *ModDatabase) LoadFromCSV(r io.Reader) error {
	scanner := bufio.NewScanner(r)

	// Skip header line
	if scanner.Scan() {
		// header line
	}

	lineNum := 1
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			return fmt.Errorf("line %d: invalid format, expected at least 2 comma-separated fields", lineNum)
		}

		mod := Modification{Name: strings.TrimSpace(parts[0])}
		massStr := strings.TrimSpace(parts[1])

		mass, err := strconv.ParseFloat(massStr, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid mass value '%s': %w", lineNum, massStr, err)
		}
		mod.Mass = mass

		if len(parts) > 2 {
			mod.Residues = strings.ToUpper(strings.TrimSpace(parts[2]))
		}
		if len(parts) > 3 {
			mod.Type, err = ParseModificationType(parts[3])
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNum, err)
			}
		}

		db.Add(mod)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading CSV: %w", err)
	}

	return nil
}

// GetMass returns the mass shift for a modification name
func (db *ModDatabase) GetMass(name string) (float64, bool) {
	mod, ok := db.mods[name]
	return mod.Mass, ok
}

// Modification returns the definition of a modification name
func (db *ModDatabase) Modification(name string) (Modification, bool) {
	mod, ok := db.mods[name]
	return mod, ok
}

// ModificationsWithMass returns every definition sharing the given mass, sorted by name
func (db *ModDatabase) ModificationsWithMass(mass float64) []Modification {
	names := db.byMass[MassKey(mass)]
	mods := make([]Modification, 0, len(names))
	for _, name := range names {
		mods = append(mods, db.mods[name])
	}
	return mods
}

// Add adds or updates a modification
func (db *ModDatabase) Add(mod Modification) {
	if old, ok := db.mods[mod.Name]; ok {
		db.removeMass(old)
	}
	db.mods[mod.Name] = mod

	key := MassKey(mod.Mass)
	names := append(db.byMass[key], mod.Name)
	sort.Strings(names)
	db.byMass[key] = names
}

func (db *ModDatabase) removeMass(mod Modification) {
	key := MassKey(mod.Mass)
	names := db.byMass[key]
	for i, name := range names {
		if name == mod.Name {
			db.byMass[key] = append(names[:i:i], names[i+1:]...)
			break
		}
	}
}

// Len returns the number of known modifications
func (db *ModDatabase) Len() int {
	return len(db.mods)
}

// ParseModString parses a placement string like "Carbamidomethyl@C2;Phospho@S4!;Acetyl@N-term".
// A trailing '!' marks a confident site, a leading '+' marks a fixed modification.
func (db *ModDatabase) ParseModString(modStr string, sequence string) ([]*ModificationPlacement, error) {
	if modStr == "" {
		return nil, nil
	}

	var mods []*ModificationPlacement
	parts := strings.Split(modStr, ";")

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		placement := &ModificationPlacement{Variable: true}
		if strings.HasPrefix(part, "+") {
			placement.Variable = false
			part = part[1:]
		}
		if strings.HasSuffix(part, "!") {
			placement.Confident = true
			part = part[:len(part)-1]
		}

		// Split by @
		atParts := strings.Split(part, "@")
		if len(atParts) != 2 {
			return nil, fmt.Errorf("invalid modification format '%s', expected 'name@position' or 'mass@position'", part)
		}

		nameOrMass := strings.TrimSpace(atParts[0])
		posStr := strings.TrimSpace(atParts[1])

		name, err := db.resolveName(nameOrMass)
		if err != nil {
			return nil, err
		}
		placement.Name = name

		site, err := parsePosition(posStr, sequence)
		if err != nil {
			return nil, fmt.Errorf("invalid position '%s': %w", posStr, err)
		}
		placement.Site = site

		mods = append(mods, placement)
	}

	return mods, nil
}

// resolveName accepts a modification name or a mass matching exactly one known modification
func (db *ModDatabase) resolveName(nameOrMass string) (string, error) {
	if _, ok := db.mods[nameOrMass]; ok {
		return nameOrMass, nil
	}
	mass, err := strconv.ParseFloat(nameOrMass, 64)
	if err != nil {
		return "", fmt.Errorf("unknown modification '%s'", nameOrMass)
	}
	candidates := db.ModificationsWithMass(mass)
	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("no modification with mass %s", nameOrMass)
	case 1:
		return candidates[0].Name, nil
	default:
		return "", fmt.Errorf("mass %s is ambiguous between %d modifications", nameOrMass, len(candidates))
	}
}

// parsePosition parses a 1-based position that may carry its residue letter
// Examples: "4", "S4", "N-term" (0), "C-term" (len+1)
func parsePosition(posStr string, sequence string) (int, error) {
	posStr = strings.TrimSpace(posStr)

	switch strings.ToLower(posStr) {
	case "n-term", "nterm":
		return 0, nil
	case "c-term", "cterm":
		return len(sequence) + 1, nil
	}

	// Remove leading amino acid letter if present
	numStr := strings.TrimLeft(posStr, "ACDEFGHIKLMNPQRSTVWY")

	pos, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid position number: %w", err)
	}
	if pos < 0 || pos > len(sequence)+1 {
		return 0, fmt.Errorf("position %d outside peptide of length %d", pos, len(sequence))
	}

	if aa := posStr[:len(posStr)-len(numStr)]; aa != "" {
		if pos < 1 || pos > len(sequence) || sequence[pos-1] != aa[0] {
			return 0, fmt.Errorf("residue %s does not match sequence at %d", aa, pos)
		}
	}

	return pos, nil
}

// DefaultModDatabase returns a ModDatabase pre-loaded with common modifications
func DefaultModDatabase() *ModDatabase {
	db := NewModDatabase()

	// Common modifications from unimod
	db.Add(Modification{Name: "Acetyl", Mass: 42.010565, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "Acetyl N-term", Mass: 42.010565, Type: ModPeptideNTerm})
	db.Add(Modification{Name: "Amidated", Mass: -0.984016, Type: ModPeptideCTerm})
	db.Add(Modification{Name: "Biotin", Mass: 226.077598, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "Carbamidomethyl", Mass: 57.021464, Type: ModResidue, Residues: "C"})
	db.Add(Modification{Name: "Carbamyl", Mass: 43.005814, Type: ModPeptideNTerm})
	db.Add(Modification{Name: "Carboxymethyl", Mass: 58.005479, Type: ModResidue, Residues: "C"})
	db.Add(Modification{Name: "Deamidated", Mass: 0.984016, Type: ModResidue, Residues: "NQ"})
	db.Add(Modification{Name: "Met->Hse", Mass: -29.992806, Type: ModPeptideCTermResidue, Residues: "M"})
	db.Add(Modification{Name: "Met->Hsl", Mass: -48.003371, Type: ModPeptideCTermResidue, Residues: "M"})
	db.Add(Modification{Name: "NIPCAM", Mass: 99.068414, Type: ModResidue, Residues: "C"})
	db.Add(Modification{Name: "Phospho", Mass: 79.966331, Type: ModResidue, Residues: "STY"})
	db.Add(Modification{Name: "Dehydrated", Mass: -18.010565, Type: ModResidue, Residues: "ST"})
	db.Add(Modification{Name: "Propionamide", Mass: 71.037114, Type: ModResidue, Residues: "C"})
	db.Add(Modification{Name: "Pyro-carbamidomethyl", Mass: 39.994915, Type: ModPeptideNTermResidue, Residues: "C"})
	db.Add(Modification{Name: "Glu->pyro-Glu", Mass: -18.010565, Type: ModPeptideNTermResidue, Residues: "E"})
	db.Add(Modification{Name: "Gln->pyro-Glu", Mass: -17.026549, Type: ModPeptideNTermResidue, Residues: "Q"})
	db.Add(Modification{Name: "Cation:Na", Mass: 21.981943, Type: ModResidue, Residues: "DE"})
	db.Add(Modification{Name: "Methyl", Mass: 14.01565, Type: ModResidue, Residues: "KR"})
	db.Add(Modification{Name: "Oxidation", Mass: 15.994915, Type: ModResidue, Residues: "M"})
	db.Add(Modification{Name: "Dimethyl", Mass: 28.0313, Type: ModResidue, Residues: "KR"})
	db.Add(Modification{Name: "Trimethyl", Mass: 42.04695, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "Methylthio", Mass: 45.987721, Type: ModResidue, Residues: "C"})
	db.Add(Modification{Name: "Sulfo", Mass: 79.956815, Type: ModResidue, Residues: "Y"})
	db.Add(Modification{Name: "Hex", Mass: 162.052824, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "HexNAc", Mass: 203.079373, Type: ModResidue, Residues: "NST"})
	db.Add(Modification{Name: "Propionyl", Mass: 56.026215, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "TMT6plex", Mass: 229.162932, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "TMT6plex N-term", Mass: 229.162932, Type: ModPeptideNTerm})
	db.Add(Modification{Name: "TMTPro", Mass: 304.207146, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "TMTPro N-term", Mass: 304.207146, Type: ModPeptideNTerm})
	db.Add(Modification{Name: "iTRAQ4plex", Mass: 144.102063, Type: ModResidue, Residues: "K"})
	db.Add(Modification{Name: "iTRAQ4plex N-term", Mass: 144.102063, Type: ModPeptideNTerm})

	return db
}
