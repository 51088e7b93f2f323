// Package filter provides clean-up of localization evidence before inference
package filter

import (
	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Config holds filtering configuration
type Config struct {
	MinScore float64          // Drop site scores below this value (0 = no floor)
	Mode     core.ScoringMode // Score compared against MinScore
}

// Stats counts what Apply removed
type Stats struct {
	OutOfRange int // scored sites outside the peptide
	BelowFloor int // sites scoring under MinScore
	Scorings   int // modification scorings left empty
}

// Apply validates a match and cleans its evidence. Confident sites are
// never dropped for their score.
func (c *Config) Apply(m *core.SpectrumMatch) (Stats, error) {
	var stats Stats
	if err := m.Validate(); err != nil {
		return stats, err
	}
	if m.Evidence == nil {
		return stats, nil
	}

	// Filter sites outside the peptide first
	stats.OutOfRange = removeOutOfRange(m)

	// Apply the score floor
	if c.MinScore > 0 {
		stats.BelowFloor = c.removeBelowFloor(m.Evidence)
	}

	stats.Scorings = RemoveEmptyScorings(m)
	return stats, nil
}

// removeOutOfRange drops scores on sites outside [0, len+1]
func removeOutOfRange(m *core.SpectrumMatch) int {
	last := len(m.Peptide.Sequence) + 1
	removed := 0
	for _, name := range m.Evidence.Names() {
		scoring := m.Evidence.Scoring(name)
		for _, site := range sites(scoring) {
			if site < 0 || site > last {
				scoring.RemoveSite(site)
				removed++
			}
		}
	}
	return removed
}

// removeBelowFloor drops non-confident sites scoring under MinScore
func (c *Config) removeBelowFloor(record *core.EvidenceRecord) int {
	removed := 0
	for _, name := range record.Names() {
		scoring := record.Scoring(name)
		for _, site := range scoring.ScoredSites() {
			if scoring.IsConfident(site) {
				continue
			}
			if scoring.Score(site, c.Mode) < c.MinScore {
				scoring.RemoveSite(site)
				removed++
			}
		}
	}
	return removed
}

// RemoveEmptyScorings drops scorings without sites. A record left empty is
// replaced by nil.
func RemoveEmptyScorings(m *core.SpectrumMatch) int {
	if m.Evidence == nil {
		return 0
	}
	removed := 0
	for _, name := range m.Evidence.Names() {
		if len(sites(m.Evidence.Scoring(name))) == 0 {
			m.Evidence.RemoveScoring(name)
			removed++
		}
	}
	if len(m.Evidence.Names()) == 0 {
		m.Evidence = nil
	}
	return removed
}

func sites(s *core.ModificationScoring) []int {
	all := s.ScoredSites()
	for _, site := range s.ConfidentSites() {
		found := false
		for _, other := range all {
			if other == site {
				found = true
				break
			}
		}
		if !found {
			all = append(all, site)
		}
	}
	return all
}
