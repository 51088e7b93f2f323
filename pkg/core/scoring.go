package core

import (
	"fmt"
	"sort"
	"strings"
)

// ScoringMode selects the localization score used for a whole run
type ScoringMode int

const (
	Probabilistic ScoringMode = iota
	Delta
)

func (m ScoringMode) String() string {
	switch m {
	case Probabilistic:
		return "probabilistic"
	case Delta:
		return "delta"
	}
	return fmt.Sprintf("ScoringMode(%d)", int(m))
}

// ParseScoringMode parses "probabilistic" or "delta"
func ParseScoringMode(s string) (ScoringMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "probabilistic", "prob":
		return Probabilistic, nil
	case "delta":
		return Delta, nil
	}
	return 0, fmt.Errorf("invalid scoring mode '%s', must be probabilistic or delta", s)
}

// ModificationScoring holds the site scores of one modification on one match
type ModificationScoring struct {
	probabilistic map[int]float64
	delta         map[int]float64
	confident     map[int]struct{}
}

// NewModificationScoring creates an empty scoring
func NewModificationScoring() *ModificationScoring {
	return &ModificationScoring{
		probabilistic: make(map[int]float64),
		delta:         make(map[int]float64),
		confident:     make(map[int]struct{}),
	}
}

// SetProbabilistic sets the probabilistic score of a site
func (s *ModificationScoring) SetProbabilistic(site int, score float64) {
	s.probabilistic[site] = score
}

// SetDelta sets the delta score of a site
func (s *ModificationScoring) SetDelta(site int, score float64) {
	s.delta[site] = score
}

// Probabilistic returns the probabilistic score of a site, 0 if unscored
func (s *ModificationScoring) Probabilistic(site int) float64 {
	return s.probabilistic[site]
}

// Delta returns the delta score of a site, 0 if unscored
func (s *ModificationScoring) Delta(site int) float64 {
	return s.delta[site]
}

// Score returns the score of a site for the given mode
func (s *ModificationScoring) Score(site int, mode ScoringMode) float64 {
	if mode == Delta {
		return s.delta[site]
	}
	return s.probabilistic[site]
}

// Scores returns the site scores for the given mode
func (s *ModificationScoring) Scores(mode ScoringMode) map[int]float64 {
	if mode == Delta {
		return s.delta
	}
	return s.probabilistic
}

// ScoredSites returns every site carrying a probabilistic or delta score, ascending
func (s *ModificationScoring) ScoredSites() []int {
	seen := make(map[int]struct{}, len(s.probabilistic))
	for site := range s.probabilistic {
		seen[site] = struct{}{}
	}
	for site := range s.delta {
		seen[site] = struct{}{}
	}
	return sortedSites(seen)
}

// RemoveSite drops every score and the confident flag of a site
func (s *ModificationScoring) RemoveSite(site int) {
	delete(s.probabilistic, site)
	delete(s.delta, site)
	delete(s.confident, site)
}

// SetConfident marks a site as confidently localized
func (s *ModificationScoring) SetConfident(site int) {
	s.confident[site] = struct{}{}
}

// IsConfident reports whether a site is confidently localized
func (s *ModificationScoring) IsConfident(site int) bool {
	_, ok := s.confident[site]
	return ok
}

// ConfidentSites returns the confidently localized sites, ascending
func (s *ModificationScoring) ConfidentSites() []int {
	return sortedSites(s.confident)
}

func sortedSites(set map[int]struct{}) []int {
	sites := make([]int, 0, len(set))
	for site := range set {
		sites = append(sites, site)
	}
	sort.Ints(sites)
	return sites
}

// EvidenceRecord holds the scorings of a match keyed by modification name
type EvidenceRecord struct {
	scorings map[string]*ModificationScoring
}

// NewEvidenceRecord creates an empty record
func NewEvidenceRecord() *EvidenceRecord {
	return &EvidenceRecord{scorings: make(map[string]*ModificationScoring)}
}

// AddScoring adds or replaces the scoring of a modification
func (r *EvidenceRecord) AddScoring(name string, scoring *ModificationScoring) {
	r.scorings[name] = scoring
}

// Scoring returns the scoring of a modification, nil if it was never scored
func (r *EvidenceRecord) Scoring(name string) *ModificationScoring {
	if r == nil {
		return nil
	}
	return r.scorings[name]
}

// RemoveScoring drops the scoring of a modification
func (r *EvidenceRecord) RemoveScoring(name string) {
	delete(r.scorings, name)
}

// ScoringOrNew returns the scoring of a modification, creating it on first use
func (r *EvidenceRecord) ScoringOrNew(name string) *ModificationScoring {
	s, ok := r.scorings[name]
	if !ok {
		s = NewModificationScoring()
		r.scorings[name] = s
	}
	return s
}

// Names returns the scored modification names, sorted
func (r *EvidenceRecord) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.scorings))
	for name := range r.scorings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
