package inference

import (
	"fmt"
	"sort"

	"github.com/ChrisMcGann/ModLoc/pkg/align"
	"github.com/ChrisMcGann/ModLoc/pkg/assign"
	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// siteTable accumulates the best score and the modification name per site
// for one mass.
type siteTable struct {
	scores map[int]float64
	names  map[int]string
}

func newSiteTable() *siteTable {
	return &siteTable{scores: make(map[int]float64), names: make(map[int]string)}
}

func (t *siteTable) offer(site int, score float64, name string) {
	if old, ok := t.scores[site]; ok && old >= score {
		return
	}
	t.scores[site] = score
	if name != "" {
		t.names[site] = name
	}
}

func (t *siteTable) ensure(site int, name string) {
	if _, ok := t.scores[site]; !ok {
		t.scores[site] = 0
	}
	if _, ok := t.names[site]; !ok && name != "" {
		t.names[site] = name
	}
}

// resolveKey resolves one ambiguous match and writes back its placements.
func (e *Engine) resolveKey(key string, index ConfidentEvidenceIndex, report *Report) error {
	m, err := e.store.Match(key)
	if err != nil {
		return fmt.Errorf("failed to read spectrum match %s: %w", key, err)
	}

	mods, changed, err := e.resolve(m, index)
	if err != nil {
		return err
	}
	if !changed {
		report.Unresolved++
		return nil
	}

	if err := e.store.SetModifications(key, mods); err != nil {
		return fmt.Errorf("failed to update spectrum match %s: %w", key, err)
	}
	report.Resolved++
	for _, mp := range mods {
		if mp.Confident && mp.Variable {
			if m.Evidence != nil {
				m.Evidence.ScoringOrNew(mp.Name).SetConfident(mp.Site)
			}
			report.Confident++
		}
		if mp.Inferred {
			report.Inferred++
		}
	}
	return nil
}

// resolve computes the new placements of m from the evidence in index. It
// leaves m untouched; changed is false when no related evidence exists, in
// which case m keeps its placements. Confident placements are pinned to
// their sites.
func (e *Engine) resolve(m *core.SpectrumMatch, index ConfidentEvidenceIndex) ([]*core.ModificationPlacement, bool, error) {
	pep := m.Peptide
	placed, err := e.variablePlacements(pep)
	if err != nil {
		return nil, false, err
	}

	masses := make([]float64, 0, len(placed))
	occupied := make(map[int]bool)
	occurrences := 0
	for mass, mps := range placed {
		masses = append(masses, mass)
		for _, mp := range mps {
			occupied[mp.Site] = true
		}
		occurrences += len(mps)
	}
	sort.Float64s(masses)
	if len(occupied) != occurrences {
		return nil, false, &IntegrityError{Key: m.Key, Sequence: pep.Sequence, Expected: occurrences, Actual: len(occupied)}
	}

	tables := make(map[float64]*siteTable)
	reserved := make(map[int]bool)
	for _, mass := range masses {
		t := newSiteTable()
		if e.collectRelated(m, mass, index, t) {
			tables[mass] = t
			continue
		}
		for _, mp := range placed[mass] {
			reserved[mp.Site] = true
		}
	}
	if len(tables) == 0 {
		return nil, false, nil
	}

	for mass := range tables {
		for _, mp := range placed[mass] {
			if mp.Confident {
				reserved[mp.Site] = true
			}
		}
	}

	var problems []assign.Problem
	for _, mass := range masses {
		t, ok := tables[mass]
		if !ok {
			continue
		}
		if err := e.foldOwn(m, mass, placed[mass], t); err != nil {
			return nil, false, err
		}
		scores := make(map[int]float64, len(t.scores))
		for site, score := range t.scores {
			if !reserved[site] {
				scores[site] = score
			}
		}
		problems = append(problems, assign.Problem{Mass: mass, Occurrences: len(placed[mass]) - pinnedCount(placed[mass]), Scores: scores})
	}

	solution := assign.Solve(problems)
	if solution.Pairs() != assign.Required(problems) {
		return nil, false, &IntegrityError{
			Key:      m.Key,
			Sequence: pep.Sequence,
			Expected: assign.Required(problems) + len(reserved),
			Actual:   solution.Pairs() + len(reserved),
		}
	}

	updated := make(map[*core.ModificationPlacement]*core.ModificationPlacement)
	for _, mass := range masses {
		t, ok := tables[mass]
		if !ok {
			continue
		}
		for old, mp := range e.place(placed[mass], solution.Sites[mass], t) {
			updated[old] = mp
		}
	}

	mods := make([]*core.ModificationPlacement, 0, len(pep.Modifications))
	for _, mp := range pep.Modifications {
		if nmp, ok := updated[mp]; ok {
			mods = append(mods, nmp)
			continue
		}
		mods = append(mods, mp.Clone())
	}
	return mods, true, nil
}

func pinnedCount(placements []*core.ModificationPlacement) int {
	n := 0
	for _, mp := range placements {
		if mp.Confident {
			n++
		}
	}
	return n
}

// collectRelated offers to t the confident sites of other matches whose
// sequence equals, contains or is contained in the sequence of m. It
// reports whether any evidence was found.
func (e *Engine) collectRelated(m *core.SpectrumMatch, mass float64, index ConfidentEvidenceIndex, t *siteTable) bool {
	seq := m.Peptide.Sequence
	found := false
	for _, other := range index.Sequences(mass) {
		bonus, shifts, ok := relation(seq, other)
		if !ok {
			continue
		}
		for _, ev := range index.Matches(mass, other) {
			if ev.Key == m.Key {
				continue
			}
			for site, score := range ev.Scores {
				for _, shift := range shifts {
					s := site + shift
					if seq != other && (site < 1 || site > len(other) || s < 1 || s > len(seq)) {
						continue
					}
					t.offer(s, score+bonus, ev.Names[site])
					found = true
				}
			}
		}
	}
	return found
}

// foldOwn adds the match's own scores for mass to t, boosting its confident
// sites, and makes every possible site of the mass and every current
// placement site eligible.
func (e *Engine) foldOwn(m *core.SpectrumMatch, mass float64, placements []*core.ModificationPlacement, t *siteTable) error {
	seq := m.Peptide.Sequence

	for _, name := range m.Evidence.Names() {
		mod, ok := e.mods.Modification(name)
		if !ok {
			return &ModificationNotFoundError{Name: name}
		}
		if core.MassKey(mod.Mass) != mass {
			continue
		}
		scoring := m.Evidence.Scoring(name)
		for site, score := range scoring.Scores(e.opts.Mode) {
			if scoring.IsConfident(site) {
				score += ConfidentOwnOffset
			}
			t.offer(site, score, name)
		}
		for _, site := range scoring.ConfidentSites() {
			t.offer(site, scoring.Score(site, e.opts.Mode)+ConfidentOwnOffset, name)
		}
	}

	for _, mp := range placements {
		t.ensure(mp.Site, mp.Name)
	}

	for _, mod := range e.mods.ModificationsWithMass(mass) {
		for _, site := range mod.PossibleSites(seq) {
			t.ensure(site, mod.Name)
		}
	}
	return nil
}

// place moves the placements of one mass onto the chosen sites. Confident
// placements stay put; the others go to the chosen sites with the least
// movement. Flags follow the combined score.
func (e *Engine) place(placements []*core.ModificationPlacement, chosen []int, t *siteTable) map[*core.ModificationPlacement]*core.ModificationPlacement {
	result := make(map[*core.ModificationPlacement]*core.ModificationPlacement, len(placements))
	var moving []*core.ModificationPlacement
	for _, mp := range placements {
		if mp.Confident {
			result[mp] = mp.Clone()
			continue
		}
		moving = append(moving, mp)
	}

	candidates := make(map[int][]int, len(moving))
	for _, mp := range moving {
		candidates[mp.Site] = chosen
	}
	mapping := align.AlignAllSets(candidates)

	for _, mp := range moving {
		nmp := mp.Clone()
		if site := mapping[mp.Site]; site != align.Absent {
			nmp.Site = site
		}
		if name, ok := t.names[nmp.Site]; ok {
			nmp.Name = name
		}
		switch score := t.scores[nmp.Site]; {
		case score > ConfidentOwnOffset:
			nmp.Confident = true
			nmp.Inferred = false
		case score > ConfidentRelatedOffset:
			nmp.Inferred = true
		case nmp.Site != mp.Site:
			// inferred for the site it left
			nmp.Inferred = false
		}
		result[mp] = nmp
	}
	return result
}
