package inference

import (
	"sort"
)

// Evidence is the frozen copy of one match's confident sites for one mass,
// taken while scanning so that resolving never reads data it may have changed.
type Evidence struct {
	Key    string
	Scores map[int]float64 // confident site -> localization score
	Names  map[int]string  // confident site -> modification name
}

// ConfidentEvidenceIndex maps modification mass -> peptide sequence -> match key
// to the evidence of matches having that mass confidently placed.
type ConfidentEvidenceIndex map[float64]map[string]map[string]*Evidence

func (idx ConfidentEvidenceIndex) add(mass float64, sequence, key string, site int, score float64, name string) {
	bySeq, ok := idx[mass]
	if !ok {
		bySeq = make(map[string]map[string]*Evidence)
		idx[mass] = bySeq
	}
	byKey, ok := bySeq[sequence]
	if !ok {
		byKey = make(map[string]*Evidence)
		bySeq[sequence] = byKey
	}
	ev, ok := byKey[key]
	if !ok {
		ev = &Evidence{Key: key, Scores: make(map[int]float64), Names: make(map[int]string)}
		byKey[key] = ev
	}
	if old, ok := ev.Scores[site]; !ok || score > old {
		ev.Scores[site] = score
		ev.Names[site] = name
	}
}

// merge moves the content of other into idx. Keys are unique to one match,
// so evidence never collides.
func (idx ConfidentEvidenceIndex) merge(other ConfidentEvidenceIndex) {
	for mass, bySeq := range other {
		if _, ok := idx[mass]; !ok {
			idx[mass] = bySeq
			continue
		}
		for seq, byKey := range bySeq {
			if _, ok := idx[mass][seq]; !ok {
				idx[mass][seq] = byKey
				continue
			}
			for key, ev := range byKey {
				idx[mass][seq][key] = ev
			}
		}
	}
}

// Sequences returns the sequences indexed under mass, sorted
func (idx ConfidentEvidenceIndex) Sequences(mass float64) []string {
	seqs := make([]string, 0, len(idx[mass]))
	for seq := range idx[mass] {
		seqs = append(seqs, seq)
	}
	sort.Strings(seqs)
	return seqs
}

// Matches returns the evidence indexed under (mass, sequence), sorted by key
func (idx ConfidentEvidenceIndex) Matches(mass float64, sequence string) []*Evidence {
	byKey := idx[mass][sequence]
	evs := make([]*Evidence, 0, len(byKey))
	for _, ev := range byKey {
		evs = append(evs, ev)
	}
	sort.Slice(evs, func(i, j int) bool {
		return evs[i].Key < evs[j].Key
	})
	return evs
}

// Len returns the number of distinct matches in the index
func (idx ConfidentEvidenceIndex) Len() int {
	keys := make(map[string]struct{})
	for _, bySeq := range idx {
		for _, byKey := range bySeq {
			for key := range byKey {
				keys[key] = struct{}{}
			}
		}
	}
	return len(keys)
}

// AmbiguousSet holds the keys of matches with an unresolved placement
type AmbiguousSet map[string]struct{}

func (s AmbiguousSet) add(key string) {
	s[key] = struct{}{}
}

// Keys returns the keys, sorted
func (s AmbiguousSet) Keys() []string {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
