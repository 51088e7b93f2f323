package inference

import (
	"reflect"
	"testing"
)

func TestOccurrences(t *testing.T) {
	tests := []struct {
		name        string
		short, long string
		want        []int
	}{
		{"single", "PEP", "AKPEPTIDE", []int{2}},
		{"repeated", "PEPK", "PEPKPEPKR", []int{0, 4}},
		{"non-overlapping", "AA", "AAAA", []int{0, 2}},
		{"overlap skipped", "AA", "AAA", []int{0}},
		{"absent", "XYZ", "PEPTIDE", nil},
		{"longer than target", "PEPTIDES", "PEPTIDE", nil},
		{"empty", "", "PEPTIDE", nil},
		{"equal", "PEPTIDE", "PEPTIDE", []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Occurrences(tt.short, tt.long)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Occurrences(%q, %q) = %v, want %v", tt.short, tt.long, got, tt.want)
			}
		})
	}
}

func TestRelation(t *testing.T) {
	tests := []struct {
		name       string
		seq, other string
		wantBonus  float64
		wantShifts []int
		wantOK     bool
	}{
		{"identical", "PEPSIDSK", "PEPSIDSK", ConfidentOtherOffset, []int{0}, true},
		{"other is superstring", "PEPSIDSK", "AKPEPSIDSK", ConfidentRelatedOffset, []int{-2}, true},
		{"other is substring", "AKPEPSIDSK", "PEPSIDSK", ConfidentRelatedOffset, []int{2}, true},
		{"substring twice", "SKASKA", "SK", ConfidentRelatedOffset, []int{0, 3}, true},
		{"unrelated", "PEPSIDSK", "GGSGGSK", 0, nil, false},
		{"same length differs", "PEPSIDSK", "PEPSIDTK", 0, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bonus, shifts, ok := relation(tt.seq, tt.other)
			if ok != tt.wantOK || bonus != tt.wantBonus || !reflect.DeepEqual(shifts, tt.wantShifts) {
				t.Errorf("relation(%q, %q) = (%v, %v, %v), want (%v, %v, %v)",
					tt.seq, tt.other, bonus, shifts, ok, tt.wantBonus, tt.wantShifts, tt.wantOK)
			}
		})
	}
}

func TestConfidentEvidenceIndex(t *testing.T) {
	left := make(ConfidentEvidenceIndex)
	left.add(79.9663, "PEPSIDSK", "b", 4, 40, "Phospho")
	left.add(79.9663, "PEPSIDSK", "b", 4, 10, "Phospho")
	left.add(15.9949, "MPEPK", "c", 1, 90, "Oxidation")

	right := make(ConfidentEvidenceIndex)
	right.add(79.9663, "PEPSIDSK", "a", 7, 55, "Phospho")
	right.add(79.9663, "AKPEPSIDSK", "d", 6, 12, "Phospho")

	left.merge(right)

	if got := left.Sequences(79.9663); !reflect.DeepEqual(got, []string{"AKPEPSIDSK", "PEPSIDSK"}) {
		t.Errorf("Sequences() = %v", got)
	}
	evs := left.Matches(79.9663, "PEPSIDSK")
	if len(evs) != 2 || evs[0].Key != "a" || evs[1].Key != "b" {
		t.Fatalf("Matches() = %v", evs)
	}
	if evs[1].Scores[4] != 40 {
		t.Errorf("expected the best score of a site to be kept, got %v", evs[1].Scores[4])
	}
	if left.Len() != 4 {
		t.Errorf("Len() = %d, want 4", left.Len())
	}
	if got := left.Sequences(42.0106); len(got) != 0 {
		t.Errorf("expected no sequences for an unindexed mass, got %v", got)
	}
}

func TestAmbiguousSet(t *testing.T) {
	s := make(AmbiguousSet)
	s.add("y2")
	s.add("y1")
	s.add("y2")
	if got := s.Keys(); !reflect.DeepEqual(got, []string{"y1", "y2"}) {
		t.Errorf("Keys() = %v", got)
	}
}
