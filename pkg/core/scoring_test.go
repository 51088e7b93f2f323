package core

import (
	"reflect"
	"testing"
)

func TestModificationScoring(t *testing.T) {
	s := NewModificationScoring()
	s.SetProbabilistic(4, 50)
	s.SetProbabilistic(7, 40)
	s.SetDelta(4, 12.5)
	s.SetDelta(9, 3)
	s.SetConfident(4)

	if got := s.Score(4, Probabilistic); got != 50 {
		t.Errorf("Score(4, Probabilistic) = %v, want 50", got)
	}
	if got := s.Score(4, Delta); got != 12.5 {
		t.Errorf("Score(4, Delta) = %v, want 12.5", got)
	}
	if got := s.Score(5, Delta); got != 0 {
		t.Errorf("unscored site should score 0, got %v", got)
	}
	if got := s.ScoredSites(); !reflect.DeepEqual(got, []int{4, 7, 9}) {
		t.Errorf("ScoredSites() = %v", got)
	}
	if !s.IsConfident(4) || s.IsConfident(7) {
		t.Errorf("unexpected confident flags %v", s.ConfidentSites())
	}

	s.RemoveSite(4)
	if s.IsConfident(4) || s.Probabilistic(4) != 0 || s.Delta(4) != 0 {
		t.Errorf("RemoveSite(4) left data behind")
	}
}

func TestEvidenceRecord(t *testing.T) {
	r := NewEvidenceRecord()
	r.ScoringOrNew("Phospho").SetProbabilistic(3, 10)
	r.AddScoring("Oxidation", NewModificationScoring())

	if got := r.Names(); !reflect.DeepEqual(got, []string{"Oxidation", "Phospho"}) {
		t.Errorf("Names() = %v", got)
	}
	if r.ScoringOrNew("Phospho").Probabilistic(3) != 10 {
		t.Errorf("ScoringOrNew() replaced an existing scoring")
	}
	if r.Scoring("Acetyl") != nil {
		t.Errorf("expected nil scoring for unscored modification")
	}

	r.RemoveScoring("Oxidation")
	if got := r.Names(); !reflect.DeepEqual(got, []string{"Phospho"}) {
		t.Errorf("Names() after RemoveScoring = %v", got)
	}

	var missing *EvidenceRecord
	if missing.Scoring("Phospho") != nil || missing.Names() != nil {
		t.Errorf("nil record should behave as empty")
	}
}

func TestParseScoringMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ScoringMode
		wantErr bool
	}{
		{"", Probabilistic, false},
		{"Probabilistic", Probabilistic, false},
		{"delta", Delta, false},
		{"phosphoRS", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseScoringMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScoringMode(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseScoringMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
