package psmtsv

import (
	"strings"
	"testing"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

const sample = "spectrum_key\ttitle\tsequence\tmodifications\tscores\n" +
	"run1.100.100.2\tscan 100\tPEPSIDSK\tPhospho@S4!\tPhospho:4=40/3.5!,7=12/0.4\n" +
	"\n" +
	"run1.101.101.3\t\tmcdsek\t+Carbamidomethyl@C2;Oxidation@M1\t\n"

func TestReader(t *testing.T) {
	r := NewReader(strings.NewReader(sample), nil)

	var matches []*core.SpectrumMatch
	for r.Next() {
		matches = append(matches, r.Match())
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}

	first := matches[0]
	if first.Key != "run1.100.100.2" || first.SpectrumTitle != "scan 100" || first.Peptide.Sequence != "PEPSIDSK" {
		t.Errorf("unexpected first match %+v", first)
	}
	if got := first.Peptide.ModString(); got != "Phospho@4!" {
		t.Errorf("ModString() = %q", got)
	}
	phospho := first.Evidence.Scoring("Phospho")
	if phospho == nil {
		t.Fatal("missing Phospho scoring")
	}
	if phospho.Probabilistic(4) != 40 || phospho.Delta(4) != 3.5 || phospho.Probabilistic(7) != 12 {
		t.Errorf("unexpected scores %v", phospho.Scores(core.Probabilistic))
	}
	if !phospho.IsConfident(4) || phospho.IsConfident(7) {
		t.Errorf("ConfidentSites() = %v", phospho.ConfidentSites())
	}

	second := matches[1]
	if second.Peptide.Sequence != "MCDSEK" {
		t.Errorf("sequence should be upper-cased, got %s", second.Peptide.Sequence)
	}
	if second.Evidence != nil {
		t.Error("expected a nil evidence record for an empty scores field")
	}
	if len(second.Peptide.Modifications) != 2 || second.Peptide.Modifications[0].Variable {
		t.Errorf("unexpected placements %v", second.Peptide.Modifications)
	}
}

func TestReaderColumnOrder(t *testing.T) {
	input := "sequence\tspectrum_key\n" +
		"PEPTIDE\tk1\n"
	r := NewReader(strings.NewReader(input), nil)
	if !r.Next() {
		t.Fatalf("Next() = false, err = %v", r.Err())
	}
	m := r.Match()
	if m.Key != "k1" || m.Peptide.Sequence != "PEPTIDE" || m.Evidence != nil {
		t.Errorf("unexpected match %+v", m)
	}
	if r.Next() {
		t.Error("expected end of input")
	}
}

func TestReaderErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing key column", "title\tsequence\nx\tPEPTIDE\n"},
		{"empty key", "spectrum_key\tsequence\n\tPEPTIDE\n"},
		{"empty sequence", "spectrum_key\tsequence\nk\t\n"},
		{"bad modification", "spectrum_key\tsequence\tmodifications\nk\tPEPTIDE\tPhospho@S2\n"},
		{"unknown modification", "spectrum_key\tsequence\tmodifications\nk\tPEPTIDE\tFrobnicated@2\n"},
		{"bad score", "spectrum_key\tsequence\tscores\nk\tPEPTIDE\tPhospho:2=abc/\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), nil)
			for r.Next() {
			}
			if r.Err() == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestEmptyInput(t *testing.T) {
	r := NewReader(strings.NewReader(""), nil)
	if r.Next() {
		t.Error("Next() = true on empty input")
	}
	if r.Err() != nil {
		t.Errorf("Err() = %v", r.Err())
	}
}

func TestParseScores(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, rec *core.EvidenceRecord)
	}{
		{
			name:  "empty",
			input: "",
			check: func(t *testing.T, rec *core.EvidenceRecord) {
				if rec != nil {
					t.Error("expected nil record")
				}
			},
		},
		{
			name:  "delta only",
			input: "Phospho:3=/2.5",
			check: func(t *testing.T, rec *core.EvidenceRecord) {
				s := rec.Scoring("Phospho")
				if _, ok := s.Scores(core.Probabilistic)[3]; ok {
					t.Error("unexpected probabilistic score")
				}
				if s.Delta(3) != 2.5 {
					t.Errorf("Delta(3) = %v", s.Delta(3))
				}
			},
		},
		{
			name:  "confident without scores",
			input: "Acetyl N-term:0=/!",
			check: func(t *testing.T, rec *core.EvidenceRecord) {
				if !rec.Scoring("Acetyl N-term").IsConfident(0) {
					t.Error("site 0 should be confident")
				}
			},
		},
		{
			name:  "name containing a colon",
			input: "Cation:Na:5=7/",
			check: func(t *testing.T, rec *core.EvidenceRecord) {
				if rec.Scoring("Cation:Na").Probabilistic(5) != 7 {
					t.Errorf("Names() = %v", rec.Names())
				}
			},
		},
		{name: "missing name", input: ":4=1/1", wantErr: true},
		{name: "missing equals", input: "Phospho:4", wantErr: true},
		{name: "bad site", input: "Phospho:x=1/1", wantErr: true},
		{name: "too many values", input: "Phospho:4=1/2/3", wantErr: true},
		{name: "bad delta", input: "Phospho:4=1/y", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := ParseScores(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScores() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestFormatScores(t *testing.T) {
	rec := core.NewEvidenceRecord()
	s := rec.ScoringOrNew("Phospho")
	s.SetProbabilistic(7, 12)
	s.SetProbabilistic(4, 40.25)
	s.SetDelta(4, 3)
	s.SetConfident(4)
	rec.ScoringOrNew("Oxidation").SetConfident(1)

	got := FormatScores(rec)
	want := "Oxidation:1=/!;Phospho:4=40.25/3!,7=12/"
	if got != want {
		t.Errorf("FormatScores() = %q, want %q", got, want)
	}

	parsed, err := ParseScores(got)
	if err != nil {
		t.Fatal(err)
	}
	if FormatScores(parsed) != want {
		t.Errorf("formatting the parsed record gave %q", FormatScores(parsed))
	}

	if FormatScores(nil) != "" {
		t.Error("expected an empty string for a nil record")
	}
}
