package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

func TestParse(t *testing.T) {
	data := []byte(`
scoring_mode: delta
parallel: true
min_score: 2.5
modifications:
  - name: Crotonyl
    mass: 68.026215
    residues: K
  - name: Formyl N-term
    mass: 27.994915
    type: peptide-nterm
`)
	c, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	mode, err := c.Mode()
	if err != nil || mode != core.Delta {
		t.Errorf("Mode() = %v, %v", mode, err)
	}
	if !c.Parallel || c.MinScore != 2.5 {
		t.Errorf("unexpected config %+v", c)
	}

	db, err := c.ModDatabase()
	if err != nil {
		t.Fatal(err)
	}
	mod, ok := db.Modification("Formyl N-term")
	if !ok || mod.Type != core.ModPeptideNTerm {
		t.Errorf("Formyl N-term = %+v, %v", mod, ok)
	}
	if _, ok := db.Modification("Phospho"); !ok {
		t.Error("default modifications should be kept")
	}
}

func TestParseEmpty(t *testing.T) {
	c, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if mode, _ := c.Mode(); mode != core.Probabilistic {
		t.Errorf("default mode = %v", mode)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", "scoring: delta\n"},
		{"bad mode", "scoring_mode: best\n"},
		{"negative floor", "min_score: -1\n"},
		{"unnamed modification", "modifications:\n  - mass: 1.0\n"},
		{"bad type", "modifications:\n  - name: X\n    mass: 1.0\n    type: anywhere\n"},
		{"not yaml", "scoring_mode: [delta\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadWithCSV(t *testing.T) {
	dir := t.TempDir()
	csv := "mod,massshift,aa,type\nNitro,44.985078,WY,residue\nPhospho,79.966331,STYH,residue\n"
	if err := os.WriteFile(filepath.Join(dir, "mods.csv"), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	yml := "modifications_csv: mods.csv\nmodifications:\n  - name: Nitro\n    mass: 44.985078\n    residues: W\n"
	path := filepath.Join(dir, "modloc.yaml")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	db, err := c.ModDatabase()
	if err != nil {
		t.Fatalf("ModDatabase() error = %v", err)
	}

	if mod, _ := db.Modification("Phospho"); mod.Residues != "STYH" {
		t.Errorf("CSV should replace defaults, got %+v", mod)
	}
	if mod, _ := db.Modification("Nitro"); mod.Residues != "W" {
		t.Errorf("inline definitions should replace CSV ones, got %+v", mod)
	}
	if got := db.ModificationsWithMass(79.966331); len(got) != 1 {
		t.Errorf("replacing a definition should not duplicate its mass entry: %v", got)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}

	c := &Config{ModificationsCSV: filepath.Join(t.TempDir(), "missing.csv")}
	if _, err := c.ModDatabase(); err == nil {
		t.Error("expected an error for a missing CSV file")
	}
}
