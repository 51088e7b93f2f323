package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "matches.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMatch() *core.SpectrumMatch {
	evidence := core.NewEvidenceRecord()
	phospho := evidence.ScoringOrNew("Phospho")
	phospho.SetProbabilistic(4, 40)
	phospho.SetDelta(4, 4)
	phospho.SetProbabilistic(7, 50)
	phospho.SetConfident(7)
	oxidation := evidence.ScoringOrNew("Oxidation")
	oxidation.SetDelta(1, 12.5)

	return &core.SpectrumMatch{
		Key:           "run1.1001.1001.2",
		SpectrumTitle: "run1.1001.1001.2 File:run1.raw",
		Peptide: &core.Peptide{
			Sequence: "MEPSIDSK",
			Modifications: []*core.ModificationPlacement{
				{Name: "Oxidation", Variable: true, Site: 1},
				{Name: "Phospho", Variable: true, Site: 7, Confident: true},
			},
		},
		Evidence: evidence,
	}
}

func TestAddAndMatch(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add(testMatch()); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	m, err := s.Match("run1.1001.1001.2")
	if err != nil {
		t.Fatalf("Match() error = %v", err)
	}
	if m.SpectrumTitle != "run1.1001.1001.2 File:run1.raw" || m.Peptide.Sequence != "MEPSIDSK" {
		t.Errorf("unexpected match %+v", m)
	}
	if got := m.Peptide.ModString(); got != "Oxidation@1;Phospho@7!" {
		t.Errorf("ModString() = %q", got)
	}

	phospho := m.Evidence.Scoring("Phospho")
	if phospho == nil {
		t.Fatal("missing Phospho scoring")
	}
	if phospho.Probabilistic(4) != 40 || phospho.Delta(4) != 4 || phospho.Probabilistic(7) != 50 {
		t.Errorf("unexpected Phospho scores %v %v", phospho.Scores(core.Probabilistic), phospho.Scores(core.Delta))
	}
	if _, ok := phospho.Scores(core.Delta)[7]; ok {
		t.Error("site 7 has no delta score and should not get one")
	}
	if !phospho.IsConfident(7) || phospho.IsConfident(4) {
		t.Errorf("ConfidentSites() = %v, want [7]", phospho.ConfidentSites())
	}
	if got := m.Evidence.Scoring("Oxidation").Delta(1); got != 12.5 {
		t.Errorf("Oxidation delta = %v, want 12.5", got)
	}
}

func TestAddDuplicateKey(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add(testMatch()); err != nil {
		t.Fatal(err)
	}
	if err := s.Add(testMatch()); err == nil {
		t.Error("expected an error for a duplicate key")
	}
	keys, err := s.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 1 {
		t.Errorf("Keys() = %v, want one key", keys)
	}
}

func TestMatchWithoutEvidence(t *testing.T) {
	s := openTestStore(t)
	m := &core.SpectrumMatch{Key: "k", Peptide: &core.Peptide{Sequence: "PEPTIDE"}}
	if err := s.Add(m); err != nil {
		t.Fatal(err)
	}
	got, err := s.Match("k")
	if err != nil {
		t.Fatal(err)
	}
	if got.Evidence != nil {
		t.Error("expected a nil evidence record")
	}
	if len(got.Peptide.Modifications) != 0 {
		t.Errorf("unexpected placements %v", got.Peptide.Modifications)
	}
}

func TestMatchNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Match("missing")
	if !errors.Is(err, core.ErrMatchNotFound) {
		t.Errorf("Match() error = %v, want ErrMatchNotFound", err)
	}
	err = s.SetModifications("missing", []*core.ModificationPlacement{{Name: "Phospho", Variable: true, Site: 1}})
	if !errors.Is(err, core.ErrMatchNotFound) {
		t.Errorf("SetModifications() error = %v, want ErrMatchNotFound", err)
	}
}

func TestKeysInInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	for _, key := range []string{"c", "a", "b"} {
		if err := s.Add(&core.SpectrumMatch{Key: key, Peptide: &core.Peptide{Sequence: "PEPTIDE"}}); err != nil {
			t.Fatal(err)
		}
	}
	keys, err := s.Keys(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 3 || keys[0] != "c" || keys[1] != "a" || keys[2] != "b" {
		t.Errorf("Keys() = %v", keys)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Keys(ctx); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}

func TestSetModifications(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add(testMatch()); err != nil {
		t.Fatal(err)
	}

	mods := []*core.ModificationPlacement{
		{Name: "Oxidation", Variable: true, Site: 1, Confident: true},
		{Name: "Phospho", Variable: true, Site: 4, Inferred: true},
	}
	if err := s.SetModifications("run1.1001.1001.2", mods); err != nil {
		t.Fatalf("SetModifications() error = %v", err)
	}

	m, err := s.Match("run1.1001.1001.2")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Peptide.ModString(); got != "Oxidation@1!;Phospho@4" {
		t.Errorf("ModString() = %q", got)
	}
	if !m.Peptide.Modifications[1].Inferred {
		t.Error("inferred flag was not stored")
	}
	if !m.Evidence.Scoring("Oxidation").IsConfident(1) {
		t.Error("confident placement was not promoted in the scores")
	}
	if got := m.Evidence.Scoring("Oxidation").Delta(1); got != 12.5 {
		t.Errorf("promotion changed the delta score to %v", got)
	}
	if m.Evidence.Scoring("Phospho").IsConfident(4) {
		t.Error("inferred placement must not be promoted")
	}
}

func TestRunsAndSummary(t *testing.T) {
	s := openTestStore(t)
	if err := s.Add(testMatch()); err != nil {
		t.Fatal(err)
	}

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &Run{
		Mode:      "probabilistic",
		Started:   started,
		Finished:  started.Add(time.Minute),
		Matches:   1,
		Ambiguous: 1,
		Resolved:  1,
		Inferred:  1,
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if run.ID == uuid.Nil {
		t.Error("RecordRun() should assign an ID")
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("Runs() returned %d runs", len(runs))
	}
	if runs[0].ID != run.ID || !runs[0].Started.Equal(started) || runs[0].Inferred != 1 {
		t.Errorf("unexpected run %+v", runs[0])
	}

	sum, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := Summary{Matches: 1, Variable: 2, Confident: 1, Inferred: 0, Ambiguous: 1}
	if sum != want {
		t.Errorf("Summarize() = %+v, want %+v", sum, want)
	}
}
