// Package inference propagates modification localization confidence across
// spectrum matches. A first pass indexes the matches whose modifications are
// confidently placed and collects the ambiguous ones; a second pass resolves
// each ambiguous match with the evidence of matches sharing, containing or
// contained in its peptide sequence.
package inference

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/exascience/pargo/parallel"
	"github.com/sirupsen/logrus"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Score bonuses by evidence source.
const (
	ConfidentOwnOffset     = 400.0 // site confident on the match itself
	ConfidentOtherOffset   = 200.0 // site confident on another match of the same sequence
	ConfidentRelatedOffset = 100.0 // site confident on a match of a sub- or superstring
)

// MatchStore gives access to the spectrum matches of a run
type MatchStore interface {
	Keys(ctx context.Context) ([]string, error)
	Match(key string) (*core.SpectrumMatch, error)
	SetModifications(key string, mods []*core.ModificationPlacement) error
}

// ModificationProvider resolves modification names
type ModificationProvider interface {
	Modification(name string) (core.Modification, bool)
	ModificationsWithMass(mass float64) []core.Modification
}

// State is the phase an engine is in
type State int

const (
	Idle State = iota
	Scanning
	Resolving
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scanning:
		return "scanning"
	case Resolving:
		return "resolving"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Options configure a run
type Options struct {
	Mode             core.ScoringMode
	Parallel         bool // scan matches concurrently
	ProgressInterval int  // log progress every n matches; 0 means 1000
	Log              *logrus.Entry
}

// Report summarizes a run
type Report struct {
	Matches    int // matches scanned
	Indexed    int // matches contributing confident evidence
	Ambiguous  int
	Resolved   int
	Unresolved int
	Confident  int // confident placements on resolved matches
	Inferred   int // inferred placements on resolved matches
	Cancelled  bool
	Errors     []error
}

// Engine runs modification site inference over a match store
type Engine struct {
	store MatchStore
	mods  ModificationProvider
	opts  Options
	log   *logrus.Entry
	state State
}

// New creates an engine
func New(store MatchStore, mods ModificationProvider, opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 1000
	}
	return &Engine{store: store, mods: mods, opts: opts, log: log}
}

// State returns the phase the engine is in
func (e *Engine) State() State {
	return e.state
}

// Run scans every match, then resolves the ambiguous ones. Cancelling ctx
// stops the run between matches; matches already resolved keep their new
// placements. Per-match failures are collected in the report; only store
// failures are returned as errors.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	e.state = Scanning
	keys, err := e.store.Keys(ctx)
	if err != nil {
		e.state = Done
		if ctx.Err() != nil {
			report.Cancelled = true
			return report, nil
		}
		return nil, fmt.Errorf("failed to list spectrum matches: %w", err)
	}
	e.log.WithFields(logrus.Fields{"phase": e.state, "matches": len(keys)}).Info("scanning spectrum matches")

	var scan *scanResult
	if e.opts.Parallel {
		scan = e.scanParallel(ctx, keys)
	} else {
		scan = e.scanRange(ctx, keys, 0, len(keys))
	}
	if scan.err != nil {
		e.state = Done
		return nil, scan.err
	}
	report.Matches = scan.scanned
	report.Errors = append(report.Errors, scan.failures...)
	report.Indexed = scan.index.Len()
	report.Ambiguous = len(scan.ambiguous)
	if ctx.Err() != nil {
		e.state = Done
		report.Cancelled = true
		e.log.WithField("scanned", scan.scanned).Info("inference cancelled while scanning")
		return report, nil
	}

	e.state = Resolving
	e.log.WithFields(logrus.Fields{
		"phase":     e.state,
		"ambiguous": report.Ambiguous,
		"indexed":   report.Indexed,
	}).Info("resolving ambiguous matches")

	for i, key := range scan.ambiguous.Keys() {
		if ctx.Err() != nil {
			report.Cancelled = true
			e.log.WithField("resolved", report.Resolved).Info("inference cancelled while resolving")
			break
		}
		if err := e.resolveKey(key, scan.index, report); err != nil {
			var notFound *ModificationNotFoundError
			var integrity *IntegrityError
			if !errors.As(err, &notFound) && !errors.As(err, &integrity) {
				e.state = Done
				return nil, err
			}
			e.log.WithField("key", key).WithError(err).Warn("cannot resolve spectrum match")
			report.Errors = append(report.Errors, err)
		}
		if (i+1)%e.opts.ProgressInterval == 0 {
			e.log.WithField("phase", e.state).Infof("resolved %d of %d ambiguous matches", i+1, report.Ambiguous)
		}
	}

	e.state = Done
	e.log.WithFields(logrus.Fields{
		"resolved":   report.Resolved,
		"unresolved": report.Unresolved,
		"confident":  report.Confident,
		"inferred":   report.Inferred,
		"errors":     len(report.Errors),
	}).Info("inference finished")
	return report, nil
}

type scanResult struct {
	index     ConfidentEvidenceIndex
	ambiguous AmbiguousSet
	scanned   int
	failures  []error
	err       error
}

func newScanResult() *scanResult {
	return &scanResult{index: make(ConfidentEvidenceIndex), ambiguous: make(AmbiguousSet)}
}

func (r *scanResult) merge(other *scanResult) *scanResult {
	r.index.merge(other.index)
	for key := range other.ambiguous {
		r.ambiguous.add(key)
	}
	r.scanned += other.scanned
	r.failures = append(r.failures, other.failures...)
	if r.err == nil {
		r.err = other.err
	}
	return r
}

// scanParallel splits the scan over the available cores and merges the
// per-chunk indexes in key order.
func (e *Engine) scanParallel(ctx context.Context, keys []string) *scanResult {
	if len(keys) == 0 {
		return newScanResult()
	}
	return parallel.RangeReduce(0, len(keys), 0, func(low, high int) interface{} {
		return e.scanRange(ctx, keys, low, high)
	}, func(left, right interface{}) interface{} {
		return left.(*scanResult).merge(right.(*scanResult))
	}).(*scanResult)
}

func (e *Engine) scanRange(ctx context.Context, keys []string, low, high int) *scanResult {
	r := newScanResult()
	for i := low; i < high; i++ {
		if ctx.Err() != nil {
			break
		}
		key := keys[i]
		m, err := e.store.Match(key)
		if err != nil {
			r.err = fmt.Errorf("failed to read spectrum match %s: %w", key, err)
			break
		}
		r.scanned++
		if err := e.classify(m, r); err != nil {
			e.log.WithField("key", key).WithError(err).Warn("cannot classify spectrum match")
			r.failures = append(r.failures, err)
		}
		if !e.opts.Parallel && r.scanned%e.opts.ProgressInterval == 0 {
			e.log.WithField("phase", Scanning).Infof("scanned %d of %d matches", r.scanned, len(keys))
		}
	}
	return r
}

// classify records the confident placements of m in the index and adds m
// to the ambiguous set when one of its placements is not confident.
func (e *Engine) classify(m *core.SpectrumMatch, r *scanResult) error {
	if m.Peptide == nil {
		return nil
	}
	placed, err := e.variablePlacements(m.Peptide)
	if err != nil {
		return err
	}

	masses := make([]float64, 0, len(placed))
	for mass := range placed {
		masses = append(masses, mass)
	}
	sort.Float64s(masses)

	for _, mass := range masses {
		for _, p := range placed[mass] {
			if !p.Confident {
				r.ambiguous.add(m.Key)
				continue
			}
			var score float64
			if s := m.Evidence.Scoring(p.Name); s != nil {
				score = s.Score(p.Site, e.opts.Mode)
			}
			r.index.add(mass, m.Peptide.Sequence, m.Key, p.Site, score, p.Name)
		}
	}
	return nil
}

// variablePlacements groups the variable placements whose site is a choice
// among residues by the mass key of their modification. A placement
// qualifies when its modification targets residues, or when another
// modification of the same mass has a different type.
func (e *Engine) variablePlacements(p *core.Peptide) (map[float64][]*core.ModificationPlacement, error) {
	placed := make(map[float64][]*core.ModificationPlacement)
	for _, mp := range p.Modifications {
		if !mp.Variable {
			continue
		}
		mod, ok := e.mods.Modification(mp.Name)
		if !ok {
			return nil, &ModificationNotFoundError{Name: mp.Name}
		}
		if !e.atAminoAcid(mod) {
			continue
		}
		mass := core.MassKey(mod.Mass)
		placed[mass] = append(placed[mass], mp)
	}
	return placed, nil
}

func (e *Engine) atAminoAcid(mod core.Modification) bool {
	if mod.Type == core.ModResidue {
		return true
	}
	for _, other := range e.mods.ModificationsWithMass(mod.Mass) {
		if other.Type != mod.Type {
			return true
		}
	}
	return false
}
