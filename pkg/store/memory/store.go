// Package memory provides an in-memory spectrum match store
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Store keeps spectrum matches in insertion order
type Store struct {
	mu      sync.RWMutex
	keys    []string
	matches map[string]*core.SpectrumMatch
}

// New creates an empty store
func New() *Store {
	return &Store{matches: make(map[string]*core.SpectrumMatch)}
}

// Add inserts a match; keys must be unique
func (s *Store) Add(m *core.SpectrumMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.matches[m.Key]; ok {
		return fmt.Errorf("duplicate spectrum match key '%s'", m.Key)
	}
	s.keys = append(s.keys, m.Key)
	s.matches[m.Key] = m
	return nil
}

// Keys returns every key in insertion order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, len(s.keys))
	copy(keys, s.keys)
	return keys, nil
}

// Match returns the match stored under key
func (s *Store) Match(key string) (*core.SpectrumMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.matches[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrMatchNotFound, key)
	}
	return m, nil
}

// SetModifications replaces the placements of a match's peptide
func (s *Store) SetModifications(key string, mods []*core.ModificationPlacement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[key]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrMatchNotFound, key)
	}
	m.Peptide.Modifications = mods
	return nil
}

// Len returns the number of stored matches
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}
