// Package config loads run configuration from YAML files
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Modification is an inline modification definition
type Modification struct {
	Name     string  `yaml:"name"`
	Mass     float64 `yaml:"mass"`
	Type     string  `yaml:"type,omitempty"`     // residue, peptide-nterm, ...; empty means residue
	Residues string  `yaml:"residues,omitempty"` // empty means any residue
}

// Config holds the settings of an inference run
type Config struct {
	ScoringMode      string         `yaml:"scoring_mode"`
	Parallel         bool           `yaml:"parallel"`
	ModificationsCSV string         `yaml:"modifications_csv,omitempty"`
	Modifications    []Modification `yaml:"modifications,omitempty"`
	MinScore         float64        `yaml:"min_score"`

	dir string // directory relative paths are resolved against
}

// Default returns the configuration used without a file
func Default() *Config {
	return &Config{ScoringMode: core.Probabilistic.String()}
}

// Load reads a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes YAML configuration on top of the defaults. Unknown keys are errors.
func Parse(data []byte) (*Config, error) {
	c := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks values that do not depend on other files
func (c *Config) Validate() error {
	if _, err := c.Mode(); err != nil {
		return err
	}
	if c.MinScore < 0 {
		return fmt.Errorf("min_score must be non-negative, got %g", c.MinScore)
	}
	for i, m := range c.Modifications {
		if m.Name == "" {
			return fmt.Errorf("modification %d: name is required", i)
		}
		if _, err := core.ParseModificationType(m.Type); err != nil {
			return fmt.Errorf("modification %s: %w", m.Name, err)
		}
	}
	return nil
}

// Mode returns the configured scoring mode
func (c *Config) Mode() (core.ScoringMode, error) {
	return core.ParseScoringMode(c.ScoringMode)
}

// ModDatabase builds the modification database: the defaults, then the CSV
// file, then the inline definitions, later definitions replacing earlier ones.
func (c *Config) ModDatabase() (*core.ModDatabase, error) {
	db := core.DefaultModDatabase()

	if c.ModificationsCSV != "" {
		path := c.ModificationsCSV
		if !filepath.IsAbs(path) && c.dir != "" {
			path = filepath.Join(c.dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open modifications file: %w", err)
		}
		defer f.Close()

		if err := db.LoadFromCSV(f); err != nil {
			return nil, fmt.Errorf("failed to load modifications from %s: %w", path, err)
		}
	}

	for _, m := range c.Modifications {
		t, err := core.ParseModificationType(m.Type)
		if err != nil {
			return nil, fmt.Errorf("modification %s: %w", m.Name, err)
		}
		db.Add(core.Modification{Name: m.Name, Mass: m.Mass, Type: t, Residues: m.Residues})
	}

	return db, nil
}
