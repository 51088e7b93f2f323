// Package tsv exports spectrum matches with their resolved placements as tab-separated text
package tsv

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
	"github.com/ChrisMcGann/ModLoc/pkg/reader/psmtsv"
)

// Extra columns written after the PSM TSV columns
const (
	ColumnNeutralMass = "neutral_mass"
	ColumnConfident   = "confident"
	ColumnInferred    = "inferred"
)

// Writer writes one line per match. The output is readable by psmtsv.Reader.
type Writer struct {
	w       *bufio.Writer
	modDB   *core.ModDatabase
	header  bool
	written int
}

// NewWriter creates a new TSV writer
func NewWriter(w io.Writer, modDB *core.ModDatabase) *Writer {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}
	return &Writer{w: bufio.NewWriter(w), modDB: modDB}
}

// WriteMatch writes a single match, preceded by the header on first use
func (w *Writer) WriteMatch(m *core.SpectrumMatch) error {
	if !w.header {
		columns := append(append([]string{}, psmtsv.Columns...), ColumnNeutralMass, ColumnConfident, ColumnInferred)
		if _, err := w.w.WriteString(strings.Join(columns, "\t") + "\n"); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		w.header = true
	}

	mass := ""
	if nm, err := core.CalculateNeutralMass(m.Peptide, w.modDB); err == nil {
		mass = strconv.FormatFloat(nm, 'f', 6, 64)
	}

	var confident, inferred []string
	for _, mp := range m.Peptide.Modifications {
		if !mp.Variable {
			continue
		}
		switch {
		case mp.Confident:
			confident = append(confident, fmt.Sprintf("%s@%d", mp.Name, mp.Site))
		case mp.Inferred:
			inferred = append(inferred, fmt.Sprintf("%s@%d", mp.Name, mp.Site))
		}
	}

	fields := []string{
		m.Key,
		sanitize(m.SpectrumTitle),
		m.Peptide.Sequence,
		m.Peptide.ModString(),
		psmtsv.FormatScores(m.Evidence),
		mass,
		strings.Join(confident, ";"),
		strings.Join(inferred, ";"),
	}
	if _, err := w.w.WriteString(strings.Join(fields, "\t") + "\n"); err != nil {
		return fmt.Errorf("failed to write match %s: %w", m.Key, err)
	}
	w.written++
	return nil
}

// Written returns the number of matches written
func (w *Writer) Written() int {
	return w.written
}

// Flush writes buffered data to the underlying writer
func (w *Writer) Flush() error {
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

// sanitize keeps free text on one field
func sanitize(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
