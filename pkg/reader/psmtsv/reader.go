// Package psmtsv provides a streaming reader for tab-separated peptide-spectrum match files
package psmtsv

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Column names of the header line
const (
	ColumnKey           = "spectrum_key"
	ColumnTitle         = "title"
	ColumnSequence      = "sequence"
	ColumnModifications = "modifications"
	ColumnScores        = "scores"
)

// Columns lists the columns in the order they are written
var Columns = []string{ColumnKey, ColumnTitle, ColumnSequence, ColumnModifications, ColumnScores}

const maxLineSize = 1024 * 1024

// Reader provides streaming access to PSM TSV files
type Reader struct {
	scanner *bufio.Scanner
	modDB   *core.ModDatabase
	lineNum int
	columns map[string]int
	current *core.SpectrumMatch
	err     error
}

// NewReader creates a new PSM TSV reader
func NewReader(r io.Reader, modDB *core.ModDatabase) *Reader {
	if modDB == nil {
		modDB = core.DefaultModDatabase()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	return &Reader{
		scanner: scanner,
		modDB:   modDB,
	}
}

// Next advances to the next match. Returns false when no more matches or error.
func (r *Reader) Next() bool {
	r.current = nil
	if r.err != nil {
		return false
	}

	if r.columns == nil {
		if err := r.readHeader(); err != nil {
			if err != io.EOF {
				r.err = err
			}
			return false
		}
	}

	m, err := r.readMatch()
	if err != nil {
		if err != io.EOF {
			r.err = err
		}
		return false
	}

	r.current = m
	return true
}

// Match returns the current match
func (r *Reader) Match() *core.SpectrumMatch {
	return r.current
}

// Err returns any error encountered during reading
func (r *Reader) Err() error {
	return r.err
}

// Line returns the number of the last line read
func (r *Reader) Line() int {
	return r.lineNum
}

// readHeader reads the header line and locates the columns
func (r *Reader) readHeader() error {
	line, err := r.nextLine()
	if err != nil {
		return err
	}

	r.columns = make(map[string]int)
	for i, name := range strings.Split(line, "\t") {
		r.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{ColumnKey, ColumnSequence} {
		if _, ok := r.columns[required]; !ok {
			return fmt.Errorf("line %d: missing column '%s'", r.lineNum, required)
		}
	}
	return nil
}

// nextLine returns the next non-empty line
func (r *Reader) nextLine() (string, error) {
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		return line, nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// readMatch parses a single data line
func (r *Reader) readMatch() (*core.SpectrumMatch, error) {
	line, err := r.nextLine()
	if err != nil {
		return nil, err
	}
	fields := strings.Split(line, "\t")

	m := &core.SpectrumMatch{
		Key:           r.field(fields, ColumnKey),
		SpectrumTitle: r.field(fields, ColumnTitle),
		Peptide:       &core.Peptide{Sequence: strings.ToUpper(r.field(fields, ColumnSequence))},
	}
	if m.Key == "" {
		return nil, fmt.Errorf("line %d: empty spectrum key", r.lineNum)
	}
	if m.Peptide.Sequence == "" {
		return nil, fmt.Errorf("line %d: empty sequence for %s", r.lineNum, m.Key)
	}

	m.Peptide.Modifications, err = r.modDB.ParseModString(r.field(fields, ColumnModifications), m.Peptide.Sequence)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	m.Evidence, err = ParseScores(r.field(fields, ColumnScores))
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.lineNum, err)
	}

	return m, nil
}

// field returns the trimmed value of a column, empty if absent
func (r *Reader) field(fields []string, column string) string {
	i, ok := r.columns[column]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// ParseScores parses a scores field like "Phospho:4=40.5/3.1,7=12/!;Oxidation:1=99/".
// Either score of a site may be empty; a trailing '!' marks a confidently
// localized site. An empty field yields a nil record.
func ParseScores(s string) (*core.EvidenceRecord, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	record := core.NewEvidenceRecord()
	for _, group := range strings.Split(s, ";") {
		group = strings.TrimSpace(group)
		if group == "" {
			continue
		}

		colon := strings.LastIndex(group, ":")
		if colon <= 0 {
			return nil, fmt.Errorf("invalid score group '%s', expected 'name:site=prob/delta'", group)
		}
		name := strings.TrimSpace(group[:colon])
		scoring := record.ScoringOrNew(name)

		for _, entry := range strings.Split(group[colon+1:], ",") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			if err := parseSiteScore(scoring, entry); err != nil {
				return nil, fmt.Errorf("modification %s: %w", name, err)
			}
		}
	}
	return record, nil
}

func parseSiteScore(scoring *core.ModificationScoring, entry string) error {
	confident := strings.HasSuffix(entry, "!")
	entry = strings.TrimSuffix(entry, "!")

	eq := strings.Split(entry, "=")
	if len(eq) != 2 {
		return fmt.Errorf("invalid site score '%s', expected 'site=prob/delta'", entry)
	}
	site, err := strconv.Atoi(strings.TrimSpace(eq[0]))
	if err != nil {
		return fmt.Errorf("invalid site '%s': %w", eq[0], err)
	}

	values := strings.Split(eq[1], "/")
	if len(values) > 2 {
		return fmt.Errorf("invalid site score '%s', expected 'site=prob/delta'", entry)
	}
	if v := strings.TrimSpace(values[0]); v != "" {
		prob, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid probabilistic score '%s': %w", v, err)
		}
		scoring.SetProbabilistic(site, prob)
	}
	if len(values) == 2 {
		if v := strings.TrimSpace(values[1]); v != "" {
			delta, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid delta score '%s': %w", v, err)
			}
			scoring.SetDelta(site, delta)
		}
	}
	if confident {
		scoring.SetConfident(site)
	}
	return nil
}

// FormatScores formats a record in the syntax read by ParseScores
func FormatScores(record *core.EvidenceRecord) string {
	var groups []string
	for _, name := range record.Names() {
		scoring := record.Scoring(name)
		prob := scoring.Scores(core.Probabilistic)
		delta := scoring.Scores(core.Delta)

		set := make(map[int]struct{})
		for _, site := range scoring.ScoredSites() {
			set[site] = struct{}{}
		}
		for _, site := range scoring.ConfidentSites() {
			set[site] = struct{}{}
		}
		sites := make([]int, 0, len(set))
		for site := range set {
			sites = append(sites, site)
		}
		sort.Ints(sites)

		entries := make([]string, 0, len(sites))
		for _, site := range sites {
			var b strings.Builder
			fmt.Fprintf(&b, "%d=", site)
			if v, ok := prob[site]; ok {
				b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
			b.WriteByte('/')
			if v, ok := delta[site]; ok {
				b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
			if scoring.IsConfident(site) {
				b.WriteByte('!')
			}
			entries = append(entries, b.String())
		}
		groups = append(groups, name+":"+strings.Join(entries, ","))
	}
	return strings.Join(groups, ";")
}
