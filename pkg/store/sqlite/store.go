// Package sqlite provides a SQLite-backed spectrum match store
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/ChrisMcGann/ModLoc/pkg/core"
)

// Date format for the runs table (ISO 8601)
const runDateFormat = time.RFC3339

// Store persists spectrum matches, their placements and localization scores
type Store struct {
	db   *sql.DB
	path string

	matchStmt      *sql.Stmt
	placementStmt  *sql.Stmt
	scoreStmt      *sql.Stmt
	confidentStmt  *sql.Stmt
	clearStmt      *sql.Stmt
	selectMatch    *sql.Stmt
	selectPlaced   *sql.Stmt
	selectScores   *sql.Stmt
	insertRunStmt  *sql.Stmt
	selectRunsStmt *sql.Stmt
}

// Open opens or creates a store at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps writers from locking each other out
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// createTables creates the required database schema
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		title TEXT,
		sequence TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS placements (
		match_key TEXT NOT NULL REFERENCES matches(key),
		ordinal INTEGER NOT NULL,
		name TEXT NOT NULL,
		variable BOOL NOT NULL,
		site INTEGER NOT NULL,
		confident BOOL NOT NULL,
		inferred BOOL NOT NULL,
		PRIMARY KEY (match_key, ordinal)
	);

	CREATE TABLE IF NOT EXISTS scores (
		match_key TEXT NOT NULL REFERENCES matches(key),
		name TEXT NOT NULL,
		site INTEGER NOT NULL,
		probabilistic DOUBLE,
		delta DOUBLE,
		confident BOOL NOT NULL DEFAULT 0,
		PRIMARY KEY (match_key, name, site)
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT,
		started TEXT,
		finished TEXT,
		matches INTEGER,
		ambiguous INTEGER,
		resolved INTEGER,
		unresolved INTEGER,
		confident INTEGER,
		inferred INTEGER,
		errors INTEGER,
		cancelled BOOL
	);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	return nil
}

// prepareStatements prepares the SQL statements used per match
func (s *Store) prepareStatements() error {
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.matchStmt, `INSERT INTO matches (key, title, sequence) VALUES (?, ?, ?)`},
		{&s.placementStmt, `
			INSERT INTO placements (match_key, ordinal, name, variable, site, confident, inferred)
			VALUES (?, ?, ?, ?, ?, ?, ?)`},
		{&s.scoreStmt, `
			INSERT INTO scores (match_key, name, site, probabilistic, delta, confident)
			VALUES (?, ?, ?, ?, ?, ?)`},
		{&s.confidentStmt, `
			INSERT INTO scores (match_key, name, site, confident) VALUES (?, ?, ?, 1)
			ON CONFLICT (match_key, name, site) DO UPDATE SET confident = 1`},
		{&s.clearStmt, `DELETE FROM placements WHERE match_key = ?`},
		{&s.selectMatch, `SELECT title, sequence FROM matches WHERE key = ?`},
		{&s.selectPlaced, `
			SELECT name, variable, site, confident, inferred
			FROM placements WHERE match_key = ? ORDER BY ordinal`},
		{&s.selectScores, `
			SELECT name, site, probabilistic, delta, confident
			FROM scores WHERE match_key = ? ORDER BY name, site`},
		{&s.insertRunStmt, `
			INSERT INTO runs (
				id, mode, started, finished, matches, ambiguous, resolved,
				unresolved, confident, inferred, errors, cancelled
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`},
		{&s.selectRunsStmt, `
			SELECT id, mode, started, finished, matches, ambiguous, resolved,
				unresolved, confident, inferred, errors, cancelled
			FROM runs ORDER BY started, id`},
	}

	for _, st := range stmts {
		stmt, err := s.db.Prepare(st.query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		*st.dst = stmt
	}

	return nil
}

// Add inserts a match with its placements and scores
func (s *Store) Add(m *core.SpectrumMatch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(s.matchStmt).Exec(m.Key, m.SpectrumTitle, m.Peptide.Sequence); err != nil {
		return fmt.Errorf("failed to insert match %s: %w", m.Key, err)
	}
	if err := insertPlacements(tx.Stmt(s.placementStmt), m.Key, m.Peptide.Modifications); err != nil {
		return err
	}

	scoreStmt := tx.Stmt(s.scoreStmt)
	for _, name := range m.Evidence.Names() {
		scoring := m.Evidence.Scoring(name)
		prob := scoring.Scores(core.Probabilistic)
		delta := scoring.Scores(core.Delta)
		for _, site := range scoredOrConfident(scoring) {
			_, err := scoreStmt.Exec(
				m.Key,
				name,
				site,
				nullable(prob, site),
				nullable(delta, site),
				scoring.IsConfident(site),
			)
			if err != nil {
				return fmt.Errorf("failed to insert score of %s on %s: %w", name, m.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit match %s: %w", m.Key, err)
	}
	return nil
}

func insertPlacements(stmt *sql.Stmt, key string, mods []*core.ModificationPlacement) error {
	for i, mp := range mods {
		if _, err := stmt.Exec(key, i, mp.Name, mp.Variable, mp.Site, mp.Confident, mp.Inferred); err != nil {
			return fmt.Errorf("failed to insert placement %s on %s: %w", mp, key, err)
		}
	}
	return nil
}

func scoredOrConfident(s *core.ModificationScoring) []int {
	seen := make(map[int]bool)
	var sites []int
	for _, site := range append(s.ScoredSites(), s.ConfidentSites()...) {
		if !seen[site] {
			seen[site] = true
			sites = append(sites, site)
		}
	}
	return sites
}

func nullable(scores map[int]float64, site int) interface{} {
	if v, ok := scores[site]; ok {
		return v
	}
	return nil
}

// Keys returns every match key in insertion order
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM matches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to read match key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Match loads the match stored under key. Every call returns a fresh copy.
func (s *Store) Match(key string) (*core.SpectrumMatch, error) {
	var title sql.NullString
	var sequence string
	err := s.selectMatch.QueryRow(key).Scan(&title, &sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrMatchNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read match %s: %w", key, err)
	}

	m := &core.SpectrumMatch{
		Key:           key,
		SpectrumTitle: title.String,
		Peptide:       &core.Peptide{Sequence: sequence},
	}

	m.Peptide.Modifications, err = s.placements(key)
	if err != nil {
		return nil, err
	}
	m.Evidence, err = s.evidence(key)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) placements(key string) ([]*core.ModificationPlacement, error) {
	rows, err := s.selectPlaced.Query(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read placements of %s: %w", key, err)
	}
	defer rows.Close()

	var mods []*core.ModificationPlacement
	for rows.Next() {
		mp := &core.ModificationPlacement{}
		if err := rows.Scan(&mp.Name, &mp.Variable, &mp.Site, &mp.Confident, &mp.Inferred); err != nil {
			return nil, fmt.Errorf("failed to read placement of %s: %w", key, err)
		}
		mods = append(mods, mp)
	}
	return mods, rows.Err()
}

// evidence returns nil when the match has no scores
func (s *Store) evidence(key string) (*core.EvidenceRecord, error) {
	rows, err := s.selectScores.Query(key)
	if err != nil {
		return nil, fmt.Errorf("failed to read scores of %s: %w", key, err)
	}
	defer rows.Close()

	var record *core.EvidenceRecord
	for rows.Next() {
		var (
			name        string
			site        int
			prob, delta sql.NullFloat64
			confident   bool
		)
		if err := rows.Scan(&name, &site, &prob, &delta, &confident); err != nil {
			return nil, fmt.Errorf("failed to read score of %s: %w", key, err)
		}
		if record == nil {
			record = core.NewEvidenceRecord()
		}
		scoring := record.ScoringOrNew(name)
		if prob.Valid {
			scoring.SetProbabilistic(site, prob.Float64)
		}
		if delta.Valid {
			scoring.SetDelta(site, delta.Float64)
		}
		if confident {
			scoring.SetConfident(site)
		}
	}
	return record, rows.Err()
}

// SetModifications replaces the placements of a match and marks the sites
// of its confident placements as confidently localized.
func (s *Store) SetModifications(key string, mods []*core.ModificationPlacement) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Stmt(s.clearStmt).Exec(key)
	if err != nil {
		return fmt.Errorf("failed to clear placements of %s: %w", key, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 && len(mods) > 0 {
		var exists int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM matches WHERE key = ?`, key).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up match %s: %w", key, err)
		}
		if exists == 0 {
			return fmt.Errorf("%w: %s", core.ErrMatchNotFound, key)
		}
	}

	if err := insertPlacements(tx.Stmt(s.placementStmt), key, mods); err != nil {
		return err
	}

	confident := tx.Stmt(s.confidentStmt)
	for _, mp := range mods {
		if !mp.Confident || !mp.Variable {
			continue
		}
		if _, err := confident.Exec(key, mp.Name, mp.Site); err != nil {
			return fmt.Errorf("failed to mark %s confident on %s: %w", mp, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit placements of %s: %w", key, err)
	}
	return nil
}

// Run is the record of one inference run
type Run struct {
	ID         uuid.UUID
	Mode       string
	Started    time.Time
	Finished   time.Time
	Matches    int
	Ambiguous  int
	Resolved   int
	Unresolved int
	Confident  int
	Inferred   int
	Errors     int
	Cancelled  bool
}

// RecordRun stores a run record, assigning it a new ID when it has none
func (s *Store) RecordRun(r *Run) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	_, err := s.insertRunStmt.Exec(
		r.ID.String(),
		r.Mode,
		r.Started.UTC().Format(runDateFormat),
		r.Finished.UTC().Format(runDateFormat),
		r.Matches,
		r.Ambiguous,
		r.Resolved,
		r.Unresolved,
		r.Confident,
		r.Inferred,
		r.Errors,
		r.Cancelled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Runs returns the recorded runs, oldest first
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.selectRunsStmt.Query()
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var id, started, finished string
		err := rows.Scan(&id, &r.Mode, &started, &finished, &r.Matches, &r.Ambiguous,
			&r.Resolved, &r.Unresolved, &r.Confident, &r.Inferred, &r.Errors, &r.Cancelled)
		if err != nil {
			return nil, fmt.Errorf("failed to read run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid run id '%s': %w", id, err)
		}
		if r.Started, err = time.Parse(runDateFormat, started); err != nil {
			return nil, fmt.Errorf("invalid start time of run %s: %w", id, err)
		}
		if r.Finished, err = time.Parse(runDateFormat, finished); err != nil {
			return nil, fmt.Errorf("invalid finish time of run %s: %w", id, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Summary counts variable placements by localization state
type Summary struct {
	Matches   int
	Variable  int
	Confident int
	Inferred  int
	Ambiguous int
}

// Summarize counts the stored matches and their variable placements
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	var sum Summary
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&sum.Matches); err != nil {
		return sum, fmt.Errorf("failed to count matches: %w", err)
	}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN confident THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN inferred THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT confident AND NOT inferred THEN 1 ELSE 0 END), 0)
		FROM placements WHERE variable`).Scan(&sum.Variable, &sum.Confident, &sum.Inferred, &sum.Ambiguous)
	if err != nil {
		return sum, fmt.Errorf("failed to count placements: %w", err)
	}
	return sum, nil
}

// Close closes the prepared statements and the database
func (s *Store) Close() error {
	for _, stmt := range []*sql.Stmt{
		s.matchStmt, s.placementStmt, s.scoreStmt, s.confidentStmt, s.clearStmt,
		s.selectMatch, s.selectPlaced, s.selectScores, s.insertRunStmt, s.selectRunsStmt,
	} {
		if stmt != nil {
			stmt.Close()
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
