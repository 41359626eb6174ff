package results

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	target      TEXT NOT NULL,
	suite       TEXT NOT NULL,
	imported_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cases (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id INTEGER NOT NULL REFERENCES runs(id),
	idx    INTEGER NOT NULL,
	name   TEXT NOT NULL,
	result TEXT NOT NULL,
	output TEXT NOT NULL
);
`

// Store is a SQLite-backed archive of imported test runs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the result database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("results: opening %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("results: creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ImportRun stores one parsed run and returns its row id.
func (s *Store) ImportRun(target, suite string, cases []CaseRecord) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("results: begin import: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (target, suite, imported_at) VALUES (?, ?, ?)`,
		target, suite, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("results: inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("results: run id: %w", err)
	}

	for _, c := range cases {
		if _, err := tx.Exec(
			`INSERT INTO cases (run_id, idx, name, result, output) VALUES (?, ?, ?, ?, ?)`,
			runID, c.Index, c.Name, string(c.Result), c.Output); err != nil {
			return 0, fmt.Errorf("results: inserting case %q: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("results: commit import: %w", err)
	}
	return runID, nil
}

// SuiteSummary aggregates one imported run for reporting.
type SuiteSummary struct {
	RunID      int64
	Target     string
	Suite      string
	ImportedAt string
	Passed     int
	Failed     int
	Skipped    int
	NotRun     int
	Cases      []CaseRecord
}

// Total returns the number of cases in the run.
func (s SuiteSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped + s.NotRun
}

// Summaries loads every imported run with its cases, newest first.
func (s *Store) Summaries() ([]SuiteSummary, error) {
	rows, err := s.db.Query(`SELECT id, target, suite, imported_at FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("results: loading runs: %w", err)
	}
	defer rows.Close()

	var summaries []SuiteSummary
	for rows.Next() {
		var sum SuiteSummary
		if err := rows.Scan(&sum.RunID, &sum.Target, &sum.Suite, &sum.ImportedAt); err != nil {
			return nil, fmt.Errorf("results: scanning run: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("results: loading runs: %w", err)
	}

	for i := range summaries {
		if err := s.loadCases(&summaries[i]); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func (s *Store) loadCases(sum *SuiteSummary) error {
	rows, err := s.db.Query(
		`SELECT idx, name, result, output FROM cases WHERE run_id = ? ORDER BY idx`, sum.RunID)
	if err != nil {
		return fmt.Errorf("results: loading cases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CaseRecord
		var result string
		if err := rows.Scan(&c.Index, &c.Name, &result, &c.Output); err != nil {
			return fmt.Errorf("results: scanning case: %w", err)
		}
		c.Result = CaseResult(result)
		sum.Cases = append(sum.Cases, c)
		switch c.Result {
		case CasePassed:
			sum.Passed++
		case CaseFailed:
			sum.Failed++
		case CaseSkipped:
			sum.Skipped++
		default:
			sum.NotRun++
		}
	}
	return rows.Err()
}
