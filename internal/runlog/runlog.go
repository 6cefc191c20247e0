// Package runlog archives scored submissions in a local SQLite file so the
// operator CLI can re-score them after a rule table change and report drift.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nyashahama/vitality-blueprint-backend/internal/assessment"
	"github.com/nyashahama/vitality-blueprint-backend/internal/ruleset"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	input             TEXT NOT NULL,
	result            TEXT NOT NULL,
	digest            TEXT NOT NULL,
	rules_version     TEXT NOT NULL,
	rules_fingerprint TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`

// Fixed-width so created_at sorts lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one archived scoring run.
type Run struct {
	ID               uuid.UUID
	Name             string // source file name or caller label
	Input            json.RawMessage
	Result           json.RawMessage
	Digest           string
	RulesVersion     string
	RulesFingerprint string
	CreatedAt        time.Time
}

// Store is the SQLite-backed archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("runlog: open: %w", err)
	}
	// One writer; batch workers serialise on the connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("runlog: init schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an already-scored run. ID and CreatedAt are filled in when
// zero.
func (s *Store) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO runs
		(id, name, input, result, digest, rules_version, rules_fingerprint, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.Name, string(r.Input), string(r.Result), r.Digest,
		r.RulesVersion, r.RulesFingerprint, r.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return Run{}, fmt.Errorf("runlog: record: %w", err)
	}
	return r, nil
}

// List returns archived runs, oldest first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, name, input, result, digest, rules_version, rules_fingerprint, created_at
		FROM runs ORDER BY rowid`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("runlog: list: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var id, input, result, created string
		if err := rows.Scan(&id, &r.Name, &input, &result, &r.Digest,
			&r.RulesVersion, &r.RulesFingerprint, &created); err != nil {
			return nil, fmt.Errorf("runlog: scan: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("runlog: run id %q: %w", id, err)
		}
		if r.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("runlog: run %s created_at: %w", id, err)
		}
		r.Input = json.RawMessage(input)
		r.Result = json.RawMessage(result)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ─── RECORD HELPER ────────────────────────────────────────────────────────────

// NewRun builds an archive row for a scored submission.
func NewRun(name string, input []byte, res assessment.Result, rules *ruleset.Ruleset) (Run, error) {
	b, err := json.Marshal(res)
	if err != nil {
		return Run{}, fmt.Errorf("runlog: encode result: %w", err)
	}
	return Run{
		Name:             name,
		Input:            json.RawMessage(input),
		Result:           b,
		Digest:           res.Digest(),
		RulesVersion:     rules.Version,
		RulesFingerprint: rules.Fingerprint(),
	}, nil
}

// ─── REGRESSION ───────────────────────────────────────────────────────────────

// Drift describes one archived run whose result changed under the current
// rules.
type Drift struct {
	Run       Run
	NewDigest string
	// Scores lists the composites whose score moved, as old and new values.
	Scores map[string][2]int
	// Flags lists flags whose value flipped.
	Flags []string
	// Err is set when the run could not be re-scored.
	Err error
}

// Regress re-scores every archived run against rules and returns the runs
// whose result digest changed. Runs that no longer parse are reported with
// Err set.
func Regress(ctx context.Context, s *Store, rules *ruleset.Ruleset) ([]Drift, int, error) {
	runs, err := s.List(ctx, 0)
	if err != nil {
		return nil, 0, err
	}

	var drifts []Drift
	for _, r := range runs {
		if err := ctx.Err(); err != nil {
			return drifts, len(runs), err
		}

		in, err := assessment.ParseInput(r.Input)
		if err != nil {
			drifts = append(drifts, Drift{Run: r, Err: err})
			continue
		}
		res, err := assessment.Run(rules, in)
		if err != nil {
			drifts = append(drifts, Drift{Run: r, Err: err})
			continue
		}

		digest := res.Digest()
		if digest == r.Digest {
			continue
		}

		d := Drift{Run: r, NewDigest: digest, Scores: map[string][2]int{}}
		var old assessment.Result
		if err := json.Unmarshal(r.Result, &old); err != nil {
			d.Err = fmt.Errorf("runlog: decode archived result: %w", err)
			drifts = append(drifts, d)
			continue
		}
		for name, v := range res.Scores {
			if ov, ok := old.Scores[name]; !ok || ov != v {
				d.Scores[name] = [2]int{ov, v}
			}
		}
		for name, v := range res.Flags {
			if old.Flags[name] != v {
				d.Flags = append(d.Flags, name)
			}
		}
		slices.Sort(d.Flags)
		drifts = append(drifts, d)
	}
	return drifts, len(runs), nil
}
