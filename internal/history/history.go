// Package history archives benchmark runs in a local sqlite database
// so past rankings can be reviewed and compared.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/gamedns/gamedns/internal/bench"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	ping_count INTEGER NOT NULL,
	timeout_ms INTEGER NOT NULL,
	servers INTEGER NOT NULL,
	scorable INTEGER NOT NULL,
	primary_name TEXT NOT NULL DEFAULT '',
	primary_addr TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS results (
	run_id TEXT NOT NULL,
	rank INTEGER NOT NULL,
	name TEXT NOT NULL,
	address TEXT NOT NULL,
	avg_ms REAL NOT NULL,
	min_ms REAL NOT NULL,
	max_ms REAL NOT NULL,
	jitter_ms REAL NOT NULL,
	loss_percent REAL NOT NULL,
	score REAL NOT NULL,
	PRIMARY KEY (run_id, rank),
	FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
);
`

// Store wraps the sqlite archive. Safe for use from one process.
type Store struct {
	db *sql.DB
}

// Run is one archived benchmark run.
type Run struct {
	ID          string
	StartedAt   time.Time
	PingCount   int
	Timeout     time.Duration
	Servers     int
	Scorable    int
	PrimaryName string
	PrimaryAddr string
}

// ResultRow is one archived per-server result.
type ResultRow struct {
	Rank        int
	Name        string
	Address     string
	AvgMillis   float64
	MinMillis   float64
	MaxMillis   float64
	JitterMs    float64
	LossPercent float64
	Score       float64
}

// Open creates or opens the archive at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport archives a finished run and returns its id.
func (s *Store) SaveReport(report bench.Report, settings bench.Settings, startedAt time.Time) (string, error) {
	runID := uuid.NewString()

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var primaryName, primaryAddr string
	if p := report.Recommendation.Primary; p != nil {
		primaryName = p.Server.Name
		primaryAddr = p.Server.Address
	}
	_, err = tx.Exec(
		`INSERT INTO runs (id, started_at, ping_count, timeout_ms, servers, scorable, primary_name, primary_addr)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, startedAt.Unix(), settings.PingCount, settings.Timeout.Milliseconds(),
		len(report.Samples), len(report.Ranked), primaryName, primaryAddr,
	)
	if err != nil {
		return "", err
	}

	stmt, err := tx.Prepare(
		`INSERT INTO results (run_id, rank, name, address, avg_ms, min_ms, max_ms, jitter_ms, loss_percent, score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, res := range report.Ranked {
		_, err = stmt.Exec(
			runID, i+1, res.Server.Name, res.Server.Address,
			res.Stats.AvgMillis, res.Stats.MinMillis, res.Stats.MaxMillis,
			res.Stats.JitterMillis, res.Stats.LossPercent, res.Score,
		)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return runID, nil
}

// Runs lists archived runs, newest first.
func (s *Store) Runs(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT id, started_at, ping_count, timeout_ms, servers, scorable, primary_name, primary_addr
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var startedAt, timeoutMs int64
		if err := rows.Scan(&r.ID, &startedAt, &r.PingCount, &timeoutMs,
			&r.Servers, &r.Scorable, &r.PrimaryName, &r.PrimaryAddr); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(startedAt, 0)
		r.Timeout = time.Duration(timeoutMs) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Results returns the ranked rows of one archived run.
func (s *Store) Results(runID string) ([]ResultRow, error) {
	rows, err := s.db.Query(
		`SELECT rank, name, address, avg_ms, min_ms, max_ms, jitter_ms, loss_percent, score
		 FROM results WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ResultRow
	for rows.Next() {
		var r ResultRow
		if err := rows.Scan(&r.Rank, &r.Name, &r.Address, &r.AvgMillis,
			&r.MinMillis, &r.MaxMillis, &r.JitterMs, &r.LossPercent, &r.Score); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune keeps only the newest keep runs. keep == 0 disables pruning.
func (s *Store) Prune(keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep)
	return err
}
