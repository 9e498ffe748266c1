package store

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/experiment"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Run is the stored record of one sweep invocation.
type Run struct {
	ID              int64           `json:"id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"` // zero while running
	Status          Status          `json:"status"`
	Size            int             `json:"size"`
	FrozenThreshold int             `json:"frozen_threshold"`
	Seed            uint64          `json:"seed"`
	Plan            experiment.Plan `json:"plan"`
	Error           string          `json:"error,omitempty"`
	Points          int             `json:"points"`
}

// Store is a SQLite-backed results store. It is safe for concurrent use;
// database/sql serialises access over the single connection.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// BeginRun records the start of a sweep over plan and returns its id.
func (s *Store) BeginRun(ctx context.Context, plan experiment.Plan) (int64, error) {
	cfg, err := json.Marshal(plan)
	if err != nil {
		return 0, fmt.Errorf("failed to encode plan: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, status, size, frozen_threshold, seed, config_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		formatTime(time.Now()), string(StatusRunning), plan.Size, plan.FrozenThreshold,
		int64(plan.Seed), string(cfg))
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// SavePoint stores the reduced result of q value seq of feature count
// features. Saving the same (F, q) twice replaces the earlier row.
func (s *Store) SavePoint(ctx context.Context, runID int64, features, seq int, p experiment.Point) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO points (run_id, features, traits, seq, trials, mean, std_err, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, features, p.Traits, seq, p.Trials, p.Mean, p.StdErr, p.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to save point F=%d q=%d: %w", features, p.Traits, err)
	}
	return nil
}

// FinishRun marks a run as finished with status. A non-nil runErr is stored
// alongside.
func (s *Store) FinishRun(ctx context.Context, runID int64, status Status, runErr error) error {
	var msg sql.NullString
	if runErr != nil {
		msg = sql.NullString{String: runErr.Error(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, error = ? WHERE id = ?`,
		formatTime(time.Now()), string(status), msg, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %d: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `r.id, r.started_at, r.finished_at, r.status, r.size, r.frozen_threshold,
	r.seed, r.config_json, r.error, (SELECT COUNT(*) FROM points p WHERE p.run_id = r.id)`

// Runs lists the most recent runs first. A non-positive limit lists all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs r ORDER BY r.id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns one run by id.
func (s *Store) Run(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r WHERE r.id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return r, err
}

// LatestRun returns the most recent run.
func (s *Store) LatestRun(ctx context.Context) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs r ORDER BY r.id DESC LIMIT 1`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

// Series returns the stored points of a run grouped by feature count, in
// the order the run's plan lists feature counts and q values.
func (s *Store) Series(ctx context.Context, runID int64) ([]experiment.Series, error) {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return nil, err
	}
	order := make(map[int]int, len(run.Plan.Features))
	for i, f := range run.Plan.Features {
		order[f] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT features, traits, trials, mean, std_err, elapsed_ms
		 FROM points WHERE run_id = ? ORDER BY features, seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	var out []experiment.Series
	for rows.Next() {
		var f int
		var p experiment.Point
		var ms int64
		if err := rows.Scan(&f, &p.Traits, &p.Trials, &p.Mean, &p.StdErr, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		p.Elapsed = time.Duration(ms) * time.Millisecond
		if n := len(out); n == 0 || out[n-1].Features != f {
			out = append(out, experiment.Series{Features: f})
		}
		last := &out[len(out)-1]
		last.Points = append(last.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Features not in the plan sort last.
	rank := func(f int) int {
		if i, ok := order[f]; ok {
			return i
		}
		return len(order) + f
	}
	slices.SortStableFunc(out, func(a, b experiment.Series) int {
		return cmp.Compare(rank(a.Features), rank(b.Features))
	})
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r          Run
		started    string
		finished   sql.NullString
		status     string
		seed       int64
		cfg        string
		errMessage sql.NullString
	)
	if err := sc.Scan(&r.ID, &started, &finished, &status, &r.Size, &r.FrozenThreshold,
		&seed, &cfg, &errMessage, &r.Points); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("failed to scan run: %w", err)
	}
	r.Status = Status(status)
	r.Seed = uint64(seed)
	r.Error = errMessage.String

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return Run{}, fmt.Errorf("run %d: %w", r.ID, err)
	}
	if finished.Valid {
		if r.FinishedAt, err = parseTime(finished.String); err != nil {
			return Run{}, fmt.Errorf("run %d: %w", r.ID, err)
		}
	}
	if err := json.Unmarshal([]byte(cfg), &r.Plan); err != nil {
		return Run{}, fmt.Errorf("run %d: failed to decode plan: %w", r.ID, err)
	}
	return r, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
