// Package history persists run summaries to a local SQLite database so past
// runs can be inspected after the fact. Recording is best-effort: a history
// failure never fails the run that produced the summary.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/calebroseland/tracksync/internal/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	dry_run INTEGER NOT NULL,
	canceled INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	projects_seen INTEGER NOT NULL,
	projects_created INTEGER NOT NULL,
	projects_linked INTEGER NOT NULL,
	projects_synced INTEGER NOT NULL,
	items_created INTEGER NOT NULL,
	items_synced_to_board INTEGER NOT NULL,
	items_synced_to_tracker INTEGER NOT NULL,
	conflicts INTEGER NOT NULL,
	errors INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS run_conflicts (
	run_id TEXT NOT NULL REFERENCES runs(id),
	kind TEXT NOT NULL,
	tracker_id TEXT NOT NULL,
	board_id TEXT NOT NULL,
	title TEXT NOT NULL,
	reason TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_run_conflicts_run_id ON run_conflicts(run_id);
`

// Run is one recorded run.
type Run struct {
	ID                   string
	State                string
	DryRun               bool
	Canceled             bool
	StartedAt            time.Time
	FinishedAt           time.Time
	ProjectsSeen         int
	ProjectsCreated      int
	ProjectsLinked       int
	ProjectsSynced       int
	ItemsCreated         int
	ItemsSyncedToBoard   int
	ItemsSyncedToTracker int
	Conflicts            int
	Errors               int
}

// Store wraps the SQLite connection.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return open(path)
}

// OpenInMemory opens an isolated in-memory database, for tests.
func OpenInMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a run summary and returns the generated run id.
func (s *Store) RecordRun(ctx context.Context, summary *runner.Summary) (string, error) {
	id := uuid.NewString()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (
			id, state, dry_run, canceled, started_at, finished_at,
			projects_seen, projects_created, projects_linked, projects_synced,
			items_created, items_synced_to_board, items_synced_to_tracker,
			conflicts, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		string(summary.State),
		boolInt(summary.DryRun),
		boolInt(summary.Canceled),
		summary.StartedAt.UTC().Format(time.RFC3339),
		summary.FinishedAt.UTC().Format(time.RFC3339),
		summary.ProjectsSeen,
		summary.ProjectsCreated,
		summary.ProjectsLinked,
		summary.ProjectsSynced,
		summary.ItemsCreated,
		summary.ItemsSyncedL2R,
		summary.ItemsSyncedR2L,
		len(summary.Conflicts),
		len(summary.Errors),
	)
	if err != nil {
		return "", fmt.Errorf("record run: %w", err)
	}

	for _, c := range summary.Conflicts {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO run_conflicts (run_id, kind, tracker_id, board_id, title, reason)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, string(c.Kind), c.TrackerID, c.BoardID, c.Title, c.Reason)
		if err != nil {
			return "", fmt.Errorf("record run conflict: %w", err)
		}
	}
	return id, nil
}

// Conflict is one recorded conflict of a run.
type Conflict struct {
	Kind      string
	TrackerID string
	BoardID   string
	Title     string
	Reason    string
}

// ListConflicts returns the conflicts recorded for a run.
func (s *Store) ListConflicts(ctx context.Context, runID string) ([]Conflict, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, tracker_id, board_id, title, reason
		FROM run_conflicts WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []Conflict
	for rows.Next() {
		var c Conflict
		if err := rows.Scan(&c.Kind, &c.TrackerID, &c.BoardID, &c.Title, &c.Reason); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return conflicts, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, state, dry_run, canceled, started_at, finished_at,
			projects_seen, projects_created, projects_linked, projects_synced,
			items_created, items_synced_to_board, items_synced_to_tracker,
			conflicts, errors
		FROM runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var dryRun, canceled int
		var startedAt, finishedAt string

		err := rows.Scan(
			&r.ID, &r.State, &dryRun, &canceled, &startedAt, &finishedAt,
			&r.ProjectsSeen, &r.ProjectsCreated, &r.ProjectsLinked, &r.ProjectsSynced,
			&r.ItemsCreated, &r.ItemsSyncedToBoard, &r.ItemsSyncedToTracker,
			&r.Conflicts, &r.Errors,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		r.DryRun = dryRun == 1
		r.Canceled = canceled == 1
		if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
			r.StartedAt = ts
		}
		if ts, err := time.Parse(time.RFC3339, finishedAt); err == nil {
			r.FinishedAt = ts
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
