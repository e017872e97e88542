package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB manages the SQLite database of sweep runs and their per-directory outcomes
type DB struct {
	db *sql.DB
}

// Run is one invocation of the sweep
type Run struct {
	ID          int64
	StartedAt   time.Time
	FinishedAt  time.Time // zero while the run is in progress or if it crashed
	Root        string
	Targets     string
	DryRun      bool
	Deleted     int
	Errors      int
	Interrupted bool
}

// Outcome is one logged event of a run: a deletion, a would-delete or a failure
type Outcome struct {
	ID           int64
	RunID        int64
	Timestamp    time.Time
	Action       string // DELETE, DRY_RUN, ERROR or SKIP
	Op           string // delete or read
	Path         string
	DirName      string
	Pattern      string
	ErrorMessage string
}

// Open creates or opens the database at dbPath and initializes the schema
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing; foreign keys are
	// per connection, so they are enabled in the DSN
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// A real statement instead of Ping() so the file is created now
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	h := &DB{db: db}
	if err = h.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return h, nil
}

func (h *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		root TEXT NOT NULL,
		targets TEXT NOT NULL,
		dry_run INTEGER NOT NULL DEFAULT 0,
		deleted INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		timestamp DATETIME NOT NULL,
		action TEXT NOT NULL,
		op TEXT NOT NULL,
		path TEXT NOT NULL,
		dir_name TEXT,
		pattern TEXT,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_timestamp ON outcomes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_outcomes_action ON outcomes(action);
	CREATE INDEX IF NOT EXISTS idx_outcomes_path ON outcomes(path);

	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := h.db.Exec(schema)
	return err
}

// BeginRun inserts a run row and returns its id
func (h *DB) BeginRun(root string, targets []string, dryRun bool, startedAt time.Time) (int64, error) {
	res, err := h.db.Exec(
		`INSERT INTO runs (started_at, root, targets, dry_run) VALUES (?, ?, ?, ?)`,
		startedAt, root, strings.Join(targets, ", "), dryRun,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// RecordOutcome inserts one outcome of a run
func (h *DB) RecordOutcome(o Outcome) error {
	dirName := o.DirName
	if dirName == "" {
		dirName = filepath.Base(o.Path)
	}

	_, err := h.db.Exec(`
	INSERT INTO outcomes (
		run_id, timestamp, action, op, path, dir_name, pattern, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		o.RunID,
		o.Timestamp,
		o.Action,
		o.Op,
		o.Path,
		dirName,
		o.Pattern,
		o.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun stores the summary counters of a run
func (h *DB) FinishRun(runID int64, deleted, errCount int, interrupted bool, finishedAt time.Time) error {
	res, err := h.db.Exec(`
	UPDATE runs SET finished_at = ?, deleted = ?, errors = ?, interrupted = ?
	WHERE id = ?
	`, finishedAt, deleted, errCount, interrupted, runID)
	if err != nil {
		return fmt.Errorf("update run %d: %w", runID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update run %d: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// Close closes the database connection
func (h *DB) Close() error {
	return h.db.Close()
}
