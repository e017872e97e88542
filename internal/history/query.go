package history

import (
	"database/sql"
	"time"
)

const outcomeColumns = `id, run_id, timestamp, action, op, path, dir_name, pattern, error_message`

// GetRecentRuns returns the N most recent runs
func (h *DB) GetRecentRuns(limit int) ([]Run, error) {
	rows, err := h.db.Query(`
	SELECT id, started_at, finished_at, root, targets, dry_run, deleted, errors, interrupted
	FROM runs
	ORDER BY started_at DESC, id DESC
	LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(
			&r.ID, &r.StartedAt, &finished, &r.Root, &r.Targets,
			&r.DryRun, &r.Deleted, &r.Errors, &r.Interrupted,
		); err != nil {
			return nil, err
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// GetRecentOutcomes returns the N most recent outcomes across runs
func (h *DB) GetRecentOutcomes(limit int) ([]Outcome, error) {
	return h.queryOutcomes(`
	SELECT `+outcomeColumns+`
	FROM outcomes
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`, limit)
}

// GetOutcomesForRun returns a run's outcomes in the order they happened
func (h *DB) GetOutcomesForRun(runID int64) ([]Outcome, error) {
	return h.queryOutcomes(`
	SELECT `+outcomeColumns+`
	FROM outcomes
	WHERE run_id = ?
	ORDER BY id ASC
	`, runID)
}

// GetOutcomesByAction returns outcomes filtered by action (DELETE, DRY_RUN, ERROR)
func (h *DB) GetOutcomesByAction(action string) ([]Outcome, error) {
	return h.queryOutcomes(`
	SELECT `+outcomeColumns+`
	FROM outcomes
	WHERE action = ?
	ORDER BY timestamp DESC, id DESC
	`, action)
}

// GetOutcomesByPath returns outcomes whose path matches a SQL LIKE pattern
func (h *DB) GetOutcomesByPath(pathPattern string) ([]Outcome, error) {
	return h.queryOutcomes(`
	SELECT `+outcomeColumns+`
	FROM outcomes
	WHERE path LIKE ?
	ORDER BY timestamp DESC, id DESC
	`, pathPattern)
}

// Stats holds aggregated statistics over a time period
type Stats struct {
	Runs        int
	DryRuns     int
	Interrupted int
	Deleted     int
	WouldDelete int
	Errors      int
	ByPattern   map[string]int
	StartDate   time.Time
	EndDate     time.Time
}

// GetStats returns statistics for runs started in the last N days
func (h *DB) GetStats(days int) (*Stats, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -days)

	stats := &Stats{
		StartDate: since,
		EndDate:   now,
		ByPattern: make(map[string]int),
	}

	err := h.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(CASE WHEN dry_run = 1 THEN 1 END),
			COUNT(CASE WHEN interrupted = 1 THEN 1 END)
		FROM runs
		WHERE started_at >= ?
	`, since).Scan(&stats.Runs, &stats.DryRuns, &stats.Interrupted)
	if err != nil {
		return nil, err
	}

	err = h.db.QueryRow(`
		SELECT
			COUNT(CASE WHEN action = 'DELETE' THEN 1 END),
			COUNT(CASE WHEN action = 'DRY_RUN' THEN 1 END),
			COUNT(CASE WHEN action = 'ERROR' THEN 1 END)
		FROM outcomes
		WHERE timestamp >= ?
	`, since).Scan(&stats.Deleted, &stats.WouldDelete, &stats.Errors)
	if err != nil {
		return nil, err
	}

	rows, err := h.db.Query(`
		SELECT pattern, COUNT(*)
		FROM outcomes
		WHERE action = 'DELETE' AND timestamp >= ?
		GROUP BY pattern
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var pattern sql.NullString
		var count int
		if err := rows.Scan(&pattern, &count); err != nil {
			return nil, err
		}
		stats.ByPattern[pattern.String] = count
	}

	return stats, rows.Err()
}

// DeleteOldRuns removes runs (and their outcomes) older than the given days
func (h *DB) DeleteOldRuns(olderThanDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	result, err := h.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (h *DB) queryOutcomes(query string, args ...interface{}) ([]Outcome, error) {
	rows, err := h.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		var dirName, pattern, errMsg sql.NullString

		if err := rows.Scan(
			&o.ID, &o.RunID, &o.Timestamp, &o.Action, &o.Op, &o.Path,
			&dirName, &pattern, &errMsg,
		); err != nil {
			return nil, err
		}

		o.DirName = dirName.String
		o.Pattern = pattern.String
		o.ErrorMessage = errMsg.String

		outcomes = append(outcomes, o)
	}

	return outcomes, rows.Err()
}
