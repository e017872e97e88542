package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirsweep/internal/fsops"
	"dirsweep/internal/history"
	"dirsweep/internal/logging"
	"dirsweep/internal/match"
	"dirsweep/internal/metrics"
	"dirsweep/internal/safety"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ErrRootNotFound   = errors.New("does not exist")
	ErrRootNotDir     = errors.New("is not a directory")
	ErrRootUnreadable = errors.New("cannot be accessed")
)

// Outcome actions, shared with the history database
const (
	ActionDelete = "DELETE"
	ActionDryRun = "DRY_RUN"
	ActionError  = "ERROR"
	ActionSkip   = "SKIP"
)

// Operations an outcome refers to
const (
	OpDelete = "delete"
	OpRead   = "read"
)

// Candidate is a directory whose name matched a target pattern
type Candidate struct {
	Path    string
	Name    string
	Pattern string
	Depth   int // 1 for direct children of the root
}

// Outcome is one logged event of a sweep
type Outcome struct {
	Path    string
	Op      string
	Action  string
	Pattern string
	Err     error
	Time    time.Time
}

// Result accumulates the counters of a single sweep
type Result struct {
	Root        string
	Deleted     int // in dry-run: directories that would be deleted
	Errors      int // always zero in dry-run
	Visited     int
	Outcomes    []Outcome
	Duration    time.Duration
	Interrupted bool
	RunID       int64 // history run id, 0 without a database
}

// Metrics interface for sweep metrics
type Metrics interface {
	DirsDeletedTotal() prometheus.Counter
	DirsVisitedTotal() prometheus.Counter
	CandidatesTotal(pattern string) prometheus.Counter
	ErrorsTotal(op string) prometheus.Counter
}

// cleanupMetrics wraps global metrics to implement Metrics interface
type cleanupMetrics struct{}

func (m *cleanupMetrics) DirsDeletedTotal() prometheus.Counter {
	return metrics.DirsDeletedTotal
}

func (m *cleanupMetrics) DirsVisitedTotal() prometheus.Counter {
	return metrics.DirsVisitedTotal
}

func (m *cleanupMetrics) CandidatesTotal(pattern string) prometheus.Counter {
	return metrics.CandidatesTotal.WithLabelValues(pattern)
}

func (m *cleanupMetrics) ErrorsTotal(op string) prometheus.Counter {
	return metrics.ErrorsTotal.WithLabelValues(op)
}

// Cleaner walks a tree and removes directories matching target patterns
type Cleaner struct {
	logger    *log.Logger
	metrics   Metrics
	deleter   fsops.Deleter
	reader    fsops.DirReader
	validator *safety.Validator
	protected []string
	dryRun    bool
	db        *history.DB // Optional record of runs and outcomes
	runID     int64
}

// NewCleaner creates a Cleaner using the real filesystem
func NewCleaner(logger *log.Logger, dryRun bool, db *history.DB) *Cleaner {
	if logger == nil {
		logger = log.Default()
	}
	metrics.Init()
	return &Cleaner{
		logger:  logger,
		metrics: &cleanupMetrics{},
		deleter: fsops.OSDeleter{},
		reader:  fsops.OSDirReader{},
		dryRun:  dryRun,
		db:      db,
	}
}

// SetDeleter replaces the filesystem deleter
func (c *Cleaner) SetDeleter(d fsops.Deleter) {
	c.deleter = d
}

// SetDirReader replaces the directory lister
func (c *Cleaner) SetDirReader(r fsops.DirReader) {
	c.reader = r
}

// SetValidator fixes the validator instead of deriving one from the root
func (c *Cleaner) SetValidator(v *safety.Validator) {
	c.validator = v
}

// SetProtectedPaths adds paths the derived validator must never allow
func (c *Cleaner) SetProtectedPaths(paths []string) {
	c.protected = paths
}

// Clean sweeps root with a stdout logger and returns the summary counters
func Clean(root string, targets []string, dryRun bool) (deleted, errCount int, err error) {
	res, err := NewCleaner(logging.New(), dryRun, nil).Run(context.Background(), root, targets)
	if res == nil {
		return 0, 0, err
	}
	return res.Deleted, res.Errors, err
}

// ResolveRoot validates root and returns it absolute with symlinks resolved
func ResolveRoot(root string) (string, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return "", fmt.Errorf("path '%s' %w", root, ErrRootNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("path '%s' %w: %w", root, ErrRootUnreadable, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path '%s' %w", root, ErrRootNotDir)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("path '%s' %w: %w", root, ErrRootUnreadable, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("path '%s' %w: %w", root, ErrRootUnreadable, err)
	}
	return resolved, nil
}

type frame struct {
	path  string
	depth int
}

// Run sweeps root top-down. Matching directories are removed whole and never
// entered; other directories are descended after their level is handled.
// Symlinks are neither followed nor removed. Per-directory failures are
// counted and the walk goes on. On context cancellation the partial result is
// returned with the context's error.
func (c *Cleaner) Run(ctx context.Context, root string, targets []string) (*Result, error) {
	matcher, err := match.New(targets)
	if err != nil {
		return nil, err
	}
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	validator := c.validator
	if validator == nil {
		validator = safety.NewValidator(absRoot, c.protected)
	}

	start := time.Now()
	res := &Result{Root: absRoot}

	c.logger.Printf("Starting cleanup from: %s", absRoot)
	c.logger.Printf("Target directories: %s", strings.Join(matcher.Patterns(), ", "))
	if c.dryRun {
		c.logger.Println("DRY RUN MODE - No files will be deleted")
	}
	c.beginHistory(absRoot, matcher.Patterns(), start)

	var walkErr error
	stack := []frame{{path: absRoot}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			walkErr = err
			res.Interrupted = true
			break
		}

		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		// Snapshot the level before any removal below it
		entries, err := c.reader.ReadDir(cur.path)
		if err != nil {
			c.readFailed(res, cur.path, err)
			if len(entries) == 0 {
				continue
			}
		} else {
			res.Visited++
			c.metrics.DirsVisitedTotal().Inc()
		}

		var descend []string
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			path := filepath.Join(cur.path, entry.Name())
			if pattern, ok := matcher.Match(entry.Name()); ok {
				c.remove(res, validator, Candidate{
					Path:    path,
					Name:    entry.Name(),
					Pattern: pattern,
					Depth:   cur.depth + 1,
				})
				continue
			}
			descend = append(descend, path)
		}

		// Reverse push keeps snapshot order when popping
		for i := len(descend) - 1; i >= 0; i-- {
			stack = append(stack, frame{path: descend[i], depth: cur.depth + 1})
		}
	}

	res.Duration = time.Since(start)
	if res.Interrupted {
		c.logger.Printf("Cleanup interrupted. Deleted: %d, Errors: %d", res.Deleted, res.Errors)
	} else {
		c.logger.Printf("Cleanup completed. Deleted: %d, Errors: %d", res.Deleted, res.Errors)
	}

	metrics.RecordRun(res.Deleted, res.Errors, c.dryRun, res.Duration)
	c.finishHistory(res)
	res.RunID = c.runID

	return res, walkErr
}

// remove handles one candidate; in dry-run it never calls the deleter
func (c *Cleaner) remove(res *Result, validator *safety.Validator, cand Candidate) {
	c.metrics.CandidatesTotal(cand.Pattern).Inc()

	verr := validator.ValidateDeleteTarget(cand.Path)

	// Every match counts in dry-run; a refusal is reported, never an error
	if c.dryRun {
		if verr != nil {
			c.logger.Printf("[DRY RUN] Would delete %s (a live run would refuse it: %v)", cand.Path, verr)
		} else {
			c.logger.Printf("[DRY RUN] Would delete %s", cand.Path)
		}
		res.Deleted++
		c.record(res, Outcome{Path: cand.Path, Op: OpDelete, Action: ActionDryRun, Pattern: cand.Pattern, Err: verr})
		return
	}

	if verr != nil {
		c.logger.Printf("Failed to delete %s: %v", cand.Path, verr)
		c.countError(res, OpDelete)
		c.record(res, Outcome{Path: cand.Path, Op: OpDelete, Action: ActionError, Pattern: cand.Pattern, Err: verr})
		return
	}

	c.logger.Printf("Deleting %s...", cand.Path)
	if err := c.deleter.RemoveAll(cand.Path); err != nil {
		c.logger.Printf("Failed to delete %s: %v", cand.Path, err)
		c.countError(res, OpDelete)
		c.record(res, Outcome{Path: cand.Path, Op: OpDelete, Action: ActionError, Pattern: cand.Pattern, Err: err})
		return
	}

	c.logger.Printf("Successfully deleted %s", cand.Path)
	res.Deleted++
	c.metrics.DirsDeletedTotal().Inc()
	c.record(res, Outcome{Path: cand.Path, Op: OpDelete, Action: ActionDelete, Pattern: cand.Pattern})
}

// readFailed handles a directory that could not be listed
func (c *Cleaner) readFailed(res *Result, path string, err error) {
	// Removed by someone else between listing its parent and reading it
	if os.IsNotExist(err) && path != res.Root {
		c.logger.Printf("Skipping %s: no longer exists", path)
		c.record(res, Outcome{Path: path, Op: OpRead, Action: ActionSkip, Err: err})
		return
	}

	c.logger.Printf("Failed to read %s: %v", path, err)
	if c.dryRun {
		c.record(res, Outcome{Path: path, Op: OpRead, Action: ActionSkip, Err: err})
		return
	}
	c.countError(res, OpRead)
	c.record(res, Outcome{Path: path, Op: OpRead, Action: ActionError, Err: err})
}

func (c *Cleaner) countError(res *Result, op string) {
	res.Errors++
	c.metrics.ErrorsTotal(op).Inc()
}

func (c *Cleaner) record(res *Result, o Outcome) {
	o.Time = time.Now()
	res.Outcomes = append(res.Outcomes, o)

	if c.db == nil || c.runID == 0 {
		return
	}
	errMsg := ""
	if o.Err != nil {
		errMsg = o.Err.Error()
	}
	if err := c.db.RecordOutcome(history.Outcome{
		RunID:        c.runID,
		Timestamp:    o.Time,
		Action:       o.Action,
		Op:           o.Op,
		Path:         o.Path,
		Pattern:      o.Pattern,
		ErrorMessage: errMsg,
	}); err != nil {
		// Don't fail the sweep if the history write fails
		c.logger.Printf("Failed to record %s to history: %v", o.Path, err)
	}
}

func (c *Cleaner) beginHistory(root string, patterns []string, start time.Time) {
	c.runID = 0
	if c.db == nil {
		return
	}
	id, err := c.db.BeginRun(root, patterns, c.dryRun, start)
	if err != nil {
		c.logger.Printf("Failed to record run to history: %v", err)
		return
	}
	c.runID = id
}

func (c *Cleaner) finishHistory(res *Result) {
	if c.db == nil || c.runID == 0 {
		return
	}
	if err := c.db.FinishRun(c.runID, res.Deleted, res.Errors, res.Interrupted, time.Now()); err != nil {
		c.logger.Printf("Failed to finish run in history: %v", err)
	}
}
