package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"dirsweep/internal/exitcodes"
	"dirsweep/internal/history"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type query struct {
	out        io.Writer
	jsonOutput bool
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("dirsweep-history", flag.ContinueOnError)
	fs.SetOutput(stderr)

	dbPath := fs.String("db", "", "Path to the history database (required)")
	runs := fs.Int("runs", 0, "Show N most recent runs")
	runID := fs.Int64("run", 0, "Show all outcomes of one run")
	recent := fs.Int("recent", 0, "Show N most recent outcomes")
	action := fs.String("action", "", "Filter outcomes by action (DELETE, DRY_RUN, ERROR, SKIP)")
	pathPattern := fs.String("path", "", "Filter outcomes by path pattern (SQL LIKE syntax)")
	stats := fs.Bool("stats", false, "Show run statistics")
	days := fs.Int("days", 30, "Number of days for statistics")
	prune := fs.Int("prune", 0, "Delete runs older than N days")
	jsonOutput := fs.Bool("json", false, "Output in JSON format")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitcodes.Success
		}
		return exitcodes.InvalidConfig
	}
	if *dbPath == "" {
		fmt.Fprintln(stderr, "Error: --db is required")
		fs.Usage()
		return exitcodes.InvalidConfig
	}
	if _, err := os.Stat(*dbPath); err != nil {
		fmt.Fprintf(stderr, "Error: cannot open history database %s: %v\n", *dbPath, err)
		return exitcodes.RuntimeError
	}

	db, err := history.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open history database %s: %v\n", *dbPath, err)
		return exitcodes.RuntimeError
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(stderr, "Error: failed to close history database: %v\n", err)
		}
	}()

	q := query{out: stdout, jsonOutput: *jsonOutput}

	// Handle different query modes
	switch {
	case *stats:
		err = q.showStats(db, *days)
	case *prune > 0:
		err = q.prune(db, *prune)
	case *runs > 0:
		err = q.showRuns(db, *runs)
	case *runID > 0:
		err = q.showOutcomes(db.GetOutcomesForRun(*runID))
	case *recent > 0:
		err = q.showOutcomes(db.GetRecentOutcomes(*recent))
	case *action != "":
		err = q.showOutcomes(db.GetOutcomesByAction(*action))
	case *pathPattern != "":
		err = q.showOutcomes(db.GetOutcomesByPath(*pathPattern))
	default:
		fs.Usage()
		fmt.Fprintln(stderr, "\nExamples:")
		fmt.Fprintln(stderr, "  dirsweep-history --db h.db --runs 10              # Show 10 most recent runs")
		fmt.Fprintln(stderr, "  dirsweep-history --db h.db --run 3                # Show outcomes of run 3")
		fmt.Fprintln(stderr, "  dirsweep-history --db h.db --stats                # Show statistics")
		fmt.Fprintln(stderr, "  dirsweep-history --db h.db --action ERROR         # Show only failures")
		fmt.Fprintln(stderr, "  dirsweep-history --db h.db --path '%/src/%'       # Show outcomes under src")
		return exitcodes.InvalidConfig
	}

	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitcodes.RuntimeError
	}
	return exitcodes.Success
}

func (q query) printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(q.out, string(data))
	return err
}

func (q query) showStats(db *history.DB, days int) error {
	stats, err := db.GetStats(days)
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(stats)
	}

	fmt.Fprintf(q.out, "Run Statistics (Last %d days)\n", days)
	fmt.Fprintf(q.out, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(q.out, "Runs:          %d\n", stats.Runs)
	fmt.Fprintf(q.out, "Dry Runs:      %d\n", stats.DryRuns)
	fmt.Fprintf(q.out, "Interrupted:   %d\n", stats.Interrupted)
	fmt.Fprintf(q.out, "Deleted:       %d\n", stats.Deleted)
	fmt.Fprintf(q.out, "Would Delete:  %d\n", stats.WouldDelete)
	fmt.Fprintf(q.out, "Errors:        %d\n", stats.Errors)

	if len(stats.ByPattern) > 0 {
		patterns := make([]string, 0, len(stats.ByPattern))
		for p := range stats.ByPattern {
			patterns = append(patterns, p)
		}
		sort.Strings(patterns)

		fmt.Fprintln(q.out, "\nDeleted By Pattern:")
		for _, p := range patterns {
			fmt.Fprintf(q.out, "  %-20s %d\n", p, stats.ByPattern[p])
		}
	}
	return nil
}

func (q query) prune(db *history.DB, days int) error {
	n, err := db.DeleteOldRuns(days)
	if err != nil {
		return fmt.Errorf("failed to prune runs: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(map[string]int64{"pruned": n})
	}
	fmt.Fprintf(q.out, "Pruned %d runs older than %d days\n", n, days)
	return nil
}

func (q query) showRuns(db *history.DB, limit int) error {
	runs, err := db.GetRecentRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to get recent runs: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(q.out, "No runs found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tStarted\tMode\tDeleted\tErrors\tStatus\tRoot")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t-------\t------\t------\t----")
	for _, r := range runs {
		mode := "live"
		if r.DryRun {
			mode = "dry-run"
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), mode, r.Deleted, r.Errors, runStatus(r), r.Root)
	}
	return w.Flush()
}

func runStatus(r history.Run) string {
	switch {
	case r.Interrupted:
		return "interrupted"
	case r.FinishedAt.IsZero():
		return "unfinished"
	default:
		return "completed"
	}
}

func (q query) showOutcomes(outcomes []history.Outcome, err error) error {
	if err != nil {
		return fmt.Errorf("failed to query outcomes: %w", err)
	}
	if q.jsonOutput {
		return q.printJSON(outcomes)
	}
	if len(outcomes) == 0 {
		fmt.Fprintln(q.out, "No records found")
		return nil
	}

	w := tabwriter.NewWriter(q.out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRun\tTimestamp\tAction\tPattern\tPath\tError")
	_, _ = fmt.Fprintln(w, "--\t---\t---------\t------\t-------\t----\t-----")
	for _, o := range outcomes {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
			o.ID, o.RunID, o.Timestamp.Format("2006-01-02 15:04:05"), o.Action, o.Pattern, o.Path, o.ErrorMessage)
	}
	return w.Flush()
}
