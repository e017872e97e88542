package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep metrics
var (
	// DirsDeletedTotal counts directories removed (live runs only)
	DirsDeletedTotal prometheus.Counter

	// CandidatesTotal counts matched directories per target pattern, dry-run included
	CandidatesTotal *prometheus.CounterVec

	// ErrorsTotal counts per-directory failures by operation (delete, read)
	ErrorsTotal *prometheus.CounterVec

	// DirsVisitedTotal counts directories listed during the walk
	DirsVisitedTotal prometheus.Counter

	// SweepDuration tracks how long a sweep takes
	SweepDuration prometheus.Histogram

	// LastRunTimestamp records Unix timestamp of the last completed sweep
	LastRunTimestamp prometheus.Gauge

	// LastRunDeleted and LastRunErrors mirror the final summary line
	LastRunDeleted prometheus.Gauge
	LastRunErrors  prometheus.Gauge

	// LastRunDryRun is 1 when the last sweep was a dry run
	LastRunDryRun prometheus.Gauge
)

func initSweepMetrics() {
	DirsDeletedTotal = NewCounter(
		"dirsweep_dirs_deleted_total",
		"Total number of directories deleted by dirsweep.",
	)

	CandidatesTotal = NewCounterVec(
		"dirsweep_candidates_total",
		"Total number of directories matching a target pattern.",
		[]string{"pattern"},
	)

	ErrorsTotal = NewCounterVec(
		"dirsweep_errors_total",
		"Total number of per-directory failures.",
		[]string{"op"},
	)

	DirsVisitedTotal = NewCounter(
		"dirsweep_dirs_visited_total",
		"Total number of directories listed during sweeps.",
	)

	SweepDuration = NewDurationHistogram(
		"dirsweep_sweep_duration_seconds",
		"Duration of sweeps in seconds.",
	)

	LastRunTimestamp = NewGauge(
		"dirsweep_last_run_timestamp_seconds",
		"Timestamp of the last sweep (Unix epoch seconds).",
	)

	LastRunDeleted = NewGauge(
		"dirsweep_last_run_deleted",
		"Directories deleted (or that would be deleted) by the last sweep.",
	)

	LastRunErrors = NewGauge(
		"dirsweep_last_run_errors",
		"Errors reported by the last sweep.",
	)

	LastRunDryRun = NewGauge(
		"dirsweep_last_run_dry_run",
		"1 if the last sweep was a dry run.",
	)
}

func registerSweepMetrics() {
	Registry.MustRegister(DirsDeletedTotal)
	Registry.MustRegister(CandidatesTotal)
	Registry.MustRegister(ErrorsTotal)
	Registry.MustRegister(DirsVisitedTotal)
	Registry.MustRegister(SweepDuration)
	Registry.MustRegister(LastRunTimestamp)
	Registry.MustRegister(LastRunDeleted)
	Registry.MustRegister(LastRunErrors)
	Registry.MustRegister(LastRunDryRun)
}

// RecordRun stores the summary of a finished sweep
func RecordRun(deleted, errors int, dryRun bool, elapsed time.Duration) {
	SweepDuration.Observe(elapsed.Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
	LastRunDeleted.Set(float64(deleted))
	LastRunErrors.Set(float64(errors))
	if dryRun {
		LastRunDryRun.Set(1)
	} else {
		LastRunDryRun.Set(0)
	}
}
