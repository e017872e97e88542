package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	initOnce sync.Once

	// Registry holds dirsweep metrics only; pushes and textfiles
	// should not carry Go runtime series of a short-lived process
	Registry = prometheus.NewRegistry()
)

// Init initializes and registers all metrics
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initSweepMetrics()
		registerSweepMetrics()

		// Series appear in exports even before the first run
		LastRunTimestamp.Set(0)
		ErrorsTotal.WithLabelValues("delete")
		ErrorsTotal.WithLabelValues("read")
	})
}

// WriteTextfile writes the registry in text format for the node_exporter
// textfile collector. The write is atomic (temp file + rename).
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create textfile directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("write textfile %s: %w", path, err)
	}
	return nil
}

// Push sends the registry to a Pushgateway, grouped by job and sweep root
func Push(ctx context.Context, url, job, root string) error {
	err := push.New(url, job).
		Gatherer(Registry).
		Grouping("root", root).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
