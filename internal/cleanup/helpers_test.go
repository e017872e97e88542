package cleanup

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"dirsweep/internal/metrics"
)

func init() {
	// Initialize metrics once for all tests
	metrics.Init()
}

// tempRoot returns a fresh directory with symlinks resolved, matching the
// form Run reports paths in
func tempRoot(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	return dir
}

// makeTree creates files (and their parent directories) below root.
// Entries ending in "/" create an empty directory.
func makeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if p[len(p)-1] == '/' {
			if err := os.MkdirAll(full, 0o755); err != nil {
				t.Fatalf("Failed to create dir %s: %v", full, err)
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", full, err)
		}
		if err := os.WriteFile(full, []byte("data"), 0o644); err != nil {
			t.Fatalf("Failed to create file %s: %v", full, err)
		}
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func newTestCleaner(dryRun bool) (*Cleaner, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewCleaner(log.New(&buf, "", 0), dryRun, nil), &buf
}

// scenarioTree is root/{a/cmake-build-debug/x.o, b/cmake-build-debug/y.o, c/keep.txt}
func scenarioTree(t *testing.T) string {
	t.Helper()
	root := tempRoot(t)
	makeTree(t, root,
		"a/cmake-build-debug/x.o",
		"b/cmake-build-debug/y.o",
		"c/keep.txt",
	)
	return root
}
