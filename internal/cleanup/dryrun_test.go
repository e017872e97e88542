package cleanup

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"dirsweep/internal/fsops"
	"dirsweep/internal/safety"
)

// TestDryRunNeverDeletes proves the dry-run contract:
// When dryRun=true, ZERO delete calls must occur
func TestDryRunNeverDeletes(t *testing.T) {
	root := scenarioTree(t)

	fakeDeleter := &fsops.FakeDeleter{}
	cleaner, out := newTestCleaner(true)
	cleaner.SetDeleter(fakeDeleter)

	res, err := cleaner.Run(context.Background(), root, []string{"cmake-build-debug"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(fakeDeleter.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: Expected 0 delete calls, got %d: %v",
			len(fakeDeleter.Calls), fakeDeleter.Calls)
	}
	if res.Deleted != 2 || res.Errors != 0 {
		t.Errorf("Expected 2 candidates and 0 errors, got deleted=%d errors=%d", res.Deleted, res.Errors)
	}
	if !strings.Contains(out.String(), "DRY RUN MODE - No files will be deleted") {
		t.Errorf("missing dry-run banner in output:\n%s", out)
	}
	if got := strings.Count(out.String(), "[DRY RUN] Would delete "); got != 2 {
		t.Errorf("Expected 2 would-delete lines, got %d:\n%s", got, out)
	}
	if !strings.Contains(out.String(), "Cleanup completed. Deleted: 2, Errors: 0") {
		t.Errorf("missing summary line:\n%s", out)
	}
}

// TestDryRunLeavesFilesystemUnchanged uses the real deleter to show the
// filesystem stays intact
func TestDryRunLeavesFilesystemUnchanged(t *testing.T) {
	root := scenarioTree(t)

	cleaner, _ := newTestCleaner(true)
	if _, err := cleaner.Run(context.Background(), root, []string{"cmake-build-debug"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, p := range []string{"a/cmake-build-debug/x.o", "b/cmake-build-debug/y.o", "c/keep.txt"} {
		if !exists(filepath.Join(root, p)) {
			t.Errorf("DRY-RUN VIOLATION: %s was deleted", p)
		}
	}
}

// TestRealModeCallsDeleter proves that non-dry-run mode DOES call the deleter,
// once per candidate
func TestRealModeCallsDeleter(t *testing.T) {
	root := scenarioTree(t)

	fakeDeleter := &fsops.FakeDeleter{}
	cleaner, _ := newTestCleaner(false)
	cleaner.SetDeleter(fakeDeleter)

	res, err := cleaner.Run(context.Background(), root, []string{"cmake-build-debug"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []string{
		"rmall:" + filepath.Join(root, "a", "cmake-build-debug"),
		"rmall:" + filepath.Join(root, "b", "cmake-build-debug"),
	}
	if strings.Join(fakeDeleter.Calls, "\n") != strings.Join(expected, "\n") {
		t.Errorf("Expected calls %v, got %v", expected, fakeDeleter.Calls)
	}
	if res.Deleted != 2 {
		t.Errorf("Expected 2 successful deletions, got %d", res.Deleted)
	}
}

// TestDryRunErrorsAlwaysZero verifies read failures and validator refusals
// are reported but not counted as errors in dry-run, and that every match
// still counts as a would-delete
func TestDryRunErrorsAlwaysZero(t *testing.T) {
	root := scenarioTree(t)

	reader := &fsops.FakeDirReader{Fail: map[string]error{
		filepath.Join(root, "c"): errors.New("permission denied"),
	}}
	fakeDeleter := &fsops.FakeDeleter{}
	cleaner, out := newTestCleaner(true)
	cleaner.SetDirReader(reader)
	cleaner.SetDeleter(fakeDeleter)
	// Validator rooted elsewhere refuses every candidate
	cleaner.SetValidator(safety.NewValidator(tempRoot(t), nil))

	res, err := cleaner.Run(context.Background(), root, []string{"cmake-build-debug"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Errors != 0 {
		t.Errorf("dry-run must report 0 errors, got %d", res.Errors)
	}
	if res.Deleted != 2 {
		t.Errorf("every match is a would-delete, got %d", res.Deleted)
	}
	if len(fakeDeleter.Calls) != 0 {
		t.Errorf("DRY-RUN VIOLATION: delete calls %v", fakeDeleter.Calls)
	}
	if !strings.Contains(out.String(), "Failed to read "+filepath.Join(root, "c")) {
		t.Errorf("read failure should still be logged:\n%s", out)
	}
	if got := strings.Count(out.String(), "a live run would refuse it"); got != 2 {
		t.Errorf("Expected 2 refusal notes, got %d:\n%s", got, out)
	}

	var skips, refused int
	for _, o := range res.Outcomes {
		switch {
		case o.Action == ActionSkip:
			skips++
		case o.Action == ActionDryRun && errors.Is(o.Err, safety.ErrOutsideRoot):
			refused++
		}
	}
	if skips != 1 || refused != 2 {
		t.Errorf("Expected 1 SKIP and 2 refused DRY_RUN outcomes, got %d/%d: %+v", skips, refused, res.Outcomes)
	}
}
