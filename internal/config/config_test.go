package config

import (
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dirsweep/internal/match"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dirsweep.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := ParseArgs(nil, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if cfg.Path != ".." {
		t.Errorf("Path = %q, expected ..", cfg.Path)
	}
	if !reflect.DeepEqual(cfg.Targets, []string{"cmake-build-debug"}) {
		t.Errorf("Targets = %v, expected [cmake-build-debug]", cfg.Targets)
	}
	if cfg.DryRun {
		t.Error("DryRun should default to false")
	}
	if cfg.Logging.RotationDays != 30 {
		t.Errorf("RotationDays = %d, expected 30", cfg.Logging.RotationDays)
	}
	if cfg.HistoryEnabled() {
		t.Error("history should be disabled by default")
	}
}

func TestParseArgsTargets(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"space separated", []string{"--targets", "a", "b", "c"}, []string{"a", "b", "c"}},
		{"single dash", []string{"-targets", "a", "b"}, []string{"a", "b"}},
		{"equals form", []string{"--targets=a", "--targets=b"}, []string{"a", "b"}},
		{"comma kept in name", []string{"--targets", "build,old", "x"}, []string{"build,old", "x"}},
		{"repeated", []string{"--targets", "a", "--targets", "b"}, []string{"a", "b"}},
		{"followed by flag", []string{"--targets", "a", "b", "--dry-run"}, []string{"a", "b"}},
		{"duplicates dropped", []string{"--targets", "a", "b", "a"}, []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseArgs(tt.args, io.Discard)
			if err != nil {
				t.Fatalf("ParseArgs(%v) failed: %v", tt.args, err)
			}
			if !reflect.DeepEqual(cfg.Targets, tt.expected) {
				t.Errorf("Targets = %v, expected %v", cfg.Targets, tt.expected)
			}
		})
	}
}

func TestParseArgsFlags(t *testing.T) {
	args := []string{
		"--path", "/tmp/ws",
		"--dry-run",
		"--protect", "/home/me/keep",
		"--history-db", "/tmp/h.db",
		"--metrics-textfile", "/tmp/dirsweep.prom",
		"--metrics-push-url", "http://pushgateway:9091",
		"--log-file", "/tmp/dirsweep.log",
		"--timestamps",
	}
	cfg, err := ParseArgs(args, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if cfg.Path != "/tmp/ws" || !cfg.DryRun {
		t.Errorf("unexpected path/dry-run: %q %v", cfg.Path, cfg.DryRun)
	}
	if !reflect.DeepEqual(cfg.ProtectedPaths, []string{"/home/me/keep"}) {
		t.Errorf("ProtectedPaths = %v", cfg.ProtectedPaths)
	}
	if cfg.DatabasePath != "/tmp/h.db" || !cfg.HistoryEnabled() {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Metrics.Textfile != "/tmp/dirsweep.prom" || cfg.Metrics.PushURL != "http://pushgateway:9091" {
		t.Errorf("unexpected metrics config: %+v", cfg.Metrics)
	}
	if cfg.Logging.File != "/tmp/dirsweep.log" || !cfg.Logging.Timestamps {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}
}

func TestParseArgsErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want error
	}{
		{"empty pattern", []string{"--targets", "a", ""}, match.ErrEmptyTarget},
		{"relative protect", []string{"--protect", "keep"}, errInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, io.Discard)
			if !errors.Is(err, tt.want) {
				t.Errorf("ParseArgs(%v) error = %v, expected %v", tt.args, err, tt.want)
			}
		})
	}

	if _, err := ParseArgs([]string{"--targets"}, io.Discard); err == nil {
		t.Error("--targets without values should fail")
	}
	if _, err := ParseArgs([]string{"--path", "/tmp", "stray"}, io.Discard); err == nil {
		t.Error("positional argument should fail")
	}
	if _, err := ParseArgs([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("-h should return flag.ErrHelp, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
path: /srv/workspace
targets:
  - cmake-build-debug
  - cmake-build-release
dry_run: true
protected_paths:
  - /srv/workspace/vendor
logging:
  rotation_days: 7
metrics:
  textfile: /var/lib/node_exporter/dirsweep.prom
database_path: /var/lib/dirsweep/history.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path != "/srv/workspace" || !cfg.DryRun {
		t.Errorf("unexpected path/dry-run: %q %v", cfg.Path, cfg.DryRun)
	}
	if !reflect.DeepEqual(cfg.Targets, []string{"cmake-build-debug", "cmake-build-release"}) {
		t.Errorf("Targets = %v", cfg.Targets)
	}
	if cfg.Logging.RotationDays != 7 {
		t.Errorf("RotationDays = %d, expected 7", cfg.Logging.RotationDays)
	}
	if cfg.Metrics.Job != DefaultJob {
		t.Errorf("Metrics.Job = %q, expected default", cfg.Metrics.Job)
	}
	if cfg.DatabasePath != "/var/lib/dirsweep/history.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
}

func TestLoadEmptyFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Path != DefaultPath || len(cfg.Targets) != 1 || cfg.Targets[0] != DefaultTarget {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "pathh: /tmp\n"},
		{"empty targets", "targets: []\n"},
		{"negative rotation", "logging:\n  rotation_days: -1\n"},
		{"not yaml", "targets: [unterminated\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.body)); err == nil {
				t.Errorf("Load(%q) expected error", tt.body)
			}
		})
	}

	if _, err := Load(writeConfig(t, "targets: []\n")); !errors.Is(err, match.ErrNoTargets) {
		t.Errorf("empty targets should wrap match.ErrNoTargets, got %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file expected error")
	}
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeConfig(t, "path: /srv/a\ntargets: [from-file]\n")

	cfg, err := ParseArgs([]string{"--config", path, "--path", "/srv/b"}, io.Discard)
	if err != nil {
		t.Fatalf("ParseArgs failed: %v", err)
	}
	if cfg.Path != "/srv/b" {
		t.Errorf("flag should override file path, got %q", cfg.Path)
	}
	if !reflect.DeepEqual(cfg.Targets, []string{"from-file"}) {
		t.Errorf("unset flag must not override file targets, got %v", cfg.Targets)
	}
}

func TestUsageMentionsDefaultTarget(t *testing.T) {
	var sb strings.Builder
	_, _ = ParseArgs([]string{"-h"}, &sb)
	if !strings.Contains(sb.String(), DefaultTarget) {
		t.Errorf("usage should mention %s, got:\n%s", DefaultTarget, sb.String())
	}
}
