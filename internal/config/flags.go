package config

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

// listFlag collects values from repeated flags; each value is kept whole.
// The first Set replaces the default.
type listFlag struct {
	values []string
	set    bool
}

func (l *listFlag) String() string {
	return strings.Join(l.values, ",")
}

func (l *listFlag) Set(v string) error {
	if !l.set {
		l.values = nil
		l.set = true
	}
	l.values = append(l.values, v)
	return nil
}

// ParseArgs builds the run configuration from command-line arguments.
// Precedence: defaults, then the --config file, then flags given explicitly.
// Returns flag.ErrHelp when usage was requested.
func ParseArgs(args []string, output io.Writer) (*Config, error) {
	fs := flag.NewFlagSet("dirsweep", flag.ContinueOnError)
	fs.SetOutput(output)

	def := Default()
	configPath := fs.String("config", "", "Optional YAML configuration file")
	path := fs.String("path", def.Path, "Root directory to start deletion")
	targets := &listFlag{values: def.Targets}
	fs.Var(targets, "targets", "Target directory names or patterns to delete (space separated or repeated)")
	dryRun := fs.Bool("dry-run", false, "Show what would be deleted without actually deleting")
	protect := &listFlag{}
	fs.Var(protect, "protect", "Absolute path that must never be deleted (repeatable)")
	logFile := fs.String("log-file", "", "Also append log lines to this file")
	timestamps := fs.Bool("timestamps", false, "Prefix log lines with date and time")
	historyDB := fs.String("history-db", "", "Record runs and outcomes to this SQLite database")
	textfile := fs.String("metrics-textfile", "", "Write Prometheus metrics to this textfile collector path")
	pushURL := fs.String("metrics-push-url", "", "Push Prometheus metrics to this Pushgateway")

	fs.Usage = func() {
		fmt.Fprintln(output, "Usage: dirsweep [--path DIR] [--targets PATTERN...] [--dry-run]")
		fmt.Fprintln(output)
		fmt.Fprintln(output, "Delete all directories whose name contains one of the target patterns.")
		fmt.Fprintf(output, "By default, it deletes '%s' directories.\n\n", DefaultTarget)
		fs.PrintDefaults()
	}

	if err := fs.Parse(expandTargets(args)); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	cfg := def
	if *configPath != "" {
		loaded, err := loadFile(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "path":
			cfg.Path = *path
		case "targets":
			cfg.Targets = targets.values
		case "dry-run":
			cfg.DryRun = *dryRun
		case "protect":
			cfg.ProtectedPaths = append(cfg.ProtectedPaths, protect.values...)
		case "log-file":
			cfg.Logging.File = *logFile
		case "timestamps":
			cfg.Logging.Timestamps = *timestamps
		case "history-db":
			cfg.DatabasePath = *historyDB
		case "metrics-textfile":
			cfg.Metrics.Textfile = *textfile
		case "metrics-push-url":
			cfg.Metrics.PushURL = *pushURL
		}
	})

	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandTargets rewrites "--targets a b c" into one "--targets=x" per value,
// so the flag package sees a multi-value option. Values end at the next
// argument starting with "-".
func expandTargets(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i:]...)
		}
		if arg != "--targets" && arg != "-targets" {
			out = append(out, arg)
			continue
		}
		j := i + 1
		for ; j < len(args) && !strings.HasPrefix(args[j], "-"); j++ {
			out = append(out, "--targets="+args[j])
		}
		if j == i+1 {
			// No values: let the flag package report the missing argument
			out = append(out, arg)
		}
		i = j - 1
	}
	return out
}
