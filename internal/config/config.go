package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dirsweep/internal/match"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath   = ".."
	DefaultTarget = "cmake-build-debug"
	DefaultJob    = "dirsweep"
)

type LoggingCfg struct {
	File         string `yaml:"file" json:"file"`                   // Optional log file, written alongside stdout
	RotationDays int    `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
	Timestamps   bool   `yaml:"timestamps" json:"timestamps"`       // Prefix every line with date and time
}

type MetricsCfg struct {
	Textfile string `yaml:"textfile" json:"textfile"` // node_exporter textfile collector output
	PushURL  string `yaml:"push_url" json:"push_url"` // Pushgateway base URL
	Job      string `yaml:"job" json:"job"`           // Pushgateway job label
}

type Config struct {
	Path           string     `yaml:"path" json:"path"`                       // Root of the sweep
	Targets        []string   `yaml:"targets" json:"targets"`                 // Substrings matched against directory names
	DryRun         bool       `yaml:"dry_run" json:"dry_run"`                 // Report only, never delete
	ProtectedPaths []string   `yaml:"protected_paths" json:"protected_paths"` // Extra paths that may never be deleted
	Logging        LoggingCfg `yaml:"logging" json:"logging"`
	Metrics        MetricsCfg `yaml:"metrics" json:"metrics"`
	DatabasePath   string     `yaml:"database_path" json:"database_path"` // SQLite history of runs; empty disables it
}

var (
	errInvalidPath  = errors.New("path must be absolute")
	errNegativeDays = errors.New("logging.rotation_days cannot be negative")
)

// Default returns the configuration used when neither a file nor flags override it
func Default() *Config {
	return &Config{
		Path:    DefaultPath,
		Targets: []string{DefaultTarget},
		Logging: LoggingCfg{RotationDays: 30},
		Metrics: MetricsCfg{Job: DefaultJob},
	}
}

// Load reads a YAML config file on top of the defaults and validates it
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		// An empty file leaves the defaults in place
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if strings.TrimSpace(c.Path) == "" {
		c.Path = DefaultPath
	}

	m, err := match.New(c.Targets)
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}
	c.Targets = m.Patterns()

	if c.Logging.RotationDays < 0 {
		return errNegativeDays
	}
	if c.Logging.RotationDays == 0 {
		c.Logging.RotationDays = 30
	}

	if c.Metrics.Job == "" {
		c.Metrics.Job = DefaultJob
	}

	cleaned := make([]string, 0, len(c.ProtectedPaths))
	for _, p := range c.ProtectedPaths {
		cp, err := cleanAbsolute(p)
		if err != nil {
			return fmt.Errorf("protected_paths: %w", err)
		}
		cleaned = append(cleaned, cp)
	}
	c.ProtectedPaths = cleaned

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// HistoryEnabled reports whether runs are recorded to SQLite
func (c *Config) HistoryEnabled() bool {
	return c.DatabasePath != ""
}
