package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirsweep/internal/config"
)

// New creates a stdout logger without a log file
func New() *log.Logger {
	logger, _ := NewWithConfig(nil, os.Stdout)
	return logger
}

// NewWithConfig creates a logger writing to out and, when cfg names a log
// file, appending to that file too. The file is rotated first if it is older
// than the configured rotation window. The returned close function releases
// the file and is safe to call when no file was opened.
func NewWithConfig(cfg *config.LoggingCfg, out io.Writer) (*log.Logger, func() error) {
	flags := 0
	if cfg != nil && cfg.Timestamps {
		flags = log.LstdFlags | log.Lmicroseconds
	}
	noop := func() error { return nil }

	if cfg == nil || cfg.File == "" {
		return log.New(out, "", flags), noop
	}

	filePath := cfg.File
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		log.Printf("failed to ensure log directory for %s: %v", filePath, err)
	}

	rotateDays := 30
	if cfg.RotationDays > 0 {
		rotateDays = cfg.RotationDays
	}
	rotateLogsIfNeeded(filePath, rotateDays)

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return log.New(out, "", flags), noop
	}

	mw := io.MultiWriter(out, f)
	return log.New(mw, "", flags), f.Close
}

// rotateLogsIfNeeded rotates log files older than the specified days
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		// Log file doesn't exist yet, nothing to rotate
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, rotationDays)
	}
}

// cleanupOldLogs removes rotated log files older than rotation days
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	baseName := filepath.Base(logPath)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasPrefix(name, baseName+".") {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, name)
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
