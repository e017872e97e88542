// Package match decides which directory names are deletion candidates.
package match

import (
	"errors"
	"strings"
)

var (
	ErrNoTargets   = errors.New("at least one target pattern is required")
	ErrEmptyTarget = errors.New("target patterns must not be empty")
)

// Matcher decides whether a directory name is a deletion candidate.
// A name matches when it contains any pattern as a substring.
type Matcher struct {
	patterns []string
}

// New keeps patterns in order, dropping duplicates. An empty pattern would
// match every directory, so it is rejected.
func New(patterns []string) (*Matcher, error) {
	if len(patterns) == 0 {
		return nil, ErrNoTargets
	}
	seen := make(map[string]bool, len(patterns))
	m := &Matcher{patterns: make([]string, 0, len(patterns))}
	for _, p := range patterns {
		if p == "" {
			return nil, ErrEmptyTarget
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		m.patterns = append(m.patterns, p)
	}
	return m, nil
}

// Match returns the first pattern contained in name
func (m *Matcher) Match(name string) (string, bool) {
	for _, p := range m.patterns {
		if strings.Contains(name, p) {
			return p, true
		}
	}
	return "", false
}

// Patterns returns the deduplicated patterns
func (m *Matcher) Patterns() []string {
	return append([]string(nil), m.patterns...)
}
