// Package quality holds pass/fail verdicts appended by reviewing workers.
package quality

import (
	"fmt"
	"time"
)

// Check is a single quality verdict. Once appended to a Log it is never
// mutated.
type Check struct {
	// Checker is the worker that produced the verdict.
	Checker string `json:"checker"`

	// Passed reports whether the checked artifact passed review.
	Passed bool `json:"passed"`

	// Issues lists blocking problems found, in order.
	Issues []string `json:"issues"`

	// Suggestions lists non-blocking improvements, in order.
	Suggestions []string `json:"suggestions"`

	// CheckedAt is when the verdict was produced.
	CheckedAt time.Time `json:"checked_at"`
}

// Log is an append-only sequence of checks.
type Log struct {
	checks []Check
}

// NewLog creates an empty quality log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a check to the log.
func (l *Log) Append(c Check) {
	l.checks = append(l.checks, c)
}

// Latest returns the most recent check, if any.
func (l *Log) Latest() (Check, bool) {
	if len(l.checks) == 0 {
		return Check{}, false
	}
	return l.checks[len(l.checks)-1], true
}

// Failed returns all checks that did not pass, oldest first.
func (l *Log) Failed() []Check {
	var out []Check
	for _, c := range l.checks {
		if !c.Passed {
			out = append(out, c)
		}
	}
	return out
}

// All returns a copy of the log contents, oldest first.
func (l *Log) All() []Check {
	out := make([]Check, len(l.checks))
	copy(out, l.checks)
	return out
}

// Len returns the number of logged checks.
func (l *Log) Len() int {
	return len(l.checks)
}

// Restore replaces the log contents. Used when rehydrating a session from a
// persisted snapshot.
func (l *Log) Restore(checks []Check) {
	l.checks = make([]Check, len(checks))
	copy(l.checks, checks)
}

// Summary renders the latest verdict for strategy prompts.
func (l *Log) Summary() string {
	latest, ok := l.Latest()
	if !ok {
		return "no quality checks yet"
	}
	status := "passed"
	if !latest.Passed {
		status = "failed"
	}
	issues := "none"
	if len(latest.Issues) > 0 {
		max := len(latest.Issues)
		if max > 3 {
			max = 3
		}
		issues = ""
		for i, is := range latest.Issues[:max] {
			if i > 0 {
				issues += ", "
			}
			issues += is
		}
	}
	return fmt.Sprintf("%s (checker: %s, issues: %s)", status, latest.Checker, issues)
}
