// Package lattice provides constraint solving over abstract domains.
// This file defines the diagnostics log attached to formula interpretation.
// Interpretation never aborts on the first problem: every error and warning
// is collected, and a separate success flag decides whether the resulting
// payload is usable.
package lattice

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Severity classifies a diagnostic entry.
type Severity int

const (
	// SeverityError marks a problem that makes the interpretation unusable.
	SeverityError Severity = iota
	// SeverityWarning marks a problem the interpretation recovered from.
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic is one interpretation problem, with a reference to the
// offending formula.
type Diagnostic struct {
	Severity Severity
	Domain   string
	Message  string
	Formula  *Formula
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s (in %s)", d.Severity, d.Domain, d.Message, d.Formula)
}

// Diagnostics accumulates the problems of one interpretation.
type Diagnostics struct {
	entries []Diagnostic
}

// Error records an error entry.
func (d *Diagnostics) Error(domain string, f *Formula, format string, args ...interface{}) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityError,
		Domain:   domain,
		Message:  fmt.Sprintf(format, args...),
		Formula:  f,
	})
}

// Warn records a warning entry.
func (d *Diagnostics) Warn(domain string, f *Formula, format string, args ...interface{}) {
	d.entries = append(d.entries, Diagnostic{
		Severity: SeverityWarning,
		Domain:   domain,
		Message:  fmt.Sprintf(format, args...),
		Formula:  f,
	})
}

// Merge appends all entries of other.
func (d *Diagnostics) Merge(other *Diagnostics) {
	d.entries = append(d.entries, other.entries...)
}

// Entries returns the recorded entries in order.
func (d *Diagnostics) Entries() []Diagnostic {
	return d.entries
}

// HasErrors reports whether any entry is an error.
func (d *Diagnostics) HasErrors() bool {
	for _, e := range d.entries {
		if e.Severity == SeverityError {
			return true
		}
	}
	return false
}

// LogTo emits every entry on the given logger at the matching level.
func (d *Diagnostics) LogTo(logger logrus.FieldLogger) {
	for _, e := range d.entries {
		entry := logger.WithField("domain", e.Domain).WithField("formula", e.Formula.String())
		if e.Severity == SeverityWarning {
			entry.Warn(e.Message)
		} else {
			entry.Error(e.Message)
		}
	}
}
