// SPDX-License-Identifier: MPL-2.0

// Package diag provides a small diagnostics value used by the ambient
// surfaces of this module (the CLI and table-configuration glue). It is
// deliberately not used by the lifetime framework itself: per the framework
// contract, lifecycle functions never return errors, since the only two
// outcomes they need to express are "not ready yet" (a bool) and "this is a
// bug" (a panic). Diagnostics exist for the surfaces that talk to operators.
package diag

import "fmt"

// Severity classifies a Diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warning:
		return "Warning"
	default:
		return "Unknown"
	}
}

// Diagnostic is a single user-facing problem description.
type Diagnostic struct {
	Severity Severity
	Summary  string
	Detail   string
}

func (d *Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("[%s] %s", d.Severity, d.Summary)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Summary, d.Detail)
}

// Diagnostics is an ordered collection of Diagnostic values.
type Diagnostics []*Diagnostic

// Append adds a new diagnostic and returns the (possibly reallocated) slice,
// following the same accumulator pattern as append itself.
func (diags Diagnostics) Append(d *Diagnostic) Diagnostics {
	return append(diags, d)
}

// Sourceless builds a Diagnostic that isn't tied to any particular location,
// for problems detected outside of any parsed input.
func Sourceless(severity Severity, summary, detail string) *Diagnostic {
	return &Diagnostic{Severity: severity, Summary: summary, Detail: detail}
}

// HasErrors reports whether any diagnostic in the collection is an Error.
func (diags Diagnostics) HasErrors() bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Err returns a single combined error for the collection's errors, or nil if
// there are none. Warnings are not included.
func (diags Diagnostics) Err() error {
	if !diags.HasErrors() {
		return nil
	}
	var msgs []string
	for _, d := range diags {
		if d.Severity == Error {
			msgs = append(msgs, d.String())
		}
	}
	return fmt.Errorf("%d error(s) occurred:\n%s", len(msgs), joinLines(msgs))
}

func joinLines(lines []string) string {
	out := ""
	for _, l := range lines {
		out += "  - " + l + "\n"
	}
	return out
}
