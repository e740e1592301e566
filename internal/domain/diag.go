package domain

import (
	"context"
	"fmt"
	"log/slog"
)

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a problem found while processing a document. None of them
// stop a build.
type Diagnostic struct {
	Doc      string   `json:"doc"`
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	Err      error    `json:"-"`
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d: %s: %v", d.Doc, d.Line, d.Severity, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// Log writes d to logger at warn level, or error level for errors.
func (d Diagnostic) Log(logger *slog.Logger) {
	level := slog.LevelWarn
	if d.Severity == SeverityError {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, d.Err.Error(), "doc", d.Doc, "line", d.Line)
}

// InconsistencyError reports a declaration whose signature disagrees with an
// option or with its enclosing declaration.
type InconsistencyError struct {
	What      string
	Signature string
	Declared  string
	Source    string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("inconsistent %s, %s in signature and %s in %s", e.What, e.Signature, e.Declared, e.Source)
}

// PlacementError reports a directive used where it is not allowed.
type PlacementError struct {
	Directive string
	Reason    string
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("%s directive %s", e.Directive, e.Reason)
}

// InvalidModuleError reports a module directive whose name is not an atom.
type InvalidModuleError struct {
	Name string
}

func (e *InvalidModuleError) Error() string {
	return "invalid Erlang module name: " + e.Name
}
