package videotexture

import (
	"context"
	"log/slog"
)

// Severity of a pipeline diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// String returns the severity name
func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Diagnostic is a pipeline error or warning. Diagnostics are reported for
// observability only and never change controller state.
type Diagnostic struct {
	Severity Severity
	Message  string
	Debug    string
	Category ErrorCategory
}

// Diagnostics receives pipeline errors and warnings.
//
// Report is called from the pipeline's bus goroutine and must not block.
type Diagnostics interface {
	Report(Diagnostic)
}

// DiagnosticsFunc adapts a function to Diagnostics.
type DiagnosticsFunc func(Diagnostic)

// Report implements Diagnostics
func (f DiagnosticsFunc) Report(d Diagnostic) { f(d) }

// SlogDiagnostics logs diagnostics through Logger().
type SlogDiagnostics struct{}

// Report implements Diagnostics
func (SlogDiagnostics) Report(d Diagnostic) {
	level := slog.LevelWarn
	if d.Severity == SeverityError {
		level = slog.LevelError
	}
	Logger().Log(context.Background(), level, "videotexture: pipeline "+d.Severity.String(),
		"message", d.Message,
		"debug", d.Debug,
		"category", d.Category.String(),
	)
}
