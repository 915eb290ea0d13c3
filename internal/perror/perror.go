// Package perror renders runtime errors for the gopika engine.
//
// Every error that crosses the embedder boundary (spec.md §7) is a
// *RuntimeError carrying a Kind from the taxonomy below, a human-readable
// message, and optionally the Value that was raised (for script-level
// "raise" statements) and a source position. The formatting style follows
// the teacher's CompilerError.Format: kind and message on one line, with
// the position appended when known; no source line or caret is rendered.
package perror

import (
	"fmt"
	"strings"
)

// Kind enumerates the error taxonomy from spec.md §7.
type Kind string

const (
	KindSyntax        Kind = "syntax"
	KindRuntime       Kind = "runtime"
	KindArithmetic    Kind = "arithmetic"
	KindOverflow      Kind = "overflow"
	KindUnderflow     Kind = "underflow"
	KindDivideByZero  Kind = "divide-by-zero"
	KindIndex         Kind = "index"
	KindType          Kind = "type"
	KindSystem        Kind = "system"
	KindAssert        Kind = "assert"
	KindScript        Kind = "script"
	KindCustom        Kind = "custom"
)

// Position is a source location. Zero value means "unknown".
type Position struct {
	File   string
	Line   int
	Column int
}

func (p Position) String() string {
	if p.Line == 0 {
		return ""
	}
	if p.File == "" {
		return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// RuntimeError is the concrete error type raised by every layer of the
// runtime (collector, object model, VM, native bindings, importer).
type RuntimeError struct {
	Kind    Kind
	Message string
	Pos     Position
	// Raised holds the Value a script-level "raise" pushed, when any.
	// Declared as `any` here to avoid perror depending on the value
	// package; callers that care type-assert it back.
	Raised any
	Cause  error
}

// New creates a RuntimeError with no location or cause.
func New(kind Kind, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a RuntimeError of the given kind with cause attached; the
// Kind of a *RuntimeError cause is not carried over.
func Wrap(kind Kind, cause error, format string, args ...any) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// At returns a copy of e with the given position attached.
func (e *RuntimeError) At(pos Position) *RuntimeError {
	cp := *e
	cp.Pos = pos
	return &cp
}

// WithRaised returns a copy of e carrying the raised script Value.
func (e *RuntimeError) WithRaised(v any) *RuntimeError {
	cp := *e
	cp.Raised = v
	return &cp
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return e.Format(false)
}

// Unwrap supports errors.Is / errors.As against the wrapped cause.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// Format renders the error the way the embedder-facing report does:
// "<kind>: <message> (at <pos>)", optionally ANSI-colored.
func (e *RuntimeError) Format(color bool) string {
	var sb strings.Builder
	if color {
		sb.WriteString("\033[1;31m")
	}
	sb.WriteString(string(e.Kind))
	if color {
		sb.WriteString("\033[0m")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if pos := e.Pos.String(); pos != "" {
		sb.WriteString(" (at ")
		sb.WriteString(pos)
		sb.WriteString(")")
	}
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	return sb.String()
}

// IsKind reports whether err is a *RuntimeError with the given Kind.
func IsKind(err error, kind Kind) bool {
	re, ok := err.(*RuntimeError)
	return ok && re.Kind == kind
}

// Fatal marks an internal collector invariant failure (spec.md §7:
// "GC internal invariant failure → fatal (runtime abort)"). It panics
// rather than returning an error because there is no well-defined handler
// frame to unwind to — the collector is not under script control.
func Fatal(format string, args ...any) {
	panic(New(KindRuntime, "fatal: "+format, args...))
}
