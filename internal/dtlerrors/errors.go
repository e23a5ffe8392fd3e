// Package dtlerrors defines the error taxonomy used across the DTL
// pipeline: parse errors and compile errors carry a source position;
// internal errors are fatal assertions that indicate a compiler bug
// rather than bad input; runtime errors abort evaluation.
package dtlerrors

import (
	"fmt"

	"github.com/bwhmather/dtl/pos"
)

// ParseError reports a surface-syntax problem found by the lexer or
// parser.
type ParseError struct {
	Pos     pos.Position
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %s: %s", e.Pos, e.Message)
}

// CompileError reports a problem found while lowering the AST to IR:
// unresolved names, dtype mismatches, wrong arity, or surface constructs
// that are parsed but not implemented (GROUP BY).
type CompileError struct {
	Span    pos.Span
	Message string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error at %s: %s", e.Span, e.Message)
}

// InternalError is a violated invariant of the lowering or mapping
// algebra: a shape mismatch between operands that lowering itself built,
// a dependency that should have been reachable and wasn't. It is never
// caused by the input script. Code that detects one should call
// Panic, not return the error, so it surfaces as a fatal assertion; the
// top-level dtl.Run entry point recovers it and reports it as a bug.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error: %s", e.Message)
}

// Panic raises an InternalError. Call from code that has detected its
// own invariant violation (e.g. mismatched shapes between operands that
// lowering constructed itself).
func Panic(format string, args ...any) {
	panic(&InternalError{Message: fmt.Sprintf(format, args...)})
}

// Recover turns a panicking InternalError into a returned error. Callers
// that want internal errors reported as ordinary errors (the CLI, tests)
// should `defer dtlerrors.Recover(&err)` at their entry point.
func Recover(err *error) {
	if r := recover(); r != nil {
		if ierr, ok := r.(*InternalError); ok {
			*err = ierr
			return
		}
		panic(r)
	}
}

// RuntimeError reports a failure during evaluation: a missing import, an
// array-runtime failure, or sink I/O failure. It may carry the AST span
// of the expression that was being evaluated, if known.
type RuntimeError struct {
	Span    *pos.Span
	Message string
	Cause   error
}

func (e *RuntimeError) Error() string {
	if e.Span != nil {
		if e.Cause != nil {
			return fmt.Sprintf("runtime error at %s: %s: %s", *e.Span, e.Message, e.Cause)
		}
		return fmt.Sprintf("runtime error at %s: %s", *e.Span, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("runtime error: %s: %s", e.Message, e.Cause)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
