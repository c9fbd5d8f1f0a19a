// Package errs defines the error taxonomy shared by every autotune
// component. Errors are built with cockroachdb/errors so they carry a
// stack, and each concrete type knows how to log itself through zerolog.
//
// Callers classify failures with the sentinels:
//
//	if errs.Is(err, errs.ErrInvalidParameter) {
//	    // fail fast, surface to the user
//	}
package errs

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Sentinel kinds. Concrete error types report equality to exactly one of them.
var (
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrIO               = errors.New("io error")
	ErrParse            = errors.New("parse error")
	ErrMergeConflict    = errors.New("merge conflict")
)

// InvalidParameterError is returned for malformed or out-of-range
// partition, configuration or experiment parameters.
type InvalidParameterError struct {
	Param  string
	Reason string
	Value  any
}

func (e *InvalidParameterError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("invalid parameter %q: %s (got: %v)", e.Param, e.Reason, e.Value)
}

func (e *InvalidParameterError) Is(target error) bool { return target == ErrInvalidParameter }

// MarshalZerologObject adds the structured fields to a log event.
func (e *InvalidParameterError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("param", e.Param).
		Str("reason", e.Reason).
		Interface("value", e.Value).
		Str("type", "InvalidParameter")
}

// NewInvalidParameter creates an InvalidParameterError with a stack trace.
func NewInvalidParameter(param, reason string, value any) error {
	return errors.WithStack(&InvalidParameterError{Param: param, Reason: reason, Value: value})
}

// IOError wraps a failure to read or write a file the operation needs.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Op, e.Path)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// MarshalZerologObject adds the structured fields to a log event.
func (e *IOError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("op", e.Op).
		Str("path", e.Path).
		AnErr("cause", e.Err).
		Str("type", "IOError")
}

// NewIOError creates an IOError with a stack trace.
func NewIOError(op, path string, err error) error {
	return errors.WithStack(&IOError{Op: op, Path: path, Err: err})
}

// ParseError reports input that does not match the grammar a parser expects.
// Line is 1-based; zero means the position is unknown.
type ParseError struct {
	Source string
	Line   int
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %s: %q", e.Source, e.Line, e.Reason, e.Text)
	}
	return fmt.Sprintf("parse %s: %s", e.Source, e.Reason)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// MarshalZerologObject adds the structured fields to a log event.
func (e *ParseError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("source", e.Source).
		Int("line", e.Line).
		Str("text", e.Text).
		Str("reason", e.Reason).
		Str("type", "ParseError")
}

// NewParseError creates a ParseError with a stack trace.
func NewParseError(source string, line int, text, reason string) error {
	return errors.WithStack(&ParseError{Source: source, Line: line, Text: text, Reason: reason})
}

// MergeConflictError is returned when two configurations with different
// argument strings are merged.
type MergeConflictError struct {
	Left  string
	Right string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("cannot merge configuration %q with %q", e.Left, e.Right)
}

func (e *MergeConflictError) Is(target error) bool { return target == ErrMergeConflict }

// MarshalZerologObject adds the structured fields to a log event.
func (e *MergeConflictError) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("left", e.Left).
		Str("right", e.Right).
		Str("type", "MergeConflict")
}

// NewMergeConflict creates a MergeConflictError with a stack trace.
func NewMergeConflict(left, right string) error {
	return errors.WithStack(&MergeConflictError{Left: left, Right: right})
}

// LogObject returns the zerolog marshaler embedded in err, if any, so that
// callers can log the structured fields with Object("error", ...).
func LogObject(err error) (zerolog.LogObjectMarshaler, bool) {
	var m zerolog.LogObjectMarshaler
	if errors.As(err, &m) {
		return m, true
	}
	return nil, false
}

// Is reports whether err matches target anywhere in its chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Wrap annotates err with a message.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Wrapf annotates err with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	return errors.Wrapf(err, format, args...)
}

// New creates a plain error with a stack trace.
func New(message string) error {
	return errors.New(message)
}

// Newf creates a formatted error with a stack trace.
func Newf(format string, args ...any) error {
	return errors.Newf(format, args...)
}
