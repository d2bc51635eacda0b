// Package errors provides the coded error model used by the command engine.
//
// Every failure that reaches a caller of the REPL carries a numeric code so
// presentation logic can choose styling without matching on messages:
//
//   - 404: no command matched the typed command line
//   - 406: the command requires local access that the runtime lacks
//   - 403: the command was refused by policy
//   - 400: usage enforcement failed (see the usage package)
//   - 500: an internal failure such as a recovered handler panic
//
// # Usage
//
//	err := errors.NotFound()
//	if errors.IsNotFound(err) { ... }
//
//	switch errors.CodeOf(err) {
//	case errors.CodeNotAcceptable:
//	    ...
//	}
package errors

import (
	"errors"
	"fmt"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Error codes surfaced to callers.
const (
	CodeUsage         = 400
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeNotAcceptable = 406
	CodeInternal      = 500
)

// KindCommandResolution marks errors raised while resolving or admitting a
// command, before any handler ran.
const KindCommandResolution = "commandresolution"

// Sentinel errors
var (
	// ErrCommandNotFound indicates that no command node matched.
	ErrCommandNotFound = New("Command not found")
	// ErrRequiresLocal indicates a local-only command in a runtime without local access.
	ErrRequiresLocal = New("Command requires local access")
	// ErrDenied indicates a command refused by policy.
	ErrDenied = New("command denied by policy")
)

// Coder is implemented by errors that carry a numeric classification.
type Coder interface {
	Code() int
}

// CodedError is an error with a numeric code and an optional kind.
type CodedError struct {
	code int
	kind string
	msg  string
	err  error
}

// NewCoded creates a CodedError. msg may be empty when cause is set, in
// which case the cause's message is used.
func NewCoded(code int, kind, msg string, cause error) *CodedError {
	return &CodedError{code: code, kind: kind, msg: msg, err: cause}
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	switch {
	case e.msg != "" && e.err != nil && e.err.Error() != e.msg:
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	case e.msg != "":
		return e.msg
	case e.err != nil:
		return e.err.Error()
	default:
		return fmt.Sprintf("error %d", e.code)
	}
}

// Code returns the numeric classification.
func (e *CodedError) Code() int { return e.code }

// Kind returns the error kind, or "" if none was set.
func (e *CodedError) Kind() string { return e.kind }

// Unwrap returns the underlying cause.
func (e *CodedError) Unwrap() error { return e.err }

// NotFound returns the coded error for a failed command resolution.
func NotFound() *CodedError {
	return NewCoded(CodeNotFound, KindCommandResolution, "", ErrCommandNotFound)
}

// NotAcceptable returns the coded error for a local-only command in a
// runtime without local access.
func NotAcceptable() *CodedError {
	return NewCoded(CodeNotAcceptable, KindCommandResolution, "", ErrRequiresLocal)
}

// Forbidden returns a 403 error wrapping ErrDenied with the given reason.
func Forbidden(reason string) *CodedError {
	return NewCoded(CodeForbidden, "", reason, ErrDenied)
}

// Internal wraps err as a 500 error.
func Internal(err error) *CodedError {
	return NewCoded(CodeInternal, "", "", err)
}

// WithCode wraps err with an arbitrary code, e.g. a process exit status.
func WithCode(code int, err error) *CodedError {
	return NewCoded(code, "", "", err)
}

// CodeOf returns the code carried by err. A nil error yields 0 and an
// uncoded error yields CodeInternal.
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	var c Coder
	if As(err, &c) {
		return c.Code()
	}
	return CodeInternal
}

// IsNotFound reports whether err is a command resolution failure.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsResolution reports whether err was raised before any handler ran.
func IsResolution(err error) bool {
	var ce *CodedError
	return As(err, &ce) && ce.kind == KindCommandResolution
}
