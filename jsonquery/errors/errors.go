// Package errors defines the kind-tagged error type shared by every jsonquery package.
package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorKind string

const (
	ErrParse    ErrorKind = "parse"
	ErrCompile  ErrorKind = "compile"
	ErrSchema   ErrorKind = "schema"
	ErrIO       ErrorKind = "io"
	ErrSQL      ErrorKind = "sql"
	ErrCursor   ErrorKind = "cursor"
	ErrNotFound ErrorKind = "not_found"
)

type Error struct {
	Kind    ErrorKind
	Message string
	Field   string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	base := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Field != "" {
		base = fmt.Sprintf("%s (field=%s)", base, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", base, e.Cause)
	}
	return base
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func New(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// ParseError reports malformed filter, sort order or query input.
func ParseError(msg string) *Error {
	return &Error{Kind: ErrParse, Message: msg}
}

// CompileError reports a path expression the engine rejected.
func CompileError(field, msg string, cause error) *Error {
	return &Error{Kind: ErrCompile, Message: msg, Field: field, Cause: cause}
}

func CursorError(msg string) *Error {
	return &Error{Kind: ErrCursor, Message: msg}
}

func NotFoundError(what string) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf("not found: %s", what)}
}

func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
