// Package apperrors defines the error kinds surfaced by the loading pipeline.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match them through errors.Is.
var (
	ErrNotFound             = errors.New("not found")
	ErrUnrecognizedFilename = errors.New("unrecognized filename")
	ErrParse                = errors.New("parse error")
	ErrConnection           = errors.New("connection error")
	ErrConstraintViolation  = errors.New("constraint violation")
)

// NotFoundKind names the entity a lookup failed to find.
type NotFoundKind string

const (
	KindProduct        NotFoundKind = "product"
	KindCharacteristic NotFoundKind = "characteristic"
	KindJunction       NotFoundKind = "product_characteristic"
	KindHeader         NotFoundKind = "header"
)

// NotFoundError is returned when a required row is missing.
type NotFoundError struct {
	Kind NotFoundKind
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFound builds a NotFoundError.
func NewNotFound(kind NotFoundKind, key string) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// IsNotFoundKind reports whether err carries a NotFoundError of the given kind.
func IsNotFoundKind(err error, kind NotFoundKind) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) && nf.Kind == kind
}

// UnrecognizedFilenameError is returned when no platform id can be read from a file name.
type UnrecognizedFilenameError struct {
	Name   string
	Reason string
}

func (e *UnrecognizedFilenameError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unrecognized file name format: %s", e.Name)
	}
	return fmt.Sprintf("unrecognized file name format: %s: %s", e.Name, e.Reason)
}

func (e *UnrecognizedFilenameError) Is(target error) bool { return target == ErrUnrecognizedFilename }

// ParseError reports malformed tabular content. Line is 1-based and counts the header row.
type ParseError struct {
	Line   int
	Column string
	Err    error
}

func (e *ParseError) Error() string {
	switch {
	case e.Line > 0 && e.Column != "":
		return fmt.Sprintf("parse error at line %d, column %q: %v", e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("parse error at line %d: %v", e.Line, e.Err)
	default:
		return fmt.Sprintf("parse error: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ConnectionError wraps failures to open, begin or commit against the database.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// ConstraintViolationError is returned when an insert hits a uniqueness constraint
// and the conflicting row cannot be read back.
type ConstraintViolationError struct {
	Table string
	Err   error
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("constraint violation on %s: %v", e.Table, e.Err)
}

func (e *ConstraintViolationError) Unwrap() error { return e.Err }

func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

// Kind returns a short label for logs and metrics.
func Kind(err error) string {
	var (
		nf *NotFoundError
		fn *UnrecognizedFilenameError
		pe *ParseError
		ce *ConnectionError
		cv *ConstraintViolationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &nf):
		return "not_found_" + string(nf.Kind)
	case errors.As(err, &fn):
		return "unrecognized_filename"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &ce):
		return "connection"
	case errors.As(err, &cv):
		return "constraint_violation"
	default:
		return "unknown"
	}
}
