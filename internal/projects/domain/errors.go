package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("project not found")
	ErrAlreadyExists = errors.New("project already exists")
	ErrBusy          = errors.New("project is busy")
)

// ErrorKind classifies failures for callers and the HTTP layer.
type ErrorKind string

const (
	KindInput        ErrorKind = "invalid_input"
	KindNotFound     ErrorKind = "not_found"
	KindUpstream     ErrorKind = "upstream_failure"
	KindValidation   ErrorKind = "validation_failure"
	KindResourceTree ErrorKind = "resource_tree_failure"
)

// Error carries a user-facing Reason and an internal cause that is only logged.
type Error struct {
	Kind   ErrorKind
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

func InputError(op, reason string) *Error {
	return &Error{Kind: KindInput, Op: op, Reason: reason}
}

func NotFoundError(op, id string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Reason: fmt.Sprintf("project %s not found", id), Err: ErrNotFound}
}

func UpstreamError(op, reason string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Reason: reason, Err: err}
}

func ValidationError(op, reason string) *Error {
	return &Error{Kind: KindValidation, Op: op, Reason: reason}
}

func ResourceTreeError(op, reason string, err error) *Error {
	return &Error{Kind: KindResourceTree, Op: op, Reason: reason, Err: err}
}

// KindOf returns the kind of err, or "" when err is not a domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return ""
}

// ReasonOf returns the user-facing message for err.
func ReasonOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason
	}
	return err.Error()
}
