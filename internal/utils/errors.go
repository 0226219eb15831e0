package utils

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the loader, aggregators and transports.
var (
	// ErrDataUnavailable signals a missing or unreadable dataset file.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrEmptyResult signals that the active filters removed every row.
	ErrEmptyResult = errors.New("no data available for the selected filters")
	// ErrInvalidArgument signals a malformed request value.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound signals an unknown view, panel, session or dataset.
	ErrNotFound = errors.New("not found")
)

// ErrorKind classifies errors for logging, metrics and transport status codes.
type ErrorKind string

const (
	KindDataUnavailable ErrorKind = "data_unavailable"
	KindEmptyResult     ErrorKind = "empty_result"
	KindInvalidArgument ErrorKind = "invalid_argument"
	KindNotFound        ErrorKind = "not_found"
	KindInternal        ErrorKind = "internal"
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InvalidArgument builds an AppError that classifies as KindInvalidArgument.
func InvalidArgument(op, format string, args ...any) error {
	return &AppError{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidArgument}
}

// KindOf maps err onto an ErrorKind. A nil error has no kind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDataUnavailable):
		return KindDataUnavailable
	case errors.Is(err, ErrEmptyResult):
		return KindEmptyResult
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
