package coacherr

import (
	"errors"
	"fmt"
)

// #region codes

// Code classifies a domain failure so callers can explain it to the user.
type Code string

const (
	NotFound         Code = "NOT_FOUND"
	InvalidState     Code = "INVALID_STATE"
	Conflict         Code = "CONFLICT"
	InsufficientData Code = "INSUFFICIENT_DATA"
	UnsafeAdjustment Code = "UNSAFE_ADJUSTMENT"
)

// #endregion codes

// #region error

// Error is a coded domain error. Two errors match under errors.Is when their codes match.
type Error struct {
	Code Code
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Msg != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Msg)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return string(e.Code)
}

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &Error{Code: NotFound}
	ErrInvalidState     = &Error{Code: InvalidState}
	ErrConflict         = &Error{Code: Conflict}
	ErrInsufficientData = &Error{Code: InsufficientData}
	ErrUnsafeAdjustment = &Error{Code: UnsafeAdjustment}
)

// New builds a coded error for operation op.
func New(code Code, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or "" when err is not a domain error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// #endregion error
