package decision

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed call so callers can tell configuration problems
// from bad input and from engine faults.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindInternal      ErrorKind = "internal"
)

var (
	ErrNoStrategyAvailable = errors.New("no strategy available")
	ErrUnknownStrategy     = errors.New("unknown strategy")
	ErrUnknownStrategyType = errors.New("unknown strategy type")
	ErrNoOptions           = errors.New("no options supplied")
	ErrStrategyExists      = errors.New("strategy already exists")
	ErrCatalogFull         = errors.New("strategy catalogue is full")
	ErrInvalidStrategy     = errors.New("invalid strategy")
)

// Error is the typed failure returned by the engine.
type Error struct {
	Kind       ErrorKind
	Op         string
	StrategyID string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.StrategyID != "" {
		msg += fmt.Sprintf(" (strategy=%s)", e.StrategyID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds an *Error.
func NewError(kind ErrorKind, op, strategyID string, err error) *Error {
	return &Error{Kind: kind, Op: op, StrategyID: strategyID, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
