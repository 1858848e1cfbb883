// Package stage defines the uniform call/fail contract shared by the
// external collaborator adapters (recognizer, responder, synthesizer).
// Every collaborator failure is classified here once, so failure policy
// can live in exactly one place: the pipeline orchestrator.
package stage

import (
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures.
type ErrorKind int

const (
	// Unavailable means the collaborator is not initialized or its model
	// is missing.
	Unavailable ErrorKind = iota
	// Timeout means the call exceeded its stage deadline.
	Timeout
	// Rejected means the collaborator refused the input as malformed.
	Rejected
)

func (k ErrorKind) String() string {
	switch k {
	case Unavailable:
		return "unavailable"
	case Timeout:
		return "timeout"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against an *Error's kind.
var (
	ErrUnavailable = errors.New("collaborator unavailable")
	ErrTimeout     = errors.New("collaborator timeout")
	ErrRejected    = errors.New("input rejected")
)

// Error is a classified adapter failure.
type Error struct {
	Kind  ErrorKind
	Stage string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind sentinels so callers can write
// errors.Is(err, stage.ErrTimeout).
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.Kind == Unavailable
	case ErrTimeout:
		return e.Kind == Timeout
	case ErrRejected:
		return e.Kind == Rejected
	}
	return false
}

// NewError builds a classified stage error.
func NewError(kind ErrorKind, stageName string, err error) *Error {
	return &Error{Kind: kind, Stage: stageName, Err: err}
}

// KindOf extracts the classification from an adapter error. Unclassified
// errors count as Unavailable: an adapter that fails in an unanticipated
// way is treated like a missing collaborator, not a caller mistake.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return Unavailable
}
