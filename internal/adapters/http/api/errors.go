package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrUnavailable  = errors.New("service unavailable")

	errMissingLimit = errors.New("limit is required")
)

// opError annotates an error with the handler that produced it. The kind is
// exposed through errors.Is; the message is what clients see.
type opError struct {
	op   string
	kind error
	err  error
}

func (e *opError) Error() string {
	switch {
	case e.err == nil:
		return e.kind.Error()
	case e.kind == nil:
		return e.err.Error()
	default:
		return fmt.Sprintf("%s: %s", e.kind, e.err)
	}
}

func (e *opError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.kind != nil {
		out = append(out, e.kind)
	}
	if e.err != nil {
		out = append(out, e.err)
	}
	return out
}

// NewKind builds an error of the given kind.
func NewKind(op string, kind error) error {
	return &opError{op: op, kind: kind}
}

// WrapKind classifies err as kind.
func WrapKind(op string, kind, err error) error {
	return &opError{op: op, kind: kind, err: err}
}

// Wrap records op on err without changing its kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}
