package core

import (
	"errors"
	"fmt"
)

// Error categories. Concrete errors match them through errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrTransport     = errors.New("transport failure")
	ErrNotFound      = errors.New("not found")
	ErrInvalidSort   = errors.New("invalid sort key")
	ErrInvalidPeriod = errors.New("invalid period")
)

// ValidationError reports a rejected field before any remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// TransportError is a network or HTTP-layer failure from the remote gateway.
type TransportError struct {
	Op         string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: http %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
