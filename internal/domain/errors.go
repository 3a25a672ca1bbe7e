package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput signals a keyword source without any usable lines.
	ErrEmptyInput = errors.New("no keywords found")
	// ErrTransport signals a failed call to the text-generation endpoint.
	ErrTransport = errors.New("generator transport error")
	// ErrMalformedJSON signals generator output that does not hold a usable JSON object.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrIncompleteResult signals a response without exactly QueriesPerCategory unique queries.
	ErrIncompleteResult = errors.New("incomplete result")
	// ErrPersistence signals that the aggregate file cannot be read or written.
	ErrPersistence = errors.New("persistence error")
)

// TransportError describes a generator call failure.
// StatusCode is zero when no HTTP response was received.
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", ErrTransport.Error(), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrTransport.Error(), e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause (context errors, net errors).
func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// NewTransportError creates a transport error.
func NewTransportError(statusCode int, err error) error {
	return &TransportError{StatusCode: statusCode, Err: err}
}

// IncompleteResultError wraps ErrIncompleteResult with the number of usable queries found.
type IncompleteResultError struct {
	Got int
}

func (e *IncompleteResultError) Error() string {
	return fmt.Sprintf("%s: expected exactly %d unique queries, got %d",
		ErrIncompleteResult.Error(), QueriesPerCategory, e.Got)
}

func (e *IncompleteResultError) Unwrap() error { return ErrIncompleteResult }

// NewIncompleteResult creates an incomplete result error.
func NewIncompleteResult(got int) error {
	return &IncompleteResultError{Got: got}
}
