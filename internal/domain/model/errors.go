package model

import (
	"errors"
	"fmt"
)

var (
	// ErrDataIntegrity marks structural mismatches between naming conventions
	// and workflow definitions. Retrying cannot fix them.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrTimedOut is returned when an optional correlation or polling bound expires.
	ErrTimedOut = errors.New("timed out")

	// ErrNoRunIDs is returned when no run IDs are available for a report.
	ErrNoRunIDs = errors.New("no run IDs available")
)

// DispatchError reports a rejected workflow trigger. Dispatch is not retried:
// a duplicate trigger would corrupt correlation.
type DispatchError struct {
	Provider   Provider
	Workflow   string
	StatusCode int
	Body       string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s dispatch of %q failed with status %d: %s", e.Provider, e.Workflow, e.StatusCode, e.Body)
}

// APIError represents a non-2xx response from a provider API.
type APIError struct {
	Provider   Provider
	Endpoint   string
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API %s: HTTP %d: %s", e.Provider, e.Endpoint, e.StatusCode, e.Body)
}

// DataIntegrityError describes an entity that does not match the expected
// naming convention or definition.
type DataIntegrityError struct {
	Entity string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrDataIntegrity, e.Entity, e.Reason)
}

func (e *DataIntegrityError) Unwrap() error {
	return ErrDataIntegrity
}
