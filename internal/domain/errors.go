package domain

import (
	"errors"
	"fmt"
)

var (
	// Lookups
	ErrOpportunityNotFound = errors.New("opportunity not found")
	ErrFeedbackNotFound    = errors.New("feedback not found")

	// Enumerations
	ErrUnknownStage    = errors.New("unknown stage")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidRole     = errors.New("invalid role")

	// Role gating
	ErrForbidden = errors.New("stage not visible to current role")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// UpstreamError wraps a non-2xx answer (or transport failure) from GitHub or Jira.
// Status is 0 when no response was received.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s responded with status %d", e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PersistenceError is returned by every write that the data store rejected.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
