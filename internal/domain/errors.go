package domain

import (
	"fmt"
	"strings"
)

// Error types for consistent error handling across the portal.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call
// (store rejected the write, RLS denial, network failure).
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrTimeout indicates an operation exceeded its deadline.
type ErrTimeout struct {
	Operation string
}

func (e *ErrTimeout) Error() string {
	return fmt.Sprintf("operation timed out: %s", e.Operation)
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input). No write has been
// performed when it is returned.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrDuplicate indicates a uniqueness-constraint violation in the store.
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate: %s", e.Key)
}

// ErrForbidden indicates the principal lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates the operation clashes with current state
// (submission already in flight, process number already registered, ...).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrInvalidTransition indicates an auction status change the pipeline refuses.
type ErrInvalidTransition struct {
	From AuctionStatus
	To   AuctionStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid auction transition: %s -> %s", e.From, e.To)
}

// ErrPartialBatch reports a batch where some writes persisted and others did not.
type ErrPartialBatch struct {
	Succeeded []string
	Failed    []string
	Err       error
}

func (e *ErrPartialBatch) Error() string {
	return fmt.Sprintf("partial batch: %d succeeded [%s], %d failed [%s]: %v",
		len(e.Succeeded), strings.Join(e.Succeeded, ","),
		len(e.Failed), strings.Join(e.Failed, ","), e.Err)
}

func (e *ErrPartialBatch) Unwrap() error {
	return e.Err
}

// ErrDocumentPending reports an award that was persisted but whose document
// could not be rendered. The award stands; the document can be reissued.
type ErrDocumentPending struct {
	AuctionID string
	Err       error
}

func (e *ErrDocumentPending) Error() string {
	return fmt.Sprintf("auction %s awarded, document pending: %v", e.AuctionID, e.Err)
}

func (e *ErrDocumentPending) Unwrap() error {
	return e.Err
}
