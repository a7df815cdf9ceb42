package workflow

import (
	"fmt"
	"strings"
)

// Error codes surfaced to HTTP handlers
const (
	CodeAccessDenied           = "ACCESS_DENIED"
	CodeInvalidTransition      = "INVALID_TRANSITION"
	CodeMissingPrice           = "MISSING_PRICE"
	CodeIncompleteSubmission   = "INCOMPLETE_SUBMISSION"
	CodeConflict               = "CONFLICT"
	CodeNotFound               = "NOT_FOUND"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidAddressFormat   = "INVALID_ADDRESS_FORMAT"
	CodePickupInPast           = "PICKUP_IN_PAST"
	CodeRequiresApprovalToEdit = "REQUIRES_APPROVAL_TO_EDIT"
	CodeUpdateRequestPending   = "UPDATE_REQUEST_PENDING"
	CodeDetailsNotConfirmed    = "DETAILS_NOT_CONFIRMED"
	CodeOrderNotCompleted      = "ORDER_NOT_COMPLETED"
)

// WorkflowError is implemented by every error the workflow package returns,
// so handlers can map errors to response codes without string matching.
type WorkflowError interface {
	error
	ErrorCode() string
}

// AccessDeniedError is returned when the actor's role or ownership does not
// permit the operation. The message is deliberately generic so a baker cannot
// probe for the existence of foreign orders.
type AccessDeniedError struct{}

func (e *AccessDeniedError) Error() string     { return "you do not have permission to access this order" }
func (e *AccessDeniedError) ErrorCode() string { return CodeAccessDenied }

// InvalidTransitionError is returned when the requested stage is not
// reachable from the current stage for the actor's role. Allowed carries the
// legal target set for caller guidance.
type InvalidTransitionError struct {
	From    string
	Target  string
	Allowed []string
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("cannot move order from %q to %q: no transitions available for your role", e.From, e.Target)
	}
	return fmt.Sprintf("cannot move order from %q to %q: allowed targets are %s",
		e.From, e.Target, strings.Join(e.Allowed, ", "))
}
func (e *InvalidTransitionError) ErrorCode() string { return CodeInvalidTransition }

// MissingPriceError is returned when an order would enter Requires Approval
// without a positive price set or supplied.
type MissingPriceError struct{}

func (e *MissingPriceError) Error() string {
	return "a price greater than zero is required to move the order to Requires Approval"
}
func (e *MissingPriceError) ErrorCode() string { return CodeMissingPrice }

// IncompleteSubmissionError is returned when a baker submits a draft whose
// items are missing inspiration images. ItemCount is the number of offending
// items.
type IncompleteSubmissionError struct {
	ItemCount int
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("%d item(s) have no inspiration images; every item needs at least one before submission", e.ItemCount)
}
func (e *IncompleteSubmissionError) ErrorCode() string { return CodeIncompleteSubmission }

// ConflictError is returned when an optimistic-version write loses a race.
// The caller must re-fetch the order and resubmit; the workflow never retries.
type ConflictError struct{}

func (e *ConflictError) Error() string {
	return "the order was modified by another request; please reload and try again"
}
func (e *ConflictError) ErrorCode() string { return CodeConflict }

// NotFoundError is returned when a referenced order, item or request does not
// exist or was deleted concurrently.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string     { return fmt.Sprintf("%s not found", e.Entity) }
func (e *NotFoundError) ErrorCode() string { return CodeNotFound }

// ValidationError is a payload-level rejection with a specific code
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string     { return e.Message }
func (e *ValidationError) ErrorCode() string { return e.Code }
