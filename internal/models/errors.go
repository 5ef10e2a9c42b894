package models

import "errors"

var (
	// ErrTicketNotFound indicates the referenced ticket does not exist or
	// the caller has no permission to view it.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrUnauthorized indicates the JIRA credentials were rejected.
	ErrUnauthorized = errors.New("jira authentication failed")

	// ErrForbidden indicates the credentials are valid but lack access.
	ErrForbidden = errors.New("access to ticket denied")

	// ErrInvalidTicketKey indicates a malformed ticket reference.
	ErrInvalidTicketKey = errors.New("invalid ticket key format")

	// ErrJiraUnavailable indicates the JIRA server could not be reached.
	ErrJiraUnavailable = errors.New("jira server unreachable")

	// ErrInvalidResponse indicates an unparseable JIRA payload.
	ErrInvalidResponse = errors.New("invalid response from jira")
)

// ValidationError rejects a request before it enters the pipeline. Its
// message is surfaced verbatim to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}
