package errors

import (
	"errors"
	"fmt"
)

// Domain errors - these represent violations of the collaboration layer's rules
var (
	// Room & connection
	ErrRoomNotConnected  = errors.New("room is not connected")
	ErrRoomClosed        = errors.New("room has been disconnected")
	ErrInvalidRoomKey    = errors.New("invalid room key")
	ErrSubscriptionGone  = errors.New("subscription not found")
	ErrSendQueueOverflow = errors.New("outbound queue overflow")

	// Envelope validation
	ErrUnknownEnvelopeKind = errors.New("unknown envelope kind")
	ErrMalformedEnvelope   = errors.New("malformed envelope payload")

	// Comment merge
	ErrCommentNotFound = errors.New("comment not found")

	// Board mutations
	ErrTicketNotFound     = errors.New("ticket not found on board")
	ErrColumnNotFound     = errors.New("column not found on board")
	ErrInvalidDropIndex   = errors.New("drop index out of range")
	ErrNoActiveDrag       = errors.New("no drag in progress")
	ErrDuplicateTicket    = errors.New("ticket already present in column")
	ErrInvalidOrderLength = errors.New("reorder list does not match column contents")

	// Auth
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("action forbidden")

	// Generic
	ErrNotFound    = errors.New("resource not found")
	ErrInternal    = errors.New("internal error")
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limit exceeded")
)

// AppError wraps errors with additional context for HTTP responses
type AppError struct {
	Err        error  // The underlying error
	Message    string // User-friendly message
	Code       string // Machine-readable error code
	StatusCode int    // HTTP status code
	Details    map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors for common cases
func NewBadRequestError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "BAD_REQUEST",
		StatusCode: 400,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Err:        ErrUnauthorized,
		Message:    message,
		Code:       "UNAUTHORIZED",
		StatusCode: 401,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Err:        ErrForbidden,
		Message:    message,
		Code:       "FORBIDDEN",
		StatusCode: 403,
	}
}

func NewNotFoundError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "NOT_FOUND",
		StatusCode: 404,
	}
}

func NewConflictError(err error, message string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		Code:       "CONFLICT",
		StatusCode: 409,
	}
}

func NewRateLimitError() *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "Too many requests. Please try again later.",
		Code:       "RATE_LIMITED",
		StatusCode: 429,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Err:        err,
		Message:    "An unexpected error occurred",
		Code:       "INTERNAL_ERROR",
		StatusCode: 500,
	}
}

// RemoteError carries a failure reported by the collaborator REST service
// (success=false in the response envelope, or a non-2xx status).
type RemoteError struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("remote error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("remote error (%d)", e.StatusCode)
}
