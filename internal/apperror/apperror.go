package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("Validation Error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("unauthenticated")
)

// Social-state failures. Each one also matches the category it belongs to,
// so errors.Is(err, ErrConflict) holds for ErrEventFull and the handler
// layer only needs to know about the categories above.
var (
	ErrDuplicateConnection = fmt.Errorf("duplicate connection: %w", ErrConflict)
	ErrInvalidTransition   = fmt.Errorf("invalid transition: %w", ErrConflict)
	ErrUnauthorizedAction  = fmt.Errorf("unauthorized action: %w", ErrForbidden)
	ErrEventFull           = fmt.Errorf("event full: %w", ErrConflict)
	ErrAlreadyJoined       = fmt.Errorf("already joined: %w", ErrConflict)
	ErrInvalidCapacity     = fmt.Errorf("invalid capacity: %w", ErrValidation)
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthenticated is returned when credentials do not check out.
// The message is deliberately the same for "no such email" and "wrong password".
func Unauthenticated() *AppError {
	return &AppError{
		Err:     ErrUnauthenticated,
		Message: "invalid email or password",
	}
}

// DuplicateConnection reports that the two users already have a connection
// record, in either direction and in any state.
func DuplicateConnection(userA, userB string) *AppError {
	return &AppError{
		Err:     ErrDuplicateConnection,
		Message: fmt.Sprintf("a connection between %s and %s already exists", userA, userB),
	}
}

func InvalidTransition(connectionID string, status string) *AppError {
	return &AppError{
		Err:     ErrInvalidTransition,
		Message: fmt.Sprintf("connection %s has already been %s", connectionID, status),
	}
}

func UnauthorizedAction(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorizedAction,
		Message: message,
	}
}

func EventFull(eventID string) *AppError {
	return &AppError{
		Err:     ErrEventFull,
		Message: fmt.Sprintf("event %s is full", eventID),
	}
}

func AlreadyJoined(eventID, userID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyJoined,
		Message: fmt.Sprintf("user %s has already joined event %s", userID, eventID),
	}
}

func InvalidCapacity(capacity, min int) *AppError {
	return &AppError{
		Err:     ErrInvalidCapacity,
		Message: fmt.Sprintf("capacity must be at least %d, got %d", min, capacity),
		Field:   "capacity",
	}
}
