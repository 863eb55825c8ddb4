package service

import (
	"fmt"
	"net/http"
)

// AuthError is a client-facing failure. Two AuthErrors match under errors.Is
// when their codes are equal, so callers can compare against the sentinels
// below regardless of the message.
type AuthError struct {
	Code    string
	Message string
	Status  int
	cause   error
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.cause
}

func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Code == e.Code
}

func (e *AuthError) withCause(err error) *AuthError {
	clone := *e
	clone.cause = err
	return &clone
}

var (
	ErrValidation             = &AuthError{Code: "validation_error", Message: "Invalid request.", Status: http.StatusBadRequest}
	ErrEmailAlreadyRegistered = &AuthError{Code: "email_already_registered", Message: "Email is already registered.", Status: http.StatusBadRequest}
	ErrInvalidCredentials     = &AuthError{Code: "invalid_credentials", Message: "Invalid email or password.", Status: http.StatusUnauthorized}
	ErrUnauthenticated        = &AuthError{Code: "unauthenticated", Message: "Invalid or expired token.", Status: http.StatusUnauthorized}
	ErrNotFound               = &AuthError{Code: "not_found", Message: "User no longer exists.", Status: http.StatusUnauthorized}
	ErrTooManyAttempts        = &AuthError{Code: "too_many_attempts", Message: "Too many failed login attempts. Please try again later.", Status: http.StatusTooManyRequests}
)

func newValidationError(message string) *AuthError {
	return &AuthError{Code: ErrValidation.Code, Message: message, Status: ErrValidation.Status}
}
