package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a local form check failure. No network call was made.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err *ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// AuthenticationError means the backend rejected the submitted credentials.
type AuthenticationError struct {
	Status  int
	Message string
}

func (err *AuthenticationError) Error() string {
	if err.Message == "" {
		return http.StatusText(err.Status)
	}
	return err.Message
}

// NetworkError means a request could not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (err *NetworkError) Error() string {
	return "Failed to connect to server."
}

func (err *NetworkError) Cause() error  { return err.Err }
func (err *NetworkError) Unwrap() error { return err.Err }

// SessionExpiredError is returned by authenticated calls answered with 401.
type SessionExpiredError struct {
	Path string
}

func (err *SessionExpiredError) Error() string {
	return "Session expired. Please login to continue."
}

// AuthorizationError is a role mismatch on a protected route.
type AuthorizationError struct {
	Path     string
	Role     string
	Redirect string
}

func (err *AuthorizationError) Error() string {
	if err.Role == "" {
		return fmt.Sprintf("%s: login required", err.Path)
	}
	return fmt.Sprintf("%s: role %s not allowed", err.Path, err.Role)
}

// APIError is any other non-2xx answer of the backend on an authenticated call.
type APIError struct {
	Status  int
	Message string
}

func (err *APIError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("api: %d %s", err.Status, http.StatusText(err.Status))
	}
	return fmt.Sprintf("api: %d %s", err.Status, err.Message)
}

func IsValidation(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

func IsAuthentication(err error) bool {
	var aErr *AuthenticationError
	return errors.As(err, &aErr)
}

func IsNetwork(err error) bool {
	var nErr *NetworkError
	return errors.As(err, &nErr)
}

func IsSessionExpired(err error) bool {
	var sErr *SessionExpiredError
	return errors.As(err, &sErr)
}

func IsAuthorization(err error) bool {
	var aErr *AuthorizationError
	return errors.As(err, &aErr)
}
