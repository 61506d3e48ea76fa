// Package common defines sentinel errors and constants shared by the server
// and the operator CLI. Callers match the sentinels with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorBadRequest   = errors.New("bad request")

	// Credential and token errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMalformedToken     = errors.New("malformed token")

	// Preference update errors.
	ErrEmptyPreferences     = errors.New("empty preferences")
	ErrNoMatchingPreference = errors.New("no matching preference")
)

// Error pairs a sentinel kind with a message that is safe to show to API
// clients. errors.Is matches the kind.
type Error struct {
	Kind    error
	Message string
}

func NewError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }
