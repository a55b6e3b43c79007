// Package apperr defines the typed error taxonomy shared by the domain
// services. The HTTP layer maps each kind to a fixed status code.
package apperr

import "errors"

// Kind classifies a domain error for transport mapping.
type Kind int

const (
	// KindInternal covers unexpected failures, including database errors.
	KindInternal Kind = iota
	// KindValidation covers malformed or missing input.
	KindValidation
	// KindAuthentication covers missing or invalid bearer tokens.
	KindAuthentication
	// KindUnauthorized covers insufficient privilege and business-rule
	// conflicts raised for an authenticated caller.
	KindUnauthorized
	// KindNotFound covers missing resources, cross-tenant lookups, and
	// unknown or expired tokens.
	KindNotFound
)

// Error carries a user-facing message tagged with a kind.
type Error struct {
	Kind    Kind
	Message string

	// Fields holds per-field validation messages, if any.
	Fields map[string][]string
}

func (e *Error) Error() string { return e.Message }

// Validation returns a validation error with the given message.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// ValidationFields returns a validation error carrying per-field messages.
func ValidationFields(msg string, fields map[string][]string) *Error {
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// Authentication returns an authentication error with the given message.
func Authentication(msg string) *Error {
	return &Error{Kind: KindAuthentication, Message: msg}
}

// Unauthorized returns an insufficient-privilege error with the given message.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// NotFound returns a missing-resource error with the given message.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// KindOf reports the kind of err. Errors outside the taxonomy are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// FieldsOf returns the per-field validation messages attached to err, if any.
func FieldsOf(err error) map[string][]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
