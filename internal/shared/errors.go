package shared

import (
	"errors"
	"sort"
)

var (
	// ErrValidation indicates malformed client input.
	ErrValidation = errors.New("validation failed")
	// ErrEmailExists indicates a uniqueness conflict on the user email.
	ErrEmailExists = errors.New("email already exists")
	// ErrInvalidCredentials indicates login failure. Unknown email and wrong password share it.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserBlocked indicates the account exists but has been blocked.
	ErrUserBlocked = errors.New("user is blocked")
	// ErrUnauthorized indicates a missing, invalid or expired bearer token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserGone indicates the token subject was deleted after the token was issued.
	ErrUserGone = &wrappedError{msg: "user no longer exists", parent: ErrUnauthorized}
	// ErrForbidden indicates an authorization denial unrelated to the token itself.
	ErrForbidden = errors.New("forbidden")
	// ErrInternal marks unexpected failures, including store connectivity problems.
	ErrInternal = errors.New("internal error")
)

type wrappedError struct {
	msg    string
	parent error
}

func (e *wrappedError) Error() string { return e.msg }

func (e *wrappedError) Unwrap() error { return e.parent }

// ValidationError carries field level messages keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError from a field map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

// FieldError is a shorthand for a single-field ValidationError.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if msg := e.Message(); msg != "" {
		return msg
	}
	return ErrValidation.Error()
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Message returns the message of the first field in alphabetical order.
func (e *ValidationError) Message() string {
	if e == nil || len(e.Fields) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return e.Fields[keys[0]]
}

// Internal wraps cause so it matches ErrInternal while keeping the cause for logs.
func Internal(cause error) error {
	if cause == nil {
		return ErrInternal
	}
	return &internalError{cause: cause}
}

type internalError struct {
	cause error
}

func (e *internalError) Error() string { return ErrInternal.Error() + ": " + e.cause.Error() }

func (e *internalError) Unwrap() []error { return []error{ErrInternal, e.cause} }
