// Package common defines the error taxonomy shared by the repositories,
// services and transport layers. Every specific error unwraps to exactly one
// kind sentinel, so callers match either level with errors.Is.
package common

import "errors"

// Error kinds.
var (
	ErrValidation        = errors.New("validation error")
	ErrAuth              = errors.New("authentication error")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrDependencyFailure = errors.New("dependency failure")
)

// kindError is a specific error that belongs to one of the kinds above.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func newError(kind error, msg string) error {
	return &kindError{kind: kind, msg: msg}
}

var (
	// Validation errors (user-correctable input problems).
	ErrMissingRequiredFields     = newError(ErrValidation, "missing required fields")
	ErrNoEditableFields          = newError(ErrValidation, "no valid fields to update")
	ErrInvalidRole               = newError(ErrValidation, "invalid role")
	ErrInvalidField              = newError(ErrValidation, "invalid field value")
	ErrSelfModificationForbidden = newError(ErrValidation, "you cannot change your own status")
	ErrUnsupportedMediaType      = newError(ErrValidation, "unsupported image type")
	ErrAttachmentTooLarge        = newError(ErrValidation, "image exceeds maximum size")
	ErrImageDimensions           = newError(ErrValidation, "image dimensions exceed maximum")

	// Authentication errors.
	ErrInvalidCredentials = newError(ErrAuth, "invalid email or password")
	ErrAccountInactive    = newError(ErrAuth, "user is inactive")
	ErrMissingToken       = newError(ErrAuth, "token missing")
	ErrMalformedToken     = newError(ErrAuth, "invalid token format")
	ErrInvalidToken       = newError(ErrAuth, "invalid or expired token")

	// Repository-level errors.
	ErrorNotFound          = newError(ErrNotFound, "not found")
	ErrDuplicateIdentifier = newError(ErrConflict, "email already exists")
)

// Kind returns the kind sentinel err belongs to, or ErrDependencyFailure
// for anything outside the taxonomy.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrAuth, ErrForbidden, ErrNotFound, ErrConflict, ErrDependencyFailure} {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrDependencyFailure
}
