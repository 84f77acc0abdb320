// Package common defines shared constants and sentinel errors used across
// repositories, services and the HTTP layer. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors.
	ErrInternal        = errors.New("internal error")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")

	// Validation errors, checked before any side effect.
	ErrValidation      = errors.New("invalid input")
	ErrBadUpload       = errors.New("invalid upload")
	ErrAddressNotFound = errors.New("could not find location for the specified address")

	// Token errors.
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
)
