package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication errors. Unknown email and wrong password are
	// deliberately conflated into ErrInvalidCredentials.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountDeactivated = errors.New("account is deactivated")
	ErrDuplicateEmail     = errors.New("email is already registered")

	// Token errors. Callers distinguish expired from invalid: expired access
	// tokens can be silently refreshed, invalid ones force re-login.
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")

	// Reset/verification token errors share one kind so not-found and
	// past-expiry are indistinguishable to the caller.
	ErrInvalidResetToken = errors.New("invalid or expired token")

	// ErrUpstream marks failures of external collaborators (email dispatch,
	// OAuth providers). Retryable by the caller.
	ErrUpstream = errors.New("upstream service failure")
)
