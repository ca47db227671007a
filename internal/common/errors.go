// Package common defines shared constants and sentinel errors used across
// client and server layers of webxfer. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Cryptographic errors. These always abort the operation.
	ErrMalformedToken       = errors.New("malformed token")
	ErrMalformedSalt        = errors.New("malformed salt")
	ErrInvalidContext       = errors.New("invalid kdf context")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// File lifecycle errors.
	ErrExhausted     = errors.New("download limit reached")
	ErrExpired       = errors.New("file expired")
	ErrInvalidPolicy = errors.New("invalid download policy")

	// ErrStorageFailure wraps any repository or blob store error.
	ErrStorageFailure = errors.New("storage failure")

	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrPayloadTooLarge = errors.New("payload too large")

	// Operator token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsUnavailable reports whether err is one of the conditions that must look
// the same to an unauthorized prober: no such file, no downloads left, or past
// its expiry.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrorNotFound) || errors.Is(err, ErrExhausted) || errors.Is(err, ErrExpired)
}
