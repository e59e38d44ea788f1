// Package common defines shared constants and sentinel errors used across
// TeamVault components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Crypto errors. A GCM tag mismatch and a malformed ciphertext are
	// indistinguishable to the caller on purpose.
	ErrDecryptionFailed = errors.New("decryption failed")

	// Startup errors. Fatal: the process must not serve requests.
	ErrConfiguration = errors.New("configuration error")
)
