package core

import "errors"

var (
	// ErrInvalidRequest is returned when a challenge request is malformed.
	ErrInvalidRequest = errors.New("invalid challenge request")

	// ErrInvalidConfig is returned when the engine configuration fails
	// validation at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidDomain is returned when the proof's domain does not match
	// the configured domain.
	ErrInvalidDomain = errors.New("domain mismatch")

	// ErrInvalidStatement is returned when the proof's statement does not
	// match the configured statement.
	ErrInvalidStatement = errors.New("statement mismatch")

	// ErrInvalidVersion is returned when the proof's version does not
	// match the configured version.
	ErrInvalidVersion = errors.New("version mismatch")

	// ErrInvalidSignature is returned when the signature does not verify
	// against the claimed address.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrMessageExpired is returned when the proof's nonce is unknown,
	// expired, or already consumed. The three cases are deliberately
	// indistinguishable to the caller.
	ErrMessageExpired = errors.New("message expired or replayed")

	// ErrStorageUnavailable is returned when the nonce store could not be
	// reached. Issuance never degrades to handing out an unguarded
	// challenge.
	ErrStorageUnavailable = errors.New("nonce store unavailable")

	// ErrUnknownError is returned for unclassified verifier failures.
	ErrUnknownError = errors.New("unknown verification error")

	// ErrTokenExpired is returned when a session token has expired.
	ErrTokenExpired = errors.New("token has expired")

	// ErrInvalidToken is returned when a session token is invalid.
	ErrInvalidToken = errors.New("invalid token")
)
