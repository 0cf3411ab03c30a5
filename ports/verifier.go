package ports

import "context"

// Verdict is the outcome of a signature verification.
type Verdict int

const (
	// VerdictValid means the signature verifies and the message carries
	// the expected nonce.
	VerdictValid Verdict = iota
	// VerdictInvalidSignature means the signature does not verify
	// against the address named in the message.
	VerdictInvalidSignature
	// VerdictUnknownNonce means the message's nonce is not the one the
	// verifier was asked to expect.
	VerdictUnknownNonce
	// VerdictError means verification failed for an unclassified reason.
	VerdictError
)

// SignatureVerifier checks a signed message against the address it
// names. The verdict is a tagged result rather than an error so the
// caller can map each outcome without sentinel comparisons.
type SignatureVerifier interface {
	Verify(ctx context.Context, message, signature, expectedNonce string) (Verdict, error)
}

// AddressValidator reports whether a wallet address is well-formed.
type AddressValidator interface {
	IsWellFormed(address string) bool
}
