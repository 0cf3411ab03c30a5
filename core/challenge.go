package core

import "time"

// ChallengeRequest is the shape of an incoming challenge request.
// It is a closed sum: either the server composes the full ready-to-sign
// message (FullChallengeRequest) or it hands back only the nonce and
// expiration and the client assembles the message itself
// (MinimalChallengeRequest). The two carry disjoint field sets, so they
// are separate types rather than one struct with optional members.
type ChallengeRequest interface {
	challengeRequest()
}

// FullChallengeRequest asks the server for a complete signing message.
type FullChallengeRequest struct {
	Address     string // wallet address the message will name
	CallbackURI string // URI bound into the message
	ChainID     int64  // chain the signature is scoped to
}

// MinimalChallengeRequest asks only for a nonce and its expiration.
type MinimalChallengeRequest struct{}

func (FullChallengeRequest) challengeRequest()    {}
func (MinimalChallengeRequest) challengeRequest() {}

// ChallengeResponse is what the issuer hands back to the client.
// Message is empty for minimal-mode requests.
type ChallengeResponse struct {
	Message   string    // ready-to-sign message (full mode only)
	Nonce     string    // random single-use token
	ExpiresAt time.Time // instant after which the challenge is dead
}

// NonceRecord is the replay guard for one issued challenge.
// It is never mutated: consumption is deletion.
type NonceRecord struct {
	Token     string    // primary lookup key
	ExpiresAt time.Time // strict cutoff; a record at exactly now is expired
}

// ProofEnvelope is a presented proof: the signed message, the
// signature over it, and what the client claims about both.
// It is transient and never persisted.
type ProofEnvelope struct {
	Message   string // exact message string the client signed
	Signature string // hex-encoded signature bytes
	Nonce     string // nonce the client claims the message carries
	Address   string // address the client claims signed the message
}

// MessageFields are the structured fields parsed out of a signed
// message by the message codec.
type MessageFields struct {
	Domain    string
	Address   string
	Statement string
	URI       string
	Version   string
	ChainID   int64
	Nonce     string
	ExpiresAt time.Time
}
