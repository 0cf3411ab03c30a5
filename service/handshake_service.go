package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

// HandshakeService implements the challenge–response handshake:
// challenge issuance, binding checks, signature verification and
// nonce-based replay prevention.
type HandshakeService struct {
	store    ports.NonceStore
	verifier ports.SignatureVerifier
	codec    ports.MessageCodec
	addrs    ports.AddressValidator

	config core.Config

	now func() time.Time
}

// NewHandshakeService validates the configuration and creates the
// handshake service. An invalid configuration fails construction; no
// request is ever handled under one.
func NewHandshakeService(
	store ports.NonceStore,
	verifier ports.SignatureVerifier,
	codec ports.MessageCodec,
	addrs ports.AddressValidator,
	config core.Config,
) (*HandshakeService, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &HandshakeService{
		store:    store,
		verifier: verifier,
		codec:    codec,
		addrs:    addrs,
		config:   config,
		now:      time.Now,
	}, nil
}

// Config returns the immutable engine configuration.
func (s *HandshakeService) Config() core.Config {
	return s.config
}

// IssueChallenge generates a fresh challenge for the given request.
// In full-message mode the response carries a complete ready-to-sign
// message; in minimal mode only the nonce and its expiration.
// When replay prevention is on, the replay-guard record is written
// before the challenge is returned; a failed write aborts issuance.
func (s *HandshakeService) IssueChallenge(ctx context.Context, req core.ChallengeRequest) (*core.ChallengeResponse, error) {
	full, isFull := req.(core.FullChallengeRequest)
	if isFull {
		if full.ChainID <= 0 {
			return nil, fmt.Errorf("%w: chain id must be a positive integer", core.ErrInvalidRequest)
		}
		if !s.addrs.IsWellFormed(full.Address) {
			return nil, fmt.Errorf("%w: malformed address", core.ErrInvalidRequest)
		}
		if full.CallbackURI == "" {
			return nil, fmt.Errorf("%w: callback uri must not be empty", core.ErrInvalidRequest)
		}
	}

	nonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	expiresAt := s.now().Add(s.config.MessageValidityWindow)

	if s.config.PreventReplay {
		if err := s.store.Create(ctx, nonce, expiresAt); err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
	}

	resp := &core.ChallengeResponse{
		Nonce:     nonce,
		ExpiresAt: expiresAt,
	}

	if isFull {
		message, err := s.codec.Compose(core.MessageFields{
			Domain:    s.config.Domain,
			Address:   full.Address,
			Statement: s.config.Statement,
			URI:       full.CallbackURI,
			Version:   s.config.Version,
			ChainID:   full.ChainID,
			Nonce:     nonce,
			ExpiresAt: expiresAt,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to compose message: %w", err)
		}
		resp.Message = message
	}

	return resp, nil
}

// CheckBinding parses the proof's message and compares its binding
// fields against the configuration, first mismatch wins. It is pure:
// the nonce store is never touched.
func (s *HandshakeService) CheckBinding(proof core.ProofEnvelope) (core.MessageFields, error) {
	fields, err := s.codec.Parse(proof.Message)
	if err != nil {
		return core.MessageFields{}, fmt.Errorf("%w: unparseable message: %v", core.ErrUnknownError, err)
	}

	if fields.Domain != s.config.Domain {
		return core.MessageFields{}, core.ErrInvalidDomain
	}
	if fields.Statement != s.config.Statement {
		return core.MessageFields{}, core.ErrInvalidStatement
	}
	if fields.Version != s.config.Version {
		return core.MessageFields{}, core.ErrInvalidVersion
	}

	return fields, nil
}

// ValidateHandshake runs the full acceptance pipeline over a presented
// proof: binding check, signature verification, then (when replay
// prevention is on) single-use nonce consumption. On success it
// returns the verified address; every rejection carries exactly one
// typed reason.
func (s *HandshakeService) ValidateHandshake(ctx context.Context, proof core.ProofEnvelope) (string, error) {
	fields, err := s.CheckBinding(proof)
	if err != nil {
		return "", err
	}

	verdict, err := s.verifier.Verify(ctx, proof.Message, proof.Signature, proof.Nonce)
	switch verdict {
	case ports.VerdictValid:
		// proceed
	case ports.VerdictInvalidSignature:
		return "", core.ErrInvalidSignature
	case ports.VerdictUnknownNonce:
		return "", core.ErrMessageExpired
	default:
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrUnknownError, err)
		}
		return "", core.ErrUnknownError
	}

	if proof.Address != "" && !strings.EqualFold(proof.Address, fields.Address) {
		return "", core.ErrInvalidSignature
	}

	if s.config.PreventReplay {
		claimed, err := s.store.Consume(ctx, proof.Nonce, s.now())
		if err != nil {
			return "", fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
		// Unknown, expired and already-consumed tokens are deliberately
		// indistinguishable here.
		if !claimed {
			return "", core.ErrMessageExpired
		}
	}

	return fields.Address, nil
}

// generateNonce returns a 256-bit random token, hex-encoded.
func generateNonce() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
