package core

import (
	"fmt"
	"time"
)

// Config holds the handshake engine configuration. It is loaded once
// and treated as immutable for the lifetime of the service.
type Config struct {
	// Domain a valid proof's message must name, e.g. "example.com".
	Domain string
	// Statement a valid proof's message must carry verbatim.
	Statement string
	// Version of the message format a valid proof must declare.
	Version string
	// PreventReplay gates all nonce store interaction. When false no
	// replay guard is written or consumed.
	PreventReplay bool
	// MessageValidityWindow is added to the issuance instant to compute
	// a challenge's expiration. Must be strictly positive.
	MessageValidityWindow time.Duration
}

// Validate checks the configuration for well-formedness. It is run at
// service construction; a failing configuration prevents the service
// from ever handling a request.
func (c Config) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("%w: domain must not be empty", ErrInvalidConfig)
	}
	if c.Statement == "" {
		return fmt.Errorf("%w: statement must not be empty", ErrInvalidConfig)
	}
	if c.Version == "" {
		return fmt.Errorf("%w: version must not be empty", ErrInvalidConfig)
	}
	if c.MessageValidityWindow <= 0 {
		return fmt.Errorf("%w: message_validity_window must be positive", ErrInvalidConfig)
	}
	return nil
}
