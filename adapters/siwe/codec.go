// Package siwe implements the sign-in-with-Ethereum message format and
// the EIP-191 personal-sign verification used by the handshake engine.
package siwe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/layer-3/rangda/core"
	"github.com/layer-3/rangda/ports"
)

const preambleSuffix = " wants you to sign in with your Ethereum account:"

// Codec composes and parses the canonical signing message.
//
// The message layout is line-oriented:
//
//	{domain} wants you to sign in with your Ethereum account:
//	{address}
//
//	{statement}
//
//	URI: {uri}
//	Version: {version}
//	Chain ID: {chain id}
//	Nonce: {nonce}
//	Expiration Time: {RFC3339 instant}
type Codec struct{}

// NewCodec creates a new message codec
func NewCodec() *Codec {
	return &Codec{}
}

var _ ports.MessageCodec = (*Codec)(nil)

// Compose renders the canonical message for the given fields.
func (c *Codec) Compose(fields core.MessageFields) (string, error) {
	if fields.Domain == "" {
		return "", fmt.Errorf("message requires a domain")
	}
	if fields.Address == "" {
		return "", fmt.Errorf("message requires an address")
	}
	if fields.Nonce == "" {
		return "", fmt.Errorf("message requires a nonce")
	}

	var b strings.Builder
	b.WriteString(fields.Domain)
	b.WriteString(preambleSuffix)
	b.WriteString("\n")
	b.WriteString(fields.Address)
	b.WriteString("\n\n")
	b.WriteString(fields.Statement)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "URI: %s\n", fields.URI)
	fmt.Fprintf(&b, "Version: %s\n", fields.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", fields.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", fields.Nonce)
	fmt.Fprintf(&b, "Expiration Time: %s", fields.ExpiresAt.UTC().Format(time.RFC3339))

	return b.String(), nil
}

// Parse extracts the structured fields from a message string.
func (c *Codec) Parse(message string) (core.MessageFields, error) {
	lines := strings.Split(message, "\n")
	if len(lines) < 4 {
		return core.MessageFields{}, fmt.Errorf("message too short")
	}

	var fields core.MessageFields

	domain, ok := strings.CutSuffix(lines[0], preambleSuffix)
	if !ok || domain == "" {
		return core.MessageFields{}, fmt.Errorf("malformed preamble")
	}
	fields.Domain = domain
	fields.Address = lines[1]

	if lines[2] != "" {
		return core.MessageFields{}, fmt.Errorf("expected blank line after address")
	}

	// Statement runs until the blank line before the attribute block.
	i := 3
	var statement []string
	for ; i < len(lines) && lines[i] != ""; i++ {
		statement = append(statement, lines[i])
	}
	fields.Statement = strings.Join(statement, "\n")
	i++ // skip blank separator

	for ; i < len(lines); i++ {
		name, value, found := strings.Cut(lines[i], ": ")
		if !found {
			return core.MessageFields{}, fmt.Errorf("malformed attribute line %q", lines[i])
		}

		switch name {
		case "URI":
			fields.URI = value
		case "Version":
			fields.Version = value
		case "Chain ID":
			chainID, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return core.MessageFields{}, fmt.Errorf("malformed chain id %q: %w", value, err)
			}
			fields.ChainID = chainID
		case "Nonce":
			fields.Nonce = value
		case "Expiration Time":
			expiresAt, err := time.Parse(time.RFC3339, value)
			if err != nil {
				return core.MessageFields{}, fmt.Errorf("malformed expiration time %q: %w", value, err)
			}
			fields.ExpiresAt = expiresAt
		default:
			return core.MessageFields{}, fmt.Errorf("unknown attribute %q", name)
		}
	}

	if fields.Nonce == "" {
		return core.MessageFields{}, fmt.Errorf("message carries no nonce")
	}

	return fields, nil
}
