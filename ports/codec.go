package ports

import "github.com/layer-3/rangda/core"

// MessageCodec converts between the canonical signing message string
// and its structured fields.
type MessageCodec interface {
	// Compose renders the canonical message for the given fields.
	Compose(fields core.MessageFields) (string, error)

	// Parse extracts the structured fields from a message string.
	Parse(message string) (core.MessageFields, error)
}
