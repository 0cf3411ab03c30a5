package ports

import "context"

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishAccepted(ctx context.Context, address string, nonce string) error
}
