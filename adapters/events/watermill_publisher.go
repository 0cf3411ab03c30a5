package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/rangda/ports"
)

// AcceptedEvent represents an accepted handshake
type AcceptedEvent struct {
	Address string `json:"address"`
	Nonce   string `json:"nonce"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "handshake.accepted",
	}
}

// PublishAccepted publishes an accepted-handshake event
func (p *WatermillPublisher) PublishAccepted(ctx context.Context, address string, nonce string) error {
	event := AcceptedEvent{
		Address: address,
		Nonce:   nonce,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
