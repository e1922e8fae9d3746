package worker

import (
	"encoding/json"

	"gitfeed/internal"
)

// Event represents a feed message received by the worker.
type Event struct {
	// Provider is the name of the git provider (e.g., "github", "gitlab").
	Provider string `json:"provider"`
	// Type is the provider's event discriminator (e.g., "push").
	Type string `json:"type"`
	// Topic is the name of the topic the message was received on.
	Topic string `json:"topic"`
	// EventID is the identifier the store assigned when the event was written.
	EventID string `json:"event_id"`
	// RequestID is the ingress request that produced the event.
	RequestID string `json:"request_id"`
	// Metadata contains message-broker-specific metadata.
	Metadata map[string]string `json:"metadata"`
	// Payload is the raw JSON payload of the message.
	Payload json.RawMessage `json:"payload"`
	// Record is the canonical feed record carried by the message, if any.
	Record *internal.CanonicalEvent `json:"record"`
}
