package worker

import (
	"encoding/json"

	"gitfeed/internal"

	"github.com/ThreeDotsLabs/watermill/message"
)

// Codec is an interface for decoding messages from a message broker into an Event.
type Codec interface {
	// Decode transforms a Watermill message into an Event.
	Decode(topic string, msg *message.Message) (*Event, error)
}

// DefaultCodec decodes the JSON envelope the ingress publisher emits.
type DefaultCodec struct{}

type envelope struct {
	Provider  string                   `json:"provider"`
	Name      string                   `json:"name"`
	EventID   string                   `json:"event_id"`
	RequestID string                   `json:"request_id"`
	Record    *internal.CanonicalEvent `json:"record"`
}

// Decode unmarshals a Watermill message into an Event. Envelope fields
// missing from the payload fall back to message metadata.
func (DefaultCodec) Decode(topic string, msg *message.Message) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, err
	}

	metadata := make(map[string]string, len(msg.Metadata))
	for key, value := range msg.Metadata {
		metadata[key] = value
	}

	provider := env.Provider
	if provider == "" {
		provider = msg.Metadata.Get("provider")
	}
	eventName := env.Name
	if eventName == "" {
		eventName = msg.Metadata.Get("event")
	}
	eventID := env.EventID
	if eventID == "" {
		eventID = msg.Metadata.Get("event_id")
	}
	requestID := env.RequestID
	if requestID == "" {
		requestID = msg.Metadata.Get("request_id")
	}

	return &Event{
		Provider:  provider,
		Type:      eventName,
		Topic:     topic,
		EventID:   eventID,
		RequestID: requestID,
		Metadata:  metadata,
		Payload:   json.RawMessage(msg.Payload),
		Record:    env.Record,
	}, nil
}
