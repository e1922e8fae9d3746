package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gitfeed/internal"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

func feedMessage(t *testing.T) *message.Message {
	t.Helper()
	payload, err := json.Marshal(internal.Event{
		Provider:  "github",
		Name:      "push",
		EventID:   "evt-9",
		RequestID: "req-1",
		Record: &internal.CanonicalEvent{
			Author:    "alice",
			Action:    internal.ActionPush,
			ToBranch:  "main",
			Timestamp: "2024-05-01T10:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("provider", "github")
	msg.Metadata.Set("event", "push")
	return msg
}

func TestDefaultCodecDecodesEnvelope(t *testing.T) {
	evt, err := DefaultCodec{}.Decode("feed.events", feedMessage(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Provider != "github" || evt.Type != "push" || evt.Topic != "feed.events" {
		t.Fatalf("unexpected envelope: %+v", evt)
	}
	if evt.EventID != "evt-9" || evt.RequestID != "req-1" {
		t.Fatalf("unexpected identifiers: %+v", evt)
	}
	if evt.Record == nil || evt.Record.Author != "alice" || evt.Record.Action != internal.ActionPush {
		t.Fatalf("unexpected record: %+v", evt.Record)
	}
}

func TestDefaultCodecMetadataFallback(t *testing.T) {
	msg := message.NewMessage(watermill.NewUUID(), []byte(`{}`))
	msg.Metadata.Set("provider", "gitlab")
	msg.Metadata.Set("event", "Push Hook")
	msg.Metadata.Set("event_id", "evt-2")
	msg.Metadata.Set("request_id", "req-2")

	evt, err := DefaultCodec{}.Decode("feed.events", msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if evt.Provider != "gitlab" || evt.Type != "Push Hook" || evt.EventID != "evt-2" || evt.RequestID != "req-2" {
		t.Fatalf("expected metadata fallback, got %+v", evt)
	}
}

func TestWorkerDispatchesToTopicHandler(t *testing.T) {
	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))

	received := make(chan *Event, 1)
	w := New(
		WithSubscriber(pubsub),
		WithTopics("feed.events"),
	)
	w.HandleTopic("feed.events", func(ctx context.Context, evt *Event) error {
		received <- evt
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the subscriber loop a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)
	if err := pubsub.Publish("feed.events", feedMessage(t)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case evt := <-received:
		if evt.Record == nil || evt.Record.ToBranch != "main" {
			t.Fatalf("unexpected event: %+v", evt)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("handler was not invoked")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker did not stop")
	}
}

func TestWorkerRejectsHandlerForUnsubscribedTopic(t *testing.T) {
	w := New(WithTopics("feed.events"))
	w.HandleTopic("other.topic", func(ctx context.Context, evt *Event) error { return nil })
	if _, ok := w.topicHandlers["other.topic"]; ok {
		t.Fatalf("expected handler for unsubscribed topic to be dropped")
	}
}
