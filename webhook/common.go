package webhook

import (
	"encoding/json"
	"log"
	"net/http"

	"gitfeed/internal"
	"gitfeed/pkg/storage"

	"github.com/ThreeDotsLabs/watermill"
)

// Deps carries the shared pipeline every provider handler runs after its
// provider-specific normalization: store the event, answer the sender, fan
// the stored event out to subscribers.
type Deps struct {
	Store        storage.EventStore
	Rules        *internal.RuleEngine
	Publisher    internal.Publisher
	DefaultTopic string
	Logger       *log.Logger
	MaxBody      int64
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-Id"); id != "" {
		return id
	}
	return watermill.NewUUID()
}

func rawObjectAndFlatten(raw []byte) (interface{}, map[string]interface{}) {
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, map[string]interface{}{}
	}
	objectMap, ok := out.(map[string]interface{})
	if !ok {
		return out, map[string]interface{}{}
	}
	return out, internal.Flatten(objectMap)
}

func respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondIgnored(w http.ResponseWriter, message string) {
	respond(w, http.StatusOK, map[string]string{
		"status":  "ignored",
		"message": message,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// process runs the shared tail of every ingress request. A nil evt means the
// delivery was valid but untracked; only a store failure is reported as an
// error to the sender.
func (d Deps) process(w http.ResponseWriter, r *http.Request, logger *log.Logger, provider, eventName, reqID string, rawBody []byte, evt *internal.CanonicalEvent) {
	if evt == nil {
		internal.IncIgnored(provider)
		respondIgnored(w, "Event did not match criteria for storage")
		return
	}

	stored, err := d.Store.WriteEvent(r.Context(), *evt)
	if err != nil {
		internal.IncStoreError(provider)
		logger.Printf("store %s %s failed: %v", provider, eventName, err)
		respondError(w, http.StatusInternalServerError, "Failed to store event: "+err.Error())
		return
	}
	internal.IncStored(string(stored.Action))

	respond(w, http.StatusCreated, map[string]interface{}{
		"status":    "success",
		"message":   "Event processed and stored",
		"event_id":  stored.ID,
		"author":    stored.Author,
		"action":    stored.Action,
		"to_branch": stored.ToBranch,
	})

	d.emit(r, logger, provider, eventName, reqID, rawBody, stored)
}

// emit fans the stored event out to every matched topic. Publish failures are
// logged and counted; the sender has already been answered.
func (d Deps) emit(r *http.Request, logger *log.Logger, provider, eventName, reqID string, rawBody []byte, stored internal.StoredEvent) {
	if d.Publisher == nil {
		return
	}

	rawObject, data := rawObjectAndFlatten(rawBody)
	event := internal.Event{
		Provider:   provider,
		Name:       eventName,
		EventID:    stored.ID,
		RequestID:  reqID,
		Record:     &stored.CanonicalEvent,
		RawPayload: rawBody,
		RawObject:  rawObject,
		Data:       data,
	}

	var matches []internal.Match
	if d.Rules != nil {
		matches = d.Rules.Evaluate(event)
	}
	if len(matches) == 0 && d.DefaultTopic != "" {
		matches = []internal.Match{{Topic: d.DefaultTopic}}
	}

	for _, match := range matches {
		if err := d.Publisher.PublishForDrivers(r.Context(), match.Topic, event, match.Drivers); err != nil {
			internal.IncPublishError(match.Topic)
			logger.Printf("publish %s failed: %v", match.Topic, err)
		}
	}
}
