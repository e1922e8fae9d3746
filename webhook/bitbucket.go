package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"gitfeed/internal"

	"github.com/go-playground/webhooks/v6/bitbucket"
)

// BitbucketHandler accepts Bitbucket Cloud webhook deliveries and normalizes
// tracked events into the same feed model the GitHub handler produces.
type BitbucketHandler struct {
	hook   *bitbucket.Webhook
	deps   Deps
	logger *log.Logger
}

// Tracked events only; everything else is acknowledged and dropped at parse.
var bitbucketEvents = []bitbucket.Event{
	bitbucket.RepoPushEvent,
	bitbucket.PullRequestCreatedEvent,
	bitbucket.PullRequestMergedEvent,
}

func NewBitbucketHandler(secret string, deps Deps) (*BitbucketHandler, error) {
	options := make([]bitbucket.Option, 0, 1)
	if secret != "" {
		options = append(options, bitbucket.Options.UUID(secret))
	}
	hook, err := bitbucket.New(options...)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &BitbucketHandler{hook: hook, deps: deps, logger: logger}, nil
}

func (h *BitbucketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.deps.MaxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxBody)
	}
	reqID := requestID(r)
	w.Header().Set("X-Request-Id", reqID)
	logger := internal.WithRequestID(h.logger, reqID)
	internal.IncRequest("bitbucket")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))

	eventName := r.Header.Get("X-Event-Key")
	if _, err := h.hook.Parse(r, bitbucketEvents...); err != nil {
		if errors.Is(err, bitbucket.ErrUUIDVerificationFailed) {
			logger.Printf("bitbucket uuid verification failed")
			respondError(w, http.StatusUnauthorized, "uuid verification failed")
			return
		}
		internal.IncIgnored("bitbucket")
		respondIgnored(w, "Event type '"+eventName+"' is not supported")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		logger.Printf("bitbucket %s body is not a json object: %v", eventName, err)
		internal.IncIgnored("bitbucket")
		respondIgnored(w, "Event did not match criteria for storage")
		return
	}

	evt := internal.ClassifyBitbucket(eventName, payload, logger)
	h.deps.process(w, r, logger, "bitbucket", eventName, reqID, rawBody, evt)
}
