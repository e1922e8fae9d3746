package webhook

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"gitfeed/internal"

	"github.com/go-playground/webhooks/v6/gitlab"
)

// GitLabHandler accepts GitLab webhook deliveries and normalizes tracked
// hooks into the same feed model the GitHub handler produces.
type GitLabHandler struct {
	hook   *gitlab.Webhook
	deps   Deps
	logger *log.Logger
}

// Tracked hooks only; everything else is acknowledged and dropped at parse.
var gitlabEvents = []gitlab.Event{
	gitlab.PushEvents,
	gitlab.MergeRequestEvents,
}

func NewGitLabHandler(secret string, deps Deps) (*GitLabHandler, error) {
	options := make([]gitlab.Option, 0, 1)
	if secret != "" {
		options = append(options, gitlab.Options.Secret(secret))
	}
	hook, err := gitlab.New(options...)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &GitLabHandler{hook: hook, deps: deps, logger: logger}, nil
}

func (h *GitLabHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	internal.IncRequest("gitlab")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))

	eventName := r.Header.Get("X-Gitlab-Event")
	if _, err := h.hook.Parse(r, gitlabEvents...); err != nil {
		if errors.Is(err, gitlab.ErrGitLabTokenVerificationFailed) {
			logger.Printf("gitlab token verification failed")
			respondError(w, http.StatusUnauthorized, "token verification failed")
			return
		}
		internal.IncIgnored("gitlab")
		respondIgnored(w, "Event type '"+eventName+"' is not supported")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		logger.Printf("gitlab %s body is not a json object: %v", eventName, err)
		internal.IncIgnored("gitlab")
		respondIgnored(w, "Event did not match criteria for storage")
		return
	}

	evt := internal.ClassifyGitLab(eventName, payload, logger)
	h.deps.process(w, r, logger, "gitlab", eventName, reqID, rawBody, evt)
}
