package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"gitfeed/internal"
)

// GitHubHandler accepts GitHub webhook deliveries. Deliveries the service
// does not track are acknowledged with an ignored response rather than
// rejected; the only error a sender ever sees is a storage failure.
type GitHubHandler struct {
	deps   Deps
	secret string
	logger *log.Logger
}

func NewGitHubHandler(secret string, deps Deps) *GitHubHandler {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubHandler{deps: deps, secret: secret, logger: logger}
}

func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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
	internal.IncRequest("github")

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if h.secret != "" && !h.verifySignature(r, rawBody) {
		logger.Printf("github signature verification failed")
		respondError(w, http.StatusUnauthorized, "signature verification failed")
		return
	}

	eventName := r.Header.Get("X-GitHub-Event")
	if !internal.SupportedEvent(eventName) {
		internal.IncIgnored("github")
		respondIgnored(w, "Event type '"+eventName+"' is not supported")
		return
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		logger.Printf("github %s body is not a json object: %v", eventName, err)
		internal.IncIgnored("github")
		respondIgnored(w, "Event did not match criteria for storage")
		return
	}

	evt := internal.Classify(eventName, payload, logger)
	h.deps.process(w, r, logger, "github", eventName, reqID, rawBody, evt)
}

func (h *GitHubHandler) verifySignature(r *http.Request, body []byte) bool {
	signature := strings.TrimPrefix(r.Header.Get("X-Hub-Signature-256"), "sha256=")
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
