package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gitfeed/internal"
	"gitfeed/pkg/storage"
)

// DefaultLimit caps a poll response when the client does not ask for one.
const DefaultLimit = 50

// Poll translates an incremental-fetch request into a store query and shapes
// the response. since is the caller's watermark: only records with a strictly
// greater timestamp are returned, newest first, at most limit entries. Each
// record carries its display message, derived fresh on every read.
func Poll(ctx context.Context, store storage.EventStore, since string, limit int) ([]internal.ViewRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	events, err := store.QueryEvents(ctx, since, limit)
	if err != nil {
		return nil, err
	}
	records := make([]internal.ViewRecord, 0, len(events))
	for _, event := range events {
		records = append(records, internal.ViewRecord{
			StoredEvent:      event,
			FormattedMessage: internal.FormatMessage(event),
		})
	}
	return records, nil
}

// EventsHandler serves the incremental-polling feed endpoint.
type EventsHandler struct {
	Store        storage.EventStore
	Logger       *log.Logger
	DefaultLimit int
	MaxLimit     int
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Store == nil {
		http.Error(w, "storage not configured", http.StatusServiceUnavailable)
		return
	}

	since := strings.TrimSpace(r.URL.Query().Get("since"))
	limit := h.DefaultLimit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if h.MaxLimit > 0 && limit > h.MaxLimit {
		limit = h.MaxLimit
	}

	records, err := Poll(r.Context(), h.Store, since, limit)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Printf("query events failed: %v", err)
		}
		writeJSONStatus(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "failed to fetch events: " + err.Error(),
		})
		return
	}
	writeJSON(w, records)
}

// HealthHandler reports service and database status.
type HealthHandler struct {
	Store  storage.EventStore
	Logger *log.Logger
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	database := "connected"
	if h.Store == nil {
		database = "error: storage not configured"
	} else if err := h.Store.Ping(r.Context()); err != nil {
		database = "error: " + err.Error()
		if h.Logger != nil {
			h.Logger.Printf("health ping failed: %v", err)
		}
	}

	writeJSON(w, map[string]string{
		"status":    "healthy",
		"database":  database,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONStatus(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
