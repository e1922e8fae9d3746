package internal

// Action identifies the kind of source-control activity a feed event records.
type Action string

const (
	ActionPush        Action = "PUSH"
	ActionPullRequest Action = "PULL_REQUEST"
	ActionMerge       Action = "MERGE"
)

// CanonicalEvent is the normalized, storage-ready form of a webhook delivery.
// Timestamp is kept as the source's sortable ISO-8601 string; it doubles as
// the poll watermark key.
type CanonicalEvent struct {
	Author     string  `json:"author"`
	Action     Action  `json:"action"`
	FromBranch *string `json:"from_branch"`
	ToBranch   string  `json:"to_branch"`
	Timestamp  string  `json:"timestamp"`
}

// StoredEvent is a CanonicalEvent plus the identifier assigned by the store
// at write time. Records are append-only and never mutated.
type StoredEvent struct {
	ID string `json:"id"`
	CanonicalEvent
}

// ViewRecord is the read-API shape: a stored event with its display message
// derived at read time. It is never persisted.
type ViewRecord struct {
	StoredEvent
	FormattedMessage string `json:"formatted_message"`
}

// Event is the envelope handed to the rule engine and publisher after a
// delivery has been classified and stored.
type Event struct {
	Provider   string                 `json:"provider"`
	Name       string                 `json:"name"`
	EventID    string                 `json:"event_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Record     *CanonicalEvent        `json:"record,omitempty"`
	RawPayload []byte                 `json:"-"`
	RawObject  interface{}            `json:"-"`
	Data       map[string]interface{} `json:"-"`
}
