package storage

import (
	"context"

	"gitfeed/internal"
)

// EventStore is the persistence boundary for feed events. Writes are
// append-only: the store assigns each record an identifier and never
// overwrites or deletes. Queries filter on the stored timestamp with a
// strict greater-than when after is non-empty, sort descending, and cap the
// result at limit.
type EventStore interface {
	WriteEvent(ctx context.Context, event internal.CanonicalEvent) (internal.StoredEvent, error)
	QueryEvents(ctx context.Context, after string, limit int) ([]internal.StoredEvent, error)
	Ping(ctx context.Context) error
	Close() error
}
