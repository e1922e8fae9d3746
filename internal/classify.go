package internal

import (
	"log"
	"strings"
)

const (
	// UnknownAuthor is stored when no author field resolves.
	UnknownAuthor = "Unknown"
	// UnknownBranch is stored when the source omitted branch data.
	UnknownBranch = "unknown"
)

const branchRefPrefix = "refs/heads/"

// SupportedEvent reports whether the given X-GitHub-Event value is one the
// classifier tracks. Other values are a deliberate no-op, not an error.
func SupportedEvent(name string) bool {
	return name == "push" || name == "pull_request"
}

// Classify normalizes a webhook payload into a canonical event. It returns
// nil when the delivery is not trackable: an unsupported event name, a
// pull-request sub-action other than opened/reopened/merged-close, or a
// payload so malformed that extraction panics (recovered and logged).
// Missing individual fields never abort classification; they degrade to
// defaults.
func Classify(eventName string, payload map[string]interface{}, logger *log.Logger) (evt *CanonicalEvent) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("classify %s panicked: %v", eventName, r)
			}
			evt = nil
		}
	}()

	switch eventName {
	case "push":
		return classifyPush(payload)
	case "pull_request":
		return classifyPullRequest(payload)
	default:
		return nil
	}
}

// classifyPush always yields a Push event; every field falls back to a
// default when the payload omits it.
func classifyPush(payload map[string]interface{}) *CanonicalEvent {
	flat := Flatten(payload)

	author := stringAt(flat, "pusher.name", "sender.login")
	if author == "" {
		author = UnknownAuthor
	}

	toBranch := UnknownBranch
	if ref := stringAt(flat, "ref"); ref != "" {
		toBranch = strings.TrimPrefix(ref, branchRefPrefix)
	}

	timestamp := stringAt(flat, "head_commit.timestamp")
	if timestamp == "" {
		timestamp = NowTimestamp()
	}

	return &CanonicalEvent{
		Author:    author,
		Action:    ActionPush,
		ToBranch:  toBranch,
		Timestamp: timestamp,
	}
}

// classifyPullRequest maps the pull_request sub-action onto the tracked
// lifecycle points. The merge check runs before the opened/reopened check:
// a closed-and-merged delivery must never fall through to the no-event path.
func classifyPullRequest(payload map[string]interface{}) *CanonicalEvent {
	flat := Flatten(payload)

	subAction := stringAt(flat, "action")

	author := stringAt(flat, "pull_request.user.login", "sender.login")
	if author == "" {
		author = UnknownAuthor
	}

	fromBranch := stringAt(flat, "pull_request.head.ref")
	if fromBranch == "" {
		fromBranch = UnknownBranch
	}
	toBranch := stringAt(flat, "pull_request.base.ref")
	if toBranch == "" {
		toBranch = UnknownBranch
	}

	merged := boolAt(flat, "pull_request.merged")
	mergedAt := stringAt(flat, "pull_request.merged_at")

	switch {
	case subAction == "closed" && merged && mergedAt != "":
		mergedBy := stringAt(flat, "pull_request.merged_by.login")
		if mergedBy == "" {
			mergedBy = author
		}
		return &CanonicalEvent{
			Author:     mergedBy,
			Action:     ActionMerge,
			FromBranch: &fromBranch,
			ToBranch:   toBranch,
			Timestamp:  mergedAt,
		}
	case subAction == "opened" || subAction == "reopened":
		timestamp := stringAt(flat, "pull_request.created_at")
		if timestamp == "" {
			timestamp = NowTimestamp()
		}
		return &CanonicalEvent{
			Author:     author,
			Action:     ActionPullRequest,
			FromBranch: &fromBranch,
			ToBranch:   toBranch,
			Timestamp:  timestamp,
		}
	default:
		// Only creation and successful merge are tracked; other
		// lifecycle transitions (closed without merge, synchronize,
		// labeled, ...) produce no event.
		return nil
	}
}
