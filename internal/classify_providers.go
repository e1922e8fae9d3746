package internal

import (
	"log"
	"strings"
)

// ClassifyGitLab normalizes a GitLab webhook payload. The event name is the
// X-Gitlab-Event header value. Untracked hooks return nil.
func ClassifyGitLab(eventName string, payload map[string]interface{}, logger *log.Logger) (evt *CanonicalEvent) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("classify gitlab %s panicked: %v", eventName, r)
			}
			evt = nil
		}
	}()

	switch eventName {
	case "Push Hook":
		return classifyGitLabPush(payload)
	case "Merge Request Hook":
		return classifyGitLabMergeRequest(payload)
	default:
		return nil
	}
}

func classifyGitLabPush(payload map[string]interface{}) *CanonicalEvent {
	flat := Flatten(payload)

	author := stringAt(flat, "user_username", "user_name")
	if author == "" {
		author = UnknownAuthor
	}

	toBranch := UnknownBranch
	if ref := stringAt(flat, "ref"); ref != "" {
		toBranch = strings.TrimPrefix(ref, branchRefPrefix)
	}

	timestamp := stringAt(flat, "commits[0].timestamp")
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

func classifyGitLabMergeRequest(payload map[string]interface{}) *CanonicalEvent {
	flat := Flatten(payload)

	author := stringAt(flat, "user.username", "user.name")
	if author == "" {
		author = UnknownAuthor
	}

	fromBranch := stringAt(flat, "object_attributes.source_branch")
	if fromBranch == "" {
		fromBranch = UnknownBranch
	}
	toBranch := stringAt(flat, "object_attributes.target_branch")
	if toBranch == "" {
		toBranch = UnknownBranch
	}

	switch stringAt(flat, "object_attributes.action") {
	case "merge":
		timestamp := stringAt(flat, "object_attributes.updated_at")
		if timestamp == "" {
			timestamp = NowTimestamp()
		}
		return &CanonicalEvent{
			Author:     author,
			Action:     ActionMerge,
			FromBranch: &fromBranch,
			ToBranch:   toBranch,
			Timestamp:  timestamp,
		}
	case "open", "reopen":
		timestamp := stringAt(flat, "object_attributes.created_at")
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
		return nil
	}
}

// ClassifyBitbucket normalizes a Bitbucket Cloud webhook payload. The event
// name is the X-Event-Key header value. Untracked keys return nil.
func ClassifyBitbucket(eventName string, payload map[string]interface{}, logger *log.Logger) (evt *CanonicalEvent) {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("classify bitbucket %s panicked: %v", eventName, r)
			}
			evt = nil
		}
	}()

	switch eventName {
	case "repo:push":
		return classifyBitbucketPush(payload)
	case "pullrequest:created":
		return classifyBitbucketPullRequest(payload, ActionPullRequest)
	case "pullrequest:fulfilled":
		return classifyBitbucketPullRequest(payload, ActionMerge)
	default:
		return nil
	}
}

func classifyBitbucketPush(payload map[string]interface{}) *CanonicalEvent {
	flat := Flatten(payload)

	author := stringAt(flat, "actor.nickname", "actor.display_name")
	if author == "" {
		author = UnknownAuthor
	}

	toBranch := stringAt(flat, "push.changes[0].new.name")
	if toBranch == "" {
		toBranch = UnknownBranch
	}

	timestamp := stringAt(flat, "push.changes[0].new.target.date")
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

func classifyBitbucketPullRequest(payload map[string]interface{}, action Action) *CanonicalEvent {
	flat := Flatten(payload)

	author := stringAt(flat,
		"pullrequest.author.nickname",
		"pullrequest.author.display_name",
		"actor.nickname",
	)
	if author == "" {
		author = UnknownAuthor
	}
	if action == ActionMerge {
		if mergedBy := stringAt(flat, "pullrequest.closed_by.nickname", "actor.nickname"); mergedBy != "" {
			author = mergedBy
		}
	}

	fromBranch := stringAt(flat, "pullrequest.source.branch.name")
	if fromBranch == "" {
		fromBranch = UnknownBranch
	}
	toBranch := stringAt(flat, "pullrequest.destination.branch.name")
	if toBranch == "" {
		toBranch = UnknownBranch
	}

	timestamp := stringAt(flat, "pullrequest.updated_on")
	if action == ActionPullRequest {
		timestamp = stringAt(flat, "pullrequest.created_on")
	}
	if timestamp == "" {
		timestamp = NowTimestamp()
	}

	return &CanonicalEvent{
		Author:     author,
		Action:     action,
		FromBranch: &fromBranch,
		ToBranch:   toBranch,
		Timestamp:  timestamp,
	}
}
