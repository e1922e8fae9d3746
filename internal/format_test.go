package internal

import "testing"

func strptr(s string) *string { return &s }

func TestFormatMessagePush(t *testing.T) {
	evt := StoredEvent{
		ID: "1",
		CanonicalEvent: CanonicalEvent{
			Author:    "alice",
			Action:    ActionPush,
			ToBranch:  "feature-x",
			Timestamp: "2021-04-01T21:30:00Z",
		},
	}
	want := `"alice" pushed to "feature-x" on 1st April 2021 - 09:30 PM UTC`
	if got := FormatMessage(evt); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatMessagePullRequest(t *testing.T) {
	evt := StoredEvent{
		ID: "2",
		CanonicalEvent: CanonicalEvent{
			Author:     "bob",
			Action:     ActionPullRequest,
			FromBranch: strptr("dev"),
			ToBranch:   "main",
			Timestamp:  "2021-05-02T10:00:00Z",
		},
	}
	want := `"bob" submitted a pull request from "dev" to "main" on 2nd May 2021 - 10:00 AM UTC`
	if got := FormatMessage(evt); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatMessageMerge(t *testing.T) {
	evt := StoredEvent{
		ID: "3",
		CanonicalEvent: CanonicalEvent{
			Author:     "carol",
			Action:     ActionMerge,
			FromBranch: strptr("dev"),
			ToBranch:   "main",
			Timestamp:  "2021-05-03T11:00:00Z",
		},
	}
	want := `"carol" merged branch "dev" to "main" on 3rd May 2021 - 11:00 AM UTC`
	if got := FormatMessage(evt); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestFormatMessageUnknownAction(t *testing.T) {
	evt := StoredEvent{
		ID: "4",
		CanonicalEvent: CanonicalEvent{
			Author: "mallory",
			Action: Action("DELETED"),
		},
	}
	if got := FormatMessage(evt); got != "Unknown action by mallory" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestFormatMessageUnparseableTimestamp(t *testing.T) {
	evt := StoredEvent{
		ID: "5",
		CanonicalEvent: CanonicalEvent{
			Author:    "alice",
			Action:    ActionPush,
			ToBranch:  "main",
			Timestamp: "whenever",
		},
	}
	want := `"alice" pushed to "main" on whenever`
	if got := FormatMessage(evt); got != want {
		t.Fatalf("expected raw timestamp passthrough, got %q", got)
	}
}
