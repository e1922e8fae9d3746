package internal

import "fmt"

// FormatMessage renders a stored event as a one-line feed entry. It is a
// pure function of the stored fields, so it can be recomputed on every read
// without drift. The default branch covers action tags that never leave the
// classifier but could arrive from corrupted stored data.
func FormatMessage(evt StoredEvent) string {
	fromBranch := ""
	if evt.FromBranch != nil {
		fromBranch = *evt.FromBranch
	}
	when := DisplayEventTime(evt.Timestamp)

	switch evt.Action {
	case ActionPush:
		return fmt.Sprintf("%q pushed to %q on %s", evt.Author, evt.ToBranch, when)
	case ActionPullRequest:
		return fmt.Sprintf("%q submitted a pull request from %q to %q on %s", evt.Author, fromBranch, evt.ToBranch, when)
	case ActionMerge:
		return fmt.Sprintf("%q merged branch %q to %q on %s", evt.Author, fromBranch, evt.ToBranch, when)
	default:
		return fmt.Sprintf("Unknown action by %s", evt.Author)
	}
}
