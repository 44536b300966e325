// Package lease contains the pure business logic for work item leasing.
// Guards are pure functions that evaluate preconditions without side effects.
package lease

import "fmt"

// Status is the assignment state of a work item. It is a closed enumeration:
// every transition site switches exhaustively over it so a new state cannot
// be introduced without updating all transition logic.
type Status string

const (
	// StatusAvailable means the item is unclaimed and eligible for work.
	StatusAvailable Status = "available"
	// StatusAssigned means an agent holds the lease on the item.
	StatusAssigned Status = "assigned"
	// StatusCompleted means the last attempt finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the last attempt finished unsuccessfully.
	StatusFailed Status = "failed"
)

// Parse validates a raw status string.
func Parse(raw string) (Status, error) {
	switch Status(raw) {
	case StatusAvailable, StatusAssigned, StatusCompleted, StatusFailed:
		return Status(raw), nil
	}
	return "", fmt.Errorf("invalid assignment status %q", raw)
}

// String returns the stored representation.
func (s Status) String() string {
	return string(s)
}

// Claimable reports whether an item in this status may be claimed outright,
// before considering staleness. Assigned items are only claimable when the
// existing lease is stale; completed and failed items are retryable work and
// may be re-claimed immediately.
func (s Status) Claimable() bool {
	switch s {
	case StatusAvailable, StatusCompleted, StatusFailed:
		return true
	case StatusAssigned:
		return false
	}
	return false
}

// ReleaseOutcome reports whether this status is a valid release target.
// An agent finishing work releases to completed or failed; an agent backing
// off releases to available. Releasing "to assigned" is not a release.
func (s Status) ReleaseOutcome() bool {
	switch s {
	case StatusAvailable, StatusCompleted, StatusFailed:
		return true
	case StatusAssigned:
		return false
	}
	return false
}
