package lease

import (
	"fmt"
	"time"
)

// DefaultHeartbeatInterval is how often a lease holder renews its heartbeat.
const DefaultHeartbeatInterval = 60 * time.Second

// DefaultTimeout is how long a lease may go without a heartbeat before it is
// reclaimable. The 30:1 margin over the heartbeat interval means a lease is
// only reclaimed after many consecutive missed renewals.
const DefaultTimeout = 1800 * time.Second

// IsStale reports whether an assigned lease with the given last heartbeat is
// overdue at time now. A lease with no recorded heartbeat is always stale.
func IsStale(lastHeartbeat *time.Time, timeout time.Duration, now time.Time) bool {
	if lastHeartbeat == nil {
		return true
	}
	return now.Sub(*lastHeartbeat) > timeout
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// ClaimContext provides context for claim guards.
type ClaimContext struct {
	Status        Status
	LastHeartbeat *time.Time
	Timeout       time.Duration
	Now           time.Time
}

// CanClaim evaluates whether an item can be claimed.
// Rules:
// - Available, completed, and failed items are always claimable.
// - Assigned items are claimable only when the existing lease is stale.
func CanClaim(ctx ClaimContext) GuardResult {
	switch ctx.Status {
	case StatusAvailable, StatusCompleted, StatusFailed:
		return GuardResult{Allowed: true}
	case StatusAssigned:
		if IsStale(ctx.LastHeartbeat, ctx.Timeout, ctx.Now) {
			return GuardResult{Allowed: true}
		}
		return GuardResult{
			Allowed: false,
			Reason:  "another agent holds a live lease",
		}
	}
	return GuardResult{
		Allowed: false,
		Reason:  fmt.Sprintf("invalid assignment status %q", ctx.Status),
	}
}

// ReleaseContext provides context for release guards.
type ReleaseContext struct {
	Outcome Status
}

// CanRelease evaluates whether a release outcome is valid.
func CanRelease(ctx ReleaseContext) GuardResult {
	if !ctx.Outcome.ReleaseOutcome() {
		return GuardResult{
			Allowed: false,
			Reason:  fmt.Sprintf("invalid release outcome %q (want available, completed, or failed)", ctx.Outcome),
		}
	}
	return GuardResult{Allowed: true}
}
