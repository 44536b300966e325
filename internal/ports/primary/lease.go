package primary

import (
	"context"
	"time"

	"github.com/example/fleet/internal/core/lease"
)

// LeaseService owns the assignment state machine for work items.
// Claim and heartbeat results are booleans, not errors: a lost race or a
// lost lease is a normal outcome the caller routes on.
type LeaseService interface {
	// Claim attempts to take the lease on one item for agentID.
	// Returns false when another agent holds a live lease.
	Claim(ctx context.Context, repository string, number int, agentID string) (bool, error)

	// ClaimHighestPriority claims the best claimable item, or nil when the
	// backlog has nothing eligible.
	ClaimHighestPriority(ctx context.Context, agentID string) (*WorkItem, error)

	// Heartbeat renews the lease. A false result means the lease was lost
	// (reclaimed as stale) and the caller must abandon the work.
	Heartbeat(ctx context.Context, repository string, number int, agentID string) (bool, error)

	// Release ends the lease with the given outcome (available, completed,
	// or failed). Releasing a lease the caller does not own is a no-op.
	Release(ctx context.Context, repository string, number int, agentID string, outcome lease.Status) error

	// ReleaseStale sweeps overdue leases back to available and returns how
	// many were reclaimed.
	ReleaseStale(ctx context.Context, timeout time.Duration) (int, error)

	// ReleaseAgent force-releases every lease held by one agent.
	ReleaseAgent(ctx context.Context, agentID string) (int, error)

	// Assigned returns the item currently leased by agentID, or nil.
	Assigned(ctx context.Context, agentID string) (*WorkItem, error)

	// ListLeases returns currently assigned items, optionally only stale ones.
	ListLeases(ctx context.Context, staleOnly bool, timeout time.Duration) ([]*WorkItem, error)
}
