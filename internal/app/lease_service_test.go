package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fleet/internal/adapters/sqlite"
	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
)

func newTestLeaseService(t *testing.T, timeout time.Duration, t0 time.Time) (*LeaseServiceImpl, *WorkItemServiceImpl, func(time.Time)) {
	t.Helper()
	repo := sqlite.NewWorkItemRepository(setupTestDB(t))
	now, advance := fixedClock(t0)

	leases := NewLeaseService(repo, timeout, nil)
	leases.now = now
	items := NewWorkItemService(repo, nil)
	items.now = now
	return leases, items, advance
}

func addItem(t *testing.T, items *WorkItemServiceImpl, repository string, number int, priority float64) {
	t.Helper()
	_, err := items.Add(context.Background(), primary.AddWorkItemRequest{
		Repository: repository,
		Number:     number,
		Title:      "Test Issue",
		Priority:   priority,
	})
	require.NoError(t, err)
}

func TestLeaseService_ClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	leases, items, _ := newTestLeaseService(t, 30*time.Minute, t0)

	addItem(t, items, "acme/widgets", 1, 5.0)

	claimed, err := leases.Claim(ctx, "acme/widgets", 1, "agent-a")
	require.NoError(t, err)
	assert.True(t, claimed)

	// The claimer shows up as the assignee.
	assigned, err := leases.Assigned(ctx, "agent-a")
	require.NoError(t, err)
	require.NotNil(t, assigned)
	assert.Equal(t, lease.StatusAssigned, assigned.Status)
	assert.Equal(t, "agent-a", assigned.AssignedTo)

	// A competing claim on the live lease is refused without error.
	claimed, err = leases.Claim(ctx, "acme/widgets", 1, "agent-b")
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, leases.Release(ctx, "acme/widgets", 1, "agent-a", lease.StatusCompleted))

	assigned, err = leases.Assigned(ctx, "agent-a")
	require.NoError(t, err)
	assert.Nil(t, assigned)

	item, err := items.Get(ctx, "acme/widgets", 1)
	require.NoError(t, err)
	assert.Equal(t, lease.StatusCompleted, item.Status)
	assert.Empty(t, item.AssignedTo)
}

func TestLeaseService_ReleaseRejectsInvalidOutcome(t *testing.T) {
	ctx := context.Background()
	leases, items, _ := newTestLeaseService(t, 30*time.Minute, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	addItem(t, items, "acme/widgets", 1, 5.0)
	_, err := leases.Claim(ctx, "acme/widgets", 1, "agent-a")
	require.NoError(t, err)

	err = leases.Release(ctx, "acme/widgets", 1, "agent-a", lease.StatusAssigned)
	assert.Error(t, err)
}

func TestLeaseService_StaleReclaim(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute
	leases, items, advance := newTestLeaseService(t, timeout, t0)

	addItem(t, items, "acme/widgets", 1, 5.0)
	claimed, err := leases.Claim(ctx, "acme/widgets", 1, "agent-a")
	require.NoError(t, err)
	require.True(t, claimed)

	// Heartbeats keep the lease alive past the original deadline.
	advance(t0.Add(timeout - time.Minute))
	ok, err := leases.Heartbeat(ctx, "acme/widgets", 1, "agent-a")
	require.NoError(t, err)
	assert.True(t, ok)

	advance(t0.Add(timeout + time.Minute))
	claimed, err = leases.Claim(ctx, "acme/widgets", 1, "agent-b")
	require.NoError(t, err)
	assert.False(t, claimed, "renewed lease is still live")

	// Once renewals stop the lease goes stale and is claimable.
	advance(t0.Add(2*timeout + time.Minute))
	claimed, err = leases.Claim(ctx, "acme/widgets", 1, "agent-b")
	require.NoError(t, err)
	assert.True(t, claimed)

	// The old holder's heartbeat now fails: the lease is gone.
	ok, err = leases.Heartbeat(ctx, "acme/widgets", 1, "agent-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLeaseService_ClaimHighestPriority(t *testing.T) {
	ctx := context.Background()
	leases, items, _ := newTestLeaseService(t, 30*time.Minute, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	addItem(t, items, "acme/widgets", 1, 3.0)
	addItem(t, items, "acme/widgets", 2, 9.0)
	addItem(t, items, "acme/gadgets", 7, 6.0)

	item, err := leases.ClaimHighestPriority(ctx, "agent-a")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 2, item.Number)

	item, err = leases.ClaimHighestPriority(ctx, "agent-b")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "acme/gadgets", item.Repository)

	item, err = leases.ClaimHighestPriority(ctx, "agent-c")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, 1, item.Number)

	// Backlog exhausted.
	item, err = leases.ClaimHighestPriority(ctx, "agent-d")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestLeaseService_SweepAndReleaseAgent(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
	timeout := 30 * time.Minute
	leases, items, advance := newTestLeaseService(t, timeout, t0)

	addItem(t, items, "acme/widgets", 1, 5.0)
	addItem(t, items, "acme/widgets", 2, 5.0)
	addItem(t, items, "acme/widgets", 3, 5.0)

	for n, agent := range map[int]string{1: "agent-a", 2: "agent-a", 3: "agent-b"} {
		claimed, err := leases.Claim(ctx, "acme/widgets", n, agent)
		require.NoError(t, err)
		require.True(t, claimed)
	}

	count, err := leases.ReleaseAgent(ctx, "agent-a")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Only agent-b's lease remains; let it go stale and sweep.
	advance(t0.Add(timeout + time.Minute))

	stale, err := leases.ListLeases(ctx, true, 0)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, 3, stale[0].Number)

	count, err = leases.ReleaseStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	all, err := leases.ListLeases(ctx, false, 0)
	require.NoError(t, err)
	assert.Empty(t, all)
}
