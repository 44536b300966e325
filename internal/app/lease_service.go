// Package app implements the primary ports by orchestrating the core logic
// and the secondary ports.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/core/lease"
	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/ports/secondary"
)

// LeaseServiceImpl implements the LeaseService interface.
type LeaseServiceImpl struct {
	items   secondary.WorkItemRepository
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewLeaseService creates a new LeaseService with injected dependencies.
// timeout <= 0 selects the default staleness timeout.
func NewLeaseService(items secondary.WorkItemRepository, timeout time.Duration, logger *zap.Logger) *LeaseServiceImpl {
	if timeout <= 0 {
		timeout = lease.DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaseServiceImpl{
		items:   items,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Claim attempts to take the lease on one item.
func (s *LeaseServiceImpl) Claim(ctx context.Context, repository string, number int, agentID string) (bool, error) {
	claimed, err := s.items.Claim(ctx, repository, number, agentID, s.timeout, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", primary.ItemKey(repository, number), err)
	}

	if claimed {
		s.logger.Info("work item claimed",
			zap.String("repository", repository),
			zap.Int("number", number),
			zap.String("agent_id", agentID))
	}
	return claimed, nil
}

// ClaimHighestPriority claims the best claimable item, or nil.
func (s *LeaseServiceImpl) ClaimHighestPriority(ctx context.Context, agentID string) (*primary.WorkItem, error) {
	record, err := s.items.ClaimHighestPriority(ctx, agentID, s.timeout, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim next work item: %w", err)
	}
	if record == nil {
		return nil, nil
	}

	s.logger.Info("work item claimed",
		zap.String("repository", record.Repository),
		zap.Int("number", record.Number),
		zap.Float64("priority", record.Priority),
		zap.String("agent_id", agentID))
	return recordToWorkItem(record), nil
}

// Heartbeat renews the lease; false means the lease was lost.
func (s *LeaseServiceImpl) Heartbeat(ctx context.Context, repository string, number int, agentID string) (bool, error) {
	ok, err := s.items.Heartbeat(ctx, repository, number, agentID, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to heartbeat %s: %w", primary.ItemKey(repository, number), err)
	}
	return ok, nil
}

// Release ends the lease with the given outcome. Releasing a lease the
// caller does not own, or releasing twice, is a no-op.
func (s *LeaseServiceImpl) Release(ctx context.Context, repository string, number int, agentID string, outcome lease.Status) error {
	if result := lease.CanRelease(lease.ReleaseContext{Outcome: outcome}); !result.Allowed {
		return result.Error()
	}

	applied, err := s.items.Release(ctx, repository, number, agentID, outcome.String(), s.now())
	if err != nil {
		return fmt.Errorf("failed to release %s: %w", primary.ItemKey(repository, number), err)
	}

	if applied {
		s.logger.Info("work item released",
			zap.String("repository", repository),
			zap.Int("number", number),
			zap.String("agent_id", agentID),
			zap.String("outcome", outcome.String()))
	}
	return nil
}

// ReleaseStale sweeps overdue leases back to available.
func (s *LeaseServiceImpl) ReleaseStale(ctx context.Context, timeout time.Duration) (int, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}

	count, err := s.items.ReleaseStale(ctx, timeout, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to release stale leases: %w", err)
	}

	if count > 0 {
		s.logger.Info("released stale leases", zap.Int("count", count))
	}
	return count, nil
}

// ReleaseAgent force-releases every lease held by one agent.
func (s *LeaseServiceImpl) ReleaseAgent(ctx context.Context, agentID string) (int, error) {
	count, err := s.items.ReleaseAgent(ctx, agentID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to release leases for agent %s: %w", agentID, err)
	}

	if count > 0 {
		s.logger.Info("force-released agent leases",
			zap.String("agent_id", agentID),
			zap.Int("count", count))
	}
	return count, nil
}

// Assigned returns the item currently leased by the agent, or nil.
func (s *LeaseServiceImpl) Assigned(ctx context.Context, agentID string) (*primary.WorkItem, error) {
	record, err := s.items.GetAssigned(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment for agent %s: %w", agentID, err)
	}
	if record == nil {
		return nil, nil
	}
	return recordToWorkItem(record), nil
}

// ListLeases returns currently assigned items, optionally only stale ones.
func (s *LeaseServiceImpl) ListLeases(ctx context.Context, staleOnly bool, timeout time.Duration) ([]*primary.WorkItem, error) {
	if timeout <= 0 {
		timeout = s.timeout
	}

	records, err := s.items.ListLeases(ctx, staleOnly, timeout, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}

	items := make([]*primary.WorkItem, len(records))
	for i, r := range records {
		items[i] = recordToWorkItem(r)
	}
	return items, nil
}

// recordToWorkItem converts a persistence record to the primary port type.
func recordToWorkItem(r *secondary.WorkItemRecord) *primary.WorkItem {
	status, err := lease.Parse(r.Status)
	if err != nil {
		// The schema CHECK constraint makes this unreachable; surface it
		// as available rather than dropping the row.
		status = lease.StatusAvailable
	}
	return &primary.WorkItem{
		Repository:      r.Repository,
		Number:          r.Number,
		Title:           r.Title,
		Category:        r.Category,
		Complexity:      r.Complexity,
		Solvability:     r.Solvability,
		Priority:        r.Priority,
		Data:            r.Data,
		Status:          status,
		AssignedTo:      r.AssignedTo,
		AssignedAt:      r.AssignedAt,
		LastHeartbeatAt: r.LastHeartbeatAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// Ensure LeaseServiceImpl implements the interface
var _ primary.LeaseService = (*LeaseServiceImpl)(nil)
