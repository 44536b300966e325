package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/ports/secondary"
)

// WorkItemServiceImpl implements the WorkItemService interface.
type WorkItemServiceImpl struct {
	items  secondary.WorkItemRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewWorkItemService creates a new WorkItemService with injected dependencies.
func NewWorkItemService(items secondary.WorkItemRepository, logger *zap.Logger) *WorkItemServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkItemServiceImpl{
		items:  items,
		logger: logger,
		now:    time.Now,
	}
}

// Add inserts or refreshes a work item. Lease state of an existing item is
// preserved; only the descriptive fields are replaced.
func (s *WorkItemServiceImpl) Add(ctx context.Context, req primary.AddWorkItemRequest) (*primary.WorkItem, error) {
	if req.Repository == "" {
		return nil, fmt.Errorf("repository is required")
	}
	if req.Number <= 0 {
		return nil, fmt.Errorf("number must be positive")
	}

	complexity := req.Complexity
	if complexity == 0 {
		complexity = 5
	}
	if complexity < 1 || complexity > 10 {
		return nil, fmt.Errorf("complexity must be between 1 and 10 (got %d)", complexity)
	}
	if req.Solvability < 0 || req.Solvability > 1 {
		return nil, fmt.Errorf("solvability must be between 0 and 1 (got %g)", req.Solvability)
	}

	record := &secondary.WorkItemRecord{
		Repository:  req.Repository,
		Number:      req.Number,
		Title:       req.Title,
		Category:    req.Category,
		Complexity:  complexity,
		Solvability: req.Solvability,
		Priority:    req.Priority,
		Data:        req.Data,
	}

	if err := s.items.Upsert(ctx, record, s.now()); err != nil {
		return nil, fmt.Errorf("failed to add work item: %w", err)
	}

	created, err := s.items.Get(ctx, req.Repository, req.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch added work item: %w", err)
	}

	s.logger.Debug("work item upserted",
		zap.String("repository", req.Repository),
		zap.Int("number", req.Number))
	return recordToWorkItem(created), nil
}

// Get retrieves a work item, or nil when it does not exist.
func (s *WorkItemServiceImpl) Get(ctx context.Context, repository string, number int) (*primary.WorkItem, error) {
	record, err := s.items.Get(ctx, repository, number)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}
	return recordToWorkItem(record), nil
}

// List retrieves work items ordered by priority descending.
func (s *WorkItemServiceImpl) List(ctx context.Context, filters primary.WorkItemFilters) ([]*primary.WorkItem, error) {
	records, err := s.items.List(ctx, secondary.WorkItemFilters{
		Repository: filters.Repository,
		Status:     filters.Status,
		Limit:      filters.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}

	items := make([]*primary.WorkItem, len(records))
	for i, r := range records {
		items[i] = recordToWorkItem(r)
	}
	return items, nil
}

// Remove deletes a work item. Missing items are a no-op.
func (s *WorkItemServiceImpl) Remove(ctx context.Context, repository string, number int) error {
	if err := s.items.Delete(ctx, repository, number); err != nil {
		return fmt.Errorf("failed to remove work item: %w", err)
	}
	return nil
}

// Ensure WorkItemServiceImpl implements the interface
var _ primary.WorkItemService = (*WorkItemServiceImpl)(nil)
