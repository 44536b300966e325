package app

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/ports/secondary"
)

// AdmissionServiceImpl implements the AdmissionService interface.
type AdmissionServiceImpl struct {
	budget    primary.BudgetService
	estimator secondary.CostEstimator
	logger    *zap.Logger
}

// NewAdmissionService creates a new AdmissionService with injected dependencies.
func NewAdmissionService(budget primary.BudgetService, estimator secondary.CostEstimator, logger *zap.Logger) *AdmissionServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdmissionServiceImpl{
		budget:    budget,
		estimator: estimator,
		logger:    logger,
	}
}

// SelectBatch admits the affordable prefix of candidates in priority order.
//
// The walk stops at the first unaffordable item rather than skipping past it
// to admit cheaper, lower-priority work. Budget exhaustion at any rank halts
// the pass, which bounds iteration cost and keeps admission predictable.
func (s *AdmissionServiceImpl) SelectBatch(ctx context.Context, candidates []*primary.WorkItem, language string) ([]*primary.WorkItem, error) {
	ordered := make([]*primary.WorkItem, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		if ordered[i].Repository != ordered[j].Repository {
			return ordered[i].Repository < ordered[j].Repository
		}
		return ordered[i].Number < ordered[j].Number
	})

	accepted := make([]*primary.WorkItem, 0, len(ordered))
	for _, item := range ordered {
		est := s.estimator.EstimateFullSolution(item.Title, item.Data, item.Complexity)

		affordable, err := s.budget.CanAfford(ctx, item.Repository, language, est.Tokens)
		if err != nil {
			return nil, fmt.Errorf("failed to check budget for %s: %w", item.Key(), err)
		}
		if !affordable {
			s.logger.Info("admission halted on unaffordable item",
				zap.String("item", item.Key()),
				zap.Float64("priority", item.Priority),
				zap.Int("estimated_tokens", est.Tokens),
				zap.Int("accepted", len(accepted)))
			break
		}

		if err := s.budget.RecordUsage(ctx, item.Repository, language, est.Tokens); err != nil {
			return nil, fmt.Errorf("failed to record usage for %s: %w", item.Key(), err)
		}
		accepted = append(accepted, item)
	}

	s.logger.Debug("batch selected",
		zap.Int("candidates", len(candidates)),
		zap.Int("accepted", len(accepted)),
		zap.String("language", language))
	return accepted, nil
}

// Ensure AdmissionServiceImpl implements the interface
var _ primary.AdmissionService = (*AdmissionServiceImpl)(nil)
