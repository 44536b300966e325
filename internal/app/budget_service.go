package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/fleet/internal/config"
	"github.com/example/fleet/internal/ports/primary"
	"github.com/example/fleet/internal/ports/secondary"
)

// BudgetServiceImpl implements the BudgetService interface.
//
// Weekly rollover is lazy: every read and write first compares the stored
// ISO (year, week) against the clock and resets usage on mismatch. There is
// no timer, so rollover is correct even when no process spans the boundary.
type BudgetServiceImpl struct {
	budgets secondary.BudgetRepository
	limits  config.BudgetConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewBudgetService creates a new BudgetService with injected dependencies.
func NewBudgetService(budgets secondary.BudgetRepository, limits config.BudgetConfig, logger *zap.Logger) *BudgetServiceImpl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BudgetServiceImpl{
		budgets: budgets,
		limits:  limits,
		logger:  logger,
		now:     time.Now,
	}
}

// rollover ensures the weekly row exists and matches the current ISO week.
// Returns the up-to-date weekly record.
func (s *BudgetServiceImpl) rollover(ctx context.Context) (*secondary.WeeklyBudgetRecord, error) {
	now := s.now()
	year, week := now.ISOWeek()

	weekly, err := s.budgets.Weekly(ctx)
	if err != nil {
		return nil, err
	}

	if weekly == nil {
		if err := s.budgets.InitWeekly(ctx, year, week, s.limits.WeeklyTokenBudget, now); err != nil {
			return nil, err
		}
		return s.budgets.Weekly(ctx)
	}

	if weekly.Budget != s.limits.WeeklyTokenBudget {
		if err := s.budgets.SetWeeklyBudget(ctx, s.limits.WeeklyTokenBudget, now); err != nil {
			return nil, err
		}
		weekly.Budget = s.limits.WeeklyTokenBudget
	}

	if weekly.Year != year || weekly.WeekNumber != week {
		s.logger.Info("weekly budget reset",
			zap.Int("old_year", weekly.Year),
			zap.Int("old_week", weekly.WeekNumber),
			zap.Int("new_year", year),
			zap.Int("new_week", week))
		if err := s.budgets.ResetWeekly(ctx, year, week, now); err != nil {
			return nil, err
		}
		weekly.Year = year
		weekly.WeekNumber = week
		weekly.Used = 0
	}

	return weekly, nil
}

// CanAfford reports whether every ceiling can absorb the estimated cost.
func (s *BudgetServiceImpl) CanAfford(ctx context.Context, repository, language string, estimatedTokens int) (bool, error) {
	weekly, err := s.rollover(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check weekly budget: %w", err)
	}

	repo, err := s.budgets.Repo(ctx, repository)
	if err != nil {
		return false, fmt.Errorf("failed to check repo budget: %w", err)
	}

	lang, err := s.budgets.Language(ctx, language)
	if err != nil {
		return false, fmt.Errorf("failed to check language budget: %w", err)
	}

	est := int64(estimatedTokens)

	if repo.TokensUsed+est > s.limits.MaxTokensPerRepo {
		s.logger.Debug("repo token limit exceeded",
			zap.String("repository", repository),
			zap.Int64("used", repo.TokensUsed),
			zap.Int64("estimated", est),
			zap.Int64("limit", s.limits.MaxTokensPerRepo))
		return false, nil
	}

	if repo.IssuesProcessed >= s.limits.MaxIssuesPerRepo {
		s.logger.Debug("repo issue limit exceeded",
			zap.String("repository", repository),
			zap.Int64("used", repo.IssuesProcessed),
			zap.Int64("limit", s.limits.MaxIssuesPerRepo))
		return false, nil
	}

	if lang.IssuesProcessed >= s.limits.MaxIssuesPerLanguage {
		s.logger.Debug("language issue limit exceeded",
			zap.String("language", language),
			zap.Int64("used", lang.IssuesProcessed),
			zap.Int64("limit", s.limits.MaxIssuesPerLanguage))
		return false, nil
	}

	if weekly.Used+est > weekly.Budget {
		s.logger.Debug("weekly budget exceeded",
			zap.Int64("used", weekly.Used),
			zap.Int64("estimated", est),
			zap.Int64("limit", weekly.Budget))
		return false, nil
	}

	return true, nil
}

// RecordUsage charges tokens unconditionally. It does not re-check ceilings:
// the window between CanAfford and RecordUsage can overshoot each ceiling by
// at most one in-flight estimate, which the design accepts instead of taking
// a second lock.
func (s *BudgetServiceImpl) RecordUsage(ctx context.Context, repository, language string, tokens int) error {
	if _, err := s.rollover(ctx); err != nil {
		return fmt.Errorf("failed to roll weekly budget: %w", err)
	}

	if err := s.budgets.AddTokens(ctx, repository, language, int64(tokens), s.now()); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}

	s.logger.Debug("tokens recorded",
		zap.String("repository", repository),
		zap.String("language", language),
		zap.Int("tokens", tokens))
	return nil
}

// RecordIssueProcessed bumps the issue counters.
func (s *BudgetServiceImpl) RecordIssueProcessed(ctx context.Context, repository, language string) error {
	if _, err := s.rollover(ctx); err != nil {
		return fmt.Errorf("failed to roll weekly budget: %w", err)
	}

	if err := s.budgets.IncrementIssues(ctx, repository, language, s.now()); err != nil {
		return fmt.Errorf("failed to record processed issue: %w", err)
	}
	return nil
}

// RecordPRCreated bumps the global PR total.
func (s *BudgetServiceImpl) RecordPRCreated(ctx context.Context) error {
	if err := s.budgets.IncrementPRs(ctx, s.now()); err != nil {
		return fmt.Errorf("failed to record PR: %w", err)
	}
	return nil
}

// Report summarizes all counters.
func (s *BudgetServiceImpl) Report(ctx context.Context) (*primary.BudgetReport, error) {
	weekly, err := s.rollover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read weekly budget: %w", err)
	}

	repos, err := s.budgets.ListRepos(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list repo budgets: %w", err)
	}

	languages, err := s.budgets.ListLanguages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list language budgets: %w", err)
	}

	totals, err := s.budgets.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read totals: %w", err)
	}

	report := &primary.BudgetReport{
		WeeklyBudget: weekly.Budget,
		WeeklyUsed:   weekly.Used,
		PerRepo:      make(map[string]primary.BudgetCounters, len(repos)),
		PerLanguage:  make(map[string]primary.BudgetCounters, len(languages)),
		TotalTokens:  totals.TotalTokens,
		TotalIssues:  totals.TotalIssues,
		TotalPRs:     totals.TotalPRs,
	}

	report.WeeklyRemaining = weekly.Budget - weekly.Used
	if report.WeeklyRemaining < 0 {
		report.WeeklyRemaining = 0
	}
	if weekly.Budget > 0 {
		report.WeeklyPercent = float64(weekly.Used) / float64(weekly.Budget) * 100
	}

	for _, r := range repos {
		report.PerRepo[r.Repository] = primary.BudgetCounters{
			Tokens: r.TokensUsed,
			Issues: r.IssuesProcessed,
		}
	}
	for _, l := range languages {
		report.PerLanguage[l.Language] = primary.BudgetCounters{
			Tokens: l.TokensUsed,
			Issues: l.IssuesProcessed,
		}
	}

	return report, nil
}

// ResetWeekly zeroes weekly usage and stamps the current ISO week.
func (s *BudgetServiceImpl) ResetWeekly(ctx context.Context) error {
	now := s.now()
	year, week := now.ISOWeek()

	if _, err := s.rollover(ctx); err != nil {
		return fmt.Errorf("failed to read weekly budget: %w", err)
	}

	if err := s.budgets.ResetWeekly(ctx, year, week, now); err != nil {
		return fmt.Errorf("failed to reset weekly budget: %w", err)
	}

	s.logger.Info("weekly budget reset by operator")
	return nil
}

// ResetRepo clears a repository's counters. Missing key is a no-op.
func (s *BudgetServiceImpl) ResetRepo(ctx context.Context, repository string) error {
	if err := s.budgets.DeleteRepo(ctx, repository); err != nil {
		return fmt.Errorf("failed to reset repo budget: %w", err)
	}
	s.logger.Info("repo budget reset", zap.String("repository", repository))
	return nil
}

// ResetLanguage clears a language's counters. Missing key is a no-op.
func (s *BudgetServiceImpl) ResetLanguage(ctx context.Context, language string) error {
	if err := s.budgets.DeleteLanguage(ctx, language); err != nil {
		return fmt.Errorf("failed to reset language budget: %w", err)
	}
	s.logger.Info("language budget reset", zap.String("language", language))
	return nil
}

// Ensure BudgetServiceImpl implements the interface
var _ primary.BudgetService = (*BudgetServiceImpl)(nil)
