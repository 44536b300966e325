package primary

import "context"

// BudgetService is the hierarchical resource ledger: per-repository,
// per-language, and global weekly token quotas. Weekly counters reset
// lazily when the stored ISO (year, week) no longer matches the clock.
type BudgetService interface {
	// CanAfford reports whether repo and language can absorb one more
	// attempt of the given estimated cost under every ceiling.
	CanAfford(ctx context.Context, repository, language string, estimatedTokens int) (bool, error)

	// RecordUsage charges tokens against the repo, language, weekly, and
	// total counters. It never re-checks the ceilings: between CanAfford
	// and RecordUsage two controllers may both pass, overshooting by at
	// most one in-flight estimate, which is accepted.
	RecordUsage(ctx context.Context, repository, language string, tokens int) error

	// RecordIssueProcessed bumps the issue counters after an attempt.
	RecordIssueProcessed(ctx context.Context, repository, language string) error

	// RecordPRCreated bumps the global PR total.
	RecordPRCreated(ctx context.Context) error

	// Report summarizes all counters.
	Report(ctx context.Context) (*BudgetReport, error)

	// ResetWeekly zeroes weekly usage and stamps the current ISO week.
	ResetWeekly(ctx context.Context) error

	// ResetRepo clears a repository's counters. Missing key is a no-op.
	ResetRepo(ctx context.Context, repository string) error

	// ResetLanguage clears a language's counters. Missing key is a no-op.
	ResetLanguage(ctx context.Context, language string) error
}

// BudgetReport is a snapshot of every budget counter.
type BudgetReport struct {
	WeeklyBudget    int64
	WeeklyUsed      int64
	WeeklyRemaining int64
	WeeklyPercent   float64

	PerRepo     map[string]BudgetCounters
	PerLanguage map[string]BudgetCounters

	TotalTokens int64
	TotalIssues int64
	TotalPRs    int64
}

// BudgetCounters is one row of the per-repo or per-language breakdown.
type BudgetCounters struct {
	Tokens int64
	Issues int64
}

// AdmissionService gates candidate batches on priority order and budget.
type AdmissionService interface {
	// SelectBatch walks candidates in descending priority order, admitting
	// each affordable item and charging its estimate. The first item that
	// is not affordable halts the pass; lower-priority items are not
	// considered. Returns the accepted prefix.
	SelectBatch(ctx context.Context, candidates []*WorkItem, language string) ([]*WorkItem, error)
}
