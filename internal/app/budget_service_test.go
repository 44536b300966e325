package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/fleet/internal/adapters/sqlite"
	"github.com/example/fleet/internal/config"
)

func testLimits() config.BudgetConfig {
	return config.BudgetConfig{
		MaxTokensPerRepo:     100_000,
		MaxTimePerRepoSecs:   3600,
		MaxIssuesPerLanguage: 50,
		MaxIssuesPerRepo:     5,
		WeeklyTokenBudget:    5_000_000,
	}
}

func newTestBudgetService(t *testing.T, limits config.BudgetConfig, t0 time.Time) (*BudgetServiceImpl, func(time.Time)) {
	t.Helper()
	svc := NewBudgetService(sqlite.NewBudgetRepository(setupTestDB(t)), limits, nil)
	now, advance := fixedClock(t0)
	svc.now = now
	return svc, advance
}

func TestBudgetService_WeeklyRollover(t *testing.T) {
	ctx := context.Background()
	// 2024-01-01 is Monday of ISO week 2024/1.
	week1 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	svc, advance := newTestBudgetService(t, testLimits(), week1)

	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 1000))

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), report.WeeklyUsed)

	// Crossing into ISO week 2024/2 resets weekly usage on the next touch.
	advance(week1.AddDate(0, 0, 7))

	report, err = svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.WeeklyUsed, "weekly usage should reset on ISO week change")

	// Per-repo and total counters survive the rollover.
	assert.Equal(t, int64(1000), report.PerRepo["acme/widgets"].Tokens)
	assert.Equal(t, int64(1000), report.TotalTokens)
}

func TestBudgetService_RolloverAcrossYearBoundary(t *testing.T) {
	ctx := context.Background()
	// 2024-12-30 is Monday of ISO week 2025/1: the ISO year differs from the
	// calendar year, so the comparison must use both fields.
	week52 := time.Date(2024, 12, 23, 10, 0, 0, 0, time.UTC)
	svc, advance := newTestBudgetService(t, testLimits(), week52)

	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 500))
	advance(time.Date(2024, 12, 30, 10, 0, 0, 0, time.UTC))

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.WeeklyUsed)
}

func TestBudgetService_CanAffordRepoTokenCeiling(t *testing.T) {
	ctx := context.Background()
	limits := testLimits()
	limits.MaxTokensPerRepo = 2000
	svc, _ := newTestBudgetService(t, limits, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	ok, err := svc.CanAfford(ctx, "acme/widgets", "python", 1500)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 1500))

	// 1500 + 1000 exceeds the repo ceiling.
	ok, err = svc.CanAfford(ctx, "acme/widgets", "python", 1000)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different repo is unaffected.
	ok, err = svc.CanAfford(ctx, "acme/gadgets", "python", 1000)
	require.NoError(t, err)
	assert.True(t, ok)

	// Resetting the repo restores affordability.
	require.NoError(t, svc.ResetRepo(ctx, "acme/widgets"))
	ok, err = svc.CanAfford(ctx, "acme/widgets", "python", 1000)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBudgetService_CanAffordIssueCeilings(t *testing.T) {
	ctx := context.Background()
	limits := testLimits()
	limits.MaxIssuesPerRepo = 2
	limits.MaxIssuesPerLanguage = 3
	svc, _ := newTestBudgetService(t, limits, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.RecordIssueProcessed(ctx, "acme/widgets", "python"))
	require.NoError(t, svc.RecordIssueProcessed(ctx, "acme/widgets", "python"))

	// Repo issue ceiling reached.
	ok, err := svc.CanAfford(ctx, "acme/widgets", "python", 10)
	require.NoError(t, err)
	assert.False(t, ok)

	// Another repo still fits under the language ceiling.
	ok, err = svc.CanAfford(ctx, "acme/gadgets", "python", 10)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.RecordIssueProcessed(ctx, "acme/gadgets", "python"))

	// Language issue ceiling reached across repos.
	ok, err = svc.CanAfford(ctx, "acme/other", "python", 10)
	require.NoError(t, err)
	assert.False(t, ok)

	// Other languages are unaffected.
	ok, err = svc.CanAfford(ctx, "acme/other", "go", 10)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBudgetService_CanAffordWeeklyCeiling(t *testing.T) {
	ctx := context.Background()
	limits := testLimits()
	limits.WeeklyTokenBudget = 1000
	svc, _ := newTestBudgetService(t, limits, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	// Spread usage across repos so only the weekly ceiling binds.
	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 900))

	ok, err := svc.CanAfford(ctx, "acme/gadgets", "python", 200)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.CanAfford(ctx, "acme/gadgets", "python", 100)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBudgetService_RecordUsageNeverReChecks(t *testing.T) {
	ctx := context.Background()
	limits := testLimits()
	limits.WeeklyTokenBudget = 1000
	svc, _ := newTestBudgetService(t, limits, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	// Actual usage above the remaining budget is still recorded in full:
	// the check happened at admission time and the work already ran.
	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 1500))

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), report.WeeklyUsed)
	assert.Equal(t, int64(0), report.WeeklyRemaining, "remaining clamps at zero")

	ok, err := svc.CanAfford(ctx, "acme/gadgets", "python", 1)
	require.NoError(t, err)
	assert.False(t, ok, "subsequent admissions see the exhausted budget")
}

func TestBudgetService_Report(t *testing.T) {
	ctx := context.Background()
	limits := testLimits()
	limits.WeeklyTokenBudget = 10_000
	svc, _ := newTestBudgetService(t, limits, time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 2500))
	require.NoError(t, svc.RecordIssueProcessed(ctx, "acme/widgets", "python"))
	require.NoError(t, svc.RecordPRCreated(ctx))

	report, err := svc.Report(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(10_000), report.WeeklyBudget)
	assert.Equal(t, int64(2500), report.WeeklyUsed)
	assert.Equal(t, int64(7500), report.WeeklyRemaining)
	assert.InDelta(t, 25.0, report.WeeklyPercent, 1e-9)
	assert.Equal(t, int64(2500), report.PerRepo["acme/widgets"].Tokens)
	assert.Equal(t, int64(1), report.PerRepo["acme/widgets"].Issues)
	assert.Equal(t, int64(2500), report.PerLanguage["python"].Tokens)
	assert.Equal(t, int64(1), report.TotalIssues)
	assert.Equal(t, int64(1), report.TotalPRs)
}

func TestBudgetService_ResetWeekly(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBudgetService(t, testLimits(), time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	require.NoError(t, svc.RecordUsage(ctx, "acme/widgets", "python", 1000))
	require.NoError(t, svc.ResetWeekly(ctx))

	report, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), report.WeeklyUsed)
	// Operator reset touches only the weekly counter.
	assert.Equal(t, int64(1000), report.TotalTokens)
}
