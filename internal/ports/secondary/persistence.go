// Package secondary defines the secondary ports (driven adapters) for the
// application. These are the interfaces through which the application drives
// external systems: the shared store and the analysis collaborators.
package secondary

import (
	"context"
	"time"
)

// WorkItemRepository defines the secondary port for work item persistence.
// The lease operations (Claim, ClaimHighestPriority, Heartbeat, Release,
// ReleaseStale) must be atomic read-modify-writes: under concurrent callers,
// at most one claim for a given item may succeed.
type WorkItemRepository interface {
	// Upsert inserts a work item or replaces its descriptive fields.
	// Lease state of an existing row is preserved.
	Upsert(ctx context.Context, item *WorkItemRecord, now time.Time) error

	// Get retrieves a work item by its (repository, number) key.
	// Returns nil without error when the item does not exist.
	Get(ctx context.Context, repository string, number int) (*WorkItemRecord, error)

	// List retrieves work items matching the given filters, ordered by
	// priority descending.
	List(ctx context.Context, filters WorkItemFilters) ([]*WorkItemRecord, error)

	// Delete removes a work item (administrative removal only).
	// Deleting a missing item is a no-op.
	Delete(ctx context.Context, repository string, number int) error

	// Claim atomically assigns the item to agentID if it is claimable:
	// available/completed/failed, or assigned with a heartbeat older than
	// timeout. Returns false when another agent holds a live lease or the
	// item does not exist.
	Claim(ctx context.Context, repository string, number int, agentID string, timeout time.Duration, now time.Time) (bool, error)

	// ClaimHighestPriority atomically claims the claimable item with the
	// greatest priority (ties: oldest created_at, then repository, number).
	// Returns nil when no eligible item exists.
	ClaimHighestPriority(ctx context.Context, agentID string, timeout time.Duration, now time.Time) (*WorkItemRecord, error)

	// Heartbeat renews the lease timestamp. Returns false when the item is
	// no longer assigned to agentID; the caller must stop work.
	Heartbeat(ctx context.Context, repository string, number int, agentID string, now time.Time) (bool, error)

	// Release clears the lease and sets the outcome status, only if agentID
	// currently holds the lease. Returns whether the update applied.
	Release(ctx context.Context, repository string, number int, agentID, outcome string, now time.Time) (bool, error)

	// ReleaseStale transitions every assigned item whose heartbeat is older
	// than timeout back to available in one bulk update. Returns the count.
	ReleaseStale(ctx context.Context, timeout time.Duration, now time.Time) (int, error)

	// ReleaseAgent force-releases every lease held by agentID back to
	// available. Returns the count.
	ReleaseAgent(ctx context.Context, agentID string, now time.Time) (int, error)

	// GetAssigned retrieves the item currently assigned to agentID, or nil.
	GetAssigned(ctx context.Context, agentID string) (*WorkItemRecord, error)

	// ListLeases retrieves assigned items, optionally only those whose
	// heartbeat is older than timeout.
	ListLeases(ctx context.Context, staleOnly bool, timeout time.Duration, now time.Time) ([]*WorkItemRecord, error)
}

// WorkItemRecord represents a work item as stored in persistence.
// Timestamps are RFC3339 UTC strings; lease fields are empty when unset.
type WorkItemRecord struct {
	Repository      string
	Number          int
	Title           string
	Category        string
	Complexity      int
	Solvability     float64
	Priority        float64
	Data            string
	Status          string
	AssignedTo      string
	AssignedAt      string
	LastHeartbeatAt string
	CreatedAt       string
	UpdatedAt       string
}

// WorkItemFilters contains filter options for querying work items.
type WorkItemFilters struct {
	Repository string
	Status     string
	Limit      int
}

// BudgetRepository defines the secondary port for budget counter persistence.
// Increment methods are unconditional; affordability checks live in the
// service layer so the check/record race stays where the design accepts it.
type BudgetRepository interface {
	// Weekly retrieves the weekly budget row, or nil when uninitialized.
	Weekly(ctx context.Context) (*WeeklyBudgetRecord, error)

	// InitWeekly creates the weekly row for (year, week) with the given
	// budget and zero usage. No-op if the row already exists.
	InitWeekly(ctx context.Context, year, week int, budget int64, now time.Time) error

	// ResetWeekly zeroes usage and stores the new (year, week), keeping the
	// configured budget.
	ResetWeekly(ctx context.Context, year, week int, now time.Time) error

	// SetWeeklyBudget updates the configured weekly budget ceiling.
	SetWeeklyBudget(ctx context.Context, budget int64, now time.Time) error

	// AddTokens increments repository tokens, language tokens, weekly used,
	// and total tokens by the same amount in a single transaction.
	AddTokens(ctx context.Context, repository, language string, tokens int64, now time.Time) error

	// IncrementIssues increments the repository, language, and total issue
	// counters by one in a single transaction.
	IncrementIssues(ctx context.Context, repository, language string, now time.Time) error

	// IncrementPRs increments the total PR counter.
	IncrementPRs(ctx context.Context, now time.Time) error

	// Repo retrieves counters for a repository; zero counters when absent.
	Repo(ctx context.Context, repository string) (*RepoBudgetRecord, error)

	// Language retrieves counters for a language; zero counters when absent.
	Language(ctx context.Context, language string) (*LanguageBudgetRecord, error)

	// ListRepos retrieves all per-repository counter rows.
	ListRepos(ctx context.Context) ([]*RepoBudgetRecord, error)

	// ListLanguages retrieves all per-language counter rows.
	ListLanguages(ctx context.Context) ([]*LanguageBudgetRecord, error)

	// Totals retrieves the running totals; zero totals when uninitialized.
	Totals(ctx context.Context) (*BudgetTotalsRecord, error)

	// DeleteRepo removes a repository's counters. Missing key is a no-op.
	DeleteRepo(ctx context.Context, repository string) error

	// DeleteLanguage removes a language's counters. Missing key is a no-op.
	DeleteLanguage(ctx context.Context, language string) error
}

// WeeklyBudgetRecord is the singleton weekly budget row.
type WeeklyBudgetRecord struct {
	Year       int
	WeekNumber int
	Budget     int64
	Used       int64
}

// RepoBudgetRecord holds counters for a single repository.
type RepoBudgetRecord struct {
	Repository      string
	TokensUsed      int64
	IssuesProcessed int64
}

// LanguageBudgetRecord holds counters for a single language.
type LanguageBudgetRecord struct {
	Language        string
	TokensUsed      int64
	IssuesProcessed int64
}

// BudgetTotalsRecord holds the running totals.
type BudgetTotalsRecord struct {
	TotalTokens int64
	TotalIssues int64
	TotalPRs    int64
}
