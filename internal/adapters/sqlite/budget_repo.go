package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/fleet/internal/ports/secondary"
)

// BudgetRepository implements secondary.BudgetRepository with SQLite.
// Increments are unconditional; ceiling checks belong to the service layer.
type BudgetRepository struct {
	db *sql.DB
}

// NewBudgetRepository creates a new SQLite budget repository.
func NewBudgetRepository(db *sql.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// Weekly retrieves the weekly budget row, or nil when uninitialized.
func (r *BudgetRepository) Weekly(ctx context.Context) (*secondary.WeeklyBudgetRecord, error) {
	record := &secondary.WeeklyBudgetRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT year, week_number, budget, used FROM budget_weekly WHERE id = 1",
	).Scan(&record.Year, &record.WeekNumber, &record.Budget, &record.Used)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly budget: %w", err)
	}

	return record, nil
}

// InitWeekly creates the weekly row if it does not exist.
func (r *BudgetRepository) InitWeekly(ctx context.Context, year, week int, budget int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_weekly (id, year, week_number, budget, used, updated_at)
		VALUES (1, ?, ?, ?, 0, ?)
		ON CONFLICT (id) DO NOTHING`,
		year, week, budget, fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to init weekly budget: %w", err)
	}
	return nil
}

// ResetWeekly zeroes usage and stores the new ISO (year, week).
func (r *BudgetRepository) ResetWeekly(ctx context.Context, year, week int, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE budget_weekly SET year = ?, week_number = ?, used = 0, updated_at = ? WHERE id = 1",
		year, week, fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to reset weekly budget: %w", err)
	}
	return nil
}

// SetWeeklyBudget updates the configured weekly ceiling.
func (r *BudgetRepository) SetWeeklyBudget(ctx context.Context, budget int64, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE budget_weekly SET budget = ?, updated_at = ? WHERE id = 1",
		budget, fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to set weekly budget: %w", err)
	}
	return nil
}

// AddTokens charges tokens to the repository, language, weekly, and total
// counters in a single transaction so a crash cannot leave them skewed.
func (r *BudgetRepository) AddTokens(ctx context.Context, repository, language string, tokens int64, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin budget transaction: %w", err)
	}
	defer tx.Rollback()

	ts := fmtTime(now)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_repo (repository, tokens_used, issues_processed, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (repository) DO UPDATE SET
			tokens_used = tokens_used + excluded.tokens_used,
			updated_at = excluded.updated_at`,
		repository, tokens, ts,
	); err != nil {
		return fmt.Errorf("failed to add repo tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_language (language, tokens_used, issues_processed, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT (language) DO UPDATE SET
			tokens_used = tokens_used + excluded.tokens_used,
			updated_at = excluded.updated_at`,
		language, tokens, ts,
	); err != nil {
		return fmt.Errorf("failed to add language tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE budget_weekly SET used = used + ?, updated_at = ? WHERE id = 1",
		tokens, ts,
	); err != nil {
		return fmt.Errorf("failed to add weekly tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_totals (id, total_tokens, total_issues, total_prs, updated_at)
		VALUES (1, ?, 0, 0, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_tokens = total_tokens + excluded.total_tokens,
			updated_at = excluded.updated_at`,
		tokens, ts,
	); err != nil {
		return fmt.Errorf("failed to add total tokens: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budget transaction: %w", err)
	}
	return nil
}

// IncrementIssues bumps the repository, language, and total issue counters.
func (r *BudgetRepository) IncrementIssues(ctx context.Context, repository, language string, now time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin budget transaction: %w", err)
	}
	defer tx.Rollback()

	ts := fmtTime(now)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_repo (repository, tokens_used, issues_processed, updated_at)
		VALUES (?, 0, 1, ?)
		ON CONFLICT (repository) DO UPDATE SET
			issues_processed = issues_processed + 1,
			updated_at = excluded.updated_at`,
		repository, ts,
	); err != nil {
		return fmt.Errorf("failed to increment repo issues: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_language (language, tokens_used, issues_processed, updated_at)
		VALUES (?, 0, 1, ?)
		ON CONFLICT (language) DO UPDATE SET
			issues_processed = issues_processed + 1,
			updated_at = excluded.updated_at`,
		language, ts,
	); err != nil {
		return fmt.Errorf("failed to increment language issues: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO budget_totals (id, total_tokens, total_issues, total_prs, updated_at)
		VALUES (1, 0, 1, 0, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_issues = total_issues + 1,
			updated_at = excluded.updated_at`,
		ts,
	); err != nil {
		return fmt.Errorf("failed to increment total issues: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budget transaction: %w", err)
	}
	return nil
}

// IncrementPRs bumps the global PR counter.
func (r *BudgetRepository) IncrementPRs(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_totals (id, total_tokens, total_issues, total_prs, updated_at)
		VALUES (1, 0, 0, 1, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_prs = total_prs + 1,
			updated_at = excluded.updated_at`,
		fmtTime(now),
	)
	if err != nil {
		return fmt.Errorf("failed to increment PR total: %w", err)
	}
	return nil
}

// Repo retrieves counters for one repository, zero-valued when absent.
func (r *BudgetRepository) Repo(ctx context.Context, repository string) (*secondary.RepoBudgetRecord, error) {
	record := &secondary.RepoBudgetRecord{Repository: repository}
	err := r.db.QueryRowContext(ctx,
		"SELECT tokens_used, issues_processed FROM budget_repo WHERE repository = ?",
		repository,
	).Scan(&record.TokensUsed, &record.IssuesProcessed)

	if err == sql.ErrNoRows {
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get repo budget: %w", err)
	}

	return record, nil
}

// Language retrieves counters for one language, zero-valued when absent.
func (r *BudgetRepository) Language(ctx context.Context, language string) (*secondary.LanguageBudgetRecord, error) {
	record := &secondary.LanguageBudgetRecord{Language: language}
	err := r.db.QueryRowContext(ctx,
		"SELECT tokens_used, issues_processed FROM budget_language WHERE language = ?",
		language,
	).Scan(&record.TokensUsed, &record.IssuesProcessed)

	if err == sql.ErrNoRows {
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get language budget: %w", err)
	}

	return record, nil
}

// ListRepos retrieves all per-repository counter rows.
func (r *BudgetRepository) ListRepos(ctx context.Context) ([]*secondary.RepoBudgetRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT repository, tokens_used, issues_processed FROM budget_repo ORDER BY repository ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list repo budgets: %w", err)
	}
	defer rows.Close()

	var records []*secondary.RepoBudgetRecord
	for rows.Next() {
		record := &secondary.RepoBudgetRecord{}
		if err := rows.Scan(&record.Repository, &record.TokensUsed, &record.IssuesProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan repo budget: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// ListLanguages retrieves all per-language counter rows.
func (r *BudgetRepository) ListLanguages(ctx context.Context) ([]*secondary.LanguageBudgetRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT language, tokens_used, issues_processed FROM budget_language ORDER BY language ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list language budgets: %w", err)
	}
	defer rows.Close()

	var records []*secondary.LanguageBudgetRecord
	for rows.Next() {
		record := &secondary.LanguageBudgetRecord{}
		if err := rows.Scan(&record.Language, &record.TokensUsed, &record.IssuesProcessed); err != nil {
			return nil, fmt.Errorf("failed to scan language budget: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// Totals retrieves the running totals, zero-valued when uninitialized.
func (r *BudgetRepository) Totals(ctx context.Context) (*secondary.BudgetTotalsRecord, error) {
	record := &secondary.BudgetTotalsRecord{}
	err := r.db.QueryRowContext(ctx,
		"SELECT total_tokens, total_issues, total_prs FROM budget_totals WHERE id = 1",
	).Scan(&record.TotalTokens, &record.TotalIssues, &record.TotalPRs)

	if err == sql.ErrNoRows {
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget totals: %w", err)
	}

	return record, nil
}

// DeleteRepo removes a repository's counters. Missing key is a no-op.
func (r *BudgetRepository) DeleteRepo(ctx context.Context, repository string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM budget_repo WHERE repository = ?", repository)
	if err != nil {
		return fmt.Errorf("failed to delete repo budget: %w", err)
	}
	return nil
}

// DeleteLanguage removes a language's counters. Missing key is a no-op.
func (r *BudgetRepository) DeleteLanguage(ctx context.Context, language string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM budget_language WHERE language = ?", language)
	if err != nil {
		return fmt.Errorf("failed to delete language budget: %w", err)
	}
	return nil
}

// Ensure BudgetRepository implements the interface
var _ secondary.BudgetRepository = (*BudgetRepository)(nil)
