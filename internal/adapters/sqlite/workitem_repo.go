// Package sqlite contains SQLite implementations of repository interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/fleet/internal/ports/secondary"
)

// fmtTime renders a timestamp in the stored representation. All timestamps
// are RFC3339 UTC strings, so lexicographic comparison in SQL matches
// chronological order.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// claimableWhere matches rows that may be claimed: unassigned ones outright,
// assigned ones only when the heartbeat is missing or older than the cutoff.
const claimableWhere = `(assignment_status IN ('available', 'completed', 'failed')
	OR (assignment_status = 'assigned' AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)))`

// WorkItemRepository implements secondary.WorkItemRepository with SQLite.
type WorkItemRepository struct {
	db *sql.DB
}

// NewWorkItemRepository creates a new SQLite work item repository.
func NewWorkItemRepository(db *sql.DB) *WorkItemRepository {
	return &WorkItemRepository{db: db}
}

const workItemSelectCols = "repository, number, title, category, complexity, solvability, priority, data, assignment_status, assigned_to, assigned_at, last_heartbeat_at, created_at, updated_at"

// scanWorkItem scans a work item row into a WorkItemRecord.
func scanWorkItem(scanner interface {
	Scan(dest ...any) error
}) (*secondary.WorkItemRecord, error) {
	var (
		data            sql.NullString
		assignedTo      sql.NullString
		assignedAt      sql.NullString
		lastHeartbeatAt sql.NullString
	)

	record := &secondary.WorkItemRecord{}
	err := scanner.Scan(
		&record.Repository, &record.Number, &record.Title, &record.Category,
		&record.Complexity, &record.Solvability, &record.Priority, &data,
		&record.Status, &assignedTo, &assignedAt, &lastHeartbeatAt,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Data = data.String
	record.AssignedTo = assignedTo.String
	record.AssignedAt = assignedAt.String
	record.LastHeartbeatAt = lastHeartbeatAt.String

	return record, nil
}

// Upsert inserts a work item or refreshes its descriptive fields. Lease
// state (assignment_status and the lease triple) of an existing row is
// never touched here; only the lease operations may move it.
func (r *WorkItemRepository) Upsert(ctx context.Context, item *secondary.WorkItemRecord, now time.Time) error {
	var data sql.NullString
	if item.Data != "" {
		data = sql.NullString{String: item.Data, Valid: true}
	}

	ts := fmtTime(now)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO work_items (repository, number, title, category, complexity, solvability, priority, data, assignment_status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 'available', ?, ?)
		ON CONFLICT (repository, number) DO UPDATE SET
			title = excluded.title,
			category = excluded.category,
			complexity = excluded.complexity,
			solvability = excluded.solvability,
			priority = excluded.priority,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		item.Repository, item.Number, item.Title, item.Category,
		item.Complexity, item.Solvability, item.Priority, data, ts, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert work item: %w", err)
	}

	return nil
}

// Get retrieves a work item by its key, or nil when absent.
func (r *WorkItemRepository) Get(ctx context.Context, repository string, number int) (*secondary.WorkItemRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workItemSelectCols+" FROM work_items WHERE repository = ? AND number = ?",
		repository, number,
	)

	record, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work item: %w", err)
	}

	return record, nil
}

// List retrieves work items matching the given filters.
func (r *WorkItemRepository) List(ctx context.Context, filters secondary.WorkItemFilters) ([]*secondary.WorkItemRecord, error) {
	query := "SELECT " + workItemSelectCols + " FROM work_items WHERE 1=1"
	args := []any{}

	if filters.Repository != "" {
		query += " AND repository = ?"
		args = append(args, filters.Repository)
	}

	if filters.Status != "" {
		query += " AND assignment_status = ?"
		args = append(args, filters.Status)
	}

	query += " ORDER BY priority DESC, created_at ASC, repository ASC, number ASC"

	if filters.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list work items: %w", err)
	}
	defer rows.Close()

	var items []*secondary.WorkItemRecord
	for rows.Next() {
		record, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work item: %w", err)
		}
		items = append(items, record)
	}

	return items, rows.Err()
}

// Delete removes a work item. Deleting a missing item is a no-op.
func (r *WorkItemRepository) Delete(ctx context.Context, repository string, number int) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM work_items WHERE repository = ? AND number = ?",
		repository, number,
	)
	if err != nil {
		return fmt.Errorf("failed to delete work item: %w", err)
	}
	return nil
}

// Claim atomically assigns the item to agentID. The claimable predicate and
// the write happen in one conditional UPDATE, so two racing claimers cannot
// both see rows affected.
func (r *WorkItemRepository) Claim(ctx context.Context, repository string, number int, agentID string, timeout time.Duration, now time.Time) (bool, error) {
	ts := fmtTime(now)
	cutoff := fmtTime(now.Add(-timeout))

	result, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET assignment_status = 'assigned',
			assigned_to = ?,
			assigned_at = ?,
			last_heartbeat_at = ?,
			updated_at = ?
		WHERE repository = ? AND number = ? AND `+claimableWhere,
		agentID, ts, ts, ts, repository, number, cutoff,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim work item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// ClaimHighestPriority claims the best claimable item. Candidates are read
// in priority order and claimed with the same conditional UPDATE as Claim;
// a candidate stolen by a concurrent claimer affects zero rows and the next
// one is tried. When a whole batch is stolen the candidates are re-read, so
// nil means the backlog had nothing claimable, not that a batch was lost to
// a race.
func (r *WorkItemRepository) ClaimHighestPriority(ctx context.Context, agentID string, timeout time.Duration, now time.Time) (*secondary.WorkItemRecord, error) {
	for {
		candidates, err := r.claimCandidates(ctx, timeout, now)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			return nil, nil
		}

		for _, k := range candidates {
			claimed, err := r.Claim(ctx, k.repository, k.number, agentID, timeout, now)
			if err != nil {
				return nil, err
			}
			if claimed {
				return r.Get(ctx, k.repository, k.number)
			}
		}
	}
}

type itemKey struct {
	repository string
	number     int
}

// claimCandidates reads the next batch of claimable item keys in claim order.
func (r *WorkItemRepository) claimCandidates(ctx context.Context, timeout time.Duration, now time.Time) ([]itemKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT repository, number FROM work_items
		WHERE `+claimableWhere+`
		ORDER BY priority DESC, created_at ASC, repository ASC, number ASC
		LIMIT 10`,
		fmtTime(now.Add(-timeout)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to select claim candidates: %w", err)
	}
	defer rows.Close()

	var candidates []itemKey
	for rows.Next() {
		var k itemKey
		if err := rows.Scan(&k.repository, &k.number); err != nil {
			return nil, fmt.Errorf("failed to scan claim candidate: %w", err)
		}
		candidates = append(candidates, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read claim candidates: %w", err)
	}

	return candidates, nil
}

// Heartbeat renews the lease timestamp for the owning agent only.
func (r *WorkItemRepository) Heartbeat(ctx context.Context, repository string, number int, agentID string, now time.Time) (bool, error) {
	ts := fmtTime(now)
	result, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET last_heartbeat_at = ?, updated_at = ?
		WHERE repository = ? AND number = ?
			AND assigned_to = ?
			AND assignment_status = 'assigned'`,
		ts, ts, repository, number, agentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to send heartbeat: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// Release clears the lease and sets the outcome, owner-only.
func (r *WorkItemRepository) Release(ctx context.Context, repository string, number int, agentID, outcome string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET assignment_status = ?,
			assigned_to = NULL,
			assigned_at = NULL,
			last_heartbeat_at = NULL,
			updated_at = ?
		WHERE repository = ? AND number = ? AND assigned_to = ?`,
		outcome, fmtTime(now), repository, number, agentID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release work item: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

// ReleaseStale transitions overdue leases back to available in one bulk update.
func (r *WorkItemRepository) ReleaseStale(ctx context.Context, timeout time.Duration, now time.Time) (int, error) {
	cutoff := fmtTime(now.Add(-timeout))
	result, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET assignment_status = 'available',
			assigned_to = NULL,
			assigned_at = NULL,
			last_heartbeat_at = NULL,
			updated_at = ?
		WHERE assignment_status = 'assigned'
			AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)`,
		fmtTime(now), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale assignments: %w", err)
	}

	count, _ := result.RowsAffected()
	return int(count), nil
}

// ReleaseAgent force-releases every lease held by one agent.
func (r *WorkItemRepository) ReleaseAgent(ctx context.Context, agentID string, now time.Time) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE work_items
		SET assignment_status = 'available',
			assigned_to = NULL,
			assigned_at = NULL,
			last_heartbeat_at = NULL,
			updated_at = ?
		WHERE assignment_status = 'assigned' AND assigned_to = ?`,
		fmtTime(now), agentID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release agent leases: %w", err)
	}

	count, _ := result.RowsAffected()
	return int(count), nil
}

// GetAssigned retrieves the item currently assigned to an agent, or nil.
func (r *WorkItemRepository) GetAssigned(ctx context.Context, agentID string) (*secondary.WorkItemRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+workItemSelectCols+" FROM work_items WHERE assigned_to = ? AND assignment_status = 'assigned'",
		agentID,
	)

	record, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assigned work item: %w", err)
	}

	return record, nil
}

// ListLeases retrieves assigned items, optionally only stale ones.
func (r *WorkItemRepository) ListLeases(ctx context.Context, staleOnly bool, timeout time.Duration, now time.Time) ([]*secondary.WorkItemRecord, error) {
	query := "SELECT " + workItemSelectCols + " FROM work_items WHERE assignment_status = 'assigned'"
	args := []any{}

	if staleOnly {
		query += " AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)"
		args = append(args, fmtTime(now.Add(-timeout)))
	}

	query += " ORDER BY last_heartbeat_at ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list leases: %w", err)
	}
	defer rows.Close()

	var items []*secondary.WorkItemRecord
	for rows.Next() {
		record, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lease: %w", err)
		}
		items = append(items, record)
	}

	return items, rows.Err()
}

// Ensure WorkItemRepository implements the interface
var _ secondary.WorkItemRepository = (*WorkItemRepository)(nil)
