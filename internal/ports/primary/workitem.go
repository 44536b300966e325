// Package primary defines the primary ports (driving interfaces) for the
// application. CLI commands and embedding work loops call these.
package primary

import (
	"context"
	"fmt"

	"github.com/example/fleet/internal/core/lease"
)

// WorkItem is a work item as exposed to callers.
type WorkItem struct {
	Repository      string
	Number          int
	Title           string
	Category        string
	Complexity      int
	Solvability     float64
	Priority        float64
	Data            string
	Status          lease.Status
	AssignedTo      string
	AssignedAt      string
	LastHeartbeatAt string
	CreatedAt       string
	UpdatedAt       string
}

// Key returns the item's unique identity.
func (w *WorkItem) Key() string {
	return ItemKey(w.Repository, w.Number)
}

// ItemKey formats a (repository, number) pair as "owner/repo#N".
func ItemKey(repository string, number int) string {
	return fmt.Sprintf("%s#%d", repository, number)
}

// AddWorkItemRequest carries the fields for adding a backlog item.
type AddWorkItemRequest struct {
	Repository  string
	Number      int
	Title       string
	Category    string
	Complexity  int
	Solvability float64
	Priority    float64
	Data        string
}

// WorkItemFilters contains filter options for listing work items.
type WorkItemFilters struct {
	Repository string
	Status     string
	Limit      int
}

// WorkItemService manages the backlog of known work items.
type WorkItemService interface {
	// Add inserts or updates a work item. Lease state of an existing item
	// is preserved.
	Add(ctx context.Context, req AddWorkItemRequest) (*WorkItem, error)

	// Get retrieves a work item, or nil when it does not exist.
	Get(ctx context.Context, repository string, number int) (*WorkItem, error)

	// List retrieves work items ordered by priority descending.
	List(ctx context.Context, filters WorkItemFilters) ([]*WorkItem, error)

	// Remove deletes a work item. Missing items are a no-op.
	Remove(ctx context.Context, repository string, number int) error
}
