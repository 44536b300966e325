// Package sqlite_test contains integration tests for SQLite repositories.
//
// All test setup uses db.GetSchemaSQL() so tests run against the
// authoritative schema. Do not hardcode CREATE TABLE statements here.
package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/example/fleet/internal/adapters/sqlite"
	"github.com/example/fleet/internal/db"
	"github.com/example/fleet/internal/ports/secondary"
)

// setupTestDB creates an in-memory database with the authoritative schema.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	_, err = testDB.Exec(db.GetSchemaSQL())
	if err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// setupFileTestDB creates a file-backed database via the production
// bootstrap. Concurrency tests need this: with `:memory:` every pooled
// connection gets its own empty database, so racing goroutines would not
// share state. The production open also carries the busy timeout the racing
// writers rely on.
func setupFileTestDB(t *testing.T) *sql.DB {
	t.Helper()

	testDB, err := db.Open(filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
	})

	return testDB
}

// testClock is a fixed instant so staleness cutoffs are deterministic.
var testClock = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

// seedWorkItem inserts an available work item via the repository.
func seedWorkItem(t *testing.T, repo *sqlite.WorkItemRepository, repository string, number int, priority float64) {
	t.Helper()

	err := repo.Upsert(context.Background(), &secondary.WorkItemRecord{
		Repository:  repository,
		Number:      number,
		Title:       "Test Issue",
		Category:    "bug",
		Complexity:  5,
		Solvability: 0.8,
		Priority:    priority,
	}, testClock)
	if err != nil {
		t.Fatalf("failed to seed work item: %v", err)
	}
}

// claimOrFail claims an item and fails the test when the claim is refused.
func claimOrFail(t *testing.T, repo *sqlite.WorkItemRepository, repository string, number int, agentID string, now time.Time) {
	t.Helper()

	claimed, err := repo.Claim(context.Background(), repository, number, agentID, 30*time.Minute, now)
	if err != nil {
		t.Fatalf("Claim failed: %v", err)
	}
	if !claimed {
		t.Fatalf("expected to claim %s#%d for %s", repository, number, agentID)
	}
}
