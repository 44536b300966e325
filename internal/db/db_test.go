package db

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fleet.db")

	database, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	// All tables from the schema must exist.
	for _, table := range []string{"work_items", "budget_weekly", "budget_repo", "budget_language", "budget_totals"} {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}

	// Opening again over the existing file is fine.
	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	again.Close()
}

func TestSchemaConstraints(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "fleet.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer database.Close()

	// The status CHECK constraint rejects unknown states.
	_, err = database.Exec(`
		INSERT INTO work_items (repository, number, title, assignment_status, created_at, updated_at)
		VALUES ('acme/widgets', 1, 'x', 'garbage', '2024-06-10T12:00:00Z', '2024-06-10T12:00:00Z')`)
	if err == nil {
		t.Error("expected CHECK constraint to reject invalid status")
	}

	// Duplicate (repository, number) pairs are rejected.
	insert := `
		INSERT INTO work_items (repository, number, title, assignment_status, created_at, updated_at)
		VALUES ('acme/widgets', 2, 'x', 'available', '2024-06-10T12:00:00Z', '2024-06-10T12:00:00Z')`
	if _, err := database.Exec(insert); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := database.Exec(insert); err == nil {
		t.Error("expected duplicate key to be rejected")
	}
}
