package db

// SchemaSQL is the complete schema for fresh fleet installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL(); do not hardcode CREATE TABLE statements in
// test files. If repository code references a column that does not exist
// here, tests fail immediately with "no such column", which catches drift at
// development time.
//
// Timestamps are stored as RFC3339 UTC strings written from Go, never via
// CURRENT_TIMESTAMP: staleness and week-rollover comparisons must be made
// against the caller's clock so tests can fix it.
const SchemaSQL = `
-- Work items (issues to analyze and fix) and their lease state
CREATE TABLE IF NOT EXISTS work_items (
	repository TEXT NOT NULL,
	number INTEGER NOT NULL,
	title TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	complexity INTEGER NOT NULL DEFAULT 5 CHECK(complexity BETWEEN 1 AND 10),
	solvability REAL NOT NULL DEFAULT 0 CHECK(solvability BETWEEN 0 AND 1),
	priority REAL NOT NULL DEFAULT 0,
	data TEXT,
	assignment_status TEXT NOT NULL CHECK(assignment_status IN ('available', 'assigned', 'completed', 'failed')) DEFAULT 'available',
	assigned_to TEXT,
	assigned_at TEXT,
	last_heartbeat_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (repository, number)
);

CREATE INDEX IF NOT EXISTS idx_work_items_status_priority
	ON work_items (assignment_status, priority DESC);

CREATE INDEX IF NOT EXISTS idx_work_items_assigned_to
	ON work_items (assigned_to);

-- Weekly token budget (singleton row)
CREATE TABLE IF NOT EXISTS budget_weekly (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	year INTEGER NOT NULL DEFAULT 0,
	week_number INTEGER NOT NULL DEFAULT 0,
	budget INTEGER NOT NULL DEFAULT 0,
	used INTEGER NOT NULL DEFAULT 0 CHECK(used >= 0),
	updated_at TEXT NOT NULL
);

-- Per-repository counters
CREATE TABLE IF NOT EXISTS budget_repo (
	repository TEXT PRIMARY KEY,
	tokens_used INTEGER NOT NULL DEFAULT 0 CHECK(tokens_used >= 0),
	issues_processed INTEGER NOT NULL DEFAULT 0 CHECK(issues_processed >= 0),
	updated_at TEXT NOT NULL
);

-- Per-language counters
CREATE TABLE IF NOT EXISTS budget_language (
	language TEXT PRIMARY KEY,
	tokens_used INTEGER NOT NULL DEFAULT 0 CHECK(tokens_used >= 0),
	issues_processed INTEGER NOT NULL DEFAULT 0 CHECK(issues_processed >= 0),
	updated_at TEXT NOT NULL
);

-- Running totals (singleton row)
CREATE TABLE IF NOT EXISTS budget_totals (
	id INTEGER PRIMARY KEY CHECK(id = 1),
	total_tokens INTEGER NOT NULL DEFAULT 0 CHECK(total_tokens >= 0),
	total_issues INTEGER NOT NULL DEFAULT 0 CHECK(total_issues >= 0),
	total_prs INTEGER NOT NULL DEFAULT 0 CHECK(total_prs >= 0),
	updated_at TEXT NOT NULL
);
`
