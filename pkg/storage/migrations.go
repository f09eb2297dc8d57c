package storage

import (
	"database/sql"
	"fmt"
)

// MigrationVersion tracks the current database schema version.
const MigrationVersion = 2

// migrations are applied in order; index i holds version i+1
var migrations = []struct {
	name       string
	statements []string
}{
	{
		name: "workflows",
		statements: []string{
			`CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				document TEXT NOT NULL,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL,
				position INTEGER NOT NULL
			);`,
			"CREATE INDEX idx_workflows_position ON workflows(position);",
			"CREATE INDEX idx_workflows_updated_at ON workflows(updated_at DESC);",
		},
	},
	{
		name: "execution logs",
		statements: []string{
			`CREATE TABLE execution_logs (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				run_id TEXT NOT NULL DEFAULT '',
				timestamp TIMESTAMP NOT NULL,
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				node_id TEXT,
				node_name TEXT,
				data TEXT,
				FOREIGN KEY (workflow_id) REFERENCES workflows(id) ON DELETE CASCADE
			);`,
			"CREATE INDEX idx_execution_logs_workflow ON execution_logs(workflow_id, timestamp);",
			"CREATE INDEX idx_execution_logs_run ON execution_logs(run_id);",
		},
	},
}

// InitializeDatabase brings the schema up to MigrationVersion.
// Applied versions are recorded in the migrations table.
func InitializeDatabase(db *sql.DB) error {
	migrationsTable := `
	CREATE TABLE IF NOT EXISTS migrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		version INTEGER NOT NULL UNIQUE,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(migrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to check migration version: %w", err)
	}

	for i := currentVersion; i < len(migrations); i++ {
		if err := applyMigration(db, i+1); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i+1, err)
		}
	}

	return nil
}

func applyMigration(db *sql.DB, version int) error {
	m := migrations[version-1]

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range m.statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}

	if _, err := tx.Exec("INSERT INTO migrations (version) VALUES (?)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}
