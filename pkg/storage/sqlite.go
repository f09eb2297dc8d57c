package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/aihub/pkg/execution"
	"github.com/dshills/aihub/pkg/workflow"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteWorkflowRepository implements workflow.Repository on SQLite and
// also keeps the execution log history of simulated runs.
type SQLiteWorkflowRepository struct {
	db *sql.DB
}

// NewSQLiteWorkflowRepository opens (or creates) the database at dbPath
func NewSQLiteWorkflowRepository(dbPath string) (*SQLiteWorkflowRepository, error) {
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := InitializeDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &SQLiteWorkflowRepository{db: db}, nil
}

// Close closes the database connection.
func (r *SQLiteWorkflowRepository) Close() error {
	return r.db.Close()
}

// Save upserts a workflow. The whole document is stored as JSON; name and
// timestamps are mirrored into columns for listing.
func (r *SQLiteWorkflowRepository) Save(ctx context.Context, wf *workflow.Workflow) error {
	if wf == nil {
		return fmt.Errorf("cannot save nil workflow")
	}
	if wf.ID == "" {
		return fmt.Errorf("workflow must have an ID")
	}

	doc, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	query := `
		INSERT INTO workflows (id, name, description, document, created_at, updated_at, position)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM workflows))
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			document = excluded.document,
			updated_at = excluded.updated_at
	`
	_, err = r.db.ExecContext(ctx, query,
		wf.ID.String(),
		wf.Name,
		wf.Description,
		string(doc),
		wf.CreatedAt,
		wf.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

// Get retrieves a workflow by id
func (r *SQLiteWorkflowRepository) Get(ctx context.Context, id workflow.WorkflowID) (*workflow.Workflow, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, "SELECT document FROM workflows WHERE id = ?", id.String()).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	return decodeWorkflow(doc)
}

// Delete removes a workflow and its execution logs
func (r *SQLiteWorkflowRepository) Delete(ctx context.Context, id workflow.WorkflowID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", workflow.ErrWorkflowNotFound, id)
	}
	return nil
}

// List returns all workflows in insertion order
func (r *SQLiteWorkflowRepository) List(ctx context.Context) ([]*workflow.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT document FROM workflows ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	workflows := make([]*workflow.Workflow, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		wf, err := decodeWorkflow(doc)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}
	return workflows, nil
}

func decodeWorkflow(doc string) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := json.Unmarshal([]byte(doc), &wf); err != nil {
		return nil, fmt.Errorf("failed to parse stored workflow: %w", err)
	}
	return &wf, nil
}

// AppendLogs records execution log entries for a workflow
func (r *SQLiteWorkflowRepository) AppendLogs(ctx context.Context, id workflow.WorkflowID, entries []execution.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO execution_logs (id, workflow_id, run_id, timestamp, level, message, node_id, node_name, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare log insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		var nodeID, nodeName, data sql.NullString
		if e.NodeID != "" {
			nodeID = sql.NullString{String: e.NodeID.String(), Valid: true}
			nodeName = sql.NullString{String: e.NodeName, Valid: true}
		}
		if len(e.Data) > 0 {
			raw, err := json.Marshal(e.Data)
			if err != nil {
				return fmt.Errorf("failed to marshal log data: %w", err)
			}
			data = sql.NullString{String: string(raw), Valid: true}
		}

		if _, err := stmt.ExecContext(ctx, e.ID, id.String(), e.RunID, e.Timestamp, string(e.Level), e.Message, nodeID, nodeName, data); err != nil {
			return fmt.Errorf("failed to insert log entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit log entries: %w", err)
	}
	return nil
}

// ListLogs returns the most recent limit entries for a workflow, oldest first.
// A limit of zero or less returns everything.
func (r *SQLiteWorkflowRepository) ListLogs(ctx context.Context, id workflow.WorkflowID, limit int) ([]execution.LogEntry, error) {
	query := `
		SELECT id, run_id, timestamp, level, message, node_id, node_name, data FROM (
			SELECT rowid AS seq, * FROM execution_logs WHERE workflow_id = ?
			ORDER BY timestamp DESC, seq DESC
			LIMIT ?
		) ORDER BY timestamp ASC, seq ASC
	`
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, query, id.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]execution.LogEntry, 0)
	for rows.Next() {
		var e execution.LogEntry
		var level string
		var nodeID, nodeName, data sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Timestamp, &level, &e.Message, &nodeID, &nodeName, &data); err != nil {
			return nil, fmt.Errorf("failed to scan log entry: %w", err)
		}
		e.Level = execution.Level(level)
		e.NodeID = workflow.NodeID(nodeID.String)
		e.NodeName = nodeName.String
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
				return nil, fmt.Errorf("failed to parse log data: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}
	return entries, nil
}
