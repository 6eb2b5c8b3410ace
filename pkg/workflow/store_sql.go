package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists workflows. Nodes and edges are stored as opaque JSON
// documents; the store validates them on the way in and out.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const (
	createWorkflowsTableSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    status VARCHAR(50) NOT NULL DEFAULT 'draft',
    nodes TEXT NOT NULL,
    edges TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

	createWorkflowsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT,
    status VARCHAR(50) NOT NULL DEFAULT 'draft',
    nodes TEXT NOT NULL,
    edges TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`
)

func NewSQLStore(db *sql.DB, dialect string) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize workflows schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := createWorkflowsTableSQL
	if s.dialect == "postgres" {
		schema = createWorkflowsTablePostgresSQL
	}
	_, err := s.db.Exec(schema)
	return err
}

// Save inserts a new workflow or updates an existing one. The workflow must
// pass structural validation first.
func (s *SQLStore) Save(ctx context.Context, w *Workflow) error {
	if w.Status == "" {
		w.Status = StatusDraft
	}
	if w.Nodes == nil {
		w.Nodes = []Node{}
	}
	if w.Edges == nil {
		w.Edges = []Edge{}
	}
	if err := w.Validate(); err != nil {
		return err
	}

	nodesJSON, err := json.Marshal(w.Nodes)
	if err != nil {
		return fmt.Errorf("failed to serialize nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(w.Edges)
	if err != nil {
		return fmt.Errorf("failed to serialize edges: %w", err)
	}

	now := time.Now()
	w.UpdatedAt = now

	if w.ID != 0 {
		_, err := s.db.ExecContext(ctx,
			s.rebind(`UPDATE workflows SET name = ?, description = ?, status = ?, nodes = ?, edges = ?, updated_at = ?
                      WHERE id = ?`),
			w.Name, w.Description, string(w.Status), string(nodesJSON), string(edgesJSON), now, w.ID)
		if err != nil {
			return fmt.Errorf("failed to update workflow %d: %w", w.ID, err)
		}
		return nil
	}

	w.CreatedAt = now
	insertSQL := `INSERT INTO workflows (name, description, status, nodes, edges, created_at, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?)`
	args := []any{w.Name, w.Description, string(w.Status), string(nodesJSON), string(edgesJSON), now, now}

	// Postgres supports RETURNING; sqlite reports the row ID on the result.
	if s.dialect == "postgres" {
		err := s.db.QueryRowContext(ctx, s.rebind(insertSQL)+` RETURNING id`, args...).
			Scan(&w.ID)
		if err != nil {
			return fmt.Errorf("failed to create workflow: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	if w.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read new workflow id: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, description, status, nodes, edges, created_at, updated_at
                  FROM workflows WHERE id = ?`), id)

	w, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %d: %w", id, err)
	}
	return w, nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, status, nodes, edges, created_at, updated_at
         FROM workflows ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	var results []*Workflow
	for rows.Next() {
		w, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		results = append(results, w)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*Workflow, error) {
	w := &Workflow{}
	var description sql.NullString
	var status, nodesJSON, edgesJSON string

	err := row.Scan(&w.ID, &w.Name, &description, &status, &nodesJSON, &edgesJSON,
		&w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}

	w.Description = description.String
	w.Status = Status(status)

	if err := json.Unmarshal([]byte(nodesJSON), &w.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode nodes for workflow %d: %w", w.ID, err)
	}
	if err := json.Unmarshal([]byte(edgesJSON), &w.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode edges for workflow %d: %w", w.ID, err)
	}
	return w, nil
}

func (s *SQLStore) rebind(query string) string {
	if s.dialect != "postgres" {
		return query
	}

	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
