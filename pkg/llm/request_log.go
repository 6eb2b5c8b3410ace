package llm

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// RequestRecord is one audited LLM call.
type RequestRecord struct {
	ID          int64
	Provider    string
	Model       string
	RequestType string // e.g. "general", "certificate_analysis"
	Success     bool
	TotalTokens int
	CostCents   int
	ErrorText   string
	CreatedAt   time.Time
}

// RequestLog records LLM calls for admin usage reporting.
type RequestLog interface {
	Record(ctx context.Context, rec *RequestRecord) error
}

// SQLRequestLog persists request records in a SQL database.
type SQLRequestLog struct {
	db      *sql.DB
	dialect string
}

const createLLMRequestsTableSQL = `
CREATE TABLE IF NOT EXISTS llm_requests (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    request_type VARCHAR(100) NOT NULL,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    cost_cents INTEGER NOT NULL DEFAULT 0,
    error_text TEXT,
    created_at TIMESTAMP NOT NULL
);
`

const createLLMRequestsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS llm_requests (
    id BIGSERIAL PRIMARY KEY,
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    request_type VARCHAR(100) NOT NULL,
    success BOOLEAN NOT NULL DEFAULT FALSE,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    cost_cents INTEGER NOT NULL DEFAULT 0,
    error_text TEXT,
    created_at TIMESTAMP NOT NULL
);
`

func NewSQLRequestLog(db *sql.DB, dialect string) (*SQLRequestLog, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	schema := createLLMRequestsTableSQL
	switch dialect {
	case "sqlite":
	case "postgres":
		schema = createLLMRequestsTablePostgresSQL
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize llm_requests schema: %w", err)
	}

	return &SQLRequestLog{db: db, dialect: dialect}, nil
}

func (l *SQLRequestLog) Record(ctx context.Context, rec *RequestRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO llm_requests
        (provider, model, request_type, success, total_tokens, cost_cents, error_text, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if l.dialect == "postgres" {
		query = `INSERT INTO llm_requests
        (provider, model, request_type, success, total_tokens, cost_cents, error_text, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	}

	_, err := l.db.ExecContext(ctx, query,
		rec.Provider, rec.Model, rec.RequestType, rec.Success,
		rec.TotalTokens, rec.CostCents, rec.ErrorText, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record LLM request: %w", err)
	}
	return nil
}
