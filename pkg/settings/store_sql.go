package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore persists settings and the AI model catalog in a SQL database.
// Supported dialects: sqlite, postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const (
	createSettingsTableSQL = `
CREATE TABLE IF NOT EXISTS api_settings (
    key VARCHAR(255) PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

	createAIModelsTableSQL = `
CREATE TABLE IF NOT EXISTS ai_models (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(255) NOT NULL,
    provider VARCHAR(50) NOT NULL,
    model_identifier VARCHAR(255) NOT NULL,
    is_default BOOLEAN NOT NULL DEFAULT FALSE,
    active BOOLEAN NOT NULL DEFAULT TRUE
);
`

	createAIModelsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS ai_models (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    provider VARCHAR(50) NOT NULL,
    model_identifier VARCHAR(255) NOT NULL,
    is_default BOOLEAN NOT NULL DEFAULT FALSE,
    active BOOLEAN NOT NULL DEFAULT TRUE
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
		return nil, fmt.Errorf("failed to initialize settings schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	if _, err := s.db.Exec(createSettingsTableSQL); err != nil {
		return err
	}

	modelsSQL := createAIModelsTableSQL
	if s.dialect == "postgres" {
		modelsSQL = createAIModelsTablePostgresSQL
	}
	_, err := s.db.Exec(modelsSQL)
	return err
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT value FROM api_settings WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	var query string
	switch s.dialect {
	case "postgres":
		query = `INSERT INTO api_settings (key, value, updated_at) VALUES ($1, $2, NOW())
                 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	default:
		query = `INSERT INTO api_settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
                 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`
	}

	if _, err := s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) DefaultModel(ctx context.Context) (*AIModel, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, provider, model_identifier, is_default, active
FROM ai_models
WHERE active = TRUE
ORDER BY is_default DESC, id ASC
LIMIT 1`)

	model := &AIModel{}
	err := row.Scan(&model.ID, &model.Name, &model.Provider, &model.ModelIdentifier,
		&model.IsDefault, &model.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read default model: %w", err)
	}
	return model, nil
}

// SaveModel inserts a catalog entry. Only one model may be the default at a
// time, so marking a model default unsets every other default first.
func (s *SQLStore) SaveModel(ctx context.Context, model *AIModel) error {
	if model.Provider != "openai" && model.Provider != "ollama" {
		return fmt.Errorf("unsupported provider: %s", model.Provider)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if model.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE ai_models SET is_default = FALSE`); err != nil {
			return fmt.Errorf("failed to unset existing defaults: %w", err)
		}
	}

	insertSQL := `INSERT INTO ai_models (name, provider, model_identifier, is_default, active)
                  VALUES (?, ?, ?, ?, ?)`
	args := []any{model.Name, model.Provider, model.ModelIdentifier, model.IsDefault, model.Active}

	// Postgres supports RETURNING; sqlite reports the row ID on the result.
	if s.dialect == "postgres" {
		err := tx.QueryRowContext(ctx, s.rebind(insertSQL)+` RETURNING id`, args...).
			Scan(&model.ID)
		if err != nil {
			return fmt.Errorf("failed to save model: %w", err)
		}
		return tx.Commit()
	}

	result, err := tx.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to save model: %w", err)
	}
	if model.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read new model id: %w", err)
	}

	return tx.Commit()
}

// rebind converts ? placeholders to $N for postgres.
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
