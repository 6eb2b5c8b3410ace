package embedding

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists embeddings. Implementations must return records with their
// vectors and metadata fully decoded.
type Store interface {
	Save(ctx context.Context, emb *Embedding) error
	List(ctx context.Context, filters map[string]any) ([]*Embedding, error)
	DeleteBySource(ctx context.Context, sourceType string, sourceID int64) error
}

// SQLStore stores embeddings in a SQL database. Vectors and metadata are
// serialized as JSON text so the store works identically on sqlite and
// postgres without a vector extension.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

const (
	createEmbeddingsTableSQL = `
CREATE TABLE IF NOT EXISTS ai_embeddings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    vector TEXT NOT NULL,
    dim INTEGER NOT NULL,
    source_type VARCHAR(255),
    source_id BIGINT,
    chunk_id VARCHAR(255),
    metadata TEXT,
    cost_cents INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
`

	createEmbeddingsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS ai_embeddings (
    id BIGSERIAL PRIMARY KEY,
    provider VARCHAR(50) NOT NULL,
    model VARCHAR(255) NOT NULL,
    vector TEXT NOT NULL,
    dim INTEGER NOT NULL,
    source_type VARCHAR(255),
    source_id BIGINT,
    chunk_id VARCHAR(255),
    metadata TEXT,
    cost_cents INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
);
`
)

// columnFilters are filter keys that map directly to table columns; every
// other key is matched against the metadata document.
var columnFilters = map[string]string{
	"provider":    "provider",
	"model":       "model",
	"source_type": "source_type",
	"source_id":   "source_id",
	"chunk_id":    "chunk_id",
}

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
		return nil, fmt.Errorf("failed to initialize embeddings schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := createEmbeddingsTableSQL
	if s.dialect == "postgres" {
		schema = createEmbeddingsTablePostgresSQL
	}
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Save(ctx context.Context, emb *Embedding) error {
	if err := emb.Validate(); err != nil {
		return fmt.Errorf("invalid embedding: %w", err)
	}

	vectorJSON, err := json.Marshal(emb.Vector)
	if err != nil {
		return fmt.Errorf("failed to serialize vector: %w", err)
	}

	var metadataJSON []byte
	if emb.Metadata != nil {
		metadataJSON, err = json.Marshal(emb.Metadata)
		if err != nil {
			return fmt.Errorf("failed to serialize metadata: %w", err)
		}
	}

	var sourceType sql.NullString
	var sourceID sql.NullInt64
	if emb.Source != nil {
		sourceType = sql.NullString{String: emb.Source.Type, Valid: true}
		sourceID = sql.NullInt64{Int64: emb.Source.ID, Valid: true}
	}

	if emb.CreatedAt.IsZero() {
		emb.CreatedAt = time.Now()
	}

	insertSQL := `INSERT INTO ai_embeddings
                  (provider, model, vector, dim, source_type, source_id, chunk_id, metadata, cost_cents, created_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		emb.Provider, emb.Model, string(vectorJSON), emb.Dim,
		sourceType, sourceID, nullIfEmpty(emb.ChunkID), nullBytes(metadataJSON),
		emb.CostCents, emb.CreatedAt,
	}

	// Postgres supports RETURNING; sqlite reports the row ID on the result.
	if s.dialect == "postgres" {
		err := s.db.QueryRowContext(ctx,
			s.rebind(insertSQL)+` RETURNING id`, args...).Scan(&emb.ID)
		if err != nil {
			return fmt.Errorf("failed to save embedding: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}
	if emb.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read new embedding id: %w", err)
	}
	return nil
}

// List returns embeddings matching the given exact-match filters. Keys that
// name a column filter on the column; all other keys filter on metadata after
// decoding, so callers can narrow by arbitrary metadata entries.
func (s *SQLStore) List(ctx context.Context, filters map[string]any) ([]*Embedding, error) {
	query := `SELECT id, provider, model, vector, dim, source_type, source_id, chunk_id, metadata, cost_cents, created_at
              FROM ai_embeddings`

	var args []any
	metadataFilters := map[string]any{}
	where := ""
	for key, value := range filters {
		column, ok := columnFilters[key]
		if !ok {
			metadataFilters[key] = value
			continue
		}
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += column + " = ?"
		args = append(args, value)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query+where+" ORDER BY id ASC"), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}
	defer rows.Close()

	var results []*Embedding
	for rows.Next() {
		emb, err := scanEmbedding(rows)
		if err != nil {
			return nil, err
		}
		if matchesMetadata(emb.Metadata, metadataFilters) {
			results = append(results, emb)
		}
	}
	return results, rows.Err()
}

// DeleteBySource removes every embedding derived from the given record. Used
// when a source record is destroyed or its file is replaced.
func (s *SQLStore) DeleteBySource(ctx context.Context, sourceType string, sourceID int64) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`DELETE FROM ai_embeddings WHERE source_type = ? AND source_id = ?`),
		sourceType, sourceID)
	if err != nil {
		return fmt.Errorf("failed to delete embeddings for %s/%d: %w", sourceType, sourceID, err)
	}
	return nil
}

func scanEmbedding(rows *sql.Rows) (*Embedding, error) {
	emb := &Embedding{}
	var vectorJSON string
	var metadataJSON, chunkID, sourceType sql.NullString
	var sourceID sql.NullInt64

	err := rows.Scan(&emb.ID, &emb.Provider, &emb.Model, &vectorJSON, &emb.Dim,
		&sourceType, &sourceID, &chunkID, &metadataJSON, &emb.CostCents, &emb.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan embedding: %w", err)
	}

	if err := json.Unmarshal([]byte(vectorJSON), &emb.Vector); err != nil {
		return nil, fmt.Errorf("failed to decode vector for embedding %d: %w", emb.ID, err)
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &emb.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata for embedding %d: %w", emb.ID, err)
		}
	}
	if sourceType.Valid {
		emb.Source = &SourceRef{Type: sourceType.String, ID: sourceID.Int64}
	}
	emb.ChunkID = chunkID.String

	return emb, nil
}

// matchesMetadata reports whether every filter entry has an equal value in the
// metadata map. Comparison goes through JSON so numeric types compare by
// value rather than by Go type.
func matchesMetadata(metadata map[string]any, filters map[string]any) bool {
	if len(filters) == 0 {
		return true
	}
	for key, want := range filters {
		got, ok := metadata[key]
		if !ok {
			return false
		}
		wantJSON, err := json.Marshal(want)
		if err != nil {
			return false
		}
		gotJSON, err := json.Marshal(got)
		if err != nil {
			return false
		}
		if string(wantJSON) != string(gotJSON) {
			return false
		}
	}
	return true
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
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
