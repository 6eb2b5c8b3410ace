package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists credentials and applies analysis results to them.
type Store interface {
	Create(ctx context.Context, cred *Credential) error
	Get(ctx context.Context, id int64) (*Credential, error)
	ListExpiringSoon(ctx context.Context, now time.Time) ([]*Credential, error)
	UpdateAnalysis(ctx context.Context, id int64, result *AnalysisResult) error
}

// SQLStore stores credentials in a SQL database. Supported dialects: sqlite,
// postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

const (
	createCredentialsTableSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id BIGINT NOT NULL,
    title VARCHAR(255) NOT NULL,
    notes TEXT,
    start_date TIMESTAMP,
    end_date TIMESTAMP,
    status VARCHAR(50) NOT NULL DEFAULT 'pending',
    file_blob_id VARCHAR(255),
    file_content_type VARCHAR(255),
    ai_extracted_json TEXT,
    ai_processed BOOLEAN NOT NULL DEFAULT FALSE,
    ai_processed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

	createCredentialsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS credentials (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    title VARCHAR(255) NOT NULL,
    notes TEXT,
    start_date TIMESTAMP,
    end_date TIMESTAMP,
    status VARCHAR(50) NOT NULL DEFAULT 'pending',
    file_blob_id VARCHAR(255),
    file_content_type VARCHAR(255),
    ai_extracted_json TEXT,
    ai_processed BOOLEAN NOT NULL DEFAULT FALSE,
    ai_processed_at TIMESTAMP,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

	credentialColumns = `id, user_id, title, notes, start_date, end_date, status,
        file_blob_id, file_content_type, ai_extracted_json, ai_processed, ai_processed_at,
        created_at, updated_at`
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

	s := &SQLStore{db: db, dialect: dialect, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize credentials schema: %w", err)
	}

	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := createCredentialsTableSQL
	if s.dialect == "postgres" {
		schema = createCredentialsTablePostgresSQL
	}
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLStore) Create(ctx context.Context, cred *Credential) error {
	if cred.Title == "" {
		return fmt.Errorf("title is required")
	}
	if cred.Status == "" {
		cred.Status = StatusPending
	}

	now := s.now()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	extractedJSON, err := marshalExtracted(cred.AIExtractedJSON)
	if err != nil {
		return err
	}

	insertSQL := `INSERT INTO credentials
                  (user_id, title, notes, start_date, end_date, status,
                   file_blob_id, file_content_type, ai_extracted_json, ai_processed, ai_processed_at,
                   created_at, updated_at)
                  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := []any{
		cred.UserID, cred.Title, cred.Notes, nullTime(cred.StartDate), nullTime(cred.EndDate),
		string(cred.Status), nullString(cred.FileBlobID), nullString(cred.FileContentType),
		extractedJSON, cred.AIProcessed, nullTime(cred.AIProcessedAt),
		cred.CreatedAt, cred.UpdatedAt,
	}

	// Postgres supports RETURNING; sqlite reports the row ID on the result.
	if s.dialect == "postgres" {
		err := s.db.QueryRowContext(ctx,
			s.rebind(insertSQL)+` RETURNING id`, args...).Scan(&cred.ID)
		if err != nil {
			return fmt.Errorf("failed to create credential: %w", err)
		}
		return nil
	}

	result, err := s.db.ExecContext(ctx, insertSQL, args...)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}
	if cred.ID, err = result.LastInsertId(); err != nil {
		return fmt.Errorf("failed to read new credential id: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (*Credential, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+credentialColumns+` FROM credentials WHERE id = ?`), id)

	cred, err := scanCredential(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("credential %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credential %d: %w", id, err)
	}
	return cred, nil
}

// ListExpiringSoon returns credentials whose end date falls inside the
// expiring-soon window, soonest first.
func (s *SQLStore) ListExpiringSoon(ctx context.Context, now time.Time) ([]*Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT `+credentialColumns+` FROM credentials
                  WHERE end_date > ? AND end_date <= ?
                  ORDER BY end_date ASC`),
		now, now.Add(ExpiringSoonWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring credentials: %w", err)
	}
	defer rows.Close()

	var results []*Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		results = append(results, cred)
	}
	return results, rows.Err()
}

// UpdateAnalysis writes an analysis result onto the credential. A blank
// extracted title keeps the existing one, unparseable dates persist as NULL,
// and the full result is kept as the extracted-JSON document. The lifecycle
// status is re-derived from the new end date.
func (s *SQLStore) UpdateAnalysis(ctx context.Context, id int64, result *AnalysisResult) error {
	cred, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	title := cred.Title
	if result.Title != nil && *result.Title != "" {
		title = *result.Title
	}

	startDate := parseLenientDate(result.StartDate)
	endDate := parseLenientDate(result.EndDate)

	extracted, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize analysis result: %w", err)
	}

	now := s.now()
	cred.Title = title
	cred.StartDate = startDate
	cred.EndDate = endDate
	status := cred.StatusForExpiration(now)

	_, err = s.db.ExecContext(ctx,
		s.rebind(`UPDATE credentials
                  SET title = ?, start_date = ?, end_date = ?, status = ?,
                      ai_extracted_json = ?, ai_processed = TRUE, ai_processed_at = ?, updated_at = ?
                  WHERE id = ?`),
		title, nullTime(startDate), nullTime(endDate), string(status),
		string(extracted), now, now, id)
	if err != nil {
		return fmt.Errorf("failed to persist analysis for credential %d: %w", id, err)
	}
	return nil
}

// parseLenientDate parses a free-form date string, returning nil rather than
// an error when the value is missing or unparseable.
func parseLenientDate(value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}
	parsed, err := dateparse.ParseAny(*value)
	if err != nil {
		return nil
	}
	return &parsed
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*Credential, error) {
	cred := &Credential{}
	var notes, fileBlobID, fileContentType, extractedJSON sql.NullString
	var startDate, endDate, processedAt sql.NullTime
	var status string

	err := row.Scan(&cred.ID, &cred.UserID, &cred.Title, &notes, &startDate, &endDate, &status,
		&fileBlobID, &fileContentType, &extractedJSON, &cred.AIProcessed, &processedAt,
		&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, err
	}

	cred.Notes = notes.String
	cred.FileBlobID = fileBlobID.String
	cred.FileContentType = fileContentType.String
	cred.Status = Status(status)
	cred.StartDate = timePtr(startDate)
	cred.EndDate = timePtr(endDate)
	cred.AIProcessedAt = timePtr(processedAt)

	if extractedJSON.Valid && extractedJSON.String != "" {
		if err := json.Unmarshal([]byte(extractedJSON.String), &cred.AIExtractedJSON); err != nil {
			return nil, fmt.Errorf("failed to decode extracted JSON for credential %d: %w", cred.ID, err)
		}
	}
	return cred, nil
}

func marshalExtracted(m map[string]any) (sql.NullString, error) {
	if m == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to serialize extracted JSON: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	value := t.Time
	return &value
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
