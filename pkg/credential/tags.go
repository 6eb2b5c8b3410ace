package credential

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// TagColors is the rotating palette assigned to newly created tags.
var TagColors = []string{
	"#EF4444", // red-500
	"#F59E0B", // amber-500
	"#10B981", // emerald-500
	"#3B82F6", // blue-500
	"#8B5CF6", // violet-500
	"#EC4899", // pink-500
	"#06B6D4", // cyan-500
	"#84CC16", // lime-500
}

// Tag is a classification label for credentials. Names are stored
// lowercase-trimmed so lookups are case-insensitive.
type Tag struct {
	ID        int64
	Name      string
	Color     string
	IsDefault bool
}

// TagStore finds or creates tags and associates them with credentials.
type TagStore interface {
	FindOrCreate(ctx context.Context, name string) (*Tag, error)
	Attach(ctx context.Context, credentialID, tagID int64) error
	TagsFor(ctx context.Context, credentialID int64) ([]*Tag, error)
}

// SQLTagStore persists tags and the credential-tag association table.
type SQLTagStore struct {
	db      *sql.DB
	dialect string
}

const (
	createTagsTableSQL = `
CREATE TABLE IF NOT EXISTS tags (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name VARCHAR(50) NOT NULL UNIQUE,
    color VARCHAR(7) NOT NULL,
    is_default BOOLEAN NOT NULL DEFAULT FALSE
);
`

	createTagsTablePostgresSQL = `
CREATE TABLE IF NOT EXISTS tags (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(50) NOT NULL UNIQUE,
    color VARCHAR(7) NOT NULL,
    is_default BOOLEAN NOT NULL DEFAULT FALSE
);
`

	createCredentialTagsTableSQL = `
CREATE TABLE IF NOT EXISTS credential_tags (
    credential_id BIGINT NOT NULL,
    tag_id BIGINT NOT NULL,
    PRIMARY KEY (credential_id, tag_id)
);
`
)

func NewSQLTagStore(db *sql.DB, dialect string) (*SQLTagStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	switch dialect {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported dialect: %s (supported: postgres, sqlite)", dialect)
	}

	s := &SQLTagStore{db: db, dialect: dialect}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize tags schema: %w", err)
	}

	return s, nil
}

func (s *SQLTagStore) initSchema() error {
	tagsSQL := createTagsTableSQL
	if s.dialect == "postgres" {
		tagsSQL = createTagsTablePostgresSQL
	}
	if _, err := s.db.Exec(tagsSQL); err != nil {
		return err
	}
	_, err := s.db.Exec(createCredentialTagsTableSQL)
	return err
}

// NormalizeTagName lowercases and trims a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FindOrCreate looks up a tag by normalized name, creating it with the next
// palette color when it does not exist yet.
func (s *SQLTagStore) FindOrCreate(ctx context.Context, name string) (*Tag, error) {
	normalized := NormalizeTagName(name)
	if normalized == "" {
		return nil, fmt.Errorf("tag name is required")
	}

	tag := &Tag{}
	err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, name, color, is_default FROM tags WHERE name = ?`), normalized).
		Scan(&tag.ID, &tag.Name, &tag.Color, &tag.IsDefault)
	if err == nil {
		return tag, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to look up tag %s: %w", normalized, err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	color := TagColors[count%len(TagColors)]

	tag.Name = normalized
	tag.Color = color

	// Postgres supports RETURNING; sqlite reports the row ID on the result.
	if s.dialect == "postgres" {
		err := s.db.QueryRowContext(ctx,
			`INSERT INTO tags (name, color, is_default) VALUES ($1, $2, FALSE) RETURNING id`,
			normalized, color).Scan(&tag.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create tag %s: %w", normalized, err)
		}
		return tag, nil
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tags (name, color, is_default) VALUES (?, ?, FALSE)`,
		normalized, color)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag %s: %w", normalized, err)
	}
	if tag.ID, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read new tag id: %w", err)
	}
	return tag, nil
}

// Attach associates a tag with a credential. Attaching an already-associated
// tag is a no-op.
func (s *SQLTagStore) Attach(ctx context.Context, credentialID, tagID int64) error {
	_, err := s.db.ExecContext(ctx,
		s.rebind(`INSERT INTO credential_tags (credential_id, tag_id) VALUES (?, ?)
                  ON CONFLICT (credential_id, tag_id) DO NOTHING`),
		credentialID, tagID)
	if err != nil {
		return fmt.Errorf("failed to attach tag %d to credential %d: %w", tagID, credentialID, err)
	}
	return nil
}

func (s *SQLTagStore) TagsFor(ctx context.Context, credentialID int64) ([]*Tag, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind(`SELECT t.id, t.name, t.color, t.is_default
                  FROM tags t
                  JOIN credential_tags ct ON ct.tag_id = t.id
                  WHERE ct.credential_id = ?
                  ORDER BY t.name ASC`), credentialID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags for credential %d: %w", credentialID, err)
	}
	defer rows.Close()

	var tags []*Tag
	for rows.Next() {
		tag := &Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Color, &tag.IsDefault); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *SQLTagStore) rebind(query string) string {
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
