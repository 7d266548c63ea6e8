// Package notestore provides the SQLite-backed note repository with a
// full-text index kept transactionally consistent with every row mutation.
// FTS5 is used when built with the sqlite_fts5 tag; otherwise search falls
// back to LIKE matching on the notes table.
package notestore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/levelworks/levelnotes/internal/models"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	id           TEXT PRIMARY KEY,
	created_at   TEXT NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	plaintext    TEXT,
	html         TEXT,
	source_url   TEXT,
	text_quote   TEXT,
	preview_path TEXT,
	tags         TEXT NOT NULL DEFAULT '[]',
	page_number  INTEGER,
	highlights   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_notes_created_at ON notes(created_at DESC);
`

// Store defines the interface for note repository operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	Create(n models.Note) error
	Get(id string) (*models.Note, error)
	ListRecent(limit int) ([]models.Note, error)
	Append(id, addText, addHTML string, addTags []string, previewCandidate *string) error
	UpdateMetadata(id string, title *string, tags []string) error
	Delete(id string) (int64, error)
	Search(query string, limit int) ([]models.Note, error)
	PreviewRefs() (map[string]string, error)
	ClearPreview(rel string) ([]string, error)
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with note repository operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("notestore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notestore: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
