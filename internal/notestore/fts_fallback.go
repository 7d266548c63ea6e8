//go:build !sqlite_fts5

package notestore

import (
	"database/sql"
	"fmt"

	"github.com/levelworks/levelnotes/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search falls back to LIKE matching on the
	// notes table columns.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string, _ []string) error {
	// Indexed fields already live in the notes table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled
// in), ordered by recency.
func (db *DB) Search(query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 100
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+`
		FROM notes
		WHERE title LIKE ? OR plaintext LIKE ? OR html LIKE ? OR tags LIKE ?
		ORDER BY created_at DESC
		LIMIT ?
	`, like, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("notestore: search: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}
