//go:build sqlite_fts5

package notestore

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/levelworks/levelnotes/internal/models"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			id UNINDEXED,
			title,
			plaintext,
			html,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

// ftsUpsert replaces the FTS entry for a note: delete-then-reinsert, never
// a partial patch, so stale postings cannot survive an update.
func ftsUpsert(tx *sql.Tx, id, title, plaintext, html string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
	_, err := tx.Exec(`INSERT INTO notes_fts (id, title, plaintext, html, tags) VALUES (?, ?, ?, ?, ?)`,
		id, title, plaintext, html, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("notestore: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, id string) {
	_, _ = tx.Exec(`DELETE FROM notes_fts WHERE id = ?`, id)
}

// ftsQuery quotes each whitespace-separated token so captured text with
// FTS5 operator characters (-, :, quotes) is always a valid query. Tokens
// combine with the implicit AND.
func ftsQuery(q string) string {
	fields := strings.Fields(q)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " ")
}

// Search performs an FTS5 full-text search ranked by relevance, ties
// broken by recency.
func (db *DB) Search(query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.Query(`
		SELECT `+qualifiedNoteColumns+`
		FROM notes n JOIN notes_fts f ON f.id = n.id
		WHERE notes_fts MATCH ?
		ORDER BY rank, n.created_at DESC
		LIMIT ?
	`, ftsQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("notestore: search: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}
