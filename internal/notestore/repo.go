package notestore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/levelworks/levelnotes/internal/apperr"
	"github.com/levelworks/levelnotes/internal/merge"
	"github.com/levelworks/levelnotes/internal/models"
)

// timeLayout keeps fractional seconds fixed-width so created_at strings
// sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp formats t as the canonical created_at string.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

const noteColumns = `id, created_at, title, plaintext, html, source_url, text_quote, preview_path, tags, page_number, highlights`

const qualifiedNoteColumns = `n.id, n.created_at, n.title, n.plaintext, n.html, n.source_url, n.text_quote, n.preview_path, n.tags, n.page_number, n.highlights`

// Create inserts a new note and its FTS entry within a transaction.
func (db *DB) Create(n models.Note) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tags := merge.Tags(nil, n.Tags)
	tagsJSON := encodeTags(tags)
	highlightsJSON, _ := json.Marshal(nonNilRects(n.Highlights))

	_, err = tx.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.CreatedAt, n.Title, n.Plaintext, n.HTML, n.SourceURL, n.TextQuote,
		n.PreviewPath, tagsJSON, n.PageNumber, string(highlightsJSON))
	if err != nil {
		return fmt.Errorf("notestore: insert note: %w", err)
	}

	// FTS upsert (no-op when the sqlite_fts5 tag is absent).
	if err := ftsUpsert(tx, n.ID, n.Title, deref(n.Plaintext), deref(n.HTML), tags); err != nil {
		return err
	}

	return tx.Commit()
}

// Get returns the note with the given id, or apperr.ErrNotFound.
func (db *DB) Get(id string) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id)
	n, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("notestore: get note: %w", err)
	}
	return n, nil
}

// ListRecent returns notes ordered by created_at descending, capped at limit.
func (db *DB) ListRecent(limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+`
		FROM notes
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("notestore: list recent: %w", err)
	}
	defer rows.Close()
	return collectNotes(rows)
}

// Append grows a note's plaintext, html, and tags via the merge engine and
// applies the first-write-wins preview rule, re-syncing the FTS entry in
// the same transaction. Fields fixed at creation (title, source_url,
// text_quote, page_number, highlights) are untouched.
func (db *DB) Append(id, addText, addHTML string, addTags []string, previewCandidate *string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		title     string
		plaintext sql.NullString
		html      sql.NullString
		tagsJSON  string
		preview   sql.NullString
	)
	err = tx.QueryRow(`SELECT title, plaintext, html, tags, preview_path FROM notes WHERE id = ?`, id).
		Scan(&title, &plaintext, &html, &tagsJSON, &preview)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("notestore: load for append: %w", err)
	}

	newText := merge.Text(nullable(plaintext), addText)
	newHTML := merge.Text(nullable(html), addHTML)
	newTags := merge.Tags(decodeTags(tagsJSON), addTags)
	newPreview := merge.FirstWrite(nullable(preview), previewCandidate)

	_, err = tx.Exec(`
		UPDATE notes
		SET plaintext = ?, html = ?, tags = ?, preview_path = ?
		WHERE id = ?
	`, newText, newHTML, encodeTags(newTags), newPreview, id)
	if err != nil {
		return fmt.Errorf("notestore: append note: %w", err)
	}

	if err := ftsUpsert(tx, id, title, newText, newHTML, newTags); err != nil {
		return err
	}

	return tx.Commit()
}

// UpdateMetadata replaces the title when provided and unions tags, keeping
// the FTS entry in sync within the same transaction.
func (db *DB) UpdateMetadata(id string, title *string, tags []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		curTitle  string
		plaintext sql.NullString
		html      sql.NullString
		tagsJSON  string
	)
	err = tx.QueryRow(`SELECT title, plaintext, html, tags FROM notes WHERE id = ?`, id).
		Scan(&curTitle, &plaintext, &html, &tagsJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.ErrNotFound
		}
		return fmt.Errorf("notestore: load for update: %w", err)
	}

	newTitle := curTitle
	if title != nil {
		newTitle = *title
	}
	newTags := merge.Tags(decodeTags(tagsJSON), tags)

	_, err = tx.Exec(`UPDATE notes SET title = ?, tags = ? WHERE id = ?`,
		newTitle, encodeTags(newTags), id)
	if err != nil {
		return fmt.Errorf("notestore: update metadata: %w", err)
	}

	if err := ftsUpsert(tx, id, newTitle, plaintext.String, html.String, newTags); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a note and its FTS entry atomically. Deleting a missing
// id is not an error: affected is 0.
func (db *DB) Delete(id string) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("notestore: delete note: %w", err)
	}
	affected, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

// PreviewRefs returns id → preview locator for every note with a preview.
func (db *DB) PreviewRefs() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT id, preview_path FROM notes WHERE preview_path IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("notestore: preview refs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, rel string
		if err := rows.Scan(&id, &rel); err != nil {
			return nil, err
		}
		out[id] = rel
	}
	return out, rows.Err()
}

// ClearPreview nulls preview_path on every note referencing the given
// locator and returns the ids that were cleared. The preview locator is
// not an indexed field, so no FTS change is needed.
func (db *DB) ClearPreview(rel string) ([]string, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("notestore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.Query(`SELECT id FROM notes WHERE preview_path = ?`, rel)
	if err != nil {
		return nil, fmt.Errorf("notestore: find preview refs: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.Exec(`UPDATE notes SET preview_path = NULL WHERE preview_path = ?`, rel); err != nil {
		return nil, fmt.Errorf("notestore: clear preview: %w", err)
	}
	return ids, tx.Commit()
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (*models.Note, error) {
	var (
		n              models.Note
		plaintext      sql.NullString
		html           sql.NullString
		sourceURL      sql.NullString
		textQuote      sql.NullString
		previewPath    sql.NullString
		tagsJSON       string
		pageNumber     sql.NullInt64
		highlightsJSON string
	)
	if err := r.Scan(&n.ID, &n.CreatedAt, &n.Title, &plaintext, &html, &sourceURL,
		&textQuote, &previewPath, &tagsJSON, &pageNumber, &highlightsJSON); err != nil {
		return nil, err
	}
	n.Plaintext = nullable(plaintext)
	n.HTML = nullable(html)
	n.SourceURL = nullable(sourceURL)
	n.TextQuote = nullable(textQuote)
	n.PreviewPath = nullable(previewPath)
	n.Tags = decodeTags(tagsJSON)
	if pageNumber.Valid {
		p := int(pageNumber.Int64)
		n.PageNumber = &p
	}
	n.Highlights = decodeHighlights(highlightsJSON)
	return &n, nil
}

func collectNotes(rows *sql.Rows) ([]models.Note, error) {
	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func decodeTags(tagsJSON string) []string {
	var tags []string
	if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}

func decodeHighlights(highlightsJSON string) []models.Rect {
	var hs []models.Rect
	if err := json.Unmarshal([]byte(highlightsJSON), &hs); err != nil || hs == nil {
		return []models.Rect{}
	}
	return hs
}

func nonNilRects(hs []models.Rect) []models.Rect {
	if hs == nil {
		return []models.Rect{}
	}
	return hs
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
