package notestore

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/levelworks/levelnotes/internal/apperr"
	"github.com/levelworks/levelnotes/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "levelnotes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func strptr(s string) *string { return &s }

func intptr(i int) *int { return &i }

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes`).Scan(&count); err != nil {
		t.Fatalf("notes table missing: %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	db := testDB(t)
	n := models.Note{
		ID:          "note-1",
		CreatedAt:   Timestamp(time.Now()),
		Title:       "Hello World",
		Plaintext:   strptr("Hello world body"),
		HTML:        strptr("<p>Hello world body</p>"),
		SourceURL:   strptr("https://example.com/article"),
		TextQuote:   strptr("Hello world body"),
		PreviewPath: strptr("previews/note-1.png"),
		Tags:        []string{"web", "go"},
		PageNumber:  intptr(3),
		Highlights:  []models.Rect{{X: 1, Y: 2, W: 30, H: 40}},
	}
	if err := db.Create(n); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := db.Get("note-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Hello World" {
		t.Errorf("title = %q, want %q", got.Title, "Hello World")
	}
	if got.Plaintext == nil || *got.Plaintext != "Hello world body" {
		t.Errorf("plaintext = %v, want %q", got.Plaintext, "Hello world body")
	}
	if got.SourceURL == nil || *got.SourceURL != "https://example.com/article" {
		t.Errorf("source_url = %v", got.SourceURL)
	}
	if got.TextQuote == nil || *got.TextQuote != "Hello world body" {
		t.Errorf("text_quote = %v", got.TextQuote)
	}
	if got.PreviewPath == nil || *got.PreviewPath != "previews/note-1.png" {
		t.Errorf("preview_path = %v", got.PreviewPath)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "go" || got.Tags[1] != "web" {
		t.Errorf("tags = %v, want sorted [go web]", got.Tags)
	}
	if got.PageNumber == nil || *got.PageNumber != 3 {
		t.Errorf("page_number = %v, want 3", got.PageNumber)
	}
	if len(got.Highlights) != 1 || got.Highlights[0].W != 30 {
		t.Errorf("highlights = %+v", got.Highlights)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.Get("missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAppend_GrowsTextAndTags(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{
		ID:        "a1",
		CreatedAt: Timestamp(time.Now()),
		Title:     "Hello world",
		Plaintext: strptr("Hello world"),
		Tags:      []string{},
	})

	if err := db.Append("a1", "More info", "", []string{"ml"}, nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := db.Get("a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Plaintext == nil || *got.Plaintext != "Hello world\n\nMore info" {
		t.Errorf("plaintext = %v, want appended with blank line", got.Plaintext)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "ml" {
		t.Errorf("tags = %v, want [ml]", got.Tags)
	}
}

func TestAppend_PreviewFirstWriteWins(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{
		ID:          "p1",
		CreatedAt:   Timestamp(time.Now()),
		Title:       "P",
		PreviewPath: strptr("previews/p1.png"),
		Tags:        []string{},
	})

	if err := db.Append("p1", "x", "", nil, strptr("previews/other.png")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, _ := db.Get("p1")
	if got.PreviewPath == nil || *got.PreviewPath != "previews/p1.png" {
		t.Errorf("preview_path = %v, want original kept", got.PreviewPath)
	}

	// A note without a preview accepts the first candidate.
	_ = db.Create(models.Note{ID: "p2", CreatedAt: Timestamp(time.Now()), Title: "P2", Tags: []string{}})
	if err := db.Append("p2", "x", "", nil, strptr("previews/p2.png")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, _ = db.Get("p2")
	if got.PreviewPath == nil || *got.PreviewPath != "previews/p2.png" {
		t.Errorf("preview_path = %v, want previews/p2.png", got.PreviewPath)
	}
}

func TestAppend_DoesNotTouchFrozenFields(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{
		ID:         "f1",
		CreatedAt:  Timestamp(time.Now()),
		Title:      "Frozen",
		Plaintext:  strptr("body"),
		TextQuote:  strptr("body"),
		PageNumber: intptr(7),
		Highlights: []models.Rect{{X: 1, Y: 1, W: 1, H: 1}},
		Tags:       []string{},
	})

	if err := db.Append("f1", "more", "", nil, nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, _ := db.Get("f1")
	if got.Title != "Frozen" {
		t.Errorf("title changed to %q", got.Title)
	}
	if got.TextQuote == nil || *got.TextQuote != "body" {
		t.Errorf("text_quote = %v, want the creation snapshot", got.TextQuote)
	}
	if got.PageNumber == nil || *got.PageNumber != 7 {
		t.Errorf("page_number = %v", got.PageNumber)
	}
	if len(got.Highlights) != 1 {
		t.Errorf("highlights = %+v", got.Highlights)
	}
}

func TestAppend_NotFound(t *testing.T) {
	db := testDB(t)
	err := db.Append("missing", "text", "", nil, nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateMetadata(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{
		ID:        "m1",
		CreatedAt: Timestamp(time.Now()),
		Title:     "Old title",
		Tags:      []string{"ml"},
	})

	if err := db.UpdateMetadata("m1", strptr("New title"), []string{"ml", "ai"}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	got, _ := db.Get("m1")
	if got.Title != "New title" {
		t.Errorf("title = %q", got.Title)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "ai" || got.Tags[1] != "ml" {
		t.Errorf("tags = %v, want sorted union [ai ml]", got.Tags)
	}

	// Nil title leaves the existing one intact.
	if err := db.UpdateMetadata("m1", nil, []string{"nlp"}); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}
	got, _ = db.Get("m1")
	if got.Title != "New title" {
		t.Errorf("title = %q, want unchanged", got.Title)
	}
	if len(got.Tags) != 3 {
		t.Errorf("tags = %v, want 3 entries", got.Tags)
	}
}

func TestUpdateMetadata_NotFound(t *testing.T) {
	db := testDB(t)
	err := db.UpdateMetadata("missing", strptr("x"), nil)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{ID: "d1", CreatedAt: Timestamp(time.Now()), Title: "D", Tags: []string{}})

	affected, err := db.Delete("d1")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if affected != 1 {
		t.Errorf("affected = %d, want 1", affected)
	}
	if _, err := db.Get("d1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("note still present after delete")
	}

	affected, err = db.Delete("d1")
	if err != nil {
		t.Fatalf("Delete again: %v", err)
	}
	if affected != 0 {
		t.Errorf("affected = %d, want 0 for missing id", affected)
	}
}

func TestListRecent_OrderAndLimit(t *testing.T) {
	db := testDB(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = db.Create(models.Note{
			ID:        fmt.Sprintf("n%d", i),
			CreatedAt: Timestamp(base.Add(time.Duration(i) * time.Second)),
			Title:     fmt.Sprintf("Note %d", i),
			Tags:      []string{},
		})
	}

	notes, err := db.ListRecent(3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(notes) != 3 {
		t.Fatalf("len = %d, want 3", len(notes))
	}
	if notes[0].ID != "n4" || notes[1].ID != "n3" || notes[2].ID != "n2" {
		t.Errorf("order = %s,%s,%s, want newest first", notes[0].ID, notes[1].ID, notes[2].ID)
	}
}

func TestPreviewRefsAndClearPreview(t *testing.T) {
	db := testDB(t)
	_ = db.Create(models.Note{ID: "r1", CreatedAt: Timestamp(time.Now()), Title: "R1",
		PreviewPath: strptr("previews/r1.png"), Tags: []string{}})
	_ = db.Create(models.Note{ID: "r2", CreatedAt: Timestamp(time.Now()), Title: "R2", Tags: []string{}})

	refs, err := db.PreviewRefs()
	if err != nil {
		t.Fatalf("PreviewRefs: %v", err)
	}
	if len(refs) != 1 || refs["r1"] != "previews/r1.png" {
		t.Errorf("refs = %v", refs)
	}

	ids, err := db.ClearPreview("previews/r1.png")
	if err != nil {
		t.Fatalf("ClearPreview: %v", err)
	}
	if len(ids) != 1 || ids[0] != "r1" {
		t.Errorf("cleared ids = %v, want [r1]", ids)
	}
	got, _ := db.Get("r1")
	if got.PreviewPath != nil {
		t.Errorf("preview_path = %v, want nil after clear", got.PreviewPath)
	}

	ids, err = db.ClearPreview("previews/unknown.png")
	if err != nil {
		t.Fatalf("ClearPreview unknown: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("cleared ids = %v, want none", ids)
	}
}

func TestTimestamp_Sortable(t *testing.T) {
	earlier := Timestamp(time.Date(2026, 3, 1, 10, 0, 0, 5, time.UTC))
	later := Timestamp(time.Date(2026, 3, 1, 10, 0, 0, 100, time.UTC))
	if !(earlier < later) {
		t.Errorf("timestamps do not sort chronologically: %q vs %q", earlier, later)
	}
}
