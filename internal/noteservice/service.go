// Package noteservice coordinates the note repository, the preview blob
// store, and the merge rules behind the capture/append/query operations.
package noteservice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/levelworks/levelnotes/internal/apperr"
	"github.com/levelworks/levelnotes/internal/blob"
	"github.com/levelworks/levelnotes/internal/export"
	"github.com/levelworks/levelnotes/internal/models"
	"github.com/levelworks/levelnotes/internal/notestore"
)

const (
	// PlaceholderTitle is used when a capture carries no selection text.
	PlaceholderTitle = "Untitled clip"

	titleRunes   = 80
	snippetRunes = 160

	listLimit   = 200
	searchLimit = 100
)

// Source describes where a clip was captured from.
type Source struct {
	Kind string  `json:"kind"`
	URL  *string `json:"url"`
	DOI  *string `json:"doi"`
}

// Selection carries the captured text and markup.
type Selection struct {
	Text *string `json:"text"`
	HTML *string `json:"html"`
}

// Media carries the optional screenshot preview as a base64 data URL.
type Media struct {
	ScreenshotDataURL *string `json:"screenshotDataUrl"`
}

// Ops carries capture options: tags, page number, highlight rectangles.
type Ops struct {
	Summarize  *bool         `json:"summarize"`
	Tags       []string      `json:"tags"`
	Page       *int          `json:"page"`
	Highlights []models.Rect `json:"highlights"`
}

// CaptureInput is the structured record accepted by Capture and Append.
// All sections are optional.
type CaptureInput struct {
	Source    *Source    `json:"source"`
	Selection *Selection `json:"selection"`
	Media     *Media     `json:"media"`
	Ops       *Ops       `json:"ops"`
}

// NoteSummary is a lightweight item in list and search responses.
type NoteSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	CreatedAt   string   `json:"created_at"`
	SourceURL   *string  `json:"source_url"`
	Tags        []string `json:"tags"`
	Snippet     *string  `json:"snippet"`
	PreviewPath *string  `json:"preview_path"`
}

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	ID          string        `json:"id"`
	CreatedAt   string        `json:"created_at"`
	Title       string        `json:"title"`
	Plaintext   *string       `json:"plaintext"`
	HTML        *string       `json:"html"`
	SourceURL   *string       `json:"source_url"`
	TextQuote   *string       `json:"text_quote"`
	Tags        []string      `json:"tags"`
	PreviewPath *string       `json:"preview_path"`
	PageNumber  *int          `json:"page_number"`
	Highlights  []models.Rect `json:"highlights"`
}

// NotFoundDetail is the sentinel record returned for a missing id, so
// detail callers always receive a uniformly shaped response.
func NotFoundDetail() *NoteDetail {
	return &NoteDetail{
		ID:         "not-found",
		Title:      "Not found",
		Tags:       []string{},
		Highlights: []models.Rect{},
	}
}

// EventPublisher receives note change notifications after successful
// mutations. kind is "created", "updated", or "deleted".
type EventPublisher interface {
	PublishNoteEvent(kind, id string)
}

// Service coordinates repository and blob store operations.
type Service struct {
	store  notestore.Store
	blobs  blob.Store
	events EventPublisher
	logger *slog.Logger
}

// NewService creates a new note service. events may be nil.
func NewService(store notestore.Store, blobs blob.Store, events EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, blobs: blobs, events: events, logger: logger}
}

// Capture creates a new note from a clip payload and returns its id.
// A preview write failure degrades to no preview; it never fails the
// capture.
func (s *Service) Capture(_ context.Context, in CaptureInput) (string, error) {
	id := uuid.NewString()

	text := selectionText(in)
	html := selectionHTML(in)

	n := models.Note{
		ID:         id,
		CreatedAt:  notestore.Timestamp(time.Now()),
		Title:      deriveTitle(text),
		Plaintext:  text,
		HTML:       html,
		SourceURL:  sourceURL(in),
		TextQuote:  snapshot(text),
		Tags:       opsTags(in),
		PageNumber: opsPage(in),
		Highlights: opsHighlights(in),
	}
	n.PreviewPath = s.savePreview(id, in)

	if err := s.store.Create(n); err != nil {
		return "", err
	}

	s.logger.Info("captured clip",
		slog.String("id", id),
		slog.Int("tags", len(n.Tags)))
	s.publish("created", id)
	return id, nil
}

// Append grows an existing note with a clip payload: text/html append,
// tag union, first-write preview. Fields fixed at creation are untouched.
func (s *Service) Append(_ context.Context, id string, in CaptureInput) error {
	existing, err := s.store.Get(id)
	if err != nil {
		return err
	}

	// Decode and save the preview only when none exists yet; the
	// repository applies the same first-write rule on the row.
	var previewCandidate *string
	if existing.PreviewPath == nil {
		previewCandidate = s.savePreview(id, in)
	}

	if err := s.store.Append(id, deref(selectionText(in)), deref(selectionHTML(in)), opsTags(in), previewCandidate); err != nil {
		return err
	}

	s.logger.Info("appended clip", slog.String("id", id))
	s.publish("updated", id)
	return nil
}

// UpdateMetadata replaces the title when provided and unions tags.
func (s *Service) UpdateMetadata(_ context.Context, id string, title *string, tags []string) error {
	if err := s.store.UpdateMetadata(id, title, tags); err != nil {
		return err
	}
	s.publish("updated", id)
	return nil
}

// Get returns the full note record, or apperr.ErrNotFound.
func (s *Service) Get(_ context.Context, id string) (*NoteDetail, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return detail(n), nil
}

// List returns up to 200 summaries, newest first.
func (s *Service) List(_ context.Context) ([]NoteSummary, error) {
	notes, err := s.store.ListRecent(listLimit)
	if err != nil {
		return nil, err
	}
	return summaries(notes), nil
}

// Search returns up to 100 summaries ranked by the index, ties broken by
// recency. An empty or whitespace-only query falls back to the recency
// listing without touching the index.
func (s *Service) Search(_ context.Context, query string) ([]NoteSummary, error) {
	var (
		notes []models.Note
		err   error
	)
	if strings.TrimSpace(query) == "" {
		notes, err = s.store.ListRecent(searchLimit)
	} else {
		notes, err = s.store.Search(query, searchLimit)
	}
	if err != nil {
		return nil, err
	}
	return summaries(notes), nil
}

// Delete removes a note, its index entry, and (best-effort) its preview
// blob. A missing id yields affected 0, not an error.
func (s *Service) Delete(_ context.Context, id string) (int64, error) {
	existing, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}

	affected, err := s.store.Delete(id)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		if existing.PreviewPath != nil {
			if rmErr := s.blobs.Remove(*existing.PreviewPath); rmErr != nil {
				s.logger.Warn("preview cleanup failed",
					slog.String("id", id), slog.String("error", rmErr.Error()))
			}
		}
		s.logger.Info("deleted note", slog.String("id", id))
		s.publish("deleted", id)
	}
	return affected, nil
}

// Export returns the note shaped for the Markdown export transform.
func (s *Service) Export(_ context.Context, id string) (*export.Document, error) {
	n, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	return &export.Document{
		ID:        n.ID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt,
		SourceURL: n.SourceURL,
		Tags:      n.Tags,
		Plaintext: n.Plaintext,
		HTML:      n.HTML,
	}, nil
}

// ReadPreview returns the preview bytes at a relative locator.
func (s *Service) ReadPreview(_ context.Context, rel string) ([]byte, error) {
	return s.blobs.Read(rel)
}

// savePreview decodes and stores the screenshot data URL, if any.
// Failures degrade to "no preview" with a warning; they never propagate.
func (s *Service) savePreview(id string, in CaptureInput) *string {
	if in.Media == nil || in.Media.ScreenshotDataURL == nil {
		return nil
	}
	data, err := blob.DecodeDataURL(*in.Media.ScreenshotDataURL)
	if err != nil {
		s.logger.Warn("preview decode failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil
	}
	rel, err := s.blobs.Save(id, data)
	if err != nil {
		s.logger.Warn("preview save failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil
	}
	return &rel
}

func (s *Service) publish(kind, id string) {
	if s.events != nil {
		s.events.PublishNoteEvent(kind, id)
	}
}

// deriveTitle returns the first 80 runes of the trimmed selection text,
// or the placeholder when the capture has no text.
func deriveTitle(text *string) string {
	if text == nil {
		return PlaceholderTitle
	}
	trimmed := strings.TrimSpace(*text)
	if trimmed == "" {
		return PlaceholderTitle
	}
	runes := []rune(trimmed)
	if len(runes) > titleRunes {
		runes = runes[:titleRunes]
	}
	return string(runes)
}

// snippetOf returns the first 160 runes of the trimmed plaintext, with an
// ellipsis suffix when truncated.
func snippetOf(plaintext *string) *string {
	if plaintext == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*plaintext)
	runes := []rune(trimmed)
	out := trimmed
	if len(runes) > snippetRunes {
		out = string(runes[:snippetRunes]) + "…"
	}
	return &out
}

func summaries(notes []models.Note) []NoteSummary {
	out := make([]NoteSummary, len(notes))
	for i, n := range notes {
		out[i] = NoteSummary{
			ID:          n.ID,
			Title:       n.Title,
			CreatedAt:   n.CreatedAt,
			SourceURL:   n.SourceURL,
			Tags:        nonNilSlice(n.Tags),
			Snippet:     snippetOf(n.Plaintext),
			PreviewPath: n.PreviewPath,
		}
	}
	return out
}

func detail(n *models.Note) *NoteDetail {
	return &NoteDetail{
		ID:          n.ID,
		CreatedAt:   n.CreatedAt,
		Title:       n.Title,
		Plaintext:   n.Plaintext,
		HTML:        n.HTML,
		SourceURL:   n.SourceURL,
		TextQuote:   n.TextQuote,
		Tags:        nonNilSlice(n.Tags),
		PreviewPath: n.PreviewPath,
		PageNumber:  n.PageNumber,
		Highlights:  n.Highlights,
	}
}

func selectionText(in CaptureInput) *string {
	if in.Selection == nil {
		return nil
	}
	return in.Selection.Text
}

func selectionHTML(in CaptureInput) *string {
	if in.Selection == nil {
		return nil
	}
	return in.Selection.HTML
}

func sourceURL(in CaptureInput) *string {
	if in.Source == nil {
		return nil
	}
	return in.Source.URL
}

func opsTags(in CaptureInput) []string {
	if in.Ops == nil {
		return nil
	}
	return in.Ops.Tags
}

func opsPage(in CaptureInput) *int {
	if in.Ops == nil {
		return nil
	}
	return in.Ops.Page
}

func opsHighlights(in CaptureInput) []models.Rect {
	if in.Ops == nil {
		return nil
	}
	return in.Ops.Highlights
}

// snapshot copies a pointed-to string so later growth of the live field
// can never alias the creation-time quote.
func snapshot(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
