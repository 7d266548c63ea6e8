// Package models defines the domain types for LevelNotes.
package models

// Rect is a highlight rectangle captured on the source page, in page
// coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Note is the persisted unit representing one captured clip and its
// accumulated edits.
//
// Optional columns are pointers: nil means the field was never set.
// Tags are stored as a deduplicated, sorted set. CreatedAt is a UTC
// timestamp string with fixed-width fractional seconds so that string
// ordering matches time ordering.
type Note struct {
	ID          string   `json:"id"`
	CreatedAt   string   `json:"created_at"`
	Title       string   `json:"title"`
	Plaintext   *string  `json:"plaintext"`
	HTML        *string  `json:"html"`
	SourceURL   *string  `json:"source_url"`
	TextQuote   *string  `json:"text_quote"`
	PreviewPath *string  `json:"preview_path"`
	Tags        []string `json:"tags"`
	PageNumber  *int     `json:"page_number"`
	Highlights  []Rect   `json:"highlights"`
}
