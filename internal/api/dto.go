package api

import "github.com/levelworks/levelnotes/internal/noteservice"

// ClipPayload is the request body for capture and append (aliased from
// the domain layer; the service accepts the same structured record).
type ClipPayload = noteservice.CaptureInput

// NoteSummary is a lightweight item in list and search responses.
type NoteSummary = noteservice.NoteSummary

// NoteDetail is the full note response type.
type NoteDetail = noteservice.NoteDetail

// UpdateMetadataRequest is the request body for metadata updates. A nil
// Title leaves the title unchanged; Tags are unioned into the existing set.
type UpdateMetadataRequest struct {
	Title *string  `json:"title"`
	Tags  []string `json:"tags"`
}

// ClipResponse acknowledges a capture with the new note id.
type ClipResponse struct {
	OK     bool   `json:"ok"`
	NoteID string `json:"note_id"`
}

// OkResponse acknowledges a mutation.
type OkResponse struct {
	OK bool `json:"ok"`
}

// DeleteResponse reports how many notes a delete removed (0 or 1).
type DeleteResponse struct {
	Affected int64 `json:"affected"`
}
