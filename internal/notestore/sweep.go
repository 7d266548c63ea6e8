package notestore

import (
	"log/slog"

	"github.com/levelworks/levelnotes/internal/blob"
)

// SweepPreviews reconciles notes and the preview blob store in both
// directions:
//   - notes whose preview file no longer exists on disk lose their
//     preview_path (the row must never point at a missing blob)
//   - preview files not referenced by any note are removed (leftovers
//     from deletes interrupted before the blob cleanup ran)
func SweepPreviews(db *DB, blobs blob.Store, logger *slog.Logger) error {
	refs, err := db.PreviewRefs()
	if err != nil {
		return err
	}

	files, err := blobs.Previews()
	if err != nil {
		return err
	}
	onDisk := make(map[string]struct{}, len(files))
	for _, rel := range files {
		onDisk[rel] = struct{}{}
	}

	referenced := make(map[string]struct{}, len(refs))
	for id, rel := range refs {
		referenced[rel] = struct{}{}
		if _, ok := onDisk[rel]; ok {
			continue
		}
		if _, clearErr := db.ClearPreview(rel); clearErr != nil {
			logger.Warn("sweep: clear preview failed",
				slog.String("path", rel), slog.String("error", clearErr.Error()))
		} else {
			logger.Debug("sweep: cleared dangling preview",
				slog.String("path", rel), slog.String("id", id))
		}
	}

	// Remove orphaned files.
	for _, rel := range files {
		if _, ok := referenced[rel]; ok {
			continue
		}
		if rmErr := blobs.Remove(rel); rmErr != nil {
			logger.Warn("sweep: remove orphan failed",
				slog.String("path", rel), slog.String("error", rmErr.Error()))
		} else {
			logger.Debug("sweep: removed orphan preview", slog.String("path", rel))
		}
	}

	return nil
}
