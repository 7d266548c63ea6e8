package notestore

import (
	"context"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven repository change.
// kind is currently always "updated" (a note lost its preview).
type EventCallback func(kind string, id string)

// WatchPreviews starts an fsnotify watcher on the previews directory and
// processes file removal events until ctx is cancelled. When a preview
// file disappears from disk (removed or renamed away), the referencing
// note's preview_path is cleared so the row never points at a missing
// blob. It calls cb (if non-nil) after each successful mutation.
func WatchPreviews(ctx context.Context, db *DB, dataDir string, logger *slog.Logger, cb EventCallback) error {
	dir := filepath.Join(dataDir, "previews")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			// Locators are stored with forward slashes relative to the
			// data dir.
			rel := path.Join("previews", filepath.Base(ev.Name))

			ids, clearErr := db.ClearPreview(rel)
			if clearErr != nil {
				logger.Warn("watcher: clear preview failed",
					slog.String("path", rel),
					slog.String("error", clearErr.Error()))
				continue
			}
			for _, id := range ids {
				logger.Debug("watcher: preview cleared",
					slog.String("path", rel), slog.String("id", id))
				if cb != nil {
					cb("updated", id)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
