package services

import (
	"context"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/machirag/server/models"
)

// DirectoryWatcher keeps a watched directory in sync with the vector index:
// created or modified files are re-ingested, removed files are deleted from
// the index.
type DirectoryWatcher struct {
	ragService RAGService
	namespace  string
	source     string
}

// NewDirectoryWatcher creates a watcher that ingests into the given
// namespace, tagging chunks with the given source.
func NewDirectoryWatcher(ragService RAGService, namespace, source string) *DirectoryWatcher {
	return &DirectoryWatcher{
		ragService: ragService,
		namespace:  namespace,
		source:     source,
	}
}

// Watch starts a long-running loop handling file events until the context is
// cancelled.
func (w *DirectoryWatcher) Watch(ctx context.Context, dirPath string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to create file watcher: %v", err)
		return
	}
	defer watcher.Close()

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !IsSupportedFile(event.Name) {
					continue
				}

				log.Printf("WATCHER EVENT: %s", event)

				// Many editors perform a "write" by creating a temp file and
				// renaming, which can trigger multiple events. Create and
				// Write are handled the same way.
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					log.Printf("WATCHER: File modified/created: %s. Re-ingesting...", event.Name)
					w.reingest(ctx, event.Name)
				} else if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
					// Rename is often reported as Remove by watchers.
					log.Printf("WATCHER: File removed/renamed: %s. Removing from index...", event.Name)
					if err := w.ragService.DeleteFile(ctx, w.namespace, filepath.Base(event.Name)); err != nil {
						log.Printf("WATCHER ERROR: Failed to delete records for %s: %v", event.Name, err)
					}
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("WATCHER ERROR: %v", err)
			case <-ctx.Done():
				log.Println("WATCHER: Context cancelled, shutting down watcher.")
				return
			}
		}
	}()

	log.Printf("WATCHER: Watching directory: %s", dirPath)
	if err := watcher.Add(dirPath); err != nil {
		log.Printf("WATCHER ERROR: Failed to add path to watcher: %v", err)
	}

	// Block until the context is cancelled (e.g., server shutdown).
	<-ctx.Done()
}

// reingest deletes any previously indexed chunks of the file, then runs it
// through the full pipeline. The delete handles a re-upload that produces
// fewer chunks than before; matching ids are overwritten by the upsert
// anyway.
func (w *DirectoryWatcher) reingest(ctx context.Context, path string) {
	filename := filepath.Base(path)
	if err := w.ragService.DeleteFile(ctx, w.namespace, filename); err != nil {
		log.Printf("WATCHER WARN: Could not delete old chunks of %s: %v", filename, err)
	}

	response, err := w.ragService.IngestFile(ctx, models.IngestFileRequest{
		Path:      path,
		Source:    w.source,
		Namespace: w.namespace,
	})
	if err != nil {
		log.Printf("WATCHER ERROR: Failed to ingest %s: %v", path, err)
		return
	}
	if len(response.Report.FailedChunkIDs) > 0 {
		log.Printf("WATCHER WARN: %d chunks of %s failed permanently: %v", len(response.Report.FailedChunkIDs), filename, response.Report.FailedChunkIDs)
	}
}
