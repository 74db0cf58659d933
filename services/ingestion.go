package services

import (
	"context"
	"log"
	"time"

	"github.com/machirag/server/models"
)

// ChunkUpload pairs a chunk with its assembled metadata for upload.
type ChunkUpload struct {
	Chunk    models.Chunk
	Metadata models.MetadataRecord
}

// IngestionBatcher partitions chunk uploads into batches, drives the
// embedding gateway, isolates per-chunk embedding failures, and upserts each
// batch atomically into the vector index.
type IngestionBatcher struct {
	embedder    Embedder
	index       VectorIndex
	maxAttempts int
	backoffBase time.Duration
}

// NewIngestionBatcher builds a batcher with the standard upsert retry budget
// (3 attempts, backoff starting at two seconds and doubling).
func NewIngestionBatcher(embedder Embedder, index VectorIndex) *IngestionBatcher {
	return &IngestionBatcher{
		embedder:    embedder,
		index:       index,
		maxAttempts: 3,
		backoffBase: 2 * time.Second,
	}
}

// NewIngestionBatcherWithRetry overrides the upsert retry budget; tests use
// short backoff bases.
func NewIngestionBatcherWithRetry(embedder Embedder, index VectorIndex, maxAttempts int, backoffBase time.Duration) *IngestionBatcher {
	b := NewIngestionBatcher(embedder, index)
	b.maxAttempts = maxAttempts
	b.backoffBase = backoffBase
	return b
}

// Upload embeds and upserts every chunk in batches of at most batchSize.
// A chunk whose embedding fails after the gateway's own retries is pulled out
// of its batch and re-submitted in exactly one extra pass; a chunk failing
// both passes is reported in the result's FailedChunkIDs, never silently
// dropped. Upload returns an IngestionError only when a batch-level upsert
// exhausts its retry budget.
func (b *IngestionBatcher) Upload(ctx context.Context, namespace string, items []ChunkUpload, batchSize int) (*models.IngestReport, error) {
	if batchSize <= 0 {
		return nil, &models.ValidationError{Field: "batch_size", Reason: "must be a positive integer"}
	}

	report := &models.IngestReport{ChunkCount: len(items)}
	if len(items) == 0 {
		log.Printf("BATCHER: Nothing to upload.")
		return report, nil
	}

	log.Printf("BATCHER: Uploading %d chunks in batches of %d...", len(items), batchSize)

	// Bounded two-pass loop instead of recursion keeps failure accounting
	// tractable: pass 0 is the main run, pass 1 re-submits the retry set.
	pending := items
	for pass := 0; pass < 2 && len(pending) > 0; pass++ {
		if pass == 1 {
			log.Printf("BATCHER: Retrying %d failed chunks...", len(pending))
			report.RetriedCount = len(pending)
		}
		failed, err := b.uploadPass(ctx, namespace, pending, batchSize)
		if err != nil {
			return report, err
		}
		pending = failed
	}

	for _, item := range pending {
		log.Printf("BATCHER: Chunk %s failed permanently and was dropped.", item.Chunk.ID)
		report.FailedChunkIDs = append(report.FailedChunkIDs, item.Chunk.ID)
	}
	report.UploadedCount = report.ChunkCount - len(report.FailedChunkIDs)

	log.Printf("BATCHER: Upload finished: %d uploaded, %d failed.", report.UploadedCount, len(report.FailedChunkIDs))
	return report, nil
}

// uploadPass runs one full pass over items and returns the chunks whose
// embedding failed. A batch upsert exhausting its retries aborts the pass.
func (b *IngestionBatcher) uploadPass(ctx context.Context, namespace string, items []ChunkUpload, batchSize int) ([]ChunkUpload, error) {
	var retrySet []ChunkUpload

	batchNum := 0
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]
		batchNum++
		log.Printf("BATCHER: Processing batch %d (%d chunks)...", batchNum, len(batch))

		upserts := make([]UpsertItem, 0, len(batch))
		for _, item := range batch {
			vector, err := b.embedder.Embed(ctx, item.Chunk.Text)
			if err != nil {
				// One bad chunk must not block its batch-mates.
				log.Printf("BATCHER: Embedding chunk %s failed: %v. Deferring to retry set.", item.Chunk.ID, err)
				retrySet = append(retrySet, item)
				continue
			}
			upserts = append(upserts, UpsertItem{
				ID:       item.Chunk.ID,
				Text:     item.Chunk.Text,
				Vector:   vector,
				Metadata: item.Metadata,
			})
		}

		if len(upserts) == 0 {
			continue
		}
		if err := b.upsertWithRetry(ctx, namespace, upserts, batchNum); err != nil {
			return retrySet, err
		}
		log.Printf("BATCHER: Batch %d upserted (%d vectors).", batchNum, len(upserts))
	}

	return retrySet, nil
}

func (b *IngestionBatcher) upsertWithRetry(ctx context.Context, namespace string, upserts []UpsertItem, batchNum int) error {
	var lastErr error
	delay := b.backoffBase

	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err := b.index.Upsert(ctx, namespace, upserts)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < b.maxAttempts {
			log.Printf("BATCHER: Upsert of batch %d attempt %d/%d failed: %v. Retrying in %s...", batchNum, attempt, b.maxAttempts, err, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return &models.IngestionError{Batch: batchNum, Attempts: b.maxAttempts, Err: lastErr}
}
