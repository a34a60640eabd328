package jobs

import (
	"context"
	"fmt"
	"log"
)

// EmbeddingBackfiller generates embeddings for knowledge entries that
// were stored without one.
type EmbeddingBackfiller interface {
	BackfillEmbeddings(ctx context.Context, batchSize int) (int, error)
}

// BackfillWorker sweeps knowledge entries missing embeddings and fills
// them in batches. Entries end up without an embedding when the
// embedding provider was unavailable at write time.
type BackfillWorker struct {
	backfiller EmbeddingBackfiller
	batchSize  int
}

// NewBackfillWorker creates a new BackfillWorker instance
func NewBackfillWorker(backfiller EmbeddingBackfiller, batchSize int) *BackfillWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &BackfillWorker{
		backfiller: backfiller,
		batchSize:  batchSize,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *BackfillWorker) ProcessJobs(ctx context.Context) error {
	count, err := w.backfiller.BackfillEmbeddings(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to backfill embeddings: %w", err)
	}

	if count > 0 {
		log.Printf("Backfilled embeddings for %d knowledge entries", count)
	}
	return nil
}
