package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/whyvarun/support-IQ/internal/service"
)

// PromotionSweeper runs the automatic tier promotion sweep.
type PromotionSweeper interface {
	CheckAndPromote(ctx context.Context) ([]*service.PromotedEntry, error)
}

// PromotionWorker periodically promotes knowledge entries that crossed
// their usage and feedback thresholds.
type PromotionWorker struct {
	sweeper PromotionSweeper
}

// NewPromotionWorker creates a new PromotionWorker instance
func NewPromotionWorker(sweeper PromotionSweeper) *PromotionWorker {
	return &PromotionWorker{sweeper: sweeper}
}

// ProcessJobs implements the JobProcessor interface
func (w *PromotionWorker) ProcessJobs(ctx context.Context) error {
	promoted, err := w.sweeper.CheckAndPromote(ctx)
	if err != nil {
		return fmt.Errorf("failed to run promotion sweep: %w", err)
	}

	for _, p := range promoted {
		log.Printf("Promoted knowledge entry %s from %s to %s", p.ID, p.FromTier, p.ToTier)
	}
	return nil
}
