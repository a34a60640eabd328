package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/whyvarun/support-IQ/internal/config"
	"github.com/whyvarun/support-IQ/internal/database"
	"github.com/whyvarun/support-IQ/internal/repository"
	"github.com/whyvarun/support-IQ/internal/service"
)

// PromoteCmd returns the promote command
func PromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Run one automatic promotion sweep",
		Long:  "Promote knowledge entries that crossed their usage and feedback thresholds, then exit",
		RunE:  runPromote,
	}
}

func runPromote(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	promotionSvc := service.NewPromotionService(
		repository.NewKnowledgeRepository(pool),
		repository.NewPromotionRepository(pool),
		repository.NewTxRunner(pool),
		service.PromotionConfig{
			L3ToL2Threshold:  cfg.L3ToL2Threshold,
			L2ToL1Threshold:  cfg.L2ToL1Threshold,
			MinFeedbackScore: cfg.MinFeedbackScore,
		},
	)

	promoted, err := promotionSvc.CheckAndPromote(ctx)
	if err != nil {
		return fmt.Errorf("promotion sweep failed: %w", err)
	}

	for _, p := range promoted {
		log.Printf("promoted %s (%s) from %s to %s", p.ID, p.Title, p.FromTier, p.ToTier)
	}
	log.Printf("promotion sweep complete: %d entries promoted", len(promoted))
	return nil
}
