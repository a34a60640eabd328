package admin

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/whyvarun/support-IQ/internal/config"
	"github.com/whyvarun/support-IQ/internal/database"
	"github.com/whyvarun/support-IQ/internal/oracle"
	"github.com/whyvarun/support-IQ/internal/repository"
	"github.com/whyvarun/support-IQ/internal/service"
)

// BackfillCmd returns the backfill command
func BackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Backfill missing knowledge embeddings",
		Long:  "Generate embeddings for knowledge entries stored without one, then exit",
		RunE:  runBackfill,
	}

	cmd.Flags().Int("batch-size", 50, "Entries per batch")

	return cmd
}

func runBackfill(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for embedding backfill")
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	embeddingClient := oracle.NewEmbeddingClientWithConfig(oracle.EmbeddingConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
	})

	knowledgeSvc := service.NewKnowledgeService(
		repository.NewKnowledgeRepository(pool),
		embeddingClient,
		repository.NewTxRunner(pool),
	)

	batchSize, _ := cmd.Flags().GetInt("batch-size")
	total := 0
	for {
		count, err := knowledgeSvc.BackfillEmbeddings(ctx, batchSize)
		if err != nil {
			return fmt.Errorf("backfill failed: %w", err)
		}
		total += count
		if count < batchSize {
			break
		}
	}

	log.Printf("backfill complete: %d entries embedded", total)
	return nil
}
