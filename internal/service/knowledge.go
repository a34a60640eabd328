package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// KnowledgeRepositoryInterface defines the repository interface for knowledge persistence
type KnowledgeRepositoryInterface interface {
	Create(ctx context.Context, entry *domain.KnowledgeEntry, embedding []float32) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListByTier(ctx context.Context, tier domain.Tier, category string, limit int) ([]*domain.KnowledgeEntry, error)
	Categories(ctx context.Context, tier domain.Tier) ([]*CategorySummary, error)
	GetUsageForUpdate(ctx context.Context, id string) (*UsageSnapshot, error)
	UpdateUsage(ctx context.Context, id string, usageCount int, successRate, avgFeedback float64) error
	ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	ListEligibleForPromotion(ctx context.Context, tier domain.Tier, minUsage int, minFeedback float64) ([]*domain.KnowledgeEntry, error)
	ListNearPromotion(ctx context.Context, tier domain.Tier, minUsage float64) ([]*domain.KnowledgeEntry, error)
	UpdateTier(ctx context.Context, id string, tier domain.Tier) error
	Deactivate(ctx context.Context, id string) error
}

// CategorySummary is one row of the category breakdown
type CategorySummary struct {
	Category string  `json:"category"`
	Tier     string  `json:"tier"`
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// UsageSnapshot holds the counters read under a row lock before a usage update
type UsageSnapshot struct {
	UsageCount       int
	SuccessRate      float64
	AvgFeedbackScore float64
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// KnowledgeService handles business logic for knowledge base entries
type KnowledgeService struct {
	knowledgeRepo KnowledgeRepositoryInterface
	embedding     EmbeddingOracle
	txRunner      TxRunner
	uuidGen       UUIDGenerator
}

// NewKnowledgeService creates a new KnowledgeService instance
func NewKnowledgeService(
	knowledgeRepo KnowledgeRepositoryInterface,
	embedding EmbeddingOracle,
	txRunner TxRunner,
) *KnowledgeService {
	return &KnowledgeService{
		knowledgeRepo: knowledgeRepo,
		embedding:     embedding,
		txRunner:      txRunner,
		uuidGen:       &DefaultUUIDGenerator{},
	}
}

// NewKnowledgeServiceWithUUIDGen creates a new KnowledgeService with custom UUID generator (for testing)
func NewKnowledgeServiceWithUUIDGen(
	knowledgeRepo KnowledgeRepositoryInterface,
	embedding EmbeddingOracle,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *KnowledgeService {
	return &KnowledgeService{
		knowledgeRepo: knowledgeRepo,
		embedding:     embedding,
		txRunner:      txRunner,
		uuidGen:       uuidGen,
	}
}

// CreateEntryInput represents the input for creating a knowledge entry
type CreateEntryInput struct {
	Tier     domain.Tier
	Title    string
	Content  string
	Keywords []string
	Category string
}

// CreateEntry creates a knowledge entry and embeds its title and content
// synchronously so it is searchable immediately.
func (s *KnowledgeService) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.CreateEntry", telemetry.SpanAttributes{
		Tier:      string(input.Tier),
		Operation: "create",
	})
	defer span.End()

	now := time.Now().UTC()
	keywords := input.Keywords
	if keywords == nil {
		keywords = []string{}
	}

	entry := &domain.KnowledgeEntry{
		ID:        s.uuidGen.NewString(),
		Tier:      input.Tier,
		Title:     input.Title,
		Content:   input.Content,
		Keywords:  keywords,
		Category:  input.Category,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateKnowledgeEntry(entry); err != nil {
		return nil, err
	}

	embedding, err := s.embedding.Encode(ctx, input.Title+" "+input.Content)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	entry.HasEmbedding = true

	if err := s.knowledgeRepo.Create(ctx, entry, embedding); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetEntry retrieves a knowledge entry by ID
func (s *KnowledgeService) GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.GetEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "get",
	})
	defer span.End()

	return s.knowledgeRepo.GetByID(ctx, id)
}

// ListByTier returns the active entries of one tier ordered by usage count
// descending, optionally filtered by category.
func (s *KnowledgeService) ListByTier(ctx context.Context, tier domain.Tier, category string, limit int) ([]*domain.KnowledgeEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.ListByTier", telemetry.SpanAttributes{
		Tier:      string(tier),
		Operation: "list",
	})
	defer span.End()

	if !domain.IsValidTier(tier) {
		return nil, domain.ErrInvalidTier
	}
	if limit <= 0 {
		limit = 20
	}

	return s.knowledgeRepo.ListByTier(ctx, tier, category, limit)
}

// Categories returns the category breakdown across active entries,
// optionally restricted to one tier.
func (s *KnowledgeService) Categories(ctx context.Context, tier domain.Tier) ([]*CategorySummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.Categories", telemetry.SpanAttributes{
		Tier:      string(tier),
		Operation: "categories",
	})
	defer span.End()

	if tier != "" && !domain.IsValidTier(tier) {
		return nil, domain.ErrInvalidTier
	}

	return s.knowledgeRepo.Categories(ctx, tier)
}

// RecordUsage folds one resolution outcome into an entry's counters.
// The read and write happen under a row lock so concurrent recordings
// serialize instead of losing updates. A missing entry is a no-op.
func (s *KnowledgeService) RecordUsage(ctx context.Context, entryID string, wasSuccessful bool, feedbackScore *int) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.RecordUsage", telemetry.SpanAttributes{
		EntryID:   entryID,
		Operation: "record_usage",
	})
	defer span.End()

	if feedbackScore != nil && (*feedbackScore < 1 || *feedbackScore > 5) {
		return domain.ErrInvalidFeedbackScore
	}

	return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		snapshot, err := repos.Knowledge().GetUsageForUpdate(ctx, entryID)
		if err != nil {
			if errors.Is(err, domain.ErrEntryNotFound) {
				return nil
			}
			return err
		}

		newCount := snapshot.UsageCount + 1

		successes := snapshot.SuccessRate * float64(snapshot.UsageCount)
		if wasSuccessful {
			successes++
		}
		newRate := successes / float64(newCount)

		newFeedback := snapshot.AvgFeedbackScore
		if feedbackScore != nil {
			feedbackSum := snapshot.AvgFeedbackScore * float64(snapshot.UsageCount)
			newFeedback = (feedbackSum + float64(*feedbackScore)) / float64(newCount)
		}

		return repos.Knowledge().UpdateUsage(ctx, entryID, newCount, newRate, newFeedback)
	})
}

// BackfillEmbeddings embeds up to batchSize entries that have no embedding
// yet and returns how many were updated.
func (s *KnowledgeService) BackfillEmbeddings(ctx context.Context, batchSize int) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.BackfillEmbeddings", telemetry.SpanAttributes{
		Operation: "backfill_embeddings",
	})
	defer span.End()

	if batchSize <= 0 {
		batchSize = 50
	}

	entries, err := s.knowledgeRepo.ListMissingEmbeddings(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	updated := 0
	for _, entry := range entries {
		embedding, err := s.embedding.Encode(ctx, entry.Title+" "+entry.Content)
		if err != nil {
			span.SetError(err)
			return updated, err
		}
		if err := s.knowledgeRepo.UpdateEmbedding(ctx, entry.ID, embedding); err != nil {
			return updated, err
		}
		updated++
	}

	return updated, nil
}

// DeactivateEntry soft-deletes an entry so it no longer appears in search.
func (s *KnowledgeService) DeactivateEntry(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "KnowledgeService.DeactivateEntry", telemetry.SpanAttributes{
		EntryID:   id,
		Operation: "deactivate",
	})
	defer span.End()

	return s.knowledgeRepo.Deactivate(ctx, id)
}
