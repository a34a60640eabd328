package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// PromotionRepositoryInterface defines the repository interface for promotion history
type PromotionRepositoryInterface interface {
	// InsertAutomatic inserts an automatic promotion record unless one
	// already exists for the same entry and transition. Returns whether
	// the record was inserted.
	InsertAutomatic(ctx context.Context, record *domain.PromotionRecord) (bool, error)
	Insert(ctx context.Context, record *domain.PromotionRecord) error
	History(ctx context.Context, entryID string, limit int) ([]*domain.PromotionRecord, error)
}

// PromotionConfig holds the promotion thresholds
type PromotionConfig struct {
	L3ToL2Threshold  int
	L2ToL1Threshold  int
	MinFeedbackScore float64
}

// DefaultPromotionConfig returns the default promotion thresholds
func DefaultPromotionConfig() PromotionConfig {
	return PromotionConfig{
		L3ToL2Threshold:  10,
		L2ToL1Threshold:  25,
		MinFeedbackScore: 4.0,
	}
}

// PromotedEntry describes one executed promotion
type PromotedEntry struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	FromTier    domain.Tier `json:"from_tier"`
	ToTier      domain.Tier `json:"to_tier"`
	Reason      string      `json:"reason"`
	UsageCount  int         `json:"usage_count"`
	AvgFeedback float64     `json:"avg_feedback"`
	PromotedAt  time.Time   `json:"promoted_at"`
}

// PromotionCandidate is an entry approaching its promotion threshold
type PromotionCandidate struct {
	ID                string  `json:"id"`
	Title             string  `json:"title"`
	UsageCount        int     `json:"usage_count"`
	Threshold         int     `json:"threshold"`
	ProgressPercent   float64 `json:"progress_percent"`
	AvgFeedback       float64 `json:"avg_feedback"`
	FeedbackQualified bool    `json:"feedback_qualified"`
}

// PromotionService moves knowledge entries toward cheaper tiers as they
// prove themselves. L3 entries promote to L2, L2 entries to L1.
type PromotionService struct {
	knowledgeRepo KnowledgeRepositoryInterface
	promotionRepo PromotionRepositoryInterface
	txRunner      TxRunner
	uuidGen       UUIDGenerator
	cfg           PromotionConfig
}

// NewPromotionService creates a new PromotionService instance
func NewPromotionService(
	knowledgeRepo KnowledgeRepositoryInterface,
	promotionRepo PromotionRepositoryInterface,
	txRunner TxRunner,
	cfg PromotionConfig,
) *PromotionService {
	if cfg.L3ToL2Threshold <= 0 {
		cfg.L3ToL2Threshold = DefaultPromotionConfig().L3ToL2Threshold
	}
	if cfg.L2ToL1Threshold <= 0 {
		cfg.L2ToL1Threshold = DefaultPromotionConfig().L2ToL1Threshold
	}
	if cfg.MinFeedbackScore <= 0 {
		cfg.MinFeedbackScore = DefaultPromotionConfig().MinFeedbackScore
	}
	return &PromotionService{
		knowledgeRepo: knowledgeRepo,
		promotionRepo: promotionRepo,
		txRunner:      txRunner,
		uuidGen:       &DefaultUUIDGenerator{},
		cfg:           cfg,
	}
}

// NewPromotionServiceWithUUIDGen creates a PromotionService with a custom UUID generator (for testing)
func NewPromotionServiceWithUUIDGen(
	knowledgeRepo KnowledgeRepositoryInterface,
	promotionRepo PromotionRepositoryInterface,
	txRunner TxRunner,
	cfg PromotionConfig,
	uuidGen UUIDGenerator,
) *PromotionService {
	svc := NewPromotionService(knowledgeRepo, promotionRepo, txRunner, cfg)
	svc.uuidGen = uuidGen
	return svc
}

// CheckAndPromote sweeps both transitions and promotes every qualified
// entry that has not been auto-promoted through the same transition
// before. L3 to L2 runs before L2 to L1, so an L3 entry that already
// clears the L2 threshold hops both transitions in one sweep, each as
// its own history record.
func (s *PromotionService) CheckAndPromote(ctx context.Context) ([]*PromotedEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "PromotionService.CheckAndPromote", telemetry.SpanAttributes{
		Operation: "check_and_promote",
	})
	defer span.End()

	var promotions []*PromotedEntry

	l3Promotions, err := s.promoteTier(ctx, domain.TierL3, domain.TierL2, s.cfg.L3ToL2Threshold)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	promotions = append(promotions, l3Promotions...)

	l2Promotions, err := s.promoteTier(ctx, domain.TierL2, domain.TierL1, s.cfg.L2ToL1Threshold)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	promotions = append(promotions, l2Promotions...)

	if promotions == nil {
		promotions = []*PromotedEntry{}
	}
	return promotions, nil
}

func (s *PromotionService) promoteTier(ctx context.Context, fromTier, toTier domain.Tier, usageThreshold int) ([]*PromotedEntry, error) {
	var promoted []*PromotedEntry

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		eligible, err := repos.Knowledge().ListEligibleForPromotion(ctx, fromTier, usageThreshold, s.cfg.MinFeedbackScore)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, entry := range eligible {
			record := &domain.PromotionRecord{
				ID:          s.uuidGen.NewString(),
				EntryID:     entry.ID,
				FromTier:    fromTier,
				ToTier:      toTier,
				Reason:      s.autoReason(entry.UsageCount, entry.AvgFeedbackScore),
				UsageCount:  entry.UsageCount,
				AvgFeedback: entry.AvgFeedbackScore,
				Automatic:   true,
				PromotedAt:  now,
			}
			if err := domain.ValidatePromotionRecord(record); err != nil {
				return err
			}

			// The conditional insert carries the idempotence: an entry
			// already auto-promoted through this transition is skipped
			// even when a concurrent sweep races us.
			inserted, err := repos.Promotions().InsertAutomatic(ctx, record)
			if err != nil {
				return err
			}
			if !inserted {
				continue
			}

			if err := repos.Knowledge().UpdateTier(ctx, entry.ID, toTier); err != nil {
				return err
			}

			promoted = append(promoted, &PromotedEntry{
				ID:          entry.ID,
				Title:       entry.Title,
				FromTier:    fromTier,
				ToTier:      toTier,
				Reason:      record.Reason,
				UsageCount:  entry.UsageCount,
				AvgFeedback: entry.AvgFeedbackScore,
				PromotedAt:  now,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return promoted, nil
}

func (s *PromotionService) autoReason(usageCount int, avgFeedback float64) string {
	return fmt.Sprintf("Auto-promoted: usage_count=%d >= threshold, avg_feedback=%.2f >= %s",
		usageCount, avgFeedback, formatThreshold(s.cfg.MinFeedbackScore))
}

// formatThreshold renders the feedback threshold with at least one decimal.
func formatThreshold(v float64) string {
	s := fmt.Sprintf("%v", v)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ForcePromote promotes an entry regardless of its counters. The record
// is marked manual, so it never blocks a later automatic promotion.
func (s *PromotionService) ForcePromote(ctx context.Context, entryID string, toTier domain.Tier, reason string) (*PromotedEntry, error) {
	ctx, span := telemetry.StartSpan(ctx, "PromotionService.ForcePromote", telemetry.SpanAttributes{
		EntryID:   entryID,
		Tier:      string(toTier),
		Operation: "force_promote",
	})
	defer span.End()

	if !domain.IsValidTier(toTier) {
		return nil, domain.ErrInvalidTier
	}
	if reason == "" {
		reason = "Manual promotion"
	}

	entry, err := s.knowledgeRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &domain.PromotionRecord{
		ID:          s.uuidGen.NewString(),
		EntryID:     entry.ID,
		FromTier:    entry.Tier,
		ToTier:      toTier,
		Reason:      reason,
		UsageCount:  entry.UsageCount,
		AvgFeedback: entry.AvgFeedbackScore,
		Automatic:   false,
		PromotedAt:  now,
	}
	if err := domain.ValidatePromotionRecord(record); err != nil {
		return nil, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Knowledge().UpdateTier(ctx, entry.ID, toTier); err != nil {
			return err
		}
		return repos.Promotions().Insert(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	return &PromotedEntry{
		ID:          entry.ID,
		Title:       entry.Title,
		FromTier:    entry.Tier,
		ToTier:      toTier,
		Reason:      reason,
		UsageCount:  entry.UsageCount,
		AvgFeedback: entry.AvgFeedbackScore,
		PromotedAt:  now,
	}, nil
}

// Candidates returns the entries within reach of their promotion
// threshold (70% of required usage), keyed by transition.
func (s *PromotionService) Candidates(ctx context.Context) (map[string][]*PromotionCandidate, error) {
	ctx, span := telemetry.StartSpan(ctx, "PromotionService.Candidates", telemetry.SpanAttributes{
		Operation: "candidates",
	})
	defer span.End()

	candidates := map[string][]*PromotionCandidate{
		"L3_to_L2": {},
		"L2_to_L1": {},
	}

	l3Entries, err := s.knowledgeRepo.ListNearPromotion(ctx, domain.TierL3, float64(s.cfg.L3ToL2Threshold)*0.7)
	if err != nil {
		return nil, err
	}
	for _, entry := range l3Entries {
		candidates["L3_to_L2"] = append(candidates["L3_to_L2"], s.candidate(entry, s.cfg.L3ToL2Threshold))
	}

	l2Entries, err := s.knowledgeRepo.ListNearPromotion(ctx, domain.TierL2, float64(s.cfg.L2ToL1Threshold)*0.7)
	if err != nil {
		return nil, err
	}
	for _, entry := range l2Entries {
		candidates["L2_to_L1"] = append(candidates["L2_to_L1"], s.candidate(entry, s.cfg.L2ToL1Threshold))
	}

	return candidates, nil
}

func (s *PromotionService) candidate(entry *domain.KnowledgeEntry, threshold int) *PromotionCandidate {
	progress := math.Min(100, float64(entry.UsageCount)/float64(threshold)*100)
	return &PromotionCandidate{
		ID:                entry.ID,
		Title:             entry.Title,
		UsageCount:        entry.UsageCount,
		Threshold:         threshold,
		ProgressPercent:   math.RoundToEven(progress*10) / 10,
		AvgFeedback:       entry.AvgFeedbackScore,
		FeedbackQualified: entry.AvgFeedbackScore >= s.cfg.MinFeedbackScore,
	}
}

// History returns promotion records newest first, optionally filtered to
// one entry.
func (s *PromotionService) History(ctx context.Context, entryID string, limit int) ([]*domain.PromotionRecord, error) {
	ctx, span := telemetry.StartSpan(ctx, "PromotionService.History", telemetry.SpanAttributes{
		EntryID:   entryID,
		Operation: "history",
	})
	defer span.End()

	if limit <= 0 {
		limit = 50
	}

	return s.promotionRepo.History(ctx, entryID, limit)
}
