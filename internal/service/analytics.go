package service

import (
	"context"

	"github.com/whyvarun/support-IQ/internal/telemetry"
)

// TicketCounts holds the headline ticket totals
type TicketCounts struct {
	Total    int
	Open     int
	Resolved int
}

// TierStats summarizes the knowledge base entries of one tier
type TierStats struct {
	Count       int     `json:"count"`
	AvgUsage    float64 `json:"avg_usage"`
	AvgFeedback float64 `json:"avg_feedback"`
}

// AnalyticsRepositoryInterface defines the aggregate queries behind the dashboard
type AnalyticsRepositoryInterface interface {
	TicketCounts(ctx context.Context) (*TicketCounts, error)
	AvgResolutionTimeMinutes(ctx context.Context) (*float64, error)
	AvgFeedbackScore(ctx context.Context) (*float64, error)
	UrgencyDistribution(ctx context.Context) (map[string]int, error)
	TierDistribution(ctx context.Context) (map[string]int, error)
	CategoryDistribution(ctx context.Context) (map[string]int, error)
	KnowledgeTierStats(ctx context.Context) (map[string]*TierStats, error)
}

// AnalyticsOverview is the dashboard payload
type AnalyticsOverview struct {
	TotalTickets             int                   `json:"total_tickets"`
	OpenTickets              int                   `json:"open_tickets"`
	ResolvedTickets          int                   `json:"resolved_tickets"`
	AvgResolutionTimeMinutes *float64              `json:"avg_resolution_time_minutes"`
	UrgencyDistribution      map[string]int        `json:"urgency_distribution"`
	TierDistribution         map[string]int        `json:"tier_distribution"`
	CategoryDistribution     map[string]int        `json:"category_distribution"`
	AvgFeedbackScore         *float64              `json:"avg_feedback_score"`
	KnowledgeBaseStats       map[string]*TierStats `json:"knowledge_base_stats"`
}

// AnalyticsService aggregates ticket and knowledge base statistics
type AnalyticsService struct {
	repo AnalyticsRepositoryInterface
}

// NewAnalyticsService creates a new AnalyticsService instance
func NewAnalyticsService(repo AnalyticsRepositoryInterface) *AnalyticsService {
	return &AnalyticsService{repo: repo}
}

// Overview collects the dashboard statistics in one pass
func (s *AnalyticsService) Overview(ctx context.Context) (*AnalyticsOverview, error) {
	ctx, span := telemetry.StartSpan(ctx, "AnalyticsService.Overview", telemetry.SpanAttributes{
		Operation: "overview",
	})
	defer span.End()

	counts, err := s.repo.TicketCounts(ctx)
	if err != nil {
		return nil, err
	}

	avgResolution, err := s.repo.AvgResolutionTimeMinutes(ctx)
	if err != nil {
		return nil, err
	}

	avgFeedback, err := s.repo.AvgFeedbackScore(ctx)
	if err != nil {
		return nil, err
	}

	urgencyDist, err := s.repo.UrgencyDistribution(ctx)
	if err != nil {
		return nil, err
	}

	tierDist, err := s.repo.TierDistribution(ctx)
	if err != nil {
		return nil, err
	}

	categoryDist, err := s.repo.CategoryDistribution(ctx)
	if err != nil {
		return nil, err
	}

	kbStats, err := s.repo.KnowledgeTierStats(ctx)
	if err != nil {
		return nil, err
	}

	return &AnalyticsOverview{
		TotalTickets:             counts.Total,
		OpenTickets:              counts.Open,
		ResolvedTickets:          counts.Resolved,
		AvgResolutionTimeMinutes: avgResolution,
		UrgencyDistribution:      urgencyDist,
		TierDistribution:         tierDist,
		CategoryDistribution:     categoryDist,
		AvgFeedbackScore:         avgFeedback,
		KnowledgeBaseStats:       kbStats,
	}, nil
}
