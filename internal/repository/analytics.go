package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/whyvarun/support-IQ/internal/service"
)

// AnalyticsRepository runs the aggregate queries behind the dashboard.
type AnalyticsRepository struct {
	pool *pgxpool.Pool
}

func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepository {
	return &AnalyticsRepository{pool: pool}
}

func (r *AnalyticsRepository) TicketCounts(ctx context.Context) (*service.TicketCounts, error) {
	var counts service.TicketCounts
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'open'),
		        COUNT(*) FILTER (WHERE status = 'resolved')
		 FROM tickets`,
	).Scan(&counts.Total, &counts.Open, &counts.Resolved)
	if err != nil {
		return nil, err
	}
	return &counts, nil
}

func (r *AnalyticsRepository) AvgResolutionTimeMinutes(ctx context.Context) (*float64, error) {
	var avg *float64
	err := r.pool.QueryRow(ctx,
		`SELECT AVG(resolution_time_minutes) FROM resolutions`,
	).Scan(&avg)
	if err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *AnalyticsRepository) AvgFeedbackScore(ctx context.Context) (*float64, error) {
	var avg *float64
	err := r.pool.QueryRow(ctx,
		`SELECT AVG(feedback_score) FROM resolutions WHERE feedback_score IS NOT NULL`,
	).Scan(&avg)
	if err != nil {
		return nil, err
	}
	return avg, nil
}

func (r *AnalyticsRepository) UrgencyDistribution(ctx context.Context) (map[string]int, error) {
	return r.distribution(ctx,
		`SELECT COALESCE(urgency_level::text, 'unknown'), COUNT(*) FROM tickets GROUP BY urgency_level`)
}

func (r *AnalyticsRepository) TierDistribution(ctx context.Context) (map[string]int, error) {
	return r.distribution(ctx,
		`SELECT COALESCE(assigned_tier::text, 'unknown'), COUNT(*) FROM tickets GROUP BY assigned_tier`)
}

func (r *AnalyticsRepository) CategoryDistribution(ctx context.Context) (map[string]int, error) {
	return r.distribution(ctx,
		`SELECT category, COUNT(*) FROM tickets WHERE category IS NOT NULL GROUP BY category`)
}

func (r *AnalyticsRepository) distribution(ctx context.Context, query string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		dist[key] = count
	}
	return dist, rows.Err()
}

func (r *AnalyticsRepository) KnowledgeTierStats(ctx context.Context) (map[string]*service.TierStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tier, COUNT(*), COALESCE(AVG(usage_count), 0), COALESCE(AVG(avg_feedback_score), 0)
		 FROM knowledge_entries
		 WHERE is_active = true
		 GROUP BY tier`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]*service.TierStats)
	for rows.Next() {
		var tier string
		var s service.TierStats
		if err := rows.Scan(&tier, &s.Count, &s.AvgUsage, &s.AvgFeedback); err != nil {
			return nil, err
		}
		stats[tier] = &s
	}
	return stats, rows.Err()
}
