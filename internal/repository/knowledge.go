package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

func (r *KnowledgeRepository) Create(ctx context.Context, entry *domain.KnowledgeEntry, embedding []float32) error {
	var vec *pgvector.Vector
	if embedding != nil {
		v := pgvector.NewVector(embedding)
		vec = &v
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_entries (id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID, entry.Tier, entry.Title, entry.Content, entry.Keywords, nullableString(entry.Category),
		entry.UsageCount, entry.SuccessRate, entry.AvgFeedbackScore, vec, entry.IsActive, entry.CreatedAt, entry.UpdatedAt,
	)
	return err
}

func (r *KnowledgeRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	var entry domain.KnowledgeEntry
	var category *string
	err := r.db.QueryRow(ctx,
		`SELECT id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding IS NOT NULL, is_active, created_at, updated_at
		 FROM knowledge_entries WHERE id = $1`,
		id,
	).Scan(&entry.ID, &entry.Tier, &entry.Title, &entry.Content, &entry.Keywords, &category,
		&entry.UsageCount, &entry.SuccessRate, &entry.AvgFeedbackScore, &entry.HasEmbedding,
		&entry.IsActive, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	if category != nil {
		entry.Category = *category
	}
	return &entry, nil
}

func (r *KnowledgeRepository) ListByTier(ctx context.Context, tier domain.Tier, category string, limit int) ([]*domain.KnowledgeEntry, error) {
	query := `SELECT id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding IS NOT NULL, is_active, created_at, updated_at
		 FROM knowledge_entries
		 WHERE tier = $1 AND is_active = true`
	args := []interface{}{tier}

	if category != "" {
		query += ` AND category = $2`
		args = append(args, category)
	}

	query += ` ORDER BY usage_count DESC LIMIT $` + itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *KnowledgeRepository) Categories(ctx context.Context, tier domain.Tier) ([]*service.CategorySummary, error) {
	query := `SELECT COALESCE(category, 'general'), tier, COUNT(*), COALESCE(AVG(avg_feedback_score), 0)
		 FROM knowledge_entries
		 WHERE is_active = true`
	args := []interface{}{}

	if tier != "" {
		query += ` AND tier = $1`
		args = append(args, tier)
	}

	query += ` GROUP BY category, tier ORDER BY COUNT(*) DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.CategorySummary
	for rows.Next() {
		var c service.CategorySummary
		if err := rows.Scan(&c.Category, &c.Tier, &c.Count, &c.AvgScore); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

// GetUsageForUpdate reads an entry's counters under a row lock. Callers
// must be inside a transaction or the lock releases immediately.
func (r *KnowledgeRepository) GetUsageForUpdate(ctx context.Context, id string) (*service.UsageSnapshot, error) {
	var snapshot service.UsageSnapshot
	err := r.db.QueryRow(ctx,
		`SELECT usage_count, success_rate, avg_feedback_score
		 FROM knowledge_entries WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&snapshot.UsageCount, &snapshot.SuccessRate, &snapshot.AvgFeedbackScore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (r *KnowledgeRepository) UpdateUsage(ctx context.Context, id string, usageCount int, successRate, avgFeedback float64) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET usage_count = $1, success_rate = $2, avg_feedback_score = $3, updated_at = $4
		 WHERE id = $5`,
		usageCount, successRate, avgFeedback, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *KnowledgeRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding IS NOT NULL, is_active, created_at, updated_at
		 FROM knowledge_entries
		 WHERE embedding IS NULL
		 ORDER BY created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET embedding = $1, updated_at = $2 WHERE id = $3`,
		pgvector.NewVector(embedding), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *KnowledgeRepository) ListEligibleForPromotion(ctx context.Context, tier domain.Tier, minUsage int, minFeedback float64) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding IS NOT NULL, is_active, created_at, updated_at
		 FROM knowledge_entries
		 WHERE tier = $1 AND is_active = true AND usage_count >= $2 AND avg_feedback_score >= $3
		 ORDER BY usage_count DESC`,
		tier, minUsage, minFeedback,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *KnowledgeRepository) ListNearPromotion(ctx context.Context, tier domain.Tier, minUsage float64) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tier, title, content, keywords, category, usage_count, success_rate, avg_feedback_score, embedding IS NOT NULL, is_active, created_at, updated_at
		 FROM knowledge_entries
		 WHERE tier = $1 AND is_active = true AND usage_count >= $2
		 ORDER BY usage_count DESC`,
		tier, minUsage,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntryRows(rows)
}

func (r *KnowledgeRepository) UpdateTier(ctx context.Context, id string, tier domain.Tier) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET tier = $1, updated_at = $2 WHERE id = $3`,
		tier, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

func (r *KnowledgeRepository) Deactivate(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_entries SET is_active = false, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// HybridSearch blends cosine similarity against the entry embedding with
// full-text rank over title and content. Scoring happens in SQL so only
// the top rows cross the wire. Ties break on id for a stable order.
func (r *KnowledgeRepository) HybridSearch(ctx context.Context, embedding []float32, query string, tier domain.Tier, weights service.HybridWeights, limit int) ([]*service.SearchResult, error) {
	vec := pgvector.NewVector(embedding)

	sql := `
		SELECT id, tier, title, content, keywords, COALESCE(category, ''), usage_count, avg_feedback_score,
		       1 - (embedding <=> $1) AS semantic_score,
		       ts_rank(to_tsvector('english', title || ' ' || content), plainto_tsquery('english', $2)) AS keyword_score,
		       (1 - (embedding <=> $1)) * $3 + ts_rank(to_tsvector('english', title || ' ' || content), plainto_tsquery('english', $2)) * $4 AS hybrid_score
		FROM knowledge_entries
		WHERE is_active = true AND embedding IS NOT NULL`
	args := []interface{}{vec, query, weights.Semantic, weights.Keyword}

	if tier != "" {
		sql += ` AND tier = $5`
		args = append(args, tier)
	}

	sql += ` ORDER BY hybrid_score DESC, id ASC LIMIT $` + itoa(len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.SearchResult
	for rows.Next() {
		var res service.SearchResult
		if err := rows.Scan(&res.ID, &res.Tier, &res.Title, &res.Content, &res.Keywords, &res.Category,
			&res.UsageCount, &res.AvgFeedbackScore, &res.SemanticScore, &res.KeywordScore, &res.HybridScore); err != nil {
			return nil, err
		}
		if res.Keywords == nil {
			res.Keywords = []string{}
		}
		results = append(results, &res)
	}
	return results, rows.Err()
}

func scanEntryRows(rows pgx.Rows) ([]*domain.KnowledgeEntry, error) {
	var results []*domain.KnowledgeEntry
	for rows.Next() {
		var entry domain.KnowledgeEntry
		var category *string
		if err := rows.Scan(&entry.ID, &entry.Tier, &entry.Title, &entry.Content, &entry.Keywords, &category,
			&entry.UsageCount, &entry.SuccessRate, &entry.AvgFeedbackScore, &entry.HasEmbedding,
			&entry.IsActive, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		if category != nil {
			entry.Category = *category
		}
		results = append(results, &entry)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
