package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/whyvarun/support-IQ/internal/domain"
)

type PromotionRepository struct {
	db dbtx
}

func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{db: pool}
}

func NewPromotionRepositoryWithTx(tx pgx.Tx) *PromotionRepository {
	return &PromotionRepository{db: tx}
}

// InsertAutomatic relies on the partial unique index over
// (entry_id, from_tier, to_tier) WHERE automatic: a second automatic
// promotion through the same transition hits the conflict and inserts
// nothing, which is how repeated sweeps stay idempotent.
func (r *PromotionRepository) InsertAutomatic(ctx context.Context, rec *domain.PromotionRecord) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`INSERT INTO promotion_history (id, entry_id, from_tier, to_tier, reason, usage_count, avg_feedback, automatic, promoted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8)
		 ON CONFLICT (entry_id, from_tier, to_tier) WHERE automatic DO NOTHING`,
		rec.ID, rec.EntryID, rec.FromTier, rec.ToTier, rec.Reason, rec.UsageCount, rec.AvgFeedback, rec.PromotedAt,
	)
	if err != nil {
		return false, err
	}
	return cmdTag.RowsAffected() > 0, nil
}

func (r *PromotionRepository) Insert(ctx context.Context, rec *domain.PromotionRecord) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO promotion_history (id, entry_id, from_tier, to_tier, reason, usage_count, avg_feedback, automatic, promoted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.EntryID, rec.FromTier, rec.ToTier, rec.Reason, rec.UsageCount, rec.AvgFeedback, rec.Automatic, rec.PromotedAt,
	)
	return err
}

func (r *PromotionRepository) History(ctx context.Context, entryID string, limit int) ([]*domain.PromotionRecord, error) {
	query := `SELECT id, entry_id, from_tier, to_tier, reason, usage_count, avg_feedback, automatic, promoted_at
		 FROM promotion_history`
	var args []interface{}

	if entryID != "" {
		args = append(args, entryID)
		query += ` WHERE entry_id = $1`
	}

	args = append(args, limit)
	query += ` ORDER BY promoted_at DESC, id DESC LIMIT $` + itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PromotionRecord
	for rows.Next() {
		var rec domain.PromotionRecord
		if err := rows.Scan(&rec.ID, &rec.EntryID, &rec.FromTier, &rec.ToTier, &rec.Reason,
			&rec.UsageCount, &rec.AvgFeedback, &rec.Automatic, &rec.PromotedAt); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
