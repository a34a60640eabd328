package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/pagination"
	"github.com/whyvarun/support-IQ/internal/service"
)

type TicketRepository struct {
	db dbtx
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: pool}
}

func NewTicketRepositoryWithTx(tx pgx.Tx) *TicketRepository {
	return &TicketRepository{db: tx}
}

func (r *TicketRepository) Create(ctx context.Context, t *domain.Ticket) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tickets (id, title, description, status, urgency_score, urgency_level, sentiment_score, sentiment_label, category, assigned_tier, user_email, created_at, updated_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		t.ID, t.Title, t.Description, t.Status, t.UrgencyScore, t.UrgencyLevel, t.SentimentScore,
		nullableString(t.SentimentLabel), nullableString(t.Category), t.AssignedTier,
		nullableString(t.UserEmail), t.CreatedAt, t.UpdatedAt, t.ResolvedAt,
	)
	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	var sentimentLabel, category, userEmail *string
	err := r.db.QueryRow(ctx,
		`SELECT id, title, description, status, urgency_score, urgency_level, sentiment_score, sentiment_label, category, assigned_tier, user_email, created_at, updated_at, resolved_at
		 FROM tickets WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UrgencyScore, &t.UrgencyLevel,
		&t.SentimentScore, &sentimentLabel, &category, &t.AssignedTier, &userEmail,
		&t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	if sentimentLabel != nil {
		t.SentimentLabel = *sentimentLabel
	}
	if category != nil {
		t.Category = *category
	}
	if userEmail != nil {
		t.UserEmail = *userEmail
	}
	return &t, nil
}

// ListWithCursor pages tickets by (urgency_score, created_at, id)
// descending; the keyset comparison uses the same compound key.
func (r *TicketRepository) ListWithCursor(ctx context.Context, filter service.TicketFilter, cursor *pagination.Cursor, limit int) (*service.TicketPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, title, description, status, urgency_score, urgency_level, sentiment_score, sentiment_label, category, assigned_tier, user_email, created_at, updated_at, resolved_at
		 FROM tickets WHERE 1=1`
	var args []interface{}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status = $` + itoa(len(args))
	}
	if filter.UrgencyLevel != "" {
		args = append(args, filter.UrgencyLevel)
		query += ` AND urgency_level = $` + itoa(len(args))
	}
	if filter.Tier != "" {
		args = append(args, filter.Tier)
		query += ` AND assigned_tier = $` + itoa(len(args))
	}
	if cursor != nil {
		args = append(args, cursor.Score)
		scoreArg := itoa(len(args))
		args = append(args, cursor.Timestamp)
		tsArg := itoa(len(args))
		args = append(args, cursor.LastID)
		query += ` AND (urgency_score, created_at, id) < ($` + scoreArg + `, $` + tsArg + `, $` + itoa(len(args)) + `)`
	}

	args = append(args, limit+1)
	query += ` ORDER BY urgency_score DESC, created_at DESC, id DESC LIMIT $` + itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanTicketRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.CreatedAt, lastItem.UrgencyScore)
	}

	return &service.TicketPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *TicketRepository) StoreEmbedding(ctx context.Context, ticketID string, embedding []float32) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ticket_embeddings (ticket_id, embedding, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (ticket_id) DO UPDATE SET embedding = EXCLUDED.embedding`,
		ticketID, pgvector.NewVector(embedding), time.Now().UTC(),
	)
	return err
}

func (r *TicketRepository) GetEmbedding(ctx context.Context, ticketID string) ([]float32, error) {
	var vec pgvector.Vector
	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM ticket_embeddings WHERE ticket_id = $1`,
		ticketID,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, err
	}
	return vec.Slice(), nil
}

func (r *TicketRepository) MarkResolved(ctx context.Context, ticketID string, resolvedAt time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE tickets SET status = $1, resolved_at = $2, updated_at = $2 WHERE id = $3`,
		domain.TicketStatusResolved, resolvedAt, ticketID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRepository) CreateResolution(ctx context.Context, res *domain.Resolution) error {
	var feedback *int
	if res.FeedbackScore != 0 {
		feedback = &res.FeedbackScore
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO resolutions (id, ticket_id, solution, resolution_source, resolution_time_minutes, feedback_score, feedback_comment, resolved_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		res.ID, res.TicketID, res.Solution, nullableString(res.Source), res.ResolutionTimeMinutes,
		feedback, nullableString(res.FeedbackComment), nullableString(res.ResolvedBy), res.CreatedAt,
	)
	return err
}

// FindSimilarResolved ranks resolved and closed tickets by cosine
// similarity to the given embedding, joining any recorded solution.
func (r *TicketRepository) FindSimilarResolved(ctx context.Context, embedding []float32, limit int) ([]*service.SimilarTicket, error) {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.title, t.description, t.status, COALESCE(t.category, ''),
		        COALESCE(r.solution, ''), COALESCE(r.feedback_score, 0),
		        1 - (te.embedding <=> $1) AS similarity
		 FROM tickets t
		 JOIN ticket_embeddings te ON t.id = te.ticket_id
		 LEFT JOIN resolutions r ON t.id = r.ticket_id
		 WHERE t.status IN ('resolved', 'closed')
		 ORDER BY similarity DESC
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*service.SimilarTicket
	for rows.Next() {
		var st service.SimilarTicket
		if err := rows.Scan(&st.ID, &st.Title, &st.Description, &st.Status, &st.Category,
			&st.Solution, &st.FeedbackScore, &st.Similarity); err != nil {
			return nil, err
		}
		results = append(results, &st)
	}
	return results, rows.Err()
}

func scanTicketRows(rows pgx.Rows) ([]*domain.Ticket, error) {
	var results []*domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		var sentimentLabel, category, userEmail *string
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.UrgencyScore, &t.UrgencyLevel,
			&t.SentimentScore, &sentimentLabel, &category, &t.AssignedTier, &userEmail,
			&t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt); err != nil {
			return nil, err
		}
		if sentimentLabel != nil {
			t.SentimentLabel = *sentimentLabel
		}
		if category != nil {
			t.Category = *category
		}
		if userEmail != nil {
			t.UserEmail = *userEmail
		}
		results = append(results, &t)
	}
	return results, rows.Err()
}
