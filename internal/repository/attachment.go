package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/whyvarun/support-IQ/internal/domain"
)

type AttachmentRepository struct {
	db dbtx
}

func NewAttachmentRepository(pool *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: pool}
}

func NewAttachmentRepositoryWithTx(tx pgx.Tx) *AttachmentRepository {
	return &AttachmentRepository{db: tx}
}

func (r *AttachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ticket_attachments (id, ticket_id, filename, content_type, size_bytes, storage_key, sha256, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TicketID, a.Filename, nullableString(a.ContentType), a.SizeBytes, a.StorageKey,
		nullableString(a.SHA256), a.CreatedAt,
	)
	return err
}

func (r *AttachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	var a domain.Attachment
	var contentType, sha *string
	err := r.db.QueryRow(ctx,
		`SELECT id, ticket_id, filename, content_type, size_bytes, storage_key, sha256, created_at
		 FROM ticket_attachments WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.TicketID, &a.Filename, &contentType, &a.SizeBytes, &a.StorageKey, &sha, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, err
	}
	if contentType != nil {
		a.ContentType = *contentType
	}
	if sha != nil {
		a.SHA256 = *sha
	}
	return &a, nil
}

func (r *AttachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, ticket_id, filename, content_type, size_bytes, storage_key, sha256, created_at
		 FROM ticket_attachments WHERE ticket_id = $1 ORDER BY created_at ASC`,
		ticketID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		var contentType, sha *string
		if err := rows.Scan(&a.ID, &a.TicketID, &a.Filename, &contentType, &a.SizeBytes, &a.StorageKey, &sha, &a.CreatedAt); err != nil {
			return nil, err
		}
		if contentType != nil {
			a.ContentType = *contentType
		}
		if sha != nil {
			a.SHA256 = *sha
		}
		results = append(results, &a)
	}
	return results, rows.Err()
}

func (r *AttachmentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM ticket_attachments WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAttachmentNotFound
	}
	return nil
}
