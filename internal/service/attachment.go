package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/whyvarun/support-IQ/internal/domain"
)

// StorageClientInterface defines the object storage operations used for
// ticket attachments. Uploads and downloads go through presigned URLs so
// file bytes never pass through the API.
type StorageClientInterface interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	HeadObject(ctx context.Context, key string) (*ObjectMetadata, error)
}

// ObjectMetadata describes a stored object
type ObjectMetadata struct {
	ContentLength int64
	ContentType   string
	ETag          string
}

// AttachmentRepositoryInterface defines the repository interface for attachment persistence
type AttachmentRepositoryInterface interface {
	Create(ctx context.Context, a *domain.Attachment) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error)
	Delete(ctx context.Context, id string) error
}

// AttachmentService handles ticket attachments backed by object storage
type AttachmentService struct {
	attachmentRepo AttachmentRepositoryInterface
	ticketRepo     TicketRepositoryInterface
	storageClient  StorageClientInterface
	uuidGen        UUIDGenerator
}

// NewAttachmentService creates a new AttachmentService instance
func NewAttachmentService(
	attachmentRepo AttachmentRepositoryInterface,
	ticketRepo TicketRepositoryInterface,
	storageClient StorageClientInterface,
) *AttachmentService {
	return &AttachmentService{
		attachmentRepo: attachmentRepo,
		ticketRepo:     ticketRepo,
		storageClient:  storageClient,
		uuidGen:        &DefaultUUIDGenerator{},
	}
}

// NewAttachmentServiceWithUUIDGen creates an AttachmentService with a custom UUID generator (for testing)
func NewAttachmentServiceWithUUIDGen(
	attachmentRepo AttachmentRepositoryInterface,
	ticketRepo TicketRepositoryInterface,
	storageClient StorageClientInterface,
	uuidGen UUIDGenerator,
) *AttachmentService {
	svc := NewAttachmentService(attachmentRepo, ticketRepo, storageClient)
	svc.uuidGen = uuidGen
	return svc
}

// InitUploadInput represents the input for starting an attachment upload
type InitUploadInput struct {
	TicketID    string
	Filename    string
	ContentType string
}

// InitUploadResult carries the presigned URL the client uploads to
type InitUploadResult struct {
	AttachmentID string `json:"attachment_id"`
	StorageKey   string `json:"storage_key"`
	UploadURL    string `json:"upload_url"`
}

// InitUpload issues a presigned upload URL for a new attachment.
// The attachment record is only persisted once the upload completes.
func (s *AttachmentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if input.TicketID == "" || input.Filename == "" {
		return nil, domain.ErrMissingRequiredField
	}

	if _, err := s.ticketRepo.GetByID(ctx, input.TicketID); err != nil {
		return nil, err
	}

	attachmentID := s.uuidGen.NewString()
	storageKey := buildStorageKey(input.TicketID, attachmentID, input.Filename)

	uploadURL, err := s.storageClient.GenerateUploadURL(ctx, storageKey, input.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	return &InitUploadResult{
		AttachmentID: attachmentID,
		StorageKey:   storageKey,
		UploadURL:    uploadURL,
	}, nil
}

// CompleteUploadInput represents the input for finishing an attachment upload
type CompleteUploadInput struct {
	AttachmentID string
	TicketID     string
	Filename     string
	ContentType  string
	StorageKey   string
	SHA256       string
}

// CompleteUpload verifies the object landed in storage and persists the
// attachment record.
func (s *AttachmentService) CompleteUpload(ctx context.Context, input CompleteUploadInput) (*domain.Attachment, error) {
	meta, err := s.storageClient.HeadObject(ctx, input.StorageKey)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNotFound, "uploaded file not found in storage", err)
	}

	attachment := &domain.Attachment{
		ID:          input.AttachmentID,
		TicketID:    input.TicketID,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		SizeBytes:   meta.ContentLength,
		StorageKey:  input.StorageKey,
		SHA256:      strings.ToLower(input.SHA256),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.attachmentRepo.Create(ctx, attachment); err != nil {
		return nil, fmt.Errorf("failed to create attachment record: %w", err)
	}

	return attachment, nil
}

// GetDownloadURL returns a presigned download URL for an attachment
func (s *AttachmentService) GetDownloadURL(ctx context.Context, attachmentID string) (string, error) {
	attachment, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return "", err
	}

	url, err := s.storageClient.GenerateDownloadURL(ctx, attachment.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}

	return url, nil
}

// ListByTicket returns a ticket's attachments
func (s *AttachmentService) ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error) {
	return s.attachmentRepo.ListByTicket(ctx, ticketID)
}

// Delete removes an attachment from storage and the database
func (s *AttachmentService) Delete(ctx context.Context, attachmentID string) error {
	attachment, err := s.attachmentRepo.GetByID(ctx, attachmentID)
	if err != nil {
		return err
	}

	if err := s.storageClient.DeleteObject(ctx, attachment.StorageKey); err != nil {
		return fmt.Errorf("failed to delete from storage: %w", err)
	}

	if err := s.attachmentRepo.Delete(ctx, attachmentID); err != nil {
		return fmt.Errorf("failed to delete attachment record: %w", err)
	}

	return nil
}

func buildStorageKey(ticketID, attachmentID, filename string) string {
	return fmt.Sprintf("tickets/%s/%s/%s", ticketID, attachmentID, filename)
}
