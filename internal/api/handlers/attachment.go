package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type AttachmentService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.Attachment, error)
	GetDownloadURL(ctx context.Context, attachmentID string) (string, error)
	ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error)
	Delete(ctx context.Context, attachmentID string) error
}

type AttachmentHandler struct {
	svc AttachmentService
}

func NewAttachmentHandler(svc AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{svc: svc}
}

type InitUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type InitUploadResponse struct {
	AttachmentID string `json:"attachment_id"`
	StorageKey   string `json:"storage_key"`
	UploadURL    string `json:"upload_url"`
}

type CompleteUploadRequest struct {
	AttachmentID string `json:"attachment_id"`
	TicketID     string `json:"ticket_id"`
	StorageKey   string `json:"storage_key"`
	Filename     string `json:"filename"`
	ContentType  string `json:"content_type"`
	SHA256       string `json:"sha256"`
}

type AttachmentResponse struct {
	ID          string `json:"id"`
	TicketID    string `json:"ticket_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	SHA256      string `json:"sha256"`
	CreatedAt   string `json:"created_at"`
}

type DownloadURLResponse struct {
	DownloadURL string `json:"download_url"`
}

func attachmentToResponse(a *domain.Attachment) *AttachmentResponse {
	return &AttachmentResponse{
		ID:          a.ID,
		TicketID:    a.TicketID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		SHA256:      a.SHA256,
		CreatedAt:   a.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *AttachmentHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		api.Error(w, http.StatusBadRequest, "ticket id is required")
		return
	}

	var req InitUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		TicketID:    ticketID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &InitUploadResponse{
		AttachmentID: result.AttachmentID,
		StorageKey:   result.StorageKey,
		UploadURL:    result.UploadURL,
	})
}

func (h *AttachmentHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	var req CompleteUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.AttachmentID == "" || req.TicketID == "" || req.StorageKey == "" {
		api.Error(w, http.StatusBadRequest, "attachment_id, ticket_id and storage_key are required")
		return
	}

	attachment, err := h.svc.CompleteUpload(r.Context(), service.CompleteUploadInput{
		AttachmentID: req.AttachmentID,
		TicketID:     req.TicketID,
		Filename:     req.Filename,
		ContentType:  req.ContentType,
		StorageKey:   req.StorageKey,
		SHA256:       req.SHA256,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, attachmentToResponse(attachment))
}

func (h *AttachmentHandler) GetDownloadURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.GetDownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &DownloadURLResponse{DownloadURL: url})
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		api.Error(w, http.StatusBadRequest, "ticket id is required")
		return
	}

	attachments, err := h.svc.ListByTicket(r.Context(), ticketID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		responses = append(responses, attachmentToResponse(a))
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"attachments": responses,
	})
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
