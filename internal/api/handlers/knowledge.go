package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type KnowledgeService interface {
	CreateEntry(ctx context.Context, input service.CreateEntryInput) (*domain.KnowledgeEntry, error)
	GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error)
	ListByTier(ctx context.Context, tier domain.Tier, category string, limit int) ([]*domain.KnowledgeEntry, error)
	Categories(ctx context.Context, tier domain.Tier) ([]*service.CategorySummary, error)
	DeactivateEntry(ctx context.Context, id string) error
}

type KnowledgeHandler struct {
	svc KnowledgeService
}

func NewKnowledgeHandler(svc KnowledgeService) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc}
}

type CreateEntryRequest struct {
	Tier     string   `json:"tier"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
	Category string   `json:"category"`
}

type KnowledgeEntryResponse struct {
	ID               string   `json:"id"`
	Tier             string   `json:"tier"`
	Title            string   `json:"title"`
	Content          string   `json:"content"`
	Keywords         []string `json:"keywords"`
	Category         string   `json:"category"`
	UsageCount       int      `json:"usage_count"`
	SuccessRate      float64  `json:"success_rate"`
	AvgFeedbackScore float64  `json:"avg_feedback_score"`
	HasEmbedding     bool     `json:"has_embedding"`
	IsActive         bool     `json:"is_active"`
	CreatedAt        string   `json:"created_at"`
}

func entryToResponse(e *domain.KnowledgeEntry) *KnowledgeEntryResponse {
	keywords := e.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &KnowledgeEntryResponse{
		ID:               e.ID,
		Tier:             string(e.Tier),
		Title:            e.Title,
		Content:          e.Content,
		Keywords:         keywords,
		Category:         e.Category,
		UsageCount:       e.UsageCount,
		SuccessRate:      e.SuccessRate,
		AvgFeedbackScore: e.AvgFeedbackScore,
		HasEmbedding:     e.HasEmbedding,
		IsActive:         e.IsActive,
		CreatedAt:        e.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Content == "" {
		api.Error(w, http.StatusBadRequest, "content is required")
		return
	}

	tier := domain.Tier(req.Tier)
	if !domain.IsValidTier(tier) {
		api.HandleError(w, domain.ErrInvalidTier)
		return
	}

	entry, err := h.svc.CreateEntry(r.Context(), service.CreateEntryInput{
		Tier:     tier,
		Title:    req.Title,
		Content:  req.Content,
		Keywords: req.Keywords,
		Category: req.Category,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	entry, err := h.svc.GetEntry(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

type ListKnowledgeResponse struct {
	KnowledgeBase []*KnowledgeEntryResponse `json:"knowledge_base"`
	Count         int                       `json:"count"`
}

// List returns entries for one tier, or a slice of each tier when no
// tier filter is given.
func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	category := r.URL.Query().Get("category")

	var entries []*domain.KnowledgeEntry
	if rawTier := r.URL.Query().Get("tier"); rawTier != "" {
		tier := domain.Tier(rawTier)
		if !domain.IsValidTier(tier) {
			api.HandleError(w, domain.ErrInvalidTier)
			return
		}
		var err error
		entries, err = h.svc.ListByTier(r.Context(), tier, category, limit)
		if err != nil {
			api.HandleError(w, err)
			return
		}
	} else {
		for _, tier := range domain.TierOrder {
			tierEntries, err := h.svc.ListByTier(r.Context(), tier, category, limit/len(domain.TierOrder))
			if err != nil {
				api.HandleError(w, err)
				return
			}
			entries = append(entries, tierEntries...)
		}
	}

	responses := make([]*KnowledgeEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, entryToResponse(e))
	}

	api.Success(w, http.StatusOK, &ListKnowledgeResponse{
		KnowledgeBase: responses,
		Count:         len(responses),
	})
}

func (h *KnowledgeHandler) Categories(w http.ResponseWriter, r *http.Request) {
	tier := domain.Tier(r.URL.Query().Get("tier"))

	categories, err := h.svc.Categories(r.Context(), tier)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if categories == nil {
		categories = []*service.CategorySummary{}
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
	})
}

func (h *KnowledgeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.DeactivateEntry(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
