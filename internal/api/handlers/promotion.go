package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type PromotionService interface {
	CheckAndPromote(ctx context.Context) ([]*service.PromotedEntry, error)
	ForcePromote(ctx context.Context, entryID string, toTier domain.Tier, reason string) (*service.PromotedEntry, error)
	Candidates(ctx context.Context) (map[string][]*service.PromotionCandidate, error)
	History(ctx context.Context, entryID string, limit int) ([]*domain.PromotionRecord, error)
}

type PromotionHandler struct {
	svc PromotionService
}

func NewPromotionHandler(svc PromotionService) *PromotionHandler {
	return &PromotionHandler{svc: svc}
}

type RunPromotionsResponse struct {
	Promotions []*service.PromotedEntry `json:"promotions"`
	Count      int                      `json:"count"`
	Message    string                   `json:"message"`
}

// Run sweeps both tier transitions and promotes every qualified entry.
func (h *PromotionHandler) Run(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.svc.CheckAndPromote(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &RunPromotionsResponse{
		Promotions: promotions,
		Count:      len(promotions),
		Message:    fmt.Sprintf("Auto-promotion completed. %d entries promoted.", len(promotions)),
	})
}

func (h *PromotionHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.svc.Candidates(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"candidates": candidates,
	})
}

type ForcePromoteRequest struct {
	ToTier string `json:"to_tier"`
	Reason string `json:"reason"`
}

func (h *PromotionHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ForcePromoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	toTier := domain.Tier(req.ToTier)
	if !domain.IsValidTier(toTier) {
		api.HandleError(w, domain.ErrInvalidTier)
		return
	}

	promoted, err := h.svc.ForcePromote(r.Context(), id, toTier, req.Reason)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, promoted)
}

type PromotionRecordResponse struct {
	ID          string  `json:"id"`
	EntryID     string  `json:"knowledge_id"`
	FromTier    string  `json:"from_tier"`
	ToTier      string  `json:"to_tier"`
	Reason      string  `json:"reason"`
	UsageCount  int     `json:"usage_count"`
	AvgFeedback float64 `json:"avg_feedback"`
	Automatic   bool    `json:"automatic"`
	PromotedAt  string  `json:"promoted_at"`
}

type PromotionHistoryResponse struct {
	History []*PromotionRecordResponse `json:"history"`
	Count   int                        `json:"count"`
}

func (h *PromotionHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	history, err := h.svc.History(r.Context(), r.URL.Query().Get("knowledge_id"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	records := make([]*PromotionRecordResponse, 0, len(history))
	for _, p := range history {
		records = append(records, &PromotionRecordResponse{
			ID:          p.ID,
			EntryID:     p.EntryID,
			FromTier:    string(p.FromTier),
			ToTier:      string(p.ToTier),
			Reason:      p.Reason,
			UsageCount:  p.UsageCount,
			AvgFeedback: p.AvgFeedback,
			Automatic:   p.Automatic,
			PromotedAt:  p.PromotedAt.Format("2006-01-02T15:04:05Z"),
		})
	}

	api.Success(w, http.StatusOK, &PromotionHistoryResponse{
		History: records,
		Count:   len(records),
	})
}
