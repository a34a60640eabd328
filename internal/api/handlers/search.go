package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type SearchService interface {
	HybridSearch(ctx context.Context, query string, tier domain.Tier, limit int) ([]*service.SearchResult, error)
	SearchTiered(ctx context.Context, input service.TieredSearchInput) (*service.TieredSearchOutput, error)
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	Query   string `json:"query"`
	Tier    string `json:"tier"`
	TopK    int    `json:"top_k"`
	Cascade bool   `json:"cascade"`
}

type SearchResponse struct {
	Results       []*service.SearchResult `json:"results"`
	SearchedTiers []domain.Tier           `json:"searched_tiers"`
	TotalFound    int                     `json:"total_found"`
	Query         string                  `json:"query"`
}

// Search runs a hybrid knowledge search. With cascade enabled it walks
// tiers from the requested start tier; without it, it queries a single
// tier (or all tiers when none is given).
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.HandleError(w, domain.ErrEmptyQuery)
		return
	}

	tier := domain.Tier(req.Tier)
	if req.Tier != "" && !domain.IsValidTier(tier) {
		api.HandleError(w, domain.ErrInvalidTier)
		return
	}

	if req.Cascade {
		startTier := tier
		if startTier == "" {
			startTier = domain.TierL1
		}
		out, err := h.svc.SearchTiered(r.Context(), service.TieredSearchInput{
			Query:     req.Query,
			StartTier: startTier,
			Cascade:   true,
		})
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusOK, &SearchResponse{
			Results:       out.Results,
			SearchedTiers: out.SearchedTiers,
			TotalFound:    out.TotalFound,
			Query:         out.Query,
		})
		return
	}

	results, err := h.svc.HybridSearch(r.Context(), req.Query, tier, req.TopK)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if results == nil {
		results = []*service.SearchResult{}
	}

	searchedTiers := []domain.Tier{tier}
	if tier == "" {
		searchedTiers = domain.TierOrder
	}

	api.Success(w, http.StatusOK, &SearchResponse{
		Results:       results,
		SearchedTiers: searchedTiers,
		TotalFound:    len(results),
		Query:         req.Query,
	})
}
