package handlers

import (
	"context"
	"net/http"

	"github.com/whyvarun/support-IQ/internal/api"
	"github.com/whyvarun/support-IQ/internal/service"
)

type AnalyticsService interface {
	Overview(ctx context.Context) (*service.AnalyticsOverview, error)
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.svc.Overview(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, overview)
}
