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

type TicketService interface {
	CreateTicket(ctx context.Context, input service.CreateTicketInput) (*service.CreateTicketOutput, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	ListTickets(ctx context.Context, input service.ListTicketsInput) (*service.TicketPageResult, error)
	ResolveTicket(ctx context.Context, input service.ResolveTicketInput) (*service.ResolveTicketOutput, error)
	FindSimilar(ctx context.Context, ticketID string, limit int) ([]*service.SimilarTicket, error)
}

type UrgencyAnalyzer interface {
	Calculate(ctx context.Context, input service.UrgencyInput) (*service.UrgencyResult, error)
}

type TicketHandler struct {
	svc      TicketService
	analyzer UrgencyAnalyzer
}

func NewTicketHandler(svc TicketService, analyzer UrgencyAnalyzer) *TicketHandler {
	return &TicketHandler{svc: svc, analyzer: analyzer}
}

type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	UserTier    string `json:"user_tier"`
	UserEmail   string `json:"user_email"`
}

type TicketResponse struct {
	ID             string  `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	UrgencyScore   int     `json:"urgency_score"`
	UrgencyLevel   string  `json:"urgency_level"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
	Category       string  `json:"category"`
	AssignedTier   string  `json:"assigned_tier"`
	UserEmail      string  `json:"user_email,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	ResolvedAt     *string `json:"resolved_at,omitempty"`
}

type UrgencyAnalysisResponse struct {
	Score       int                `json:"score"`
	Level       string             `json:"level"`
	Tier        string             `json:"assigned_tier"`
	Factors     map[string]float64 `json:"factors"`
	Explanation string             `json:"explanation"`
}

type SentimentAnalysisResponse struct {
	Label      string  `json:"label"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

type CreateTicketResponse struct {
	Ticket             *TicketResponse            `json:"ticket"`
	UrgencyAnalysis    *UrgencyAnalysisResponse   `json:"urgency_analysis"`
	SentimentAnalysis  *SentimentAnalysisResponse `json:"sentiment_analysis"`
	SuggestedSolutions []*service.SearchResult    `json:"suggested_solutions"`
	SearchedTiers      []domain.Tier              `json:"searched_tiers"`
	Message            string                     `json:"message"`
}

func ticketToResponse(t *domain.Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		UrgencyScore:   t.UrgencyScore,
		UrgencyLevel:   string(t.UrgencyLevel),
		SentimentScore: t.SentimentScore,
		SentimentLabel: t.SentimentLabel,
		Category:       t.Category,
		AssignedTier:   string(t.AssignedTier),
		UserEmail:      t.UserEmail,
		CreatedAt:      t.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:      t.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if t.ResolvedAt != nil {
		resolvedAt := t.ResolvedAt.Format("2006-01-02T15:04:05Z")
		resp.ResolvedAt = &resolvedAt
	}
	return resp
}

func (h *TicketHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Description == "" {
		api.Error(w, http.StatusBadRequest, "description is required")
		return
	}

	out, err := h.svc.CreateTicket(r.Context(), service.CreateTicketInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		UserTier:    req.UserTier,
		UserEmail:   req.UserEmail,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, &CreateTicketResponse{
		Ticket: ticketToResponse(out.Ticket),
		UrgencyAnalysis: &UrgencyAnalysisResponse{
			Score:       out.Urgency.Score,
			Level:       string(out.Urgency.Level),
			Tier:        string(out.Urgency.Tier),
			Factors:     out.Urgency.Factors,
			Explanation: out.Urgency.Explanation,
		},
		SentimentAnalysis: &SentimentAnalysisResponse{
			Label:      out.Urgency.Sentiment.Label,
			Score:      out.Urgency.Sentiment.Score,
			Confidence: out.Urgency.Sentiment.Confidence,
		},
		SuggestedSolutions: out.SuggestedSolutions,
		SearchedTiers:      out.SearchedTiers,
		Message:            out.Message,
	})
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	ticket, err := h.svc.GetTicket(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ticketToResponse(ticket))
}

type ListTicketsResponse struct {
	Tickets []*TicketResponse `json:"tickets"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
	Count   int               `json:"count"`
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListTickets(r.Context(), service.ListTicketsInput{
		Filter: service.TicketFilter{
			Status:       domain.TicketStatus(r.URL.Query().Get("status")),
			UrgencyLevel: domain.UrgencyLevel(r.URL.Query().Get("urgency_level")),
			Tier:         domain.Tier(r.URL.Query().Get("tier")),
		},
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	tickets := make([]*TicketResponse, 0, len(page.Items))
	for _, t := range page.Items {
		tickets = append(tickets, ticketToResponse(t))
	}

	api.Success(w, http.StatusOK, &ListTicketsResponse{
		Tickets: tickets,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
		Count:   len(tickets),
	})
}

type ResolveTicketRequest struct {
	Solution         string `json:"solution"`
	ResolutionSource string `json:"resolution_source"`
	KnowledgeID      string `json:"knowledge_id"`
	FeedbackScore    *int   `json:"feedback_score"`
	FeedbackComment  string `json:"feedback_comment"`
	ResolvedBy       string `json:"resolved_by"`
}

type ResolveTicketResponse struct {
	Message               string                   `json:"message"`
	TicketID              string                   `json:"ticket_id"`
	ResolutionTimeMinutes int                      `json:"resolution_time_minutes"`
	AutoPromotions        []*service.PromotedEntry `json:"auto_promotions"`
}

func (h *TicketHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req ResolveTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Solution == "" {
		api.Error(w, http.StatusBadRequest, "solution is required")
		return
	}

	out, err := h.svc.ResolveTicket(r.Context(), service.ResolveTicketInput{
		TicketID:        id,
		Solution:        req.Solution,
		Source:          req.ResolutionSource,
		KnowledgeID:     req.KnowledgeID,
		FeedbackScore:   req.FeedbackScore,
		FeedbackComment: req.FeedbackComment,
		ResolvedBy:      req.ResolvedBy,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &ResolveTicketResponse{
		Message:               "Ticket resolved successfully",
		TicketID:              out.TicketID,
		ResolutionTimeMinutes: out.ResolutionTimeMinutes,
		AutoPromotions:        out.AutoPromotions,
	})
}

func (h *TicketHandler) Similar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	limit := 5
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	similar, err := h.svc.FindSimilar(r.Context(), id, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if similar == nil {
		similar = []*service.SimilarTicket{}
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"similar_tickets": similar,
	})
}

type AnalyzeRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Analyze scores text for sentiment and urgency without creating a ticket.
func (h *TicketHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" && req.Description == "" {
		api.Error(w, http.StatusBadRequest, "title or description is required")
		return
	}

	result, err := h.analyzer.Calculate(r.Context(), service.UrgencyInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]interface{}{
		"sentiment": &SentimentAnalysisResponse{
			Label:      result.Sentiment.Label,
			Score:      result.Sentiment.Score,
			Confidence: result.Sentiment.Confidence,
		},
		"urgency": &UrgencyAnalysisResponse{
			Score:       result.Score,
			Level:       string(result.Level),
			Tier:        string(result.Tier),
			Factors:     result.Factors,
			Explanation: result.Explanation,
		},
	})
}
