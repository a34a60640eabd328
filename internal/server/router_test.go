package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/whyvarun/support-IQ/internal/api/handlers"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

type MockTicketService struct {
	mock.Mock
}

func (m *MockTicketService) CreateTicket(ctx context.Context, input service.CreateTicketInput) (*service.CreateTicketOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateTicketOutput), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, input service.ListTicketsInput) (*service.TicketPageResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TicketPageResult), args.Error(1)
}

func (m *MockTicketService) ResolveTicket(ctx context.Context, input service.ResolveTicketInput) (*service.ResolveTicketOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ResolveTicketOutput), args.Error(1)
}

func (m *MockTicketService) FindSimilar(ctx context.Context, ticketID string, limit int) ([]*service.SimilarTicket, error) {
	args := m.Called(ctx, ticketID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SimilarTicket), args.Error(1)
}

type MockUrgencyAnalyzer struct {
	mock.Mock
}

func (m *MockUrgencyAnalyzer) Calculate(ctx context.Context, input service.UrgencyInput) (*service.UrgencyResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UrgencyResult), args.Error(1)
}

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) HybridSearch(ctx context.Context, query string, tier domain.Tier, limit int) ([]*service.SearchResult, error) {
	args := m.Called(ctx, query, tier, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.SearchResult), args.Error(1)
}

func (m *MockSearchService) SearchTiered(ctx context.Context, input service.TieredSearchInput) (*service.TieredSearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TieredSearchOutput), args.Error(1)
}

type MockKnowledgeService struct {
	mock.Mock
}

func (m *MockKnowledgeService) CreateEntry(ctx context.Context, input service.CreateEntryInput) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) GetEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) ListByTier(ctx context.Context, tier domain.Tier, category string, limit int) ([]*domain.KnowledgeEntry, error) {
	args := m.Called(ctx, tier, category, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeEntry), args.Error(1)
}

func (m *MockKnowledgeService) Categories(ctx context.Context, tier domain.Tier) ([]*service.CategorySummary, error) {
	args := m.Called(ctx, tier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.CategorySummary), args.Error(1)
}

func (m *MockKnowledgeService) DeactivateEntry(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockPromotionService struct {
	mock.Mock
}

func (m *MockPromotionService) CheckAndPromote(ctx context.Context) ([]*service.PromotedEntry, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.PromotedEntry), args.Error(1)
}

func (m *MockPromotionService) ForcePromote(ctx context.Context, entryID string, toTier domain.Tier, reason string) (*service.PromotedEntry, error) {
	args := m.Called(ctx, entryID, toTier, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PromotedEntry), args.Error(1)
}

func (m *MockPromotionService) Candidates(ctx context.Context) (map[string][]*service.PromotionCandidate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]*service.PromotionCandidate), args.Error(1)
}

func (m *MockPromotionService) History(ctx context.Context, entryID string, limit int) ([]*domain.PromotionRecord, error) {
	args := m.Called(ctx, entryID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PromotionRecord), args.Error(1)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Overview(ctx context.Context) (*service.AnalyticsOverview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AnalyticsOverview), args.Error(1)
}

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

func (m *MockAttachmentService) CompleteUpload(ctx context.Context, input service.CompleteUploadInput) (*domain.Attachment, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentService) GetDownloadURL(ctx context.Context, attachmentID string) (string, error) {
	args := m.Called(ctx, attachmentID)
	return args.String(0), args.Error(1)
}

func (m *MockAttachmentService) ListByTicket(ctx context.Context, ticketID string) ([]*domain.Attachment, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Delete(ctx context.Context, attachmentID string) error {
	args := m.Called(ctx, attachmentID)
	return args.Error(0)
}

type routerMocks struct {
	tickets    *MockTicketService
	analyzer   *MockUrgencyAnalyzer
	search     *MockSearchService
	knowledge  *MockKnowledgeService
	promotions *MockPromotionService
	analytics  *MockAnalyticsService
	attach     *MockAttachmentService
}

func setupRouter() (http.Handler, *routerMocks) {
	m := &routerMocks{
		tickets:    new(MockTicketService),
		analyzer:   new(MockUrgencyAnalyzer),
		search:     new(MockSearchService),
		knowledge:  new(MockKnowledgeService),
		promotions: new(MockPromotionService),
		analytics:  new(MockAnalyticsService),
		attach:     new(MockAttachmentService),
	}

	router := NewRouter(RouterConfig{
		TicketHandler:     handlers.NewTicketHandler(m.tickets, m.analyzer),
		SearchHandler:     handlers.NewSearchHandler(m.search),
		KnowledgeHandler:  handlers.NewKnowledgeHandler(m.knowledge),
		PromotionHandler:  handlers.NewPromotionHandler(m.promotions),
		AnalyticsHandler:  handlers.NewAnalyticsHandler(m.analytics),
		AttachmentHandler: handlers.NewAttachmentHandler(m.attach),
	})
	return router, m
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_TicketRoutes(t *testing.T) {
	router, m := setupRouter()

	m.tickets.On("GetTicket", mock.Anything, "t-1").Return(nil, domain.ErrTicketNotFound)
	m.tickets.On("FindSimilar", mock.Anything, "t-1", 5).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/tickets/t-1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/tickets/t-1/similar", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	m.tickets.AssertExpectations(t)
}

func TestRouter_KnowledgeCategoriesBeforeID(t *testing.T) {
	router, m := setupRouter()

	m.knowledge.On("Categories", mock.Anything, domain.Tier("")).
		Return([]*service.CategorySummary{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/knowledge/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.knowledge.AssertExpectations(t)
	m.knowledge.AssertNotCalled(t, "GetEntry")
}

func TestRouter_PromotionRoutes(t *testing.T) {
	router, m := setupRouter()

	m.promotions.On("CheckAndPromote", mock.Anything).
		Return([]*service.PromotedEntry{}, nil)
	m.promotions.On("Candidates", mock.Anything).
		Return(map[string][]*service.PromotionCandidate{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/promotions/run", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Auto-promotion completed")

	req = httptest.NewRequest(http.MethodGet, "/promotions/candidates", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	m.promotions.AssertExpectations(t)
}

func TestRouter_AnalyticsRoute(t *testing.T) {
	router, m := setupRouter()

	m.analytics.On("Overview", mock.Anything).
		Return(&service.AnalyticsOverview{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	m.analytics.AssertExpectations(t)
}

func TestRouter_UnknownRoute(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
