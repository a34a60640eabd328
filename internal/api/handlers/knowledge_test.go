package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

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

func newTestEntry() *domain.KnowledgeEntry {
	now := time.Now().UTC()
	return &domain.KnowledgeEntry{
		ID:               "kb-123",
		Tier:             domain.TierL2,
		Title:            "Password reset loop",
		Content:          "Clear the session cookie and retry",
		Keywords:         []string{"password", "reset"},
		Category:         "account",
		UsageCount:       3,
		SuccessRate:      1.0,
		AvgFeedbackScore: 4.5,
		HasEmbedding:     true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func requestWithID(method, url, id string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestKnowledgeHandler_Create_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	expectedEntry := newTestEntry()
	mockSvc.On("CreateEntry", mock.Anything, mock.MatchedBy(func(input service.CreateEntryInput) bool {
		return input.Tier == domain.TierL2 && input.Title == "Password reset loop"
	})).Return(expectedEntry, nil)

	body := `{"tier":"L2","title":"Password reset loop","content":"Clear the session cookie and retry","keywords":["password","reset"],"category":"account"}`
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "kb-123", data["id"])
	assert.Equal(t, "L2", data["tier"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Create_InvalidJSON(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestKnowledgeHandler_Create_MissingTitle(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	body := `{"tier":"L2","content":"Clear the session cookie"}`
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "title is required")
}

func TestKnowledgeHandler_Create_MissingContent(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	body := `{"tier":"L2","title":"Password reset loop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "content is required")
}

func TestKnowledgeHandler_Create_InvalidTier(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	body := `{"tier":"L9","title":"Password reset loop","content":"Clear the session cookie"}`
	req := httptest.NewRequest(http.MethodPost, "/api/knowledge", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid knowledge tier")
}

func TestKnowledgeHandler_Get_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("GetEntry", mock.Anything, "kb-123").Return(newTestEntry(), nil)

	req := requestWithID(http.MethodGet, "/api/knowledge/kb-123", "kb-123", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Password reset loop", data["title"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("GetEntry", mock.Anything, "kb-999").Return(nil, domain.ErrEntryNotFound)

	req := requestWithID(http.MethodGet, "/api/knowledge/kb-999", "kb-999", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_List_ByTier(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("ListByTier", mock.Anything, domain.TierL2, "account", 5).
		Return([]*domain.KnowledgeEntry{newTestEntry()}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge?tier=L2&category=account&limit=5", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_List_AllTiers(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	// Without a tier filter the default limit of 20 is split across the tiers.
	for _, tier := range domain.TierOrder {
		mockSvc.On("ListByTier", mock.Anything, tier, "", 6).
			Return([]*domain.KnowledgeEntry{newTestEntry()}, nil).Once()
	}

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["count"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_List_InvalidLimit(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge?limit=500", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid limit")
	mockSvc.AssertNotCalled(t, "ListByTier")
}

func TestKnowledgeHandler_List_InvalidTier(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge?tier=gold", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "ListByTier")
}

func TestKnowledgeHandler_Categories_Empty(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("Categories", mock.Anything, domain.Tier("")).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge/categories", nil)
	w := httptest.NewRecorder()

	handler.Categories(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	categories, ok := data["categories"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, categories)
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Categories_ByTier(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	summaries := []*service.CategorySummary{
		{Category: "account", Tier: "L1", Count: 4, AvgScore: 4.2},
	}
	mockSvc.On("Categories", mock.Anything, domain.TierL1).Return(summaries, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/knowledge/categories?tier=L1", nil)
	w := httptest.NewRecorder()

	handler.Categories(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	categories := data["categories"].([]interface{})
	require.Len(t, categories, 1)
	first := categories[0].(map[string]interface{})
	assert.Equal(t, "account", first["category"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Deactivate_Success(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("DeactivateEntry", mock.Anything, "kb-123").Return(nil)

	req := requestWithID(http.MethodDelete, "/api/knowledge/kb-123", "kb-123", nil)
	w := httptest.NewRecorder()

	handler.Deactivate(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "deactivated", data["status"])
	mockSvc.AssertExpectations(t)
}

func TestKnowledgeHandler_Deactivate_NotFound(t *testing.T) {
	mockSvc := new(MockKnowledgeService)
	handler := NewKnowledgeHandler(mockSvc)

	mockSvc.On("DeactivateEntry", mock.Anything, "kb-999").Return(domain.ErrEntryNotFound)

	req := requestWithID(http.MethodDelete, "/api/knowledge/kb-999", "kb-999", nil)
	w := httptest.NewRecorder()

	handler.Deactivate(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
