package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/whyvarun/support-IQ/internal/domain"
	"github.com/whyvarun/support-IQ/internal/service"
)

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

func newPromotedEntry() *service.PromotedEntry {
	return &service.PromotedEntry{
		ID:          "kb-1",
		Title:       "VPN tunnel drops",
		FromTier:    domain.TierL3,
		ToTier:      domain.TierL2,
		Reason:      "Auto-promoted: usage_count=12 >= threshold, avg_feedback=4.50 >= 4.0",
		UsageCount:  12,
		AvgFeedback: 4.5,
		PromotedAt:  time.Now().UTC(),
	}
}

func TestPromotionHandler_Run(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	mockSvc.On("CheckAndPromote", mock.Anything).
		Return([]*service.PromotedEntry{newPromotedEntry()}, nil)

	req := httptest.NewRequest(http.MethodPost, "/promotions/run", nil)
	w := httptest.NewRecorder()

	handler.Run(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	assert.Equal(t, "Auto-promotion completed. 1 entries promoted.", data["message"])
	mockSvc.AssertExpectations(t)
}

func TestPromotionHandler_Promote_Success(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	promoted := newPromotedEntry()
	promoted.Reason = "Seasonal surge"
	mockSvc.On("ForcePromote", mock.Anything, "kb-1", domain.TierL2, "Seasonal surge").
		Return(promoted, nil)

	body := `{"to_tier":"L2","reason":"Seasonal surge"}`
	req := requestWithID(http.MethodPost, "/knowledge/kb-1/promote", "kb-1", []byte(body))
	w := httptest.NewRecorder()

	handler.Promote(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "kb-1", data["id"])
	assert.Equal(t, "L2", data["to_tier"])
	mockSvc.AssertExpectations(t)
}

func TestPromotionHandler_Promote_InvalidTier(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	body := `{"to_tier":"L0"}`
	req := requestWithID(http.MethodPost, "/knowledge/kb-1/promote", "kb-1", []byte(body))
	w := httptest.NewRecorder()

	handler.Promote(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockSvc.AssertNotCalled(t, "ForcePromote")
}

func TestPromotionHandler_Promote_Downward(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	mockSvc.On("ForcePromote", mock.Anything, "kb-1", domain.TierL3, "").
		Return(nil, domain.ErrInvalidPromotion)

	body := `{"to_tier":"L3"}`
	req := requestWithID(http.MethodPost, "/knowledge/kb-1/promote", "kb-1", []byte(body))
	w := httptest.NewRecorder()

	handler.Promote(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "promotion must move toward L1")
}

func TestPromotionHandler_Candidates(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	candidates := map[string][]*service.PromotionCandidate{
		"L3_to_L2": {
			{ID: "kb-1", Title: "VPN tunnel drops", UsageCount: 9, Threshold: 10, ProgressPercent: 90.0, AvgFeedback: 4.4, FeedbackQualified: true},
		},
		"L2_to_L1": {},
	}
	mockSvc.On("Candidates", mock.Anything).Return(candidates, nil)

	req := httptest.NewRequest(http.MethodGet, "/promotions/candidates", nil)
	w := httptest.NewRecorder()

	handler.Candidates(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	byTransition := data["candidates"].(map[string]interface{})
	l3 := byTransition["L3_to_L2"].([]interface{})
	require.Len(t, l3, 1)
	first := l3[0].(map[string]interface{})
	assert.Equal(t, float64(90), first["progress_percent"])
	mockSvc.AssertExpectations(t)
}

func TestPromotionHandler_History(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	records := []*domain.PromotionRecord{
		{ID: "p-1", EntryID: "kb-1", FromTier: domain.TierL3, ToTier: domain.TierL2, Automatic: true, PromotedAt: time.Now().UTC()},
	}
	mockSvc.On("History", mock.Anything, "kb-1", 10).Return(records, nil)

	req := httptest.NewRequest(http.MethodGet, "/promotions/history?knowledge_id=kb-1&limit=10", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
	history := data["history"].([]interface{})
	require.Len(t, history, 1)
	first := history[0].(map[string]interface{})
	assert.Equal(t, "L3", first["from_tier"])
	assert.Equal(t, "L2", first["to_tier"])
	assert.Equal(t, true, first["automatic"])
	mockSvc.AssertExpectations(t)
}

func TestPromotionHandler_History_EmptyIsNotNull(t *testing.T) {
	mockSvc := new(MockPromotionService)
	handler := NewPromotionHandler(mockSvc)

	mockSvc.On("History", mock.Anything, "", 0).Return(nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/promotions/history", nil)
	w := httptest.NewRecorder()

	handler.History(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	history, ok := data["history"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, history)
	mockSvc.AssertExpectations(t)
}
