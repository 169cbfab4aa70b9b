package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
)

type slotServiceMock struct {
	available  []dto.AvailableSlot
	lastQuery  dto.AvailableSlotsQuery
	lastBlock  dto.AddUnavailableSlotsRequest
	lastActor  string
	blockCalls int
}

func (m *slotServiceMock) GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error) {
	m.lastQuery = query
	return m.available, nil
}

func (m *slotServiceMock) ListMarkableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.MarkableSlot, error) {
	m.lastQuery = query
	return []dto.MarkableSlot{}, nil
}

func (m *slotServiceMock) AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error) {
	m.blockCalls++
	m.lastBlock, m.lastActor = req, actor
	return len(req.SlotIDs), nil
}

func TestSlotHandlerAvailable(t *testing.T) {
	mockSvc := &slotServiceMock{available: []dto.AvailableSlot{{SlotID: "s-1", Slot: "10:00 AM"}}}
	handler := NewSlotHandler(mockSvc)

	c, w := newJSONContext(http.MethodGet, "/slots/available?date=2024-06-03&schoolId=school-1&purpose=school_visit", "")
	handler.Available(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-03", mockSvc.lastQuery.Date)
	assert.Equal(t, "school-1", mockSvc.lastQuery.SchoolID)
	assert.Equal(t, models.SlotPurposeSchoolVisit, mockSvc.lastQuery.Purpose)
	assert.Contains(t, w.Body.String(), `"count":1`)
}

func TestSlotHandlerMarkable(t *testing.T) {
	mockSvc := &slotServiceMock{}
	handler := NewSlotHandler(mockSvc)

	c, w := newJSONContext(http.MethodGet, "/slots/markable?date=2024-06-03&schoolId=school-1&purpose=competency_test", "")
	handler.Markable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SlotPurposeCompetencyTest, mockSvc.lastQuery.Purpose)
}

func TestSlotHandlerAddUnavailable(t *testing.T) {
	mockSvc := &slotServiceMock{}
	handler := NewSlotHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/slots/unavailable",
		`{"school_id":"school-1","date":"2024-06-03","purpose":"school_visit","slot_ids":["s-1","s-2"],"unavailability_of":"Principal"}`)
	c.Request.Header.Set(HeaderUserID, "principal-1")
	handler.AddUnavailable(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "principal-1", mockSvc.lastActor)
	assert.Equal(t, models.UnavailabilityPrincipal, mockSvc.lastBlock.UnavailabilityOf)
	assert.Contains(t, w.Body.String(), `"inserted":2`)
}

func TestSlotHandlerAddUnavailableRejectsUnknownPurpose(t *testing.T) {
	mockSvc := &slotServiceMock{}
	handler := NewSlotHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/slots/unavailable",
		`{"school_id":"school-1","date":"2024-06-03","purpose":"interview","slot_ids":["s-1"],"unavailability_of":"Principal"}`)
	handler.AddUnavailable(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, mockSvc.blockCalls)
}

func TestSlotHandlerRoutesThroughGin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &slotServiceMock{available: []dto.AvailableSlot{}}
	handler := NewSlotHandler(mockSvc)
	r := gin.New()
	r.GET("/slots/available", handler.Available)

	c, w := newJSONContext(http.MethodGet, "/slots/available?date=2024-06-03&schoolId=school-1&purpose=school_visit", "")
	r.ServeHTTP(w, c.Request)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

type schoolPoolMock struct {
	invalidated []string
}

func (m *schoolPoolMock) Resolve(ctx context.Context, schoolID string) []string {
	return []string{schoolID, "school-2"}
}

func (m *schoolPoolMock) Invalidate(ctx context.Context, schoolIDs ...string) error {
	m.invalidated = append(m.invalidated, schoolIDs...)
	return nil
}

func TestSchoolPoolHandler(t *testing.T) {
	mockSvc := &schoolPoolMock{}
	handler := NewSchoolPoolHandler(mockSvc)

	c, w := newJSONContext(http.MethodGet, "/schools/school-1/equivalent-schools", "")
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}}
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"school-2"`)

	c, w = newJSONContext(http.MethodDelete, "/schools/school-1/equivalent-schools", "")
	c.Params = gin.Params{{Key: "schoolId", Value: "school-1"}}
	handler.Invalidate(c)
	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, []string{"school-1"}, mockSvc.invalidated)
}
