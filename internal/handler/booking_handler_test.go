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
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

type competencyServiceMock struct {
	called     string
	lastResult dto.TestResultRequest
	err        error
}

func (m *competencyServiceMock) Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.CompetencyTest, error) {
	m.called = "schedule"
	return &models.CompetencyTest{EnquiryID: enquiryID, Status: models.BookingStatusScheduled}, m.err
}

func (m *competencyServiceMock) Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.CompetencyTest, error) {
	m.called = "cancel"
	return &models.CompetencyTest{EnquiryID: enquiryID, Status: models.BookingStatusCancelled}, m.err
}

func (m *competencyServiceMock) Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.CompetencyTest, error) {
	m.called = "reschedule"
	return &models.CompetencyTest{EnquiryID: enquiryID}, m.err
}

func (m *competencyServiceMock) RecordResult(ctx context.Context, enquiryID string, req dto.TestResultRequest, actor string) (*models.CompetencyTest, error) {
	m.called = "result"
	m.lastResult = req
	return &models.CompetencyTest{EnquiryID: enquiryID}, m.err
}

func (m *competencyServiceMock) GetDetails(ctx context.Context, enquiryID string) (*dto.CompetencyTestDetails, error) {
	m.called = "get"
	return &dto.CompetencyTestDetails{}, m.err
}

type schoolVisitServiceMock struct {
	called       string
	lastComplete dto.CompleteVisitRequest
	err          error
}

func (m *schoolVisitServiceMock) Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.SchoolVisit, error) {
	m.called = "schedule"
	return &models.SchoolVisit{EnquiryID: enquiryID}, m.err
}

func (m *schoolVisitServiceMock) Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.SchoolVisit, error) {
	m.called = "cancel"
	return &models.SchoolVisit{EnquiryID: enquiryID}, m.err
}

func (m *schoolVisitServiceMock) Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.SchoolVisit, error) {
	m.called = "reschedule"
	return &models.SchoolVisit{EnquiryID: enquiryID}, m.err
}

func (m *schoolVisitServiceMock) Complete(ctx context.Context, enquiryID string, req dto.CompleteVisitRequest, actor string) (*models.SchoolVisit, error) {
	m.called = "complete"
	m.lastComplete = req
	return &models.SchoolVisit{EnquiryID: enquiryID}, m.err
}

func (m *schoolVisitServiceMock) GetDetails(ctx context.Context, enquiryID string) (*dto.SchoolVisitDetails, error) {
	m.called = "get"
	return &dto.SchoolVisitDetails{}, m.err
}

func TestCompetencyTestHandlerSchedule(t *testing.T) {
	mockSvc := &competencyServiceMock{}
	handler := NewCompetencyTestHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/enquiries/enq-1/competency-test", `{"slot_id":"s-1","date":"2024-06-03"}`)
	c.Params = gin.Params{{Key: "id", Value: "enq-1"}}
	handler.Schedule(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "schedule", mockSvc.called)
	assert.Contains(t, w.Body.String(), `"status":"Scheduled"`)
}

func TestCompetencyTestHandlerResult(t *testing.T) {
	mockSvc := &competencyServiceMock{}
	handler := NewCompetencyTestHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/enquiries/enq-1/competency-test/result", `{"result":"Passed"}`)
	handler.Result(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.TestResultPassed, mockSvc.lastResult.Result)
}

func TestCompetencyTestHandlerCancelConflict(t *testing.T) {
	mockSvc := &competencyServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "only a scheduled competency test can be cancelled")}
	handler := NewCompetencyTestHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/enquiries/enq-1/competency-test/cancel", `{"reason":"sick"}`)
	handler.Cancel(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "CONFLICT")
}

func TestCompetencyTestHandlerGetNotFound(t *testing.T) {
	handler := NewCompetencyTestHandler(&competencyServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "competency test not found")})

	c, w := newJSONContext(http.MethodGet, "/enquiries/enq-1/competency-test", "")
	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSchoolVisitHandlerComplete(t *testing.T) {
	mockSvc := &schoolVisitServiceMock{}
	handler := NewSchoolVisitHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/enquiries/enq-1/school-visit/complete", `{"activities":["Campus tour"],"comment":"ok"}`)
	handler.Complete(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Campus tour"}, mockSvc.lastComplete.Activities)
}

func TestSchoolVisitHandlerRescheduleInvalidBody(t *testing.T) {
	mockSvc := &schoolVisitServiceMock{}
	handler := NewSchoolVisitHandler(mockSvc)

	c, w := newJSONContext(http.MethodPost, "/enquiries/enq-1/school-visit/reschedule", `not-json`)
	handler.Reschedule(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.called)
}
