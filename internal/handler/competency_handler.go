package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type competencyTestService interface {
	Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.CompetencyTest, error)
	Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.CompetencyTest, error)
	Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.CompetencyTest, error)
	RecordResult(ctx context.Context, enquiryID string, req dto.TestResultRequest, actor string) (*models.CompetencyTest, error)
	GetDetails(ctx context.Context, enquiryID string) (*dto.CompetencyTestDetails, error)
}

// CompetencyTestHandler exposes competency test booking.
type CompetencyTestHandler struct {
	service competencyTestService
}

// NewCompetencyTestHandler builds a new handler.
func NewCompetencyTestHandler(service competencyTestService) *CompetencyTestHandler {
	return &CompetencyTestHandler{service: service}
}

// Schedule godoc
// @Summary Schedule a competency test
// @Tags CompetencyTest
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.ScheduleRequest true "Slot and date"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/competency-test [post]
func (h *CompetencyTestHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if !bindJSON(c, &req, "invalid competency test payload") {
		return
	}
	test, err := h.service.Schedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, test)
}

// Get godoc
// @Summary Get competency test details
// @Tags CompetencyTest
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/competency-test [get]
func (h *CompetencyTestHandler) Get(c *gin.Context) {
	details, err := h.service.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// Cancel godoc
// @Summary Cancel a scheduled competency test
// @Tags CompetencyTest
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.CancelRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/competency-test/cancel [post]
func (h *CompetencyTestHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if !bindJSON(c, &req, "invalid cancel payload") {
		return
	}
	test, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, test)
}

// Reschedule godoc
// @Summary Move a competency test to another slot
// @Tags CompetencyTest
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.RescheduleRequest true "New slot and date"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/competency-test/reschedule [post]
func (h *CompetencyTestHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	test, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, test)
}

// Result godoc
// @Summary Record a competency test result
// @Tags CompetencyTest
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.TestResultRequest true "Passed or Failed"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/competency-test/result [post]
func (h *CompetencyTestHandler) Result(c *gin.Context) {
	var req dto.TestResultRequest
	if !bindJSON(c, &req, "invalid result payload") {
		return
	}
	test, err := h.service.RecordResult(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, test)
}
