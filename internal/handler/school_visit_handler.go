package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type schoolVisitService interface {
	Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.SchoolVisit, error)
	Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.SchoolVisit, error)
	Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.SchoolVisit, error)
	Complete(ctx context.Context, enquiryID string, req dto.CompleteVisitRequest, actor string) (*models.SchoolVisit, error)
	GetDetails(ctx context.Context, enquiryID string) (*dto.SchoolVisitDetails, error)
}

// SchoolVisitHandler exposes school visit booking.
type SchoolVisitHandler struct {
	service schoolVisitService
}

// NewSchoolVisitHandler builds a new handler.
func NewSchoolVisitHandler(service schoolVisitService) *SchoolVisitHandler {
	return &SchoolVisitHandler{service: service}
}

// Schedule godoc
// @Summary Schedule a school visit
// @Tags SchoolVisit
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.ScheduleRequest true "Slot and date"
// @Success 201 {object} response.Envelope
// @Router /enquiries/{id}/school-visit [post]
func (h *SchoolVisitHandler) Schedule(c *gin.Context) {
	var req dto.ScheduleRequest
	if !bindJSON(c, &req, "invalid school visit payload") {
		return
	}
	visit, err := h.service.Schedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, visit)
}

// Get godoc
// @Summary Get school visit details
// @Tags SchoolVisit
// @Produce json
// @Param id path string true "Enquiry ID"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/school-visit [get]
func (h *SchoolVisitHandler) Get(c *gin.Context) {
	details, err := h.service.GetDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, details)
}

// Cancel godoc
// @Summary Cancel a scheduled school visit
// @Tags SchoolVisit
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.CancelRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/school-visit/cancel [post]
func (h *SchoolVisitHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if !bindJSON(c, &req, "invalid cancel payload") {
		return
	}
	visit, err := h.service.Cancel(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, visit)
}

// Reschedule godoc
// @Summary Move a school visit to another slot
// @Tags SchoolVisit
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.RescheduleRequest true "New slot and date"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/school-visit/reschedule [post]
func (h *SchoolVisitHandler) Reschedule(c *gin.Context) {
	var req dto.RescheduleRequest
	if !bindJSON(c, &req, "invalid reschedule payload") {
		return
	}
	visit, err := h.service.Reschedule(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, visit)
}

// Complete godoc
// @Summary Close a school visit
// @Tags SchoolVisit
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.CompleteVisitRequest true "Activities"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/school-visit/complete [post]
func (h *SchoolVisitHandler) Complete(c *gin.Context) {
	var req dto.CompleteVisitRequest
	if !bindJSON(c, &req, "invalid school visit completion payload") {
		return
	}
	visit, err := h.service.Complete(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, visit)
}
