package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type slotService interface {
	GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error)
	ListMarkableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.MarkableSlot, error)
	AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error)
}

// SlotHandler exposes slot availability and blocking.
type SlotHandler struct {
	service slotService
}

// NewSlotHandler builds a new handler.
func NewSlotHandler(service slotService) *SlotHandler {
	return &SlotHandler{service: service}
}

func slotQuery(c *gin.Context) (dto.AvailableSlotsQuery, error) {
	var query dto.AvailableSlotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return query, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot query")
	}
	return query, nil
}

// Available godoc
// @Summary List available slots for a school and date
// @Tags Slots
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param schoolId query string true "School ID"
// @Param purpose query string true "school_visit or competency_test"
// @Success 200 {object} response.Envelope
// @Router /slots/available [get]
func (h *SlotHandler) Available(c *gin.Context) {
	query, err := slotQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.service.GetAvailableSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, map[string]interface{}{"count": len(slots)})
}

// Markable godoc
// @Summary List slots that can still be marked unavailable
// @Tags Slots
// @Produce json
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param schoolId query string true "School ID"
// @Param purpose query string true "school_visit or competency_test"
// @Success 200 {object} response.Envelope
// @Router /slots/markable [get]
func (h *SlotHandler) Markable(c *gin.Context) {
	query, err := slotQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	slots, err := h.service.ListMarkableSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, slots)
}

// AddUnavailable godoc
// @Summary Block slots on a date
// @Tags Slots
// @Accept json
// @Produce json
// @Param payload body dto.AddUnavailableSlotsRequest true "Slots to block"
// @Success 201 {object} response.Envelope
// @Router /slots/unavailable [post]
func (h *SlotHandler) AddUnavailable(c *gin.Context) {
	var req dto.AddUnavailableSlotsRequest
	if !bindJSON(c, &req, "invalid unavailable slot payload") {
		return
	}
	if !req.Purpose.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "purpose must be school_visit or competency_test"))
		return
	}
	inserted, err := h.service.AddUnavailableSlots(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"inserted": inserted, "requested": len(req.SlotIDs), "purpose": req.Purpose})
}
