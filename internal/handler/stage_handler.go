package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type stageService interface {
	MoveToNextStage(ctx context.Context, enquiryID string, req dto.MoveStageRequest, actor string) (*dto.StageLedgerResponse, error)
	SetStageStatus(ctx context.Context, enquiryID string, req dto.SetStageStatusRequest, actor string) (*dto.StageLedgerResponse, error)
}

// StageHandler exposes the enquiry stage engine.
type StageHandler struct {
	service stageService
}

// NewStageHandler builds a new handler.
func NewStageHandler(service stageService) *StageHandler {
	return &StageHandler{service: service}
}

// Move godoc
// @Summary Complete the current stage and enter the next one
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.MoveStageRequest true "Current stage"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/stages/move [post]
func (h *StageHandler) Move(c *gin.Context) {
	var req dto.MoveStageRequest
	if !bindJSON(c, &req, "invalid stage move payload") {
		return
	}
	ledger, err := h.service.MoveToNextStage(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ledger)
}

// SetStatus godoc
// @Summary Set the status of one stage
// @Tags Stages
// @Accept json
// @Produce json
// @Param id path string true "Enquiry ID"
// @Param payload body dto.SetStageStatusRequest true "Stage status"
// @Success 200 {object} response.Envelope
// @Router /enquiries/{id}/stages [patch]
func (h *StageHandler) SetStatus(c *gin.Context) {
	var req dto.SetStageStatusRequest
	if !bindJSON(c, &req, "invalid stage status payload") {
		return
	}
	ledger, err := h.service.SetStageStatus(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, ledger)
}
