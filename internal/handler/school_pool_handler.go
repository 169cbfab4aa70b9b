package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type schoolPoolService interface {
	Resolve(ctx context.Context, schoolID string) []string
	Invalidate(ctx context.Context, schoolIDs ...string) error
}

// SchoolPoolHandler exposes the equivalent-school pool used for booked counts.
type SchoolPoolHandler struct {
	service schoolPoolService
}

// NewSchoolPoolHandler builds a new handler.
func NewSchoolPoolHandler(service schoolPoolService) *SchoolPoolHandler {
	return &SchoolPoolHandler{service: service}
}

// Get godoc
// @Summary Show the equivalent-school pool of a school
// @Tags Slots
// @Produce json
// @Param schoolId path string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/equivalent-schools [get]
func (h *SchoolPoolHandler) Get(c *gin.Context) {
	pool := h.service.Resolve(c.Request.Context(), c.Param("schoolId"))
	response.JSON(c, http.StatusOK, pool, map[string]interface{}{"count": len(pool)})
}

// Invalidate godoc
// @Summary Drop the cached equivalent-school pool of a school
// @Tags Slots
// @Param schoolId path string true "School ID"
// @Success 204
// @Router /schools/{schoolId}/equivalent-schools [delete]
func (h *SchoolPoolHandler) Invalidate(c *gin.Context) {
	if err := h.service.Invalidate(c.Request.Context(), c.Param("schoolId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
