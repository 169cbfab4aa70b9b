package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

type taskService interface {
	List(ctx context.Context, filter dto.TaskFilter) ([]models.MyTask, error)
	CloseTask(ctx context.Context, id string) error
}

// TaskHandler exposes counsellor follow-up tasks.
type TaskHandler struct {
	service taskService
}

// NewTaskHandler builds a new handler.
func NewTaskHandler(service taskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// List godoc
// @Summary List open follow-up tasks
// @Tags Tasks
// @Produce json
// @Param assignedTo query string false "Assignee ID"
// @Param enquiryId query string false "Enquiry ID"
// @Param limit query int false "Maximum rows"
// @Success 200 {object} response.Envelope
// @Router /tasks [get]
func (h *TaskHandler) List(c *gin.Context) {
	var filter dto.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid task filter"))
		return
	}
	tasks, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, map[string]interface{}{"count": len(tasks)})
}

// Close godoc
// @Summary Close a follow-up task
// @Tags Tasks
// @Param id path string true "Task ID"
// @Success 204
// @Router /tasks/{id}/close [post]
func (h *TaskHandler) Close(c *gin.Context) {
	if err := h.service.CloseTask(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
