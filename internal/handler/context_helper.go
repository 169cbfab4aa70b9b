package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	"github.com/noah-isme/sma-admissions-api/pkg/response"
)

// HeaderUserID carries the acting user's id; authentication happens upstream.
const HeaderUserID = "X-User-ID"

const systemActor = "system"

func actorFromContext(c *gin.Context) string {
	if actor := strings.TrimSpace(c.GetHeader(HeaderUserID)); actor != "" {
		return actor
	}
	return systemActor
}

// bindJSON decodes the body into dest and writes a 400 on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}
