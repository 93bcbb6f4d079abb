package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/speedsheet/models"
)

// reject writes a non-2xx response in the backend's rejection shape.
func reject(c *gin.Context, status int, code, detail string) {
	c.JSON(status, models.RejectionDetail{Detail: detail, Code: code})
}

// respondError maps a ProcessError to the correct HTTP status code and
// writes the rejection body.
func respondError(c *gin.Context, err error) {
	perr, ok := err.(*models.ProcessError)
	if !ok {
		perr = models.NewProcessError(models.ErrCodeInternal, err.Error(), err)
	}
	reject(c, mapErrorToStatus(perr), perr.Code, perr.Message)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ProcessError) int {
	switch e.Code {
	case models.ErrCodeEmptyInput, models.ErrCodeNoValidURLs, models.ErrCodeInvalidURL:
		return http.StatusBadRequest // 400
	case models.ErrCodeArtifactNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
