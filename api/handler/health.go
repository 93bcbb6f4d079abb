package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/speedsheet/capture"
	"github.com/use-agent/speedsheet/models"
)

// Ping returns a handler for GET /api/.
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.PingResponse{Message: "Hello World"})
	}
}

// Health returns a handler for GET /api/health.
//
// Reports capture fan-out utilisation and degrades status when > 80% of
// slots are busy.
func Health(capt capture.Capturer, maxConcurrent int, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := int(activeCaptures.Load())

		status := "healthy"
		if maxConcurrent > 0 && active > int(float64(maxConcurrent)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status: status,
			Uptime: time.Since(startTime).Round(time.Second).String(),
			Capture: models.CaptureStats{
				Engine:        capt.Name(),
				MaxConcurrent: maxConcurrent,
				Active:        active,
			},
			Version: "0.1.0",
		})
	}
}
