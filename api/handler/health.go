package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/eurocomp/models"
	"github.com/use-agent/eurocomp/scraper"
)

// Health returns a handler for GET /.
func Health(nav scraper.Navigator, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{
			Status:    "OK",
			Message:   "Eurocomp Scraper API running",
			Uptime:    time.Since(startTime).Round(time.Second).String(),
			Navigator: nav.Name(),
			PoolStats: nav.Stats(),
		})
	}
}

// NotFound returns the fallback handler for unmatched routes.
func NotFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "route not found"})
	}
}
