package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status      string `json:"status"`
	WatchedKeys int    `json:"watchedKeys"`
	Alerts      int    `json:"alerts"`
}

// HealthCheck handles the health check endpoint
func HealthCheck(c *gin.Context) {
	if mon == nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "starting"})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:      "ok",
		WatchedKeys: len(mon.Watched()),
		Alerts:      len(alertMgr.List()),
	})
}
