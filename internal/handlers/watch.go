package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ============================================================================
// Watch List Endpoints
// ============================================================================

// WatchRequest identifies a (store, item) pair to monitor
type WatchRequest struct {
	StoreID string `json:"storeId" binding:"required"`
	ItemID  string `json:"itemId" binding:"required"`
}

// Watch puts a pair on the periodic refresh schedule
// POST /internal/watch
func Watch(c *gin.Context) {
	var req WatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mon.Watch(req.StoreID, req.ItemID)
	c.JSON(http.StatusOK, gin.H{
		"status":  "watching",
		"storeId": req.StoreID,
		"itemId":  req.ItemID,
	})
}

// Unwatch removes a pair from the refresh schedule
// DELETE /internal/watch/:storeId/:itemId
func Unwatch(c *gin.Context) {
	mon.Unwatch(c.Param("storeId"), c.Param("itemId"))
	c.Status(http.StatusNoContent)
}

// ListWatched returns every pair on the refresh schedule
// GET /internal/watch
func ListWatched(c *gin.Context) {
	keys := mon.Watched()
	out := make([]gin.H, 0, len(keys))
	for _, k := range keys {
		out = append(out, gin.H{"storeId": k.StoreID, "itemId": k.ItemID})
	}
	c.JSON(http.StatusOK, gin.H{
		"watched": out,
		"total":   len(out),
	})
}
