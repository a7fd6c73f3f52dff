package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/groceryfinder/price-monitor/internal/alerts"
)

// ============================================================================
// Price Alert Endpoints
// ============================================================================

// CreateAlertRequest represents a new target-price alert
type CreateAlertRequest struct {
	OwnerID     string  `json:"ownerId"`
	ItemID      string  `json:"itemId" binding:"required"`
	StoreID     string  `json:"storeId" binding:"required"`
	TargetPrice float64 `json:"targetPrice" binding:"required,gt=0"`
}

// CreateAlert registers a target-price alert
// POST /internal/alerts
func CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := alertMgr.Add(alerts.Alert{
		OwnerID:     req.OwnerID,
		ItemID:      req.ItemID,
		StoreID:     req.StoreID,
		TargetPrice: req.TargetPrice,
		Active:      true,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, a)
}

// ListAlerts returns all registered alerts
// GET /internal/alerts
func ListAlerts(c *gin.Context) {
	list := alertMgr.List()
	c.JSON(http.StatusOK, gin.H{
		"alerts": list,
		"total":  len(list),
	})
}

// GetAlert returns a single alert by id
// GET /internal/alerts/:id
func GetAlert(c *gin.Context) {
	a, ok := alertMgr.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// DeleteAlert removes an alert by id
// DELETE /internal/alerts/:id
func DeleteAlert(c *gin.Context) {
	alertMgr.Remove(c.Param("id"))
	c.Status(http.StatusNoContent)
}

// SetAlertActiveRequest toggles an alert's active flag
type SetAlertActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetAlertActive activates or deactivates an alert
// PATCH /internal/alerts/:id
func SetAlertActive(c *gin.Context) {
	var req SetAlertActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := alertMgr.SetActive(id, *req.Active); err != nil {
		if errors.Is(err, alerts.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	a, _ := alertMgr.Get(id)
	c.JSON(http.StatusOK, a)
}
