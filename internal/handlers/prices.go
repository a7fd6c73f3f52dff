package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/monitor"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// ============================================================================
// Price Observation Endpoints
// ============================================================================

// Global instances (initialized by the application)
var (
	mon      *monitor.Monitor
	alertMgr *alerts.Manager
)

// Init wires the handlers to the monitor and alert manager.
// This should be called during application startup.
func Init(m *monitor.Monitor, a *alerts.Manager) {
	mon = m
	alertMgr = a
}

// RecordPriceRequest represents a manually submitted price observation
type RecordPriceRequest struct {
	StoreID      string   `json:"storeId" binding:"required"`
	ItemID       string   `json:"itemId" binding:"required"`
	RegularPrice float64  `json:"regularPrice" binding:"required,gt=0"`
	SalePrice    *float64 `json:"salePrice,omitempty"`
	InStock      *bool    `json:"inStock,omitempty"`
	ObservedAt   *int64   `json:"observedAt,omitempty"` // unix millis, defaults to now
}

// RecordPrice ingests a price observation
// POST /internal/prices
func RecordPrice(c *gin.Context) {
	var req RecordPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := pricing.PricePoint{
		StoreID:      req.StoreID,
		ItemID:       req.ItemID,
		RegularPrice: req.RegularPrice,
		SalePrice:    req.SalePrice,
		InStock:      true,
		ObservedAt:   time.Now(),
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if req.ObservedAt != nil {
		p.ObservedAt = time.UnixMilli(*req.ObservedAt)
	}

	if err := mon.Record(p); err != nil {
		switch {
		case errors.Is(err, pricing.ErrInvalidPrice):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, pricing.ErrStaleObservation):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, p)
}

// GetLatestPrice returns the most recent observation for a pair
// GET /internal/prices/:storeId/:itemId
func GetLatestPrice(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	p, ok := mon.Latest(storeID, itemID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price recorded for this store and item"})
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetPriceHistory returns the retained observation history for a pair
// GET /internal/prices/:storeId/:itemId/history
func GetPriceHistory(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	history := mon.History(storeID, itemID)

	c.JSON(http.StatusOK, gin.H{
		"storeId": storeID,
		"itemId":  itemID,
		"history": history,
		"total":   len(history),
	})
}

// PriceStatsResponse summarizes a pair's price history
type PriceStatsResponse struct {
	StoreID         string  `json:"storeId"`
	ItemID          string  `json:"itemId"`
	AveragePrice    float64 `json:"averagePrice"`
	LowestPrice     float64 `json:"lowestPrice"`
	HighestPrice    float64 `json:"highestPrice"`
	Volatility      float64 `json:"volatility"`
	VolatilityScore float64 `json:"volatilityScore"`
	StabilityScore  float64 `json:"stabilityScore"`
	Observations    int     `json:"observations"`
}

// GetPriceStats returns aggregate statistics for a pair
// GET /internal/prices/:storeId/:itemId/stats
func GetPriceStats(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	history := mon.History(storeID, itemID)
	if len(history) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price history for this store and item"})
		return
	}

	stats := mon.Stats(storeID, itemID)
	c.JSON(http.StatusOK, PriceStatsResponse{
		StoreID:         storeID,
		ItemID:          itemID,
		AveragePrice:    stats.AveragePrice,
		LowestPrice:     stats.LowestPrice,
		HighestPrice:    stats.HighestPrice,
		Volatility:      stats.Volatility,
		VolatilityScore: mon.VolatilityScore(storeID, itemID),
		StabilityScore:  mon.StabilityScore(storeID, itemID),
		Observations:    len(history),
	})
}
