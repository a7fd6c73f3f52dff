package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ============================================================================
// Analysis Endpoints
// ============================================================================

// GetTrend returns the trend classification for a pair
// GET /internal/analysis/:storeId/:itemId/trend
func GetTrend(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	trend := mon.Trend(storeID, itemID)
	if trend == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough price history to analyze a trend"})
		return
	}

	c.JSON(http.StatusOK, trend)
}

// GetPrediction returns the price forecast for a pair
// GET /internal/analysis/:storeId/:itemId/prediction
func GetPrediction(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	pred := mon.Prediction(storeID, itemID)
	if pred == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not enough price history to predict a price"})
		return
	}

	c.JSON(http.StatusOK, pred)
}

// GetRecommendation answers whether now is a good time to buy
// GET /internal/analysis/:storeId/:itemId/recommendation
func GetRecommendation(c *gin.Context) {
	storeID := c.Param("storeId")
	itemID := c.Param("itemId")

	// Always answerable: the insufficient-history case is a defined result,
	// not an error.
	rec := mon.Recommendation(storeID, itemID)
	c.JSON(http.StatusOK, rec)
}
