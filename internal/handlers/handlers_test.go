package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/monitor"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// stubSource serves a fixed price for every fetch.
type stubSource struct{ price float64 }

func (s stubSource) FetchPrice(ctx context.Context, storeID, itemID string) (pricing.PricePoint, error) {
	return pricing.PricePoint{
		StoreID:      storeID,
		ItemID:       itemID,
		RegularPrice: s.price,
		InStock:      true,
		ObservedAt:   time.Now(),
	}, nil
}

func setupRouter(t *testing.T) (*gin.Engine, *clock.Fake) {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()
	store := pricing.NewStore(pricing.DefaultStoreConfig(), clk)
	mgr := alerts.NewManager(alerts.DefaultConfig(), clk, &logger, nil)
	m := monitor.New(store, mgr, stubSource{price: 3.33}, clk, &logger, monitor.DefaultConfig())
	t.Cleanup(m.Stop)

	Init(m, mgr)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/health", HealthCheck)
	router.POST("/internal/prices", RecordPrice)
	router.GET("/internal/prices/:storeId/:itemId", GetLatestPrice)
	router.GET("/internal/prices/:storeId/:itemId/history", GetPriceHistory)
	router.GET("/internal/prices/:storeId/:itemId/stats", GetPriceStats)
	router.GET("/internal/analysis/:storeId/:itemId/trend", GetTrend)
	router.GET("/internal/analysis/:storeId/:itemId/prediction", GetPrediction)
	router.GET("/internal/analysis/:storeId/:itemId/recommendation", GetRecommendation)
	router.POST("/internal/alerts", CreateAlert)
	router.GET("/internal/alerts", ListAlerts)
	router.GET("/internal/alerts/:id", GetAlert)
	router.DELETE("/internal/alerts/:id", DeleteAlert)
	router.PATCH("/internal/alerts/:id", SetAlertActive)
	router.POST("/internal/watch", Watch)
	router.GET("/internal/watch", ListWatched)
	router.DELETE("/internal/watch/:storeId/:itemId", Unwatch)
	router.GET("/internal/stores", ListStores)
	router.GET("/internal/items/search", SearchItems)
	router.GET("/internal/items/:itemId/compare", CompareItemPrices)

	return router, clk
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func recordPrice(t *testing.T, router *gin.Engine, storeID, itemID string, price float64, at time.Time) {
	t.Helper()
	ms := at.UnixMilli()
	w := doJSON(t, router, "POST", "/internal/prices", RecordPriceRequest{
		StoreID:      storeID,
		ItemID:       itemID,
		RegularPrice: price,
		ObservedAt:   &ms,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestRecordAndGetLatestPrice(t *testing.T) {
	router, clk := setupRouter(t)

	w := doJSON(t, router, "GET", "/internal/prices/1/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	recordPrice(t, router, "1", "1", 2.49, clk.Now())

	w = doJSON(t, router, "GET", "/internal/prices/1/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p pricing.PricePoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, 2.49, p.RegularPrice)
	assert.Equal(t, "1", p.StoreID)
}

func TestRecordPriceValidation(t *testing.T) {
	router, clk := setupRouter(t)

	// Binding rejects non-positive prices.
	ms := clk.Now().UnixMilli()
	w := doJSON(t, router, "POST", "/internal/prices", gin.H{
		"storeId": "1", "itemId": "1", "regularPrice": -1.0, "observedAt": ms,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Sale price above regular price fails domain validation.
	sale := 9.99
	w = doJSON(t, router, "POST", "/internal/prices", RecordPriceRequest{
		StoreID: "1", ItemID: "1", RegularPrice: 2.00, SalePrice: &sale, ObservedAt: &ms,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Out-of-order observations conflict.
	recordPrice(t, router, "1", "1", 2.00, clk.Now())
	old := clk.Now().Add(-time.Hour).UnixMilli()
	w = doJSON(t, router, "POST", "/internal/prices", RecordPriceRequest{
		StoreID: "1", ItemID: "1", RegularPrice: 1.50, ObservedAt: &old,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPriceHistoryAndStats(t *testing.T) {
	router, clk := setupRouter(t)

	w := doJSON(t, router, "GET", "/internal/prices/1/1/stats", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, price := range []float64{2.00, 3.00, 4.00} {
		recordPrice(t, router, "1", "1", price, clk.Now())
		clk.Advance(24 * time.Hour)
	}

	w = doJSON(t, router, "GET", "/internal/prices/1/1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var hist map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &hist))
	var total int
	require.NoError(t, json.Unmarshal(hist["total"], &total))
	assert.Equal(t, 3, total)

	w = doJSON(t, router, "GET", "/internal/prices/1/1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats PriceStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3.00, stats.AveragePrice)
	assert.Equal(t, 2.00, stats.LowestPrice)
	assert.Equal(t, 4.00, stats.HighestPrice)
	assert.Equal(t, 3, stats.Observations)
}

func TestAnalysisEndpoints(t *testing.T) {
	router, clk := setupRouter(t)

	w := doJSON(t, router, "GET", "/internal/analysis/1/1/trend", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, router, "GET", "/internal/analysis/1/1/prediction", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The no-data recommendation is a defined answer, not an error.
	w = doJSON(t, router, "GET", "/internal/analysis/1/1/recommendation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, false, rec["recommended"])

	for _, price := range []float64{5.00, 4.80, 4.60, 4.40, 4.20, 4.00, 3.80} {
		recordPrice(t, router, "1", "1", price, clk.Now())
		clk.Advance(24 * time.Hour)
	}

	w = doJSON(t, router, "GET", "/internal/analysis/1/1/trend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var trend map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trend))
	assert.Equal(t, "decreasing", trend["direction"])

	w = doJSON(t, router, "GET", "/internal/analysis/1/1/prediction", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/internal/analysis/1/1/recommendation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, true, rec["recommended"])
}

func TestAlertLifecycle(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/internal/alerts", CreateAlertRequest{
		OwnerID: "user-1", ItemID: "1", StoreID: "1", TargetPrice: 2.00,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created alerts.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	w = doJSON(t, router, "GET", "/internal/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), created.ID)

	w = doJSON(t, router, "GET", "/internal/alerts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	inactive := false
	w = doJSON(t, router, "PATCH", "/internal/alerts/"+created.ID, SetAlertActiveRequest{Active: &inactive})
	require.Equal(t, http.StatusOK, w.Code)
	var patched alerts.Alert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &patched))
	assert.False(t, patched.Active)

	w = doJSON(t, router, "DELETE", "/internal/alerts/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/internal/alerts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertValidation(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/internal/alerts", gin.H{
		"itemId": "1", "storeId": "1", "targetPrice": -5.0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, "PATCH", "/internal/alerts/missing", SetAlertActiveRequest{Active: new(bool)})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWatchEndpoints(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "POST", "/internal/watch", WatchRequest{StoreID: "1", ItemID: "2"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "GET", "/internal/watch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = doJSON(t, router, "DELETE", "/internal/watch/1/2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/internal/watch", nil)
	assert.Contains(t, w.Body.String(), `"total":0`)
}

func TestCatalogEndpoints(t *testing.T) {
	router, clk := setupRouter(t)

	w := doJSON(t, router, "GET", "/internal/stores", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Walmart")

	w = doJSON(t, router, "GET", "/internal/items/search?q=milk", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = doJSON(t, router, "GET", "/internal/items/99/compare", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown item")

	w = doJSON(t, router, "GET", "/internal/items/1/compare", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "no prices yet")

	for i, price := range []float64{1.99, 1.49, 2.29} {
		recordPrice(t, router, fmt.Sprintf("%d", i+1), "1", price, clk.Now())
	}

	w = doJSON(t, router, "GET", "/internal/items/1/compare", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cmp ComparisonResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cmp))
	assert.Len(t, cmp.Prices, 3)
	assert.Equal(t, "2", cmp.BestStoreID)
	assert.Equal(t, 1.49, cmp.LowestPrice)
	assert.Equal(t, 2.29, cmp.HighestPrice)
	assert.InDelta(t, 1.9233, cmp.AveragePrice, 0.001)
}

func TestHealthCheck(t *testing.T) {
	router, _ := setupRouter(t)

	w := doJSON(t, router, "GET", "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}
