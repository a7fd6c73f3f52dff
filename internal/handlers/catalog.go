package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/groceryfinder/price-monitor/internal/catalog"
)

// ============================================================================
// Catalog & Comparison Endpoints
// ============================================================================

// ListStores returns the store catalog
// GET /internal/stores
func ListStores(c *gin.Context) {
	stores := catalog.Stores()
	c.JSON(http.StatusOK, gin.H{
		"stores": stores,
		"total":  len(stores),
	})
}

// SearchItems searches the item catalog by name, brand, or category
// GET /internal/items/search?q=...
func SearchItems(c *gin.Context) {
	items := catalog.SearchItems(c.Query("q"))
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}

// StorePriceEntry is one store's current price for an item
type StorePriceEntry struct {
	StoreID        string  `json:"storeId"`
	StoreName      string  `json:"storeName"`
	EffectivePrice float64 `json:"effectivePrice"`
	RegularPrice   float64 `json:"regularPrice"`
	OnSale         bool    `json:"onSale"`
	InStock        bool    `json:"inStock"`
}

// ComparisonResponse ranks an item's current prices across stores
type ComparisonResponse struct {
	ItemID       string            `json:"itemId"`
	Prices       []StorePriceEntry `json:"prices"`
	BestStoreID  string            `json:"bestStoreId"`
	LowestPrice  float64           `json:"lowestPrice"`
	HighestPrice float64           `json:"highestPrice"`
	AveragePrice float64           `json:"averagePrice"`
}

// CompareItemPrices compares an item's latest prices across all catalog stores
// GET /internal/items/:itemId/compare
func CompareItemPrices(c *gin.Context) {
	itemID := c.Param("itemId")
	if _, ok := catalog.ItemByID(itemID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "item not found"})
		return
	}

	resp := ComparisonResponse{ItemID: itemID}
	var sum float64
	for _, s := range catalog.Stores() {
		p, ok := mon.Latest(s.ID, itemID)
		if !ok {
			continue
		}
		eff := p.EffectivePrice()
		resp.Prices = append(resp.Prices, StorePriceEntry{
			StoreID:        s.ID,
			StoreName:      s.Name,
			EffectivePrice: eff,
			RegularPrice:   p.RegularPrice,
			OnSale:         p.OnSale(),
			InStock:        p.InStock,
		})
		sum += eff
		if resp.BestStoreID == "" || eff < resp.LowestPrice {
			resp.BestStoreID = s.ID
			resp.LowestPrice = eff
		}
		if eff > resp.HighestPrice {
			resp.HighestPrice = eff
		}
	}

	if len(resp.Prices) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prices recorded for this item"})
		return
	}
	resp.AveragePrice = sum / float64(len(resp.Prices))

	c.JSON(http.StatusOK, resp)
}
