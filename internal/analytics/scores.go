package analytics

import (
	"math"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// VolatilityScore normalizes the population standard deviation of the
// effective price to a 0-100 scale relative to the average price. An empty
// history or a zero average scores 0.
func VolatilityScore(history []pricing.PricePoint) float64 {
	prices := effectivePrices(history)
	avg := mean(prices)
	if avg == 0 {
		return 0
	}
	stddev := math.Sqrt(variance(prices))
	return math.Min(100, stddev/avg*100)
}

// StabilityScore is the complement of VolatilityScore: 100 means the price
// never moves, 0 means it swings constantly.
func StabilityScore(history []pricing.PricePoint) float64 {
	return math.Max(0, 100-VolatilityScore(history))
}
