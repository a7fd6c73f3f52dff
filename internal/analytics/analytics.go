// Package analytics derives trends, forecasts, and buy recommendations from
// price history snapshots. Every function here is pure: it reads a read-only
// history slice and returns a fresh result, holding no state of its own.
// "Not enough data" is expressed as a nil result, never as an error.
package analytics

import (
	"math"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

func effectivePrices(history []pricing.PricePoint) []float64 {
	prices := make([]float64, len(history))
	for i, p := range history {
		prices[i] = p.EffectivePrice()
	}
	return prices
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is the population variance.
func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return sq / float64(len(values))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
