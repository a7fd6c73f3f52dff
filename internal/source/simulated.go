// Package source provides PriceSource implementations. The demo ships a
// single randomized generator standing in for real store APIs; production
// clients would implement the same interface.
package source

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/monitor"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// SimulatedConfig tunes the randomized generator.
type SimulatedConfig struct {
	// SaleRate is the probability that an observation carries a sale price
	// (20% off the regular price).
	SaleRate float64

	// InStockRate is the probability that the item is in stock.
	InStockRate float64

	// UnavailableRate is the probability that a fetch fails, simulating a
	// flaky upstream.
	UnavailableRate float64

	// DriftPct bounds the per-fetch random walk of the regular price, as a
	// fraction (0.03 means up to +-3% per observation).
	DriftPct float64
}

// DefaultSimulatedConfig mirrors the demo defaults: 30% sale chance, 90%
// in stock, occasional unavailability, gentle price drift.
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		SaleRate:        0.3,
		InStockRate:     0.9,
		UnavailableRate: 0.05,
		DriftPct:        0.03,
	}
}

// Simulated is a randomized PriceSource. Each (store, item) pair gets a
// stable base price between $1 and $6 on first fetch; subsequent fetches
// random-walk around it. Safe for concurrent use.
type Simulated struct {
	cfg SimulatedConfig
	clk clock.Clock

	mu   sync.Mutex
	rng  *rand.Rand
	base map[pricing.Key]float64
}

// NewSimulated creates a generator with a fixed seed so demo runs are
// reproducible.
func NewSimulated(cfg SimulatedConfig, clk clock.Clock, seed int64) *Simulated {
	return &Simulated{
		cfg:  cfg,
		clk:  clk,
		rng:  rand.New(rand.NewSource(seed)),
		base: make(map[pricing.Key]float64),
	}
}

// FetchPrice produces the next simulated observation for the pair.
func (s *Simulated) FetchPrice(ctx context.Context, storeID, itemID string) (pricing.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return pricing.PricePoint{}, fmt.Errorf("%w: %v", monitor.ErrSourceUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rng.Float64() < s.cfg.UnavailableRate {
		return pricing.PricePoint{}, monitor.ErrSourceUnavailable
	}

	k := pricing.Key{StoreID: storeID, ItemID: itemID}
	price, ok := s.base[k]
	if !ok {
		price = s.rng.Float64()*5 + 1
	}

	// Random walk within the drift bound, floored at 50 cents.
	price *= 1 + (s.rng.Float64()*2-1)*s.cfg.DriftPct
	price = math.Max(0.50, roundCents(price))
	s.base[k] = price

	p := pricing.PricePoint{
		StoreID:      storeID,
		ItemID:       itemID,
		RegularPrice: price,
		InStock:      s.rng.Float64() < s.cfg.InStockRate,
		ObservedAt:   s.clk.Now(),
	}
	if s.rng.Float64() < s.cfg.SaleRate {
		sale := roundCents(price * 0.8)
		p.SalePrice = &sale
	}
	return p, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
