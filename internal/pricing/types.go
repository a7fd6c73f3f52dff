// Package pricing holds the in-memory price store: the latest-known price
// per (store, item) pair plus a bounded observation history used by the
// analytics and alerting layers.
package pricing

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPrice is returned when a price observation fails validation.
	ErrInvalidPrice = errors.New("pricing: invalid price point")

	// ErrStaleObservation is returned when an observation is older than the
	// newest point already recorded for its key. History is append-only and
	// ordered by observation time, so stale writes are rejected rather than
	// spliced in.
	ErrStaleObservation = errors.New("pricing: observation older than recorded history")
)

// Key identifies a (store, item) pair.
type Key struct {
	StoreID string `json:"storeId"`
	ItemID  string `json:"itemId"`
}

// PricePoint is one observed price at one instant for one (store, item) pair.
// Immutable once recorded.
type PricePoint struct {
	StoreID      string    `json:"storeId"`
	ItemID       string    `json:"itemId"`
	RegularPrice float64   `json:"regularPrice"`
	SalePrice    *float64  `json:"salePrice,omitempty"`
	InStock      bool      `json:"inStock"`
	ObservedAt   time.Time `json:"observedAt"`
}

// Key returns the (store, item) key for the point.
func (p PricePoint) Key() Key {
	return Key{StoreID: p.StoreID, ItemID: p.ItemID}
}

// EffectivePrice is the sale price when one is set, otherwise the regular price.
func (p PricePoint) EffectivePrice() float64 {
	if p.SalePrice != nil {
		return *p.SalePrice
	}
	return p.RegularPrice
}

// OnSale reports whether the point carries a sale price.
func (p PricePoint) OnSale() bool { return p.SalePrice != nil }

// Validate checks the point at the ingestion boundary. A failed validation
// means the point must not be recorded.
func (p PricePoint) Validate() error {
	if p.StoreID == "" {
		return fmt.Errorf("%w: missing storeId", ErrInvalidPrice)
	}
	if p.ItemID == "" {
		return fmt.Errorf("%w: missing itemId", ErrInvalidPrice)
	}
	if p.RegularPrice <= 0 {
		return fmt.Errorf("%w: regular price %.2f must be positive", ErrInvalidPrice, p.RegularPrice)
	}
	if p.SalePrice != nil {
		if *p.SalePrice <= 0 {
			return fmt.Errorf("%w: sale price %.2f must be positive", ErrInvalidPrice, *p.SalePrice)
		}
		if *p.SalePrice > p.RegularPrice {
			return fmt.Errorf("%w: sale price %.2f exceeds regular price %.2f", ErrInvalidPrice, *p.SalePrice, p.RegularPrice)
		}
	}
	if p.ObservedAt.IsZero() {
		return fmt.Errorf("%w: missing observation timestamp", ErrInvalidPrice)
	}
	return nil
}

// clone deep-copies the point so callers cannot mutate stored state through
// the SalePrice pointer.
func (p PricePoint) clone() PricePoint {
	if p.SalePrice != nil {
		sp := *p.SalePrice
		p.SalePrice = &sp
	}
	return p
}

// Stats summarizes the retained history of a key. All values are zero when
// the history is empty; that is a defined degenerate case, not an error.
type Stats struct {
	AveragePrice float64 `json:"averagePrice"`
	LowestPrice  float64 `json:"lowestPrice"`
	HighestPrice float64 `json:"highestPrice"`
	// Volatility is the population standard deviation of the effective price.
	Volatility float64 `json:"volatility"`
}
