package monitor

import (
	"context"
	"errors"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// ErrSourceUnavailable signals that a price source could not produce a value.
// The monitor absorbs it: the cached entry for the key is kept unchanged and
// the failure never reaches readers.
var ErrSourceUnavailable = errors.New("monitor: price source unavailable")

// PriceSource produces a fresh observation for a (store, item) pair. A store
// API client, a scraper, or the demo's randomized generator can all sit
// behind this interface; the monitor only depends on the contract.
//
// Implementations must honor ctx cancellation; the monitor wraps every fetch
// in a timeout and treats expiry as ErrSourceUnavailable.
type PriceSource interface {
	FetchPrice(ctx context.Context, storeID, itemID string) (pricing.PricePoint, error)
}
