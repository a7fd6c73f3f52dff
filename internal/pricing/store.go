package pricing

import (
	"math"
	"sync"
	"time"

	"github.com/groceryfinder/price-monitor/internal/clock"
)

// StoreConfig holds cache and retention settings for the price store.
type StoreConfig struct {
	// TTL is how long a cached latest-price entry is considered fresh.
	// Stale entries are still served; freshness only drives refresh decisions.
	TTL time.Duration

	// Retention bounds the per-key history window. Points older than the
	// window are purged on every write to the same key.
	Retention time.Duration
}

// DefaultStoreConfig returns the default cache settings: 30 minute TTL,
// 30 day history retention.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		TTL:       30 * time.Minute,
		Retention: 30 * 24 * time.Hour,
	}
}

type cacheEntry struct {
	point    PricePoint
	cachedAt time.Time
}

// Store is the single source of truth for the latest known price and the
// retained price history of every (store, item) pair. All mutation goes
// through Record; readers get defensive copies.
type Store struct {
	mu      sync.RWMutex
	clk     clock.Clock
	cfg     StoreConfig
	cache   map[Key]cacheEntry
	history map[Key][]PricePoint
}

// NewStore creates an empty price store.
func NewStore(cfg StoreConfig, clk clock.Clock) *Store {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultStoreConfig().TTL
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultStoreConfig().Retention
	}
	return &Store{
		clk:     clk,
		cfg:     cfg,
		cache:   make(map[Key]cacheEntry),
		history: make(map[Key][]PricePoint),
	}
}

// Record validates and stores an observation: it upserts the latest-price
// cache entry for the key, appends the point to the key's history, and purges
// points that fell out of the retention window. Observations older than the
// newest recorded point for the key are rejected with ErrStaleObservation.
func (s *Store) Record(p PricePoint) error {
	if err := p.Validate(); err != nil {
		return err
	}

	p = p.clone()
	k := p.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	hist := s.history[k]
	if n := len(hist); n > 0 && p.ObservedAt.Before(hist[n-1].ObservedAt) {
		return ErrStaleObservation
	}

	now := s.clk.Now()
	hist = append(hist, p)

	// Purge everything outside the retention window. History is ordered, so
	// find the first point still inside and reslice.
	cutoff := now.Add(-s.cfg.Retention)
	start := 0
	for start < len(hist) && !hist[start].ObservedAt.After(cutoff) {
		start++
	}
	if start > 0 {
		hist = append([]PricePoint(nil), hist[start:]...)
	}
	s.history[k] = hist

	s.cache[k] = cacheEntry{point: p, cachedAt: now}
	return nil
}

// Latest returns the cached latest price for the key, fresh or stale. The
// second return is false only when no price was ever recorded for the key.
// Latest never blocks and never triggers a fetch; refreshing stale entries
// is the caller's responsibility.
func (s *Store) Latest(storeID, itemID string) (PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[Key{StoreID: storeID, ItemID: itemID}]
	if !ok {
		return PricePoint{}, false
	}
	return entry.point.clone(), true
}

// Fresh reports whether the cached entry for the key exists and is within
// its TTL.
func (s *Store) Fresh(storeID, itemID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[Key{StoreID: storeID, ItemID: itemID}]
	if !ok {
		return false
	}
	return s.clk.Now().Sub(entry.cachedAt) < s.cfg.TTL
}

// History returns a copy of the retained history for the key, ordered by
// observation time. The result is never nil; an empty slice means no history.
func (s *Store) History(storeID, itemID string) []PricePoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hist := s.history[Key{StoreID: storeID, ItemID: itemID}]
	out := make([]PricePoint, 0, len(hist))
	for _, p := range hist {
		out = append(out, p.clone())
	}
	return out
}

// Stats computes average, lowest, highest, and volatility (population standard
// deviation) of the effective price across the retained history. All four
// values are zero for an empty history.
func (s *Store) Stats(storeID, itemID string) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.history[Key{StoreID: storeID, ItemID: itemID}]
	if len(hist) == 0 {
		return Stats{}
	}

	var sum float64
	lowest := math.Inf(1)
	highest := math.Inf(-1)
	for _, p := range hist {
		eff := p.EffectivePrice()
		sum += eff
		lowest = math.Min(lowest, eff)
		highest = math.Max(highest, eff)
	}
	avg := sum / float64(len(hist))

	var sqDiff float64
	for _, p := range hist {
		d := p.EffectivePrice() - avg
		sqDiff += d * d
	}

	return Stats{
		AveragePrice: avg,
		LowestPrice:  lowest,
		HighestPrice: highest,
		Volatility:   math.Sqrt(sqDiff / float64(len(hist))),
	}
}

// Keys returns every (store, item) pair with a cache entry.
func (s *Store) Keys() []Key {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]Key, 0, len(s.cache))
	for k := range s.cache {
		keys = append(keys, k)
	}
	return keys
}
