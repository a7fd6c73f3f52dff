// Package monitor wires the price store, analytics, and alerting together:
// it ingests price events, keeps derived analysis per watched key, runs the
// periodic refresh loop against a PriceSource, and fans events out to
// subscribers.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/analytics"
	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// EventType classifies a published price event.
type EventType string

const (
	EventPriceUpdate EventType = "price_update"
	EventSaleStart   EventType = "sale_start"
	EventSaleEnd     EventType = "sale_end"
)

// Event is delivered to subscribers for every accepted observation on a key.
type Event struct {
	Type  EventType          `json:"type"`
	Point pricing.PricePoint `json:"point"`
}

// Config holds monitor settings.
type Config struct {
	// RefreshInterval is how often the refresh loop polls the source for
	// every watched key.
	RefreshInterval time.Duration

	// FetchTimeout bounds a single source fetch. On expiry the source is
	// treated as unavailable and the stale cache entry is retained.
	FetchTimeout time.Duration

	// TrendWindow is the trailing span for trend classification.
	TrendWindow time.Duration

	// PredictionHorizon is how far ahead prices are forecast.
	PredictionHorizon time.Duration

	// MaxConcurrentFetches bounds the refresh fan-out.
	MaxConcurrentFetches int
}

// DefaultConfig returns the default monitor settings.
func DefaultConfig() Config {
	return Config{
		RefreshInterval:      5 * time.Minute,
		FetchTimeout:         10 * time.Second,
		TrendWindow:          analytics.DefaultTrendWindow,
		PredictionHorizon:    analytics.DefaultPredictionHorizon,
		MaxConcurrentFetches: 4,
	}
}

type analysis struct {
	trend      *analytics.Trend
	prediction *analytics.Prediction
	advice     *analytics.Recommendation
}

// Monitor owns the monitoring lifecycle. Construct with New, start the
// refresh loop with Start, and always Stop before discarding: Stop
// guarantees no subscriber callback fires afterwards, even for fetches that
// were in flight.
type Monitor struct {
	store  *pricing.Store
	alerts *alerts.Manager
	source PriceSource
	clk    clock.Clock
	logger *zerolog.Logger
	cfg    Config

	mu       sync.Mutex
	watched  map[pricing.Key]struct{}
	subs     map[pricing.Key]map[int]func(Event)
	nextSub  int
	derived  map[pricing.Key]analysis
	stopped  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a monitor around an existing store and alert manager.
func New(store *pricing.Store, alertMgr *alerts.Manager, source PriceSource, clk clock.Clock, logger *zerolog.Logger, cfg Config) *Monitor {
	def := DefaultConfig()
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = def.TrendWindow
	}
	if cfg.PredictionHorizon <= 0 {
		cfg.PredictionHorizon = def.PredictionHorizon
	}
	if cfg.MaxConcurrentFetches <= 0 {
		cfg.MaxConcurrentFetches = def.MaxConcurrentFetches
	}
	return &Monitor{
		store:    store,
		alerts:   alertMgr,
		source:   source,
		clk:      clk,
		logger:   logger,
		cfg:      cfg,
		watched:  make(map[pricing.Key]struct{}),
		subs:     make(map[pricing.Key]map[int]func(Event)),
		derived:  make(map[pricing.Key]analysis),
		stopChan: make(chan struct{}),
	}
}

// Record ingests one observation: it updates the store, lets the alert
// manager scan it, refreshes the derived analysis for the key, and publishes
// an event to subscribers. Validation and ordering errors are returned to
// the caller and leave all state untouched.
func (m *Monitor) Record(p pricing.PricePoint) error {
	prev, hadPrev := m.store.Latest(p.StoreID, p.ItemID)

	if err := m.store.Record(p); err != nil {
		eventsRejected.Inc()
		return err
	}
	eventsRecorded.Inc()

	m.alerts.HandlePoint(p)
	m.refreshAnalysis(p.Key())
	m.publish(eventFor(p, prev, hadPrev))
	return nil
}

func eventFor(p pricing.PricePoint, prev pricing.PricePoint, hadPrev bool) Event {
	typ := EventPriceUpdate
	if hadPrev {
		switch {
		case p.OnSale() && !prev.OnSale():
			typ = EventSaleStart
		case !p.OnSale() && prev.OnSale():
			typ = EventSaleEnd
		}
	}
	return Event{Type: typ, Point: p}
}

// Subscribe registers a callback for events on a key and returns an
// unsubscribe function. Callbacks stop after unsubscribe, Unwatch of the
// key, or Stop.
func (m *Monitor) Subscribe(storeID, itemID string, fn func(Event)) func() {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return func() {}
	}

	id := m.nextSub
	m.nextSub++
	if m.subs[k] == nil {
		m.subs[k] = make(map[int]func(Event))
	}
	m.subs[k][id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.subs[k]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(m.subs, k)
			}
		}
	}
}

func (m *Monitor) publish(e Event) {
	k := e.Point.Key()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	callbacks := make([]func(Event), 0, len(m.subs[k]))
	for _, fn := range m.subs[k] {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(e)
	}
}

// Watch adds a key to the refresh schedule and performs an initial fetch in
// the background. Watching an already-watched key is a no-op.
func (m *Monitor) Watch(storeID, itemID string) {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	if _, ok := m.watched[k]; ok {
		m.mu.Unlock()
		return
	}
	m.watched[k] = struct{}{}
	watchedKeys.Set(float64(len(m.watched)))
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.refreshKey(context.Background(), k)
	}()
}

// Unwatch removes a key from the refresh schedule, drops its subscribers,
// and clears its derived analysis. Results of fetches already in flight for
// the key are discarded.
func (m *Monitor) Unwatch(storeID, itemID string) {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watched, k)
	delete(m.subs, k)
	delete(m.derived, k)
	watchedKeys.Set(float64(len(m.watched)))
}

// Watched returns the keys currently on the refresh schedule.
func (m *Monitor) Watched() []pricing.Key {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]pricing.Key, 0, len(m.watched))
	for k := range m.watched {
		keys = append(keys, k)
	}
	return keys
}

// Start launches the periodic refresh loop.
func (m *Monitor) Start() {
	m.logger.Info().
		Dur("interval", m.cfg.RefreshInterval).
		Msg("Starting price refresh loop")

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-m.stopChan:
				m.logger.Info().Msg("Price refresh loop stopping")
				return
			case <-ticker.C:
				m.refreshAll(context.Background())
			}
		}
	}()
}

// Stop halts the refresh loop and silences all callbacks, then waits for
// in-flight work to drain. Safe to call once.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.mu.Unlock()

	close(m.stopChan)
	m.wg.Wait()
	m.logger.Info().Msg("Monitor stopped")
}

// refreshAll polls the source once for every watched key, with bounded
// concurrency.
func (m *Monitor) refreshAll(ctx context.Context) {
	keys := m.Watched()
	if len(keys) == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxConcurrentFetches)
	for _, k := range keys {
		k := k
		g.Go(func() error {
			m.refreshKey(ctx, k)
			return nil
		})
	}
	g.Wait()
}

// refreshKey fetches a fresh observation for one key and records it. Source
// failures keep the existing cache entry untouched. If the key was unwatched
// or the monitor stopped while the fetch was in flight, the result is
// dropped.
func (m *Monitor) refreshKey(ctx context.Context, k pricing.Key) {
	start := time.Now()
	defer func() {
		refreshDuration.Observe(time.Since(start).Seconds())
	}()

	fetchCtx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	p, err := m.source.FetchPrice(fetchCtx, k.StoreID, k.ItemID)
	if err != nil {
		sourceErrors.Inc()
		m.logger.Debug().
			Err(err).
			Str("store_id", k.StoreID).
			Str("item_id", k.ItemID).
			Msg("Price source unavailable, keeping cached value")
		return
	}

	m.mu.Lock()
	_, stillWatched := m.watched[k]
	stopped := m.stopped
	m.mu.Unlock()
	if stopped || !stillWatched {
		return
	}

	if err := m.Record(p); err != nil {
		m.logger.Debug().
			Err(err).
			Str("store_id", k.StoreID).
			Str("item_id", k.ItemID).
			Msg("Dropped refreshed observation")
	}
}

// refreshAnalysis recomputes the derived trend, prediction, and
// recommendation for a key. Results are a cache of derived data, overwritten
// wholesale on each refresh; the history remains the source of truth.
func (m *Monitor) refreshAnalysis(k pricing.Key) {
	history := m.store.History(k.StoreID, k.ItemID)
	now := m.clk.Now()

	a := analysis{
		trend:      analytics.AnalyzeTrend(history, now, m.cfg.TrendWindow),
		prediction: analytics.Predict(history, now, m.cfg.PredictionHorizon),
	}
	if latest, ok := m.store.Latest(k.StoreID, k.ItemID); ok {
		rec := analytics.Recommend(history, latest.EffectivePrice())
		a.advice = &rec
	}

	m.mu.Lock()
	m.derived[k] = a
	m.mu.Unlock()
}

// Trend returns the trend classification for a key, or nil when there is
// not enough data. Cached derived results are served when present; otherwise
// the trend is computed on demand.
func (m *Monitor) Trend(storeID, itemID string) *analytics.Trend {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	if a, ok := m.derived[k]; ok {
		m.mu.Unlock()
		return a.trend
	}
	m.mu.Unlock()

	return analytics.AnalyzeTrend(m.store.History(storeID, itemID), m.clk.Now(), m.cfg.TrendWindow)
}

// Prediction returns the price forecast for a key, or nil when there is not
// enough data.
func (m *Monitor) Prediction(storeID, itemID string) *analytics.Prediction {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	if a, ok := m.derived[k]; ok {
		m.mu.Unlock()
		return a.prediction
	}
	m.mu.Unlock()

	return analytics.Predict(m.store.History(storeID, itemID), m.clk.Now(), m.cfg.PredictionHorizon)
}

// Recommendation answers whether now is a good time to buy. The zero-data
// case yields the defined "insufficient history" result.
func (m *Monitor) Recommendation(storeID, itemID string) analytics.Recommendation {
	k := pricing.Key{StoreID: storeID, ItemID: itemID}

	m.mu.Lock()
	if a, ok := m.derived[k]; ok && a.advice != nil {
		m.mu.Unlock()
		return *a.advice
	}
	m.mu.Unlock()

	history := m.store.History(storeID, itemID)
	current := 0.0
	if latest, ok := m.store.Latest(storeID, itemID); ok {
		current = latest.EffectivePrice()
	}
	return analytics.Recommend(history, current)
}

// Latest exposes the store's latest-price lookup.
func (m *Monitor) Latest(storeID, itemID string) (pricing.PricePoint, bool) {
	return m.store.Latest(storeID, itemID)
}

// History exposes the store's retained history for a key.
func (m *Monitor) History(storeID, itemID string) []pricing.PricePoint {
	return m.store.History(storeID, itemID)
}

// Stats exposes the store's history statistics for a key.
func (m *Monitor) Stats(storeID, itemID string) pricing.Stats {
	return m.store.Stats(storeID, itemID)
}

// VolatilityScore is the 0-100 normalized volatility of a key's history.
func (m *Monitor) VolatilityScore(storeID, itemID string) float64 {
	return analytics.VolatilityScore(m.store.History(storeID, itemID))
}

// StabilityScore is the 0-100 price stability of a key's history.
func (m *Monitor) StabilityScore(storeID, itemID string) float64 {
	return analytics.StabilityScore(m.store.History(storeID, itemID))
}
