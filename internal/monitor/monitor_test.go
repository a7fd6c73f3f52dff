package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// fakeSource serves scripted prices and can be made to block or fail.
type fakeSource struct {
	mu      sync.Mutex
	price   float64
	err     error
	block   chan struct{} // when set, FetchPrice waits for it to close
	fetched chan struct{} // receives one signal per fetch
}

func newFakeSource(price float64) *fakeSource {
	return &fakeSource{price: price, fetched: make(chan struct{}, 16)}
}

func (f *fakeSource) set(price float64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
	f.err = err
}

func (f *fakeSource) FetchPrice(ctx context.Context, storeID, itemID string) (pricing.PricePoint, error) {
	f.mu.Lock()
	price, err, block := f.price, f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return pricing.PricePoint{}, ErrSourceUnavailable
		}
	}

	select {
	case f.fetched <- struct{}{}:
	default:
	}

	if err != nil {
		return pricing.PricePoint{}, err
	}
	return pricing.PricePoint{
		StoreID:      storeID,
		ItemID:       itemID,
		RegularPrice: price,
		InStock:      true,
		ObservedAt:   time.Now(),
	}, nil
}

func newTestMonitor(t *testing.T, src PriceSource) (*Monitor, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()
	store := pricing.NewStore(pricing.DefaultStoreConfig(), clk)
	mgr := alerts.NewManager(alerts.DefaultConfig(), clk, &logger, nil)
	m := New(store, mgr, src, clk, &logger, DefaultConfig())
	t.Cleanup(m.Stop)
	return m, clk
}

func obs(price float64, at time.Time) pricing.PricePoint {
	return pricing.PricePoint{
		StoreID:      "store-1",
		ItemID:       "item-1",
		RegularPrice: price,
		InStock:      true,
		ObservedAt:   at,
	}
}

func TestRecordPublishesToSubscribers(t *testing.T) {
	m, clk := newTestMonitor(t, newFakeSource(2.00))

	var events []Event
	unsubscribe := m.Subscribe("store-1", "item-1", func(e Event) { events = append(events, e) })

	require.NoError(t, m.Record(obs(2.50, clk.Now())))
	require.Len(t, events, 1)
	assert.Equal(t, EventPriceUpdate, events[0].Type)
	assert.Equal(t, 2.50, events[0].Point.RegularPrice)

	// Events for other keys do not reach this subscriber.
	other := obs(9.99, clk.Now())
	other.ItemID = "item-2"
	require.NoError(t, m.Record(other))
	assert.Len(t, events, 1)

	unsubscribe()
	clk.Advance(time.Minute)
	require.NoError(t, m.Record(obs(2.60, clk.Now())))
	assert.Len(t, events, 1, "no callbacks after unsubscribe")
}

func TestRecordRejectsInvalidObservations(t *testing.T) {
	m, clk := newTestMonitor(t, newFakeSource(2.00))

	var events int
	m.Subscribe("store-1", "item-1", func(Event) { events++ })

	err := m.Record(obs(-1.00, clk.Now()))
	assert.ErrorIs(t, err, pricing.ErrInvalidPrice)
	assert.Equal(t, 0, events, "rejected observations must not publish")

	require.NoError(t, m.Record(obs(2.00, clk.Now())))
	err = m.Record(obs(1.00, clk.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, pricing.ErrStaleObservation)
	assert.Equal(t, 1, events)
}

func TestSaleTransitionEvents(t *testing.T) {
	m, clk := newTestMonitor(t, newFakeSource(2.00))

	var types []EventType
	m.Subscribe("store-1", "item-1", func(e Event) { types = append(types, e.Type) })

	require.NoError(t, m.Record(obs(3.00, clk.Now())))

	clk.Advance(time.Hour)
	sale := 2.40
	onSale := obs(3.00, clk.Now())
	onSale.SalePrice = &sale
	require.NoError(t, m.Record(onSale))

	clk.Advance(time.Hour)
	require.NoError(t, m.Record(obs(3.00, clk.Now())))

	assert.Equal(t, []EventType{EventPriceUpdate, EventSaleStart, EventSaleEnd}, types)
}

func TestWatchPerformsInitialFetch(t *testing.T) {
	src := newFakeSource(4.20)
	m, _ := newTestMonitor(t, src)

	m.Watch("store-1", "item-1")

	require.Eventually(t, func() bool {
		_, ok := m.Latest("store-1", "item-1")
		return ok
	}, time.Second, 10*time.Millisecond)

	latest, _ := m.Latest("store-1", "item-1")
	assert.Equal(t, 4.20, latest.RegularPrice)
	assert.Len(t, m.Watched(), 1)

	// Watching the same key twice is a no-op.
	m.Watch("store-1", "item-1")
	assert.Len(t, m.Watched(), 1)
}

func TestRefreshKeepsStaleValueOnSourceFailure(t *testing.T) {
	src := newFakeSource(4.00)
	m, _ := newTestMonitor(t, src)

	m.Watch("store-1", "item-1")
	require.Eventually(t, func() bool {
		_, ok := m.Latest("store-1", "item-1")
		return ok
	}, time.Second, 10*time.Millisecond)

	src.set(0, ErrSourceUnavailable)
	m.refreshAll(context.Background())

	latest, ok := m.Latest("store-1", "item-1")
	require.True(t, ok, "stale entry must survive source failures")
	assert.Equal(t, 4.00, latest.RegularPrice)
}

func TestUnwatchDropsInFlightFetch(t *testing.T) {
	src := newFakeSource(4.00)
	m, _ := newTestMonitor(t, src)

	m.Watch("store-1", "item-1")
	require.Eventually(t, func() bool {
		_, ok := m.Latest("store-1", "item-1")
		return ok
	}, time.Second, 10*time.Millisecond)

	// Block the next fetch mid-flight.
	release := make(chan struct{})
	src.mu.Lock()
	src.block = release
	src.price = 9.99
	src.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.refreshKey(context.Background(), pricing.Key{StoreID: "store-1", ItemID: "item-1"})
		close(done)
	}()

	m.Unwatch("store-1", "item-1")
	close(release)
	<-done

	latest, ok := m.Latest("store-1", "item-1")
	require.True(t, ok)
	assert.Equal(t, 4.00, latest.RegularPrice, "in-flight result must be dropped after Unwatch")
	assert.Empty(t, m.Watched())
}

func TestStopSilencesCallbacks(t *testing.T) {
	m, clk := newTestMonitor(t, newFakeSource(2.00))

	var events int
	m.Subscribe("store-1", "item-1", func(Event) { events++ })
	require.NoError(t, m.Record(obs(2.00, clk.Now())))
	require.Equal(t, 1, events)

	m.Stop()

	clk.Advance(time.Minute)
	m.Record(obs(2.50, clk.Now()))
	assert.Equal(t, 1, events, "no callbacks may fire after Stop")

	// Subscribing after Stop yields an inert unsubscribe.
	cancel := m.Subscribe("store-1", "item-1", func(Event) { events++ })
	cancel()
}

func TestDerivedAnalysisLifecycle(t *testing.T) {
	m, clk := newTestMonitor(t, newFakeSource(2.00))

	assert.Nil(t, m.Trend("store-1", "item-1"))
	assert.Nil(t, m.Prediction("store-1", "item-1"))
	rec := m.Recommendation("store-1", "item-1")
	assert.False(t, rec.Recommended)
	assert.Equal(t, "insufficient price history", rec.Reasoning)

	// A week of slowly falling prices.
	prices := []float64{5.00, 5.00, 4.80, 4.60, 4.40, 4.20, 4.00}
	for _, price := range prices {
		require.NoError(t, m.Record(obs(price, clk.Now())))
		clk.Advance(24 * time.Hour)
	}

	trend := m.Trend("store-1", "item-1")
	require.NotNil(t, trend)
	assert.Equal(t, "decreasing", string(trend.Direction))

	pred := m.Prediction("store-1", "item-1")
	require.NotNil(t, pred)
	assert.Less(t, pred.PredictedPrice, 4.00)

	rec = m.Recommendation("store-1", "item-1")
	assert.True(t, rec.Recommended)

	stats := m.Stats("store-1", "item-1")
	assert.InDelta(t, 4.571, stats.AveragePrice, 0.001)
	assert.Equal(t, 4.00, stats.LowestPrice)

	assert.Greater(t, m.StabilityScore("store-1", "item-1"), 90.0)
}

func TestAlertsFireThroughMonitor(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()
	store := pricing.NewStore(pricing.DefaultStoreConfig(), clk)

	var fired int
	mgr := alerts.NewManager(alerts.DefaultConfig(), clk, &logger, func(alerts.Alert, pricing.PricePoint) { fired++ })
	m := New(store, mgr, newFakeSource(2.00), clk, &logger, DefaultConfig())
	t.Cleanup(m.Stop)

	_, err := mgr.Add(alerts.Alert{ItemID: "item-1", StoreID: "store-1", TargetPrice: 5.00, Active: true})
	require.NoError(t, err)

	require.NoError(t, m.Record(obs(4.99, clk.Now())))
	assert.Equal(t, 1, fired)
}
