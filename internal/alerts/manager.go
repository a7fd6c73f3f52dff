// Package alerts manages user-defined target-price watches and the coarse
// price-change signal fired when consecutive observations for a key move by
// more than a configured percentage.
package alerts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/pricing"
)

var (
	// ErrInvalidAlert is returned when an alert fails boundary validation.
	ErrInvalidAlert = errors.New("alerts: invalid alert")

	// ErrNotFound is returned when an alert id does not exist.
	ErrNotFound = errors.New("alerts: alert not found")
)

// Alert is a user intent record: notify the owner when the effective price
// of (itemId, storeId) drops to or below targetPrice. Alerts never expire on
// their own and stay active after firing; every qualifying event re-fires
// the notification. That re-fire behavior is deliberate.
type Alert struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	ItemID      string    `json:"itemId"`
	StoreID     string    `json:"storeId"`
	TargetPrice float64   `json:"targetPrice"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotifyFunc receives a fired target-price alert together with the
// observation that triggered it.
type NotifyFunc func(Alert, pricing.PricePoint)

// ChangeEvent describes a significant move between two consecutive
// observations for a key. It is an observability signal, not a per-user alert.
type ChangeEvent struct {
	Key              pricing.Key `json:"key"`
	PreviousPrice    float64     `json:"previousPrice"`
	CurrentPrice     float64     `json:"currentPrice"`
	PercentageChange float64     `json:"percentageChange"`
	Message          string      `json:"message"`
}

// ChangeFunc receives price-change events.
type ChangeFunc func(ChangeEvent)

// Config holds alert manager settings.
type Config struct {
	// ChangeThreshold is the percentage move between consecutive prices that
	// fires a change event. Default 5.
	ChangeThreshold float64
}

// DefaultConfig returns the default alert settings.
func DefaultConfig() Config {
	return Config{ChangeThreshold: 5}
}

// Manager owns all alert records. It consumes the same price event stream
// as the price store; HandlePoint must be called for every accepted event.
type Manager struct {
	clk      clock.Clock
	logger   *zerolog.Logger
	cfg      Config
	notify   NotifyFunc
	onChange ChangeFunc

	mu       sync.Mutex
	byID     map[string]*Alert
	byKey    map[pricing.Key][]string
	lastSeen map[pricing.Key]float64
}

// NewManager creates an alert manager. notify may be nil, in which case
// fired alerts are only logged.
func NewManager(cfg Config, clk clock.Clock, logger *zerolog.Logger, notify NotifyFunc) *Manager {
	if cfg.ChangeThreshold <= 0 {
		cfg.ChangeThreshold = DefaultConfig().ChangeThreshold
	}
	return &Manager{
		clk:      clk,
		logger:   logger,
		cfg:      cfg,
		notify:   notify,
		byID:     make(map[string]*Alert),
		byKey:    make(map[pricing.Key][]string),
		lastSeen: make(map[pricing.Key]float64),
	}
}

// SetChangeFunc registers a callback for price-change events.
func (m *Manager) SetChangeFunc(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Add validates and stores an alert, assigning an id when none is given.
// Duplicate target prices for the same key are allowed.
func (m *Manager) Add(a Alert) (Alert, error) {
	if a.ItemID == "" || a.StoreID == "" {
		return Alert{}, fmt.Errorf("%w: itemId and storeId are required", ErrInvalidAlert)
	}
	if a.TargetPrice <= 0 {
		return Alert{}, fmt.Errorf("%w: target price %.2f must be positive", ErrInvalidAlert, a.TargetPrice)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = m.clk.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored := a
	m.byID[a.ID] = &stored
	k := pricing.Key{StoreID: a.StoreID, ItemID: a.ItemID}
	m.byKey[k] = append(m.byKey[k], a.ID)

	m.logger.Info().
		Str("alert_id", a.ID).
		Str("store_id", a.StoreID).
		Str("item_id", a.ItemID).
		Float64("target_price", a.TargetPrice).
		Msg("Alert registered")

	return a, nil
}

// Remove deletes an alert by id. Removing an unknown id is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.byID[id]
	if !ok {
		return
	}
	delete(m.byID, id)

	k := pricing.Key{StoreID: a.StoreID, ItemID: a.ItemID}
	ids := m.byKey[k]
	for i, candidate := range ids {
		if candidate == id {
			m.byKey[k] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byKey[k]) == 0 {
		delete(m.byKey, k)
	}
}

// Get returns the alert with the given id.
func (m *Manager) Get(id string) (Alert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return Alert{}, false
	}
	return *a, true
}

// List returns all alerts ordered by creation time.
func (m *Manager) List() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Alert, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// SetActive activates or deactivates an alert.
func (m *Manager) SetActive(id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	a.Active = active
	return nil
}

// HandlePoint scans alerts for the point's key and fires every active alert
// whose target price is at or above the effective price. It also tracks
// consecutive observations and emits a change event when the move exceeds
// the configured threshold.
func (m *Manager) HandlePoint(p pricing.PricePoint) {
	eff := p.EffectivePrice()
	k := p.Key()

	m.mu.Lock()
	var fired []Alert
	for _, id := range m.byKey[k] {
		a := m.byID[id]
		if a.Active && a.TargetPrice >= eff {
			fired = append(fired, *a)
		}
	}

	var change *ChangeEvent
	if prev, ok := m.lastSeen[k]; ok && prev > 0 {
		pct := (eff - prev) / prev * 100
		if math.Abs(pct) >= m.cfg.ChangeThreshold {
			direction := "increased"
			if eff < prev {
				direction = "decreased"
			}
			change = &ChangeEvent{
				Key:              k,
				PreviousPrice:    prev,
				CurrentPrice:     eff,
				PercentageChange: pct,
				Message:          fmt.Sprintf("price %s by %.1f%% for %s at %s", direction, math.Abs(pct), k.ItemID, k.StoreID),
			}
		}
	}
	m.lastSeen[k] = eff
	onChange := m.onChange
	m.mu.Unlock()

	// Callbacks run outside the lock so they may call back into the manager.
	for _, a := range fired {
		targetAlertsFired.Inc()
		m.logger.Info().
			Str("alert_id", a.ID).
			Str("owner_id", a.OwnerID).
			Float64("target_price", a.TargetPrice).
			Float64("effective_price", eff).
			Msg("Target price alert fired")
		if m.notify != nil {
			m.notify(a, p)
		}
	}

	if change != nil {
		changeAlertsFired.Inc()
		m.logger.Warn().
			Str("store_id", k.StoreID).
			Str("item_id", k.ItemID).
			Float64("previous", change.PreviousPrice).
			Float64("current", change.CurrentPrice).
			Float64("pct_change", change.PercentageChange).
			Msg(change.Message)
		if onChange != nil {
			onChange(*change)
		}
	}
}
