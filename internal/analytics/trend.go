package analytics

import (
	"math"
	"time"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// TrendDirection classifies recent price movement.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// TrendStrength grades how pronounced a trend is.
type TrendStrength string

const (
	StrengthWeak     TrendStrength = "weak"
	StrengthModerate TrendStrength = "moderate"
	StrengthStrong   TrendStrength = "strong"
)

// DefaultTrendWindow is the trailing span used for trend classification,
// distinct from the 30 day retention window used for prediction and stats.
const DefaultTrendWindow = 7 * 24 * time.Hour

// Movement thresholds, in percent. Below stableThreshold the trend is
// considered flat; above strongThreshold it is strong.
const (
	stableThreshold = 2.0
	strongThreshold = 10.0
)

// Trend is the directional classification of a key's recent price movement.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	// PercentageChange is signed, relative to the oldest point in the window.
	PercentageChange float64       `json:"percentageChange"`
	Strength         TrendStrength `json:"strength"`
	Confidence       float64       `json:"confidence"`
}

// AnalyzeTrend classifies the movement of the effective price over the
// trailing window ending at now. It returns nil when fewer than two points
// fall inside the window, or when the oldest in-window price is zero; both
// mean "insufficient data", not an error.
func AnalyzeTrend(history []pricing.PricePoint, now time.Time, window time.Duration) *Trend {
	if window <= 0 {
		window = DefaultTrendWindow
	}

	since := now.Add(-window)
	var recent []float64
	for _, p := range history {
		if p.ObservedAt.After(since) {
			recent = append(recent, p.EffectivePrice())
		}
	}
	if len(recent) < 2 {
		return nil
	}

	oldest := recent[0]
	newest := recent[len(recent)-1]
	if oldest == 0 {
		return nil
	}

	change := (newest - oldest) / oldest * 100

	var direction TrendDirection
	var strength TrendStrength
	switch {
	case math.Abs(change) < stableThreshold:
		direction = TrendStable
		strength = StrengthWeak
	case change > 0:
		direction = TrendIncreasing
		strength = gradeStrength(change)
	default:
		direction = TrendDecreasing
		strength = gradeStrength(change)
	}

	// Confidence is a cheap stability proxy: low dispersion inside the
	// window relative to the starting price means a more trustworthy read.
	confidence := clamp01(1 - variance(recent)/(oldest*oldest))

	return &Trend{
		Direction:        direction,
		PercentageChange: change,
		Strength:         strength,
		Confidence:       confidence,
	}
}

func gradeStrength(change float64) TrendStrength {
	if math.Abs(change) > strongThreshold {
		return StrengthStrong
	}
	return StrengthModerate
}
