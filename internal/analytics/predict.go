package analytics

import (
	"math"
	"time"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// DefaultPredictionHorizon is how far ahead Predict projects the price.
const DefaultPredictionHorizon = 7 * 24 * time.Hour

// MinPredictionPoints is the minimum history length Predict needs. With less
// than a week of observations the fitted line is noise.
const MinPredictionPoints = 7

// Qualitative factor tags attached to predictions.
const (
	FactorSeasonalPricing = "Seasonal pricing"
	FactorFrequentSales   = "Frequent sales"
	FactorHighVolatility  = "High price volatility"
)

// Prediction is a linear-regression price forecast for a key.
type Prediction struct {
	PredictedPrice float64       `json:"predictedPrice"`
	Confidence     float64       `json:"confidence"`
	Horizon        time.Duration `json:"horizon"`
	Factors        []string      `json:"factors"`
}

// Predict fits an ordinary least-squares line over (timestamp, effective
// price) pairs across the full retained history and evaluates it at
// now + horizon. It returns nil with fewer than MinPredictionPoints points.
// The forecast is clamped to be non-negative.
func Predict(history []pricing.PricePoint, now time.Time, horizon time.Duration) *Prediction {
	if len(history) < MinPredictionPoints {
		return nil
	}
	if horizon <= 0 {
		horizon = DefaultPredictionHorizon
	}

	prices := effectivePrices(history)
	times := make([]float64, len(history))
	for i, p := range history {
		times[i] = float64(p.ObservedAt.UnixMilli())
	}

	slope, intercept, ok := leastSquares(times, prices)
	if !ok {
		return nil
	}

	future := float64(now.Add(horizon).UnixMilli())
	predicted := math.Max(0, slope*future+intercept)

	return &Prediction{
		PredictedPrice: predicted,
		Confidence:     predictionConfidence(prices),
		Horizon:        horizon,
		Factors:        identifyFactors(history, prices),
	}
}

// leastSquares returns the OLS slope and intercept for y over x. ok is false
// when x has no spread and the slope is undefined.
func leastSquares(x, y []float64) (slope, intercept float64, ok bool) {
	n := float64(len(x))
	var sumX, sumY, sumXY, sumXX float64
	for i := range x {
		sumX += x[i]
		sumY += y[i]
		sumXY += x[i] * y[i]
		sumXX += x[i] * x[i]
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept, true
}

// predictionConfidence maps price dispersion to [0,1]: lower dispersion
// relative to the mean yields higher confidence.
func predictionConfidence(prices []float64) float64 {
	avg := mean(prices)
	if avg == 0 {
		return 0
	}
	normalized := math.Min(1, variance(prices)/(avg*avg))
	return math.Max(0, 1-normalized)
}

// identifyFactors runs independent heuristics over the full history and
// collects qualitative tags describing the pricing behavior.
func identifyFactors(history []pricing.PricePoint, prices []float64) []string {
	factors := []string{}
	if len(history) == 0 {
		return factors
	}

	if hasSeasonalPattern(history) {
		factors = append(factors, FactorSeasonalPricing)
	}

	var sales int
	for _, p := range history {
		if p.OnSale() {
			sales++
		}
	}
	if float64(sales)/float64(len(history)) > 0.3 {
		factors = append(factors, FactorFrequentSales)
	}

	if VolatilityScore(history) > 20 {
		factors = append(factors, FactorHighVolatility)
	}

	return factors
}

// hasSeasonalPattern checks whether per-calendar-month average prices deviate
// from their overall average by more than 10%. Needs at least three distinct
// months of data to say anything.
func hasSeasonalPattern(history []pricing.PricePoint) bool {
	monthly := make(map[time.Month][]float64)
	for _, p := range history {
		m := p.ObservedAt.Month()
		monthly[m] = append(monthly[m], p.EffectivePrice())
	}
	if len(monthly) < 3 {
		return false
	}

	averages := make([]float64, 0, len(monthly))
	for _, prices := range monthly {
		averages = append(averages, mean(prices))
	}
	overall := mean(averages)
	if overall == 0 {
		return false
	}

	var maxDeviation float64
	for _, avg := range averages {
		maxDeviation = math.Max(maxDeviation, math.Abs(avg-overall))
	}
	return maxDeviation/overall > 0.1
}
