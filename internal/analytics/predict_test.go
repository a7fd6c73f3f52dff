package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

func dailyHistory(t0 time.Time, prices []float64) []pricing.PricePoint {
	history := make([]pricing.PricePoint, len(prices))
	for i, price := range prices {
		history[i] = point(price, t0.Add(time.Duration(i)*24*time.Hour))
	}
	return history
}

func TestPredictInsufficientData(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := dailyHistory(t0, []float64{5, 5, 4, 4, 4, 4})
	if p := Predict(history, t0.Add(6*24*time.Hour), DefaultPredictionHorizon); p != nil {
		t.Error("fewer than 7 points should yield nil")
	}
}

// TestPredictDownwardFit checks the week-long declining series end to end.
// The expected value is recomputed here from the least-squares formula
// rather than taken from the implementation.
func TestPredictDownwardFit(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{5.00, 5.00, 4.00, 4.00, 4.00, 4.00, 3.80}
	history := dailyHistory(t0, prices)
	now := t0.Add(6 * 24 * time.Hour)

	pred := Predict(history, now, DefaultPredictionHorizon)
	if pred == nil {
		t.Fatal("expected a prediction")
	}

	// Independent least-squares computation over (unix-milli, price) pairs.
	n := float64(len(prices))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range prices {
		x := float64(t0.Add(time.Duration(i) * 24 * time.Hour).UnixMilli())
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	slope := (n*sumXY - sumX*sumY) / (n*sumXX - sumX*sumX)
	intercept := (sumY - slope*sumX) / n
	want := slope*float64(now.Add(DefaultPredictionHorizon).UnixMilli()) + intercept

	if math.Abs(pred.PredictedPrice-want) > 1e-6 {
		t.Errorf("PredictedPrice = %.9f, want %.9f", pred.PredictedPrice, want)
	}
	if pred.PredictedPrice >= 4.00 {
		t.Errorf("downward fit should predict below 4.00, got %.4f", pred.PredictedPrice)
	}

	// Confidence reflects the low dispersion of the series:
	// 1 - variance/mean^2.
	avg := sumY / n
	var sq float64
	for _, y := range prices {
		d := y - avg
		sq += d * d
	}
	wantConf := 1 - (sq/n)/(avg*avg)
	if math.Abs(pred.Confidence-wantConf) > 1e-9 {
		t.Errorf("Confidence = %.9f, want %.9f", pred.Confidence, wantConf)
	}
}

func TestPredictClampsToZero(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Steep collapse: the fitted line goes negative well within the horizon.
	history := dailyHistory(t0, []float64{7.00, 6.00, 5.00, 4.00, 3.00, 2.00, 1.00})
	pred := Predict(history, t0.Add(6*24*time.Hour), DefaultPredictionHorizon)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if pred.PredictedPrice != 0 {
		t.Errorf("PredictedPrice = %.4f, want clamp to 0", pred.PredictedPrice)
	}
}

func TestPredictFrequentSalesFactor(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	history := dailyHistory(t0, []float64{4, 4, 4, 4, 4, 4, 4, 4, 4, 4})
	// 4 of 10 points on sale: above the 30% threshold.
	for _, i := range []int{1, 3, 5, 7} {
		history[i].SalePrice = f64(3.60)
	}

	pred := Predict(history, t0.Add(10*24*time.Hour), DefaultPredictionHorizon)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if !contains(pred.Factors, FactorFrequentSales) {
		t.Errorf("Factors = %v, want %q", pred.Factors, FactorFrequentSales)
	}
	if contains(pred.Factors, FactorSeasonalPricing) {
		t.Errorf("single-month history should not be tagged seasonal: %v", pred.Factors)
	}
}

func TestPredictVolatilityFactor(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	// Alternating 2/4: stddev 1 on average 3 is a 33% volatility score.
	history := dailyHistory(t0, []float64{2, 4, 2, 4, 2, 4, 2, 4})
	pred := Predict(history, t0.Add(8*24*time.Hour), DefaultPredictionHorizon)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if !contains(pred.Factors, FactorHighVolatility) {
		t.Errorf("Factors = %v, want %q", pred.Factors, FactorHighVolatility)
	}
}

func TestPredictSeasonalFactor(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var history []pricing.PricePoint
	// Three months: January and February flat at 10, March jumps to 14.
	for i := 0; i < 20; i++ {
		history = append(history, point(10.00, t0.Add(time.Duration(i)*3*24*time.Hour)))
	}
	for i := 0; i < 10; i++ {
		history = append(history, point(14.00, t0.Add(60*24*time.Hour).Add(time.Duration(i)*24*time.Hour)))
	}

	pred := Predict(history, t0.Add(75*24*time.Hour), DefaultPredictionHorizon)
	if pred == nil {
		t.Fatal("expected a prediction")
	}
	if !contains(pred.Factors, FactorSeasonalPricing) {
		t.Errorf("Factors = %v, want %q", pred.Factors, FactorSeasonalPricing)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
