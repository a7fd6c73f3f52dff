package analytics

import (
	"fmt"
	"math"

	"github.com/groceryfinder/price-monitor/internal/pricing"
)

// MinAdvisorPoints is the minimum history length Recommend needs before it
// will advise anything beyond "wait for more data".
const MinAdvisorPoints = 7

// Buy thresholds. These are fixed design constants, not configuration: a
// price at least 5% below the historical average, or within 10% of the
// historical floor, is considered a good buy.
const (
	belowAverageRatio = 0.95
	nearLowestRatio   = 1.10
)

// Recommendation answers "should the user buy now?".
type Recommendation struct {
	Recommended     bool    `json:"recommended"`
	Reasoning       string  `json:"reasoning"`
	ExpectedSavings float64 `json:"expectedSavings"`
	Confidence      float64 `json:"confidence"`
}

// Recommend compares the current effective price against the historical
// average and minimum. With fewer than MinAdvisorPoints points it returns a
// defined "insufficient history" result rather than an error.
func Recommend(history []pricing.PricePoint, currentPrice float64) Recommendation {
	if len(history) < MinAdvisorPoints {
		return Recommendation{
			Recommended:     false,
			Reasoning:       "insufficient price history",
			ExpectedSavings: 0,
			Confidence:      0,
		}
	}

	prices := effectivePrices(history)
	average := mean(prices)
	lowest := prices[0]
	for _, p := range prices[1:] {
		lowest = math.Min(lowest, p)
	}
	if average == 0 || lowest == 0 {
		return Recommendation{
			Recommended: false,
			Reasoning:   "insufficient price history",
		}
	}

	switch {
	case currentPrice/average < belowAverageRatio:
		pctBelow := (1 - currentPrice/average) * 100
		return Recommendation{
			Recommended:     true,
			Reasoning:       fmt.Sprintf("current price is %.1f%% below average", pctBelow),
			ExpectedSavings: average - currentPrice,
			Confidence:      0.8,
		}
	case currentPrice/lowest < nearLowestRatio:
		return Recommendation{
			Recommended:     true,
			Reasoning:       "current price is close to the historical low",
			ExpectedSavings: math.Max(0, 0.5*(average-currentPrice)),
			Confidence:      0.6,
		}
	default:
		return Recommendation{
			Recommended:     false,
			Reasoning:       "current price is above average, consider waiting",
			ExpectedSavings: 0,
			Confidence:      0.7,
		}
	}
}
