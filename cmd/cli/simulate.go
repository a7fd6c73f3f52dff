package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/groceryfinder/price-monitor/internal/alerts"
	"github.com/groceryfinder/price-monitor/internal/catalog"
	"github.com/groceryfinder/price-monitor/internal/clock"
	"github.com/groceryfinder/price-monitor/internal/monitor"
	"github.com/groceryfinder/price-monitor/internal/pricing"
	"github.com/groceryfinder/price-monitor/internal/source"
)

var (
	simulateStore  string
	simulateItem   string
	simulateDays   int
	simulateSeed   int64
	simulateTarget float64
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a simulated monitoring session for one store/item pair",
	Long: `Run an accelerated monitoring session: one simulated price observation
per day for the requested number of days, then a full analysis of the
collected history (trend, next-week forecast, buy recommendation).

With --target, a price alert is registered and fires whenever the simulated
price drops to or below the target.`,
	Example: `  price-monitor simulate --store 1 --item 2
  price-monitor simulate --store 3 --item 1 --days 60 --seed 7
  price-monitor simulate --store 1 --item 5 --target 2.50`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateStore, "store", "1", "Store ID to monitor")
	simulateCmd.Flags().StringVar(&simulateItem, "item", "1", "Item ID to monitor")
	simulateCmd.Flags().IntVar(&simulateDays, "days", 30, "Number of simulated days")
	simulateCmd.Flags().Int64Var(&simulateSeed, "seed", 1, "Random seed for the price generator")
	simulateCmd.Flags().Float64Var(&simulateTarget, "target", 0, "Fire an alert when the price drops to or below this value")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	st, ok := catalog.StoreByID(simulateStore)
	if !ok {
		return fmt.Errorf("unknown store ID: %s", simulateStore)
	}
	item, ok := catalog.ItemByID(simulateItem)
	if !ok {
		return fmt.Errorf("unknown item ID: %s", simulateItem)
	}
	if simulateDays < 1 {
		return fmt.Errorf("--days must be at least 1")
	}

	// Simulated time starts far enough back that the session ends today.
	clk := clock.NewFake(time.Now().AddDate(0, 0, -simulateDays).Truncate(24 * time.Hour))

	store := pricing.NewStore(pricing.DefaultStoreConfig(), clk)
	mgr := alerts.NewManager(alerts.DefaultConfig(), clk, logger, func(a alerts.Alert, p pricing.PricePoint) {
		fmt.Printf("  ALERT: %s at %s hit $%.2f (target $%.2f)\n",
			item.Name, st.Name, p.EffectivePrice(), a.TargetPrice)
	})
	src := source.NewSimulated(source.DefaultSimulatedConfig(), clk, simulateSeed)
	m := monitor.New(store, mgr, src, clk, logger, monitor.DefaultConfig())
	defer m.Stop()

	if simulateTarget > 0 {
		if _, err := mgr.Add(alerts.Alert{
			ItemID:      simulateItem,
			StoreID:     simulateStore,
			TargetPrice: simulateTarget,
			Active:      true,
		}); err != nil {
			return err
		}
	}

	fmt.Printf("Monitoring %s at %s for %d simulated days\n\n", item.Name, st.Name, simulateDays)

	ctx := context.Background()
	for day := 0; day < simulateDays; day++ {
		p, err := src.FetchPrice(ctx, simulateStore, simulateItem)
		if err != nil {
			fmt.Printf("  day %2d: source unavailable\n", day+1)
			clk.Advance(24 * time.Hour)
			continue
		}
		if err := m.Record(p); err != nil {
			return fmt.Errorf("failed to record observation: %w", err)
		}

		sale := ""
		if p.OnSale() {
			sale = " (on sale)"
		}
		fmt.Printf("  day %2d: $%.2f%s\n", day+1, p.EffectivePrice(), sale)
		clk.Advance(24 * time.Hour)
	}

	fmt.Println()
	return printAnalysis(m, simulateStore, simulateItem)
}

func printAnalysis(m *monitor.Monitor, storeID, itemID string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	stats := m.Stats(storeID, itemID)
	fmt.Fprintf(w, "Average price\t$%.2f\n", stats.AveragePrice)
	fmt.Fprintf(w, "Lowest price\t$%.2f\n", stats.LowestPrice)
	fmt.Fprintf(w, "Highest price\t$%.2f\n", stats.HighestPrice)
	fmt.Fprintf(w, "Stability score\t%.0f/100\n", m.StabilityScore(storeID, itemID))

	if trend := m.Trend(storeID, itemID); trend != nil {
		fmt.Fprintf(w, "Trend\t%s (%s, %+.1f%%, confidence %.2f)\n",
			trend.Direction, trend.Strength, trend.PercentageChange, trend.Confidence)
	} else {
		fmt.Fprintf(w, "Trend\tnot enough recent data\n")
	}

	if pred := m.Prediction(storeID, itemID); pred != nil {
		fmt.Fprintf(w, "Next week forecast\t$%.2f (confidence %.2f)\n", pred.PredictedPrice, pred.Confidence)
		for _, f := range pred.Factors {
			fmt.Fprintf(w, "\t- %s\n", f)
		}
	} else {
		fmt.Fprintf(w, "Next week forecast\tnot enough data\n")
	}

	rec := m.Recommendation(storeID, itemID)
	verdict := "wait"
	if rec.Recommended {
		verdict = "buy now"
	}
	fmt.Fprintf(w, "Advice\t%s: %s\n", verdict, rec.Reasoning)
	if rec.ExpectedSavings > 0 {
		fmt.Fprintf(w, "Expected savings\t$%.2f\n", rec.ExpectedSavings)
	}

	return w.Flush()
}
