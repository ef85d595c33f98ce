package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/stats"
	"github.com/splitreel/splitreel/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results <name>",
	Short: "Show detailed results for a test",
	Long:  `Show per-variant performance, confidence intervals and the current decision.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}

func runResults(cmd *cobra.Command, args []string) error {
	name := args[0]

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		test, err := s.GetTest(ctx, name)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("test '%s' not found", name)
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		rows, err := s.GetDailyMetrics(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to get metrics: %w", err)
		}
		events, err := s.GetVariantEvents(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		completed := engine.TestCompleted(test, time.Now())
		evaluation := engine.Evaluate(test, rows, events, cfg.Scoring(), completed)

		fmt.Printf("TEST: %s\n", test.Name)
		fmt.Printf("VIDEO: %s\n", test.VideoID)
		fmt.Printf("STATE: %s\n", test.State)
		fmt.Printf("STARTED: %s (%d days)\n", test.StartDate.Format("2006-01-02"), test.DurationDays)
		fmt.Println()

		fmt.Println("VARIANT  DAYS  IMPRESSIONS  CLICKS   CTR      95% CI            WTPI      SCORE")
		fmt.Println(strings.Repeat("─", 84))

		pair := evaluation.Performance
		for _, perf := range []engine.VariantPerformance{pair.A, pair.B} {
			lower, upper := stats.WilsonInterval(perf.EstimatedClicks, perf.Impressions, 0.95)
			ciStr := fmt.Sprintf("[%.2f%%, %.2f%%]", lower*100, upper*100)
			if perf.Impressions == 0 {
				ciStr = "N/A"
			}

			title := test.Title(perf.Variant)
			if len(title) > 24 {
				title = title[:21] + "..."
			}

			fmt.Printf("%-7s  %-4d  %-11d  %-7.0f  %-7s  %-16s  %.6f  %.4f\n",
				string(perf.Variant),
				perf.ExposureDays,
				perf.Impressions,
				perf.EstimatedClicks,
				formatPercent(perf.CTR),
				ciStr,
				perf.WTPI,
				perf.Score,
			)
			fmt.Printf("         %s\n", title)
		}

		fmt.Println()
		if !pair.QualityAvailable {
			fmt.Println("No watch-time signal yet; scores fall back to CTR only.")
		}

		printDecision(evaluation.Decision)
		return nil
	})
}

func printDecision(d engine.WinnerDecision) {
	fmt.Printf("Confidence: %.1f%% (p=%.4f)\n", d.Confidence*100, d.PValue)

	switch d.WinnerMode {
	case store.WinnerModeAuto:
		fmt.Printf("Decision: variant %s wins automatically (%s)\n", *d.WinnerVariant, d.Reason)
	case store.WinnerModeInconclusive:
		fmt.Printf("Decision: inconclusive, human review required\n")
		fmt.Printf("Failing checks: %s\n", strings.ReplaceAll(d.Reason, ",", ", "))
	default:
		if d.WinnerVariant != nil {
			fmt.Printf("Decision: pending (%s); variant %s is ahead so far\n", d.Reason, *d.WinnerVariant)
		} else {
			fmt.Printf("Decision: pending (%s)\n", d.Reason)
		}
	}
}
