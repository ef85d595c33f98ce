package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show fleet-level lift across completed tests",
	Long: `Aggregate every completed test into portfolio lift metrics: average
CTR and watch-time lift of winners over losers, total extra clicks and
watch minutes, and how many tests needed human review.`,
	RunE: runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		tests, err := s.ListTestsByState(ctx, store.StateCompleted)
		if err != nil {
			return fmt.Errorf("failed to list tests: %w", err)
		}

		if len(tests) == 0 {
			fmt.Println("No completed tests yet.")
			return nil
		}

		outcomes := make([]engine.TestOutcome, 0, len(tests))
		for _, test := range tests {
			rows, err := s.GetDailyMetrics(ctx, test.ID)
			if err != nil {
				return fmt.Errorf("failed to get metrics for %s: %w", test.Name, err)
			}
			events, err := s.GetVariantEvents(ctx, test.ID)
			if err != nil {
				return fmt.Errorf("failed to get events for %s: %w", test.Name, err)
			}

			days := engine.AssignDailyVariants(test, rows, events)
			pair := engine.AggregatePerformance(days, cfg.Scoring().Weights)

			outcomes = append(outcomes, engine.TestOutcome{
				WinnerVariant:  test.WinnerVariant,
				WinnerMode:     test.WinnerMode,
				ReviewRequired: test.ReviewRequired,
				Performance:    pair,
			})
		}

		summary := engine.SummarizePortfolio(outcomes)

		fmt.Printf("Completed tests:     %d\n", summary.Tests)
		fmt.Printf("Avg CTR lift:        %.2f%%\n", summary.AvgCtrLiftPct)
		fmt.Printf("Extra clicks:        %.2f\n", summary.ExtraClicks)
		fmt.Printf("Avg WTPI lift:       %.2f%%\n", summary.AvgWtpiLiftPct)
		fmt.Printf("Extra watch minutes: %.2f\n", summary.ExtraWatchMinutes)
		fmt.Printf("Needed review:       %d\n", summary.InconclusiveCount)

		return nil
	})
}
