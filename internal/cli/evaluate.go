package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

func init() {
	rootCmd.AddCommand(newEvaluateCmd())
}

func newEvaluateCmd() *cobra.Command {
	var forceComplete bool

	cmd := &cobra.Command{
		Use:   "evaluate <name>",
		Short: "Run the winner decision engine",
		Long: `Run the guardrailed decision procedure over a test's data.

While the test is still running this reports a pending verdict. Once the
test has run its full duration (or with --complete), the decision is
applied: an automatic winner completes the test and records an
auto_winner event; an inconclusive result flags the test for human
review and reverts the creative to the initial variant.

Example:
  splitreel evaluate launch
  splitreel evaluate launch --complete`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

				completed := forceComplete || engine.TestCompleted(test, time.Now())
				evaluation := engine.Evaluate(test, rows, events, cfg.Scoring(), completed)
				decision := evaluation.Decision

				printDecision(decision)

				if decision.WinnerMode == store.WinnerModePending {
					return nil
				}
				if test.State == store.StateCompleted {
					// Already resolved earlier; report only.
					return nil
				}

				return applyDecision(ctx, s, test, decision)
			})
		},
	}

	cmd.Flags().BoolVar(&forceComplete, "complete", false, "treat the test as ended regardless of elapsed days")

	return cmd
}

// applyDecision persists a terminal decision: winner bookkeeping, state
// transition, and the variant event the timeline will pick up.
func applyDecision(ctx context.Context, s *store.SQLiteStore, test *store.Test, d engine.WinnerDecision) error {
	now := time.Now().UTC()

	switch d.WinnerMode {
	case store.WinnerModeAuto:
		winner := *d.WinnerVariant
		if err := s.SetWinner(ctx, test.Name, &winner, store.WinnerModeAuto, false); err != nil {
			return fmt.Errorf("failed to record winner: %w", err)
		}
		if err := s.RecordVariantEvent(ctx, test.ID, winner, store.SourceAutoWinner, now); err != nil {
			return fmt.Errorf("failed to record winner event: %w", err)
		}
		if err := s.SetCurrentVariant(ctx, test.Name, winner); err != nil {
			return fmt.Errorf("failed to update current variant: %w", err)
		}
		if err := s.UpdateTestState(ctx, test.Name, store.StateCompleted); err != nil {
			return fmt.Errorf("failed to complete test: %w", err)
		}
		fmt.Printf("\nTest '%s' completed. Apply variant %s's creative permanently.\n", test.Name, winner)

	case store.WinnerModeInconclusive:
		if err := s.SetWinner(ctx, test.Name, nil, store.WinnerModeInconclusive, true); err != nil {
			return fmt.Errorf("failed to flag review: %w", err)
		}
		if err := s.RecordVariantEvent(ctx, test.ID, test.InitialVariant, store.SourceInconclusiveRevert, now); err != nil {
			return fmt.Errorf("failed to record revert event: %w", err)
		}
		if err := s.SetCurrentVariant(ctx, test.Name, test.InitialVariant); err != nil {
			return fmt.Errorf("failed to revert current variant: %w", err)
		}
		if err := s.UpdateTestState(ctx, test.Name, store.StateCompleted); err != nil {
			return fmt.Errorf("failed to complete test: %w", err)
		}
		fmt.Printf("\nTest '%s' completed without a clear winner; reverted to variant %s.\n", test.Name, test.InitialVariant)
		fmt.Printf("Resolve it manually with: splitreel winner %s --variant A|B\n", test.Name)
	}

	return nil
}
