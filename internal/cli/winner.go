package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/store"
)

func init() {
	rootCmd.AddCommand(newWinnerCmd())
}

func newWinnerCmd() *cobra.Command {
	var variantRaw string

	cmd := &cobra.Command{
		Use:   "winner <name>",
		Short: "Manually declare a winner for a test",
		Long: `Declare a winning variant by hand. This is the resolution path for
tests the decision engine left inconclusive, and also works on a
running test to cut it short.

Example:
  splitreel winner launch --variant B`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testName := args[0]

			winner, err := parseVariant(variantRaw)
			if err != nil {
				return err
			}

			return withStore(func(s *store.SQLiteStore) error {
				ctx := context.Background()

				test, err := s.GetTest(ctx, testName)
				if err != nil {
					if err == store.ErrNotFound {
						return fmt.Errorf("test '%s' not found", testName)
					}
					return fmt.Errorf("failed to get test: %w", err)
				}

				if test.WinnerVariant != nil {
					return fmt.Errorf("test already has a winner: variant %s (%s)", *test.WinnerVariant, test.WinnerMode)
				}

				if err := s.SetWinner(ctx, testName, &winner, store.WinnerModeManual, false); err != nil {
					return fmt.Errorf("failed to set winner: %w", err)
				}
				if err := s.RecordVariantEvent(ctx, test.ID, winner, store.SourceManualWinner, time.Now().UTC()); err != nil {
					return fmt.Errorf("failed to record winner event: %w", err)
				}
				if err := s.SetCurrentVariant(ctx, testName, winner); err != nil {
					return fmt.Errorf("failed to update current variant: %w", err)
				}
				if test.State != store.StateCompleted {
					if err := s.UpdateTestState(ctx, testName, store.StateCompleted); err != nil {
						return fmt.Errorf("failed to complete test: %w", err)
					}
				}

				fmt.Printf("Declared winner for test '%s': variant %s (\"%s\")\n", testName, winner, test.Title(winner))
				fmt.Println("Test has been marked as completed.")

				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&variantRaw, "variant", "v", "", "winning variant, A or B (required)")
	cmd.MarkFlagRequired("variant")

	return cmd
}
