package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <name>",
	Short: "Flip the live variant (daily rotation)",
	Long: `Record a daily rotation: whichever variant is currently live flips to
the other one. Intended to be run once a day by a scheduler, right after
the new creative has been applied on the platform.

Example:
  splitreel rotate launch`,
	Args: cobra.ExactArgs(1),
	RunE: runRotate,
}

func init() {
	rootCmd.AddCommand(rotateCmd)
}

func runRotate(cmd *cobra.Command, args []string) error {
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

		if test.State != store.StateRunning {
			return fmt.Errorf("test is not running (current state: %s)", test.State)
		}

		events, err := s.GetVariantEvents(ctx, test.ID)
		if err != nil {
			return fmt.Errorf("failed to get events: %w", err)
		}

		next := engine.ResolveCurrentState(test, events).Variant.Other()
		now := time.Now().UTC()

		if err := s.RecordVariantEvent(ctx, test.ID, next, store.SourceDailyRotation, now); err != nil {
			return fmt.Errorf("failed to record rotation: %w", err)
		}
		if err := s.SetCurrentVariant(ctx, name, next); err != nil {
			return fmt.Errorf("failed to update current variant: %w", err)
		}

		fmt.Printf("Rotated test '%s' to variant %s\n", name, next)
		fmt.Printf("  Title: %s\n", test.Title(next))
		if thumb := test.Thumbnail(next); thumb != "" {
			fmt.Printf("  Thumbnail: %s\n", thumb)
		}
		return nil
	})
}
