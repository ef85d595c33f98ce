package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all tests",
	Long:  `List all A/B tests with their state, progress and live variant.`,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		tests, err := s.ListTests(ctx)
		if err != nil {
			return fmt.Errorf("failed to list tests: %w", err)
		}

		if len(tests) == 0 {
			fmt.Println("No tests yet.")
			fmt.Println()
			fmt.Println("Create one with: splitreel create <name> --video <id>")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tVIDEO\tSTATE\tDAY\tLIVE\tWINNER\tCREATED")

		for _, test := range tests {
			events, err := s.GetVariantEvents(ctx, test.ID)
			if err != nil {
				return fmt.Errorf("failed to get events for test %s: %w", test.Name, err)
			}

			live := engine.ResolveCurrentState(test, events)

			winner := "-"
			if test.WinnerVariant != nil {
				winner = fmt.Sprintf("%s (%s)", *test.WinnerVariant, test.WinnerMode)
			} else if test.ReviewRequired {
				winner = "needs review"
			}

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				test.Name,
				test.VideoID,
				strings.ToUpper(string(test.State)),
				dayProgress(test),
				string(live.Variant),
				winner,
				test.CreatedAt.Format("2006-01-02"),
			)
		}

		w.Flush()
		return nil
	})
}

func dayProgress(test *store.Test) string {
	elapsed := int(time.Now().UTC().Sub(test.StartDate)/(24*time.Hour)) + 1
	if elapsed < 1 {
		elapsed = 0
	}
	if elapsed > test.DurationDays {
		elapsed = test.DurationDays
	}
	return fmt.Sprintf("%d/%d", elapsed, test.DurationDays)
}
