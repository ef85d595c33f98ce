package cli

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var exportFormat string

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export the day-by-day variant timeline",
	Long: `Export each metric day with its assigned variant in CSV or JSON format.

Examples:
  splitreel export launch --format csv > launch-days.csv
  splitreel export launch --format json > launch-days.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv or json)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	name := args[0]

	if exportFormat != "csv" && exportFormat != "json" {
		return fmt.Errorf("invalid format: must be 'csv' or 'json'")
	}

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

		days := engine.AssignDailyVariants(test, rows, events)

		if exportFormat == "csv" {
			return exportCSV(days)
		}
		return exportJSON(days)
	})
}

func exportCSV(days []engine.DailyVariantResult) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"date", "variant", "source", "impressions", "estimated_clicks", "views",
		"estimated_minutes_watched", "average_view_duration_seconds", "ctr"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range days {
		row := []string{
			d.Date.Format("2006-01-02"),
			string(d.Variant),
			string(d.Source),
			strconv.FormatInt(d.Impressions, 10),
			strconv.FormatFloat(d.EstimatedClicks, 'f', 2, 64),
			strconv.FormatInt(d.Views, 10),
			strconv.FormatFloat(d.EstimatedMinutesWatched, 'f', 2, 64),
			strconv.FormatFloat(d.AverageViewDurationSeconds, 'f', 2, 64),
			strconv.FormatFloat(d.CTR, 'f', 4, 64),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	return nil
}

func exportJSON(days []engine.DailyVariantResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		Days []engine.DailyVariantResult `json:"days"`
	}{Days: days})
}
