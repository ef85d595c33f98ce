package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest <name>",
	Short: "Load daily metric rows from a CSV file",
	Long: `Load daily metrics exported from the platform's analytics into a test.

Expected CSV header:
  date,impressions,impressions_ctr,views,estimated_minutes_watched,average_view_duration_seconds

Estimated clicks are derived from impressions and the daily CTR.
Re-ingesting a date overwrites that day's row.

Example:
  splitreel ingest launch --file analytics-export.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "CSV file to load (required)")
	ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	name := args[0]

	f, err := os.Open(ingestFile)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	return withStore(func(s *store.SQLiteStore) error {
		ctx := context.Background()

		test, err := s.GetTest(ctx, name)
		if err != nil {
			if err == store.ErrNotFound {
				return fmt.Errorf("test '%s' not found", name)
			}
			return fmt.Errorf("failed to get test: %w", err)
		}

		reader := csv.NewReader(f)
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err != nil {
			return fmt.Errorf("failed to read CSV header: %w", err)
		}
		cols := columnIndex(header)

		count := 0
		for {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read CSV row: %w", err)
			}

			metric, err := parseMetricRow(test.ID, cols, record)
			if err != nil {
				return err
			}

			if err := s.UpsertDailyMetric(ctx, metric); err != nil {
				return fmt.Errorf("failed to store metric for %s: %w", metric.Date.Format("2006-01-02"), err)
			}
			count++
		}

		fmt.Printf("Ingested %d daily metric rows into test '%s'\n", count, name)
		return nil
	})
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	return cols
}

func parseMetricRow(testID string, cols map[string]int, record []string) (store.DailyMetric, error) {
	field := func(name string) string {
		if i, ok := cols[name]; ok && i < len(record) {
			return record[i]
		}
		return ""
	}

	date, err := time.ParseInLocation("2006-01-02", field("date"), time.UTC)
	if err != nil {
		return store.DailyMetric{}, fmt.Errorf("invalid date %q in CSV", field("date"))
	}

	impressions, _ := strconv.ParseInt(field("impressions"), 10, 64)
	views, _ := strconv.ParseInt(field("views"), 10, 64)
	ctr, _ := strconv.ParseFloat(field("impressions_ctr"), 64)
	minutes, _ := strconv.ParseFloat(field("estimated_minutes_watched"), 64)
	avgDuration, _ := strconv.ParseFloat(field("average_view_duration_seconds"), 64)

	return store.DailyMetric{
		TestID:                     testID,
		Date:                       date,
		Impressions:                impressions,
		EstimatedClicks:            engine.EstimateClicks(impressions, ctr),
		Views:                      views,
		EstimatedMinutesWatched:    minutes,
		AverageViewDurationSeconds: avgDuration,
		ImpressionsCTR:             ctr,
	}, nil
}
