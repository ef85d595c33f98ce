package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/store"
)

func init() {
	rootCmd.AddCommand(newCreateCmd())
}

func newCreateCmd() *cobra.Command {
	var (
		videoID    string
		titleA     string
		titleB     string
		thumbA     string
		thumbB     string
		startDate  string
		duration   int
		initialRaw string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new thumbnail/title A/B test",
		Long: `Create a new A/B test for a video. Variant A starts live; the daily
rotation alternates between A and B until the test ends.

Examples:
  splitreel create launch --video dQw4w9WgXcQ --title-a "How I built it" --title-b "Built in a weekend"
  splitreel create launch --video dQw4w9WgXcQ --duration 14 --start 2025-06-01`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			testName := args[0]

			if videoID == "" {
				return fmt.Errorf("a video id is required. Example: --video dQw4w9WgXcQ")
			}

			var err error
			if titleA == "" {
				if titleA, err = promptTitle("Title for variant A"); err != nil {
					return err
				}
			}
			if titleB == "" {
				if titleB, err = promptTitle("Title for variant B"); err != nil {
					return err
				}
			}

			initial, err := parseVariant(initialRaw)
			if err != nil {
				return err
			}

			start := time.Now().UTC()
			if startDate != "" {
				start, err = time.ParseInLocation("2006-01-02", startDate, time.UTC)
				if err != nil {
					return fmt.Errorf("invalid start date %q (want YYYY-MM-DD)", startDate)
				}
			}

			if duration < 2 {
				return fmt.Errorf("duration must be at least 2 days")
			}

			return withStore(func(s *store.SQLiteStore) error {
				test, err := s.CreateTest(context.Background(), store.CreateTestParams{
					Name:           testName,
					VideoID:        videoID,
					TitleA:         titleA,
					ThumbnailA:     thumbA,
					TitleB:         titleB,
					ThumbnailB:     thumbB,
					StartDate:      start,
					DurationDays:   duration,
					InitialVariant: initial,
				})
				if err != nil {
					return fmt.Errorf("failed to create test: %w", err)
				}

				fmt.Printf("Created test '%s' for video %s (%d days, starts %s)\n",
					test.Name, test.VideoID, test.DurationDays, test.StartDate.Format("2006-01-02"))
				fmt.Printf("  A: %s\n", test.TitleA)
				fmt.Printf("  B: %s\n", test.TitleB)
				fmt.Printf("Variant %s is live first. Rotate once a day with 'splitreel rotate %s'.\n",
					test.InitialVariant, test.Name)

				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoID, "video", "", "video id on the platform (required)")
	cmd.Flags().StringVar(&titleA, "title-a", "", "title for variant A (prompted if omitted)")
	cmd.Flags().StringVar(&titleB, "title-b", "", "title for variant B (prompted if omitted)")
	cmd.Flags().StringVar(&thumbA, "thumb-a", "", "thumbnail URL for variant A (optional)")
	cmd.Flags().StringVar(&thumbB, "thumb-b", "", "thumbnail URL for variant B (optional)")
	cmd.Flags().StringVar(&startDate, "start", "", "start date YYYY-MM-DD (default today)")
	cmd.Flags().IntVarP(&duration, "duration", "d", 14, "test duration in days")
	cmd.Flags().StringVar(&initialRaw, "initial", "A", "variant live on day one")
	cmd.MarkFlagRequired("video")

	return cmd
}

func promptTitle(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("title must not be empty")
			}
			return nil
		},
	}

	result, err := prompt.Run()
	if err != nil {
		if err == promptui.ErrInterrupt {
			os.Exit(0)
		}
		return "", err
	}

	return strings.TrimSpace(result), nil
}
