package cli

import (
	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/config"
)

var (
	cfg    *config.Config
	dbPath string
)

var rootCmd = &cobra.Command{
	Use:   "splitreel",
	Short: "Splitreel - thumbnail/title A/B testing for a single video",
	Long: `Splitreel runs a thumbnail/title A/B experiment on one video:
two creatives alternate exposure on a daily cadence, daily metrics are
ingested per day, and at test end the decision engine declares a winner
with a statistical confidence threshold - or asks a human to decide.

Single Go binary, embedded SQLite.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cfg = config.Load()
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", cfg.DBPath, "database path")
}
