package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/splitreel/splitreel/internal/server"
	"github.com/splitreel/splitreel/internal/store"
)

var port int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the splitreel JSON API server.

The server provides:
  - Read endpoints for dashboards (tests, results, timeline, summary)
  - Token-protected push endpoints for the metrics collector and
    the daily rotation trigger
  - Health check endpoint

Example:
  splitreel serve --port 8080`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from SPLITREEL_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	listenPort := port
	if listenPort == 0 {
		listenPort = cfg.Port
	}

	srv := server.New(s, cfg.Scoring(), listenPort, tokenFilePath())
	return srv.Start()
}
