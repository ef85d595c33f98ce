package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Show the running server's API token",
	Long: `Show the API token of the running server. The collector and the daily
rotation trigger authenticate their POST requests with it.

Example:
  splitreel token`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(tokenFilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no server running. Start with: splitreel serve")
		}
		return fmt.Errorf("failed to read token file: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return fmt.Errorf("token file is empty. Restart the server with: splitreel serve")
	}

	fmt.Printf("API token: %s\n", token)
	fmt.Println()
	fmt.Println("Use it as: Authorization: Bearer <token>")
	return nil
}
