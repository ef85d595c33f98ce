package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/splitreel/splitreel/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// parseVariant turns user input into a variant tag.
func parseVariant(raw string) (store.Variant, error) {
	v := store.Variant(strings.ToUpper(strings.TrimSpace(raw)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid variant %q (must be A or B)", raw)
	}
	return v, nil
}

// tokenFilePath is where the running server drops its API token,
// alongside the database.
func tokenFilePath() string {
	return filepath.Join(filepath.Dir(dbPath), ".splitreel-token")
}

func formatPercent(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}
