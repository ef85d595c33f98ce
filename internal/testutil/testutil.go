package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/splitreel/splitreel/internal/store"
)

// SetupTestStore creates a test database in a temp dir and returns the
// store. Cleanup happens automatically on test completion.
func SetupTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	dbPath := t.TempDir() + "/test.db"

	s, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// CreateTest inserts a two-week experiment with sensible defaults.
func CreateTest(t *testing.T, s *store.SQLiteStore, name string) *store.Test {
	t.Helper()

	test, err := s.CreateTest(context.Background(), store.CreateTestParams{
		Name:           name,
		VideoID:        "vid-123",
		TitleA:         "How I built it",
		TitleB:         "I built this in a weekend",
		ThumbnailA:     "https://cdn.example.com/a.jpg",
		ThumbnailB:     "https://cdn.example.com/b.jpg",
		StartDate:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		DurationDays:   14,
		InitialVariant: store.VariantA,
	})
	if err != nil {
		t.Fatalf("failed to create test: %v", err)
	}

	return test
}
