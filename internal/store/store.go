package store

import (
	"context"
	"time"
)

// Store defines the interface for experiment storage operations
type Store interface {
	// Test operations
	CreateTest(ctx context.Context, p CreateTestParams) (*Test, error)
	GetTest(ctx context.Context, name string) (*Test, error)
	ListTests(ctx context.Context) ([]*Test, error)
	ListTestsByState(ctx context.Context, state TestState) ([]*Test, error)
	UpdateTestState(ctx context.Context, name string, state TestState) error
	SetCurrentVariant(ctx context.Context, name string, v Variant) error
	SetWinner(ctx context.Context, name string, winner *Variant, mode WinnerMode, reviewRequired bool) error
	DeleteTest(ctx context.Context, name string) error

	// Daily metric operations
	UpsertDailyMetric(ctx context.Context, m DailyMetric) error
	GetDailyMetrics(ctx context.Context, testID string) ([]DailyMetric, error)

	// Variant event operations
	RecordVariantEvent(ctx context.Context, testID string, v Variant, source EventSource, at time.Time) error
	GetVariantEvents(ctx context.Context, testID string) ([]VariantEvent, error)

	// Lifecycle
	Close() error
}

// CreateTestParams carries everything needed to open a new experiment.
type CreateTestParams struct {
	Name           string
	VideoID        string
	TitleA         string
	ThumbnailA     string
	TitleB         string
	ThumbnailB     string
	StartDate      time.Time
	DurationDays   int
	InitialVariant Variant
}
