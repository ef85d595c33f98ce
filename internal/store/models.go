package store

import "time"

// Variant identifies one of the two creatives under test.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// Other returns the opposite variant.
func (v Variant) Other() Variant {
	if v == VariantA {
		return VariantB
	}
	return VariantA
}

// Valid reports whether v is one of the two known variants.
func (v Variant) Valid() bool {
	return v == VariantA || v == VariantB
}

type TestState string

const (
	StateRunning   TestState = "running"
	StatePaused    TestState = "paused"
	StateCompleted TestState = "completed"
)

// WinnerMode records how a test's winner field was (or wasn't) decided.
// The decision engine only ever emits pending, auto or inconclusive;
// manual is written when a human resolves an inconclusive test.
type WinnerMode string

const (
	WinnerModePending      WinnerMode = "pending"
	WinnerModeAuto         WinnerMode = "auto"
	WinnerModeManual       WinnerMode = "manual"
	WinnerModeInconclusive WinnerMode = "inconclusive"
)

// EventSource tags why a variant became live.
type EventSource string

const (
	SourceTestCreated        EventSource = "test_created"
	SourceDailyRotation      EventSource = "daily_rotation"
	SourceAutoWinner         EventSource = "auto_winner"
	SourceManualWinner       EventSource = "manual_winner"
	SourceInconclusiveRevert EventSource = "inconclusive_revert"
)

// Test is one thumbnail/title experiment on a single video.
type Test struct {
	ID             string
	Name           string
	VideoID        string
	TitleA         string
	ThumbnailA     string
	TitleB         string
	ThumbnailB     string
	StartDate      time.Time // UTC midnight of the first exposure day
	DurationDays   int
	InitialVariant Variant
	CurrentVariant Variant
	State          TestState
	WinnerVariant  *Variant
	WinnerMode     WinnerMode
	ReviewRequired bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Title returns the creative title for the given variant.
func (t *Test) Title(v Variant) string {
	if v == VariantB {
		return t.TitleB
	}
	return t.TitleA
}

// Thumbnail returns the creative thumbnail URL for the given variant.
func (t *Test) Thumbnail(v Variant) string {
	if v == VariantB {
		return t.ThumbnailB
	}
	return t.ThumbnailA
}

// DailyMetric is one calendar day of raw platform metrics for the test's
// video. Immutable once recorded; one row per (test, date).
type DailyMetric struct {
	TestID                     string
	Date                       time.Time // UTC midnight
	Impressions                int64
	EstimatedClicks            float64
	Views                      int64
	EstimatedMinutesWatched    float64
	AverageViewDurationSeconds float64
	ImpressionsCTR             float64 // daily CTR reported by the platform, percent
}

// VariantEvent is an authoritative, timestamped record that a variant
// became live. Events are append-only.
type VariantEvent struct {
	ID         int64
	TestID     string
	Variant    Variant
	Source     EventSource
	OccurredAt time.Time
}
