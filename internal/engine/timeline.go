// Package engine is the experiment analytics core: it reconstructs which
// variant was live on each day, aggregates per-variant performance and
// turns the aggregates into a guardrailed winner decision. Every function
// is a pure transformation of its arguments; persistence and transport
// live with the callers.
package engine

import (
	"sort"
	"time"

	"github.com/splitreel/splitreel/internal/store"
)

// AssignmentSource says how a day's variant was determined: backed by a
// recorded variant event, or inferred from the daily rotation cadence.
type AssignmentSource string

const (
	SourceExact    AssignmentSource = "exact"
	SourceInferred AssignmentSource = "inferred"
)

// CurrentState is the live creative right now.
type CurrentState struct {
	Variant      store.Variant    `json:"variant"`
	Title        string           `json:"title"`
	ThumbnailURL string           `json:"thumbnail_url"`
	Since        time.Time        `json:"since"`
	SinceSource  AssignmentSource `json:"since_source"`
}

// DailyVariantResult is one metric day labeled with the variant that was
// live on it.
type DailyVariantResult struct {
	Date                       time.Time        `json:"date"`
	Variant                    store.Variant    `json:"variant"`
	Source                     AssignmentSource `json:"source"`
	Title                      string           `json:"title"`
	ThumbnailURL               string           `json:"thumbnail_url"`
	Impressions                int64            `json:"impressions"`
	EstimatedClicks            float64          `json:"estimated_clicks"`
	Views                      int64            `json:"views"`
	EstimatedMinutesWatched    float64          `json:"estimated_minutes_watched"`
	AverageViewDurationSeconds float64          `json:"average_view_duration_seconds"`
	ImpressionsCTR             float64          `json:"impressions_ctr"`
	CTR                        float64          `json:"ctr"`
}

// ResolveCurrentState answers which variant is live at this instant.
// The newest event wins; with an empty log the stored current variant is
// trusted with since = start date, tagged inferred. The two paths never
// blend, so SinceSource is a reliable confidence signal.
func ResolveCurrentState(test *store.Test, events []store.VariantEvent) CurrentState {
	sorted := sortEvents(events)
	if len(sorted) > 0 {
		last := sorted[len(sorted)-1]
		return CurrentState{
			Variant:      last.Variant,
			Title:        test.Title(last.Variant),
			ThumbnailURL: test.Thumbnail(last.Variant),
			Since:        last.OccurredAt,
			SinceSource:  SourceExact,
		}
	}

	return CurrentState{
		Variant:      test.CurrentVariant,
		Title:        test.Title(test.CurrentVariant),
		ThumbnailURL: test.Thumbnail(test.CurrentVariant),
		Since:        test.StartDate,
		SinceSource:  SourceInferred,
	}
}

// AssignDailyVariants labels every metric day with the variant that was
// live on it. Days covered by the event log are exact; days before the
// first applicable event fall back to day-parity inference against the
// test's initial variant. Days before the start date are dropped.
func AssignDailyVariants(test *store.Test, rows []store.DailyMetric, events []store.VariantEvent) []DailyVariantResult {
	startDay := dayOf(test.StartDate)
	sorted := sortEvents(events)

	days := make([]store.DailyMetric, 0, len(rows))
	for _, row := range rows {
		day := dayOf(row.Date)
		if day.Before(startDay) {
			continue
		}
		row.Date = day
		days = append(days, row)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })

	results := make([]DailyVariantResult, 0, len(days))
	next := 0
	var applied *store.VariantEvent

	for _, row := range days {
		// An event timestamped exactly on the day boundary belongs
		// to that day: the upper bound is inclusive.
		dayEnd := row.Date.Add(24*time.Hour - time.Millisecond)
		for next < len(sorted) && !sorted[next].OccurredAt.After(dayEnd) {
			applied = &sorted[next]
			next++
		}

		var variant store.Variant
		var source AssignmentSource
		if applied != nil {
			variant = applied.Variant
			source = SourceExact
		} else {
			variant = inferVariantByParity(startDay, test.InitialVariant, row.Date)
			source = SourceInferred
		}

		impressions := sanitizeCount(row.Impressions)
		clicks := sanitize(row.EstimatedClicks)

		ctr := 0.0
		if impressions > 0 {
			ctr = round4(clicks / float64(impressions) * 100)
		}

		results = append(results, DailyVariantResult{
			Date:                       row.Date,
			Variant:                    variant,
			Source:                     source,
			Title:                      test.Title(variant),
			ThumbnailURL:               test.Thumbnail(variant),
			Impressions:                impressions,
			EstimatedClicks:            clicks,
			Views:                      sanitizeCount(row.Views),
			EstimatedMinutesWatched:    sanitize(row.EstimatedMinutesWatched),
			AverageViewDurationSeconds: sanitize(row.AverageViewDurationSeconds),
			ImpressionsCTR:             sanitize(row.ImpressionsCTR),
			CTR:                        ctr,
		})
	}

	return results
}

// inferVariantByParity assumes one rotation per day: an even number of
// elapsed days keeps the initial variant, an odd number flips it.
func inferVariantByParity(startDay time.Time, initial store.Variant, day time.Time) store.Variant {
	diffDays := int(day.Sub(startDay) / (24 * time.Hour))
	if diffDays%2 == 0 {
		return initial
	}
	return initial.Other()
}

// sortEvents returns a copy sorted ascending by timestamp. The sort is
// stable so simultaneous events keep list order and the last one wins.
func sortEvents(events []store.VariantEvent) []store.VariantEvent {
	sorted := make([]store.VariantEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})
	return sorted
}

func dayOf(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

// TestCompleted reports whether the test has run its full duration (or
// was explicitly completed) as of now.
func TestCompleted(test *store.Test, now time.Time) bool {
	if test.State == store.StateCompleted {
		return true
	}
	end := dayOf(test.StartDate).Add(time.Duration(test.DurationDays) * 24 * time.Hour)
	return !now.UTC().Before(end)
}
