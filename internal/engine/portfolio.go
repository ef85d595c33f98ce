package engine

import (
	"math"

	"github.com/splitreel/splitreel/internal/store"
)

// TestOutcome is one finished test's recorded resolution plus its
// freshly recomputed performance pair.
type TestOutcome struct {
	WinnerVariant  *store.Variant
	WinnerMode     store.WinnerMode
	ReviewRequired bool
	Performance    PerformancePair
}

// PortfolioSummary is the fleet-level lift report across finished tests.
// Percentages and totals are rounded to 2 decimals; counts are exact.
type PortfolioSummary struct {
	Tests             int     `json:"tests"`
	AvgCtrLiftPct     float64 `json:"avg_ctr_lift_pct"`
	ExtraClicks       float64 `json:"extra_clicks"`
	AvgWtpiLiftPct    float64 `json:"avg_wtpi_lift_pct"`
	ExtraWatchMinutes float64 `json:"extra_watch_minutes"`
	InconclusiveCount int     `json:"inconclusive_count"`
}

// SummarizePortfolio reduces finished tests into dashboard lift metrics.
// The winner is the recorded one when present (manual or auto),
// otherwise the engine's own pick.
func SummarizePortfolio(outcomes []TestOutcome) PortfolioSummary {
	summary := PortfolioSummary{Tests: len(outcomes)}

	var ctrLiftSum float64
	var ctrLiftCount int
	var wtpiLiftSum float64
	var wtpiLiftCount int
	var extraClicks, extraMinutes float64

	for _, outcome := range outcomes {
		if outcome.WinnerMode == store.WinnerModeInconclusive || outcome.ReviewRequired {
			summary.InconclusiveCount++
		}

		winnerVariant := chooseWinner(outcome.Performance.A, outcome.Performance.B)
		if outcome.WinnerVariant != nil {
			winnerVariant = *outcome.WinnerVariant
		}

		winner := outcome.Performance.ByVariant(winnerVariant)
		loser := outcome.Performance.ByVariant(winnerVariant.Other())

		extraClicks += math.Max(0, winner.EstimatedClicks-loser.EstimatedClicks)
		extraMinutes += math.Max(0, winner.EstimatedMinutesWatched-loser.EstimatedMinutesWatched)

		// A zero-traffic or zero-CTR loser would read as infinite lift;
		// those tests are excluded from the averages entirely.
		if loser.Impressions > 0 && loser.CTR > 0 {
			ctrLiftSum += (winner.CTR - loser.CTR) / loser.CTR * 100
			ctrLiftCount++
		}
		if loser.Impressions > 0 && loser.WTPI > 0 {
			wtpiLiftSum += (winner.WTPI - loser.WTPI) / loser.WTPI * 100
			wtpiLiftCount++
		}
	}

	if ctrLiftCount > 0 {
		summary.AvgCtrLiftPct = round2(ctrLiftSum / float64(ctrLiftCount))
	}
	if wtpiLiftCount > 0 {
		summary.AvgWtpiLiftPct = round2(wtpiLiftSum / float64(wtpiLiftCount))
	}
	summary.ExtraClicks = round2(extraClicks)
	summary.ExtraWatchMinutes = round2(extraMinutes)

	return summary
}
