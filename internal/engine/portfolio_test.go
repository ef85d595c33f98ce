package engine_test

import (
	"testing"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

func outcomeFromDays(winner *store.Variant, mode store.WinnerMode, review bool, days []engine.DailyVariantResult) engine.TestOutcome {
	return engine.TestOutcome{
		WinnerVariant:  winner,
		WinnerMode:     mode,
		ReviewRequired: review,
		Performance:    engine.AggregatePerformance(days, defaultWeights),
	}
}

func TestSummarizePortfolio_LiftAndExtras(t *testing.T) {
	b := store.VariantB
	outcome := outcomeFromDays(&b, store.WinnerModeAuto, false, []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 40),
		dayResult(1, store.VariantB, 1000, 50),
	})

	summary := engine.SummarizePortfolio([]engine.TestOutcome{outcome})

	if summary.Tests != 1 {
		t.Fatalf("expected 1 test, got %d", summary.Tests)
	}
	// (5 - 4) / 4 * 100 = 25
	if summary.AvgCtrLiftPct != 25 {
		t.Errorf("expected 25%% CTR lift, got %f", summary.AvgCtrLiftPct)
	}
	if summary.ExtraClicks != 10 {
		t.Errorf("expected 10 extra clicks, got %f", summary.ExtraClicks)
	}
	if summary.InconclusiveCount != 0 {
		t.Errorf("expected no inconclusive tests, got %d", summary.InconclusiveCount)
	}
}

func TestSummarizePortfolio_FallsBackToChooseWinner(t *testing.T) {
	// No recorded winner: the engine's own pick (B, higher score) is used.
	outcome := outcomeFromDays(nil, store.WinnerModePending, false, []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 40),
		dayResult(1, store.VariantB, 1000, 50),
	})

	summary := engine.SummarizePortfolio([]engine.TestOutcome{outcome})

	if summary.ExtraClicks != 10 {
		t.Errorf("expected extra clicks from B over A, got %f", summary.ExtraClicks)
	}
}

func TestSummarizePortfolio_ZeroCtrLoserExcludedFromLift(t *testing.T) {
	b := store.VariantB
	outcome := outcomeFromDays(&b, store.WinnerModeAuto, false, []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 0),
		dayResult(1, store.VariantB, 1000, 50),
	})

	summary := engine.SummarizePortfolio([]engine.TestOutcome{outcome})

	// The loser never clicked: lift would be infinite, so the test is
	// excluded from the average but still counts its extra clicks.
	if summary.AvgCtrLiftPct != 0 {
		t.Errorf("expected zero-ctr loser excluded from lift average, got %f", summary.AvgCtrLiftPct)
	}
	if summary.ExtraClicks != 50 {
		t.Errorf("expected 50 extra clicks, got %f", summary.ExtraClicks)
	}
}

func TestSummarizePortfolio_WatchTimeLift(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 40),
		dayResult(1, store.VariantB, 1000, 50),
	}
	days[0].EstimatedMinutesWatched = 200
	days[1].EstimatedMinutesWatched = 300
	b := store.VariantB
	outcome := outcomeFromDays(&b, store.WinnerModeAuto, false, days)

	summary := engine.SummarizePortfolio([]engine.TestOutcome{outcome})

	// WTPI 0.3 vs 0.2 -> 50% lift; 100 extra minutes.
	if summary.AvgWtpiLiftPct != 50 {
		t.Errorf("expected 50%% WTPI lift, got %f", summary.AvgWtpiLiftPct)
	}
	if summary.ExtraWatchMinutes != 100 {
		t.Errorf("expected 100 extra watch minutes, got %f", summary.ExtraWatchMinutes)
	}
}

func TestSummarizePortfolio_CountsInconclusive(t *testing.T) {
	a := store.VariantA
	outcomes := []engine.TestOutcome{
		outcomeFromDays(nil, store.WinnerModeInconclusive, true, []engine.DailyVariantResult{
			dayResult(0, store.VariantA, 100, 5),
			dayResult(1, store.VariantB, 100, 5),
		}),
		// Review flag alone also counts, even with a manual winner set.
		outcomeFromDays(&a, store.WinnerModeManual, true, []engine.DailyVariantResult{
			dayResult(0, store.VariantA, 100, 6),
			dayResult(1, store.VariantB, 100, 5),
		}),
		outcomeFromDays(&a, store.WinnerModeAuto, false, []engine.DailyVariantResult{
			dayResult(0, store.VariantA, 100, 6),
			dayResult(1, store.VariantB, 100, 5),
		}),
	}

	summary := engine.SummarizePortfolio(outcomes)

	if summary.InconclusiveCount != 2 {
		t.Errorf("expected 2 inconclusive tests, got %d", summary.InconclusiveCount)
	}
	if summary.Tests != 3 {
		t.Errorf("expected 3 tests, got %d", summary.Tests)
	}
}

func TestSummarizePortfolio_LosingWinnerAddsNothing(t *testing.T) {
	// A human picked A even though B out-clicked it; extra clicks clamp at 0.
	a := store.VariantA
	outcome := outcomeFromDays(&a, store.WinnerModeManual, false, []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 40),
		dayResult(1, store.VariantB, 1000, 50),
	})

	summary := engine.SummarizePortfolio([]engine.TestOutcome{outcome})

	if summary.ExtraClicks != 0 {
		t.Errorf("expected clamped extra clicks, got %f", summary.ExtraClicks)
	}
	if summary.AvgCtrLiftPct != -20 {
		t.Errorf("expected -20%% lift for the overridden pick, got %f", summary.AvgCtrLiftPct)
	}
}

func TestSummarizePortfolio_Empty(t *testing.T) {
	summary := engine.SummarizePortfolio(nil)

	if summary.Tests != 0 || summary.ExtraClicks != 0 || summary.AvgCtrLiftPct != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}
