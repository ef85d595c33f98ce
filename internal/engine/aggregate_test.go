package engine_test

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/splitreel/splitreel/internal/engine"
	"github.com/splitreel/splitreel/internal/store"
)

var defaultWeights = engine.ScoreWeights{CTRWeight: 0.7, QualityWeight: 0.3}

func dayResult(offset int, v store.Variant, impressions int64, clicks float64) engine.DailyVariantResult {
	return engine.DailyVariantResult{
		Date:            day0.AddDate(0, 0, offset),
		Variant:         v,
		Source:          engine.SourceInferred,
		Impressions:     impressions,
		EstimatedClicks: clicks,
	}
}

func TestAggregatePerformance_BasicCTR(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 100, 10),
		dayResult(1, store.VariantB, 100, 12),
	}

	pair := engine.AggregatePerformance(days, defaultWeights)

	if pair.A.CTR != 10.0 {
		t.Errorf("expected ctr_A = 10.0, got %f", pair.A.CTR)
	}
	if pair.B.CTR != 12.0 {
		t.Errorf("expected ctr_B = 12.0, got %f", pair.B.CTR)
	}
	if pair.A.ExposureDays != 1 || pair.B.ExposureDays != 1 {
		t.Errorf("expected 1 exposure day each, got %d/%d", pair.A.ExposureDays, pair.B.ExposureDays)
	}
}

func TestAggregatePerformance_OrderIndependent(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 100, 10),
		dayResult(1, store.VariantB, 100, 12),
		dayResult(2, store.VariantA, 300, 21),
		dayResult(3, store.VariantB, 250, 30),
	}
	reversed := []engine.DailyVariantResult{days[3], days[2], days[1], days[0]}

	first := engine.AggregatePerformance(days, defaultWeights)
	second := engine.AggregatePerformance(reversed, defaultWeights)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("row order changed the aggregate:\n%+v\n%+v", first, second)
	}
}

func TestAggregatePerformance_Idempotent(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1234, 56.7),
		dayResult(1, store.VariantB, 4321, 76.5),
	}

	first := engine.AggregatePerformance(days, defaultWeights)
	second := engine.AggregatePerformance(days, defaultWeights)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different outputs")
	}
}

func TestAggregatePerformance_QualityScore(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 50),
		dayResult(1, store.VariantB, 1000, 40),
	}
	days[0].EstimatedMinutesWatched = 200
	days[1].EstimatedMinutesWatched = 400

	pair := engine.AggregatePerformance(days, defaultWeights)

	if !pair.QualityAvailable {
		t.Fatal("expected quality signal to be available")
	}

	// A: ctrNorm 1, wtpiNorm 0.5 -> 0.7 + 0.15; B: ctrNorm 0.8, wtpiNorm 1 -> 0.56 + 0.3
	if math.Abs(pair.A.Score-0.85) > 1e-9 {
		t.Errorf("expected score_A 0.85, got %f", pair.A.Score)
	}
	if math.Abs(pair.B.Score-0.86) > 1e-9 {
		t.Errorf("expected score_B 0.86, got %f", pair.B.Score)
	}
}

func TestAggregatePerformance_DegradesToPureCTR(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 50),
		dayResult(1, store.VariantB, 1000, 40),
	}

	pair := engine.AggregatePerformance(days, defaultWeights)

	if pair.QualityAvailable {
		t.Fatal("expected no quality signal with zero watch minutes")
	}
	if pair.A.Score != pair.A.CTRNorm || pair.B.Score != pair.B.CTRNorm {
		t.Errorf("without quality signal score must equal ctrNorm: %f/%f vs %f/%f",
			pair.A.Score, pair.B.Score, pair.A.CTRNorm, pair.B.CTRNorm)
	}
}

func TestAggregatePerformance_DegenerateWeights(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, 50),
		dayResult(1, store.VariantB, 1000, 40),
	}
	days[0].EstimatedMinutesWatched = 200
	days[1].EstimatedMinutesWatched = 400

	pair := engine.AggregatePerformance(days, engine.ScoreWeights{})

	// Zero weights collapse to pure-CTR weighting even with quality data.
	if pair.A.Score != pair.A.CTRNorm || pair.B.Score != pair.B.CTRNorm {
		t.Errorf("degenerate weights should collapse to ctrNorm: %f vs %f", pair.A.Score, pair.A.CTRNorm)
	}
}

func TestAggregatePerformance_BoundedScores(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 10, 9),
		dayResult(1, store.VariantB, 100000, 3),
	}
	days[0].EstimatedMinutesWatched = 999999
	days[1].EstimatedMinutesWatched = 0.001

	pair := engine.AggregatePerformance(days, defaultWeights)

	for _, perf := range []engine.VariantPerformance{pair.A, pair.B} {
		for name, v := range map[string]float64{"ctrNorm": perf.CTRNorm, "wtpiNorm": perf.WTPINorm, "score": perf.Score} {
			if v < 0 || v > 1 {
				t.Errorf("variant %s: %s = %f out of [0, 1]", perf.Variant, name, v)
			}
		}
	}
}

func TestAggregatePerformance_CoercesBadNumbers(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 1000, math.NaN()),
		dayResult(1, store.VariantB, -50, math.Inf(1)),
	}
	days[0].EstimatedMinutesWatched = math.Inf(-1)
	days[1].ImpressionsCTR = math.NaN()

	pair := engine.AggregatePerformance(days, defaultWeights)

	if pair.A.EstimatedClicks != 0 || pair.B.EstimatedClicks != 0 {
		t.Errorf("non-finite clicks should coerce to 0, got %f/%f", pair.A.EstimatedClicks, pair.B.EstimatedClicks)
	}
	if pair.B.Impressions != 0 {
		t.Errorf("negative impressions should coerce to 0, got %d", pair.B.Impressions)
	}
	for _, perf := range []engine.VariantPerformance{pair.A, pair.B} {
		for _, v := range []float64{perf.CTR, perf.WTPI, perf.Score, perf.ImpressionsCTR} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("variant %s produced a non-finite output", perf.Variant)
			}
		}
	}
}

func TestAggregatePerformance_ZeroImpressionsZeroRatios(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 0, 0),
	}

	pair := engine.AggregatePerformance(days, defaultWeights)

	if pair.A.CTR != 0 || pair.A.WTPI != 0 {
		t.Errorf("zero impressions must yield zero ratios, got ctr=%f wtpi=%f", pair.A.CTR, pair.A.WTPI)
	}
}

func TestAggregatePerformance_DailyCtrMeanAndDurationWeighting(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 100, 4),
		dayResult(2, store.VariantA, 100, 6),
	}
	days[0].ImpressionsCTR = 4.0
	days[0].Views = 10
	days[0].AverageViewDurationSeconds = 60
	days[1].ImpressionsCTR = 6.0
	days[1].Views = 30
	days[1].AverageViewDurationSeconds = 120

	pair := engine.AggregatePerformance(days, defaultWeights)

	if pair.A.ImpressionsCTR != 5.0 {
		t.Errorf("expected mean daily CTR 5.0, got %f", pair.A.ImpressionsCTR)
	}
	// (60*10 + 120*30) / 40 = 105
	if pair.A.AverageViewDurationSeconds != 105 {
		t.Errorf("expected views-weighted duration 105, got %f", pair.A.AverageViewDurationSeconds)
	}
}

func TestEstimateClicks(t *testing.T) {
	if got := engine.EstimateClicks(1000, 5); got != 50 {
		t.Errorf("EstimateClicks(1000, 5) = %f, want 50", got)
	}
	if got := engine.EstimateClicks(1000, 0); got != 0 {
		t.Errorf("EstimateClicks(1000, 0) = %f, want 0", got)
	}
	if got := engine.EstimateClicks(-10, 5); got != 0 {
		t.Errorf("EstimateClicks(-10, 5) = %f, want 0", got)
	}
	if got := engine.EstimateClicks(1000, math.NaN()); got != 0 {
		t.Errorf("EstimateClicks with NaN CTR = %f, want 0", got)
	}
}

// Guards against accidental time dependence in the aggregate.
func TestAggregatePerformance_NoTimeDependence(t *testing.T) {
	days := []engine.DailyVariantResult{
		dayResult(0, store.VariantA, 500, 25),
		dayResult(1, store.VariantB, 500, 30),
	}

	first := engine.AggregatePerformance(days, defaultWeights)
	time.Sleep(5 * time.Millisecond)
	second := engine.AggregatePerformance(days, defaultWeights)

	if !reflect.DeepEqual(first, second) {
		t.Error("aggregate changed between identical calls")
	}
}
