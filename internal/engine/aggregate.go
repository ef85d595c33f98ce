package engine

import (
	"math"

	"github.com/splitreel/splitreel/internal/store"
)

// ScoreWeights blends CTR and watch-time quality into the composite
// score. Weights are renormalized to sum to 1 before use; two zero
// weights collapse to pure CTR.
type ScoreWeights struct {
	CTRWeight     float64 `json:"ctr_weight"`
	QualityWeight float64 `json:"quality_weight"`
}

func (w ScoreWeights) normalized() (ctrW, qualityW float64) {
	cw := sanitize(w.CTRWeight)
	qw := sanitize(w.QualityWeight)
	total := cw + qw
	if total <= 0 {
		return 1, 0
	}
	return cw / total, qw / total
}

// VariantPerformance is the derived summary of one variant over its
// exposure days. Percent fields (CTR, ImpressionsCTR) are 0-100; the
// normalized fields and Score are 0-1.
type VariantPerformance struct {
	Variant                    store.Variant `json:"variant"`
	ExposureDays               int           `json:"exposure_days"`
	Impressions                int64         `json:"impressions"`
	EstimatedClicks            float64       `json:"estimated_clicks"`
	CTR                        float64       `json:"ctr"`
	ImpressionsCTR             float64       `json:"impressions_ctr"`
	Views                      int64         `json:"views"`
	EstimatedMinutesWatched    float64       `json:"estimated_minutes_watched"`
	AverageViewDurationSeconds float64       `json:"average_view_duration_seconds"`
	WTPI                       float64       `json:"wtpi"`
	Score                      float64       `json:"score"`
	CTRNorm                    float64       `json:"ctr_norm"`
	WTPINorm                   float64       `json:"wtpi_norm"`
}

// PerformancePair holds both variants' aggregates plus whether the
// watch-time quality signal was present at all.
type PerformancePair struct {
	A                VariantPerformance `json:"a"`
	B                VariantPerformance `json:"b"`
	QualityAvailable bool               `json:"quality_available"`
}

// ByVariant returns the aggregate for the given variant.
func (p PerformancePair) ByVariant(v store.Variant) VariantPerformance {
	if v == store.VariantB {
		return p.B
	}
	return p.A
}

type variantAccumulator struct {
	exposureDays int
	impressions  int64
	clicks       float64
	views        int64
	minutes      float64
	dailyCtrSum  float64
	durationSum  float64 // average duration weighted by views
}

func (acc *variantAccumulator) add(day DailyVariantResult) {
	acc.exposureDays++
	acc.impressions += sanitizeCount(day.Impressions)
	acc.clicks += sanitize(day.EstimatedClicks)
	views := sanitizeCount(day.Views)
	acc.views += views
	acc.minutes += sanitize(day.EstimatedMinutesWatched)
	acc.dailyCtrSum += sanitize(day.ImpressionsCTR)
	acc.durationSum += sanitize(day.AverageViewDurationSeconds) * float64(views)
}

// AggregatePerformance folds day-labeled metric rows into two comparable
// variant summaries. Row order never changes the result.
func AggregatePerformance(days []DailyVariantResult, weights ScoreWeights) PerformancePair {
	var accA, accB variantAccumulator
	anyMinutes := false

	for _, day := range days {
		if sanitize(day.EstimatedMinutesWatched) > 0 {
			anyMinutes = true
		}
		if day.Variant == store.VariantB {
			accB.add(day)
		} else {
			accA.add(day)
		}
	}

	a := accA.summarize(store.VariantA)
	b := accB.summarize(store.VariantB)

	// The quality signal counts only when at least one variant actually
	// converted it into watch time per impression.
	qualityAvailable := anyMinutes && math.Max(a.WTPI, b.WTPI) > 0

	maxCtr := math.Max(a.CTR, b.CTR)
	maxWtpi := math.Max(a.WTPI, b.WTPI)
	a.CTRNorm = normalize(a.CTR, maxCtr)
	b.CTRNorm = normalize(b.CTR, maxCtr)
	a.WTPINorm = normalize(a.WTPI, maxWtpi)
	b.WTPINorm = normalize(b.WTPI, maxWtpi)

	ctrW, qualityW := weights.normalized()
	a.Score = compositeScore(a, qualityAvailable, ctrW, qualityW)
	b.Score = compositeScore(b, qualityAvailable, ctrW, qualityW)

	return PerformancePair{A: a, B: b, QualityAvailable: qualityAvailable}
}

func (acc *variantAccumulator) summarize(v store.Variant) VariantPerformance {
	perf := VariantPerformance{
		Variant:                 v,
		ExposureDays:            acc.exposureDays,
		Impressions:             acc.impressions,
		EstimatedClicks:         round2(acc.clicks),
		Views:                   acc.views,
		EstimatedMinutesWatched: round2(acc.minutes),
	}

	if acc.impressions > 0 {
		perf.CTR = round4(acc.clicks / float64(acc.impressions) * 100)
		perf.WTPI = round6(acc.minutes / float64(acc.impressions))
	}
	if acc.exposureDays > 0 {
		perf.ImpressionsCTR = round4(acc.dailyCtrSum / float64(acc.exposureDays))
	}
	if acc.views > 0 {
		perf.AverageViewDurationSeconds = round2(acc.durationSum / float64(acc.views))
	}

	return perf
}

func compositeScore(p VariantPerformance, qualityAvailable bool, ctrW, qualityW float64) float64 {
	if !qualityAvailable {
		return p.CTRNorm
	}
	return round6(ctrW*p.CTRNorm + qualityW*p.WTPINorm)
}

func normalize(value, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return round6(value / max)
}

// EstimateClicks derives an estimated click count from an impression
// count and the platform-reported CTR percentage for the same window.
func EstimateClicks(impressions int64, ctrPct float64) float64 {
	return round2(float64(sanitizeCount(impressions)) * sanitize(ctrPct) / 100)
}

// sanitize coerces NaN, infinities and negatives to 0 so a stray bad
// value degrades a metric instead of poisoning the whole aggregate.
func sanitize(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func sanitizeCount(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}

func round2(f float64) float64 { return math.Round(f*1e2) / 1e2 }
func round4(f float64) float64 { return math.Round(f*1e4) / 1e4 }
func round6(f float64) float64 { return math.Round(f*1e6) / 1e6 }
