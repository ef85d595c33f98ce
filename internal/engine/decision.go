package engine

import (
	"math"
	"strings"

	"github.com/splitreel/splitreel/internal/stats"
	"github.com/splitreel/splitreel/internal/store"
)

// ScoringConfig is the guardrail policy an experiment must clear before
// an automatic winner is declared. It is injected into every call;
// thresholds are policy, never derived.
type ScoringConfig struct {
	MinImpressionsPerVariant int64        `json:"min_impressions_per_variant"`
	MinConfidence            float64      `json:"min_confidence"` // fraction, 0-1
	MinCtrDeltaPctPoints     float64      `json:"min_ctr_delta_pct_points"`
	MinScoreDelta            float64      `json:"min_score_delta"`
	Weights                  ScoreWeights `json:"weights"`
}

// Reason codes carried on a WinnerDecision. Failure codes join with a
// comma in the order they are declared here.
const (
	ReasonTestInProgress     = "test_in_progress"
	ReasonCriteriaMetWaiting = "criteria_met_waiting_test_end"
	ReasonAutoCriteriaMet    = "auto_criteria_met"

	ReasonInsufficientExposureDays = "insufficient_exposure_days"
	ReasonInsufficientImpressions  = "insufficient_impressions"
	ReasonInsufficientConfidence   = "insufficient_confidence"
	ReasonInsufficientCtrDelta     = "insufficient_ctr_delta"
	ReasonInsufficientScoreDelta   = "insufficient_score_delta"
)

// WinnerDecision is the outcome of one evaluation pass.
// WinnerVariant is final only when WinnerMode is auto; during pending it
// is informational and must not be surfaced as a result.
type WinnerDecision struct {
	WinnerVariant             *store.Variant   `json:"winner_variant"`
	WinnerMode                store.WinnerMode `json:"winner_mode"`
	Confidence                float64          `json:"confidence"`
	PValue                    float64          `json:"p_value"`
	ReviewRequired            bool             `json:"review_required"`
	Reason                    string           `json:"reason"`
	MinExposureDaysPerVariant int              `json:"min_exposure_days_per_variant"`
	GuardrailsPassed          bool             `json:"guardrails_passed"`
	CtrDeltaPctPoints         float64          `json:"ctr_delta_pct_points"`
	ScoreDelta                float64          `json:"score_delta"`
}

// Decide runs the guardrailed decision procedure over the two variant
// aggregates. testCompleted distinguishes a mid-flight check (pending)
// from the terminal evaluation (auto or inconclusive).
func Decide(pair PerformancePair, durationDays int, cfg ScoringConfig, testCompleted bool) WinnerDecision {
	a, b := pair.A, pair.B

	minExposure := durationDays / 2
	if minExposure < 2 {
		minExposure = 2
	}

	pValue := stats.TwoProportionTest(a.EstimatedClicks, a.Impressions, b.EstimatedClicks, b.Impressions)
	confidence := stats.Confidence(pValue)
	if a.Impressions == 0 || b.Impressions == 0 {
		pValue = 1
		confidence = 0
	}

	ctrDelta := round4(math.Abs(a.CTR - b.CTR))
	scoreDelta := round6(math.Abs(a.Score - b.Score))

	exposureOK := a.ExposureDays >= minExposure && b.ExposureDays >= minExposure
	impressionsOK := a.Impressions >= cfg.MinImpressionsPerVariant && b.Impressions >= cfg.MinImpressionsPerVariant
	guardrailsPassed := exposureOK && impressionsOK

	confidenceOK := confidence >= cfg.MinConfidence
	ctrDeltaOK := ctrDelta >= cfg.MinCtrDeltaPctPoints
	scoreDeltaOK := scoreDelta >= cfg.MinScoreDelta
	eligible := confidenceOK && ctrDeltaOK && scoreDeltaOK

	decision := WinnerDecision{
		WinnerMode:                store.WinnerModePending,
		Confidence:                confidence,
		PValue:                    pValue,
		MinExposureDaysPerVariant: minExposure,
		GuardrailsPassed:          guardrailsPassed,
		CtrDeltaPctPoints:         ctrDelta,
		ScoreDelta:                scoreDelta,
	}

	winner := chooseWinner(a, b)

	if !testCompleted {
		decision.WinnerVariant = &winner
		if eligible {
			decision.Reason = ReasonCriteriaMetWaiting
		} else {
			decision.Reason = ReasonTestInProgress
		}
		return decision
	}

	if guardrailsPassed && eligible {
		decision.WinnerMode = store.WinnerModeAuto
		decision.WinnerVariant = &winner
		decision.Reason = ReasonAutoCriteriaMet
		return decision
	}

	var failing []string
	if !exposureOK {
		failing = append(failing, ReasonInsufficientExposureDays)
	}
	if !impressionsOK {
		failing = append(failing, ReasonInsufficientImpressions)
	}
	if !confidenceOK {
		failing = append(failing, ReasonInsufficientConfidence)
	}
	if !ctrDeltaOK {
		failing = append(failing, ReasonInsufficientCtrDelta)
	}
	if !scoreDeltaOK {
		failing = append(failing, ReasonInsufficientScoreDelta)
	}

	decision.WinnerMode = store.WinnerModeInconclusive
	decision.ReviewRequired = true
	decision.Reason = strings.Join(failing, ",")
	return decision
}

// chooseWinner picks the better variant: higher composite score, then
// higher CTR. A full tie resolves to A. That default is deliberate and
// load-bearing; changing it would alter historical decisions.
func chooseWinner(a, b VariantPerformance) store.Variant {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return a.Variant
		}
		return b.Variant
	}
	if a.CTR != b.CTR {
		if a.CTR > b.CTR {
			return a.Variant
		}
		return b.Variant
	}
	return store.VariantA
}

// Evaluation bundles the full pipeline output for one test.
type Evaluation struct {
	Days        []DailyVariantResult `json:"days"`
	Performance PerformancePair      `json:"performance"`
	Decision    WinnerDecision       `json:"decision"`
}

// Evaluate runs timeline reconstruction, aggregation and the decision
// procedure over one consistent snapshot of a test's rows and events.
func Evaluate(test *store.Test, rows []store.DailyMetric, events []store.VariantEvent, cfg ScoringConfig, testCompleted bool) Evaluation {
	days := AssignDailyVariants(test, rows, events)
	pair := AggregatePerformance(days, cfg.Weights)
	return Evaluation{
		Days:        days,
		Performance: pair,
		Decision:    Decide(pair, test.DurationDays, cfg, testCompleted),
	}
}
