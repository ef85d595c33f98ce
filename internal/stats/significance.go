// Package stats holds the small numeric routines behind the decision
// engine: a two-proportion z-test and Wilson score intervals.
package stats

import "math"

// TwoProportionTest runs a pooled two-proportion z-test on estimated
// clicks vs impressions for the two variants and returns the two-sided
// p-value. Clicks are estimates from the platform, so they arrive as
// floats rather than exact counts.
//
// If either variant has no impressions there is nothing to compare and
// the p-value is 1.
func TwoProportionTest(aClicks float64, aImpressions int64, bClicks float64, bImpressions int64) float64 {
	if aImpressions <= 0 || bImpressions <= 0 {
		return 1
	}

	nA := float64(aImpressions)
	nB := float64(bImpressions)

	// Estimated clicks can exceed impressions when the platform reports
	// a CTR above 100; clamp so the proportions stay in [0, 1] and the
	// pooled standard error below stays real.
	pA := clampProportion(aClicks / nA)
	pB := clampProportion(bClicks / nB)

	// Pooled proportion under the null hypothesis pA = pB
	pooled := (pA*nA + pB*nB) / (nA + nB)

	se := math.Sqrt(pooled * (1 - pooled) * (1/nA + 1/nB))
	if se == 0 {
		if pA == pB {
			return 1
		}
		return 0
	}

	z := (pA - pB) / se

	// Two-sided tail probability
	return 2 * (1 - NormalCDF(math.Abs(z)))
}

func clampProportion(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Confidence converts a two-sided p-value into a 0-1 confidence level.
func Confidence(pValue float64) float64 {
	c := 1 - pValue
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// NormalCDF approximates the cumulative distribution function
// of the standard normal distribution
func NormalCDF(x float64) float64 {
	// Use the approximation from Abramowitz and Stegun
	// Handbook of Mathematical Functions, formula 7.1.26
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
