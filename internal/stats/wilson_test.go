package stats_test

import (
	"math"
	"testing"

	"github.com/splitreel/splitreel/internal/stats"
)

func TestWilsonInterval_BracketsRate(t *testing.T) {
	lower, upper := stats.WilsonInterval(100, 1000, 0.95)
	rate := 0.1

	if lower >= rate {
		t.Errorf("lower bound %f should be < rate %f", lower, rate)
	}
	if upper <= rate {
		t.Errorf("upper bound %f should be > rate %f", upper, rate)
	}
	if lower < 0 || upper > 1 {
		t.Errorf("interval [%f, %f] out of bounds", lower, upper)
	}
}

func TestWilsonInterval_ZeroTrials(t *testing.T) {
	lower, upper := stats.WilsonInterval(0, 0, 0.95)
	if lower != 0 || upper != 0 {
		t.Errorf("expected [0, 0] for zero trials, got [%f, %f]", lower, upper)
	}
}

func TestWilsonInterval_FractionalSuccesses(t *testing.T) {
	// Estimated clicks arrive fractional; the interval must still behave.
	lower, upper := stats.WilsonInterval(52.5, 1000, 0.95)
	rate := 0.0525

	if lower >= rate || upper <= rate {
		t.Errorf("interval [%f, %f] should bracket %f", lower, upper, rate)
	}
}

func TestWilsonInterval_NarrowsWithSample(t *testing.T) {
	smallLower, smallUpper := stats.WilsonInterval(10, 100, 0.95)
	largeLower, largeUpper := stats.WilsonInterval(1000, 10000, 0.95)

	if (largeUpper - largeLower) >= (smallUpper - smallLower) {
		t.Errorf("larger sample should give a narrower interval")
	}
}

func TestZScore_CommonValues(t *testing.T) {
	cases := []struct {
		confidence float64
		want       float64
	}{
		{0.99, 2.576},
		{0.95, 1.96},
		{0.90, 1.645},
	}

	for _, c := range cases {
		if got := stats.ZScore(c.confidence); got != c.want {
			t.Errorf("ZScore(%v) = %f, want %f", c.confidence, got, c.want)
		}
	}
}

func TestZScore_ApproximatedValue(t *testing.T) {
	// 0.50 confidence falls through to the rational approximation;
	// the exact two-tailed z is 0.6745.
	got := stats.ZScore(0.50)
	if math.Abs(got-0.6745) > 0.001 {
		t.Errorf("ZScore(0.50) = %f, want ~0.6745", got)
	}
}
