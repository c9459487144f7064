package analysis

import "math"

// Expectation relates a total score to the baseline for an experience level.
type Expectation string

const (
	ExpectationBelow   Expectation = "below"
	ExpectationMeets   Expectation = "meets"
	ExpectationExceeds Expectation = "exceeds"
)

// levelThresholds defines the expected band for one experience level.
type levelThresholds struct {
	Expected    int
	ExceedsFrom int
	BelowUnder  int
}

var thresholdsByLevel = map[string]levelThresholds{
	"junior": {Expected: 40, ExceedsFrom: 55, BelowUnder: 25},
	"middle": {Expected: 55, ExceedsFrom: 70, BelowUnder: 40},
	"senior": {Expected: 68, ExceedsFrom: 80, BelowUnder: 55},
	"lead":   {Expected: 75, ExceedsFrom: 88, BelowUnder: 62},
}

// Calibration augments raw scores with the experience-level comparison.
type Calibration struct {
	CategoryScores
	Level             string      `json:"level"`
	Expectation       Expectation `json:"expectation"`
	ExpectedTotal     int         `json:"expected_total"`
	Delta             int         `json:"delta"`
	PercentileInLevel int         `json:"percentile_in_level"`
}

// Calibrate compares aggregated scores against the baseline for the given
// experience level. Unknown levels fall back to middle.
func Calibrate(scores CategoryScores, level string) Calibration {
	th, ok := thresholdsByLevel[level]
	if !ok {
		th = thresholdsByLevel["middle"]
	}

	expectation := ExpectationMeets
	switch {
	case scores.Total >= th.ExceedsFrom:
		expectation = ExpectationExceeds
	case scores.Total < th.BelowUnder:
		expectation = ExpectationBelow
	}

	return Calibration{
		CategoryScores:    scores,
		Level:             level,
		Expectation:       expectation,
		ExpectedTotal:     th.Expected,
		Delta:             scores.Total - th.Expected,
		PercentileInLevel: percentileWithin(scores.Total, th),
	}
}

// percentileWithin places the total inside the level's expected band,
// clamped to [0, 100]. A degenerate band is treated as "mid-band".
func percentileWithin(total int, th levelThresholds) int {
	span := th.ExceedsFrom - th.BelowUnder
	if span <= 0 {
		return 50
	}
	p := float64(total-th.BelowUnder) / float64(span)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return int(math.Round(p * 100))
}
