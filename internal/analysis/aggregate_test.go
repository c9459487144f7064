package analysis

import "testing"

func vector(value float64) ScoreVector {
	v := make(ScoreVector, len(Metrics))
	for _, m := range Metrics {
		v[m] = value
	}
	return v
}

func TestAggregateEmptyHistory(t *testing.T) {
	got := Aggregate(nil)
	if got.Total != 0 || got.HardSkills != 0 || got.SoftSkills != 0 || got.Thinking != 0 || got.Mindset != 0 {
		t.Fatalf("empty history must yield zeros, got %+v", got)
	}
	if got.RawAverages == nil {
		t.Fatalf("RawAverages must not be nil")
	}
}

func TestAggregatePerfectScores(t *testing.T) {
	history := []Analysis{{Scores: vector(10)}, {Scores: vector(10)}, {Scores: vector(10)}}
	got := Aggregate(history)

	if got.HardSkills != HardSkillsMax {
		t.Fatalf("hard = %d, want %d", got.HardSkills, HardSkillsMax)
	}
	if got.SoftSkills != SoftSkillsMax {
		t.Fatalf("soft = %d, want %d", got.SoftSkills, SoftSkillsMax)
	}
	if got.Thinking != ThinkingMax {
		t.Fatalf("thinking = %d, want %d", got.Thinking, ThinkingMax)
	}
	if got.Mindset != MindsetMax {
		t.Fatalf("mindset = %d, want %d", got.Mindset, MindsetMax)
	}
	if got.Total != TotalMax {
		t.Fatalf("total = %d, want %d", got.Total, TotalMax)
	}
}

func TestAggregateNeutralScores(t *testing.T) {
	history := []Analysis{{Scores: DefaultScores()}, {Scores: DefaultScores()}}
	got := Aggregate(history)

	// All metrics at 5 put every category at half its ceiling.
	if got.HardSkills != 15 || got.SoftSkills != 13 || got.Thinking != 13 || got.Mindset != 10 {
		t.Fatalf("unexpected categories: %+v", got)
	}
	if got.Total != 51 {
		t.Fatalf("total = %d, want 51", got.Total)
	}
}

func TestAggregateMixedHistory(t *testing.T) {
	strong := vector(5)
	strong[MetricExpertise] = 10
	strong[MetricTools] = 10
	strong[MetricCases] = 10

	weak := vector(5)
	weak[MetricExpertise] = 0
	weak[MetricTools] = 0
	weak[MetricCases] = 0

	got := Aggregate([]Analysis{{Scores: strong}, {Scores: weak}})

	// Hard metrics average to 5 across the pair: half the ceiling.
	if got.HardSkills != 15 {
		t.Fatalf("hard = %d, want 15", got.HardSkills)
	}
	if got.RawAverages[MetricExpertise] != 5 {
		t.Fatalf("raw expertise avg = %v, want 5", got.RawAverages[MetricExpertise])
	}
}

func TestCalibrateMeets(t *testing.T) {
	cal := Calibrate(CategoryScores{Total: 55}, "middle")
	if cal.Expectation != ExpectationMeets {
		t.Fatalf("expectation = %s, want meets", cal.Expectation)
	}
	if cal.ExpectedTotal != 55 || cal.Delta != 0 {
		t.Fatalf("unexpected calibration: %+v", cal)
	}
	// Span is 40..70, so 55 sits exactly halfway.
	if cal.PercentileInLevel != 50 {
		t.Fatalf("percentile = %d, want 50", cal.PercentileInLevel)
	}
}

func TestCalibrateExceeds(t *testing.T) {
	cal := Calibrate(CategoryScores{Total: 85}, "senior")
	if cal.Expectation != ExpectationExceeds {
		t.Fatalf("expectation = %s, want exceeds", cal.Expectation)
	}
	if cal.PercentileInLevel != 100 {
		t.Fatalf("percentile = %d, want clamp to 100", cal.PercentileInLevel)
	}
	if cal.Delta != 17 {
		t.Fatalf("delta = %d, want 17", cal.Delta)
	}
}

func TestCalibrateBelow(t *testing.T) {
	cal := Calibrate(CategoryScores{Total: 20}, "junior")
	if cal.Expectation != ExpectationBelow {
		t.Fatalf("expectation = %s, want below", cal.Expectation)
	}
	if cal.PercentileInLevel != 0 {
		t.Fatalf("percentile = %d, want clamp to 0", cal.PercentileInLevel)
	}
}

func TestCalibrateUnknownLevelFallsBackToMiddle(t *testing.T) {
	cal := Calibrate(CategoryScores{Total: 55}, "principal")
	if cal.ExpectedTotal != 55 {
		t.Fatalf("unknown level should use middle thresholds, got %+v", cal)
	}
	if cal.Level != "principal" {
		t.Fatalf("level should be preserved as given, got %q", cal.Level)
	}
}

func TestPercentileDegenerateBand(t *testing.T) {
	// A zero-width or inverted band carries no ordering information, so
	// any total maps to the middle of it.
	flat := levelThresholds{Expected: 50, ExceedsFrom: 50, BelowUnder: 50}
	for _, total := range []int{0, 50, 100} {
		if got := percentileWithin(total, flat); got != 50 {
			t.Fatalf("percentileWithin(%d, flat) = %d, want 50", total, got)
		}
	}
	inverted := levelThresholds{Expected: 50, ExceedsFrom: 40, BelowUnder: 60}
	if got := percentileWithin(55, inverted); got != 50 {
		t.Fatalf("inverted band percentile = %d, want 50", got)
	}
}

func TestCalibrateBoundaries(t *testing.T) {
	// exceedsFrom is inclusive, belowUnder is exclusive.
	if cal := Calibrate(CategoryScores{Total: 70}, "middle"); cal.Expectation != ExpectationExceeds {
		t.Fatalf("70 for middle = %s, want exceeds", cal.Expectation)
	}
	if cal := Calibrate(CategoryScores{Total: 40}, "middle"); cal.Expectation != ExpectationMeets {
		t.Fatalf("40 for middle = %s, want meets", cal.Expectation)
	}
	if cal := Calibrate(CategoryScores{Total: 39}, "middle"); cal.Expectation != ExpectationBelow {
		t.Fatalf("39 for middle = %s, want below", cal.Expectation)
	}
}
