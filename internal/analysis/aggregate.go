package analysis

import "math"

// Category ceilings: hard 30 + soft 25 + thinking 25 + mindset 20 = 100.
const (
	HardSkillsMax = 30
	SoftSkillsMax = 25
	ThinkingMax   = 25
	MindsetMax    = 20
	TotalMax      = 100
)

// CategoryScores is the aggregated result of a whole session.
type CategoryScores struct {
	HardSkills  int                `json:"hard_skills"`
	SoftSkills  int                `json:"soft_skills"`
	Thinking    int                `json:"thinking"`
	Mindset     int                `json:"mindset"`
	Total       int                `json:"total"`
	RawAverages map[string]float64 `json:"raw_averages"`
}

// Aggregate folds per-answer analyses into four category scores and a total.
// Each category averages its metrics across all answers and scales the 0-10
// mean onto the category ceiling. An empty history yields all zeros.
func Aggregate(history []Analysis) CategoryScores {
	if len(history) == 0 {
		return CategoryScores{RawAverages: map[string]float64{}}
	}

	avg := make(map[string]float64, len(Metrics))
	for _, m := range Metrics {
		var sum float64
		for _, a := range history {
			sum += a.Scores[m]
		}
		avg[m] = sum / float64(len(history))
	}

	hard := scaleCategory(avg, hardSkillsMetrics, HardSkillsMax)
	soft := scaleCategory(avg, softSkillsMetrics, SoftSkillsMax)
	thinking := scaleCategory(avg, thinkingMetrics, ThinkingMax)
	mindset := scaleCategory(avg, mindsetMetrics, MindsetMax)

	total := hard + soft + thinking + mindset
	if total > TotalMax {
		total = TotalMax
	}

	return CategoryScores{
		HardSkills:  hard,
		SoftSkills:  soft,
		Thinking:    thinking,
		Mindset:     mindset,
		Total:       total,
		RawAverages: avg,
	}
}

// scaleCategory maps the mean of the category's metrics (0-10) onto its
// point ceiling, rounded and clamped as a defensive bound.
func scaleCategory(avg map[string]float64, metrics []string, ceiling int) int {
	var sum float64
	for _, m := range metrics {
		sum += avg[m]
	}
	mean := sum / float64(len(metrics))

	score := int(math.Round(mean * float64(ceiling) / maxScore))
	if score > ceiling {
		score = ceiling
	}
	if score < 0 {
		score = 0
	}
	return score
}
