package analysis

// The 12 fixed metrics every answer is scored on, each 0-10.
const (
	MetricExpertise     = "expertise"
	MetricTools         = "tools"
	MetricCases         = "cases"
	MetricCommunication = "communication"
	MetricCollaboration = "collaboration"
	MetricHonesty       = "honesty"
	MetricStructure     = "structure"
	MetricDepth         = "depth"
	MetricAdaptability  = "adaptability"
	MetricSelfAwareness = "self_awareness"
	MetricGrowth        = "growth"
	MetricOwnership     = "ownership"
)

// Metrics lists all metric keys in canonical order.
var Metrics = []string{
	MetricExpertise,
	MetricTools,
	MetricCases,
	MetricCommunication,
	MetricCollaboration,
	MetricHonesty,
	MetricStructure,
	MetricDepth,
	MetricAdaptability,
	MetricSelfAwareness,
	MetricGrowth,
	MetricOwnership,
}

// Category → metrics mapping used by Aggregate. Each category averages its
// metrics (0-10) and scales onto its point ceiling.
var (
	hardSkillsMetrics = []string{MetricExpertise, MetricTools, MetricCases}
	softSkillsMetrics = []string{MetricCommunication, MetricCollaboration, MetricHonesty}
	thinkingMetrics   = []string{MetricStructure, MetricDepth, MetricAdaptability}
	mindsetMetrics    = []string{MetricSelfAwareness, MetricGrowth, MetricOwnership}
)

const (
	defaultScore = 5.0
	minScore     = 0.0
	maxScore     = 10.0
)

// ScoreVector holds one 0-10 value per metric. Values outside [0, 10] never
// survive validation.
type ScoreVector map[string]float64

// DefaultScores returns a neutral vector with every metric at 5.
func DefaultScores() ScoreVector {
	v := make(ScoreVector, len(Metrics))
	for _, m := range Metrics {
		v[m] = defaultScore
	}
	return v
}

func clampScore(x float64) float64 {
	if x < minScore {
		return minScore
	}
	if x > maxScore {
		return maxScore
	}
	return x
}

// Flags are behavioral patterns the model may detect in an answer.
type Flags struct {
	Rehearsed     bool `json:"rehearsed"`
	Evasive       bool `json:"evasive"`
	Overconfident bool `json:"overconfident"`
	Defensive     bool `json:"defensive"`
	Authentic     bool `json:"authentic"`
}

// flagDeltas maps each raised flag to metric adjustments. Deltas from all
// raised flags are summed, then every metric is clamped once.
var flagDeltas = map[string]map[string]float64{
	"rehearsed":     {MetricDepth: -1, MetricHonesty: -1},
	"evasive":       {MetricHonesty: -2, MetricDepth: -1},
	"overconfident": {MetricSelfAwareness: -2},
	"defensive":     {MetricHonesty: -1, MetricSelfAwareness: -1},
	"authentic":     {MetricHonesty: 1, MetricSelfAwareness: 1},
}

func (f Flags) raised() []string {
	var out []string
	if f.Rehearsed {
		out = append(out, "rehearsed")
	}
	if f.Evasive {
		out = append(out, "evasive")
	}
	if f.Overconfident {
		out = append(out, "overconfident")
	}
	if f.Defensive {
		out = append(out, "defensive")
	}
	if f.Authentic {
		out = append(out, "authentic")
	}
	return out
}

// applyFlags returns a copy of v with all deltas for raised flags summed in
// and re-clamped to [0, 10]. The input vector is not modified.
func applyFlags(v ScoreVector, f Flags) ScoreVector {
	adj := make(map[string]float64)
	for _, name := range f.raised() {
		for metric, d := range flagDeltas[name] {
			adj[metric] += d
		}
	}

	out := make(ScoreVector, len(Metrics))
	for _, m := range Metrics {
		out[m] = clampScore(v[m] + adj[m])
	}
	return out
}
