package analysis

import (
	"context"
	"fmt"
	"log"

	"ai-interviewer/internal/llm"
)

// Analysis is the validated result of scoring one answer.
type Analysis struct {
	Scores     ScoreVector `json:"scores"`
	Insights   []string    `json:"key_insights"`
	Gaps       []string    `json:"gaps"`
	RedFlags   []string    `json:"red_flags"`
	Hypothesis string      `json:"hypothesis"`
	Flags      Flags       `json:"patterns"`
}

// DefaultAnalysis is returned whenever the completion capability fails or
// its output cannot be parsed. The interview must never block on analysis.
func DefaultAnalysis() Analysis {
	return Analysis{Scores: DefaultScores()}
}

const analysisSystemPrompt = `You are a senior hiring expert evaluating one interview answer.

Score the answer on every metric from 0 to 10 and detect behavioral patterns.

Respond with a JSON object matching this exact schema:
{
  "scores": {
    "expertise": 0, "tools": 0, "cases": 0,
    "communication": 0, "collaboration": 0, "honesty": 0,
    "structure": 0, "depth": 0, "adaptability": 0,
    "self_awareness": 0, "growth": 0, "ownership": 0
  },
  "key_insights": ["short observation"],
  "gaps": ["missing competency"],
  "red_flags": ["serious concern, if any"],
  "hypothesis": "one-sentence working hypothesis about the candidate",
  "patterns": {
    "rehearsed": false, "evasive": false, "overconfident": false,
    "defensive": false, "authentic": false
  }
}

Rules:
- Judge only what the answer shows, do not invent facts.
- Be strict: 5 is average, 8+ is rare.
- Respond with JSON only, no commentary.`

type Analyzer struct {
	client llm.Client
}

func NewAnalyzer(client llm.Client) *Analyzer {
	return &Analyzer{client: client}
}

// Analyze scores one (question, answer) pair for the given role. It never
// returns an error: any failure resolves to DefaultAnalysis.
func (a *Analyzer) Analyze(ctx context.Context, question, answer, role string) Analysis {
	userPrompt := fmt.Sprintf("Candidate role: %s\n\nQUESTION: %s\n\nANSWER: %s", role, question, answer)

	resp, err := a.client.Generate(ctx,
		[]llm.Message{
			{Role: "system", Content: analysisSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(1000),
	)
	if err != nil {
		log.Printf("⚠️ answer analysis failed, using default scores: %v", err)
		return DefaultAnalysis()
	}

	analysis, err := ParseAnalysis(resp.Content)
	if err != nil {
		log.Printf("⚠️ failed to parse analysis output, using default scores: %v", err)
		return DefaultAnalysis()
	}
	return analysis
}

// ParseAnalysis validates raw completion output into an Analysis. Every
// metric is coerced into [0, 10] with missing or malformed values defaulting
// to 5; pattern flags apply their deltas, summed then clamped once.
func ParseAnalysis(raw string) (Analysis, error) {
	obj, err := extractObject(raw)
	if err != nil {
		return Analysis{}, err
	}

	scoresObj, ok := obj["scores"]
	if !ok {
		return Analysis{}, fmt.Errorf("missing 'scores' in analysis output")
	}
	rawScores := asObject(scoresObj)

	scores := make(ScoreVector, len(Metrics))
	for _, m := range Metrics {
		scores[m] = clampScore(asFloat(rawScores[m], defaultScore))
	}

	patterns := asObject(obj["patterns"])
	flags := Flags{
		Rehearsed:     asBool(patterns["rehearsed"]),
		Evasive:       asBool(patterns["evasive"]),
		Overconfident: asBool(patterns["overconfident"]),
		Defensive:     asBool(patterns["defensive"]),
		Authentic:     asBool(patterns["authentic"]),
	}

	return Analysis{
		Scores:     applyFlags(scores, flags),
		Insights:   asStringSlice(obj["key_insights"]),
		Gaps:       asStringSlice(obj["gaps"]),
		RedFlags:   asStringSlice(obj["red_flags"]),
		Hypothesis: asString(obj["hypothesis"]),
		Flags:      flags,
	}, nil
}
