package report

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/llm"
)

const reportSystemPrompt = `You are a hiring expert with 20 years of experience evaluating specialists.
Write a deep, specific report about the candidate based on their interview answers.

Structure (follow strictly):

1. OVERALL IMPRESSION (2-3 sentences)
2. STRENGTHS (3-5 bullets with examples from the answers)
3. GROWTH AREAS (3-5 bullets with recommendations)
4. HARD SKILLS (2-3 sentences)
5. SOFT SKILLS (2-3 sentences)
6. THINKING (2-3 sentences)
7. MINDSET (2-3 sentences)
8. DEVELOPMENT RECOMMENDATIONS (3 concrete actions)
9. VERDICT (1-2 short sentences: what level and why)

Rules:
- Be specific, reference real answers.
- No filler phrases, no emoji, plain text only.
- Honest but constructive.`

type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate produces the final report text. On any completion failure it
// falls back to a deterministic report built from the already-computed
// analyses, so a finished interview always completes.
func (g *Generator) Generate(ctx context.Context, sess *domain.Session, cal analysis.Calibration) string {
	body, err := g.detailed(ctx, sess, cal)
	if err != nil {
		log.Printf("⚠️ report generation failed, using fallback report: %v", err)
		body = Fallback(sess.Analyses)
	}
	return Header(sess, cal) + "\n\n" + body
}

func (g *Generator) detailed(ctx context.Context, sess *domain.Session, cal analysis.Calibration) (string, error) {
	var dialog strings.Builder
	for i, qa := range sess.Conversation {
		fmt.Fprintf(&dialog, "\n\nQUESTION %d: %s\nANSWER: %s", i+1, qa.Question, qa.Answer)
	}

	userPrompt := fmt.Sprintf(
		"Role: %s\nExperience level: %s\nScores: hard %d/30, soft %d/25, thinking %d/25, mindset %d/20, total %d/100.\n\nInterview transcript:%s",
		domain.RoleNames[sess.Role], sess.Experience,
		cal.HardSkills, cal.SoftSkills, cal.Thinking, cal.Mindset, cal.Total,
		dialog.String(),
	)

	resp, err := g.client.Generate(ctx,
		[]llm.Message{
			{Role: "system", Content: reportSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
		llm.WithTemperature(0.7),
		llm.WithMaxTokens(2000),
	)
	if err != nil {
		return "", err
	}
	body := strings.TrimSpace(resp.Content)
	if body == "" {
		return "", fmt.Errorf("empty report from completion")
	}
	return body, nil
}

// Fallback builds a report purely from collected insights when the
// completion capability is unavailable. Deterministic for a given history.
func Fallback(analyses []analysis.Analysis) string {
	var insights, gaps, hypotheses []string
	for _, a := range analyses {
		insights = append(insights, a.Insights...)
		gaps = append(gaps, a.Gaps...)
		if a.Hypothesis != "" {
			hypotheses = append(hypotheses, a.Hypothesis)
		}
	}

	insights = dedupe(insights, 5)
	gaps = dedupe(gaps, 3)

	insightsText := "- Not enough data"
	if len(insights) > 0 {
		insightsText = "- " + strings.Join(insights, "\n- ")
	}
	gapsText := "- None identified"
	if len(gaps) > 0 {
		gapsText = "- " + strings.Join(gaps, "\n- ")
	}
	hypothesis := "Further analysis required."
	if len(hypotheses) > 0 {
		hypothesis = hypotheses[len(hypotheses)-1]
	}

	return fmt.Sprintf(`KEY OBSERVATIONS:
%s

GROWTH AREAS:
%s

OVERALL IMPRESSION:
%s

Detailed AI analysis is temporarily unavailable.`, insightsText, gapsText, hypothesis)
}

// Header renders the score summary that opens every report.
func Header(sess *domain.Session, cal analysis.Calibration) string {
	return fmt.Sprintf(`DIAGNOSTIC COMPLETE

Profile: %s
Experience: %s
Band: %s

TOTAL SCORE: %d/100 (%s expectations for %s, expected %d)

Breakdown:
- Hard Skills: %d/30
- Soft Skills: %d/25
- Thinking: %d/25
- Mindset: %d/20`,
		domain.RoleNames[sess.Role],
		domain.LevelNames[sess.Experience],
		band(cal.Total),
		cal.Total, cal.Expectation, sess.Experience, cal.ExpectedTotal,
		cal.HardSkills, cal.SoftSkills, cal.Thinking, cal.Mindset,
	)
}

func band(total int) string {
	switch {
	case total >= 80:
		return "Senior / Lead"
	case total >= 60:
		return "Middle+"
	case total >= 40:
		return "Middle"
	case total >= 25:
		return "Junior+"
	default:
		return "Junior"
	}
}

func dedupe(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if seen[it] {
			continue
		}
		seen[it] = true
		out = append(out, it)
		if len(out) == limit {
			break
		}
	}
	return out
}
