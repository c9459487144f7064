package report

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/llm"
)

type fakeLLM struct {
	content string
	err     error
}

func (f *fakeLLM) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.content}, nil
}

func testSession() *domain.Session {
	return &domain.Session{
		Role:       domain.RoleDesigner,
		Experience: domain.LevelMiddle,
		Conversation: []domain.QAPair{
			{Question: "Walk me through a recent project.", Answer: "Redesigned checkout, conversion up 12%."},
		},
		Analyses: []analysis.Analysis{{
			Scores:     analysis.DefaultScores(),
			Insights:   []string{"outcome oriented"},
			Gaps:       []string{"no discovery work mentioned"},
			Hypothesis: "execution-heavy middle designer",
		}},
	}
}

func TestGenerateIncludesHeaderAndBody(t *testing.T) {
	g := NewGenerator(&fakeLLM{content: "1. OVERALL IMPRESSION\nDecent candidate."})
	sess := testSession()
	cal := analysis.Calibrate(analysis.Aggregate(sess.Analyses), sess.Experience)

	got := g.Generate(context.Background(), sess, cal)
	if !strings.Contains(got, "TOTAL SCORE: 51/100") {
		t.Fatalf("header missing total: %q", got)
	}
	if !strings.Contains(got, "Decent candidate.") {
		t.Fatalf("body missing: %q", got)
	}
	if !strings.Contains(got, "Hard Skills: 15/30") {
		t.Fatalf("breakdown missing: %q", got)
	}
}

func TestGenerateFallsBackOnError(t *testing.T) {
	g := NewGenerator(&fakeLLM{err: errors.New("api down")})
	sess := testSession()
	cal := analysis.Calibrate(analysis.Aggregate(sess.Analyses), sess.Experience)

	got := g.Generate(context.Background(), sess, cal)
	if !strings.Contains(got, "Detailed AI analysis is temporarily unavailable.") {
		t.Fatalf("expected fallback body: %q", got)
	}
	if !strings.Contains(got, "TOTAL SCORE: 51/100") {
		t.Fatalf("fallback must still carry the header: %q", got)
	}
	if !strings.Contains(got, "outcome oriented") {
		t.Fatalf("fallback missing collected insights: %q", got)
	}
}

func TestGenerateFallsBackOnEmptyOutput(t *testing.T) {
	g := NewGenerator(&fakeLLM{content: "   "})
	sess := testSession()
	cal := analysis.Calibrate(analysis.Aggregate(sess.Analyses), sess.Experience)

	got := g.Generate(context.Background(), sess, cal)
	if !strings.Contains(got, "Detailed AI analysis is temporarily unavailable.") {
		t.Fatalf("empty output should fall back: %q", got)
	}
}

func TestFallbackDeduplicatesAndLimits(t *testing.T) {
	var analyses []analysis.Analysis
	for i := 0; i < 8; i++ {
		analyses = append(analyses, analysis.Analysis{
			Insights:   []string{"repeated insight", "another"},
			Gaps:       []string{"gap one", "gap two", "gap three", "gap four"},
			Hypothesis: "latest hypothesis",
		})
	}

	got := Fallback(analyses)
	if strings.Count(got, "repeated insight") != 1 {
		t.Fatalf("insights not deduplicated: %q", got)
	}
	if strings.Contains(got, "gap four") {
		t.Fatalf("gaps not limited to three: %q", got)
	}
	if !strings.Contains(got, "latest hypothesis") {
		t.Fatalf("hypothesis missing: %q", got)
	}
}

func TestFallbackWithEmptyHistory(t *testing.T) {
	got := Fallback(nil)
	if !strings.Contains(got, "Not enough data") {
		t.Fatalf("empty history fallback: %q", got)
	}
	if !strings.Contains(got, "Further analysis required.") {
		t.Fatalf("empty history hypothesis: %q", got)
	}
}

func TestBands(t *testing.T) {
	cases := []struct {
		total int
		want  string
	}{
		{95, "Senior / Lead"},
		{80, "Senior / Lead"},
		{79, "Middle+"},
		{60, "Middle+"},
		{59, "Middle"},
		{40, "Middle"},
		{39, "Junior+"},
		{25, "Junior+"},
		{24, "Junior"},
		{0, "Junior"},
	}
	for _, c := range cases {
		if got := band(c.total); got != c.want {
			t.Fatalf("band(%d) = %q, want %q", c.total, got, c.want)
		}
	}
}
