package question

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/llm"
)

// Per-role question banks. Question 1 always comes from the bank so the
// interview opens reliably; later questions fall back here when the
// completion capability is unavailable.
var questionBanks = map[string][]string{
	domain.RoleDesigner: {
		"Tell me about the project you are most proud of. What was your role and what made it succeed?",
		"Walk me through your design process for a recent feature, from brief to handoff.",
		"Describe a time user research changed your design direction. What did you do with the findings?",
		"How do you handle a stakeholder who insists on a solution you believe is wrong for users?",
		"Tell me about a design decision of yours that failed. What did you learn?",
		"How do you measure whether a design you shipped actually works?",
		"Describe how you collaborate with engineers when a design turns out to be expensive to build.",
		"What part of your design craft are you actively improving right now, and how?",
		"Tell me about balancing business goals against user needs in a concrete project.",
		"Where do you want to be as a designer in three years, and what is blocking you today?",
	},
	domain.RoleProduct: {
		"Tell me about a product decision you drove end-to-end. What was the outcome?",
		"How do you decide what to build next when everything looks important?",
		"Describe a time the data contradicted your intuition. What did you ship in the end?",
		"Walk me through how you discovered and validated a real user problem.",
		"Tell me about a product bet of yours that failed. What did you change after it?",
		"How do you say no to a senior stakeholder's feature request?",
		"Describe how you work with engineering when estimates blow up mid-quarter.",
		"What metrics did you own on your last product, and how did you move them?",
		"Tell me about a trade-off between growth and product quality you had to make.",
		"Where do you want to grow as a product manager, and what is your plan?",
	},
}

const questionSystemPrompt = `You are a senior interviewer running an adaptive competency interview.

Generate the next interview question based on the conversation so far.

Rules:
- One question only, no preamble, no numbering, no quotes around it.
- Dig into the weakest or most interesting area the previous answers exposed.
- Never repeat a topic already covered.
- Keep it open-ended and answerable in a few sentences.
- Match the candidate's role and experience level.`

type Generator struct {
	client llm.Client
}

func NewGenerator(client llm.Client) *Generator {
	return &Generator{client: client}
}

// Generate produces the question with the given 1-based number. It is a
// pure function of the persisted histories for a fixed completion
// capability, which is what makes resumed sessions reproduce the same
// question after a restart.
func (g *Generator) Generate(ctx context.Context, role, experience string, number int, conv []domain.QAPair, analyses []analysis.Analysis) string {
	bank := questionBanks[role]
	if bank == nil {
		bank = questionBanks[domain.RoleProduct]
	}

	// The opener is fixed per role: more reliable than generation and gives
	// the model a baseline answer to adapt from.
	if number <= 1 {
		return bank[0]
	}

	prompt := buildPrompt(role, experience, number, conv, analyses)
	resp, err := g.client.Generate(ctx,
		[]llm.Message{
			{Role: "system", Content: questionSystemPrompt},
			{Role: "user", Content: prompt},
		},
		llm.WithTemperature(0.8),
		llm.WithMaxTokens(500),
	)
	if err != nil {
		log.Printf("⚠️ question generation failed, falling back to bank: %v", err)
		return fallbackQuestion(bank, number)
	}

	q := strings.TrimSpace(resp.Content)
	q = strings.Trim(q, `"'`)
	if q == "" {
		return fallbackQuestion(bank, number)
	}
	return q
}

func fallbackQuestion(bank []string, number int) string {
	idx := number - 1
	if idx >= len(bank) {
		idx = len(bank) - 1
	}
	return bank[idx]
}

func buildPrompt(role, experience string, number int, conv []domain.QAPair, analyses []analysis.Analysis) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Candidate role: %s\nExperience level: %s\nNext question number: %d\n",
		role, experience, number)

	sb.WriteString("\nConversation so far:")
	for i, qa := range conv {
		fmt.Fprintf(&sb, "\n\nQUESTION %d: %s\nANSWER: %s", i+1, qa.Question, qa.Answer)
	}

	// Surface detected gaps so the next question can probe them.
	var gaps []string
	for _, a := range analyses {
		gaps = append(gaps, a.Gaps...)
	}
	if len(gaps) > 0 {
		sb.WriteString("\n\nAreas worth probing deeper: ")
		sb.WriteString(strings.Join(gaps, "; "))
	}

	sb.WriteString("\n\nGenerate the next question.")
	return sb.String()
}
