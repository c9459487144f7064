package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/llm"
	"ai-interviewer/internal/question"
	"ai-interviewer/internal/quota"
	"ai-interviewer/internal/reminder"
	"ai-interviewer/internal/report"
	"ai-interviewer/internal/store"
)

// scriptedLLM pops one canned response per Generate call. When the script
// runs dry it returns an error, exercising the fallback paths.
type scriptedLLM struct {
	responses []string
	calls     int
}

func (s *scriptedLLM) Generate(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Response, error) {
	s.calls++
	if len(s.responses) == 0 {
		return llm.Response{}, errors.New("script exhausted")
	}
	out := s.responses[0]
	s.responses = s.responses[1:]
	return llm.Response{Content: out}, nil
}

type issuedQuestion struct {
	sessionID int64
	text      string
	index     int
	total     int
}

type recordingChannel struct {
	questions     []issuedQuestion
	confirmations []string
	reports       []string
	finalScores   []analysis.Calibration
}

func (c *recordingChannel) IssueQuestion(ctx context.Context, telegramID, sessionID int64, text string, index, total int) error {
	c.questions = append(c.questions, issuedQuestion{sessionID, text, index, total})
	return nil
}

func (c *recordingChannel) RequestConfirmation(ctx context.Context, telegramID int64, draft string) error {
	c.confirmations = append(c.confirmations, draft)
	return nil
}

func (c *recordingChannel) ReportReady(ctx context.Context, telegramID, sessionID int64, scores analysis.Calibration, reportText string) error {
	c.finalScores = append(c.finalScores, scores)
	c.reports = append(c.reports, reportText)
	return nil
}

const scoredAnswer = `{"scores": {"expertise": 8, "tools": 8, "cases": 8}}`

// flakyRepo fails a fixed number of progress writes before recovering,
// simulating a persistence outage mid-confirm.
type flakyRepo struct {
	store.Repository
	failUpdates int
}

func (r *flakyRepo) UpdateProgress(ctx context.Context, sessionID int64, fromQuestion, toQuestion int, conv []domain.QAPair, analyses []analysis.Analysis) error {
	if r.failUpdates > 0 {
		r.failUpdates--
		return errors.New("disk on fire")
	}
	return r.Repository.UpdateProgress(ctx, sessionID, fromQuestion, toQuestion, conv, analyses)
}

func newTestService(t *testing.T, lc llm.Client) (*Service, *recordingChannel, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ch := &recordingChannel{}
	svc := NewService(
		repo,
		quota.New(repo),
		analysis.NewAnalyzer(lc),
		question.NewGenerator(lc),
		report.NewGenerator(lc),
		reminder.New(repo, 5*time.Minute),
		ch,
		Config{DemoQuestionCount: 3, FullQuestionCount: 10, MinAnswerLength: 20},
	)
	return svc, ch, repo
}

func registerUser(t *testing.T, repo store.Repository, telegramID int64) *domain.User {
	t.Helper()
	u := &domain.User{TelegramID: telegramID, Username: "tester"}
	if err := repo.UpsertUser(context.Background(), u); err != nil {
		t.Fatalf("failed to upsert user: %v", err)
	}
	return u
}

const longAnswer = "I led the redesign of our onboarding flow and doubled activation."

func TestDemoInterviewEndToEnd(t *testing.T) {
	// One LLM response per call: analyze, next question, analyze, next
	// question, final analyze, report body.
	lc := &scriptedLLM{responses: []string{
		scoredAnswer,
		"Tell me about a conflict with a stakeholder.",
		scoredAnswer,
		"\"How do you measure design quality?\"",
		scoredAnswer,
		"Full narrative report body.",
	}}
	svc, ch, repo := newTestService(t, lc)
	ctx := context.Background()
	user := registerUser(t, repo, 42)

	sess, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if sess.Mode != domain.ModeDemo {
		t.Fatalf("mode = %s, want demo for a fresh user", sess.Mode)
	}
	if len(ch.questions) != 1 || ch.questions[0].index != 1 || ch.questions[0].total != 3 {
		t.Fatalf("unexpected first question: %+v", ch.questions)
	}

	for i := 1; i <= 3; i++ {
		if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if err := svc.ConfirmAnswer(ctx, user); err != nil {
			t.Fatalf("confirm %d failed: %v", i, err)
		}
	}

	if len(ch.questions) != 3 {
		t.Fatalf("question count = %d, want 3", len(ch.questions))
	}
	if ch.questions[1].text != "Tell me about a conflict with a stakeholder." {
		t.Fatalf("unexpected question 2: %q", ch.questions[1].text)
	}
	// Surrounding quotes are stripped from generated questions.
	if ch.questions[2].text != "How do you measure design quality?" {
		t.Fatalf("unexpected question 3: %q", ch.questions[2].text)
	}

	if len(ch.reports) != 1 {
		t.Fatalf("report count = %d, want 1", len(ch.reports))
	}
	if !strings.Contains(ch.reports[0], "Full narrative report body.") {
		t.Fatalf("report body missing: %q", ch.reports[0])
	}

	// expertise/tools/cases at 8 scale hard skills to 24/30; the other
	// categories stay neutral.
	cal := ch.finalScores[0]
	if cal.HardSkills != 24 {
		t.Fatalf("hard skills = %d, want 24", cal.HardSkills)
	}
	if cal.SoftSkills != 13 || cal.Thinking != 13 || cal.Mindset != 10 {
		t.Fatalf("unexpected categories: %+v", cal.CategoryScores)
	}
	if cal.Level != domain.LevelMiddle {
		t.Fatalf("calibration level = %q", cal.Level)
	}

	stored, err := repo.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want completed", stored.Status)
	}
	if len(stored.Conversation) != 3 || len(stored.Analyses) != 3 {
		t.Fatalf("histories = %d/%d, want 3/3", len(stored.Conversation), len(stored.Analyses))
	}

	answers, err := repo.SessionAnswers(ctx, sess.ID)
	if err != nil || len(answers) != 3 {
		t.Fatalf("answers = %d (%v), want 3", len(answers), err)
	}

	if svc.HasLiveState(user.ID) {
		t.Fatalf("live state must be dropped after completion")
	}
	// No reminder left pending.
	due, err := repo.DueReminders(ctx, time.Now().Add(time.Hour), 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("pending reminders after completion: %d (%v)", len(due), err)
	}
}

func TestUnparseableAnalysisStillAdvances(t *testing.T) {
	lc := &scriptedLLM{responses: []string{
		"sorry, I can't help with that",
		"Question two.",
	}}
	svc, ch, repo := newTestService(t, lc)
	ctx := context.Background()
	user := registerUser(t, repo, 43)

	if _, err := svc.Start(ctx, user, domain.RoleProduct, domain.LevelJunior, false); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.ConfirmAnswer(ctx, user); err != nil {
		t.Fatalf("confirm must succeed on analysis failure, got %v", err)
	}

	sess, err := repo.ActiveSession(ctx, user.ID)
	if err != nil || sess == nil {
		t.Fatalf("active session lookup failed: %v", err)
	}
	if sess.CurrentQuestion != 2 {
		t.Fatalf("current question = %d, want 2", sess.CurrentQuestion)
	}
	if sess.Analyses[0].Scores["expertise"] != 5 {
		t.Fatalf("failed analysis should persist neutral scores, got %v", sess.Analyses[0].Scores)
	}
	if len(ch.questions) != 2 {
		t.Fatalf("question count = %d, want 2", len(ch.questions))
	}
}

func TestSubmitAnswerValidation(t *testing.T) {
	svc, _, repo := newTestService(t, &scriptedLLM{})
	ctx := context.Background()
	user := registerUser(t, repo, 44)

	if err := svc.SubmitAnswer(ctx, user, longAnswer); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}

	if _, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelSenior, false); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, "too short"); !errors.Is(err, ErrAnswerTooShort) {
		t.Fatalf("expected ErrAnswerTooShort, got %v", err)
	}
	if err := svc.ConfirmAnswer(ctx, user); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("rejected answer must not leave a draft, got %v", err)
	}
}

func TestEditAnswerDropsDraft(t *testing.T) {
	svc, ch, repo := newTestService(t, &scriptedLLM{})
	ctx := context.Background()
	user := registerUser(t, repo, 45)

	if _, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.EditAnswer(ctx, user.ID); err != nil {
		t.Fatalf("edit failed: %v", err)
	}
	if err := svc.ConfirmAnswer(ctx, user); !errors.Is(err, ErrNoDraft) {
		t.Fatalf("confirm after edit should need a new draft, got %v", err)
	}

	revised := longAnswer + " After user interviews we reworked the flow again."
	if err := svc.SubmitAnswer(ctx, user, revised); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if got := ch.confirmations[len(ch.confirmations)-1]; got != revised {
		t.Fatalf("latest draft = %q, want revised answer", got)
	}
}

func TestPersistenceFailureKeepsDraftForRetry(t *testing.T) {
	// Two analyses: the first confirm attempt analyzes and then fails to
	// persist; the retry re-analyzes and advances.
	lc := &scriptedLLM{responses: []string{
		scoredAnswer,
		scoredAnswer,
		"Question two.",
	}}
	svc, ch, repo := newTestService(t, lc)
	svc.repo = &flakyRepo{Repository: repo, failUpdates: 1}
	ctx := context.Background()
	user := registerUser(t, repo, 51)

	sess, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	if err := svc.ConfirmAnswer(ctx, user); !errors.Is(err, ErrRetryable) {
		t.Fatalf("expected ErrRetryable, got %v", err)
	}

	// Nothing advanced: neither persisted nor in memory, draft intact.
	stored, _ := repo.GetSession(ctx, sess.ID)
	if stored.CurrentQuestion != 1 || len(stored.Analyses) != 0 {
		t.Fatalf("failed write must not advance: q=%d analyses=%d", stored.CurrentQuestion, len(stored.Analyses))
	}
	if len(ch.questions) != 1 {
		t.Fatalf("no new question may be issued after a failed persist: %d", len(ch.questions))
	}

	// The same confirm, retried, advances exactly once.
	if err := svc.ConfirmAnswer(ctx, user); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	stored, _ = repo.GetSession(ctx, sess.ID)
	if stored.CurrentQuestion != 2 || len(stored.Analyses) != 1 {
		t.Fatalf("retry must advance once: q=%d analyses=%d", stored.CurrentQuestion, len(stored.Analyses))
	}
	if len(ch.questions) != 2 || ch.questions[1].text != "Question two." {
		t.Fatalf("retry must issue the next question: %+v", ch.questions)
	}
}

func TestConfirmStaleTransition(t *testing.T) {
	lc := &scriptedLLM{responses: []string{scoredAnswer}}
	svc, _, repo := newTestService(t, lc)
	ctx := context.Background()
	user := registerUser(t, repo, 46)

	sess, err := svc.Start(ctx, user, domain.RoleProduct, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	// Advance the persisted session behind the orchestrator's back, as a
	// concurrent confirm would.
	if err := repo.UpdateProgress(ctx, sess.ID, 1, 2, nil, nil); err != nil {
		t.Fatalf("external advance failed: %v", err)
	}

	if err := svc.ConfirmAnswer(ctx, user); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}

	stored, _ := repo.GetSession(ctx, sess.ID)
	if stored.CurrentQuestion != 2 {
		t.Fatalf("stale confirm must not advance further, got %d", stored.CurrentQuestion)
	}

	// The cached session fell behind the store, so the live state is
	// dropped; resuming picks the interview up at the persisted question.
	if svc.HasLiveState(user.ID) {
		t.Fatalf("stale confirm must drop the outdated live state")
	}
	resumed, _, err := svc.Resume(ctx, user)
	if err != nil {
		t.Fatalf("resume after stale confirm failed: %v", err)
	}
	if resumed == nil || resumed.CurrentQuestion != 2 {
		t.Fatalf("resume should land on the persisted question, got %+v", resumed)
	}
}

func TestStartDeniedWithoutQuota(t *testing.T) {
	lc := &scriptedLLM{responses: []string{scoredAnswer, scoredAnswer, scoredAnswer}}
	svc, _, repo := newTestService(t, lc)
	ctx := context.Background()
	user := registerUser(t, repo, 47)

	first, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := svc.Cancel(ctx, user.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	stored, _ := repo.GetSession(ctx, first.ID)
	if stored.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", stored.Status)
	}

	if _, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false); !errors.Is(err, ErrNoQuota) {
		t.Fatalf("expected ErrNoQuota after demo spent, got %v", err)
	}

	// A credit unlocks a full session.
	if _, err := repo.AddCredits(ctx, user.ID, 1); err != nil {
		t.Fatalf("add credits failed: %v", err)
	}
	sess, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("paid start failed: %v", err)
	}
	if sess.Mode != domain.ModeFull {
		t.Fatalf("mode = %s, want full", sess.Mode)
	}
}

func TestStartFreshAbandonsPrevious(t *testing.T) {
	svc, _, repo := newTestService(t, &scriptedLLM{})
	ctx := context.Background()
	user := registerUser(t, repo, 48)

	if _, err := repo.AddCredits(ctx, user.ID, 1); err != nil {
		t.Fatalf("add credits failed: %v", err)
	}
	first, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false)
	if err != nil {
		t.Fatalf("first start failed: %v", err)
	}

	if _, err := svc.Start(ctx, user, domain.RoleProduct, domain.LevelSenior, false); !errors.Is(err, ErrActiveSession) {
		t.Fatalf("expected ErrActiveSession, got %v", err)
	}

	second, err := svc.Start(ctx, user, domain.RoleProduct, domain.LevelSenior, true)
	if err != nil {
		t.Fatalf("fresh start failed: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("fresh start must create a new session")
	}

	stored, _ := repo.GetSession(ctx, first.ID)
	if stored.Status != domain.StatusAbandoned {
		t.Fatalf("old session status = %s, want abandoned", stored.Status)
	}
}

func TestResumeRebuildsFromStore(t *testing.T) {
	lc := &scriptedLLM{responses: []string{
		scoredAnswer,
		"What was the hardest decision on that project?",
	}}
	svc, _, repo := newTestService(t, lc)
	ctx := context.Background()
	user := registerUser(t, repo, 49)

	if _, err := svc.Start(ctx, user, domain.RoleDesigner, domain.LevelMiddle, false); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := svc.SubmitAnswer(ctx, user, longAnswer); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if err := svc.ConfirmAnswer(ctx, user); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}

	// Simulate a process restart: new service, same database.
	lc2 := &scriptedLLM{responses: []string{"What was the hardest decision on that project?"}}
	svc2, _, _ := newTestService(t, lc2)
	svc2.repo = repo

	sess, q, err := svc2.Resume(ctx, user)
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if sess == nil || sess.CurrentQuestion != 2 {
		t.Fatalf("resumed session = %+v, want question 2", sess)
	}
	if q != "What was the hardest decision on that project?" {
		t.Fatalf("resumed question = %q", q)
	}
	if !svc2.HasLiveState(user.ID) {
		t.Fatalf("resume must rebuild live state")
	}
	if len(sess.Conversation) != 1 {
		t.Fatalf("resumed history = %d entries, want 1", len(sess.Conversation))
	}
}

func TestResumeWithNothingToResume(t *testing.T) {
	svc, _, repo := newTestService(t, &scriptedLLM{})
	user := registerUser(t, repo, 50)

	sess, q, err := svc.Resume(context.Background(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil || q != "" {
		t.Fatalf("expected empty resume, got %+v %q", sess, q)
	}
}
