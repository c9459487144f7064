package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/question"
	"ai-interviewer/internal/quota"
	"ai-interviewer/internal/reminder"
	"ai-interviewer/internal/report"
	"ai-interviewer/internal/store"
)

var (
	// ErrNoQuota is returned when neither a demo nor a paid credit can
	// cover the session start.
	ErrNoQuota = store.ErrNoQuota

	// ErrStale is returned when a confirm arrives for a question the
	// session already moved past. The stale event is a no-op.
	ErrStale = store.ErrStaleTransition

	// ErrActiveSession is returned by Start when the previous interview is
	// still running and fresh=false.
	ErrActiveSession = store.ErrActiveSessionExists

	// ErrNoActiveSession is returned when an answer or confirm arrives for
	// a user without a running interview.
	ErrNoActiveSession = errors.New("no interview in progress")

	// ErrAnswerTooShort rejects answers below the configured minimum.
	ErrAnswerTooShort = errors.New("answer too short")

	// ErrNoDraft is returned when a confirm arrives without a submitted
	// draft answer.
	ErrNoDraft = errors.New("no draft answer to confirm")

	// ErrRetryable tells the caller nothing was lost and the same action
	// may be retried (persistence hiccup mid-transition).
	ErrRetryable = errors.New("transition not persisted, retry")
)

// Channel is the outbound surface the orchestrator emits into. Formatting,
// keyboards and delivery retries belong to the adapter behind it.
type Channel interface {
	IssueQuestion(ctx context.Context, telegramID, sessionID int64, text string, index, total int) error
	RequestConfirmation(ctx context.Context, telegramID int64, draft string) error
	ReportReady(ctx context.Context, telegramID, sessionID int64, scores analysis.Calibration, reportText string) error
}

// Service drives one interview end to end: quota-gated start, the
// answer/confirm loop, scoring, completion and crash recovery. Operations
// on one user's session are serialized; different users are independent.
type Service struct {
	repo      store.Repository
	gate      *quota.Gate
	analyzer  *analysis.Analyzer
	questions *question.Generator
	reports   *report.Generator
	reminders *reminder.Scheduler
	channel   Channel

	demoCount    int
	fullCount    int
	minAnswerLen int

	live *registry
}

type Config struct {
	DemoQuestionCount int
	FullQuestionCount int
	MinAnswerLength   int
}

func NewService(
	repo store.Repository,
	gate *quota.Gate,
	analyzer *analysis.Analyzer,
	questions *question.Generator,
	reports *report.Generator,
	reminders *reminder.Scheduler,
	channel Channel,
	cfg Config,
) *Service {
	return &Service{
		repo:         repo,
		gate:         gate,
		analyzer:     analyzer,
		questions:    questions,
		reports:      reports,
		reminders:    reminders,
		channel:      channel,
		demoCount:    cfg.DemoQuestionCount,
		fullCount:    cfg.FullQuestionCount,
		minAnswerLen: cfg.MinAnswerLength,
		live:         newRegistry(),
	}
}

func (s *Service) total(sess *domain.Session) int {
	return sess.QuestionCount(s.demoCount, s.fullCount)
}

func (s *Service) DemoCount() int { return s.demoCount }
func (s *Service) FullCount() int { return s.fullCount }

// Start begins a new interview for the user. The quota check and the
// decrement run as one transaction with the session insert, so a losing
// racer aborts without a session and without spending anything. With
// fresh=true a still-running interview is abandoned first; otherwise
// ErrActiveSession is returned.
func (s *Service) Start(ctx context.Context, user *domain.User, role, experience string, fresh bool) (*domain.Session, error) {
	if old, err := s.repo.ActiveSession(ctx, user.ID); err != nil {
		return nil, err
	} else if old != nil {
		if !fresh {
			return nil, ErrActiveSession
		}
		if err := s.abandon(ctx, user.ID, old); err != nil && !errors.Is(err, ErrStale) {
			return nil, err
		}
	}

	access, err := s.gate.CheckAccess(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if !access.Allowed {
		return nil, ErrNoQuota
	}

	sess := &domain.Session{
		UserID:     user.ID,
		Role:       role,
		Experience: experience,
		Mode:       access.Mode,
	}
	if err := s.repo.CreateSessionConsuming(ctx, sess); err != nil {
		// Lost the race between check and consume: no session was created.
		return nil, err
	}
	log.Printf("🎤 session %d started for user %d (mode=%s, role=%s)", sess.ID, user.ID, sess.Mode, role)

	q := s.questions.Generate(ctx, role, experience, 1, nil, nil)
	st := &state{session: sess, questionText: q}
	s.live.put(user.ID, st)

	if err := s.channel.IssueQuestion(ctx, user.TelegramID, sess.ID, q, 1, s.total(sess)); err != nil {
		log.Printf("failed to issue question 1 for session %d: %v", sess.ID, err)
	}
	if _, err := s.reminders.Arm(ctx, user.ID, sess.ID); err != nil {
		log.Printf("failed to arm reminder for session %d: %v", sess.ID, err)
	}
	return sess, nil
}

// SubmitAnswer stores the raw answer as an in-memory draft and asks the
// channel for confirmation. Nothing is persisted until the user confirms,
// so the draft stays editable.
func (s *Service) SubmitAnswer(ctx context.Context, user *domain.User, text string) error {
	st := s.live.get(user.ID)
	if st == nil {
		return ErrNoActiveSession
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(strings.TrimSpace(text)) < s.minAnswerLen {
		return fmt.Errorf("%w: need at least %d characters", ErrAnswerTooShort, s.minAnswerLen)
	}

	st.draft = text
	return s.channel.RequestConfirmation(ctx, user.TelegramID, text)
}

// EditAnswer drops the pending draft and returns to answering.
func (s *Service) EditAnswer(ctx context.Context, userID int64) error {
	st := s.live.get(userID)
	if st == nil {
		return ErrNoActiveSession
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.draft == "" {
		return ErrNoDraft
	}
	st.draft = ""
	return nil
}

// ConfirmAnswer commits the drafted answer: disarms the nudge, scores the
// answer, persists progress conditionally on the expected pre-state, then
// either issues the next question or finishes with scoring and the report.
// In-memory state is only advanced after the persist succeeds.
func (s *Service) ConfirmAnswer(ctx context.Context, user *domain.User) error {
	st := s.live.get(user.ID)
	if st == nil {
		return ErrNoActiveSession
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.draft == "" {
		return ErrNoDraft
	}
	sess := st.session
	current := sess.CurrentQuestion
	total := s.total(sess)

	s.reminders.Disarm(ctx, sess.ID)

	// Analyze never fails: unusable output degrades to neutral scores.
	ans := s.analyzer.Analyze(ctx, st.questionText, st.draft, sess.Role)

	newConv := append(append([]domain.QAPair{}, sess.Conversation...),
		domain.QAPair{Question: st.questionText, Answer: st.draft})
	newAnalyses := append(append([]analysis.Analysis{}, sess.Analyses...), ans)

	if current < total {
		return s.advance(ctx, user, st, current, newConv, newAnalyses)
	}
	return s.finish(ctx, user, st, current, newConv, newAnalyses)
}

func (s *Service) advance(ctx context.Context, user *domain.User, st *state, current int, conv []domain.QAPair, analyses []analysis.Analysis) error {
	sess := st.session
	next := current + 1

	err := s.repo.UpdateProgress(ctx, sess.ID, current, next, conv, analyses)
	if errors.Is(err, store.ErrStaleTransition) {
		// A concurrent confirm already advanced this session; this event
		// is rejected, not merged. The cached session is behind the
		// persisted row now, so drop it and let the next contact resume
		// from the store.
		st.draft = ""
		s.live.remove(user.ID)
		return ErrStale
	}
	if err != nil {
		// Checkpoint not persisted: keep draft and in-memory state exactly
		// as they were so the user can retry.
		log.Printf("failed to persist progress for session %d: %v", sess.ID, err)
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}

	s.recordAnswer(ctx, sess.ID, current, st.questionText, st.draft, analyses[len(analyses)-1])

	sess.CurrentQuestion = next
	sess.Conversation = conv
	sess.Analyses = analyses

	q := s.questions.Generate(ctx, sess.Role, sess.Experience, next, conv, analyses)
	st.questionText = q
	st.draft = ""

	if err := s.channel.IssueQuestion(ctx, user.TelegramID, sess.ID, q, next, s.total(sess)); err != nil {
		log.Printf("failed to issue question %d for session %d: %v", next, sess.ID, err)
	}
	if _, err := s.reminders.Arm(ctx, user.ID, sess.ID); err != nil {
		log.Printf("failed to arm reminder for session %d: %v", sess.ID, err)
	}
	return nil
}

func (s *Service) finish(ctx context.Context, user *domain.User, st *state, current int, conv []domain.QAPair, analyses []analysis.Analysis) error {
	sess := st.session

	scores := analysis.Aggregate(analyses)
	cal := analysis.Calibrate(scores, sess.Experience)

	scored := *sess
	scored.Conversation = conv
	scored.Analyses = analyses
	reportText := s.reports.Generate(ctx, &scored, cal)

	err := s.repo.CompleteSession(ctx, sess.ID, current, &cal, reportText, conv, analyses)
	if errors.Is(err, store.ErrStaleTransition) {
		st.draft = ""
		s.live.remove(user.ID)
		return ErrStale
	}
	if err != nil {
		log.Printf("failed to persist completion for session %d: %v", sess.ID, err)
		return fmt.Errorf("%w: %v", ErrRetryable, err)
	}

	s.recordAnswer(ctx, sess.ID, current, st.questionText, st.draft, analyses[len(analyses)-1])

	sess.Conversation = conv
	sess.Analyses = analyses
	sess.Scores = &cal
	sess.Report = reportText
	sess.Status = domain.StatusCompleted
	st.draft = ""
	s.live.remove(user.ID)

	log.Printf("✅ session %d completed with total score %d", sess.ID, cal.Total)

	if err := s.channel.ReportReady(ctx, user.TelegramID, sess.ID, cal, reportText); err != nil {
		log.Printf("failed to deliver report for session %d: %v", sess.ID, err)
	}
	return nil
}

// recordAnswer appends the per-question record. The session row is the
// source of truth for progress, so a failure here is logged, not fatal.
func (s *Service) recordAnswer(ctx context.Context, sessionID int64, num int, questionText, answerText string, ans analysis.Analysis) {
	rec := &domain.Answer{
		SessionID:    sessionID,
		QuestionNum:  num,
		QuestionText: questionText,
		AnswerText:   answerText,
		Analysis:     ans,
	}
	if err := s.repo.InsertAnswer(ctx, rec); err != nil {
		log.Printf("failed to record answer %d for session %d: %v", num, sessionID, err)
	}
}

// Cancel terminates the user's running interview at their request.
func (s *Service) Cancel(ctx context.Context, userID int64) error {
	sess, err := s.activeSession(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.repo.FinishSession(ctx, sess.ID, domain.StatusCancelled); err != nil {
		return err
	}
	s.reminders.Disarm(ctx, sess.ID)
	s.live.remove(userID)
	log.Printf("🚫 session %d cancelled by user %d", sess.ID, userID)
	return nil
}

func (s *Service) abandon(ctx context.Context, userID int64, sess *domain.Session) error {
	if err := s.repo.FinishSession(ctx, sess.ID, domain.StatusAbandoned); err != nil {
		return err
	}
	s.reminders.Disarm(ctx, sess.ID)
	s.live.remove(userID)
	log.Printf("session %d abandoned (replaced) for user %d", sess.ID, userID)
	return nil
}

func (s *Service) activeSession(ctx context.Context, userID int64) (*domain.Session, error) {
	if st := s.live.get(userID); st != nil {
		return st.session, nil
	}
	sess, err := s.repo.ActiveSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoActiveSession
	}
	return sess, nil
}

// Resume rebuilds in-memory state from the persisted session after a
// restart or lost client context. The current question is regenerated from
// the persisted histories, never taken from a transient cache, which is
// what makes every question reproducible from the session row alone.
// Returns nil when the user has nothing to resume.
func (s *Service) Resume(ctx context.Context, user *domain.User) (*domain.Session, string, error) {
	sess, err := s.repo.ActiveSession(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	if sess == nil {
		return nil, "", nil
	}

	q := s.questions.Generate(ctx, sess.Role, sess.Experience, sess.CurrentQuestion, sess.Conversation, sess.Analyses)
	s.live.put(user.ID, &state{session: sess, questionText: q})
	log.Printf("🔁 session %d resumed for user %d at question %d", sess.ID, user.ID, sess.CurrentQuestion)
	return sess, q, nil
}

// HasLiveState reports whether the user's interview is already loaded in
// memory (no recovery needed).
func (s *Service) HasLiveState(userID int64) bool {
	return s.live.get(userID) != nil
}
