package store

import (
	"context"
	"errors"
	"time"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
)

var (
	// ErrNoQuota means the balance could not cover a session start. A normal
	// business outcome, not a failure.
	ErrNoQuota = errors.New("no diagnostic quota available")

	// ErrStaleTransition means a conditional session update matched zero
	// rows: the session already advanced or reached a terminal state.
	ErrStaleTransition = errors.New("session state already advanced")

	// ErrActiveSessionExists means the user already has an in_progress
	// session; it must be abandoned before starting a new one.
	ErrActiveSessionExists = errors.New("user already has an active session")
)

// Repository is the persistence surface of the orchestrator.
type Repository interface {
	// Users
	UpsertUser(ctx context.Context, user *domain.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)

	// Balances
	GetOrCreateBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	AddCredits(ctx context.Context, userID int64, n int) (*domain.Balance, error)

	// Sessions
	CreateSessionConsuming(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, id int64) (*domain.Session, error)
	ActiveSession(ctx context.Context, userID int64) (*domain.Session, error)
	UpdateProgress(ctx context.Context, sessionID int64, fromQuestion, toQuestion int, conv []domain.QAPair, analyses []analysis.Analysis) error
	CompleteSession(ctx context.Context, sessionID int64, fromQuestion int, scores *analysis.Calibration, report string, conv []domain.QAPair, analyses []analysis.Analysis) error
	FinishSession(ctx context.Context, sessionID int64, status domain.SessionStatus) error
	HasRecentCompletedSession(ctx context.Context, userID int64, since time.Time) (bool, error)

	// Answers
	InsertAnswer(ctx context.Context, answer *domain.Answer) error
	SessionAnswers(ctx context.Context, sessionID int64) ([]*domain.Answer, error)

	// Reminders
	ArmReminder(ctx context.Context, userID, sessionID int64, at time.Time) (*domain.Reminder, error)
	CancelReminders(ctx context.Context, sessionID int64) (int64, error)
	DueReminders(ctx context.Context, now time.Time, limit int) ([]*domain.Reminder, error)
	MarkReminderSent(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
	Close() error
}
