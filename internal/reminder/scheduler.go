package reminder

import (
	"context"
	"log"
	"time"

	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/store"
)

// Scheduler tracks inactivity nudges. It never sends anything itself; the
// dispatch loop consumes Due and resolves each reminder outward.
type Scheduler struct {
	repo  store.Repository
	delay time.Duration
}

func New(repo store.Repository, delay time.Duration) *Scheduler {
	return &Scheduler{repo: repo, delay: delay}
}

// Arm schedules a nudge for the session at now + delay, replacing any
// reminder already active for it. At most one active reminder exists per
// session.
func (s *Scheduler) Arm(ctx context.Context, userID, sessionID int64) (*domain.Reminder, error) {
	return s.repo.ArmReminder(ctx, userID, sessionID, time.Now().Add(s.delay))
}

// Disarm cancels all active reminders for the session. Called when an
// answer arrives in time.
func (s *Scheduler) Disarm(ctx context.Context, sessionID int64) {
	if _, err := s.repo.CancelReminders(ctx, sessionID); err != nil {
		log.Printf("failed to disarm reminders for session %d: %v", sessionID, err)
	}
}

// Due returns active reminders scheduled at or before now, oldest first.
func (s *Scheduler) Due(ctx context.Context, now time.Time, limit int) ([]*domain.Reminder, error) {
	return s.repo.DueReminders(ctx, now, limit)
}

// MarkSent is idempotent and one-way.
func (s *Scheduler) MarkSent(ctx context.Context, id int64) error {
	return s.repo.MarkReminderSent(ctx, id)
}
