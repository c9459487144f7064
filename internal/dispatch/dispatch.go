package dispatch

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/reminder"
	"ai-interviewer/internal/store"
)

// batchLimit caps how many due reminders one tick drains. Leftovers are
// picked up by the next tick.
const batchLimit = 100

// Nudger delivers the inactivity nudge to the user.
type Nudger interface {
	Nudge(ctx context.Context, telegramID, sessionID int64) error
}

// Dispatcher periodically drains due reminders and sends nudges. A
// reminder fires at most once: it is marked sent before anything else can
// pick it up, and delivery failures are logged rather than retried.
type Dispatcher struct {
	repo      store.Repository
	reminders *reminder.Scheduler
	nudger    Nudger
	cron      *cron.Cron
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(repo store.Repository, reminders *reminder.Scheduler, nudger Nudger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		repo:      repo,
		reminders: reminders,
		nudger:    nudger,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the drain loop at the given interval.
func (d *Dispatcher) Start(interval time.Duration) error {
	_, err := d.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		if err := d.Tick(d.ctx, time.Now()); err != nil {
			log.Printf("❌ reminder dispatch tick failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	d.cron.Start()
	log.Printf("📅 Reminder dispatcher started (interval %s)", interval)
	return nil
}

func (d *Dispatcher) Stop() {
	if d.cron != nil {
		ctx := d.cron.Stop()
		<-ctx.Done()
	}
	if d.cancel != nil {
		d.cancel()
	}
	log.Println("📅 Reminder dispatcher stopped")
}

// Tick drains one batch of due reminders. Exported so tests can drive the
// loop without the cron clock.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) error {
	due, err := d.reminders.Due(ctx, now, batchLimit)
	if err != nil {
		return fmt.Errorf("load due reminders: %w", err)
	}

	for _, r := range due {
		// Claim first so a crash mid-send loses a nudge instead of
		// duplicating one.
		if err := d.reminders.MarkSent(ctx, r.ID); err != nil {
			log.Printf("failed to mark reminder %d sent: %v", r.ID, err)
			continue
		}

		suppress, err := d.shouldSuppress(ctx, r)
		if err != nil {
			log.Printf("suppression check failed for reminder %d: %v", r.ID, err)
			continue
		}
		if suppress {
			log.Printf("🤫 reminder %d suppressed (session %d no longer waiting)", r.ID, r.SessionID)
			continue
		}

		user, err := d.userByID(ctx, r.UserID)
		if err != nil || user == nil {
			log.Printf("failed to resolve user %d for reminder %d: %v", r.UserID, r.ID, err)
			continue
		}
		if err := d.nudger.Nudge(ctx, user.TelegramID, r.SessionID); err != nil {
			log.Printf("failed to send nudge for session %d: %v", r.SessionID, err)
			continue
		}
		log.Printf("🔔 nudge sent for session %d (user %d)", r.SessionID, r.UserID)
	}
	return nil
}

// shouldSuppress drops the nudge when the interview it was armed for is no
// longer waiting on the user, or when the user just finished an interview
// and a stray late reminder would read as noise.
func (d *Dispatcher) shouldSuppress(ctx context.Context, r *domain.Reminder) (bool, error) {
	sess, err := d.repo.GetSession(ctx, r.SessionID)
	if err != nil {
		return false, err
	}
	if sess == nil || sess.Status != domain.StatusInProgress {
		return true, nil
	}
	recent, err := d.repo.HasRecentCompletedSession(ctx, r.UserID, r.ScheduledAt)
	if err != nil {
		return false, err
	}
	return recent, nil
}

func (d *Dispatcher) userByID(ctx context.Context, userID int64) (*domain.User, error) {
	return d.repo.GetUserByID(ctx, userID)
}
