package telegram

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/domain"
	"ai-interviewer/internal/quota"
	"ai-interviewer/internal/session"
	"ai-interviewer/internal/store"
)

// Callback data prefixes and commands.
const (
	cbRolePrefix  = "role:"
	cbLevelPrefix = "level:"
	cbConfirm     = "answer:confirm"
	cbEdit        = "answer:edit"
	cbFresh       = "start:fresh"
	cbKeep        = "start:keep"
)

// Bot is the Telegram adapter: it translates updates into orchestrator
// calls and implements the orchestrator's outbound channel.
type Bot struct {
	api      *tgbotapi.BotAPI
	repo     store.Repository
	sessions *session.Service
	gate     *quota.Gate
	adminID  int64

	// Role picked during onboarding, waiting for the level pick.
	mu          sync.Mutex
	pendingRole map[int64]string
}

func New(botToken string, repo store.Repository, gate *quota.Gate, adminID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:         api,
		repo:        repo,
		gate:        gate,
		adminID:     adminID,
		pendingRole: make(map[int64]string),
	}, nil
}

// SetSessionService breaks the construction cycle: the bot is the
// orchestrator's channel, so it has to exist before the orchestrator does.
func (b *Bot) SetSessionService(s *session.Service) {
	b.sessions = s
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	log.Printf("🤖 Bot started as @%s", b.api.Self.UserName)

	for update := range updates {
		if update.Message != nil {
			b.handleIncomingMessage(ctx, update.Message)
			continue
		}
		if update.CallbackQuery != nil {
			b.handleCallback(ctx, update.CallbackQuery)
			continue
		}
	}
}

// Stop closes the update channel, letting Start return.
func (b *Bot) Stop() {
	b.api.StopReceivingUpdates()
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		log.Printf("failed to upsert user %d: %v", msg.From.ID, err)
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}
	b.handleAnswer(ctx, msg, user)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg, user)
	case "balance":
		b.handleBalance(ctx, msg, user)
	case "cancel":
		b.handleCancel(ctx, msg, user)
	case "grant":
		b.handleGrant(ctx, msg)
	case "help":
		b.sendMessage(msg.Chat.ID, helpText)
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command. Try /start, /balance, /cancel or /help.")
	}
}

// handleStart resumes an interrupted interview if one exists, otherwise
// begins onboarding with the role keyboard.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	if sess, q, err := b.sessions.Resume(ctx, user); err != nil {
		log.Printf("failed to resume session for user %d: %v", user.ID, err)
	} else if sess != nil {
		b.sendMessage(msg.Chat.ID, "You have an interview in progress. Picking up where you left off.")
		b.issueQuestion(msg.Chat.ID, q, sess.CurrentQuestion, sess.QuestionCount(b.sessions.DemoCount(), b.sessions.FullCount()))
		b.offerFreshStart(msg.Chat.ID)
		return
	}

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.RoleNames[domain.RoleDesigner], cbRolePrefix+domain.RoleDesigner),
			tgbotapi.NewInlineKeyboardButtonData(domain.RoleNames[domain.RoleProduct], cbRolePrefix+domain.RoleProduct),
		),
	)
	out := tgbotapi.NewMessage(msg.Chat.ID, welcomeText)
	out.ReplyMarkup = kb
	b.send(out)
}

func (b *Bot) handleBalance(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	bal, err := b.repo.GetOrCreateBalance(ctx, user.ID)
	if err != nil {
		log.Printf("failed to load balance for user %d: %v", user.ID, err)
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}
	demo := "available"
	if bal.DemoUsed {
		demo = "used"
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"💼 Your balance\n\nFree demo interview: %s\nFull interview credits: %d\nTotal interviews taken: %d",
		demo, bal.CreditBalance, bal.TotalUsed))
}

func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	err := b.sessions.Cancel(ctx, user.ID)
	if errors.Is(err, session.ErrNoActiveSession) {
		b.sendMessage(msg.Chat.ID, "You have no interview in progress.")
		return
	}
	if err != nil {
		log.Printf("failed to cancel session for user %d: %v", user.ID, err)
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong. Please try again.")
		return
	}
	b.sendMessage(msg.Chat.ID, "Interview cancelled. Start a new one any time with /start.")
}

// handleGrant is the admin entry point for topping up credits:
// /grant <telegram_id> <n>. Promo codes and purchases land on the same path.
func (b *Bot) handleGrant(ctx context.Context, msg *tgbotapi.Message) {
	if b.adminID == 0 || msg.From.ID != b.adminID {
		b.sendMessage(msg.Chat.ID, "Unknown command. Try /start, /balance, /cancel or /help.")
		return
	}
	parts := strings.Fields(msg.CommandArguments())
	if len(parts) != 2 {
		b.sendMessage(msg.Chat.ID, "Usage: /grant <telegram_id> <credits>")
		return
	}
	tgID, err1 := strconv.ParseInt(parts[0], 10, 64)
	n, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || n <= 0 {
		b.sendMessage(msg.Chat.ID, "Usage: /grant <telegram_id> <credits>")
		return
	}

	target, err := b.repo.GetUserByTelegramID(ctx, tgID)
	if err != nil || target == nil {
		b.sendMessage(msg.Chat.ID, "User not found. They need to /start the bot first.")
		return
	}
	bal, err := b.gate.AddCredits(ctx, target.ID, n)
	if err != nil {
		log.Printf("failed to grant credits to user %d: %v", target.ID, err)
		b.sendMessage(msg.Chat.ID, "Failed to add credits.")
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Added %d credits to user %d (balance now %d).", n, tgID, bal.CreditBalance))
	b.sendMessage(tgID, fmt.Sprintf("🎁 You received %d interview credits. Start with /start.", n))
}

// handleAnswer routes free text into the running interview.
func (b *Bot) handleAnswer(ctx context.Context, msg *tgbotapi.Message, user *domain.User) {
	if !b.sessions.HasLiveState(user.ID) {
		// Process restarted mid-interview: rebuild from the database
		// before accepting the answer.
		sess, q, err := b.sessions.Resume(ctx, user)
		if err != nil {
			log.Printf("failed to resume session for user %d: %v", user.ID, err)
			b.sendMessage(msg.Chat.ID, "Sorry, something went wrong. Please try again.")
			return
		}
		if sess == nil {
			b.sendMessage(msg.Chat.ID, "No interview in progress. Start one with /start.")
			return
		}
		b.sendMessage(msg.Chat.ID, "Your interview was restored. Here is your current question again:")
		b.issueQuestion(msg.Chat.ID, q, sess.CurrentQuestion, sess.QuestionCount(b.sessions.DemoCount(), b.sessions.FullCount()))
		return
	}

	err := b.sessions.SubmitAnswer(ctx, user, msg.Text)
	switch {
	case errors.Is(err, session.ErrAnswerTooShort):
		b.sendMessage(msg.Chat.ID, "That answer is a bit brief. Please add some detail — a couple of sentences at least.")
	case errors.Is(err, session.ErrNoActiveSession):
		b.sendMessage(msg.Chat.ID, "No interview in progress. Start one with /start.")
	case err != nil:
		log.Printf("failed to submit answer for user %d: %v", user.ID, err)
		b.sendMessage(msg.Chat.ID, "Sorry, something went wrong. Please try again.")
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	// Callbacks from inline-mode messages carry no Message and there is
	// no chat to answer into.
	if cb.Message == nil {
		return
	}

	// Acknowledge immediately so the button stops spinning.
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		log.Printf("failed to answer callback: %v", err)
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		log.Printf("failed to upsert user %d: %v", cb.From.ID, err)
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, cbRolePrefix):
		b.handleRolePick(chatID, user, strings.TrimPrefix(cb.Data, cbRolePrefix))
	case strings.HasPrefix(cb.Data, cbLevelPrefix):
		b.handleLevelPick(ctx, chatID, user, strings.TrimPrefix(cb.Data, cbLevelPrefix))
	case cb.Data == cbConfirm:
		b.handleConfirm(ctx, chatID, user)
	case cb.Data == cbEdit:
		b.handleEdit(ctx, chatID, user)
	case cb.Data == cbFresh:
		b.handleFresh(ctx, chatID, user)
	case cb.Data == cbKeep:
		b.sendMessage(chatID, "Continuing your current interview. Just answer the question above.")
	}
}

func (b *Bot) handleRolePick(chatID int64, user *domain.User, role string) {
	if _, ok := domain.RoleNames[role]; !ok {
		return
	}
	b.mu.Lock()
	b.pendingRole[user.ID] = role
	b.mu.Unlock()

	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.LevelNames[domain.LevelJunior], cbLevelPrefix+domain.LevelJunior),
			tgbotapi.NewInlineKeyboardButtonData(domain.LevelNames[domain.LevelMiddle], cbLevelPrefix+domain.LevelMiddle),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.LevelNames[domain.LevelSenior], cbLevelPrefix+domain.LevelSenior),
			tgbotapi.NewInlineKeyboardButtonData(domain.LevelNames[domain.LevelLead], cbLevelPrefix+domain.LevelLead),
		),
	)
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf("Great, %s it is. How much experience do you have?", domain.RoleNames[role]))
	out.ReplyMarkup = kb
	b.send(out)
}

func (b *Bot) handleLevelPick(ctx context.Context, chatID int64, user *domain.User, level string) {
	if _, ok := domain.LevelNames[level]; !ok {
		return
	}
	b.mu.Lock()
	role, ok := b.pendingRole[user.ID]
	delete(b.pendingRole, user.ID)
	b.mu.Unlock()
	if !ok {
		b.sendMessage(chatID, "Please pick a role first with /start.")
		return
	}

	_, err := b.sessions.Start(ctx, user, role, level, false)
	switch {
	case errors.Is(err, session.ErrNoQuota):
		b.sendMessage(chatID, upsellText)
	case errors.Is(err, session.ErrActiveSession):
		b.offerFreshStart(chatID)
	case err != nil:
		log.Printf("failed to start session for user %d: %v", user.ID, err)
		b.sendMessage(chatID, "Sorry, something went wrong. Please try again.")
	}
	// On success the orchestrator already delivered question 1 through
	// the channel.
}

func (b *Bot) handleConfirm(ctx context.Context, chatID int64, user *domain.User) {
	err := b.sessions.ConfirmAnswer(ctx, user)
	switch {
	case errors.Is(err, session.ErrStale):
		b.sendMessage(chatID, "That answer was already submitted.")
	case errors.Is(err, session.ErrNoDraft):
		b.sendMessage(chatID, "Nothing to confirm. Just type your answer.")
	case errors.Is(err, session.ErrNoActiveSession):
		b.sendMessage(chatID, "No interview in progress. Start one with /start.")
	case errors.Is(err, session.ErrRetryable):
		b.sendMessage(chatID, "Could not save your answer just now. It is still here — tap Submit again.")
	case err != nil:
		log.Printf("failed to confirm answer for user %d: %v", user.ID, err)
		b.sendMessage(chatID, "Sorry, something went wrong. Please try again.")
	}
}

func (b *Bot) handleEdit(ctx context.Context, chatID int64, user *domain.User) {
	err := b.sessions.EditAnswer(ctx, user.ID)
	if err != nil && !errors.Is(err, session.ErrNoDraft) {
		if errors.Is(err, session.ErrNoActiveSession) {
			b.sendMessage(chatID, "No interview in progress. Start one with /start.")
			return
		}
		log.Printf("failed to edit answer for user %d: %v", user.ID, err)
		return
	}
	b.sendMessage(chatID, "✏️ Go ahead — send your revised answer.")
}

func (b *Bot) handleFresh(ctx context.Context, chatID int64, user *domain.User) {
	b.mu.Lock()
	delete(b.pendingRole, user.ID)
	b.mu.Unlock()
	// Starting fresh walks through role/level again; the old session is
	// abandoned when the new one starts.
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.RoleNames[domain.RoleDesigner], cbRolePrefix+domain.RoleDesigner),
			tgbotapi.NewInlineKeyboardButtonData(domain.RoleNames[domain.RoleProduct], cbRolePrefix+domain.RoleProduct),
		),
	)
	if err := b.sessions.Cancel(ctx, user.ID); err != nil && !errors.Is(err, session.ErrNoActiveSession) {
		log.Printf("failed to cancel session for fresh start, user %d: %v", user.ID, err)
	}
	out := tgbotapi.NewMessage(chatID, "Starting over. Which role are you interviewing for?")
	out.ReplyMarkup = kb
	b.send(out)
}

func (b *Bot) offerFreshStart(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Continue", cbKeep),
			tgbotapi.NewInlineKeyboardButtonData("Start over", cbFresh),
		),
	)
	out := tgbotapi.NewMessage(chatID, "Continue your current interview, or start over? Starting over forfeits its progress.")
	out.ReplyMarkup = kb
	b.send(out)
}

// ensureUser upserts the Telegram account into the users table and returns
// the domain user with its internal ID.
func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*domain.User, error) {
	u := &domain.User{
		TelegramID: from.ID,
		Username:   from.UserName,
		FirstName:  from.FirstName,
		LastName:   from.LastName,
	}
	if err := b.repo.UpsertUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ==================== session.Channel ====================

func (b *Bot) IssueQuestion(ctx context.Context, telegramID, sessionID int64, text string, index, total int) error {
	b.issueQuestion(telegramID, text, index, total)
	return nil
}

func (b *Bot) issueQuestion(chatID int64, text string, index, total int) {
	b.sendMessage(chatID, fmt.Sprintf("❓ Question %d of %d\n\n%s", index, total, text))
}

func (b *Bot) RequestConfirmation(ctx context.Context, telegramID int64, draft string) error {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Submit", cbConfirm),
			tgbotapi.NewInlineKeyboardButtonData("✏️ Edit", cbEdit),
		),
	)
	out := tgbotapi.NewMessage(telegramID, fmt.Sprintf("Your answer:\n\n%s\n\nSubmit it, or edit first?", draft))
	out.ReplyMarkup = kb
	return b.send(out)
}

func (b *Bot) ReportReady(ctx context.Context, telegramID, sessionID int64, scores analysis.Calibration, reportText string) error {
	return b.send(tgbotapi.NewMessage(telegramID, reportText))
}

// Nudge implements the reminder dispatcher's outbound hook.
func (b *Bot) Nudge(ctx context.Context, telegramID, sessionID int64) error {
	return b.send(tgbotapi.NewMessage(telegramID,
		"👋 Your interview is still waiting for you. Answer the last question whenever you're ready — your progress is saved."))
}

// ==================== plumbing ====================

func (b *Bot) send(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
		return err
	}
	return nil
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("failed to send message: %v", err)
	}
}

const welcomeText = `👋 Welcome to the AI interview coach!

I run a short diagnostic interview, score your answers across hard skills, soft skills, thinking and mindset, and send you a detailed report.

Which role are you interviewing for?`

const upsellText = `You've already used your free demo interview.

A full interview is 10 questions with a complete scored report. Ask the admin for credits, then check /balance and run /start again.`

const helpText = `Commands:
/start — begin or resume an interview
/balance — your demo and credit balance
/cancel — cancel the interview in progress
/help — this message`
