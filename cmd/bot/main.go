package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ai-interviewer/internal/analysis"
	"ai-interviewer/internal/config"
	"ai-interviewer/internal/dispatch"
	"ai-interviewer/internal/llm"
	"ai-interviewer/internal/question"
	"ai-interviewer/internal/quota"
	"ai-interviewer/internal/reminder"
	"ai-interviewer/internal/report"
	"ai-interviewer/internal/session"
	"ai-interviewer/internal/store"
	"ai-interviewer/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer repo.Close()

	llmClient, err := llm.NewFactory(cfg).CreateClient(string(cfg.LLMProvider), cfg.OpenAIModel)
	if err != nil {
		log.Fatalf("failed to create llm client: %v", err)
	}

	gate := quota.New(repo)
	reminders := reminder.New(repo, cfg.ReminderDelay)

	bot, err := telegram.New(cfg.TelegramBotToken, repo, gate, cfg.AdminUserID)
	if err != nil {
		log.Fatalf("failed to create bot: %v", err)
	}

	sessions := session.NewService(
		repo,
		gate,
		analysis.NewAnalyzer(llmClient),
		question.NewGenerator(llmClient),
		report.NewGenerator(llmClient),
		reminders,
		bot,
		session.Config{
			DemoQuestionCount: cfg.DemoQuestionCount,
			FullQuestionCount: cfg.FullQuestionCount,
			MinAnswerLength:   cfg.MinAnswerLength,
		},
	)
	bot.SetSessionService(sessions)

	dispatcher := dispatch.New(repo, reminders, bot)
	if err := dispatcher.Start(cfg.DispatchInterval); err != nil {
		log.Fatalf("failed to start reminder dispatcher: %v", err)
	}
	defer dispatcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down")
		cancel()
		bot.Stop()
	}()

	bot.Start(ctx)
}
