package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN,required"`
	AdminUserID      int64  `env:"ADMIN_USER"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Storage
	DBPath string `env:"DB_PATH" envDefault:"data/interviewer.db"`

	// Interview shape
	DemoQuestionCount int `env:"DEMO_QUESTION_COUNT" envDefault:"3"`
	FullQuestionCount int `env:"FULL_QUESTION_COUNT" envDefault:"10"`
	MinAnswerLength   int `env:"MIN_ANSWER_LENGTH" envDefault:"20"`

	// Reminders
	ReminderDelay    time.Duration `env:"REMINDER_DELAY" envDefault:"5m"`
	DispatchInterval time.Duration `env:"DISPATCH_INTERVAL" envDefault:"1m"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
