package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultOpenAIModel    = "gpt-4o"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultOpenAIBaseURL  = "https://models.inference.ai.azure.com"
)

type Config struct {
	Port string
	Host string

	ModelProvider   string
	ModelName       string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	SerpAPIKey      string

	DatabaseURL       string
	PineconeAPIKey    string
	PineconeIndexName string

	AgentMaxSteps     int
	ChatTimeout       time.Duration
	SchedulerInterval time.Duration
	ReminderWindow    time.Duration

	StaticDir string
	LogLevel  string
}

// Load reads .env when present, then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Host: getEnv("HOST", "0.0.0.0"),

		ModelProvider:   strings.ToLower(getEnv("MODEL_PROVIDER", ProviderOpenAI)),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:   getEnv("OPENAI_API_BASE", defaultOpenAIBaseURL),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		SerpAPIKey:      getEnv("SERPAPI_API_KEY", ""),

		DatabaseURL:       getEnv("DB_URL", ""),
		PineconeAPIKey:    getEnv("PINECONE_API_KEY", ""),
		PineconeIndexName: getEnv("PINECONE_INDEX_NAME", "trackup-tasks"),

		AgentMaxSteps:     getEnvInt("AGENT_MAX_STEPS", 10),
		ChatTimeout:       getEnvDuration("CHAT_TIMEOUT", 2*time.Minute),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Minute),
		ReminderWindow:    getEnvDuration("REMINDER_WINDOW", 24*time.Hour),

		StaticDir: getEnv("STATIC_DIR", "static"),
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	defaultModel := defaultOpenAIModel
	if cfg.ModelProvider == ProviderAnthropic {
		defaultModel = defaultAnthropicModel
	}
	cfg.ModelName = getEnv("MODEL_NAME", defaultModel)

	return cfg
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// APIKey returns the key for the selected model provider.
func (c *Config) APIKey() string {
	if c.ModelProvider == ProviderAnthropic {
		return c.AnthropicAPIKey
	}
	return c.OpenAIAPIKey
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
