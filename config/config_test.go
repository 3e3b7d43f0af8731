package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "HOST", "MODEL_PROVIDER", "MODEL_NAME", "OPENAI_API_BASE",
		"AGENT_MAX_STEPS", "CHAT_TIMEOUT", "SCHEDULER_INTERVAL", "REMINDER_WINDOW",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
	assert.Equal(t, ProviderOpenAI, cfg.ModelProvider)
	assert.Equal(t, "gpt-4o", cfg.ModelName)
	assert.Equal(t, "https://models.inference.ai.azure.com", cfg.OpenAIBaseURL)
	assert.Equal(t, 10, cfg.AgentMaxSteps)
	assert.Equal(t, 2*time.Minute, cfg.ChatTimeout)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
	assert.Equal(t, 24*time.Hour, cfg.ReminderWindow)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("MODEL_PROVIDER", "Anthropic")
	t.Setenv("MODEL_NAME", "")
	t.Setenv("ANTHROPIC_API_KEY", " sk-ant-123 ")
	t.Setenv("AGENT_MAX_STEPS", "3")
	t.Setenv("CHAT_TIMEOUT", "30s")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, ProviderAnthropic, cfg.ModelProvider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.ModelName)
	assert.Equal(t, "sk-ant-123", cfg.APIKey())
	assert.Equal(t, 3, cfg.AgentMaxSteps)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout)
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	t.Setenv("AGENT_MAX_STEPS", "-4")
	t.Setenv("SCHEDULER_INTERVAL", "soon")

	cfg := Load()

	assert.Equal(t, 10, cfg.AgentMaxSteps)
	assert.Equal(t, time.Minute, cfg.SchedulerInterval)
}
