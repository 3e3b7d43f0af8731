package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"trackup/config"
	"trackup/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"
	"github.com/invopop/jsonschema"
	"go.uber.org/zap"
)

var (
	ErrUnauthorized = errors.New("model provider rejected the API key")
	ErrRateLimited  = errors.New("model provider rate limit exceeded")
)

// ToolDefinition is what the model sees of a tool.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
}

// ChatModel produces the next assistant message for a conversation.
type ChatModel interface {
	Generate(ctx context.Context, messages []models.Message, tools []ToolDefinition) (models.Message, error)
}

// NewChatModel builds the client for the configured provider. Without an API
// key the server still starts; every chat turn then fails with ErrUnauthorized.
func NewChatModel(cfg *config.Config, logger *zap.Logger) (ChatModel, error) {
	provider := cfg.ModelProvider
	if provider == "" {
		provider = config.ProviderOpenAI
	}

	switch provider {
	case config.ProviderOpenAI, config.ProviderAnthropic:
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.ModelProvider)
	}

	if strings.TrimSpace(cfg.APIKey()) == "" {
		logger.Warn("Model API key not configured, chat requests will be rejected",
			zap.String("model_provider", provider))
		return &MissingKeyModel{Provider: provider}, nil
	}

	if provider == config.ProviderAnthropic {
		return NewAnthropicModel(cfg.ModelName, cfg.AnthropicAPIKey, logger)
	}
	return NewOpenAIModel(cfg.ModelName, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, logger)
}

// MissingKeyModel stands in for a provider whose API key is not set.
type MissingKeyModel struct {
	Provider string
}

func (m *MissingKeyModel) Generate(ctx context.Context, messages []models.Message, tools []ToolDefinition) (models.Message, error) {
	return models.Message{}, fmt.Errorf("%s API key is not configured: %w", m.Provider, ErrUnauthorized)
}

// ClassifyError tags provider auth and quota failures with ErrUnauthorized
// or ErrRateLimited so callers can match them with errors.Is.
func ClassifyError(err error) error {
	if err == nil || errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRateLimited) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", ErrRateLimited, err)
		}
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "401") || strings.Contains(text, "unauthorized"):
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	case strings.Contains(text, "429") || strings.Contains(text, "rate limit"):
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return err
}

func toolCallID(id string) string {
	if id != "" {
		return id
	}
	return "call_" + uuid.NewString()
}
