package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"trackup/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// OpenAIModel talks to any OpenAI-compatible chat endpoint through langchaingo.
type OpenAIModel struct {
	llm    llms.Model
	logger *zap.Logger
}

func NewOpenAIModel(modelName, apiKey, baseURL string, logger *zap.Logger) (*OpenAIModel, error) {
	opts := []openai.Option{
		openai.WithModel(modelName),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return &OpenAIModel{llm: client, logger: logger}, nil
}

func (m *OpenAIModel) Generate(ctx context.Context, messages []models.Message, tools []ToolDefinition) (models.Message, error) {
	content, err := toLangchainMessages(messages)
	if err != nil {
		return models.Message{}, err
	}

	m.logger.Debug("Calling OpenAI model",
		zap.Int("messages", len(content)),
		zap.Int("tools", len(tools)))

	resp, err := m.llm.GenerateContent(ctx, content,
		llms.WithTools(toLangchainTools(tools)),
		llms.WithTemperature(0),
	)
	if err != nil {
		return models.Message{}, ClassifyError(fmt.Errorf("failed to call OpenAI API: %w", err))
	}
	if len(resp.Choices) == 0 {
		return models.Message{}, fmt.Errorf("failed to call OpenAI API: %w", openai.ErrEmptyResponse)
	}

	return fromLangchainChoice(resp.Choices[0], m.logger), nil
}

func toLangchainTools(tools []ToolDefinition) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, tool := range tools {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return out
}

func toLangchainMessages(messages []models.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, msg.Content))
		case models.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case models.RoleAssistant:
			var parts []llms.ContentPart
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				parts = append(parts, llms.TextContent{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Arguments)
				if err != nil {
					return nil, fmt.Errorf("failed to marshal arguments for tool call %s: %w", call.ID, err)
				}
				parts = append(parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case models.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		default:
			return nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	return out, nil
}

func fromLangchainChoice(choice *llms.ContentChoice, logger *zap.Logger) models.Message {
	msg := models.Message{Role: models.RoleAssistant, Content: choice.Content}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		call := models.ToolCall{
			ID:   toolCallID(tc.ID),
			Name: tc.FunctionCall.Name,
		}
		if tc.FunctionCall.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &call.Arguments); err != nil {
				// Leave arguments empty; the tool reports what is missing.
				logger.Warn("Model sent malformed tool arguments",
					zap.String("tool", call.Name),
					zap.String("arguments", tc.FunctionCall.Arguments),
					zap.Error(err))
			}
		}
		msg.ToolCalls = append(msg.ToolCalls, call)
	}

	return msg
}
