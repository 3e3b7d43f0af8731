package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trackup/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const anthropicMaxTokens = 4096

type AnthropicModel struct {
	client *anthropic.Client
	model  anthropic.Model
	logger *zap.Logger
}

func NewAnthropicModel(modelName, apiKey string, logger *zap.Logger) (*AnthropicModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("failed to create Anthropic client: %w", ErrUnauthorized)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicModel{
		client: &client,
		model:  anthropic.Model(modelName),
		logger: logger,
	}, nil
}

func (m *AnthropicModel) Generate(ctx context.Context, messages []models.Message, tools []ToolDefinition) (models.Message, error) {
	system, anthropicMessages := toAnthropicMessages(messages)
	toolSpecs := toAnthropicTools(tools)

	m.logger.Debug("Calling Anthropic model",
		zap.String("model", string(m.model)),
		zap.Int("messages", len(anthropicMessages)),
		zap.Int("tools", len(toolSpecs)))

	response, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       m.model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    anthropicMessages,
		Tools:       toolSpecs,
		Temperature: anthropic.Float(0),
	})
	if err != nil {
		return models.Message{}, ClassifyError(fmt.Errorf("failed to call Anthropic API: %w", err))
	}

	m.logger.Debug("Anthropic response",
		zap.String("stop_reason", string(response.StopReason)),
		zap.Int("content_blocks", len(response.Content)))

	return fromAnthropicContent(response.Content, m.logger), nil
}

// toAnthropicMessages lifts system messages into the System field and folds
// each run of tool results into one user message, as the Messages API expects.
func toAnthropicMessages(messages []models.Message) ([]anthropic.TextBlockParam, []anthropic.MessageParam) {
	var (
		system      []anthropic.TextBlockParam
		out         []anthropic.MessageParam
		toolResults []anthropic.ContentBlockParamUnion
	)

	flushToolResults := func() {
		if len(toolResults) > 0 {
			out = append(out, anthropic.NewUserMessage(toolResults...))
			toolResults = nil
		}
	}

	for _, msg := range messages {
		if msg.Role != models.RoleTool {
			flushToolResults()
		}

		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleUser:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			var blocks []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
			if len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		case models.RoleTool:
			toolResults = append(toolResults, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		}
	}
	flushToolResults()

	return system, out
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	specs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		schema := anthropic.ToolInputSchemaParam{}
		if tool.Parameters != nil {
			schema.Properties = tool.Parameters.Properties
			schema.Required = tool.Parameters.Required
		}
		specs = append(specs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        tool.Name,
				Description: anthropic.String(tool.Description),
				InputSchema: schema,
			},
		})
	}
	return specs
}

func fromAnthropicContent(content []anthropic.ContentBlockUnion, logger *zap.Logger) models.Message {
	msg := models.Message{Role: models.RoleAssistant}

	var text []string
	for _, block := range content {
		switch block := block.AsAny().(type) {
		case anthropic.TextBlock:
			text = append(text, block.Text)
		case anthropic.ToolUseBlock:
			call := models.ToolCall{
				ID:   toolCallID(block.ID),
				Name: block.Name,
			}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &call.Arguments); err != nil {
					logger.Warn("Model sent malformed tool input",
						zap.String("tool", block.Name),
						zap.Error(err))
				}
			}
			msg.ToolCalls = append(msg.ToolCalls, call)
		}
	}
	msg.Content = strings.Join(text, "")

	return msg
}
