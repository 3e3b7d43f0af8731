package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"trackup/config"
	"trackup/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"go.uber.org/zap"
)

func conversation() []models.Message {
	call1 := models.ToolCall{ID: "call_1", Name: "create_team", Arguments: map[string]any{"team_name": "Alpha"}}
	call2 := models.ToolCall{ID: "call_2", Name: "add_team_member", Arguments: map[string]any{"team_name": "Alpha", "user_name": "Bob"}}
	return []models.Message{
		models.SystemMessage("You are TrackUp Buddy."),
		models.UserMessage("Create team Alpha with Bob"),
		{Role: models.RoleAssistant, ToolCalls: []models.ToolCall{call1, call2}},
		models.ToolMessage(call1, "Team 'Alpha' created successfully."),
		models.ToolMessage(call2, "User 'Bob' added to team 'Alpha'."),
		{Role: models.RoleAssistant, Content: "Done."},
	}
}

func anthropicError(status int) *anthropic.Error {
	req := httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil)
	return &anthropic.Error{
		StatusCode: status,
		Request:    req,
		Response:   &http.Response{StatusCode: status},
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "openai 401", err: errors.New("API returned unexpected status code: 401: invalid key"), want: ErrUnauthorized},
		{name: "unauthorized text", err: errors.New("Unauthorized request"), want: ErrUnauthorized},
		{name: "openai 429", err: errors.New("API returned unexpected status code: 429"), want: ErrRateLimited},
		{name: "rate limit text", err: errors.New("Rate limit reached for gpt-4o"), want: ErrRateLimited},
		{name: "anthropic 403", err: anthropicError(http.StatusForbidden), want: ErrUnauthorized},
		{name: "anthropic 429", err: fmt.Errorf("wrapped: %w", anthropicError(http.StatusTooManyRequests)), want: ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}

	plain := errors.New("connection reset")
	assert.Equal(t, plain, ClassifyError(plain))
	assert.NoError(t, ClassifyError(nil))
}

func TestToLangchainMessages(t *testing.T) {
	out, err := toLangchainMessages(conversation())
	require.NoError(t, err)
	require.Len(t, out, 6)

	assert.Equal(t, llms.ChatMessageTypeSystem, out[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, out[1].Role)

	assert.Equal(t, llms.ChatMessageTypeAI, out[2].Role)
	require.Len(t, out[2].Parts, 2)
	call, ok := out[2].Parts[0].(llms.ToolCall)
	require.True(t, ok)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "create_team", call.FunctionCall.Name)
	assert.JSONEq(t, `{"team_name":"Alpha"}`, call.FunctionCall.Arguments)

	for i, id := range []string{"call_1", "call_2"} {
		msg := out[3+i]
		assert.Equal(t, llms.ChatMessageTypeTool, msg.Role)
		require.Len(t, msg.Parts, 1)
		resp, ok := msg.Parts[0].(llms.ToolCallResponse)
		require.True(t, ok)
		assert.Equal(t, id, resp.ToolCallID)
	}

	_, err = toLangchainMessages([]models.Message{{Role: "narrator"}})
	assert.Error(t, err)
}

func TestFromLangchainChoice(t *testing.T) {
	msg := fromLangchainChoice(&llms.ContentChoice{
		Content: "",
		ToolCalls: []llms.ToolCall{
			{ID: "call_9", Type: "function", FunctionCall: &llms.FunctionCall{Name: "delete_task", Arguments: `{"task_id":"mock_1"}`}},
			{Type: "function", FunctionCall: &llms.FunctionCall{Name: "list_teams", Arguments: ""}},
			{ID: "call_bad", Type: "function", FunctionCall: &llms.FunctionCall{Name: "create_team", Arguments: `{"team_name":`}},
		},
	}, zap.NewNop())

	assert.Equal(t, models.RoleAssistant, msg.Role)
	require.Len(t, msg.ToolCalls, 3)
	assert.Equal(t, "call_9", msg.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"task_id": "mock_1"}, msg.ToolCalls[0].Arguments)
	assert.NotEmpty(t, msg.ToolCalls[1].ID)
	assert.Nil(t, msg.ToolCalls[2].Arguments)
}

func TestToAnthropicMessagesGroupsToolResults(t *testing.T) {
	system, out := toAnthropicMessages(conversation())

	require.Len(t, system, 1)
	assert.Equal(t, "You are TrackUp Buddy.", system[0].Text)

	// user, assistant(tool_use x2), user(tool_result x2), assistant
	require.Len(t, out, 4)
	assert.Equal(t, anthropic.MessageParamRoleUser, out[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[1].Role)
	require.Len(t, out[1].Content, 2)
	require.NotNil(t, out[1].Content[1].OfToolUse)
	assert.Equal(t, "call_2", out[1].Content[1].OfToolUse.ID)

	assert.Equal(t, anthropic.MessageParamRoleUser, out[2].Role)
	require.Len(t, out[2].Content, 2)
	require.NotNil(t, out[2].Content[0].OfToolResult)
	assert.Equal(t, "call_1", out[2].Content[0].OfToolResult.ToolUseID)
	assert.Equal(t, "call_2", out[2].Content[1].OfToolResult.ToolUseID)

	assert.Equal(t, anthropic.MessageParamRoleAssistant, out[3].Role)
}

func TestNewChatModel(t *testing.T) {
	model, err := NewChatModel(&config.Config{
		ModelProvider: config.ProviderOpenAI,
		ModelName:     "gpt-4o",
		OpenAIAPIKey:  "sk-test",
		OpenAIBaseURL: "http://localhost:1",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &OpenAIModel{}, model)

	model, err = NewChatModel(&config.Config{
		ModelProvider:   config.ProviderAnthropic,
		ModelName:       "claude-sonnet-4-20250514",
		AnthropicAPIKey: "sk-ant-test",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicModel{}, model)

	_, err = NewChatModel(&config.Config{ModelProvider: "llama"}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewChatModelWithoutKey(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderAnthropic, ""} {
		t.Run("provider "+provider, func(t *testing.T) {
			model, err := NewChatModel(&config.Config{ModelProvider: provider, ModelName: "m"}, zap.NewNop())
			require.NoError(t, err)
			require.IsType(t, &MissingKeyModel{}, model)

			_, err = model.Generate(context.Background(), []models.Message{models.UserMessage("hi")}, nil)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}
