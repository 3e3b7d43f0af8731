package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"trackup/config"
	"trackup/db"
	"trackup/models"
	"trackup/services"
	"trackup/services/agent"
	"trackup/services/calendar"
	"trackup/services/documents"
	"trackup/services/llm"
	"trackup/services/search"
	"trackup/services/taskindex"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChatter struct {
	result   *agent.TurnResult
	err      error
	threadID string
	query    string
	deadline bool
}

func (f *fakeChatter) Chat(ctx context.Context, threadID, query string) (*agent.TurnResult, error) {
	f.threadID, f.query = threadID, query
	_, f.deadline = ctx.Deadline()
	return f.result, f.err
}

func postChat(t *testing.T, chatter Chatter, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	router := mux.NewRouter()
	NewAgentHandler(chatter, time.Minute, zap.NewNop()).RegisterRoutes(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestChatSuccess(t *testing.T) {
	chatter := &fakeChatter{result: &agent.TurnResult{
		Response:     "Team Alpha created.",
		ActionsTaken: []string{"create_team"},
	}}

	rec, body := postChat(t, chatter, `{"query":"create team Alpha","user_id":"alice"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Team Alpha created.", body["response"])
	assert.Equal(t, []any{"create_team"}, body["actions_taken"])
	assert.Equal(t, "alice", chatter.threadID)
	assert.Equal(t, "create team Alpha", chatter.query)
	assert.True(t, chatter.deadline)
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "unauthorized",
			err:  fmt.Errorf("failed to generate model reply: %w", llm.ErrUnauthorized),
			want: "Error: Unauthorized. Please check your API Key in the .env file.",
		},
		{
			name: "rate limited",
			err:  fmt.Errorf("failed to generate model reply: %w", llm.ErrRateLimited),
			want: "Error: Rate limit exceeded. Please wait a moment before trying again.",
		},
		{
			name: "unclassified 401 text",
			err:  errors.New("upstream said 401"),
			want: "Error: Unauthorized. Please check your API Key in the .env file.",
		},
		{
			name: "step budget",
			err:  fmt.Errorf("%w after 10 steps", agent.ErrStepBudgetExceeded),
			want: "Sorry, I could not finish that request within the allowed number of steps.",
		},
		{
			name: "other",
			err:  errors.New("connection reset"),
			want: "Sorry, I encountered an error: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := postChat(t, &fakeChatter{err: tt.err}, `{"query":"hi","user_id":"alice"}`)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, body["response"])
			assert.Equal(t, []any{}, body["actions_taken"])
		})
	}
}

func TestChatBadRequests(t *testing.T) {
	for _, payload := range []string{`{not json`, `{"query":"","user_id":"alice"}`, `{"query":"hi"}`} {
		rec, body := postChat(t, &fakeChatter{}, payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
		assert.NotEmpty(t, body["error"], payload)
	}
}

func TestChatWithoutAPIKey(t *testing.T) {
	logger := zap.NewNop()
	model, err := llm.NewChatModel(&config.Config{ModelProvider: config.ProviderOpenAI, ModelName: "gpt-4o"}, logger)
	require.NoError(t, err)

	repo := db.NewInMemoryProjectRepository()
	projects := services.NewProjectService(repo, calendar.NewMockCalendar(logger), taskindex.NewFuzzyIndex(repo), logger)
	registry, err := agent.NewRegistry(agent.DefaultTools(projects, documents.NewLocalSharer(logger), search.NewSerpSearcher("", logger))...)
	require.NoError(t, err)
	chatter := agent.NewService(model, registry, db.NewInMemoryConversationRepository(), logger)

	rec, body := postChat(t, chatter, `{"query":"create team Alpha","user_id":"alice"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, unauthorizedReply, body["response"])
	assert.Equal(t, []any{}, body["actions_taken"])
}

func newProjectRouter(t *testing.T) (*mux.Router, *services.ProjectService) {
	t.Helper()
	logger := zap.NewNop()
	repo := db.NewInMemoryProjectRepository()
	svc := services.NewProjectService(repo, calendar.NewMockCalendar(logger), taskindex.NewFuzzyIndex(repo), logger)

	router := mux.NewRouter()
	NewProjectHandler(svc, logger).RegisterRoutes(router)
	return router, svc
}

func serve(router *mux.Router, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestGetTeams(t *testing.T) {
	ctx := context.Background()
	router, svc := newProjectRouter(t)
	svc.CreateTeam(ctx, "Alpha")
	svc.AddMember(ctx, "Alpha", "Bob")
	svc.CreateTeam(ctx, "Beta")

	rec := serve(router, http.MethodGet, "/api/teams", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Alpha":["Bob"],"Beta":[]}`, rec.Body.String())
}

func TestDeleteEndpoints(t *testing.T) {
	ctx := context.Background()
	router, svc := newProjectRouter(t)
	svc.CreateTeam(ctx, "Alpha")
	svc.AddMember(ctx, "Alpha", "Bob")
	svc.AssignTask(ctx, &models.CreateTaskRequest{Title: "Write docs", Assignee: "Bob", Deadline: "2025-01-01"})

	rec := serve(router, http.MethodDelete, "/api/teams/Alpha/members/Bob", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"User 'Bob' removed from 'Alpha'."}`, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/api/tasks/mock_1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task mock_1 deleted."}`, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/api/tasks/mock_1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Task not found."}`, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/api/teams/Alpha", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Team 'Alpha' deleted."}`, rec.Body.String())
}

func TestUpdateTaskStatusEndpoint(t *testing.T) {
	ctx := context.Background()
	router, svc := newProjectRouter(t)
	svc.AssignTask(ctx, &models.CreateTaskRequest{Title: "Write docs", Assignee: "Bob", Deadline: "2025-01-01"})

	rec := serve(router, http.MethodPatch, "/api/tasks/mock_1", `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Task mock_1 marked as completed."}`, rec.Body.String())

	rec = serve(router, http.MethodPatch, "/api/tasks/mock_1", `{"status":"done"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, http.MethodPatch, "/api/tasks/mock_1", `oops`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMember(t *testing.T) {
	ctx := context.Background()
	router, svc := newProjectRouter(t)
	svc.AssignTask(ctx, &models.CreateTaskRequest{Title: "Write docs", Assignee: "Bob", Deadline: "2025-01-01"})
	svc.AssignTask(ctx, &models.CreateTaskRequest{Title: "Review", Assignee: "Bob", Deadline: "2025-01-02"})
	svc.UpdateTaskStatus(ctx, "mock_2", models.TaskStatusCompleted)

	rec := serve(router, http.MethodGet, "/api/member/Bob", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.MemberSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "Bob", summary.Name)
	assert.Equal(t, 1, summary.CompletedTasks)
	assert.Equal(t, 2, summary.TotalTasks)
	assert.Len(t, summary.Tasks, 2)

	rec = serve(router, http.MethodGet, "/api/member/Nobody", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"tasks":[]`)
}
