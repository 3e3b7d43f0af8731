package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"trackup/models"
	"trackup/services/agent"
	"trackup/services/llm"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	unauthorizedReply  = "Error: Unauthorized. Please check your API Key in the .env file."
	rateLimitedReply   = "Error: Rate limit exceeded. Please wait a moment before trying again."
	stepBudgetReply    = "Sorry, I could not finish that request within the allowed number of steps."
	genericErrorPrefix = "Sorry, I encountered an error: "
)

// Chatter runs one conversational turn.
type Chatter interface {
	Chat(ctx context.Context, threadID, query string) (*agent.TurnResult, error)
}

type AgentHandler struct {
	chatter Chatter
	timeout time.Duration
	logger  *zap.Logger
}

func NewAgentHandler(chatter Chatter, timeout time.Duration, logger *zap.Logger) *AgentHandler {
	return &AgentHandler{chatter: chatter, timeout: timeout, logger: logger}
}

func (h *AgentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/chat", h.Chat).Methods("POST")
}

// Chat answers 200 for anything the assistant can explain to the user; only
// malformed requests get an error status.
func (h *AgentHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Failed to decode chat request", zap.Error(err))
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	req.UserID = strings.TrimSpace(req.UserID)
	if req.Query == "" || req.UserID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Both query and user_id are required")
		return
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	result, err := h.chatter.Chat(ctx, req.UserID, req.Query)
	if err != nil {
		h.logger.Error("Chat turn failed", zap.String("user_id", req.UserID), zap.Error(err))
		h.writeJSONResponse(w, http.StatusOK, models.ChatResponse{
			Response:     errorReply(err),
			ActionsTaken: []string{},
		})
		return
	}

	h.writeJSONResponse(w, http.StatusOK, models.ChatResponse{
		Response:     result.Response,
		ActionsTaken: result.ActionsTaken,
	})
}

func errorReply(err error) string {
	switch {
	case errors.Is(err, llm.ErrUnauthorized):
		return unauthorizedReply
	case errors.Is(err, llm.ErrRateLimited):
		return rateLimitedReply
	case errors.Is(err, agent.ErrStepBudgetExceeded):
		return stepBudgetReply
	}

	// Errors that skipped the model client still get the text check.
	switch classified := llm.ClassifyError(err); {
	case errors.Is(classified, llm.ErrUnauthorized):
		return unauthorizedReply
	case errors.Is(classified, llm.ErrRateLimited):
		return rateLimitedReply
	}
	return genericErrorPrefix + err.Error()
}

func (h *AgentHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *AgentHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
