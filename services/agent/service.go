package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trackup/db"
	"trackup/models"
	"trackup/services/llm"

	"go.uber.org/zap"
)

const DefaultMaxSteps = 10

var ErrStepBudgetExceeded = errors.New("agent step budget exceeded")

// TurnResult is the outcome of one user turn.
type TurnResult struct {
	Response string
	// ActionsTaken lists the names of the tools dispatched, in call order.
	ActionsTaken []string
}

type Service struct {
	model         llm.ChatModel
	registry      *Registry
	definitions   []llm.ToolDefinition
	conversations db.ConversationRepository
	maxSteps      int
	now           func() time.Time
	logger        *zap.Logger

	locksMu sync.Mutex
	// one-slot channels; holding the slot means owning the thread
	locks map[string]chan struct{}
}

type Option func(*Service)

func WithMaxSteps(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxSteps = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(model llm.ChatModel, registry *Registry, conversations db.ConversationRepository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		model:         model,
		registry:      registry,
		definitions:   registry.Definitions(),
		conversations: conversations,
		maxSteps:      DefaultMaxSteps,
		now:           time.Now,
		logger:        logger,
		locks:         make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Chat runs one user turn on a thread: it alternates model reasoning and tool
// dispatch until the model answers without tool calls. The thread history is
// saved on every exit path.
func (s *Service) Chat(ctx context.Context, threadID, query string) (result *TurnResult, err error) {
	unlock, err := s.lockThread(ctx, threadID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	log := s.logger.With(zap.String("thread_id", threadID))
	log.Info("Starting agent turn", zap.String("query", query))

	history, err := s.conversations.Load(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", threadID, err)
	}
	history = append(history, models.UserMessage(query))

	defer func() {
		// The turn may have been cancelled; the history is still worth keeping.
		if saveErr := s.conversations.Save(context.WithoutCancel(ctx), threadID, history); saveErr != nil {
			log.Error("Failed to save conversation", zap.Error(saveErr))
			if err == nil {
				result, err = nil, fmt.Errorf("failed to save conversation %s: %w", threadID, saveErr)
			}
		}
	}()

	actions := []string{}
	for step := 1; step <= s.maxSteps; step++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("agent turn interrupted: %w", ctxErr)
		}

		history = ensureSystemMessage(history, SystemPrompt(s.now()))

		reply, genErr := s.reason(ctx, history)
		if genErr != nil {
			log.Error("Model call failed", zap.Int("step", step), zap.Error(genErr))
			return nil, genErr
		}
		history = append(history, reply)

		if len(reply.ToolCalls) == 0 {
			log.Info("Agent turn completed",
				zap.Int("steps", step),
				zap.Strings("actions_taken", actions))
			return &TurnResult{Response: reply.Content, ActionsTaken: actions}, nil
		}

		history = append(history, s.dispatch(ctx, log, reply.ToolCalls)...)
		for _, call := range reply.ToolCalls {
			actions = append(actions, call.Name)
		}
	}

	log.Warn("Agent step budget exhausted", zap.Int("max_steps", s.maxSteps))
	return nil, fmt.Errorf("%w after %d steps", ErrStepBudgetExceeded, s.maxSteps)
}

// ensureSystemMessage leaves exactly one system message, at index 0,
// carrying the given prompt.
func ensureSystemMessage(history []models.Message, prompt string) []models.Message {
	out := make([]models.Message, 0, len(history)+1)
	out = append(out, models.SystemMessage(prompt))
	for _, msg := range history {
		if msg.Role != models.RoleSystem {
			out = append(out, msg)
		}
	}
	return out
}

func (s *Service) reason(ctx context.Context, history []models.Message) (models.Message, error) {
	reply, err := s.model.Generate(ctx, history, s.definitions)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to generate model reply: %w", err)
	}
	reply.Role = models.RoleAssistant
	return reply, nil
}

// dispatch runs the calls one at a time, in order, and returns one tool
// message per call.
func (s *Service) dispatch(ctx context.Context, log *zap.Logger, calls []models.ToolCall) []models.Message {
	results := make([]models.Message, 0, len(calls))
	for _, call := range calls {
		result := s.execute(ctx, call)

		fields := []zap.Field{
			zap.String("tool", call.Name),
			zap.String("tool_call_id", call.ID),
			zap.String("kind", string(result.Kind)),
		}
		if result.IsOK() {
			log.Info("Tool executed", fields...)
		} else {
			log.Warn("Tool reported a failure", append(fields, zap.String("message", result.Message))...)
		}

		results = append(results, models.ToolMessage(call, result.Message))
	}
	return results
}

func (s *Service) execute(ctx context.Context, call models.ToolCall) models.ToolResult {
	tool, ok := s.registry.Lookup(call.Name)
	if !ok {
		return models.Fail(models.ResultNotFound, fmt.Sprintf("Error: tool '%s' is not available.", call.Name))
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	input, err := json.Marshal(args)
	if err != nil {
		return models.Fail(models.ResultInvalid, fmt.Sprintf("Error: invalid arguments for %s: %v", call.Name, err))
	}

	return tool.Call(ctx, string(input))
}

// lockThread waits for exclusive use of a thread, giving up when ctx is done.
func (s *Service) lockThread(ctx context.Context, threadID string) (func(), error) {
	s.locksMu.Lock()
	lock, ok := s.locks[threadID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[threadID] = lock
	}
	s.locksMu.Unlock()

	unlock := func() { <-lock }

	select {
	case lock <- struct{}{}:
		return unlock, nil
	default:
	}

	select {
	case lock <- struct{}{}:
		return unlock, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("agent turn interrupted waiting for thread %s: %w", threadID, ctx.Err())
	}
}
