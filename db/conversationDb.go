package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"trackup/models"

	_ "github.com/lib/pq"
)

type ConversationRepository interface {
	// Load returns the history of a thread, or an empty slice for a new thread.
	Load(ctx context.Context, threadID string) ([]models.Message, error)
	Save(ctx context.Context, threadID string, messages []models.Message) error
}

type InMemoryConversationRepository struct {
	mu      sync.RWMutex
	threads map[string][]models.Message
}

func NewInMemoryConversationRepository() *InMemoryConversationRepository {
	return &InMemoryConversationRepository{threads: make(map[string][]models.Message)}
}

func (r *InMemoryConversationRepository) Load(ctx context.Context, threadID string) ([]models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneMessages(r.threads[threadID]), nil
}

func (r *InMemoryConversationRepository) Save(ctx context.Context, threadID string, messages []models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.threads[threadID] = cloneMessages(messages)
	return nil
}

func cloneMessages(messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	for i, msg := range messages {
		msg.ToolCalls = slices.Clone(msg.ToolCalls)
		out[i] = msg
	}
	return out
}

type PostgresConversationRepository struct {
	db *sql.DB
}

func NewPostgresConversationRepository(databaseURL string) (*PostgresConversationRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresConversationRepository{db: db}, nil
}

func (r *PostgresConversationRepository) Load(ctx context.Context, threadID string) ([]models.Message, error) {
	query := `
		SELECT messages
		FROM trackup.conversations
		WHERE thread_id = $1`

	var raw []byte
	err := r.db.QueryRowContext(ctx, query, threadID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.Message{}, nil
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var messages []models.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode conversation %s: %w", threadID, err)
	}

	return messages, nil
}

func (r *PostgresConversationRepository) Save(ctx context.Context, threadID string, messages []models.Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %s: %w", threadID, err)
	}

	query := `
		INSERT INTO trackup.conversations (thread_id, messages)
		VALUES ($1, $2)
		ON CONFLICT (thread_id) DO UPDATE
		SET messages = EXCLUDED.messages, updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, threadID, raw); err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return nil
}

func (r *PostgresConversationRepository) Close() error {
	return r.db.Close()
}
