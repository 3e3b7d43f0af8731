package taskindex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trackup/models"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	namespace = "trackup-tasks"

	// OpenAI ada-002 embedding dimension
	embeddingDimension = int32(1536)
)

// PineconeIndex stores one embedding per task so find_tasks can match on
// meaning instead of spelling.
type PineconeIndex struct {
	client    *pinecone.Client
	embedder  embeddings.Embedder
	indexName string
	logger    *zap.Logger

	mu   sync.Mutex
	conn *pinecone.IndexConnection
}

func NewPineconeIndex(apiKey, openaiAPIKey, indexName string, logger *zap.Logger) (*PineconeIndex, error) {
	logger.Info("Initializing Pinecone task index", zap.String("index", indexName))

	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	llm, err := openai.New(openai.WithToken(openaiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &PineconeIndex{
		client:    pc,
		embedder:  embedder,
		indexName: indexName,
		logger:    logger,
	}, nil
}

func (p *PineconeIndex) connection(ctx context.Context) (*pinecone.IndexConnection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn != nil {
		return p.conn, nil
	}

	idxDesc, err := p.client.DescribeIndex(ctx, p.indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	conn, err := p.client.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	p.conn = conn
	return conn, nil
}

func taskText(task *models.Task) string {
	return fmt.Sprintf("%s (assigned to %s, due %s)", task.Title, task.Assignee, task.Deadline)
}

func (p *PineconeIndex) Index(ctx context.Context, task *models.Task) error {
	values, err := p.embedder.EmbedQuery(ctx, taskText(task))
	if err != nil {
		return fmt.Errorf("failed to embed task %s: %w", task.ID, err)
	}

	metadata, err := structpb.NewStruct(map[string]any{
		"title":      task.Title,
		"assignee":   task.Assignee,
		"deadline":   task.Deadline,
		"status":     string(task.Status),
		"indexed_at": time.Now().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to create metadata struct for task %s: %w", task.ID, err)
	}

	conn, err := p.connection(ctx)
	if err != nil {
		return err
	}

	if _, err := conn.UpsertVectors(ctx, []*pinecone.Vector{{
		Id:       task.ID,
		Values:   &values,
		Metadata: metadata,
	}}); err != nil {
		return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
	}

	p.logger.Debug("Indexed task", zap.String("task_id", task.ID))
	return nil
}

func (p *PineconeIndex) Remove(ctx context.Context, taskID string) error {
	conn, err := p.connection(ctx)
	if err != nil {
		return err
	}

	if err := conn.DeleteVectorsById(ctx, []string{taskID}); err != nil {
		return fmt.Errorf("failed to delete task %s from index: %w", taskID, err)
	}
	return nil
}

func (p *PineconeIndex) Search(ctx context.Context, query string, limit int) ([]string, error) {
	values, err := p.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	conn, err := p.connection(ctx)
	if err != nil {
		return nil, err
	}

	result, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          values,
		TopK:            uint32(limit),
		IncludeValues:   false,
		IncludeMetadata: false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query task index: %w", err)
	}

	ids := make([]string, 0, len(result.Matches))
	for _, match := range result.Matches {
		if match.Vector != nil {
			ids = append(ids, match.Vector.Id)
		}
	}

	p.logger.Info("Task index search",
		zap.String("query", query),
		zap.Int("matches", len(ids)))

	return ids, nil
}

// EnsureIndex creates the serverless index when it does not exist yet and
// waits for it to become ready.
func (p *PineconeIndex) EnsureIndex(ctx context.Context) error {
	indexes, err := p.client.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == p.indexName {
			p.logger.Info("Index already exists", zap.String("index", p.indexName))
			return nil
		}
	}

	p.logger.Info("Creating Pinecone index", zap.String("index", p.indexName))
	dimension := embeddingDimension
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = p.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               p.indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "trackup"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := p.client.DescribeIndex(ctx, p.indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status.Ready {
			p.logger.Info("Index is ready", zap.String("index", p.indexName))
			return nil
		}

		p.logger.Info("Waiting for index to be ready", zap.String("index", p.indexName))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}

// Rebuild re-indexes every task, used by cmd/indextasks.
func (p *PineconeIndex) Rebuild(ctx context.Context, tasks []*models.Task) (int, error) {
	indexed := 0
	for _, task := range tasks {
		if err := p.Index(ctx, task); err != nil {
			return indexed, err
		}
		indexed++
	}
	return indexed, nil
}
