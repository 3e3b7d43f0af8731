package main

import (
	"context"
	"os"
	"os/signal"

	"trackup/config"
	"trackup/db"
	"trackup/services/taskindex"

	"go.uber.org/zap"
)

// indextasks rebuilds the Pinecone task index from the Postgres store.
func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting task indexing")

	cfg := config.Load()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DB_URL environment variable is required")
	}
	if cfg.PineconeAPIKey == "" {
		logger.Fatal("PINECONE_API_KEY environment variable is required")
	}
	if cfg.OpenAIAPIKey == "" {
		logger.Fatal("OPENAI_API_KEY environment variable is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	repo, err := db.NewPostgresProjectRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to initialize project database", zap.Error(err))
	}
	defer repo.Close()

	index, err := taskindex.NewPineconeIndex(cfg.PineconeAPIKey, cfg.OpenAIAPIKey, cfg.PineconeIndexName, logger)
	if err != nil {
		logger.Fatal("Failed to initialize Pinecone task index", zap.Error(err))
	}

	if err := index.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to ensure Pinecone index", zap.Error(err))
	}

	tasks, err := repo.GetTasks(ctx, "")
	if err != nil {
		logger.Fatal("Failed to retrieve tasks", zap.Error(err))
	}
	logger.Info("Retrieved tasks from database", zap.Int("count", len(tasks)))

	indexed, err := index.Rebuild(ctx, tasks)
	if err != nil {
		logger.Fatal("Indexing stopped early", zap.Int("indexed", indexed), zap.Error(err))
	}

	logger.Info("Task indexing completed", zap.Int("indexed", indexed))
}
