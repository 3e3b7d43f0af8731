package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/tools/serpapi"
	"go.uber.org/zap"
)

// ErrMissingAPIKey is returned when no search key has been configured.
var ErrMissingAPIKey = errors.New("search API key is missing")

type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// SerpSearcher runs Google searches through SerpAPI.
type SerpSearcher struct {
	tool   *serpapi.Tool
	logger *zap.Logger
}

// NewSerpSearcher never fails: a missing key is reported on each Search call,
// so the server can start without one.
func NewSerpSearcher(apiKey string, logger *zap.Logger) *SerpSearcher {
	s := &SerpSearcher{logger: logger}
	if apiKey == "" {
		logger.Warn("SERPAPI_API_KEY not set, research tool will report an error")
		return s
	}

	tool, err := serpapi.New(serpapi.WithAPIKey(apiKey))
	if err != nil {
		logger.Error("Failed to create SerpAPI client", zap.Error(err))
		return s
	}
	s.tool = tool
	return s
}

func (s *SerpSearcher) Search(ctx context.Context, query string) (string, error) {
	if s.tool == nil {
		return "", ErrMissingAPIKey
	}

	s.logger.Info("Running web search", zap.String("query", query))

	result, err := s.tool.Call(ctx, query)
	if err != nil {
		return "", fmt.Errorf("serpapi search failed: %w", err)
	}
	return result, nil
}
