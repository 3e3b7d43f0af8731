package documents

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Sharer interface {
	Share(ctx context.Context, documentName string, recipients []string) (string, error)
}

type Share struct {
	Document   string
	Recipients []string
	SharedAt   time.Time
}

// LocalSharer records shares in process memory. It does not hand out links.
type LocalSharer struct {
	mu     sync.Mutex
	shares []Share
	logger *zap.Logger
}

func NewLocalSharer(logger *zap.Logger) *LocalSharer {
	return &LocalSharer{logger: logger}
}

func (s *LocalSharer) Share(ctx context.Context, documentName string, recipients []string) (string, error) {
	documentName = strings.TrimSpace(documentName)
	if documentName == "" {
		return "", fmt.Errorf("document name is required")
	}
	if len(recipients) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	s.mu.Lock()
	s.shares = append(s.shares, Share{
		Document:   documentName,
		Recipients: slices.Clone(recipients),
		SharedAt:   time.Now(),
	})
	s.mu.Unlock()

	s.logger.Info("Document shared",
		zap.String("document", documentName),
		zap.Strings("recipients", recipients))

	return fmt.Sprintf("Document '%s' shared with %s.", documentName, strings.Join(recipients, ", ")), nil
}

func (s *LocalSharer) Shares() []Share {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.shares)
}
