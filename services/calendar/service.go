package calendar

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type Calendar interface {
	// CreateEvent returns a human-readable confirmation of the created event.
	CreateEvent(ctx context.Context, event Event) (string, error)
}

type Event struct {
	Summary     string
	Description string
	Start       string
	End         string
}

// MockCalendar stands in for a real calendar when no credentials are set up.
type MockCalendar struct {
	logger *zap.Logger
}

func NewMockCalendar(logger *zap.Logger) *MockCalendar {
	logger.Warn("Calendar credentials not configured, running in mock mode")
	return &MockCalendar{logger: logger}
}

func (c *MockCalendar) CreateEvent(ctx context.Context, event Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("failed to create calendar event: %w", err)
	}

	c.logger.Info("Mock calendar event created",
		zap.String("summary", event.Summary),
		zap.String("start", event.Start))

	return fmt.Sprintf("Mock: Event '%s' created in Google Calendar for %s.", event.Summary, event.Start), nil
}
