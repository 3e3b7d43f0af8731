package scheduler

import (
	"context"
	"testing"
	"time"

	"trackup/db"
	"trackup/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func seed(t *testing.T, repo *db.InMemoryProjectRepository, tasks ...models.Task) {
	t.Helper()
	for i := range tasks {
		require.NoError(t, repo.AddTask(context.Background(), &tasks[i]))
	}
}

func TestScanDeadlines(t *testing.T) {
	ctx := context.Background()
	repo := db.NewInMemoryProjectRepository()
	seed(t, repo,
		models.Task{Title: "Overdue", Assignee: "Bob", Deadline: "2025-01-10"},
		models.Task{Title: "Due today", Assignee: "Bob", Deadline: "2025-01-15"},
		models.Task{Title: "Due tonight", Assignee: "Ann", Deadline: "2025-01-15T20:00:00Z"},
		models.Task{Title: "Next month", Assignee: "Ann", Deadline: "2025-02-15 09:00"},
		models.Task{Title: "Done", Assignee: "Ann", Deadline: "2025-01-01", Status: models.TaskStatusCompleted},
		models.Task{Title: "Vague", Assignee: "Ann", Deadline: "next Friday"},
		models.Task{Title: "No deadline", Assignee: "Ann"},
	)

	s := New(repo, time.Minute, 24*time.Hour, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }

	notices, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Reminder: Task 'Overdue' for Bob is overdue (due 2025-01-10).",
		"Reminder: Task 'Due today' for Bob is due on 2025-01-15.",
		"Reminder: Task 'Due tonight' for Ann is due on 2025-01-15T20:00:00Z.",
		"Reminder: Task 'Vague' is due on next Friday.",
	}, notices)
}

func TestScanFiresDueReminders(t *testing.T) {
	ctx := context.Background()
	repo := db.NewInMemoryProjectRepository()
	seed(t, repo, models.Task{Title: "Ship release", Assignee: "Bob", Deadline: "2025-03-01"})

	require.NoError(t, repo.AddReminder(ctx, &models.Reminder{TaskID: "mock_1", RemindAt: "2025-01-15 09:00"}))
	require.NoError(t, repo.AddReminder(ctx, &models.Reminder{TaskID: "mock_1", RemindAt: "2025-01-20 09:00"}))
	require.NoError(t, repo.AddReminder(ctx, &models.Reminder{TaskID: "mock_9", RemindAt: "2025-01-01"}))

	s := New(repo, time.Minute, time.Hour, zap.NewNop())
	s.now = func() time.Time { return time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC) }

	notices, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Reminder: Task 'Ship release' (mock_1) for Bob, set for 2025-01-15 09:00."}, notices)

	pending, err := repo.GetPendingReminders(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "2025-01-20 09:00", pending[0].RemindAt)

	again, err := s.Scan(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestStartStop(t *testing.T) {
	ctx := context.Background()
	repo := db.NewInMemoryProjectRepository()
	seed(t, repo, models.Task{Title: "Ship", Assignee: "Bob", Deadline: "2025-03-01"})
	require.NoError(t, repo.AddReminder(ctx, &models.Reminder{TaskID: "mock_1", RemindAt: "2000-01-01"}))

	s := New(repo, 10*time.Millisecond, time.Hour, zap.NewNop())
	s.Start(ctx)
	s.Start(ctx)

	require.Eventually(t, func() bool {
		pending, err := repo.GetPendingReminders(ctx)
		return err == nil && len(pending) == 0
	}, time.Second, 10*time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestParseDeadline(t *testing.T) {
	due, ok := parseDeadline("2025-01-15", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC), due)

	due, ok = parseDeadline("2025-01-15 09:30", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC), due)

	_, ok = parseDeadline("tomorrow", time.UTC)
	assert.False(t, ok)
}
