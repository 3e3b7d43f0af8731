package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trackup/db"
	"trackup/models"

	"go.uber.org/zap"
)

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02",
}

type Store interface {
	GetTasks(ctx context.Context, assignee string) ([]*models.Task, error)
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	GetPendingReminders(ctx context.Context) ([]*models.Reminder, error)
	MarkReminderFired(ctx context.Context, id string) error
}

// Scheduler periodically looks for tasks that are due soon and for reminders
// whose time has come, and announces them in the log.
type Scheduler struct {
	store    Store
	interval time.Duration
	window   time.Duration
	now      func() time.Time
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(store Store, interval, window time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		interval: interval,
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
}

// Start launches the scan loop. It is a no-op when already running.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx, s.done)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("window", s.window))
}

// Stop cancels the loop and waits for an in-flight scan to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("Deadline scan failed", zap.Error(err))
			}
		}
	}
}

// Scan checks deadlines and reminders once and returns the notices it sent.
func (s *Scheduler) Scan(ctx context.Context) ([]string, error) {
	now := s.now()
	s.logger.Debug("Checking deadlines", zap.Time("now", now))

	tasks, err := s.store.GetTasks(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	var notices []string
	for _, task := range tasks {
		if notice := s.deadlineNotice(task, now); notice != "" {
			s.logger.Info(notice,
				zap.String("task_id", task.ID),
				zap.String("assignee", task.Assignee))
			notices = append(notices, notice)
		}
	}

	fired, err := s.fireReminders(ctx, now)
	return append(notices, fired...), err
}

func (s *Scheduler) deadlineNotice(task *models.Task, now time.Time) string {
	if task.Deadline == "" || task.Status == models.TaskStatusCompleted {
		return ""
	}

	due, ok := parseDeadline(task.Deadline, now.Location())
	if !ok {
		return fmt.Sprintf("Reminder: Task '%s' is due on %s.", task.Title, task.Deadline)
	}

	switch {
	case now.After(due):
		return fmt.Sprintf("Reminder: Task '%s' for %s is overdue (due %s).", task.Title, task.Assignee, task.Deadline)
	case due.Sub(now) <= s.window:
		return fmt.Sprintf("Reminder: Task '%s' for %s is due on %s.", task.Title, task.Assignee, task.Deadline)
	}
	return ""
}

func (s *Scheduler) fireReminders(ctx context.Context, now time.Time) ([]string, error) {
	reminders, err := s.store.GetPendingReminders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}

	var notices []string
	for _, reminder := range reminders {
		if at, ok := parseDeadline(reminder.RemindAt, now.Location()); ok && at.After(now) {
			continue
		}

		task, err := s.store.GetTaskByID(ctx, reminder.TaskID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			s.logger.Info("Dropping reminder for deleted task",
				zap.String("reminder_id", reminder.ID),
				zap.String("task_id", reminder.TaskID))
		case err != nil:
			return notices, fmt.Errorf("failed to load task %s for reminder %s: %w", reminder.TaskID, reminder.ID, err)
		default:
			notice := fmt.Sprintf("Reminder: Task '%s' (%s) for %s, set for %s.",
				task.Title, task.ID, task.Assignee, reminder.RemindAt)
			s.logger.Info(notice, zap.String("reminder_id", reminder.ID))
			notices = append(notices, notice)
		}

		if err := s.store.MarkReminderFired(ctx, reminder.ID); err != nil {
			return notices, fmt.Errorf("failed to mark reminder %s fired: %w", reminder.ID, err)
		}
	}
	return notices, nil
}

// parseDeadline accepts the formats the assistant writes. A bare date is due
// at the end of that day.
func parseDeadline(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range deadlineLayouts {
		t, err := time.ParseInLocation(layout, raw, loc)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}
	return time.Time{}, false
}
