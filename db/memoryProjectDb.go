package db

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"trackup/models"
)

// InMemoryProjectRepository is the fallback store used when no database is
// configured. Every method returns copies so callers never share state with it.
type InMemoryProjectRepository struct {
	mu sync.RWMutex

	teams     map[string][]string
	teamOrder []string
	tasks     []*models.Task
	reminders []*models.Reminder

	// Monotonic so ids are never reused after a delete.
	nextTaskID     int
	nextReminderID int

	now func() time.Time
}

func NewInMemoryProjectRepository() *InMemoryProjectRepository {
	return &InMemoryProjectRepository{
		teams: make(map[string][]string),
		now:   time.Now,
	}
}

func (r *InMemoryProjectRepository) CreateTeam(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[name]; ok {
		return fmt.Errorf("team %q: %w", name, ErrAlreadyExists)
	}
	r.teams[name] = []string{}
	r.teamOrder = append(r.teamOrder, name)
	return nil
}

func (r *InMemoryProjectRepository) DeleteTeam(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.teams[name]; !ok {
		return fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	delete(r.teams, name)
	r.teamOrder = slices.DeleteFunc(r.teamOrder, func(n string) bool { return n == name })
	return nil
}

func (r *InMemoryProjectRepository) AddMember(ctx context.Context, teamName, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.teams[teamName]
	if !ok {
		return fmt.Errorf("team %q: %w", teamName, ErrNotFound)
	}
	if slices.Contains(members, userName) {
		return fmt.Errorf("member %q of team %q: %w", userName, teamName, ErrAlreadyExists)
	}
	r.teams[teamName] = append(members, userName)
	return nil
}

func (r *InMemoryProjectRepository) RemoveMember(ctx context.Context, teamName, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.teams[teamName]
	if !ok || !slices.Contains(members, userName) {
		return fmt.Errorf("member %q of team %q: %w", userName, teamName, ErrNotFound)
	}
	r.teams[teamName] = slices.DeleteFunc(slices.Clone(members), func(m string) bool { return m == userName })
	return nil
}

func (r *InMemoryProjectRepository) GetTeam(ctx context.Context, name string) (*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.teams[name]
	if !ok {
		return nil, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}
	return &models.Team{Name: name, Members: slices.Clone(members)}, nil
}

func (r *InMemoryProjectRepository) GetAllTeams(ctx context.Context) ([]*models.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	teams := make([]*models.Team, 0, len(r.teamOrder))
	for _, name := range r.teamOrder {
		teams = append(teams, &models.Team{Name: name, Members: slices.Clone(r.teams[name])})
	}
	return teams, nil
}

func (r *InMemoryProjectRepository) AddTask(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextTaskID++
	task.ID = fmt.Sprintf("mock_%d", r.nextTaskID)
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = r.now()
	}

	stored := *task
	r.tasks = append(r.tasks, &stored)
	return nil
}

func (r *InMemoryProjectRepository) DeleteTask(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.tasks)
	r.tasks = slices.DeleteFunc(r.tasks, func(t *models.Task) bool { return t.ID == id })
	if len(r.tasks) == before {
		return fmt.Errorf("task %q: %w", id, ErrNotFound)
	}
	return nil
}

func (r *InMemoryProjectRepository) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tasks {
		if t.ID == id {
			task := *t
			return &task, nil
		}
	}
	return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
}

// GetTasks returns all tasks, or only those whose assignee matches
// (case-insensitively) when assignee is non-empty.
func (r *InMemoryProjectRepository) GetTasks(ctx context.Context, assignee string) ([]*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]*models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if assignee != "" && !strings.EqualFold(t.Assignee, assignee) {
			continue
		}
		task := *t
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

func (r *InMemoryProjectRepository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		if t.ID == id {
			t.Status = status
			return nil
		}
	}
	return fmt.Errorf("task %q: %w", id, ErrNotFound)
}

func (r *InMemoryProjectRepository) AddReminder(ctx context.Context, reminder *models.Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextReminderID++
	reminder.ID = fmt.Sprintf("reminder_%d", r.nextReminderID)
	if reminder.Created.IsZero() {
		reminder.Created = r.now()
	}

	stored := *reminder
	r.reminders = append(r.reminders, &stored)
	return nil
}

func (r *InMemoryProjectRepository) GetPendingReminders(ctx context.Context) ([]*models.Reminder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var pending []*models.Reminder
	for _, rem := range r.reminders {
		if rem.Fired {
			continue
		}
		reminder := *rem
		pending = append(pending, &reminder)
	}
	return pending, nil
}

func (r *InMemoryProjectRepository) MarkReminderFired(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rem := range r.reminders {
		if rem.ID == id {
			rem.Fired = true
			return nil
		}
	}
	return fmt.Errorf("reminder %q: %w", id, ErrNotFound)
}

func (r *InMemoryProjectRepository) Close() error {
	return nil
}
