package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"trackup/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type ProjectRepository interface {
	CreateTeam(ctx context.Context, name string) error
	DeleteTeam(ctx context.Context, name string) error
	AddMember(ctx context.Context, teamName, userName string) error
	RemoveMember(ctx context.Context, teamName, userName string) error
	GetTeam(ctx context.Context, name string) (*models.Team, error)
	GetAllTeams(ctx context.Context) ([]*models.Team, error)

	AddTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error
	GetTaskByID(ctx context.Context, id string) (*models.Task, error)
	GetTasks(ctx context.Context, assignee string) ([]*models.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error

	AddReminder(ctx context.Context, reminder *models.Reminder) error
	GetPendingReminders(ctx context.Context) ([]*models.Reminder, error)
	MarkReminderFired(ctx context.Context, id string) error

	Close() error
}

const uniqueViolation = "23505"

type PostgresProjectRepository struct {
	db *sql.DB
}

func NewPostgresProjectRepository(databaseURL string) (*PostgresProjectRepository, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresProjectRepository{db: db}, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *PostgresProjectRepository) CreateTeam(ctx context.Context, name string) error {
	query := `INSERT INTO trackup.teams (name) VALUES ($1)`

	if _, err := r.db.ExecContext(ctx, query, name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("team %q: %w", name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create team: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) DeleteTeam(ctx context.Context, name string) error {
	query := `DELETE FROM trackup.teams WHERE name = $1`

	result, err := r.db.ExecContext(ctx, query, name)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	return expectRows(result, fmt.Sprintf("team %q", name))
}

func (r *PostgresProjectRepository) AddMember(ctx context.Context, teamName, userName string) error {
	if _, err := r.GetTeam(ctx, teamName); err != nil {
		return err
	}

	query := `
		INSERT INTO trackup.team_members (team_name, user_name, position)
		VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM trackup.team_members WHERE team_name = $1))`

	if _, err := r.db.ExecContext(ctx, query, teamName, userName); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %q of team %q: %w", userName, teamName, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to add member: %w", err)
	}
	return nil
}

func (r *PostgresProjectRepository) RemoveMember(ctx context.Context, teamName, userName string) error {
	query := `DELETE FROM trackup.team_members WHERE team_name = $1 AND user_name = $2`

	result, err := r.db.ExecContext(ctx, query, teamName, userName)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return expectRows(result, fmt.Sprintf("member %q of team %q", userName, teamName))
}

func (r *PostgresProjectRepository) GetTeam(ctx context.Context, name string) (*models.Team, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trackup.teams WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("team %q: %w", name, ErrNotFound)
	}

	query := `
		SELECT user_name FROM trackup.team_members
		WHERE team_name = $1
		ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query team members: %w", err)
	}
	defer rows.Close()

	team := &models.Team{Name: name, Members: []string{}}
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		team.Members = append(team.Members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over team members: %w", err)
	}

	return team, nil
}

func (r *PostgresProjectRepository) GetAllTeams(ctx context.Context) ([]*models.Team, error) {
	query := `
		SELECT t.name, m.user_name
		FROM trackup.teams t
		LEFT JOIN trackup.team_members m ON m.team_name = t.name
		ORDER BY t.created_at, t.name, m.position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.Team
	byName := make(map[string]*models.Team)
	for rows.Next() {
		var name string
		var member sql.NullString
		if err := rows.Scan(&name, &member); err != nil {
			return nil, fmt.Errorf("failed to scan team: %w", err)
		}

		team, ok := byName[name]
		if !ok {
			team = &models.Team{Name: name, Members: []string{}}
			byName[name] = team
			teams = append(teams, team)
		}
		if member.Valid {
			team.Members = append(team.Members, member.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over teams: %w", err)
	}

	return teams, nil
}

func (r *PostgresProjectRepository) AddTask(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	query := `
		INSERT INTO trackup.tasks (id, title, assignee, deadline, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	id := uuid.NewString()
	row := r.db.QueryRowContext(ctx, query, id, task.Title, task.Assignee, task.Deadline, string(task.Status))
	if err := row.Scan(&task.CreatedAt); err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.ID = id
	return nil
}

func (r *PostgresProjectRepository) DeleteTask(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM trackup.tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return expectRows(result, fmt.Sprintf("task %q", id))
}

func (r *PostgresProjectRepository) GetTaskByID(ctx context.Context, id string) (*models.Task, error) {
	query := `
		SELECT id, title, assignee, deadline, status, created_at
		FROM trackup.tasks
		WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (r *PostgresProjectRepository) GetTasks(ctx context.Context, assignee string) ([]*models.Task, error) {
	query := `
		SELECT id, title, assignee, deadline, status, created_at
		FROM trackup.tasks`

	var args []any
	if assignee != "" {
		query += " WHERE LOWER(assignee) = LOWER($1)"
		args = append(args, assignee)
	}
	query += " ORDER BY created_at"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over tasks: %w", err)
	}

	return tasks, nil
}

func (r *PostgresProjectRepository) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE trackup.tasks SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	return expectRows(result, fmt.Sprintf("task %q", id))
}

func (r *PostgresProjectRepository) AddReminder(ctx context.Context, reminder *models.Reminder) error {
	query := `
		INSERT INTO trackup.reminders (id, task_id, remind_at)
		VALUES ($1, $2, $3)
		RETURNING created_at`

	id := uuid.NewString()
	if err := r.db.QueryRowContext(ctx, query, id, reminder.TaskID, reminder.RemindAt).Scan(&reminder.Created); err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}

	reminder.ID = id
	return nil
}

func (r *PostgresProjectRepository) GetPendingReminders(ctx context.Context) ([]*models.Reminder, error) {
	query := `
		SELECT id, task_id, remind_at, fired, created_at
		FROM trackup.reminders
		WHERE NOT fired
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		rem := &models.Reminder{}
		if err := rows.Scan(&rem.ID, &rem.TaskID, &rem.RemindAt, &rem.Fired, &rem.Created); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over reminders: %w", err)
	}

	return reminders, nil
}

func (r *PostgresProjectRepository) MarkReminderFired(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE trackup.reminders SET fired = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder fired: %w", err)
	}
	return expectRows(result, fmt.Sprintf("reminder %q", id))
}

func (r *PostgresProjectRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var status string
	if err := row.Scan(&task.ID, &task.Title, &task.Assignee, &task.Deadline, &status, &task.CreatedAt); err != nil {
		return nil, err
	}
	task.Status = models.TaskStatus(status)
	return task, nil
}

func expectRows(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}

	return nil
}
