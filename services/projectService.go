package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trackup/db"
	"trackup/models"
	"trackup/services/calendar"
	"trackup/services/taskindex"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const defaultFindLimit = 10

// ProjectService owns team, task and reminder operations. Expected failures
// come back as tagged results rather than Go errors so the agent can relay
// them to the user.
type ProjectService struct {
	repo     db.ProjectRepository
	calendar calendar.Calendar
	index    taskindex.Index
	logger   *zap.Logger
}

func NewProjectService(repo db.ProjectRepository, cal calendar.Calendar, index taskindex.Index, logger *zap.Logger) *ProjectService {
	return &ProjectService{
		repo:     repo,
		calendar: cal,
		index:    index,
		logger:   logger,
	}
}

func (s *ProjectService) CreateTeam(ctx context.Context, teamName string) models.ToolResult {
	teamName = strings.TrimSpace(teamName)
	if teamName == "" {
		return models.Fail(models.ResultInvalid, "Team name is required.")
	}

	if err := s.repo.CreateTeam(ctx, teamName); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			return models.Fail(models.ResultConflict, fmt.Sprintf("Team '%s' already exists.", teamName))
		}
		return s.failed("creating team", err)
	}

	s.logger.Info("Team created", zap.String("team", teamName))
	return models.OK(fmt.Sprintf("Team '%s' created successfully.", teamName))
}

func (s *ProjectService) AddMember(ctx context.Context, teamName, userName string) models.ToolResult {
	teamName, userName = strings.TrimSpace(teamName), strings.TrimSpace(userName)
	if teamName == "" || userName == "" {
		return models.Fail(models.ResultInvalid, "Both a team name and a user name are required.")
	}

	if err := s.repo.AddMember(ctx, teamName, userName); err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			return models.Fail(models.ResultNotFound, fmt.Sprintf("Team '%s' does not exist.", teamName))
		case errors.Is(err, db.ErrAlreadyExists):
			return models.Fail(models.ResultConflict, fmt.Sprintf("User '%s' is already in team '%s'.", userName, teamName))
		}
		return s.failed("adding member", err)
	}

	s.logger.Info("Member added", zap.String("team", teamName), zap.String("user", userName))
	return models.OK(fmt.Sprintf("User '%s' added to team '%s'.", userName, teamName))
}

func (s *ProjectService) DeleteTeam(ctx context.Context, teamName string) models.ToolResult {
	if err := s.repo.DeleteTeam(ctx, teamName); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, fmt.Sprintf("Team '%s' not found.", teamName))
		}
		return s.failed("deleting team", err)
	}

	s.logger.Info("Team deleted", zap.String("team", teamName))
	return models.OK(fmt.Sprintf("Team '%s' deleted.", teamName))
}

func (s *ProjectService) RemoveMember(ctx context.Context, teamName, userName string) models.ToolResult {
	if err := s.repo.RemoveMember(ctx, teamName, userName); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, "Member or team not found.")
		}
		return s.failed("removing member", err)
	}

	s.logger.Info("Member removed", zap.String("team", teamName), zap.String("user", userName))
	return models.OK(fmt.Sprintf("User '%s' removed from '%s'.", userName, teamName))
}

func (s *ProjectService) GetAllTeams(ctx context.Context) ([]*models.Team, error) {
	teams, err := s.repo.GetAllTeams(ctx)
	if err != nil {
		s.logger.Error("Failed to get teams", zap.Error(err))
		return nil, fmt.Errorf("failed to get teams: %w", err)
	}
	return teams, nil
}

func (s *ProjectService) ListTeams(ctx context.Context) models.ToolResult {
	teams, err := s.GetAllTeams(ctx)
	if err != nil {
		return s.failed("listing teams", err)
	}

	if len(teams) == 0 {
		return models.OK("No teams exist yet.")
	}

	lines := lo.Map(teams, func(team *models.Team, _ int) string {
		if len(team.Members) == 0 {
			return fmt.Sprintf("%s: (no members)", team.Name)
		}
		return fmt.Sprintf("%s: %s", team.Name, strings.Join(team.Members, ", "))
	})
	return models.OK(strings.Join(lines, "\n"))
}

// AssignTask stores the task and mirrors it to the calendar. A calendar
// failure does not undo the stored task.
func (s *ProjectService) AssignTask(ctx context.Context, req *models.CreateTaskRequest) models.ToolResult {
	if problem := validateCreateTask(req); problem != "" {
		return models.Fail(models.ResultInvalid, problem)
	}

	task := &models.Task{
		Title:    strings.TrimSpace(req.Title),
		Assignee: strings.TrimSpace(req.Assignee),
		Deadline: strings.TrimSpace(req.Deadline),
		Status:   models.TaskStatusPending,
	}

	if err := s.repo.AddTask(ctx, task); err != nil {
		return s.failed("adding task", err)
	}
	s.logger.Info("Task added",
		zap.String("task_id", task.ID),
		zap.String("assignee", task.Assignee),
		zap.String("deadline", task.Deadline))

	if err := s.index.Index(ctx, task); err != nil {
		s.logger.Warn("Failed to index task", zap.String("task_id", task.ID), zap.Error(err))
	}

	dbResult := fmt.Sprintf("Task '%s' added with ID: %s", task.Title, task.ID)

	calResult, err := s.calendar.CreateEvent(ctx, calendar.Event{
		Summary: "Task: " + task.Title,
		Start:   task.Deadline,
		End:     task.Deadline,
	})
	if err != nil {
		s.logger.Error("Failed to create calendar event", zap.String("task_id", task.ID), zap.Error(err))
		calResult = fmt.Sprintf("Error creating calendar event: %v", err)
	}

	return models.OK(fmt.Sprintf("%s. %s", dbResult, calResult))
}

func validateCreateTask(req *models.CreateTaskRequest) string {
	switch {
	case req == nil:
		return "Task details are required."
	case strings.TrimSpace(req.Title) == "":
		return "A task description is required."
	case strings.TrimSpace(req.Assignee) == "":
		return "An assignee is required."
	}
	return ""
}

func (s *ProjectService) DeleteTask(ctx context.Context, taskID string) models.ToolResult {
	if err := s.repo.DeleteTask(ctx, taskID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, "Task not found.")
		}
		return s.failed("deleting task", err)
	}

	if err := s.index.Remove(ctx, taskID); err != nil {
		s.logger.Warn("Failed to remove task from index", zap.String("task_id", taskID), zap.Error(err))
	}

	s.logger.Info("Task deleted", zap.String("task_id", taskID))
	return models.OK(fmt.Sprintf("Task %s deleted.", taskID))
}

func (s *ProjectService) UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus) models.ToolResult {
	if !status.Valid() {
		return models.Fail(models.ResultInvalid,
			fmt.Sprintf("Invalid status '%s'. Use one of: pending, in_progress, completed.", status))
	}

	if err := s.repo.UpdateTaskStatus(ctx, taskID, status); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, "Task not found.")
		}
		return s.failed("updating task", err)
	}

	s.logger.Info("Task status updated", zap.String("task_id", taskID), zap.String("status", string(status)))
	return models.OK(fmt.Sprintf("Task %s marked as %s.", taskID, status))
}

// CheckProgress reports per-member completion ratios for a team. Assignees
// match members case-insensitively, as in PerformanceInsights.
func (s *ProjectService) CheckProgress(ctx context.Context, teamName string) models.ToolResult {
	team, err := s.repo.GetTeam(ctx, teamName)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, fmt.Sprintf("Team '%s' not found.", teamName))
		}
		return s.failed("checking progress", err)
	}

	if len(team.Members) == 0 {
		return models.OK(fmt.Sprintf("Team '%s' has no members.", teamName))
	}

	allTasks, err := s.repo.GetTasks(ctx, "")
	if err != nil {
		return s.failed("checking progress", err)
	}

	var report []string
	for _, member := range team.Members {
		memberTasks := lo.Filter(allTasks, func(t *models.Task, _ int) bool {
			return strings.EqualFold(t.Assignee, member)
		})
		if len(memberTasks) == 0 {
			report = append(report, fmt.Sprintf("**%s**: No tasks assigned (0/0)", member))
			continue
		}

		completed := countCompleted(memberTasks)
		report = append(report, fmt.Sprintf("**%s**: %d/%d tasks completed", member, completed, len(memberTasks)))
		for _, t := range memberTasks {
			icon := "⏳"
			if t.Status == models.TaskStatusCompleted {
				icon = "✅"
			}
			report = append(report, fmt.Sprintf("- %s (%s %s)", t.Title, icon, t.Status))
		}
	}

	return models.OK(strings.Join(report, "\n"))
}

func (s *ProjectService) PerformanceInsights(ctx context.Context, userID string) models.ToolResult {
	tasks, err := s.repo.GetTasks(ctx, userID)
	if err != nil {
		return s.failed("getting performance insights", err)
	}

	if len(tasks) == 0 {
		return models.OK(fmt.Sprintf("No tasks found for user %s.", userID))
	}

	return models.OK(fmt.Sprintf("User %s has completed %d out of %d tasks.", userID, countCompleted(tasks), len(tasks)))
}

func (s *ProjectService) SetReminder(ctx context.Context, taskID, remindAt string) models.ToolResult {
	remindAt = strings.TrimSpace(remindAt)
	if remindAt == "" {
		return models.Fail(models.ResultInvalid, "A reminder time is required.")
	}

	if _, err := s.repo.GetTaskByID(ctx, taskID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return models.Fail(models.ResultNotFound, fmt.Sprintf("Task %s not found.", taskID))
		}
		return s.failed("setting reminder", err)
	}

	reminder := &models.Reminder{TaskID: taskID, RemindAt: remindAt}
	if err := s.repo.AddReminder(ctx, reminder); err != nil {
		return s.failed("setting reminder", err)
	}

	s.logger.Info("Reminder set",
		zap.String("reminder_id", reminder.ID),
		zap.String("task_id", taskID),
		zap.String("remind_at", remindAt))
	return models.OK(fmt.Sprintf("Reminder set for task %s at %s.", taskID, remindAt))
}

// FindTasks searches task titles and lists the matches with their IDs so
// the agent can follow up with delete_task or set_reminder.
func (s *ProjectService) FindTasks(ctx context.Context, query, assignee string) models.ToolResult {
	var (
		tasks []*models.Task
		err   error
	)

	if strings.TrimSpace(query) == "" {
		tasks, err = s.repo.GetTasks(ctx, assignee)
		if err != nil {
			return s.failed("finding tasks", err)
		}
	} else {
		tasks, err = s.searchTasks(ctx, query, assignee)
		if err != nil {
			return s.failed("finding tasks", err)
		}
	}

	if len(tasks) == 0 {
		return models.OK("No matching tasks found.")
	}

	lines := lo.Map(tasks, func(t *models.Task, _ int) string {
		return fmt.Sprintf("%s | %s | %s | %s | %s", t.ID, t.Title, t.Assignee, t.Deadline, t.Status)
	})
	return models.OK("id | title | assignee | deadline | status\n" + strings.Join(lines, "\n"))
}

func (s *ProjectService) searchTasks(ctx context.Context, query, assignee string) ([]*models.Task, error) {
	ids, err := s.index.Search(ctx, query, defaultFindLimit)
	if err != nil {
		return nil, err
	}

	var tasks []*models.Task
	for _, id := range ids {
		task, err := s.repo.GetTaskByID(ctx, id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				// stale index entry
				continue
			}
			return nil, err
		}
		if assignee != "" && !strings.EqualFold(task.Assignee, assignee) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *ProjectService) MemberSummary(ctx context.Context, memberName string) (*models.MemberSummary, error) {
	tasks, err := s.repo.GetTasks(ctx, memberName)
	if err != nil {
		s.logger.Error("Failed to get member tasks", zap.String("member", memberName), zap.Error(err))
		return nil, fmt.Errorf("failed to get tasks for %s: %w", memberName, err)
	}

	return &models.MemberSummary{
		Name:           memberName,
		CompletedTasks: countCompleted(tasks),
		TotalTasks:     len(tasks),
		Tasks:          tasks,
	}, nil
}

func (s *ProjectService) failed(action string, err error) models.ToolResult {
	s.logger.Error("Project store operation failed", zap.String("action", action), zap.Error(err))
	return models.Fail(models.ResultFailed, fmt.Sprintf("Error %s: %v", action, err))
}

func countCompleted(tasks []*models.Task) int {
	return lo.CountBy(tasks, func(t *models.Task) bool {
		return t.Status == models.TaskStatusCompleted
	})
}
