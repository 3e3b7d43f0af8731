package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"trackup/models"
	"trackup/services"
	"trackup/services/documents"
	"trackup/services/search"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
)

const missingSearchKeyMessage = "Error: SerpAPI Key is missing. Please add SERPAPI_API_KEY to the .env file."

// DefaultTools returns the full TrackUp tool set in the order it is offered
// to the model.
func DefaultTools(projects *services.ProjectService, sharer documents.Sharer, searcher search.Searcher) []AgentTool {
	return []AgentTool{
		NewAssignTaskTool(projects),
		NewShareDocumentTool(sharer),
		NewCheckProgressTool(projects),
		NewPerformanceInsightsTool(projects),
		NewSetReminderTool(projects),
		NewCreateTeamTool(projects),
		NewAddTeamMemberTool(projects),
		NewResearchTool(searcher),
		NewDeleteTeamTool(projects),
		NewRemoveTeamMemberTool(projects),
		NewDeleteTaskTool(projects),
		NewListTeamsTool(projects),
		NewFindTasksTool(projects),
		NewUpdateTaskStatusTool(projects),
	}
}

func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		Anonymous:                 true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	return schema
}

func parseInput[T any](toolName, input string) (T, *models.ToolResult) {
	var params T
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		result := models.Fail(models.ResultInvalid, fmt.Sprintf("Error: invalid arguments for %s: %v", toolName, err))
		return params, &result
	}
	return params, nil
}

func required(field, value string) *models.ToolResult {
	if strings.TrimSpace(value) != "" {
		return nil
	}
	result := models.Fail(models.ResultInvalid, fmt.Sprintf("Error: '%s' is required.", field))
	return &result
}

type AssignTaskToolInput struct {
	TaskDescription string `json:"task_description" jsonschema:"description=What needs to be done"`
	Assignee        string `json:"assignee" jsonschema:"description=Name of the team member who owns the task"`
	Deadline        string `json:"deadline" jsonschema:"description=Due date such as 2025-01-31"`
}

type AssignTaskTool struct {
	projects *services.ProjectService
}

func NewAssignTaskTool(projects *services.ProjectService) AssignTaskTool {
	return AssignTaskTool{projects: projects}
}

func (a AssignTaskTool) Name() string { return "assign_task" }

func (a AssignTaskTool) Description() string {
	return "Assigns a task to a team member with a deadline and syncs to calendar."
}

func (a AssignTaskTool) Schema() *jsonschema.Schema { return generateSchema[AssignTaskToolInput]() }

func (a AssignTaskTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[AssignTaskToolInput](a.Name(), input)
	if bad != nil {
		return *bad
	}
	if bad := required("deadline", params.Deadline); bad != nil {
		return *bad
	}

	return a.projects.AssignTask(ctx, &models.CreateTaskRequest{
		Title:    params.TaskDescription,
		Assignee: params.Assignee,
		Deadline: params.Deadline,
	})
}

type ShareDocumentToolInput struct {
	DocumentName string   `json:"document_name" jsonschema:"description=Name of the document to share"`
	Recipients   []string `json:"recipients" jsonschema:"description=People who should receive the document"`
}

type ShareDocumentTool struct {
	sharer documents.Sharer
}

func NewShareDocumentTool(sharer documents.Sharer) ShareDocumentTool {
	return ShareDocumentTool{sharer: sharer}
}

func (s ShareDocumentTool) Name() string { return "share_document" }

func (s ShareDocumentTool) Description() string {
	return "Shares a document with specified recipients."
}

func (s ShareDocumentTool) Schema() *jsonschema.Schema { return generateSchema[ShareDocumentToolInput]() }

func (s ShareDocumentTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[ShareDocumentToolInput](s.Name(), input)
	if bad != nil {
		return *bad
	}
	if bad := required("document_name", params.DocumentName); bad != nil {
		return *bad
	}

	recipients := lo.Compact(lo.Map(params.Recipients, func(r string, _ int) string { return strings.TrimSpace(r) }))
	if len(recipients) == 0 {
		return models.Fail(models.ResultInvalid, "Error: at least one recipient is required.")
	}

	result, err := s.sharer.Share(ctx, params.DocumentName, recipients)
	if err != nil {
		return models.Fail(models.ResultFailed, fmt.Sprintf("Error sharing document: %v", err))
	}
	return models.OK(result)
}

type CheckProgressToolInput struct {
	TeamName string `json:"team_name" jsonschema:"description=Name of the team to report on"`
}

type CheckProgressTool struct {
	projects *services.ProjectService
}

func NewCheckProgressTool(projects *services.ProjectService) CheckProgressTool {
	return CheckProgressTool{projects: projects}
}

func (c CheckProgressTool) Name() string { return "check_progress" }

func (c CheckProgressTool) Description() string {
	return "Checks the progress of a team by listing tasks for all its members. " +
		"Returns a detailed status including task assignment, completion status, and ratios."
}

func (c CheckProgressTool) Schema() *jsonschema.Schema { return generateSchema[CheckProgressToolInput]() }

func (c CheckProgressTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[CheckProgressToolInput](c.Name(), input)
	if bad != nil {
		return *bad
	}
	return c.projects.CheckProgress(ctx, params.TeamName)
}

type PerformanceInsightsToolInput struct {
	UserID string `json:"user_id" jsonschema:"description=Name of the team member"`
}

type PerformanceInsightsTool struct {
	projects *services.ProjectService
}

func NewPerformanceInsightsTool(projects *services.ProjectService) PerformanceInsightsTool {
	return PerformanceInsightsTool{projects: projects}
}

func (p PerformanceInsightsTool) Name() string { return "get_performance_insights" }

func (p PerformanceInsightsTool) Description() string {
	return "Retrieves performance insights for a user."
}

func (p PerformanceInsightsTool) Schema() *jsonschema.Schema {
	return generateSchema[PerformanceInsightsToolInput]()
}

func (p PerformanceInsightsTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[PerformanceInsightsToolInput](p.Name(), input)
	if bad != nil {
		return *bad
	}
	if bad := required("user_id", params.UserID); bad != nil {
		return *bad
	}
	return p.projects.PerformanceInsights(ctx, params.UserID)
}

type SetReminderToolInput struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task to be reminded about"`
	Time   string `json:"time" jsonschema:"description=When to send the reminder such as 2025-01-30 09:00"`
}

type SetReminderTool struct {
	projects *services.ProjectService
}

func NewSetReminderTool(projects *services.ProjectService) SetReminderTool {
	return SetReminderTool{projects: projects}
}

func (s SetReminderTool) Name() string { return "set_reminder" }

func (s SetReminderTool) Description() string { return "Sets a smart deadline reminder." }

func (s SetReminderTool) Schema() *jsonschema.Schema { return generateSchema[SetReminderToolInput]() }

func (s SetReminderTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[SetReminderToolInput](s.Name(), input)
	if bad != nil {
		return *bad
	}
	return s.projects.SetReminder(ctx, params.TaskID, params.Time)
}

type TeamToolInput struct {
	TeamName string `json:"team_name" jsonschema:"description=Name of the team"`
}

type CreateTeamTool struct {
	projects *services.ProjectService
}

func NewCreateTeamTool(projects *services.ProjectService) CreateTeamTool {
	return CreateTeamTool{projects: projects}
}

func (c CreateTeamTool) Name() string { return "create_team" }

func (c CreateTeamTool) Description() string { return "Creates a new team." }

func (c CreateTeamTool) Schema() *jsonschema.Schema { return generateSchema[TeamToolInput]() }

func (c CreateTeamTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[TeamToolInput](c.Name(), input)
	if bad != nil {
		return *bad
	}
	return c.projects.CreateTeam(ctx, params.TeamName)
}

type TeamMemberToolInput struct {
	TeamName string `json:"team_name" jsonschema:"description=Name of the team"`
	UserName string `json:"user_name" jsonschema:"description=Name of the team member"`
}

type AddTeamMemberTool struct {
	projects *services.ProjectService
}

func NewAddTeamMemberTool(projects *services.ProjectService) AddTeamMemberTool {
	return AddTeamMemberTool{projects: projects}
}

func (a AddTeamMemberTool) Name() string { return "add_team_member" }

func (a AddTeamMemberTool) Description() string { return "Adds a user to a team." }

func (a AddTeamMemberTool) Schema() *jsonschema.Schema { return generateSchema[TeamMemberToolInput]() }

func (a AddTeamMemberTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[TeamMemberToolInput](a.Name(), input)
	if bad != nil {
		return *bad
	}
	return a.projects.AddMember(ctx, params.TeamName, params.UserName)
}

type ResearchToolInput struct {
	Query string `json:"query" jsonschema:"description=The question to search for"`
}

type ResearchTool struct {
	searcher search.Searcher
}

func NewResearchTool(searcher search.Searcher) ResearchTool {
	return ResearchTool{searcher: searcher}
}

func (r ResearchTool) Name() string { return "research_technical_question" }

func (r ResearchTool) Description() string {
	return "Researches a technical question or project-related topic using Google Search. " +
		"Use this tool when the user asks for technical help, documentation, libraries, or best practices."
}

func (r ResearchTool) Schema() *jsonschema.Schema { return generateSchema[ResearchToolInput]() }

func (r ResearchTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[ResearchToolInput](r.Name(), input)
	if bad != nil {
		return *bad
	}
	if bad := required("query", params.Query); bad != nil {
		return *bad
	}

	result, err := r.searcher.Search(ctx, params.Query)
	if err != nil {
		if errors.Is(err, search.ErrMissingAPIKey) {
			return models.Fail(models.ResultUnavailable, missingSearchKeyMessage)
		}
		return models.Fail(models.ResultFailed, fmt.Sprintf("Error performing search: %v", err))
	}
	return models.OK(result)
}

type DeleteTeamTool struct {
	projects *services.ProjectService
}

func NewDeleteTeamTool(projects *services.ProjectService) DeleteTeamTool {
	return DeleteTeamTool{projects: projects}
}

func (d DeleteTeamTool) Name() string { return "delete_team" }

func (d DeleteTeamTool) Description() string { return "Deletes a team." }

func (d DeleteTeamTool) Schema() *jsonschema.Schema { return generateSchema[TeamToolInput]() }

func (d DeleteTeamTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[TeamToolInput](d.Name(), input)
	if bad != nil {
		return *bad
	}
	return d.projects.DeleteTeam(ctx, params.TeamName)
}

type RemoveTeamMemberTool struct {
	projects *services.ProjectService
}

func NewRemoveTeamMemberTool(projects *services.ProjectService) RemoveTeamMemberTool {
	return RemoveTeamMemberTool{projects: projects}
}

func (r RemoveTeamMemberTool) Name() string { return "remove_team_member" }

func (r RemoveTeamMemberTool) Description() string { return "Removes a user from a team." }

func (r RemoveTeamMemberTool) Schema() *jsonschema.Schema { return generateSchema[TeamMemberToolInput]() }

func (r RemoveTeamMemberTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[TeamMemberToolInput](r.Name(), input)
	if bad != nil {
		return *bad
	}
	return r.projects.RemoveMember(ctx, params.TeamName, params.UserName)
}

type TaskIDToolInput struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task"`
}

type DeleteTaskTool struct {
	projects *services.ProjectService
}

func NewDeleteTaskTool(projects *services.ProjectService) DeleteTaskTool {
	return DeleteTaskTool{projects: projects}
}

func (d DeleteTaskTool) Name() string { return "delete_task" }

func (d DeleteTaskTool) Description() string { return "Deletes a task by its ID." }

func (d DeleteTaskTool) Schema() *jsonschema.Schema { return generateSchema[TaskIDToolInput]() }

func (d DeleteTaskTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[TaskIDToolInput](d.Name(), input)
	if bad != nil {
		return *bad
	}
	return d.projects.DeleteTask(ctx, params.TaskID)
}

type ListTeamsToolInput struct{}

type ListTeamsTool struct {
	projects *services.ProjectService
}

func NewListTeamsTool(projects *services.ProjectService) ListTeamsTool {
	return ListTeamsTool{projects: projects}
}

func (l ListTeamsTool) Name() string { return "list_teams" }

func (l ListTeamsTool) Description() string {
	return "Lists every team together with its members."
}

func (l ListTeamsTool) Schema() *jsonschema.Schema { return generateSchema[ListTeamsToolInput]() }

func (l ListTeamsTool) Call(ctx context.Context, input string) models.ToolResult {
	if _, bad := parseInput[ListTeamsToolInput](l.Name(), input); bad != nil {
		return *bad
	}
	return l.projects.ListTeams(ctx)
}

type FindTasksToolInput struct {
	Query    string `json:"query,omitempty" jsonschema:"description=Words describing the task; leave empty to list all tasks"`
	Assignee string `json:"assignee,omitempty" jsonschema:"description=Only return tasks assigned to this person"`
}

type FindTasksTool struct {
	projects *services.ProjectService
}

func NewFindTasksTool(projects *services.ProjectService) FindTasksTool {
	return FindTasksTool{projects: projects}
}

func (f FindTasksTool) Name() string { return "find_tasks" }

func (f FindTasksTool) Description() string {
	return "Finds tasks by description and/or assignee and returns their IDs. " +
		"Use this before deleting a task or setting a reminder when the task ID is unknown."
}

func (f FindTasksTool) Schema() *jsonschema.Schema { return generateSchema[FindTasksToolInput]() }

func (f FindTasksTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[FindTasksToolInput](f.Name(), input)
	if bad != nil {
		return *bad
	}
	return f.projects.FindTasks(ctx, params.Query, params.Assignee)
}

type UpdateTaskStatusToolInput struct {
	TaskID string `json:"task_id" jsonschema:"description=ID of the task"`
	Status string `json:"status" jsonschema:"enum=pending,enum=in_progress,enum=completed"`
}

type UpdateTaskStatusTool struct {
	projects *services.ProjectService
}

func NewUpdateTaskStatusTool(projects *services.ProjectService) UpdateTaskStatusTool {
	return UpdateTaskStatusTool{projects: projects}
}

func (u UpdateTaskStatusTool) Name() string { return "update_task_status" }

func (u UpdateTaskStatusTool) Description() string {
	return "Updates the status of a task to pending, in_progress or completed."
}

func (u UpdateTaskStatusTool) Schema() *jsonschema.Schema {
	return generateSchema[UpdateTaskStatusToolInput]()
}

func (u UpdateTaskStatusTool) Call(ctx context.Context, input string) models.ToolResult {
	params, bad := parseInput[UpdateTaskStatusToolInput](u.Name(), input)
	if bad != nil {
		return *bad
	}
	return u.projects.UpdateTaskStatus(ctx, params.TaskID, models.TaskStatus(strings.ToLower(strings.TrimSpace(params.Status))))
}
