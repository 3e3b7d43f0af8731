package models

import "time"

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

type Team struct {
	Name    string   `json:"name" db:"name"`
	Members []string `json:"members" db:"members"`
}

type Task struct {
	ID        string     `json:"id" db:"id"`
	Title     string     `json:"title" db:"title"`
	Assignee  string     `json:"assignee" db:"assignee"`
	Deadline  string     `json:"deadline" db:"deadline"`
	Status    TaskStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

type CreateTaskRequest struct {
	Title    string `json:"title"`
	Assignee string `json:"assignee"`
	Deadline string `json:"deadline"`
}

type UpdateTaskStatusRequest struct {
	Status TaskStatus `json:"status"`
}

type Reminder struct {
	ID       string    `json:"id" db:"id"`
	TaskID   string    `json:"task_id" db:"task_id"`
	RemindAt string    `json:"remind_at" db:"remind_at"`
	Fired    bool      `json:"fired" db:"fired"`
	Created  time.Time `json:"created_at" db:"created_at"`
}

type MemberSummary struct {
	Name           string  `json:"name"`
	CompletedTasks int     `json:"completed_tasks"`
	TotalTasks     int     `json:"total_tasks"`
	Tasks          []*Task `json:"tasks"`
}
