package models

import "time"

type Task struct {
	ID          int        `json:"id"`
	ProjectID   int        `json:"projectId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *int       `json:"assigneeId,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Assignee     *PublicUser `json:"assignee,omitempty"`
	Project      *ProjectRef `json:"project,omitempty"`
	CommentCount int         `json:"commentCount"`
}

// TaskRef is the denormalized task context embedded in comments.
type TaskRef struct {
	ID          int `json:"id"`
	ProjectID   int `json:"projectId"`
	WorkspaceID int `json:"workspaceId"`
}
