package models

import "time"

type Project struct {
	ID          int        `json:"id"`
	WorkspaceID int        `json:"workspaceId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	TeamLead    int        `json:"teamLead"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Owner       *PublicUser     `json:"owner,omitempty"`
	Members     []ProjectMember `json:"members,omitempty"`
	TaskCount   int             `json:"taskCount"`
	MemberCount int             `json:"memberCount"`
}

type ProjectMember struct {
	ID        int         `json:"id"`
	UserID    int         `json:"userId"`
	ProjectID int         `json:"projectId"`
	CreatedAt time.Time   `json:"createdAt"`
	User      *PublicUser `json:"user,omitempty"`
}

// ProjectRef is the denormalized project context embedded in tasks so
// consumers can target the owning workspace without another lookup.
type ProjectRef struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	WorkspaceID int    `json:"workspaceId"`
}
