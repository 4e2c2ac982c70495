package models

import "time"

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

type Workspace struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	OwnerID     int       `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Owner        *PublicUser       `json:"owner,omitempty"`
	Members      []WorkspaceMember `json:"members,omitempty"`
	ProjectCount int               `json:"projectCount"`
	MemberCount  int               `json:"memberCount"`
}

type WorkspaceMember struct {
	ID          int         `json:"id"`
	UserID      int         `json:"userId"`
	WorkspaceID int         `json:"workspaceId"`
	Role        string      `json:"role"`
	Message     string      `json:"message,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	User        *PublicUser `json:"user,omitempty"`
}
