package events

import "planhub-api/models"

// Event names relayed through workspace rooms. The client subscribes to
// these by name; payload shapes are additive-only.
const (
	UserOnline           = "user:online"
	UserOffline          = "user:offline"
	WorkspaceOnlineUsers = "workspace:online:users"
	Error                = "error"

	WorkspaceCreated = "workspace:created"
	WorkspaceUpdated = "workspace:updated"
	WorkspaceDeleted = "workspace:deleted"

	WorkspaceMemberAdded   = "workspace:member:added"
	WorkspaceMemberRemoved = "workspace:member:removed"
	WorkspaceMemberRole    = "workspace:member:role"

	ProjectCreated = "project:created"
	ProjectUpdated = "project:updated"
	ProjectDeleted = "project:deleted"

	ProjectMemberAdded   = "project:member:added"
	ProjectMemberRemoved = "project:member:removed"

	TaskCreated = "task:created"
	TaskUpdated = "task:updated"
	TaskDeleted = "task:deleted"

	CommentCreated = "comment:created"
	CommentUpdated = "comment:updated"
	CommentDeleted = "comment:deleted"
)

// Client-to-hub request names.
const (
	JoinWorkspace  = "join:workspace"
	LeaveWorkspace = "leave:workspace"
)

// Presence payloads.

type PresenceChange struct {
	UserID      int                `json:"userId"`
	User        *models.PublicUser `json:"user"`
	WorkspaceID int                `json:"workspaceId,omitempty"`
}

type OnlineUser struct {
	UserID int                `json:"userId"`
	User   *models.PublicUser `json:"user"`
}

type OnlineUsers struct {
	WorkspaceID int          `json:"workspaceId"`
	Users       []OnlineUser `json:"users"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Deletion payloads carry the bare identifier plus the owning workspace id
// so clients can scope the removal without refetching.

type WorkspaceDeletedPayload struct {
	WorkspaceID int `json:"workspaceId"`
}

type ProjectDeletedPayload struct {
	ProjectID   int `json:"projectId"`
	WorkspaceID int `json:"workspaceId"`
}

type TaskDeletedPayload struct {
	TaskID      int `json:"taskId"`
	WorkspaceID int `json:"workspaceId"`
}

type CommentDeletedPayload struct {
	CommentID   int `json:"commentId"`
	TaskID      int `json:"taskId"`
	WorkspaceID int `json:"workspaceId"`
}

type MemberChangePayload struct {
	WorkspaceID int                     `json:"workspaceId"`
	Member      *models.WorkspaceMember `json:"member,omitempty"`
	UserID      int                     `json:"userId"`
	Role        string                  `json:"role,omitempty"`
}

type ProjectMemberChangePayload struct {
	WorkspaceID int                   `json:"workspaceId"`
	ProjectID   int                   `json:"projectId"`
	Member      *models.ProjectMember `json:"member,omitempty"`
	UserID      int                   `json:"userId"`
}
