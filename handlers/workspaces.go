package handlers

import (
	"net/http"
	"strconv"

	"planhub-api/models"
	"planhub-api/pkg/events"
	"planhub-api/pkg/notify"
	"planhub-api/repository"
	"planhub-api/types"

	"github.com/gin-gonic/gin"
)

type WorkspacesHandler struct {
	workspaces  *repository.WorkspacesRepository
	users       *repository.UsersRepository
	broadcaster notify.Broadcaster
}

func NewWorkspacesHandler(workspaces *repository.WorkspacesRepository, users *repository.UsersRepository) *WorkspacesHandler {
	return &WorkspacesHandler{workspaces: workspaces, users: users, broadcaster: notify.NopBroadcaster{}}
}

func (h *WorkspacesHandler) WithBroadcaster(b notify.Broadcaster) *WorkspacesHandler {
	h.broadcaster = b
	return h
}

func (h *WorkspacesHandler) GetWorkspaces(c *gin.Context) {
	userID := c.GetInt("userId")
	workspaces, err := h.workspaces.GetWorkspacesForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(workspaces))
}

func (h *WorkspacesHandler) CreateWorkspace(c *gin.Context) {
	var req struct {
		Name        string `json:"name" binding:"required"`
		Slug        string `json:"slug" binding:"required"`
		Description string `json:"description"`
		ImageURL    string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	exists, err := h.workspaces.SlugExists(req.Slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if exists {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "Workspace with this slug already exists"))
		return
	}

	workspace, err := h.workspaces.CreateWorkspace(req.Name, req.Slug, req.Description, req.ImageURL, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(workspace.ID, events.WorkspaceCreated, workspace)
	c.JSON(http.StatusCreated, types.NewSuccessResponse(workspace))
}

func (h *WorkspacesHandler) GetWorkspace(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	userID := c.GetInt("userId")

	workspace, _, ok := h.requireMembership(c, workspaceID, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(workspace))
}

func (h *WorkspacesHandler) UpdateWorkspace(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	var req struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ImageURL    *string `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	workspace, err := h.workspaces.GetWorkspaceByID(workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if workspace == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Workspace not found"))
		return
	}
	if workspace.OwnerID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only workspace owner can update workspace"))
		return
	}

	updated, err := h.workspaces.UpdateWorkspace(workspaceID, req.Name, req.Description, req.ImageURL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(workspaceID, events.WorkspaceUpdated, updated)
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *WorkspacesHandler) DeleteWorkspace(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	userID := c.GetInt("userId")

	workspace, err := h.workspaces.GetWorkspaceByID(workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if workspace == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Workspace not found"))
		return
	}
	if workspace.OwnerID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only workspace owner can delete workspace"))
		return
	}

	// Broadcast before deleting so current members still get the event.
	h.broadcaster.Broadcast(workspaceID, events.WorkspaceDeleted, events.WorkspaceDeletedPayload{WorkspaceID: workspaceID})

	if err := h.workspaces.DeleteWorkspace(workspaceID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Workspace deleted successfully"}))
}

func (h *WorkspacesHandler) GetMembers(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	userID := c.GetInt("userId")

	if _, _, ok := h.requireMembership(c, workspaceID, userID); !ok {
		return
	}
	members, err := h.workspaces.GetMembers(workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(members))
}

func (h *WorkspacesHandler) AddMember(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	var req struct {
		Email   string `json:"email" binding:"required,email"`
		Role    string `json:"role"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Role == "" {
		req.Role = models.RoleMember
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid role"))
		return
	}
	userID := c.GetInt("userId")

	if !h.requireAdmin(c, workspaceID, userID) {
		return
	}

	target, err := h.users.GetUserByEmail(req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if target == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "User not found"))
		return
	}

	existingRole, err := h.workspaces.GetMemberRole(target.ID, workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if existingRole != "" {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "User is already a member"))
		return
	}

	member, err := h.workspaces.AddMember(workspaceID, target.ID, req.Role, req.Message)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(workspaceID, events.WorkspaceMemberAdded, events.MemberChangePayload{
		WorkspaceID: workspaceID,
		Member:      member,
		UserID:      target.ID,
		Role:        member.Role,
	})
	c.JSON(http.StatusCreated, types.NewSuccessResponse(member))
}

func (h *WorkspacesHandler) RemoveMember(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	memberID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid user ID"))
		return
	}
	userID := c.GetInt("userId")

	workspace, _, ok := h.requireMembership(c, workspaceID, userID)
	if !ok {
		return
	}
	if !h.requireAdmin(c, workspaceID, userID) {
		return
	}
	if memberID == workspace.OwnerID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Cannot remove workspace owner"))
		return
	}

	if err := h.workspaces.RemoveMember(workspaceID, memberID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(workspaceID, events.WorkspaceMemberRemoved, events.MemberChangePayload{
		WorkspaceID: workspaceID,
		UserID:      memberID,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Member removed successfully"}))
}

func (h *WorkspacesHandler) UpdateMemberRole(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid workspace ID"))
		return
	}
	memberID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid user ID"))
		return
	}
	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Role != models.RoleAdmin && req.Role != models.RoleMember {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid role"))
		return
	}
	userID := c.GetInt("userId")

	if !h.requireAdmin(c, workspaceID, userID) {
		return
	}

	member, err := h.workspaces.UpdateMemberRole(workspaceID, memberID, req.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if member == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Member not found"))
		return
	}

	h.broadcaster.Broadcast(workspaceID, events.WorkspaceMemberRole, events.MemberChangePayload{
		WorkspaceID: workspaceID,
		Member:      member,
		UserID:      memberID,
		Role:        req.Role,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(member))
}

// requireMembership loads the workspace and rejects the request unless the
// user is the owner or a member. Writes the error response itself.
func (h *WorkspacesHandler) requireMembership(c *gin.Context, workspaceID, userID int) (*models.Workspace, string, bool) {
	workspace, err := h.workspaces.GetWorkspaceByID(workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, "", false
	}
	if workspace == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Workspace not found"))
		return nil, "", false
	}
	role, err := h.workspaces.GetMemberRole(userID, workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, "", false
	}
	if role == "" && workspace.OwnerID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Access denied"))
		return nil, "", false
	}
	return workspace, role, true
}

func (h *WorkspacesHandler) requireAdmin(c *gin.Context, workspaceID, userID int) bool {
	role, err := h.workspaces.GetMemberRole(userID, workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return false
	}
	if role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Admin role required"))
		return false
	}
	return true
}
