package handlers

import (
	"net/http"
	"strconv"
	"time"

	"planhub-api/models"
	"planhub-api/pkg/events"
	"planhub-api/pkg/notify"
	"planhub-api/repository"
	"planhub-api/types"

	"github.com/gin-gonic/gin"
)

type ProjectsHandler struct {
	projects    *repository.ProjectsRepository
	workspaces  *repository.WorkspacesRepository
	broadcaster notify.Broadcaster
}

func NewProjectsHandler(projects *repository.ProjectsRepository, workspaces *repository.WorkspacesRepository) *ProjectsHandler {
	return &ProjectsHandler{projects: projects, workspaces: workspaces, broadcaster: notify.NopBroadcaster{}}
}

func (h *ProjectsHandler) WithBroadcaster(b notify.Broadcaster) *ProjectsHandler {
	h.broadcaster = b
	return h
}

func (h *ProjectsHandler) GetProjects(c *gin.Context) {
	workspaceID, err := strconv.Atoi(c.Query("workspaceId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "workspaceId query parameter required"))
		return
	}
	userID := c.GetInt("userId")

	if !h.requireWorkspaceMember(c, workspaceID, userID) {
		return
	}
	projects, err := h.projects.GetProjectsByWorkspace(workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(projects))
}

func (h *ProjectsHandler) CreateProject(c *gin.Context) {
	var req struct {
		WorkspaceID int        `json:"workspaceId" binding:"required"`
		Name        string     `json:"name" binding:"required"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = "ACTIVE"
	}
	if req.Priority == "" {
		req.Priority = "MEDIUM"
	}
	userID := c.GetInt("userId")

	if !h.requireWorkspaceMember(c, req.WorkspaceID, userID) {
		return
	}

	project, err := h.projects.CreateProject(req.WorkspaceID, req.Name, req.Description, req.Status, req.Priority, userID, req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(project.WorkspaceID, events.ProjectCreated, project)
	c.JSON(http.StatusCreated, types.NewSuccessResponse(project))
}

func (h *ProjectsHandler) GetProject(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(project))
}

func (h *ProjectsHandler) UpdateProject(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	var req struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		StartDate   *time.Time `json:"startDate"`
		EndDate     *time.Time `json:"endDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	if !h.requireLeadOrAdmin(c, project, userID, "Only project team lead or workspace admin can update project") {
		return
	}

	updated, err := h.projects.UpdateProject(project.ID, req.Name, req.Description, req.Status, req.Priority, req.StartDate, req.EndDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(updated.WorkspaceID, events.ProjectUpdated, updated)
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *ProjectsHandler) DeleteProject(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	userID := c.GetInt("userId")

	if !h.requireLeadOrAdmin(c, project, userID, "Only project team lead or workspace admin can delete project") {
		return
	}

	if err := h.projects.DeleteProject(project.ID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(project.WorkspaceID, events.ProjectDeleted, events.ProjectDeletedPayload{
		ProjectID:   project.ID,
		WorkspaceID: project.WorkspaceID,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Project deleted successfully"}))
}

func (h *ProjectsHandler) GetProjectMembers(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	members, err := h.projects.GetProjectMembers(project.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(members))
}

func (h *ProjectsHandler) AddMember(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	var req struct {
		UserID int `json:"userId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	isMember, err := h.projects.IsProjectMember(project.ID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if !isMember && project.TeamLead != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only project members can add other members"))
		return
	}

	already, err := h.projects.IsProjectMember(project.ID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if already {
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "User is already a project member"))
		return
	}

	member, err := h.projects.AddProjectMember(project.ID, req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(project.WorkspaceID, events.ProjectMemberAdded, events.ProjectMemberChangePayload{
		WorkspaceID: project.WorkspaceID,
		ProjectID:   project.ID,
		Member:      member,
		UserID:      req.UserID,
	})
	c.JSON(http.StatusCreated, types.NewSuccessResponse(member))
}

func (h *ProjectsHandler) RemoveMember(c *gin.Context) {
	project, ok := h.loadProjectWithAccess(c)
	if !ok {
		return
	}
	memberID, err := strconv.Atoi(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid user ID"))
		return
	}
	userID := c.GetInt("userId")

	if project.TeamLead != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only project team lead can remove members"))
		return
	}
	if memberID == project.TeamLead {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Cannot remove team lead"))
		return
	}

	if err := h.projects.RemoveProjectMember(project.ID, memberID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(project.WorkspaceID, events.ProjectMemberRemoved, events.ProjectMemberChangePayload{
		WorkspaceID: project.WorkspaceID,
		ProjectID:   project.ID,
		UserID:      memberID,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Member removed successfully"}))
}

// loadProjectWithAccess resolves :id, loads the project, and verifies the
// requester belongs to the owning workspace.
func (h *ProjectsHandler) loadProjectWithAccess(c *gin.Context) (*models.Project, bool) {
	projectID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid project ID"))
		return nil, false
	}
	project, err := h.projects.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, false
	}
	if project == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Project not found"))
		return nil, false
	}
	userID := c.GetInt("userId")
	if !h.requireWorkspaceMember(c, project.WorkspaceID, userID) {
		return nil, false
	}
	return project, true
}

func (h *ProjectsHandler) requireWorkspaceMember(c *gin.Context, workspaceID, userID int) bool {
	role, err := h.workspaces.GetMemberRole(userID, workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return false
	}
	if role == "" {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Access denied"))
		return false
	}
	return true
}

func (h *ProjectsHandler) requireLeadOrAdmin(c *gin.Context, project *models.Project, userID int, message string) bool {
	if project.TeamLead == userID {
		return true
	}
	role, err := h.workspaces.GetMemberRole(userID, project.WorkspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return false
	}
	if role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, message))
		return false
	}
	return true
}
