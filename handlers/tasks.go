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

type TasksHandler struct {
	tasks       *repository.TasksRepository
	projects    *repository.ProjectsRepository
	workspaces  *repository.WorkspacesRepository
	broadcaster notify.Broadcaster
}

func NewTasksHandler(tasks *repository.TasksRepository, projects *repository.ProjectsRepository, workspaces *repository.WorkspacesRepository) *TasksHandler {
	return &TasksHandler{tasks: tasks, projects: projects, workspaces: workspaces, broadcaster: notify.NopBroadcaster{}}
}

func (h *TasksHandler) WithBroadcaster(b notify.Broadcaster) *TasksHandler {
	h.broadcaster = b
	return h
}

func (h *TasksHandler) GetTasks(c *gin.Context) {
	projectID, err := strconv.Atoi(c.Query("projectId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "projectId query parameter required"))
		return
	}
	userID := c.GetInt("userId")

	if _, ok := h.requireProjectAccess(c, projectID, userID); !ok {
		return
	}
	tasks, err := h.tasks.GetTasksByProject(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(tasks))
}

func (h *TasksHandler) CreateTask(c *gin.Context) {
	var req struct {
		ProjectID   int        `json:"projectId" binding:"required"`
		Title       string     `json:"title" binding:"required"`
		Description string     `json:"description"`
		Status      string     `json:"status"`
		Priority    string     `json:"priority"`
		AssigneeID  *int       `json:"assigneeId"`
		DueDate     *time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = "TODO"
	}
	if req.Priority == "" {
		req.Priority = "MEDIUM"
	}
	userID := c.GetInt("userId")

	if _, ok := h.requireProjectAccess(c, req.ProjectID, userID); !ok {
		return
	}

	task, err := h.tasks.CreateTask(req.ProjectID, req.Title, req.Description, req.Status, req.Priority, req.AssigneeID, req.DueDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(task.Project.WorkspaceID, events.TaskCreated, task)
	c.JSON(http.StatusCreated, types.NewSuccessResponse(task))
}

func (h *TasksHandler) GetTask(c *gin.Context) {
	task, ok := h.loadTaskWithAccess(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(task))
}

func (h *TasksHandler) UpdateTask(c *gin.Context) {
	task, ok := h.loadTaskWithAccess(c)
	if !ok {
		return
	}
	var req struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		AssigneeID  *int       `json:"assigneeId"`
		DueDate     *time.Time `json:"dueDate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}

	updated, err := h.tasks.UpdateTask(task.ID, req.Title, req.Description, req.Status, req.Priority, req.AssigneeID, req.DueDate)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(updated.Project.WorkspaceID, events.TaskUpdated, updated)
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *TasksHandler) DeleteTask(c *gin.Context) {
	task, ok := h.loadTaskWithAccess(c)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(task.ID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(task.Project.WorkspaceID, events.TaskDeleted, events.TaskDeletedPayload{
		TaskID:      task.ID,
		WorkspaceID: task.Project.WorkspaceID,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Task deleted successfully"}))
}

func (h *TasksHandler) loadTaskWithAccess(c *gin.Context) (*models.Task, bool) {
	taskID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid task ID"))
		return nil, false
	}
	task, err := h.tasks.GetTaskByID(taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, false
	}
	if task == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Task not found"))
		return nil, false
	}
	userID := c.GetInt("userId")
	if !h.requireWorkspaceMember(c, task.Project.WorkspaceID, userID) {
		return nil, false
	}
	return task, true
}

// requireProjectAccess loads the project and verifies the requester is a
// member of the owning workspace.
func (h *TasksHandler) requireProjectAccess(c *gin.Context, projectID, userID int) (*models.Project, bool) {
	project, err := h.projects.GetProjectByID(projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, false
	}
	if project == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Project not found"))
		return nil, false
	}
	if !h.requireWorkspaceMember(c, project.WorkspaceID, userID) {
		return nil, false
	}
	return project, true
}

func (h *TasksHandler) requireWorkspaceMember(c *gin.Context, workspaceID, userID int) bool {
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
