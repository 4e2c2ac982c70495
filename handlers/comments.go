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

type CommentsHandler struct {
	comments    *repository.CommentsRepository
	tasks       *repository.TasksRepository
	workspaces  *repository.WorkspacesRepository
	broadcaster notify.Broadcaster
}

func NewCommentsHandler(comments *repository.CommentsRepository, tasks *repository.TasksRepository, workspaces *repository.WorkspacesRepository) *CommentsHandler {
	return &CommentsHandler{comments: comments, tasks: tasks, workspaces: workspaces, broadcaster: notify.NopBroadcaster{}}
}

func (h *CommentsHandler) WithBroadcaster(b notify.Broadcaster) *CommentsHandler {
	h.broadcaster = b
	return h
}

func (h *CommentsHandler) GetComments(c *gin.Context) {
	taskID, err := strconv.Atoi(c.Query("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "taskId query parameter required"))
		return
	}
	userID := c.GetInt("userId")

	if _, ok := h.requireTaskAccess(c, taskID, userID); !ok {
		return
	}
	comments, err := h.comments.GetCommentsByTask(taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(comments))
}

func (h *CommentsHandler) CreateComment(c *gin.Context) {
	var req struct {
		TaskID  int    `json:"taskId" binding:"required"`
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	if _, ok := h.requireTaskAccess(c, req.TaskID, userID); !ok {
		return
	}

	comment, err := h.comments.CreateComment(req.TaskID, userID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(comment.Task.WorkspaceID, events.CommentCreated, comment)
	c.JSON(http.StatusCreated, types.NewSuccessResponse(comment))
}

func (h *CommentsHandler) UpdateComment(c *gin.Context) {
	commentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid comment ID"))
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	comment, err := h.comments.GetCommentByID(commentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if comment == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Comment not found"))
		return
	}
	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only the author can edit a comment"))
		return
	}

	updated, err := h.comments.UpdateComment(commentID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(updated.Task.WorkspaceID, events.CommentUpdated, updated)
	c.JSON(http.StatusOK, types.NewSuccessResponse(updated))
}

func (h *CommentsHandler) DeleteComment(c *gin.Context) {
	commentID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid comment ID"))
		return
	}
	userID := c.GetInt("userId")

	comment, err := h.comments.GetCommentByID(commentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if comment == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Comment not found"))
		return
	}
	if comment.UserID != userID {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Only the author can delete a comment"))
		return
	}

	if err := h.comments.DeleteComment(commentID); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	h.broadcaster.Broadcast(comment.Task.WorkspaceID, events.CommentDeleted, events.CommentDeletedPayload{
		CommentID:   commentID,
		TaskID:      comment.TaskID,
		WorkspaceID: comment.Task.WorkspaceID,
	})
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Comment deleted successfully"}))
}

func (h *CommentsHandler) requireTaskAccess(c *gin.Context, taskID, userID int) (*models.Task, bool) {
	task, err := h.tasks.GetTaskByID(taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, false
	}
	if task == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "Task not found"))
		return nil, false
	}
	role, err := h.workspaces.GetMemberRole(userID, task.Project.WorkspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return nil, false
	}
	if role == "" {
		c.JSON(http.StatusForbidden, types.NewErrorResponse(types.ErrorCodeForbidden, "Access denied"))
		return nil, false
	}
	return task, true
}
