package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"planhub-api/initializers"
	"planhub-api/repository"
	"planhub-api/types"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"golang.org/x/crypto/bcrypt"
)

type UsersHandler struct {
	users *repository.UsersRepository
}

func NewUsersHandler(users *repository.UsersRepository) *UsersHandler {
	return &UsersHandler{users: users}
}

func (h *UsersHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  *string `json:"name"`
		Email *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	if req.Email != nil {
		existing, err := h.users.GetUserByEmail(*req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
			return
		}
		if existing != nil && existing.ID != userID {
			c.JSON(http.StatusConflict, types.NewErrorResponse(types.ErrorCodeConflict, "Email already in use"))
			return
		}
	}

	user, err := h.users.UpdateProfile(userID, req.Name, req.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(user))
}

func (h *UsersHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		NewPassword     string `json:"newPassword" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}
	userID := c.GetInt("userId")

	user, err := h.users.GetUserByID(userID)
	if err != nil || user == nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "Failed to load user"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse(types.ErrorCodeUnauthorized, "Current password is incorrect"))
		return
	}

	if err := h.users.UpdatePassword(userID, req.NewPassword); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	c.JSON(http.StatusOK, types.NewSuccessResponse(gin.H{"message": "Password changed successfully"}))
}

// UploadAvatar stores the image in MinIO and points user.image at the
// streaming endpoint. The MIME type is detected from content, never trusted
// from the client.
func (h *UsersHandler) UploadAvatar(c *gin.Context) {
	userID := c.GetInt("userId")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, initializers.Conf.MaxSize)

	file, err := c.FormFile("file")
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "request body too large") {
			c.JSON(http.StatusRequestEntityTooLarge, types.NewErrorResponse(types.ErrorCodeValidation, "file size exceeds the limit"))
			return
		}
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "file is required"))
		return
	}

	sniff, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "cannot open uploaded file"))
		return
	}
	mt, detectErr := mimetype.DetectReader(sniff)
	_ = sniff.Close()
	if detectErr != nil || mt == nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "failed to detect file type"))
		return
	}
	contentType := strings.Split(mt.String(), ";")[0]

	if err := initializers.CheckFileAllowed(file.Size, contentType); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, err.Error()))
		return
	}

	avatarID := uuid.NewString()
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, "cannot read uploaded file"))
		return
	}
	defer src.Close()

	_, err = initializers.MinioClient.PutObject(
		context.Background(),
		initializers.Conf.Bucket,
		avatarID,
		src,
		file.Size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	if err := h.users.CreateAvatar(avatarID, userID, contentType, file.Size); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	image := fmt.Sprintf("/files/%s", avatarID)
	if err := h.users.UpdateImage(userID, image); err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, types.NewSuccessResponse(gin.H{
		"avatarId": avatarID,
		"image":    image,
		"size":     file.Size,
	}))
}

// GetFile streams a stored avatar object.
func (h *UsersHandler) GetFile(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.ErrorCodeValidation, "Invalid file ID"))
		return
	}

	avatar, err := h.users.GetAvatar(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	if avatar == nil {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.ErrorCodeNotFound, "File not found"))
		return
	}

	obj, err := initializers.MinioClient.GetObject(context.Background(), initializers.Conf.Bucket, id, minio.GetObjectOptions{})
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.ErrorCodeInternal, err.Error()))
		return
	}
	defer obj.Close()

	c.Header("Content-Type", avatar.ContentType)
	c.Header("Cache-Control", "public, max-age=86400")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, obj)
}
